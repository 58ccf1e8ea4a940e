// Package domain define contratos e tipos de domínio do intake de reembolso:
// store com TTL, decisão de rate limit, eventos de analytics e fila de envios.
//
// Este pacote não depende de net/http nem de implementações concretas.
// A intenção é permitir testes de unidade puros e desacoplar regras de negócio
// de detalhes de infraestrutura (memória, Redis, Badger).
package domain
