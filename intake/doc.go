// Package intake fornece adapters HTTP (net/http + gorilla/mux) para o intake de
// formulários de reembolso.
//
// Visão geral (camadas):
//
//   - domain: contratos e tipos do domínio (sem dependência de net/http)
//   - application: casos de uso (limiter, gate, batcher, fila, Facade) sem net/http
//   - infra: implementações concretas (stores Memory/Redis/Badger, token bucket, semáforo, stats)
//   - intake (este pacote): middlewares HTTP, extração de chave e rotas do intake
//
// Fluxo de um envio (POST /submissions):
//
//  1. Extrai a chave do cliente (header de sessão/XFF/IP)
//  2. BurstMiddleware: token bucket local, sempre ativo
//  3. Middleware: Facade.CheckRateLimit (gate de atividade + janela deslizante)
//  4. Se bloqueado, responde 429 com Retry-After e X-RateLimit-*
//  5. Se permitido, enfileira o envio e registra o evento de analytics
//
// Variáveis de ambiente do binário (cmd/intake) controlam o comportamento,
// como REDIS_RATE_LIMIT_MAX, REDIS_RATE_LIMIT_WINDOW e STORE_BACKEND.
package intake
