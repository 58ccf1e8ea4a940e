// Package application contém os casos de uso do intake: limiter de janela
// deslizante, gate de atividade, batcher de analytics, fila de envios e a
// Facade que os compõe.
//
// Ele depende apenas do pacote domain (e do logger) e não conhece net/http nem
// o meio de armazenamento concreto.
// Ex.: Facade.CheckRateLimit(ctx, id) retorna uma Decision (allow/deny + reset).
package application
