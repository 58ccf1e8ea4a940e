package domain

// Camada de domínio do rate limit.
//
// Regras e contratos (interfaces/tipos) sem dependência de net/http.

import "time"

// Key identifica quem está sendo limitado (sessão, usuário, IP).
type Key string

// Decision é o resultado de uma checagem de rate limit.
type Decision struct {
	Allowed   bool
	Remaining int
	// ResetTime é quando a janela libera nova requisição.
	// Zero quando o limiter não foi consultado (gate fechado ou falha).
	ResetTime time.Time
}

// ResetMillis retorna ResetTime em epoch-ms (0 se não houver).
func (d Decision) ResetMillis() int64 {
	if d.ResetTime.IsZero() {
		return 0
	}
	return d.ResetTime.UnixMilli()
}

// RetryAfter é quanto falta para ResetTime a partir de now. Nunca negativo.
func (d Decision) RetryAfter(now time.Time) time.Duration {
	if d.Allowed || d.ResetTime.IsZero() {
		return 0
	}
	if wait := d.ResetTime.Sub(now); wait > 0 {
		return wait
	}
	return 0
}

// RateWindow é o registro persistido em rate_limit:<id>.
//
// Requests guarda um timestamp (epoch-ms) por requisição admitida dentro da janela.
// WindowStart é o instante da última admissão; a limpeza usa esse campo
// para descartar registros inativos.
type RateWindow struct {
	Requests    []int64 `json:"requests"`
	WindowStart int64   `json:"window"`
}
