package domain

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable indica que o meio de armazenamento não está aberto (ou já foi fechado).
var ErrUnavailable = errors.New("store unavailable")

// TTLStore é o substrato chave/valor com expiração usado por todos os componentes.
//
// Regras:
//   - Get nunca retorna uma entrada expirada; ao encontrá-la, remove.
//   - Set com ttl == 0 grava sem expiração.
//   - Append trata o valor como lista de strings e insere o item no início.
//     Preserva a expiração existente.
//   - Expire retorna false se a chave não existe. ttl <= 0 remove a
//     expiração; a chave continua existindo.
//   - KeysMatching aceita apenas o curinga '*'.
//
// Não há atomicidade entre chaves diferentes.
type TTLStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Append(ctx context.Context, key, item string) (int, error)
	Expire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, key string) error
	KeysMatching(ctx context.Context, pattern string) ([]string, error)
	Close() error
}

// Counter é uma capacidade opcional do TTLStore: incremento atômico com
// renovação de TTL. Retorna o valor após o incremento.
type Counter interface {
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
}
