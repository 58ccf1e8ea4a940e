package application

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

const defaultLockStripes = 64

// KeyLocks serializa operações por chave usando um conjunto fixo de mutexes.
// Chaves diferentes podem cair na mesma listra; isso só custa espera.
type KeyLocks struct {
	stripes []sync.Mutex
}

func NewKeyLocks(stripes int) *KeyLocks {
	if stripes <= 0 {
		stripes = defaultLockStripes
	}
	return &KeyLocks{stripes: make([]sync.Mutex, stripes)}
}

// Lock trava a listra da chave e devolve a função de liberação.
func (k *KeyLocks) Lock(key string) (unlock func()) {
	m := &k.stripes[xxhash.Sum64String(key)%uint64(len(k.stripes))]
	m.Lock()
	return m.Unlock
}
