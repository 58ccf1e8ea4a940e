package infra

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dgraph-io/badger/v3"
)

// BadgerStore é um domain.TTLStore embarcado (sem servidor) sobre BadgerDB.
//
// O TTL é o nativo do Badger (granularidade de segundos); entradas expiradas
// não aparecem em leituras e são recolhidas pelo GC do próprio Badger.
// Listas (Append) são guardadas como JSON, lidas e regravadas na mesma transação.
type BadgerStore struct {
	db      *badger.DB
	retries int
}

// OpenBadgerStore abre o banco em path. Path vazio abre em memória.
func OpenBadgerStore(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil // desliga o log interno do badger

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening badger db: %w", err)
	}
	return NewBadgerStore(db), nil
}

func NewBadgerStore(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db, retries: 3}
}

// update repete a transação em caso de conflito com outra escrita concorrente.
func (s *BadgerStore) update(fn func(txn *badger.Txn) error) error {
	var err error
	for i := 0; i <= s.retries; i++ {
		err = s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return err
}

func newEntry(key string, value []byte, ttl time.Duration) *badger.Entry {
	e := badger.NewEntry([]byte(key), value)
	if ttl > 0 {
		e = e.WithTTL(ttl)
	}
	return e
}

// remainingTTL converte o ExpiresAt (unix segundos) do item em duração restante.
func remainingTTL(item *badger.Item) time.Duration {
	exp := item.ExpiresAt()
	if exp == 0 {
		return 0
	}
	d := time.Until(time.Unix(int64(exp), 0))
	if d < time.Second {
		d = time.Second
	}
	return d
}

func (s *BadgerStore) Get(_ context.Context, key string) (string, bool, error) {
	var out string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		v, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		out = string(v)
		return nil
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("badger get %q: %w", key, err)
	}
	return out, true, nil
}

func (s *BadgerStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	err := s.update(func(txn *badger.Txn) error {
		return txn.SetEntry(newEntry(key, []byte(value), ttl))
	})
	if err != nil {
		return fmt.Errorf("badger set %q: %w", key, err)
	}
	return nil
}

func (s *BadgerStore) Append(_ context.Context, key, item string) (int, error) {
	var n int
	err := s.update(func(txn *badger.Txn) error {
		var raw string
		var ttl time.Duration

		cur, err := txn.Get([]byte(key))
		switch {
		case err == nil:
			v, err := cur.ValueCopy(nil)
			if err != nil {
				return err
			}
			raw = string(v)
			ttl = remainingTTL(cur)
		case !errors.Is(err, badger.ErrKeyNotFound):
			return err
		}

		next, size, err := prependList(raw, item)
		if err != nil {
			return err
		}
		n = size
		return txn.SetEntry(newEntry(key, []byte(next), ttl))
	})
	if err != nil {
		return 0, fmt.Errorf("badger append %q: %w", key, err)
	}
	return n, nil
}

func (s *BadgerStore) Expire(_ context.Context, key string, ttl time.Duration) (bool, error) {
	found := false
	err := s.update(func(txn *badger.Txn) error {
		cur, err := txn.Get([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		v, err := cur.ValueCopy(nil)
		if err != nil {
			return err
		}
		found = true
		return txn.SetEntry(newEntry(key, v, ttl))
	})
	if err != nil {
		return false, fmt.Errorf("badger expire %q: %w", key, err)
	}
	return found, nil
}

func (s *BadgerStore) Delete(_ context.Context, key string) error {
	err := s.update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("badger delete %q: %w", key, err)
	}
	return nil
}

// KeysMatching percorre só o prefixo literal do padrão e filtra o restante.
func (s *BadgerStore) KeysMatching(_ context.Context, pattern string) ([]string, error) {
	var out []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(literalPrefix(pattern))

		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			if item.IsDeletedOrExpired() {
				continue
			}
			k := string(item.KeyCopy(nil))
			if matchGlob(pattern, k) {
				out = append(out, k)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("badger scan %q: %w", pattern, err)
	}
	return out, nil
}

// Incr implementa domain.Counter (leitura e escrita na mesma transação).
func (s *BadgerStore) Incr(_ context.Context, key string, ttl time.Duration) (int64, error) {
	var n int64
	err := s.update(func(txn *badger.Txn) error {
		n = 0
		cur, err := txn.Get([]byte(key))
		switch {
		case err == nil:
			v, err := cur.ValueCopy(nil)
			if err != nil {
				return err
			}
			if parsed, perr := strconv.ParseInt(string(v), 10, 64); perr == nil {
				n = parsed
			}
		case !errors.Is(err, badger.ErrKeyNotFound):
			return err
		}
		n++
		return txn.SetEntry(newEntry(key, []byte(strconv.FormatInt(n, 10)), ttl))
	})
	if err != nil {
		return 0, fmt.Errorf("badger incr %q: %w", key, err)
	}
	return n, nil
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}
