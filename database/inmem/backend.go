package inmem

import (
	"sync"
)

type Backend struct {
	lock   sync.Mutex
	values map[string][]byte
	writes int
}

func NewBackend() *Backend {
	return &Backend{
		values: map[string][]byte{},
	}
}

func (b *Backend) Set(key string, value []byte) error {
	b.lock.Lock()
	defer b.lock.Unlock()

	v := make([]byte, len(value))
	copy(v, value)
	b.values[key] = v
	b.writes++
	return nil
}

func (b *Backend) Get(key string) ([]byte, bool, error) {
	b.lock.Lock()
	defer b.lock.Unlock()

	v, ok := b.values[key]
	if !ok {
		return nil, false, nil
	}
	result := make([]byte, len(v))
	copy(result, v)
	return result, true, nil
}

// Writes counts calls to Set.
func (b *Backend) Writes() int {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.writes
}

func (b *Backend) Close() error {
	return nil
}
