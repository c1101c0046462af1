package lock

import (
	"context"
	"fmt"
	"sync"
)

// Memory es un Locker in-process: un semáforo de capacidad 1 por clave.
type Memory struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

// NewMemory crea un Locker en memoria.
func NewMemory() *Memory {
	return &Memory{slots: map[string]chan struct{}{}}
}

func (m *Memory) slot(key string) chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch, ok := m.slots[key]
	if !ok {
		ch = make(chan struct{}, 1)
		m.slots[key] = ch
	}
	return ch
}

func (m *Memory) Acquire(ctx context.Context, key string) (func(), error) {
	ch := m.slot(key)
	select {
	case ch <- struct{}{}:
		var once sync.Once
		return func() { once.Do(func() { <-ch }) }, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %s: %v", ErrNotAcquired, key, ctx.Err())
	}
}
