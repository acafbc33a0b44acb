package kv

import (
	"errors"
	"log/slog"
	"sync"
)

// ErrUnavailable indicates the backing store cannot be used right now.
var ErrUnavailable = errors.New("store unavailable")

// Store is a string key/value store that may fail on any operation.
type Store interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
}

// Memory is a volatile Store. It never fails.
type Memory struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

func (memory *Memory) Get(key string) (string, bool, error) {
	memory.mu.RLock()
	defer memory.mu.RUnlock()
	value, ok := memory.values[key]
	return value, ok, nil
}

func (memory *Memory) Set(key, value string) error {
	memory.mu.Lock()
	memory.values[key] = value
	memory.mu.Unlock()
	return nil
}

// Fallback writes through to a primary store and keeps a mirror of every
// write. Once the primary has failed, reads or writes, the mirror answers
// first and the primary only fills in keys the mirror never saw.
type Fallback struct {
	primary  Store
	mirror   Store
	mu       sync.Mutex
	degraded bool
}

// NewFallback composes primary with mirror. A nil mirror gets a Memory store.
func NewFallback(primary, mirror Store) *Fallback {
	if mirror == nil {
		mirror = NewMemory()
	}
	return &Fallback{primary: primary, mirror: mirror}
}

func (fallback *Fallback) Get(key string) (string, bool, error) {
	if fallback.primary == nil {
		return fallback.mirror.Get(key)
	}
	if fallback.Degraded() {
		if value, ok, err := fallback.mirror.Get(key); err == nil && ok {
			return value, true, nil
		}
	}
	value, ok, err := fallback.primary.Get(key)
	if err == nil {
		return value, ok, nil
	}
	fallback.markDegraded(err)
	return fallback.mirror.Get(key)
}

func (fallback *Fallback) Set(key, value string) error {
	if err := fallback.mirror.Set(key, value); err != nil {
		return err
	}
	if fallback.primary == nil {
		return nil
	}
	if err := fallback.primary.Set(key, value); err != nil {
		fallback.markDegraded(err)
	}
	return nil
}

// Degraded reports whether the primary store has failed at least once.
func (fallback *Fallback) Degraded() bool {
	fallback.mu.Lock()
	defer fallback.mu.Unlock()
	return fallback.degraded
}

func (fallback *Fallback) markDegraded(err error) {
	fallback.mu.Lock()
	first := !fallback.degraded
	fallback.degraded = true
	fallback.mu.Unlock()
	if first {
		slog.Warn("preference store unavailable, using in-memory mirror", "error", err)
	}
}
