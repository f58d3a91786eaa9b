package service

import (
	"context"
	"sync"
)

type inFlightKey struct{}

// withInFlight marks ctx as belonging to a running fund or repay. Any
// ledger call made with a derived context is a nested call.
func withInFlight(ctx context.Context, op string) context.Context {
	return context.WithValue(ctx, inFlightKey{}, op)
}

// inFlight returns the operation already running on this call chain.
func inFlight(ctx context.Context) (string, bool) {
	op, ok := ctx.Value(inFlightKey{}).(string)
	return op, ok
}

// keyedMutex serializes work per key. Entries are dropped once unused.
type keyedMutex[K comparable] struct {
	mu    sync.Mutex
	locks map[K]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func newKeyedMutex[K comparable]() *keyedMutex[K] {
	return &keyedMutex[K]{locks: make(map[K]*refMutex)}
}

// Lock blocks until key is free and returns the matching unlock func.
func (k *keyedMutex[K]) Lock(key K) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
