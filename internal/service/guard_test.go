package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInFlightMarker(t *testing.T) {
	_, ok := inFlight(context.Background())
	assert.False(t, ok)

	ctx := withInFlight(context.Background(), "fund")
	op, ok := inFlight(context.WithoutCancel(ctx))
	assert.True(t, ok, "marker survives derived contexts")
	assert.Equal(t, "fund", op)
}

func TestKeyedMutex_SerializesPerKey(t *testing.T) {
	km := newKeyedMutex[string]()
	var (
		wg      sync.WaitGroup
		counter int
	)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := km.Lock("k")
			defer unlock()
			counter++
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, counter)
	assert.Empty(t, km.locks, "unused entries are released")
}

func TestKeyedMutex_IndependentKeys(t *testing.T) {
	km := newKeyedMutex[string]()
	unlockA := km.Lock("a")
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlock := km.Lock("b")
		unlock()
		close(done)
	}()
	<-done
}
