package lock

import (
	"context"
	"sync"
	"time"
)

// Keyed is the in-process coordinator: one mutex per key, implemented as a
// buffered channel so acquisition can race a timeout. Operations on different
// keys proceed fully in parallel.
type Keyed struct {
	wait time.Duration

	mu    sync.Mutex
	slots map[string]chan struct{}
}

func NewKeyed(wait time.Duration) *Keyed {
	return &Keyed{wait: wait, slots: make(map[string]chan struct{})}
}

func (k *Keyed) slot(key string) chan struct{} {
	k.mu.Lock()
	defer k.mu.Unlock()
	slot, ok := k.slots[key]
	if !ok {
		slot = make(chan struct{}, 1)
		k.slots[key] = slot
	}
	return slot
}

func (k *Keyed) Acquire(ctx context.Context, key string) (func(), error) {
	slot := k.slot(key)
	timer := time.NewTimer(k.wait)
	defer timer.Stop()
	select {
	case slot <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() { <-slot })
		}, nil
	case <-timer.C:
		return nil, ErrBusy
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
