package locks

import (
	"context"
	"sync"
	"time"

	pkgerrors "github.com/angelmondragon/lotledger/pkg/errors"
	"github.com/angelmondragon/lotledger/pkg/metrics"
)

const backendMemory = "memory"

// KeyedMutex is an in-process Locker. Each key owns a single slot; slots with
// no holders or waiters are dropped.
type KeyedMutex struct {
	mu      sync.Mutex
	slots   map[string]*slot
	timeout time.Duration
	metrics *metrics.InventoryMetrics
}

type slot struct {
	ch   chan struct{}
	refs int
}

// NewKeyedMutex builds a KeyedMutex. A non-positive timeout waits until the
// context is done.
func NewKeyedMutex(timeout time.Duration, m *metrics.InventoryMetrics) *KeyedMutex {
	return &KeyedMutex{
		slots:   make(map[string]*slot),
		timeout: timeout,
		metrics: m,
	}
}

func (k *KeyedMutex) Acquire(ctx context.Context, key string) (func(), error) {
	s := k.ref(key)
	started := time.Now()

	var expired <-chan time.Time
	if k.timeout > 0 {
		timer := time.NewTimer(k.timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case s.ch <- struct{}{}:
		k.metrics.ObserveLockWait(backendMemory, time.Since(started))
		var once sync.Once
		return func() {
			once.Do(func() {
				<-s.ch
				k.unref(key, s)
			})
		}, nil
	case <-ctx.Done():
		k.unref(key, s)
		k.metrics.IncLockBusy(backendMemory)
		return nil, pkgerrors.ErrBusy.Because("gave up waiting for %s: %v", key, ctx.Err())
	case <-expired:
		k.unref(key, s)
		k.metrics.IncLockBusy(backendMemory)
		return nil, pkgerrors.ErrBusy.Because("timed out after %s waiting for %s", k.timeout, key)
	}
}

// Len reports how many keys currently have holders or waiters.
func (k *KeyedMutex) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.slots)
}

func (k *KeyedMutex) ref(key string) *slot {
	k.mu.Lock()
	defer k.mu.Unlock()
	s, ok := k.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		k.slots[key] = s
	}
	s.refs++
	return s
}

func (k *KeyedMutex) unref(key string, s *slot) {
	k.mu.Lock()
	defer k.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(k.slots, key)
	}
}
