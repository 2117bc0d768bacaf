package cache

import (
	"context"
	"sync"
	"time"

	"github.com/erp/eca/internal/domain/shared"
)

// InMemoryEventLedger remembers processed event fingerprints in process
// memory. State is not shared between instances, so it only suits single
// instance deployments and tests.
type InMemoryEventLedger struct {
	mu        sync.RWMutex
	expiry    map[string]time.Time
	now       func() time.Time
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryEventLedger creates a ledger that sweeps expired fingerprints
// every sweepInterval. A non-positive interval disables sweeping.
func NewInMemoryEventLedger(sweepInterval time.Duration) *InMemoryEventLedger {
	l := &InMemoryEventLedger{
		expiry:   make(map[string]time.Time),
		now:      time.Now,
		stopChan: make(chan struct{}),
	}
	if sweepInterval > 0 {
		l.wg.Add(1)
		go l.sweepLoop(sweepInterval)
	}
	return l
}

// MarkProcessed records eventID until ttl elapses.
// Returns false if the event was already recorded and has not expired.
func (l *InMemoryEventLedger) MarkProcessed(_ context.Context, eventID string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if exp, ok := l.expiry[eventID]; ok && now.Before(exp) {
		return false, nil
	}
	l.expiry[eventID] = now.Add(ttl)
	return true, nil
}

// IsProcessed reports whether eventID is recorded and unexpired
func (l *InMemoryEventLedger) IsProcessed(_ context.Context, eventID string) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	exp, ok := l.expiry[eventID]
	return ok && l.now().Before(exp), nil
}

// Close stops the sweeper. Safe to call multiple times.
func (l *InMemoryEventLedger) Close() error {
	l.closeOnce.Do(func() {
		close(l.stopChan)
		l.wg.Wait()
	})
	return nil
}

// Len returns the number of recorded fingerprints, expired or not
func (l *InMemoryEventLedger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.expiry)
}

func (l *InMemoryEventLedger) sweepLoop(interval time.Duration) {
	defer l.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopChan:
			return
		case <-ticker.C:
			l.sweep()
		}
	}
}

func (l *InMemoryEventLedger) sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for id, exp := range l.expiry {
		if !now.Before(exp) {
			delete(l.expiry, id)
		}
	}
}

var _ shared.IdempotencyStore = (*InMemoryEventLedger)(nil)
