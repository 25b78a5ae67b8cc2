// Package identityfeed provides an in-process identity event bus for single-replica deployments.
package identityfeed

import (
	"context"
	"sync"

	domainauth "github.com/target/tempguard-api/internal/domain/auth"
	"github.com/target/tempguard-api/internal/ports"
)

var _ ports.IdentityEventBus = (*Bus)(nil)

// Bus fans events out to subscribers on the publisher's goroutine.
// Handlers must not call Subscribe or the returned unsubscribe function.
type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[uint64]func(domainauth.IdentityEvent)
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{subs: make(map[uint64]func(domainauth.IdentityEvent))}
}

// Publish delivers ev to every current subscriber. Delivery holds the read lock,
// so an unsubscribe that has returned is never followed by a late call.
func (b *Bus) Publish(ctx context.Context, ev domainauth.IdentityEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, fn := range b.subs {
		fn(ev)
	}
	return nil
}

func (b *Bus) Subscribe(fn func(domainauth.IdentityEvent)) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = fn
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

// Len returns the number of active subscriptions.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
