package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"
	domainauth "github.com/target/tempguard-api/internal/domain/auth"
	"github.com/target/tempguard-api/internal/ports"
)

// DefaultIdentityChannel is the pub/sub channel carrying identity events.
const DefaultIdentityChannel = "tempguard:identity-events"

var _ ports.IdentityEventBus = (*IdentityEvents)(nil)

// IdentityEvents is an identity event bus over Redis pub/sub, shared by every API replica.
// Each subscription owns one PubSub connection and one delivery goroutine.
type IdentityEvents struct {
	client  redis.UniversalClient
	channel string
	logger  *slog.Logger
}

// IdentityEventsOptions configures IdentityEvents.
type IdentityEventsOptions struct {
	Client  redis.UniversalClient
	Channel string
	Logger  *slog.Logger
}

// NewIdentityEvents creates a Redis-backed identity event bus.
func NewIdentityEvents(opts IdentityEventsOptions) *IdentityEvents {
	if opts.Channel == "" {
		opts.Channel = DefaultIdentityChannel
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &IdentityEvents{
		client:  opts.Client,
		channel: opts.Channel,
		logger:  opts.Logger.With("component", "identity_events"),
	}
}

func (b *IdentityEvents) Publish(ctx context.Context, ev domainauth.IdentityEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal identity event: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel, data).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

// Subscribe starts a delivery goroutine for fn. The returned function closes the
// subscription and waits for the goroutine to exit.
func (b *IdentityEvents) Subscribe(fn func(domainauth.IdentityEvent)) func() {
	ctx, cancel := context.WithCancel(context.Background())
	ps := b.client.Subscribe(ctx, b.channel)

	done := make(chan struct{})
	go func() {
		defer close(done)
		b.deliver(ctx, ps.Channel(), fn)
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			if err := ps.Close(); err != nil {
				b.logger.Debug("close identity subscription", "error", err)
			}
			<-done
		})
	}
}

func (b *IdentityEvents) deliver(ctx context.Context, msgs <-chan *redis.Message, fn func(domainauth.IdentityEvent)) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			var ev domainauth.IdentityEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				b.logger.Warn("drop malformed identity event", "error", err)
				continue
			}
			if ctx.Err() != nil {
				return
			}
			fn(ev)
		}
	}
}
