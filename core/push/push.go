// Package push holds the in-memory subscription registry and the
// notification dispatcher that fans payloads out to it.
package push

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/pkg/errors"

	"github.com/shulehub/shule/core"
)

var (
	// ErrGone is returned by a Transport when the subscriber endpoint will
	// never accept further messages; the subscription is pruned.
	ErrGone = errors.New("subscription gone")

	// ErrNotConfigured is returned when no delivery key pair is set.
	ErrNotConfigured = errors.New("push delivery keys not configured")
)

type (
	// Keys is the opaque client key material a delivery needs.
	Keys struct {
		P256dh string `json:"p256dh"`
		Auth   string `json:"auth"`
	}

	// Subscription is one notification endpoint, unique by Endpoint.
	Subscription struct {
		Endpoint string `json:"endpoint" validate:"required,url"`
		Keys     Keys   `json:"keys"`
	}

	Notification struct {
		Title   string `json:"title"`
		Message string `json:"message"`
	}

	// Transport delivers one encrypted payload to one subscription.
	Transport interface {
		Send(ctx context.Context, sub Subscription, payload []byte) error
	}
)

// Registry is the process-lifetime set of subscriptions, keyed by endpoint.
// It holds no persistent backing store: a restart loses every subscriber.
// Safe for concurrent use.
type Registry struct {
	mu   sync.RWMutex
	subs map[string]Subscription
}

func NewRegistry() *Registry {
	return &Registry{subs: make(map[string]Subscription)}
}

// Add inserts the subscription unless one with the same endpoint already
// exists. Idempotent.
func (r *Registry) Add(sub Subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.subs[sub.Endpoint]; ok {
		return
	}
	r.subs[sub.Endpoint] = sub
}

func (r *Registry) Remove(endpoint string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.subs, endpoint)
}

// All returns a snapshot; iteration never holds the lock.
func (r *Registry) All() []Subscription {
	r.mu.RLock()
	defer r.mu.RUnlock()
	subs := make([]Subscription, 0, len(r.subs))
	for _, sub := range r.subs {
		subs = append(subs, sub)
	}
	return subs
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}

// Dispatcher owns the Registry exclusively and fans notifications out to
// every current subscription.
type Dispatcher struct {
	registry  *Registry
	transport Transport
	publicKey string
	logger    core.Logger
}

func NewDispatcher(registry *Registry, transport Transport, publicKey string, logger core.Logger) *Dispatcher {
	return &Dispatcher{
		registry:  registry,
		transport: transport,
		publicKey: publicKey,
		logger:    logger,
	}
}

func (d *Dispatcher) Subscribe(sub Subscription) {
	d.registry.Add(sub)
}

// PublicKey returns the service's asymmetric delivery key.
func (d *Dispatcher) PublicKey() (string, error) {
	if d.publicKey == "" {
		return "", ErrNotConfigured
	}
	return d.publicKey, nil
}

// Notify attempts delivery to every current subscription, each one
// independently and concurrently, and waits for all of them. A delivery
// reporting ErrGone prunes that subscription; any other failure is logged
// and the subscription kept. One attempt per subscriber, no retry queue.
// Notify never reports failure to its caller.
func (d *Dispatcher) Notify(ctx context.Context, n Notification) {
	payload, err := json.Marshal(n)
	if err != nil {
		d.logger.Error(fmt.Sprintf("push: marshalling notification: %v", err), err)
		return
	}

	var wg sync.WaitGroup
	for _, sub := range d.registry.All() {
		wg.Add(1)
		go func(sub Subscription) {
			defer wg.Done()
			err := d.transport.Send(ctx, sub, payload)
			switch {
			case err == nil:
			case errors.Is(err, ErrGone):
				d.registry.Remove(sub.Endpoint)
				d.logger.Info("push: pruned gone subscription " + sub.Endpoint)
			default:
				d.logger.Error(fmt.Sprintf("push: delivery to %s: %v", sub.Endpoint, err), err)
			}
		}(sub)
	}
	wg.Wait()
}

// Push dispatches without blocking the caller: the mutation that triggered
// a notification returns before, and independent of, any delivery outcome.
func (d *Dispatcher) Push(ctx context.Context, title, message string) {
	go d.Notify(context.WithoutCancel(ctx), Notification{Title: title, Message: message})
}
