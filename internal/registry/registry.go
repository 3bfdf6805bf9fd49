package registry

import (
	"log"
	"sync"
)

// Sink is the open transport handle used to push events to one
// subscriber. Send must be safe to call from the broadcast loop while
// the owning connection handler is blocked elsewhere.
type Sink interface {
	Send(data []byte) error
	Close() error
}

type subscriber struct {
	sink       Sink
	shopDomain string
}

// Registry is the process-wide mapping from connection id to live
// subscriber. It is mutated concurrently by connection handlers and the
// notifier's broadcast loop.
type Registry struct {
	mu   sync.RWMutex
	subs map[string]subscriber
}

func New() *Registry {
	return &Registry{subs: make(map[string]subscriber)}
}

// Add registers a subscriber. Re-adding an existing connection id
// replaces the previous registration.
func (r *Registry) Add(connectionID string, sink Sink, shopDomain string) {
	r.mu.Lock()
	r.subs[connectionID] = subscriber{sink: sink, shopDomain: shopDomain}
	total := len(r.subs)
	r.mu.Unlock()

	log.Printf("Subscriber added: %s (shop: %s), total: %d", connectionID, shopDomain, total)
}

// Remove unregisters a subscriber. Removing an absent id is a no-op.
func (r *Registry) Remove(connectionID string) {
	r.mu.Lock()
	_, existed := r.subs[connectionID]
	delete(r.subs, connectionID)
	total := len(r.subs)
	r.mu.Unlock()

	if existed {
		log.Printf("Subscriber removed: %s, total: %d", connectionID, total)
	}
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}

// Broadcast delivers payload to every subscriber registered for exactly
// shopDomain. A failed delivery removes that subscriber and does not
// affect the rest. Returns the number of successful deliveries.
func (r *Registry) Broadcast(payload []byte, shopDomain string) int {
	type target struct {
		id   string
		sink Sink
	}

	r.mu.RLock()
	targets := make([]target, 0, len(r.subs))
	for id, sub := range r.subs {
		if sub.shopDomain == shopDomain {
			targets = append(targets, target{id: id, sink: sub.sink})
		}
	}
	r.mu.RUnlock()

	sent := 0
	for _, t := range targets {
		if err := t.sink.Send(payload); err != nil {
			log.Printf("Error sending to subscriber %s: %v", t.id, err)
			r.Remove(t.id)
			t.sink.Close()
			continue
		}
		sent++
	}

	log.Printf("Broadcast sent to %d subscribers for shop: %s", sent, shopDomain)
	return sent
}

// Drain closes and removes every subscriber. Used at shutdown.
func (r *Registry) Drain() {
	r.mu.Lock()
	subs := r.subs
	r.subs = make(map[string]subscriber)
	r.mu.Unlock()

	for id, sub := range subs {
		if err := sub.sink.Close(); err != nil {
			log.Printf("Error closing subscriber %s: %v", id, err)
		}
	}
}
