package connector

import "sync"

// subKey identifies one streaming subscription; symbol is empty for
// account-wide stream kinds.
type subKey struct {
	kind   string
	symbol string
}

// subscriptionRegistry remembers what the streaming socket is subscribed to
// so the executor can replay it after a reconnect.
type subscriptionRegistry struct {
	mu   sync.Mutex
	subs map[subKey]struct{}
}

func newSubscriptionRegistry() *subscriptionRegistry {
	return &subscriptionRegistry{subs: make(map[subKey]struct{})}
}

func (r *subscriptionRegistry) add(kind, symbol string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs[subKey{kind: kind, symbol: symbol}] = struct{}{}
}

func (r *subscriptionRegistry) remove(kind, symbol string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.subs, subKey{kind: kind, symbol: symbol})
}

func (r *subscriptionRegistry) list() []subKey {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]subKey, 0, len(r.subs))
	for k := range r.subs {
		out = append(out, k)
	}
	return out
}
