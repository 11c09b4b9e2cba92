package wsserver

import (
	"sync"

	"github.com/wsgate-dev/wsgate/pkg/wsengine"
)

// clientRegistry is the set of live sessions. A session is present exactly
// while its connection worker is between the insert and erase steps.
//
// All operations hold the registry mutex only for their own bookkeeping;
// no user code or session I/O ever runs under the lock.
type clientRegistry struct {
	mu      sync.Mutex
	clients map[*wsengine.Session]struct{}
}

func newClientRegistry() *clientRegistry {
	return &clientRegistry{clients: make(map[*wsengine.Session]struct{})}
}

// insert adds a session to the registry. Idempotent.
func (r *clientRegistry) insert(s *wsengine.Session) {
	r.mu.Lock()
	r.clients[s] = struct{}{}
	r.mu.Unlock()
}

// erase removes a session and returns the number of removed entries.
// Anything other than 1 signals a bookkeeping bug in the caller.
func (r *clientRegistry) erase(s *wsengine.Session) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.clients[s]; !ok {
		return 0
	}
	delete(r.clients, s)
	return 1
}

// snapshot returns an independent copy of the current set, so callers can
// iterate (and perform session I/O) without holding the registry mutex.
func (r *clientRegistry) snapshot() []*wsengine.Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*wsengine.Session, 0, len(r.clients))
	for s := range r.clients {
		out = append(out, s)
	}
	return out
}

// size returns the current number of live sessions.
func (r *clientRegistry) size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}
