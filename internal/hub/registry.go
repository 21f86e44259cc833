package hub

import (
	"errors"
	"sort"
	"sync"

	"coboard/internal/endpoint"
)

// ErrNameTaken means another connection already holds (or is in the
// middle of claiming) the requested display name.
var ErrNameTaken = errors.New("hub: display name already taken")

// Participant is the host's bookkeeping for one admitted connection.
type Participant struct {
	Name string
	EP   *endpoint.Endpoint
}

// Registry maps display names to live participants. A name is first
// reserved during admission, which makes it unavailable to concurrent
// joiners without yet making the connection a relay target; it becomes
// a relay target only once activated, after its bootstrap completed.
type Registry struct {
	mu sync.RWMutex
	// nil value = reserved, non-nil = active relay target
	entries map[string]*Participant
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*Participant)}
}

// Reserve atomically claims a name. At most one connection can ever
// hold a given name, reserved or active.
func (r *Registry) Reserve(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.entries[name]; taken {
		return ErrNameTaken
	}
	r.entries[name] = nil
	return nil
}

// Activate turns a reserved name into a relay target.
func (r *Registry) Activate(p *Participant) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[p.Name] = p
}

// Remove drops a name entirely. Idempotent: the second call for the
// same name reports false and the caller skips the departure fan-out.
func (r *Registry) Remove(name string) (*Participant, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.entries[name]
	if !ok {
		return nil, false
	}
	delete(r.entries, name)
	return p, true
}

// Active returns a point-in-time copy of the relay targets, so fan-out
// never iterates the live map while admission or cleanup mutates it.
func (r *Registry) Active() []*Participant {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Participant, 0, len(r.entries))
	for _, p := range r.entries {
		if p != nil {
			out = append(out, p)
		}
	}
	return out
}

// ActiveNames returns the sorted names of all relay targets.
func (r *Registry) ActiveNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.entries))
	for name, p := range r.entries {
		if p != nil {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
