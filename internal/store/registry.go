// Package store holds the process-wide, in-memory user registry.
package store

import (
	"sync"

	"tg_link_relay_bot/internal/domain"
)

// Registry records users who have passed the membership gate, in first-seen
// order. It is volatile: contents are lost when the process exits. All methods
// are safe for concurrent use.
type Registry struct {
	mu    sync.Mutex
	users []domain.User
	index map[int64]int
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{index: make(map[int64]int)}
}

// Record appends user unless a user with the same id is already present and
// returns the running total. created is false for known ids; their first-seen
// record is kept unchanged.
func (r *Registry) Record(user domain.User) (total int, created bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.index == nil {
		r.index = make(map[int64]int)
	}

	if _, ok := r.index[user.ID]; ok {
		return len(r.users), false
	}

	r.index[user.ID] = len(r.users)
	r.users = append(r.users, user)

	return len(r.users), true
}

// Count returns the number of distinct users recorded so far.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.users)
}
