// Package user registers users the first time they pass the membership gate.
package user

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"tg_link_relay_bot/internal/domain"
	"tg_link_relay_bot/internal/logging"
)

// Store is the registry abstraction the registrar writes to.
type Store interface {
	Record(user domain.User) (total int, created bool)
	Count() int
}

// Registrar records users in the registry and logs first sightings.
type Registrar struct {
	users  Store
	logger *logrus.Entry
}

// NewRegistrar constructs a Registrar for the provided store.
func NewRegistrar(users Store, logger *logrus.Entry) *Registrar {
	if logger == nil {
		logger = logging.Logger()
	}

	return &Registrar{
		users:  users,
		logger: logger,
	}
}

// EnsureUser records the user if it has not been seen before and returns the
// registry total after the call.
func (r *Registrar) EnsureUser(ctx context.Context, user domain.User) (int, bool, error) {
	if r == nil || r.users == nil {
		return 0, false, errors.New("user registrar is not initialized")
	}
	if ctx == nil {
		return 0, false, errors.New("context is required")
	}
	if user.ID == 0 {
		return 0, false, errors.New("user id is required")
	}

	total, created := r.users.Record(user)
	if created {
		r.logger.WithFields(logging.Fields{
			"event":       "user_registered",
			"user_id":     user.ID,
			"total_users": total,
		}).Info("registered new user")
		return total, true, nil
	}

	r.logger.WithFields(logging.Fields{
		"event":       "user_seen",
		"user_id":     user.ID,
		"total_users": total,
	}).Debug("user already registered")

	return total, false, nil
}

// Count returns the number of registered users.
func (r *Registrar) Count() int {
	if r == nil || r.users == nil {
		return 0
	}
	return r.users.Count()
}
