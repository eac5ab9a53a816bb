// Package owner restricts operator-only actions to the configured bot owner.
package owner

import (
	"github.com/sirupsen/logrus"

	"tg_link_relay_bot/internal/logging"
)

// Guard decides whether a user may trigger operator-only actions.
type Guard struct {
	ownerID int64
	logger  *logrus.Entry
}

// NewGuard constructs a Guard for the configured owner id.
func NewGuard(ownerID int64, logger *logrus.Entry) *Guard {
	if logger == nil {
		logger = logging.Logger()
	}

	return &Guard{
		ownerID: ownerID,
		logger:  logger,
	}
}

// OwnerID returns the configured operator id.
func (g *Guard) OwnerID() int64 {
	if g == nil {
		return 0
	}
	return g.ownerID
}

// Allows reports whether userID is the operator. Denials are logged with the
// attempted action.
func (g *Guard) Allows(userID int64, action string) bool {
	if g == nil || g.ownerID == 0 || userID == 0 {
		return false
	}

	if userID == g.ownerID {
		return true
	}

	g.logger.WithFields(logging.Fields{
		"event":   "owner_action_denied",
		"user_id": userID,
		"action":  action,
	}).Warn("operator-only action attempted by another user")

	return false
}
