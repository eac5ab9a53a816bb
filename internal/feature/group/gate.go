// Package group checks whether users belong to the channel or group that gates
// access to the bot.
package group

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/sirupsen/logrus"

	"tg_link_relay_bot/internal/domain"
	"tg_link_relay_bot/internal/logging"
)

// ErrStatusUnavailable is returned when the membership service cannot be
// reached or answers with something that carries no readable status.
var ErrStatusUnavailable = errors.New("membership status unavailable")

// ChatMemberGetter is the Bot API getChatMember call. *bot.Bot and the
// telegram client satisfy it.
type ChatMemberGetter interface {
	GetChatMember(ctx context.Context, params *bot.GetChatMemberParams) (*models.ChatMember, error)
}

// Gate queries getChatMember for the required chat. Every call is a fresh
// request; results are never cached.
type Gate struct {
	members ChatMemberGetter
	chat    domain.Recipient
	logger  *logrus.Entry
}

// NewGate constructs a Gate for the required chat.
func NewGate(members ChatMemberGetter, chat domain.Recipient, logger *logrus.Entry) *Gate {
	if logger == nil {
		logger = logging.Logger()
	}

	return &Gate{
		members: members,
		chat:    chat,
		logger:  logger,
	}
}

// IsMember reports whether userID may use the bot. It fails closed: any error
// or unrecognised answer denies access.
func (g *Gate) IsMember(ctx context.Context, userID int64) bool {
	status, err := g.Check(ctx, userID)
	if err != nil {
		logger := logging.Logger()
		if g != nil {
			logger = g.logger
		}
		logger.WithFields(logging.Fields{
			"event":   "membership_check_failed",
			"user_id": userID,
		}).WithError(err).Warn("membership check failed, denying access")
		return false
	}

	return status.Allows()
}

// Check queries the membership service once. Errors always come with
// domain.MembershipUnknown and wrap ErrStatusUnavailable.
func (g *Gate) Check(ctx context.Context, userID int64) (domain.MembershipStatus, error) {
	if g == nil || g.members == nil {
		return domain.MembershipUnknown, fmt.Errorf("%w: gate is not initialized", ErrStatusUnavailable)
	}
	if ctx == nil {
		return domain.MembershipUnknown, fmt.Errorf("%w: context is required", ErrStatusUnavailable)
	}
	if userID == 0 {
		return domain.MembershipUnknown, fmt.Errorf("%w: user id is required", ErrStatusUnavailable)
	}

	member, err := g.members.GetChatMember(ctx, &bot.GetChatMemberParams{
		ChatID: g.chat.ChatID(),
		UserID: userID,
	})
	if err != nil {
		return domain.MembershipUnknown, fmt.Errorf("%w: %v", ErrStatusUnavailable, err)
	}
	if member == nil || member.Type == "" {
		return domain.MembershipUnknown, fmt.Errorf("%w: response carries no status", ErrStatusUnavailable)
	}

	g.logger.WithFields(logging.Fields{
		"event":         "membership_checked",
		"user_id":       userID,
		"member_status": string(member.Type),
	}).Debug("membership status received")

	switch member.Type {
	case models.ChatMemberTypeOwner, models.ChatMemberTypeAdministrator, models.ChatMemberTypeMember:
		return domain.MembershipMember, nil
	default:
		return domain.MembershipNotMember, nil
	}
}
