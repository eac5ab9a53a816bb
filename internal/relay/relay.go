// Package relay implements the request pipeline: membership gating, link
// validation, metadata resolution and the reply/notification fan-out.
package relay

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"tg_link_relay_bot/internal/domain"
	"tg_link_relay_bot/internal/logging"
	"tg_link_relay_bot/internal/metrics"
)

// Callback data carried by inline buttons.
const (
	ActionCheckMembership = "check_membership"
	ActionUserCount       = "user_count"
)

// MessageEvent is an inbound text message.
type MessageEvent struct {
	From      domain.User
	ChatID    int64
	MessageID int
	Text      string
	IsCommand bool
}

// ButtonEvent is an inline-button press.
type ButtonEvent struct {
	From      domain.User
	ChatID    int64
	MessageID int
	QueryID   string
	Action    string
}

// Button is an inline action. Exactly one of URL or Action is set.
type Button struct {
	Label  string
	URL    string
	Action string
}

// Message is an outbound HTML message. When PhotoURL is set the message is
// sent as a photo with Text as its caption.
type Message struct {
	Text     string
	PhotoURL string
	Buttons  [][]Button
}

// Messenger delivers outbound messages to Telegram.
type Messenger interface {
	Send(ctx context.Context, to domain.Recipient, msg Message) error
	Edit(ctx context.Context, chat domain.Recipient, messageID int, msg Message) error
	Answer(ctx context.Context, queryID string, text string, alert bool) error
}

// Gate decides whether a user may proceed.
type Gate interface {
	IsMember(ctx context.Context, userID int64) bool
}

// Resolver turns a resource code into display metadata.
type Resolver interface {
	Resolve(ctx context.Context, code string) (domain.Resource, error)
}

// Registrar records users who passed the gate.
type Registrar interface {
	EnsureUser(ctx context.Context, user domain.User) (total int, created bool, err error)
	Count() int
}

// OperatorGuard identifies the operator and restricts operator-only actions.
type OperatorGuard interface {
	OwnerID() int64
	Allows(userID int64, action string) bool
}

// Settings carries the operator-facing configuration of the pipeline.
type Settings struct {
	ArchiveChannel      domain.Recipient
	JoinURL             string
	DeveloperURL        string
	OperatorCountButton bool
}

// Deps are the collaborators of a Pipeline. Metrics and Logger are optional.
type Deps struct {
	Gate      Gate
	Resolver  Resolver
	Registrar Registrar
	Guard     OperatorGuard
	Messenger Messenger
	Metrics   metrics.Recorder
	Logger    *logrus.Entry
}

// Pipeline handles one inbound event at a time per call; calls may run
// concurrently. It holds no mutable state of its own.
type Pipeline struct {
	settings  Settings
	gate      Gate
	resolver  Resolver
	registrar Registrar
	guard     OperatorGuard
	messenger Messenger
	metrics   metrics.Recorder
	logger    *logrus.Entry
	newID     func() string
}

// New constructs a Pipeline.
func New(settings Settings, deps Deps) (*Pipeline, error) {
	switch {
	case deps.Gate == nil:
		return nil, errors.New("relay: gate is required")
	case deps.Resolver == nil:
		return nil, errors.New("relay: resolver is required")
	case deps.Registrar == nil:
		return nil, errors.New("relay: registrar is required")
	case deps.Guard == nil:
		return nil, errors.New("relay: operator guard is required")
	case deps.Messenger == nil:
		return nil, errors.New("relay: messenger is required")
	case deps.Guard.OwnerID() == 0:
		return nil, errors.New("relay: operator id is required")
	case settings.JoinURL == "":
		return nil, errors.New("relay: join url is required")
	}

	recorder := deps.Metrics
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.Logger()
	}

	return &Pipeline{
		settings:  settings,
		gate:      deps.Gate,
		resolver:  deps.Resolver,
		registrar: deps.Registrar,
		guard:     deps.Guard,
		messenger: deps.Messenger,
		metrics:   recorder,
		logger:    logger,
		newID:     uuid.NewString,
	}, nil
}
