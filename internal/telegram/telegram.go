// Package telegram hosts the Telegram client, update routing, and the outbound
// sender used by the relay pipeline.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/sirupsen/logrus"

	"tg_link_relay_bot/internal/config"
	"tg_link_relay_bot/internal/domain"
	"tg_link_relay_bot/internal/logging"
	"tg_link_relay_bot/internal/relay"
)

type botAPI interface {
	Start(ctx context.Context)
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	SendPhoto(ctx context.Context, params *bot.SendPhotoParams) (*models.Message, error)
	EditMessageText(ctx context.Context, params *bot.EditMessageTextParams) (*models.Message, error)
	AnswerCallbackQuery(ctx context.Context, params *bot.AnswerCallbackQueryParams) (bool, error)
	GetChatMember(ctx context.Context, params *bot.GetChatMemberParams) (*models.ChatMember, error)
}

// Dispatcher receives the inbound events decoded from Telegram updates.
type Dispatcher interface {
	HandleMessage(ctx context.Context, ev relay.MessageEvent) relay.Report
	HandleButton(ctx context.Context, ev relay.ButtonEvent) relay.Report
}

var (
	defaultAllowedUpdates = bot.AllowedUpdates{
		"message",
		"callback_query",
	}

	createBot = func(token string, options ...bot.Option) (botAPI, error) {
		return bot.New(token, options...)
	}
)

// Client wraps the Telegram bot instance and logging dependencies.
type Client struct {
	bot        botAPI
	token      string
	dispatcher Dispatcher
	logger     *logrus.Entry
}

// NewClient initializes the Telegram bot with long polling and the update
// router. Route must be called before Start.
func NewClient(cfg config.Config, logger *logrus.Entry) (*Client, error) {
	if strings.TrimSpace(cfg.TelegramToken) == "" {
		return nil, errors.New("telegram token is required")
	}
	if logger == nil {
		logger = logging.Logger()
	}

	client := &Client{token: cfg.TelegramToken, logger: logger}

	options := []bot.Option{
		bot.WithAllowedUpdates(defaultAllowedUpdates),
		bot.WithDefaultHandler(client.handleUpdate),
		bot.WithErrorsHandler(errorHandler(logger)),
	}
	if cfg.TelegramAPIURL != "" {
		options = append(options, bot.WithServerURL(cfg.TelegramAPIURL))
	}

	tgBot, err := createBot(cfg.TelegramToken, options...)
	if err != nil {
		return nil, fmt.Errorf("init telegram bot client: %w", err)
	}
	client.bot = tgBot

	return client, nil
}

// Route attaches the dispatcher that receives decoded events.
func (c *Client) Route(d Dispatcher) {
	c.dispatcher = d
}

// Start begins receiving updates via long polling until the context is canceled.
func (c *Client) Start(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}

	c.logger.WithFields(logging.Fields{
		"event":           "telegram_listen",
		"allowed_updates": defaultAllowedUpdates,
	}).Info("starting telegram long polling")

	c.bot.Start(ctx)

	c.logger.WithField("event", "telegram_stopped").Info("telegram polling stopped")
}

type updateMeta struct {
	userID     int64
	chatID     int64
	text       string
	updateType string
}

func (c *Client) handleUpdate(ctx context.Context, _ *bot.Bot, update *models.Update) {
	if update == nil {
		return
	}

	meta := extractUpdateMeta(update)

	fields := logging.Fields{
		"event":       "telegram_update",
		"update_type": meta.updateType,
	}
	if meta.userID != 0 {
		fields["user_id"] = meta.userID
	}
	if meta.chatID != 0 {
		fields["chat_id"] = meta.chatID
	}
	logger := c.logger.WithFields(fields)
	logger.Debug("telegram update received")

	if c.dispatcher == nil {
		logger.Warn("no dispatcher attached, dropping update")
		return
	}

	switch {
	case update.Message != nil:
		ev, ok := messageEvent(update.Message)
		if !ok {
			logger.Debug("skipping message without sender or text")
			return
		}
		c.dispatcher.HandleMessage(ctx, ev)
	case update.CallbackQuery != nil:
		c.dispatcher.HandleButton(ctx, buttonEvent(update.CallbackQuery))
	}
}

func extractUpdateMeta(update *models.Update) updateMeta {
	switch {
	case update.Message != nil:
		return updateMeta{
			userID:     userID(update.Message.From),
			chatID:     chatID(&update.Message.Chat),
			text:       strings.TrimSpace(update.Message.Text),
			updateType: "message",
		}
	case update.CallbackQuery != nil:
		return updateMeta{
			userID:     userID(&update.CallbackQuery.From),
			chatID:     messageChatID(update.CallbackQuery.Message),
			text:       strings.TrimSpace(update.CallbackQuery.Data),
			updateType: "callback_query",
		}
	default:
		return updateMeta{updateType: "unknown"}
	}
}

func messageEvent(msg *models.Message) (relay.MessageEvent, bool) {
	text := strings.TrimSpace(msg.Text)
	if msg.From == nil || text == "" {
		return relay.MessageEvent{}, false
	}

	return relay.MessageEvent{
		From:      toUser(msg.From),
		ChatID:    msg.Chat.ID,
		MessageID: msg.ID,
		Text:      msg.Text,
		IsCommand: strings.HasPrefix(text, "/"),
	}, true
}

func buttonEvent(query *models.CallbackQuery) relay.ButtonEvent {
	from := toUser(&query.From)
	ev := relay.ButtonEvent{
		From:      from,
		ChatID:    messageChatID(query.Message),
		MessageID: messageID(query.Message),
		QueryID:   query.ID,
		Action:    strings.TrimSpace(query.Data),
	}
	if ev.ChatID == 0 {
		ev.ChatID = from.ID
	}
	return ev
}

func toUser(user *models.User) domain.User {
	if user == nil {
		return domain.User{}
	}

	return domain.User{
		ID:        user.ID,
		Username:  user.Username,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	}
}

func errorHandler(logger *logrus.Entry) bot.ErrorsHandler {
	if logger == nil {
		logger = logging.Logger()
	}

	return func(err error) {
		if err == nil {
			return
		}

		logger.WithField("event", "telegram_error").WithError(err).Error("telegram polling error")
	}
}

func userID(user *models.User) int64 {
	if user == nil {
		return 0
	}

	return user.ID
}

func chatID(chat *models.Chat) int64 {
	if chat == nil {
		return 0
	}

	return chat.ID
}

func messageChatID(msg models.MaybeInaccessibleMessage) int64 {
	switch msg.Type {
	case models.MaybeInaccessibleMessageTypeMessage:
		if msg.Message == nil {
			return 0
		}
		return chatID(&msg.Message.Chat)
	case models.MaybeInaccessibleMessageTypeInaccessibleMessage:
		if msg.InaccessibleMessage == nil {
			return 0
		}
		return chatID(&msg.InaccessibleMessage.Chat)
	default:
		return 0
	}
}

// messageID returns 0 for inaccessible messages, which cannot be edited.
func messageID(msg models.MaybeInaccessibleMessage) int {
	if msg.Type == models.MaybeInaccessibleMessageTypeMessage && msg.Message != nil {
		return msg.Message.ID
	}
	return 0
}
