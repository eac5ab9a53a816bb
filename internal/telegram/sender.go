package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"tg_link_relay_bot/internal/domain"
	"tg_link_relay_bot/internal/relay"
)

var errNotInitialized = errors.New("telegram client is not initialized")

// Send delivers msg to the recipient, as a photo when msg.PhotoURL is set.
func (c *Client) Send(ctx context.Context, to domain.Recipient, msg relay.Message) error {
	if c == nil || c.bot == nil {
		return errNotInitialized
	}
	if to.IsZero() {
		return errors.New("recipient is required")
	}

	if msg.PhotoURL != "" {
		_, err := c.bot.SendPhoto(ctx, &bot.SendPhotoParams{
			ChatID:      to.ChatID(),
			Photo:       &models.InputFileString{Data: msg.PhotoURL},
			Caption:     msg.Text,
			ParseMode:   models.ParseModeHTML,
			ReplyMarkup: keyboard(msg.Buttons),
		})
		if err != nil {
			return fmt.Errorf("send photo to %s: %w", to, c.redact(err))
		}
		return nil
	}

	_, err := c.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      to.ChatID(),
		Text:        msg.Text,
		ParseMode:   models.ParseModeHTML,
		ReplyMarkup: keyboard(msg.Buttons),
	})
	if err != nil {
		return fmt.Errorf("send message to %s: %w", to, c.redact(err))
	}
	return nil
}

// Edit replaces the text and keyboard of an earlier message.
func (c *Client) Edit(ctx context.Context, chat domain.Recipient, messageID int, msg relay.Message) error {
	if c == nil || c.bot == nil {
		return errNotInitialized
	}

	_, err := c.bot.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:      chat.ChatID(),
		MessageID:   messageID,
		Text:        msg.Text,
		ParseMode:   models.ParseModeHTML,
		ReplyMarkup: keyboard(msg.Buttons),
	})
	if err != nil {
		return fmt.Errorf("edit message %d in %s: %w", messageID, chat, c.redact(err))
	}
	return nil
}

// Answer acknowledges a callback query, optionally with a toast or alert.
func (c *Client) Answer(ctx context.Context, queryID string, text string, alert bool) error {
	if c == nil || c.bot == nil {
		return errNotInitialized
	}
	if queryID == "" {
		return nil
	}

	_, err := c.bot.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: queryID,
		Text:            text,
		ShowAlert:       alert,
	})
	if err != nil {
		return fmt.Errorf("answer callback query: %w", c.redact(err))
	}
	return nil
}

// GetChatMember looks up a user's membership in a chat.
func (c *Client) GetChatMember(ctx context.Context, params *bot.GetChatMemberParams) (*models.ChatMember, error) {
	if c == nil || c.bot == nil {
		return nil, errNotInitialized
	}

	member, err := c.bot.GetChatMember(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("get chat member: %w", c.redact(err))
	}
	return member, nil
}

// redactedError masks the bot token, which transport errors carry inside the
// request URL.
type redactedError struct {
	err   error
	token string
}

func (e *redactedError) Error() string {
	return strings.ReplaceAll(e.err.Error(), e.token, "<redacted>")
}

func (e *redactedError) Unwrap() error {
	return e.err
}

func (c *Client) redact(err error) error {
	if err == nil || c.token == "" {
		return err
	}
	return &redactedError{err: err, token: c.token}
}

// keyboard returns nil when there are no buttons so the reply_markup field is
// omitted entirely.
func keyboard(rows [][]relay.Button) models.ReplyMarkup {
	if len(rows) == 0 {
		return nil
	}

	markup := &models.InlineKeyboardMarkup{
		InlineKeyboard: make([][]models.InlineKeyboardButton, 0, len(rows)),
	}
	for _, row := range rows {
		buttons := make([]models.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, models.InlineKeyboardButton{
				Text:         b.Label,
				URL:          b.URL,
				CallbackData: b.Action,
			})
		}
		markup.InlineKeyboard = append(markup.InlineKeyboard, buttons)
	}

	return markup
}
