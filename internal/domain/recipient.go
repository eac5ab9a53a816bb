package domain

import (
	"strconv"
	"strings"
)

// Recipient addresses a Telegram chat either by numeric id or by @username.
type Recipient struct {
	ID       int64
	Username string
}

// ChatRecipient addresses a chat by id.
func ChatRecipient(id int64) Recipient {
	return Recipient{ID: id}
}

// ParseRecipient accepts "@name", "name" or a numeric chat id.
func ParseRecipient(raw string) (Recipient, bool) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return Recipient{}, false
	}

	if id, err := strconv.ParseInt(value, 10, 64); err == nil {
		if id == 0 {
			return Recipient{}, false
		}
		return Recipient{ID: id}, true
	}

	name := strings.TrimPrefix(value, "@")
	if name == "" || strings.ContainsAny(name, " /@") {
		return Recipient{}, false
	}

	return Recipient{Username: name}, true
}

// IsZero reports whether the recipient is unset.
func (r Recipient) IsZero() bool {
	return r.ID == 0 && r.Username == ""
}

// ChatID returns the value expected by the Bot API chat_id parameter.
func (r Recipient) ChatID() any {
	if r.Username != "" {
		return "@" + r.Username
	}
	return r.ID
}

// String renders the recipient for logs and query strings.
func (r Recipient) String() string {
	if r.Username != "" {
		return "@" + r.Username
	}
	return strconv.FormatInt(r.ID, 10)
}
