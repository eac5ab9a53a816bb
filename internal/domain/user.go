// Package domain defines shared domain constants and types.
package domain

import "strings"

// User represents a Telegram user observed by the bot.
type User struct {
	ID        int64  `json:"user_id"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// DisplayName returns the best human-readable name for the user, falling back
// to the @username and finally to an empty string.
func (u User) DisplayName() string {
	name := strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
	if name != "" {
		return name
	}
	if handle := strings.TrimSpace(u.Username); handle != "" {
		return "@" + handle
	}
	return ""
}

// Handle returns the @username form, or "(none)" when the user has no username.
func (u User) Handle() string {
	if handle := strings.TrimSpace(u.Username); handle != "" {
		return "@" + handle
	}
	return "(none)"
}
