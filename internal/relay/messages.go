package relay

import (
	"fmt"
	"strconv"
	"unicode/utf16"

	"golang.org/x/net/html"

	"tg_link_relay_bot/internal/domain"
)

const (
	joinPromptText       = "⚠️ You must join our channel to use this bot."
	refreshDeniedText    = "⚠️ You are not a member of the channel. Please join to use this bot."
	refreshConfirmedText = "✅ You are a member of the channel! Now you can use the bot."
	welcomeText          = "👋 Welcome! Send me a TeraBox link, and I'll process it for you."
	invalidLinkText      = "⚠️ Invalid TeraBox link. Please send a valid link."
	resolveStatusText    = "❌ API Error:\nStatus Code: %d"
	resolveFailedText    = "⚠️ Error processing the link. Please try again later."
	countDeniedText      = "⛔ Only the bot operator can view the user count."

	joinButtonLabel      = "💀 Join Channel"
	refreshButtonLabel   = "🔄 Refresh Membership"
	watchButtonLabel     = "📺 Watch Now"
	developerButtonLabel = "👨🏻‍💻 Developer"
	countButtonLabel     = "📊 User Count"
)

// Photo captions are capped at 1024 UTF-16 units after entity parsing. The
// fixed parts of the archive caption stay well below the remaining budget.
const (
	maxRawTextUnits = 512
	maxTitleUnits   = 256
)

// escape makes user text and scraped titles safe for HTML parse mode without
// dropping any of it.
func escape(s string) string {
	return html.EscapeString(s)
}

// truncate shortens s to at most limit UTF-16 code units, marking the cut
// with an ellipsis.
func truncate(s string, limit int) string {
	if len(utf16.Encode([]rune(s))) <= limit {
		return s
	}

	units := 0
	for i, r := range s {
		n := utf16.RuneLen(r)
		if units+n > limit-1 {
			return s[:i] + "…"
		}
		units += n
	}
	return s
}

func (p *Pipeline) joinPrompt(text string) Message {
	return Message{
		Text: text,
		Buttons: [][]Button{
			{{Label: joinButtonLabel, URL: p.settings.JoinURL}},
			{{Label: refreshButtonLabel, Action: ActionCheckMembership}},
		},
	}
}

func (p *Pipeline) resourceReply(res domain.Resource) Message {
	buttons := [][]Button{
		{{Label: watchButtonLabel, URL: res.CanonicalURL}},
	}
	if p.settings.DeveloperURL != "" {
		buttons = append(buttons, []Button{{Label: developerButtonLabel, URL: p.settings.DeveloperURL}})
	}

	msg := Message{
		Text:    fmt.Sprintf("💬 <b>Title:</b> %s", escape(truncate(res.Title, maxTitleUnits))),
		Buttons: buttons,
	}
	if res.HasThumbnail() {
		msg.PhotoURL = res.ThumbnailURL
	}

	return msg
}

func (p *Pipeline) operatorNotice(user domain.User, total int) Message {
	msg := Message{
		Text: fmt.Sprintf(
			"👤 <b>User Details</b>\n"+
				"🆔 <b>User ID:</b> <code>%d</code>\n"+
				"👤 <b>Name:</b> %s\n"+
				"👤 <b>Username:</b> %s\n\n"+
				"👥 <b>Total Users:</b> %d",
			user.ID, escape(user.DisplayName()), escape(user.Handle()), total,
		),
	}

	if p.settings.OperatorCountButton {
		msg.Buttons = [][]Button{{{Label: countButtonLabel, Action: ActionUserCount}}}
	}

	return msg
}

func archiveNotice(user domain.User, rawText string, res domain.Resource) Message {
	msg := Message{
		Text: fmt.Sprintf(
			"📥 <b>Video Request Details</b>\n"+
				"🆔 <b>User ID:</b> <code>%d</code>\n"+
				"👤 <b>Username:</b> %s\n"+
				"🔗 <b>Original URL:</b> %s\n"+
				"💬 <b>Title:</b> %s",
			user.ID, escape(user.Handle()), escape(truncate(rawText, maxRawTextUnits)), escape(truncate(res.Title, maxTitleUnits)),
		),
		Buttons: [][]Button{{{Label: watchButtonLabel, URL: res.CanonicalURL}}},
	}
	if res.HasThumbnail() {
		msg.PhotoURL = res.ThumbnailURL
	}

	return msg
}

func userCountMessage(count int) Message {
	return Message{Text: "👥 <b>Total Users:</b> " + strconv.Itoa(count)}
}
