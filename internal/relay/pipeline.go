package relay

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"tg_link_relay_bot/internal/domain"
	"tg_link_relay_bot/internal/feature/link"
	"tg_link_relay_bot/internal/logging"
)

const startCommand = "start"

// HandleMessage processes a text message: /start or a link submission.
func (p *Pipeline) HandleMessage(ctx context.Context, ev MessageEvent) Report {
	report := Report{RequestID: p.newID()}
	logger := p.eventLogger(report.RequestID, ev.From.ID, ev.ChatID)

	if ev.IsCommand {
		if commandName(ev.Text) != startCommand {
			report.Outcome = OutcomeIgnored
			logger.WithField("event", "command_ignored").Debug("ignoring unsupported command")
			return report
		}
		return p.finish(logger, p.handleStart(ctx, logger, ev, report))
	}

	return p.finish(logger, p.handleLink(ctx, logger, ev, report))
}

// HandleButton processes an inline-button press.
func (p *Pipeline) HandleButton(ctx context.Context, ev ButtonEvent) Report {
	report := Report{RequestID: p.newID()}
	logger := p.eventLogger(report.RequestID, ev.From.ID, ev.ChatID)

	switch ev.Action {
	case ActionCheckMembership:
		return p.finish(logger, p.handleRefresh(ctx, ev, report))
	case ActionUserCount:
		return p.finish(logger, p.handleUserCount(ctx, ev, report))
	default:
		report.add(KindAnswer, domain.ChatRecipient(ev.ChatID), p.messenger.Answer(ctx, ev.QueryID, "", false))
		report.Outcome = OutcomeIgnored
		logger.WithFields(logging.Fields{
			"event":  "button_ignored",
			"action": ev.Action,
		}).Debug("ignoring unknown button action")
		return p.finish(logger, report)
	}
}

func (p *Pipeline) handleStart(ctx context.Context, logger *logrus.Entry, ev MessageEvent, report Report) Report {
	chat := domain.ChatRecipient(ev.ChatID)

	if !p.checkGate(ctx, ev.From.ID) {
		report.Outcome = OutcomeJoinPrompt
		report.add(KindReply, chat, p.messenger.Send(ctx, chat, p.joinPrompt(joinPromptText)))
		return report
	}

	total, _, err := p.registrar.EnsureUser(ctx, ev.From)
	if err != nil {
		logger.WithField("event", "user_register_failed").WithError(err).Error("failed to record user")
		total = p.registrar.Count()
	}
	p.metrics.SetRegisteredUsers(total)

	report.Outcome = OutcomeWelcome
	report.add(KindReply, chat, p.messenger.Send(ctx, chat, Message{Text: welcomeText}))

	operator := domain.ChatRecipient(p.guard.OwnerID())
	report.add(KindOperator, operator, p.messenger.Send(ctx, operator, p.operatorNotice(ev.From, total)))

	return report
}

func (p *Pipeline) handleLink(ctx context.Context, logger *logrus.Entry, ev MessageEvent, report Report) Report {
	chat := domain.ChatRecipient(ev.ChatID)

	if !p.checkGate(ctx, ev.From.ID) {
		report.Outcome = OutcomeJoinPrompt
		report.add(KindReply, chat, p.messenger.Send(ctx, chat, p.joinPrompt(joinPromptText)))
		return report
	}

	rawText := strings.TrimSpace(ev.Text)
	code, ok := link.ExtractCode(rawText)
	if !ok {
		p.metrics.RecordResolve("no_code")
		report.Outcome = OutcomeInvalidLink
		report.add(KindReply, chat, p.messenger.Send(ctx, chat, Message{Text: invalidLinkText}))
		return report
	}

	res, err := p.resolver.Resolve(ctx, code)
	if err != nil {
		var resolveErr *link.ResolveError
		if errors.As(err, &resolveErr) {
			p.metrics.RecordResolve("upstream_status")
			logger.WithFields(logging.Fields{
				"event":       "resolve_status",
				"code":        code,
				"http_status": resolveErr.StatusCode,
			}).Warn("viewer page rejected the code")
			report.Outcome = OutcomeUpstreamStatus
			report.add(KindReply, chat, p.messenger.Send(ctx, chat, Message{Text: fmt.Sprintf(resolveStatusText, resolveErr.StatusCode)}))
			return report
		}

		p.metrics.RecordResolve("error")
		logger.WithFields(logging.Fields{
			"event": "resolve_failed",
			"code":  code,
		}).WithError(err).Error("failed to resolve link")
		report.Outcome = OutcomeResolveFailed
		report.add(KindReply, chat, p.messenger.Send(ctx, chat, Message{Text: resolveFailedText}))
		return report
	}

	p.metrics.RecordResolve("ok")
	report.Outcome = OutcomeResolved

	// The reply and the archive copy are independent; a failed reply does not
	// cancel the archive copy and vice versa.
	report.add(KindReply, chat, p.messenger.Send(ctx, chat, p.resourceReply(res)))

	if archive := p.settings.ArchiveChannel; !archive.IsZero() {
		report.add(KindArchive, archive, p.messenger.Send(ctx, archive, archiveNotice(ev.From, rawText, res)))
	}

	return report
}

func (p *Pipeline) handleRefresh(ctx context.Context, ev ButtonEvent, report Report) Report {
	chat := domain.ChatRecipient(ev.ChatID)
	report.add(KindAnswer, chat, p.messenger.Answer(ctx, ev.QueryID, "", false))

	msg := p.joinPrompt(refreshDeniedText)
	report.Outcome = OutcomeMembershipDenied
	if p.checkGate(ctx, ev.From.ID) {
		msg = Message{Text: refreshConfirmedText}
		report.Outcome = OutcomeMembershipConfirmed
	}

	if ev.MessageID == 0 {
		report.add(KindReply, chat, p.messenger.Send(ctx, chat, msg))
		return report
	}

	report.add(KindEdit, chat, p.messenger.Edit(ctx, chat, ev.MessageID, msg))
	return report
}

func (p *Pipeline) handleUserCount(ctx context.Context, ev ButtonEvent, report Report) Report {
	chat := domain.ChatRecipient(ev.ChatID)

	if !p.guard.Allows(ev.From.ID, ActionUserCount) {
		report.Outcome = OutcomeUserCountDenied
		report.add(KindAnswer, chat, p.messenger.Answer(ctx, ev.QueryID, countDeniedText, true))
		return report
	}

	report.Outcome = OutcomeUserCount
	report.add(KindAnswer, chat, p.messenger.Answer(ctx, ev.QueryID, "", false))
	report.add(KindReply, chat, p.messenger.Send(ctx, chat, userCountMessage(p.registrar.Count())))
	return report
}

func (p *Pipeline) checkGate(ctx context.Context, userID int64) bool {
	if p.gate.IsMember(ctx, userID) {
		p.metrics.RecordGateCheck("member")
		return true
	}
	p.metrics.RecordGateCheck("not_member")
	return false
}

func (p *Pipeline) eventLogger(requestID string, userID, chatID int64) *logrus.Entry {
	return logging.Enrich(p.logger, logging.Context{
		RequestID: requestID,
		UserID:    userID,
		ChatID:    chatID,
	})
}

// commandName returns the bare command of a "/cmd@bot args" message.
func commandName(text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return ""
	}

	name := strings.TrimPrefix(fields[0], "/")
	if at := strings.IndexByte(name, '@'); at >= 0 {
		name = name[:at]
	}

	return strings.ToLower(name)
}
