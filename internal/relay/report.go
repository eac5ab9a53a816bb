package relay

import (
	"github.com/sirupsen/logrus"

	"tg_link_relay_bot/internal/domain"
	"tg_link_relay_bot/internal/logging"
)

// ActionKind names an outbound action produced by the pipeline.
type ActionKind string

const (
	KindReply    ActionKind = "reply"
	KindEdit     ActionKind = "edit"
	KindAnswer   ActionKind = "answer"
	KindOperator ActionKind = "operator"
	KindArchive  ActionKind = "archive"
)

// Outcome is the terminal state reached while handling one event.
type Outcome string

const (
	OutcomeIgnored             Outcome = "ignored"
	OutcomeJoinPrompt          Outcome = "join_prompt"
	OutcomeWelcome             Outcome = "welcome"
	OutcomeInvalidLink         Outcome = "invalid_link"
	OutcomeUpstreamStatus      Outcome = "upstream_status"
	OutcomeResolveFailed       Outcome = "resolve_failed"
	OutcomeResolved            Outcome = "resolved"
	OutcomeMembershipConfirmed Outcome = "membership_confirmed"
	OutcomeMembershipDenied    Outcome = "membership_denied"
	OutcomeUserCount           Outcome = "user_count"
	OutcomeUserCountDenied     Outcome = "user_count_denied"
)

// Result is the outcome of one outbound action. Err is nil on success.
type Result struct {
	Kind        ActionKind
	Destination domain.Recipient
	Err         error
}

// Report collects every outbound result of one handled event.
type Report struct {
	RequestID string
	Outcome   Outcome
	Results   []Result
}

// Failed returns the results that carry an error.
func (r Report) Failed() []Result {
	var failed []Result
	for _, res := range r.Results {
		if res.Err != nil {
			failed = append(failed, res)
		}
	}
	return failed
}

// Count returns how many actions of kind were attempted.
func (r Report) Count(kind ActionKind) int {
	n := 0
	for _, res := range r.Results {
		if res.Kind == kind {
			n++
		}
	}
	return n
}

func (r *Report) add(kind ActionKind, to domain.Recipient, err error) {
	r.Results = append(r.Results, Result{Kind: kind, Destination: to, Err: err})
}

// finish logs every failed action individually and a summary line.
func (p *Pipeline) finish(logger *logrus.Entry, report Report) Report {
	for _, res := range report.Results {
		p.metrics.RecordOutbound(string(res.Kind), res.Err == nil)
		if res.Err == nil {
			continue
		}
		logger.WithFields(logging.Fields{
			"event":       "outbound_failed",
			"kind":        string(res.Kind),
			"destination": res.Destination.String(),
		}).WithError(res.Err).Error("outbound action failed")
	}

	logger.WithFields(logging.Fields{
		"event":   "request_handled",
		"outcome": string(report.Outcome),
		"actions": len(report.Results),
		"failed":  len(report.Failed()),
	}).Info("request handled")

	return report
}
