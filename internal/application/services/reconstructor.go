package services

import (
	"context"
	"log"
	"strings"
	"time"

	slackapi "github.com/slack-go/slack"

	"github.com/settlebot/backend/internal/domain/flow"
	slackgw "github.com/settlebot/backend/internal/infrastructure/slack"
)

const threadFetchLimit = 100

// Reconstructor recovers the state of in-flight approval chains by
// re-reading channel history and thread replies. The channel log is the
// single source of truth; nothing here writes.
type Reconstructor struct {
	gw    slackgw.Gateway
	reg   *flow.Registry
	cache *StateCache

	alertScanLimit      int
	incompleteScanLimit int
	now                 func() time.Time
}

// PendingStep is the resolved current position of one chain.
type PendingStep struct {
	StepIndex int
	Step      flow.Step
	MessageTs string
	Payload   *flow.ActionPayload
}

// NewReconstructor creates a reconstructor over the given gateway.
func NewReconstructor(gw slackgw.Gateway, reg *flow.Registry, cache *StateCache, alertScanLimit, incompleteScanLimit int) *Reconstructor {
	if alertScanLimit <= 0 {
		alertScanLimit = 50
	}
	if incompleteScanLimit <= 0 {
		incompleteScanLimit = 200
	}
	return &Reconstructor{
		gw:                  gw,
		reg:                 reg,
		cache:               cache,
		alertScanLimit:      alertScanLimit,
		incompleteScanLimit: incompleteScanLimit,
		now:                 time.Now,
	}
}

// FindExistingInitialAlert reports whether an initial alert for this
// workflow and period already exists in the channel. Completed alerts
// (checkmark-prefixed but still carrying the button) count as existing,
// so a finished chain is never re-alerted. The scan depth is bounded;
// alerts older than the window are treated as not found by design.
func (r *Reconstructor) FindExistingInitialAlert(ctx context.Context, channel string, def *flow.Definition, period flow.Period) (bool, error) {
	// Cache fast path. A hit is only a hint: confirm the cached root is
	// still present in the log before trusting it.
	if rec := r.cache.Get(ctx, def.Kind, period); rec != nil {
		replies, err := r.gw.FetchThreadReplies(ctx, channel, rec.RootTs, 1)
		if err == nil && len(replies) > 0 {
			return true, nil
		}
		log.Printf("⚠️  State cache disagrees with channel log for %s %s, falling back to scan", def.Kind, period)
	}

	msgs, err := r.gw.FetchHistory(ctx, channel, r.alertScanLimit)
	if err != nil {
		return false, err
	}

	for _, msg := range msgs {
		if r.matchesAlert(msg, def, period) || r.matchesCompletedAlert(msg, def, period) {
			log.Printf("📌 Existing alert found: %s %s ts=%s", def.Kind, period, msg.Timestamp)
			return true, nil
		}
	}
	return false, nil
}

// FindExistingDeadlineAlert reports whether a groupware deadline alert
// for this company and date already exists.
func (r *Reconstructor) FindExistingDeadlineAlert(ctx context.Context, channel string, def *flow.DeadlineDefinition, date time.Time) (bool, error) {
	msgs, err := r.gw.FetchHistory(ctx, channel, r.alertScanLimit)
	if err != nil {
		return false, err
	}

	marker := date.Format("2006-01-02")
	for _, msg := range msgs {
		content := slackgw.CombinedText(msg)
		if !strings.Contains(content, def.Name) || !strings.Contains(content, marker) {
			continue
		}
		// Live alerts carry the button; completed ones only the checkmark
		// rendering. Both block a re-post.
		if slackgw.HasAction(msg, flow.ActionIDDeadlineComplete) ||
			strings.HasPrefix(strings.TrimSpace(content), flow.CompletedPrefix) {
			return true, nil
		}
	}
	return false, nil
}

// FindIncompleteInstances returns root messages of chains that may still
// be pending, matched on text alone: the root loses its button and gains
// the checkmark rendering as soon as step 0 is approved, so neither can
// disqualify a candidate here. Classification is the caller's job, via
// IsTerminallyComplete and ResolveCurrentStep on each root's thread.
func (r *Reconstructor) FindIncompleteInstances(ctx context.Context, channel string, def *flow.Definition, period flow.Period) ([]slackapi.Message, error) {
	msgs, err := r.gw.FetchHistory(ctx, channel, r.incompleteScanLimit)
	if err != nil {
		return nil, err
	}

	var roots []slackapi.Message
	for _, msg := range msgs {
		content := slackgw.CombinedText(msg)
		if strings.Contains(content, def.Name) && strings.Contains(content, period.String()) {
			roots = append(roots, msg)
		}
	}
	return roots, nil
}

// ResolveCurrentStep finds the chain's latest active step by walking the
// root's thread replies newest-first and decoding the first action
// payload found. The root itself participates (replies include it). A
// nil result means the chain has no actionable message left — its button
// was stripped or deleted — and the caller should skip, not fail.
func (r *Reconstructor) ResolveCurrentStep(ctx context.Context, channel, rootTs string, def *flow.Definition) (*PendingStep, error) {
	replies, err := r.gw.FetchThreadReplies(ctx, channel, rootTs, threadFetchLimit)
	if err != nil {
		return nil, err
	}

	// Replies arrive oldest-first; the latest action element wins.
	for i := len(replies) - 1; i >= 0; i-- {
		value := slackgw.ActionValue(replies[i], flow.ActionIDSettlementApprove)
		if value == "" {
			continue
		}

		payload, err := flow.DecodeActionPayload(value)
		if err != nil {
			log.Printf("⚠️  Failed to parse action payload on ts=%s: %v", replies[i].Timestamp, err)
			return nil, nil
		}
		if payload.Step >= len(def.Steps) {
			log.Printf("⚠️  Payload step %d out of range for %s (%d steps)", payload.Step, def.Kind, len(def.Steps))
			return nil, nil
		}

		return &PendingStep{
			StepIndex: payload.Step,
			Step:      def.Steps[payload.Step],
			MessageTs: replies[i].Timestamp,
			Payload:   payload,
		}, nil
	}

	return nil, nil
}

// HasRecentReminder reports whether a reminder was already posted in the
// chain's thread within the cooldown window, judged by the reminder
// sentinel prefix and the platform timestamp of the reply.
func (r *Reconstructor) HasRecentReminder(ctx context.Context, channel, rootTs string, cooldown time.Duration) (bool, error) {
	replies, err := r.gw.FetchThreadReplies(ctx, channel, rootTs, threadFetchLimit)
	if err != nil {
		return false, err
	}

	now := r.now()
	for _, reply := range replies {
		if !strings.HasPrefix(strings.TrimSpace(reply.Text), flow.ReminderPrefix) {
			continue
		}
		if now.Sub(slackgw.TsTime(reply.Timestamp)) < cooldown {
			return true, nil
		}
	}
	return false, nil
}

// IsTerminallyComplete reports whether the chain's completion sentinel
// has been posted in its thread.
func (r *Reconstructor) IsTerminallyComplete(ctx context.Context, channel, rootTs string) (bool, error) {
	replies, err := r.gw.FetchThreadReplies(ctx, channel, rootTs, threadFetchLimit)
	if err != nil {
		return false, err
	}

	for _, reply := range replies {
		if strings.Contains(reply.Text, flow.CompletionSentinel) {
			return true, nil
		}
	}
	return false, nil
}

// matchesAlert applies the alert recognition rule: workflow display name
// plus period marker somewhere in the combined text, and the settlement
// action element present.
func (r *Reconstructor) matchesAlert(msg slackapi.Message, def *flow.Definition, period flow.Period) bool {
	content := slackgw.CombinedText(msg)
	return strings.Contains(content, def.Name) &&
		strings.Contains(content, period.String()) &&
		slackgw.HasAction(msg, flow.ActionIDSettlementApprove)
}

// matchesCompletedAlert recognizes a root that was rewritten to its
// completed rendering. The button is gone by then; the checkmark prefix
// plus the title's name and period marker identify it.
func (r *Reconstructor) matchesCompletedAlert(msg slackapi.Message, def *flow.Definition, period flow.Period) bool {
	content := slackgw.CombinedText(msg)
	return strings.HasPrefix(strings.TrimSpace(content), flow.CompletedPrefix) &&
		strings.Contains(content, def.Name) &&
		strings.Contains(content, period.String())
}
