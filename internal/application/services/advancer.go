package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	slackapi "github.com/slack-go/slack"

	"github.com/settlebot/backend/internal/domain/flow"
	slackgw "github.com/settlebot/backend/internal/infrastructure/slack"
)

// Advancer is the approval state machine. It creates chains by posting
// initial alerts and advances them on button clicks: the clicked message
// is rendered complete in place, then either the next step's prompt or
// the completion sentinel is posted into the thread. The embedded action
// payload is the only durable pointer between messages and steps.
type Advancer struct {
	gw     slackgw.Gateway
	reg    *flow.Registry
	cache  *StateCache
	dedupe *Dedupe
	loc    *time.Location
	now    func() time.Time
}

// NewAdvancer creates the state machine over the given gateway.
func NewAdvancer(gw slackgw.Gateway, reg *flow.Registry, cache *StateCache, dedupe *Dedupe, loc *time.Location) *Advancer {
	if loc == nil {
		loc = time.UTC
	}
	return &Advancer{
		gw:     gw,
		reg:    reg,
		cache:  cache,
		dedupe: dedupe,
		loc:    loc,
		now:    time.Now,
	}
}

func mrkdwn(text string) *slackapi.TextBlockObject {
	return slackapi.NewTextBlockObject(slackapi.MarkdownType, text, false, false)
}

func doneButton(actionID, value string) *slackapi.ActionBlock {
	button := slackapi.NewButtonBlockElement(actionID, value,
		slackapi.NewTextBlockObject(slackapi.PlainTextType, "Done", false, false))
	return slackapi.NewActionBlock("", button)
}

// PostInitialAlert creates a new chain at step 0 for the given workflow
// and period. Returns the root message timestamp.
func (a *Advancer) PostInitialAlert(ctx context.Context, channel string, def *flow.Definition, period flow.Period, day int) (string, error) {
	title := def.Title(period, day)
	first := def.Steps[0]
	text := first.Render(title)

	payload := flow.ActionPayload{Kind: def.Kind, Step: 0, Period: period.String(), Title: title, Day: day}
	blocks := []slackapi.Block{
		slackapi.NewSectionBlock(mrkdwn(text), nil, nil),
		doneButton(flow.ActionIDSettlementApprove, payload.Encode()),
	}

	ts, err := a.gw.PostMessage(ctx, channel, slackgw.OutboundMessage{Text: text, Blocks: blocks})
	if err != nil {
		return "", err
	}

	a.cache.Put(ctx, def.Kind, period, 0, ts, title)
	log.Printf("✅ Initial alert posted: %s %s ts=%s", def.Kind, period, ts)
	return ts, nil
}

// PostDeadlineAlert posts the weekly groupware deadline prompt for a
// company. The alert text carries the company name and the date marker
// used for idempotent re-detection.
func (a *Advancer) PostDeadlineAlert(ctx context.Context, channel string, def *flow.DeadlineDefinition, date time.Time) (string, error) {
	mentions := make([]string, 0, len(def.Owners))
	for _, owner := range def.Owners {
		mentions = append(mentions, fmt.Sprintf("<@%s>", owner))
	}
	text := fmt.Sprintf("%s Please complete the *%s* groupware deadline for %s.",
		strings.Join(mentions, " "), def.Name, date.Format("2006-01-02"))

	payload := flow.DeadlinePayload{Company: def.Company, Date: date.Format("2006-01-02")}
	blocks := []slackapi.Block{
		slackapi.NewSectionBlock(mrkdwn(text), nil, nil),
		doneButton(flow.ActionIDDeadlineComplete, payload.Encode()),
	}

	ts, err := a.gw.PostMessage(ctx, channel, slackgw.OutboundMessage{Text: text, Blocks: blocks})
	if err != nil {
		return "", err
	}
	log.Printf("✅ Deadline alert posted: %s %s ts=%s", def.Company, date.Format("2006-01-02"), ts)
	return ts, nil
}

// HandleBlockAction dispatches a verified button click. Malformed or
// unknown actions are logged and dropped; they never fail the handler.
func (a *Advancer) HandleBlockAction(ctx context.Context, cb *slackapi.InteractionCallback) error {
	if len(cb.ActionCallback.BlockActions) == 0 {
		log.Println("⚠️  Block action event without actions, ignoring")
		return nil
	}
	action := cb.ActionCallback.BlockActions[0]

	channel := cb.Container.ChannelID
	if channel == "" {
		channel = cb.Channel.ID
	}
	ts := cb.Container.MessageTs
	if ts == "" {
		ts = cb.Message.Timestamp
	}

	if a.dedupe != nil && !a.dedupe.Begin(channel+"/"+ts) {
		log.Printf("⏭️  Duplicate interaction for ts=%s, skipping", ts)
		return nil
	}

	switch action.ActionID {
	case flow.ActionIDSettlementApprove:
		return a.advanceSettlement(ctx, cb, action, channel, ts)
	case flow.ActionIDDeadlineComplete:
		return a.completeDeadline(ctx, cb, action, channel, ts)
	default:
		log.Printf("ℹ️  Unhandled action ID %q", action.ActionID)
		return nil
	}
}

func (a *Advancer) advanceSettlement(ctx context.Context, cb *slackapi.InteractionCallback, action *slackapi.BlockAction, channel, ts string) error {
	payload, err := flow.DecodeActionPayload(action.Value)
	if err != nil {
		log.Printf("⚠️  Failed to parse settlement payload: %v", err)
		return nil
	}

	def, ok := a.reg.Settlement(payload.Kind)
	if !ok {
		log.Printf("⚠️  Unknown workflow kind %q", payload.Kind)
		return nil
	}
	if payload.Step >= len(def.Steps) {
		log.Printf("⚠️  Payload step %d out of range for %s", payload.Step, payload.Kind)
		return nil
	}

	period, err := flow.ParsePeriod(payload.Period)
	if err != nil {
		log.Printf("⚠️  Bad period in payload: %v", err)
		return nil
	}

	step := def.Steps[payload.Step]
	title := payload.Title
	if title == "" {
		title = def.Title(period, payload.Day)
	}

	log.Printf("🔄 Advancing %s %s: step=%d user=%s", payload.Kind, payload.Period, payload.Step, cb.User.ID)

	// Render the clicked message as completed before posting anything
	// new, so the thread never shows two live buttons.
	approvedAt := a.now().In(a.loc).Format("2006-01-02 15:04:05")
	completed := slackgw.OutboundMessage{
		Text: fmt.Sprintf("✅ %s - %s", title, step.Done),
		Blocks: []slackapi.Block{
			slackapi.NewSectionBlock(mrkdwn(fmt.Sprintf("✅ *%s*", title)), nil, nil),
			slackapi.NewContextBlock("",
				mrkdwn(step.Done),
				mrkdwn(fmt.Sprintf("Approved by <@%s> (%s) | %s", cb.User.ID, cb.User.Name, approvedAt))),
		},
	}
	a.updateWithFallback(ctx, channel, ts, cb.ResponseURL, completed)

	rootTs := cb.Message.ThreadTimestamp
	if rootTs == "" {
		rootTs = ts
	}

	next := payload.Step + 1
	if next >= len(def.Steps) {
		log.Printf("🎉 All approvals complete: %s %s", payload.Kind, payload.Period)
		text := fmt.Sprintf("%s\nSettlement: %s\nTransfer registration finished.", flow.CompletionSentinel, title)
		if _, err := a.gw.PostMessage(ctx, channel, slackgw.OutboundMessage{Text: text, ThreadTs: rootTs}); err != nil {
			log.Printf("⚠️  Failed to post completion notice: %v", err)
		}
		a.cache.Delete(ctx, payload.Kind, period)
		return nil
	}

	nextStep := def.Steps[next]
	nextPayload := flow.ActionPayload{Kind: payload.Kind, Step: next, Period: payload.Period, Title: title, Day: payload.Day}
	nextText := nextStep.Render(title)
	_, err = a.gw.PostMessage(ctx, channel, slackgw.OutboundMessage{
		Text: nextText,
		Blocks: []slackapi.Block{
			slackapi.NewSectionBlock(mrkdwn(nextText), nil, nil),
			doneButton(flow.ActionIDSettlementApprove, nextPayload.Encode()),
		},
		ThreadTs: rootTs,
	})
	if err != nil {
		log.Printf("⚠️  Failed to post next step prompt: %v", err)
		return nil
	}

	a.cache.Put(ctx, payload.Kind, period, next, rootTs, title)
	log.Printf("➡️  Next step posted: %s step=%d (%s)", payload.Kind, next, nextStep.Role)
	return nil
}

func (a *Advancer) completeDeadline(ctx context.Context, cb *slackapi.InteractionCallback, action *slackapi.BlockAction, channel, ts string) error {
	payload, err := flow.DecodeDeadlinePayload(action.Value)
	if err != nil {
		log.Printf("⚠️  Failed to parse deadline payload: %v", err)
		return nil
	}

	def, ok := a.reg.Deadline(payload.Company)
	if !ok {
		log.Printf("⚠️  Unknown company %q", payload.Company)
		return nil
	}

	if !def.AllowsUser(cb.User.ID) {
		log.Printf("⚠️  User %s is not an owner of %s, rejecting", cb.User.ID, payload.Company)
		if err := a.gw.PostEphemeral(ctx, channel, cb.User.ID,
			"⚠️ Only the assigned owners can complete this deadline."); err != nil {
			log.Printf("⚠️  Failed to send ephemeral notice: %v", err)
		}
		return nil
	}

	// The completed rendering keeps the date marker so the daily pass can
	// still recognize this alert after the button is gone.
	completedAt := a.now().In(a.loc).Format("2006-01-02 15:04:05")
	completed := slackgw.OutboundMessage{
		Text: fmt.Sprintf("✅ %s groupware deadline %s complete", def.Name, payload.Date),
		Blocks: []slackapi.Block{
			slackapi.NewSectionBlock(mrkdwn(fmt.Sprintf("✅ *%s groupware deadline %s complete*", def.Name, payload.Date)), nil, nil),
			slackapi.NewContextBlock("",
				mrkdwn(fmt.Sprintf("Completed by <@%s> (%s) | %s", cb.User.ID, cb.User.Name, completedAt))),
		},
	}
	a.updateWithFallback(ctx, channel, ts, cb.ResponseURL, completed)

	transfer := fmt.Sprintf("<@%s> The %s groupware deadline for %s is complete. Please register the transfer.",
		def.TransferManager, def.Name, payload.Date)
	if _, err := a.gw.PostMessage(ctx, channel, slackgw.OutboundMessage{Text: transfer, ThreadTs: ts}); err != nil {
		log.Printf("⚠️  Failed to post transfer request: %v", err)
	}

	log.Printf("✅ Deadline completed: %s by %s", payload.Company, cb.User.ID)
	return nil
}

// updateWithFallback replaces a message in place; if chat.update fails,
// it falls back to the interaction's short-lived response URL. Failure of
// both is logged and the chain continues — an un-rewritten message is
// recoverable, a stalled chain is not.
func (a *Advancer) updateWithFallback(ctx context.Context, channel, ts, responseURL string, msg slackgw.OutboundMessage) {
	if err := a.gw.UpdateMessage(ctx, channel, ts, msg); err == nil {
		return
	}
	if responseURL == "" {
		log.Printf("⚠️  Message update failed and no response URL available: ts=%s", ts)
		return
	}
	webhook := &slackapi.WebhookMessage{
		Text:            msg.Text,
		Blocks:          &slackapi.Blocks{BlockSet: msg.Blocks},
		ReplaceOriginal: true,
	}
	if err := slackapi.PostWebhookContext(ctx, responseURL, webhook); err != nil {
		log.Printf("⚠️  Response URL fallback failed: ts=%s err=%v", ts, err)
	}
}

// completionKeywords recognized in human thread replies.
var settlementKeywords = []string{"done", "complete", "completed", "booked", "registered"}

// HandleMessageEvent reacts to human thread replies that declare the
// underlying task finished, marking the root with a checkmark reaction.
// Deadline threads only accept the explicit "booked" confirmation.
func (a *Advancer) HandleMessageEvent(ctx context.Context, channel, threadTs, text, botID string) error {
	if botID != "" {
		return nil // never react to our own (or any bot's) messages
	}
	if threadTs == "" {
		return nil
	}

	replies, err := a.gw.FetchThreadReplies(ctx, channel, threadTs, 1)
	if err != nil || len(replies) == 0 {
		return nil
	}
	root := replies[0]

	lowered := strings.ToLower(strings.TrimSpace(text))
	matched := false
	if slackgw.HasAction(root, flow.ActionIDDeadlineComplete) {
		matched = strings.Contains(lowered, "booked")
	} else {
		for _, kw := range settlementKeywords {
			if strings.Contains(lowered, kw) {
				matched = true
				break
			}
		}
	}
	if !matched {
		return nil
	}

	if err := a.gw.AddReaction(ctx, channel, threadTs, "white_check_mark"); err != nil {
		log.Printf("⚠️  Failed to add completion reaction: %v", err)
	}
	return nil
}
