package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/settlebot/backend/internal/domain/flow"
	slackgw "github.com/settlebot/backend/internal/infrastructure/slack"
)

// findStepPrompt returns the ts and payload value of the thread message
// carrying the settlement button for the given step.
func findStepPrompt(t *testing.T, gw *fakeGateway, channel, rootTs string, step int) (string, string) {
	t.Helper()
	replies, err := gw.FetchThreadReplies(context.Background(), channel, rootTs, 100)
	require.NoError(t, err)

	for _, msg := range replies {
		value := slackgw.ActionValue(msg, flow.ActionIDSettlementApprove)
		if value == "" {
			continue
		}
		payload, err := flow.DecodeActionPayload(value)
		require.NoError(t, err)
		if payload.Step == step {
			return msg.Timestamp, value
		}
	}
	t.Fatalf("no prompt for step %d in thread %s", step, rootTs)
	return "", ""
}

func TestApprovalChainFullWalk(t *testing.T) {
	gw := newFakeGateway()
	adv := newTestAdvancer(gw)
	ctx := context.Background()
	def := testDef()
	period := flow.Period{Year: 2025, Month: time.June}

	rootTs, err := adv.PostInitialAlert(ctx, testChannel, def, period, 11)
	require.NoError(t, err)

	approvers := []string{"U_OWNER", "U_LEAD", "U_FIN"}
	for step := 0; step < len(def.Steps); step++ {
		ts, value := findStepPrompt(t, gw, testChannel, rootTs, step)
		cb := clickCallback(approvers[step], testChannel, ts, rootTs, flow.ActionIDSettlementApprove, value)
		require.NoError(t, adv.HandleBlockAction(ctx, cb))

		// The clicked message was rewritten exactly once.
		assert.Equal(t, 1, gw.updated[threadKey(testChannel, ts)])
	}

	texts := gw.threadTexts(testChannel, rootTs)
	joined := strings.Join(texts, "\n")
	assert.Contains(t, joined, flow.CompletionSentinel)
	assert.Contains(t, joined, "Transfer registration finished.")

	// Every step was rendered complete; no live button remains.
	replies, err := gw.FetchThreadReplies(ctx, testChannel, rootTs, 100)
	require.NoError(t, err)
	for _, msg := range replies {
		assert.False(t, slackgw.HasAction(msg, flow.ActionIDSettlementApprove),
			"message %s still has a button", msg.Timestamp)
	}
}

func TestAdvanceIntermediateStep(t *testing.T) {
	gw := newFakeGateway()
	adv := newTestAdvancer(gw)
	ctx := context.Background()
	def := testDef()
	period := flow.Period{Year: 2025, Month: time.June}
	title := def.Title(period, 11)

	rootTs, err := adv.PostInitialAlert(ctx, testChannel, def, period, 11)
	require.NoError(t, err)

	ts, value := findStepPrompt(t, gw, testChannel, rootTs, 0)
	cb := clickCallback("U_OWNER", testChannel, ts, rootTs, flow.ActionIDSettlementApprove, value)
	require.NoError(t, adv.HandleBlockAction(ctx, cb))

	// Root rewritten to the completed rendering.
	replies, err := gw.FetchThreadReplies(ctx, testChannel, rootTs, 100)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(replies[0].Text, "✅"))
	assert.Contains(t, replies[0].Text, "Draft registration complete")

	// Step 1 prompt posted in the thread, addressed to the lead.
	nextTs, nextValue := findStepPrompt(t, gw, testChannel, rootTs, 1)
	assert.NotEqual(t, rootTs, nextTs)
	payload, err := flow.DecodeActionPayload(nextValue)
	require.NoError(t, err)
	assert.Equal(t, title, payload.Title)
	assert.Equal(t, period.String(), payload.Period)
}

func TestAdvanceRecomputesTitleFromDay(t *testing.T) {
	gw := newFakeGateway()
	adv := newTestAdvancer(gw)
	ctx := context.Background()
	def := testDef()
	period := flow.Period{Year: 2025, Month: time.June}

	rootTs, err := adv.PostInitialAlert(ctx, testChannel, def, period, 11)
	require.NoError(t, err)

	// A payload without a title still carries the trigger day, so the
	// batch-specific title is rebuilt rather than the generic one.
	payload := flow.ActionPayload{Kind: def.Kind, Step: 0, Period: period.String(), Day: 11}
	cb := clickCallback("U_OWNER", testChannel, rootTs, rootTs, flow.ActionIDSettlementApprove, payload.Encode())
	require.NoError(t, adv.HandleBlockAction(ctx, cb))

	_, nextValue := findStepPrompt(t, gw, testChannel, rootTs, 1)
	next, err := flow.DecodeActionPayload(nextValue)
	require.NoError(t, err)
	assert.Equal(t, "StyleMall 2025-06 regular settlement", next.Title)
	assert.Equal(t, 11, next.Day)
}

func TestDuplicateClickIgnored(t *testing.T) {
	gw := newFakeGateway()
	adv := newTestAdvancer(gw)
	ctx := context.Background()
	def := testDef()
	period := flow.Period{Year: 2025, Month: time.June}

	rootTs, err := adv.PostInitialAlert(ctx, testChannel, def, period, 11)
	require.NoError(t, err)

	ts, value := findStepPrompt(t, gw, testChannel, rootTs, 0)
	cb := clickCallback("U_OWNER", testChannel, ts, rootTs, flow.ActionIDSettlementApprove, value)
	require.NoError(t, adv.HandleBlockAction(ctx, cb))
	before := len(gw.threadTexts(testChannel, rootTs))

	// Slack redelivers; the second click on the same message is dropped.
	require.NoError(t, adv.HandleBlockAction(ctx, cb))
	assert.Equal(t, before, len(gw.threadTexts(testChannel, rootTs)))
}

func TestMalformedPayloadClickDropped(t *testing.T) {
	gw := newFakeGateway()
	adv := newTestAdvancer(gw)
	ctx := context.Background()

	cb := clickCallback("U_OWNER", testChannel, "111.222", "111.222", flow.ActionIDSettlementApprove, "not json")
	assert.NoError(t, adv.HandleBlockAction(ctx, cb))
	assert.Empty(t, gw.history[testChannel])
}

func TestDeadlineCompletionOwnerOnly(t *testing.T) {
	gw := newFakeGateway()
	adv := newTestAdvancer(gw)
	ctx := context.Background()
	def := testDeadline()
	date := time.Date(2025, time.July, 10, 0, 0, 0, 0, time.UTC)

	ts, err := adv.PostDeadlineAlert(ctx, testChannel, def, date)
	require.NoError(t, err)
	value := flow.DeadlinePayload{Company: def.Company, Date: "2025-07-10"}.Encode()

	// A non-owner gets an ephemeral notice and nothing changes.
	cb := clickCallback("U_STRANGER", testChannel, ts, ts, flow.ActionIDDeadlineComplete, value)
	require.NoError(t, adv.HandleBlockAction(ctx, cb))
	require.Len(t, gw.ephemeral, 1)
	assert.Contains(t, gw.ephemeral[0], "U_STRANGER")
	assert.Zero(t, gw.updated[threadKey(testChannel, ts)])

	// An owner completes it: rewrite plus transfer request in the thread.
	cb = clickCallback("U_OWNER", testChannel, ts, ts, flow.ActionIDDeadlineComplete, value)
	require.NoError(t, adv.HandleBlockAction(ctx, cb))
	assert.Equal(t, 1, gw.updated[threadKey(testChannel, ts)])

	texts := gw.threadTexts(testChannel, ts)
	joined := strings.Join(texts, "\n")
	assert.Contains(t, joined, "<@U_FIN>")
	assert.Contains(t, joined, "Please register the transfer.")
}

func TestHandleMessageEventSettlementKeywords(t *testing.T) {
	gw := newFakeGateway()
	adv := newTestAdvancer(gw)
	ctx := context.Background()
	def := testDef()
	period := flow.Period{Year: 2025, Month: time.June}

	rootTs, err := adv.PostInitialAlert(ctx, testChannel, def, period, 11)
	require.NoError(t, err)

	// Bot-authored replies never trigger reactions.
	require.NoError(t, adv.HandleMessageEvent(ctx, testChannel, rootTs, "done", "B123"))
	assert.Empty(t, gw.reactions)

	// Unrelated chatter is ignored.
	require.NoError(t, adv.HandleMessageEvent(ctx, testChannel, rootTs, "any updates?", ""))
	assert.Empty(t, gw.reactions)

	require.NoError(t, adv.HandleMessageEvent(ctx, testChannel, rootTs, "Transfer is Registered now", ""))
	require.Len(t, gw.reactions, 1)
	assert.Contains(t, gw.reactions[0], "white_check_mark")
}

func TestHandleMessageEventDeadlineRequiresBooked(t *testing.T) {
	gw := newFakeGateway()
	adv := newTestAdvancer(gw)
	ctx := context.Background()
	date := time.Date(2025, time.July, 10, 0, 0, 0, 0, time.UTC)

	rootTs, err := adv.PostDeadlineAlert(ctx, testChannel, testDeadline(), date)
	require.NoError(t, err)

	require.NoError(t, adv.HandleMessageEvent(ctx, testChannel, rootTs, "done", ""))
	assert.Empty(t, gw.reactions)

	require.NoError(t, adv.HandleMessageEvent(ctx, testChannel, rootTs, "booked it this morning", ""))
	assert.Len(t, gw.reactions, 1)
}
