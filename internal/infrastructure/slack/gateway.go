// Package slack wraps the Slack Web API behind a narrow gateway
// interface. It is a pure I/O boundary: no workflow logic lives here.
package slack

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/slack-go/slack"
)

// OutboundMessage is a message to post or an in-place replacement.
type OutboundMessage struct {
	Text     string
	Blocks   []slack.Block
	ThreadTs string
}

// Gateway is the messaging boundary used by all services. The channel
// log reached through it is the system's only durable store.
type Gateway interface {
	PostMessage(ctx context.Context, channel string, msg OutboundMessage) (string, error)
	UpdateMessage(ctx context.Context, channel, ts string, msg OutboundMessage) error
	PostEphemeral(ctx context.Context, channel, userID, text string) error
	// FetchHistory returns up to limit channel messages, newest first.
	FetchHistory(ctx context.Context, channel string, limit int) ([]slack.Message, error)
	// FetchThreadReplies returns the root message and its replies, oldest
	// first (the Slack replies ordering).
	FetchThreadReplies(ctx context.Context, channel, rootTs string, limit int) ([]slack.Message, error)
	DeleteMessage(ctx context.Context, channel, ts string) error
	AddReaction(ctx context.Context, channel, ts, name string) error
	BotUserID(ctx context.Context) (string, error)
}

// TsTime converts a Slack message timestamp ("1718000000.000200") to
// wall-clock time. A zero time is returned for unparseable input.
func TsTime(ts string) time.Time {
	sec, err := strconv.ParseFloat(ts, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(int64(sec), int64((sec-float64(int64(sec)))*1e9))
}

// CombinedText concatenates a message's plain text with the text of its
// section blocks, matching how alerts are recognized regardless of which
// surface carries the keywords.
func CombinedText(msg slack.Message) string {
	var b strings.Builder
	b.WriteString(msg.Text)
	for _, block := range msg.Blocks.BlockSet {
		if section, ok := block.(*slack.SectionBlock); ok && section.Text != nil {
			b.WriteString("\n")
			b.WriteString(section.Text.Text)
		}
	}
	return b.String()
}

// HasAction reports whether the message carries an interactive element
// with the given action ID.
func HasAction(msg slack.Message, actionID string) bool {
	return ActionValue(msg, actionID) != ""
}

// ActionValue returns the opaque payload of the message's element with
// the given action ID, or "" if absent.
func ActionValue(msg slack.Message, actionID string) string {
	for _, block := range msg.Blocks.BlockSet {
		actions, ok := block.(*slack.ActionBlock)
		if !ok || actions.Elements == nil {
			continue
		}
		for _, el := range actions.Elements.ElementSet {
			button, ok := el.(*slack.ButtonBlockElement)
			if !ok {
				continue
			}
			if button.ActionID == actionID {
				return button.Value
			}
		}
	}
	return ""
}
