package slack

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/slack-go/slack"
)

const defaultCallTimeout = 15 * time.Second

// Client is the production Gateway backed by the Slack Web API.
type Client struct {
	api     *slack.Client
	timeout time.Duration
}

// NewClient creates a gateway for the given bot token.
func NewClient(botToken string) *Client {
	return &Client{
		api:     slack.New(botToken),
		timeout: defaultCallTimeout,
	}
}

func (c *Client) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.timeout)
}

// PostMessage posts to a channel (or a thread when ThreadTs is set) and
// returns the new message's timestamp.
func (c *Client) PostMessage(ctx context.Context, channel string, msg OutboundMessage) (string, error) {
	ctx, cancel := c.callCtx(ctx)
	defer cancel()

	opts := []slack.MsgOption{slack.MsgOptionText(msg.Text, false)}
	if len(msg.Blocks) > 0 {
		opts = append(opts, slack.MsgOptionBlocks(msg.Blocks...))
	}
	if msg.ThreadTs != "" {
		opts = append(opts, slack.MsgOptionTS(msg.ThreadTs))
	}

	_, ts, err := c.api.PostMessageContext(ctx, channel, opts...)
	if err != nil {
		log.Printf("❌ postMessage failed: channel=%s err=%v", channel, err)
		return "", err
	}
	return ts, nil
}

// UpdateMessage replaces the text and blocks of an existing message.
func (c *Client) UpdateMessage(ctx context.Context, channel, ts string, msg OutboundMessage) error {
	ctx, cancel := c.callCtx(ctx)
	defer cancel()

	opts := []slack.MsgOption{slack.MsgOptionText(msg.Text, false)}
	if len(msg.Blocks) > 0 {
		opts = append(opts, slack.MsgOptionBlocks(msg.Blocks...))
	}

	_, _, _, err := c.api.UpdateMessageContext(ctx, channel, ts, opts...)
	if err != nil {
		log.Printf("❌ updateMessage failed: channel=%s ts=%s err=%v", channel, ts, err)
	}
	return err
}

// PostEphemeral sends a notice visible only to one user.
func (c *Client) PostEphemeral(ctx context.Context, channel, userID, text string) error {
	ctx, cancel := c.callCtx(ctx)
	defer cancel()

	_, err := c.api.PostEphemeralContext(ctx, channel, userID, slack.MsgOptionText(text, false))
	if err != nil {
		log.Printf("❌ postEphemeral failed: channel=%s user=%s err=%v", channel, userID, err)
	}
	return err
}

// FetchHistory pages through conversations.history until limit messages
// are collected or the cursor runs out. Slack returns newest first; that
// ordering is preserved.
func (c *Client) FetchHistory(ctx context.Context, channel string, limit int) ([]slack.Message, error) {
	var all []slack.Message
	cursor := ""

	for len(all) < limit {
		pageCtx, cancel := c.callCtx(ctx)
		page := limit - len(all)
		if page > 200 {
			page = 200
		}
		resp, err := c.api.GetConversationHistoryContext(pageCtx, &slack.GetConversationHistoryParameters{
			ChannelID: channel,
			Limit:     page,
			Cursor:    cursor,
		})
		cancel()
		if err != nil {
			log.Printf("❌ conversations.history failed: channel=%s err=%v", channel, err)
			return nil, err
		}

		all = append(all, resp.Messages...)
		cursor = resp.ResponseMetaData.NextCursor
		if cursor == "" {
			break
		}
	}

	return all, nil
}

// FetchThreadReplies returns the root message and its replies oldest
// first.
func (c *Client) FetchThreadReplies(ctx context.Context, channel, rootTs string, limit int) ([]slack.Message, error) {
	ctx, cancel := c.callCtx(ctx)
	defer cancel()

	msgs, _, _, err := c.api.GetConversationRepliesContext(ctx, &slack.GetConversationRepliesParameters{
		ChannelID: channel,
		Timestamp: rootTs,
		Limit:     limit,
	})
	if err != nil {
		log.Printf("❌ conversations.replies failed: channel=%s ts=%s err=%v", channel, rootTs, err)
		return nil, err
	}
	return msgs, nil
}

// DeleteMessage removes a message the bot authored.
func (c *Client) DeleteMessage(ctx context.Context, channel, ts string) error {
	ctx, cancel := c.callCtx(ctx)
	defer cancel()

	_, _, err := c.api.DeleteMessageContext(ctx, channel, ts)
	if err != nil {
		log.Printf("❌ chat.delete failed: channel=%s ts=%s err=%v", channel, ts, err)
	}
	return err
}

// AddReaction adds an emoji reaction; "already_reacted" counts as success.
func (c *Client) AddReaction(ctx context.Context, channel, ts, name string) error {
	ctx, cancel := c.callCtx(ctx)
	defer cancel()

	err := c.api.AddReactionContext(ctx, name, slack.NewRefToMessage(channel, ts))
	if err != nil {
		if strings.Contains(err.Error(), "already_reacted") {
			return nil
		}
		log.Printf("❌ reactions.add failed: channel=%s ts=%s err=%v", channel, ts, err)
		return err
	}
	return nil
}

// BotUserID resolves the bot's own user ID via auth.test.
func (c *Client) BotUserID(ctx context.Context) (string, error) {
	ctx, cancel := c.callCtx(ctx)
	defer cancel()

	resp, err := c.api.AuthTestContext(ctx)
	if err != nil {
		log.Printf("❌ auth.test failed: err=%v", err)
		return "", err
	}
	return resp.UserID, nil
}
