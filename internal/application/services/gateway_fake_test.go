package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	slackapi "github.com/slack-go/slack"

	slackgw "github.com/settlebot/backend/internal/infrastructure/slack"
)

// fakeGateway is an in-memory channel log implementing slackgw.Gateway.
// History is newest first, threads oldest first, matching the real API.
type fakeGateway struct {
	mu      sync.Mutex
	history map[string][]slackapi.Message // channel -> newest first
	threads map[string][]slackapi.Message // channel/rootTs -> root + replies

	updated   map[string]int // channel/ts -> update count
	ephemeral []string
	reactions []string
	deleted   []string

	botID string
	tsSec int64
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		history: make(map[string][]slackapi.Message),
		threads: make(map[string][]slackapi.Message),
		updated: make(map[string]int),
		botID:   "UBOT",
		tsSec:   time.Now().Unix() - 3600,
	}
}

func (f *fakeGateway) nextTs() string {
	f.tsSec++
	return fmt.Sprintf("%d.000100", f.tsSec)
}

func threadKey(channel, rootTs string) string { return channel + "/" + rootTs }

func buildMessage(user, ts string, msg slackgw.OutboundMessage) slackapi.Message {
	m := slackapi.Message{}
	m.User = user
	m.Text = msg.Text
	m.Timestamp = ts
	m.ThreadTimestamp = msg.ThreadTs
	m.Blocks = slackapi.Blocks{BlockSet: msg.Blocks}
	return m
}

func (f *fakeGateway) PostMessage(_ context.Context, channel string, msg slackgw.OutboundMessage) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ts := f.nextTs()
	m := buildMessage(f.botID, ts, msg)

	if msg.ThreadTs != "" {
		key := threadKey(channel, msg.ThreadTs)
		f.threads[key] = append(f.threads[key], m)
		return ts, nil
	}

	f.history[channel] = append([]slackapi.Message{m}, f.history[channel]...)
	f.threads[threadKey(channel, ts)] = []slackapi.Message{m}
	return ts, nil
}

// postAsUser appends a human reply into a thread.
func (f *fakeGateway) postAsUser(channel, user, threadTs, text string) string {
	f.mu.Lock()
	defer f.mu.Unlock()

	ts := f.nextTs()
	m := buildMessage(user, ts, slackgw.OutboundMessage{Text: text, ThreadTs: threadTs})
	key := threadKey(channel, threadTs)
	f.threads[key] = append(f.threads[key], m)
	return ts
}

// setReplyAge rewrites a thread reply's timestamp to age seconds ago.
func (f *fakeGateway) setReplyAge(channel, rootTs, ts string, age time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()

	aged := fmt.Sprintf("%d.000100", time.Now().Add(-age).Unix())
	key := threadKey(channel, rootTs)
	for i := range f.threads[key] {
		if f.threads[key][i].Timestamp == ts {
			f.threads[key][i].Timestamp = aged
		}
	}
}

func (f *fakeGateway) UpdateMessage(_ context.Context, channel, ts string, msg slackgw.OutboundMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.updated[threadKey(channel, ts)]++
	replace := func(list []slackapi.Message) {
		for i := range list {
			if list[i].Timestamp == ts {
				list[i].Text = msg.Text
				list[i].Blocks = slackapi.Blocks{BlockSet: msg.Blocks}
			}
		}
	}
	replace(f.history[channel])
	for key, list := range f.threads {
		if strings.HasPrefix(key, channel+"/") {
			replace(list)
		}
	}
	return nil
}

func (f *fakeGateway) PostEphemeral(_ context.Context, channel, userID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ephemeral = append(f.ephemeral, userID+": "+text)
	return nil
}

func (f *fakeGateway) FetchHistory(_ context.Context, channel string, limit int) ([]slackapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	msgs := f.history[channel]
	if len(msgs) > limit {
		msgs = msgs[:limit]
	}
	out := make([]slackapi.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

func (f *fakeGateway) FetchThreadReplies(_ context.Context, channel, rootTs string, limit int) ([]slackapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	msgs := f.threads[threadKey(channel, rootTs)]
	if len(msgs) > limit {
		msgs = msgs[:limit]
	}
	out := make([]slackapi.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

func (f *fakeGateway) DeleteMessage(_ context.Context, channel, ts string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.deleted = append(f.deleted, ts)
	kept := f.history[channel][:0]
	for _, m := range f.history[channel] {
		if m.Timestamp != ts {
			kept = append(kept, m)
		}
	}
	f.history[channel] = kept
	return nil
}

func (f *fakeGateway) AddReaction(_ context.Context, channel, ts, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reactions = append(f.reactions, threadKey(channel, ts)+":"+name)
	return nil
}

func (f *fakeGateway) BotUserID(context.Context) (string, error) {
	return f.botID, nil
}

func (f *fakeGateway) threadTexts(channel, rootTs string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []string
	for _, m := range f.threads[threadKey(channel, rootTs)] {
		out = append(out, m.Text)
	}
	return out
}
