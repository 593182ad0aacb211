package services

import (
	"context"
	"fmt"
	"log"
	"strings"

	slackapi "github.com/slack-go/slack"

	"github.com/settlebot/backend/internal/domain/flow"
	slackgw "github.com/settlebot/backend/internal/infrastructure/slack"
)

const cleanupScanLimit = 50

// CleanupService deletes the bot's own recent messages from a channel,
// filtered by category. It is an operational tool for test channels and
// botched runs; it never touches human messages.
type CleanupService struct {
	gw  slackgw.Gateway
	reg *flow.Registry
}

// NewCleanupService creates a cleanup service over the given gateway.
func NewCleanupService(gw slackgw.Gateway, reg *flow.Registry) *CleanupService {
	return &CleanupService{gw: gw, reg: reg}
}

// DeleteRecent removes up to count bot messages of the given category
// from the channel's recent history. Returns how many were deleted and
// how many matched. Categories: settlement, deadline, reminder, all.
func (c *CleanupService) DeleteRecent(ctx context.Context, channel, category string, count int) (deleted, matched int, err error) {
	switch category {
	case "settlement", "deadline", "reminder", "all":
	default:
		return 0, 0, fmt.Errorf("unknown category %q", category)
	}
	if count <= 0 {
		count = 10
	}

	botID, err := c.gw.BotUserID(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to resolve bot user: %w", err)
	}

	msgs, err := c.gw.FetchHistory(ctx, channel, cleanupScanLimit)
	if err != nil {
		return 0, 0, err
	}

	for _, msg := range msgs {
		if matched >= count {
			break
		}
		if msg.User != botID {
			continue
		}
		if !c.matchesCategory(msg, category) {
			continue
		}
		matched++

		if err := c.gw.DeleteMessage(ctx, channel, msg.Timestamp); err != nil {
			log.Printf("⚠️  Failed to delete ts=%s: %v", msg.Timestamp, err)
			continue
		}
		deleted++
	}

	log.Printf("🧹 Cleanup: channel=%s category=%s matched=%d deleted=%d", channel, category, matched, deleted)
	return deleted, matched, nil
}

func (c *CleanupService) matchesCategory(msg slackapi.Message, category string) bool {
	switch category {
	case "all":
		return true
	case "reminder":
		return strings.HasPrefix(strings.TrimSpace(msg.Text), flow.ReminderPrefix)
	case "deadline":
		return slackgw.HasAction(msg, flow.ActionIDDeadlineComplete)
	case "settlement":
		if slackgw.HasAction(msg, flow.ActionIDSettlementApprove) {
			return true
		}
		content := slackgw.CombinedText(msg)
		for _, def := range c.reg.Settlements() {
			if strings.Contains(content, def.Name) {
				return true
			}
		}
		return false
	}
	return false
}
