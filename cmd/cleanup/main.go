// Command cleanup deletes the bot's recent messages from a channel.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/settlebot/backend/internal/application/services"
	"github.com/settlebot/backend/internal/config"
	"github.com/settlebot/backend/internal/domain/flow"
	slackgw "github.com/settlebot/backend/internal/infrastructure/slack"
)

func main() {
	channel := flag.String("channel", "test", "channel ID or alias (finance, test)")
	category := flag.String("category", "all", "settlement, deadline, reminder or all")
	count := flag.Int("n", 10, "max messages to delete")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}

	target := *channel
	switch target {
	case "finance":
		target = cfg.FinanceChannelID
	case "test":
		target = cfg.TestChannelID
	}

	gateway := slackgw.NewClient(cfg.SlackBotToken)
	cleanup := services.NewCleanupService(gateway, flow.DefaultRegistry())

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	deleted, matched, err := cleanup.DeleteRecent(ctx, target, *category, *count)
	if err != nil {
		log.Fatalf("❌ Cleanup failed: %v", err)
	}
	log.Printf("✅ Done: matched=%d deleted=%d", matched, deleted)
}
