// Command sendalert posts one settlement initial alert directly, outside
// the daily scheduler. Useful for replaying a missed trigger day.
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
	kind := flag.String("kind", "", "workflow kind (e.g. stylemall)")
	month := flag.String("month", "", "period as YYYY-MM (default: current month)")
	day := flag.Int("day", 0, "trigger day used for the batch label")
	channel := flag.String("channel", "", "channel ID (default: test channel)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}

	reg := flow.DefaultRegistry()
	def, ok := reg.Settlement(*kind)
	if !ok {
		log.Fatalf("❌ Unknown workflow kind %q", *kind)
	}

	period := flow.PeriodOf(time.Now().In(cfg.Location))
	if *month != "" {
		period, err = flow.ParsePeriod(*month)
		if err != nil {
			log.Fatalf("❌ Invalid month %q: %v", *month, err)
		}
	}

	target := *channel
	if target == "" {
		target = cfg.TestChannelID
	}

	gateway := slackgw.NewClient(cfg.SlackBotToken)
	advancer := services.NewAdvancer(gateway, reg, services.NewStateCache(nil), nil, cfg.Location)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	ts, err := advancer.PostInitialAlert(ctx, target, def, period, *day)
	if err != nil {
		log.Fatalf("❌ Failed to post alert: %v", err)
	}
	log.Printf("✅ Alert posted: channel=%s ts=%s", target, ts)
}
