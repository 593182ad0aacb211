package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/settlebot/backend/internal/config"
	"github.com/settlebot/backend/internal/domain/calendar"
	"github.com/settlebot/backend/internal/domain/flow"
	slackgw "github.com/settlebot/backend/internal/infrastructure/slack"
	"github.com/settlebot/backend/pkg/expression"
)

// SchedulerService runs the daily pass: post initial alerts on trigger
// days, post groupware deadline alerts per the weekly rules, and remind
// whoever is sitting on a pending step. It is driven either by the
// embedded cron job or by the authenticated cron endpoint; both funnel
// into RunDaily.
type SchedulerService struct {
	gw    slackgw.Gateway
	reg   *flow.Registry
	recon *Reconstructor
	adv   *Advancer
	expr  *expression.Engine
	cfg   *config.Config

	cron    *cron.Cron
	mu      sync.Mutex
	running bool
}

// RunOptions controls one daily pass.
type RunOptions struct {
	// Date is the local date to evaluate; zero means now.
	Date time.Time
	// Forced bypasses the afternoon cutoff (test and manual runs).
	Forced bool
	// Channel overrides the finance channel when set.
	Channel string
}

// RunReport summarizes one daily pass.
type RunReport struct {
	RunID     string
	Date      time.Time
	Alerts    int
	Reminders int
	Skipped   int
	Errors    []string
}

// Processed is the total number of messages the pass produced.
func (r *RunReport) Processed() int {
	return r.Alerts + r.Reminders
}

// NewSchedulerService wires the daily pass over its collaborators.
func NewSchedulerService(gw slackgw.Gateway, reg *flow.Registry, recon *Reconstructor, adv *Advancer, expr *expression.Engine, cfg *config.Config) *SchedulerService {
	return &SchedulerService{
		gw:    gw,
		reg:   reg,
		recon: recon,
		adv:   adv,
		expr:  expr,
		cfg:   cfg,
	}
}

// RunDaily executes one full pass. Failures are contained per workflow:
// one broken chain never blocks the others. The pass is idempotent for a
// given date because every alert is checked against channel history
// before posting.
func (s *SchedulerService) RunDaily(ctx context.Context, opts RunOptions) *RunReport {
	now := opts.Date
	if now.IsZero() {
		now = time.Now().In(s.cfg.Location)
	} else {
		now = now.In(s.cfg.Location)
	}

	channel := opts.Channel
	if channel == "" {
		channel = s.cfg.FinanceChannelID
	}

	report := &RunReport{
		RunID: uuid.NewString()[:8],
		Date:  calendar.StripTime(now),
	}
	log.Printf("🚀 Daily run %s started: date=%s channel=%s forced=%v",
		report.RunID, now.Format("2006-01-02"), channel, opts.Forced)

	afternoon := !opts.Forced && now.Hour() >= s.cfg.AfternoonCutoffHour

	for _, def := range s.reg.Settlements() {
		s.runSettlement(ctx, channel, def, now, afternoon, report)
	}
	for _, def := range s.reg.Deadlines() {
		s.runDeadline(ctx, channel, def, now, afternoon, report)
	}

	log.Printf("🏁 Daily run %s finished: alerts=%d reminders=%d skipped=%d errors=%d",
		report.RunID, report.Alerts, report.Reminders, report.Skipped, len(report.Errors))
	return report
}

func (s *SchedulerService) runSettlement(ctx context.Context, channel string, def *flow.Definition, now time.Time, afternoon bool, report *RunReport) {
	if def.TriggersOnDay(now.Day()) && s.triggerAllowed(def, now) {
		// Trigger day: the new alert is the day's message. Reminders for
		// this kind resume on subsequent days.
		if afternoon {
			log.Printf("🌇 Afternoon cutoff: suppressing new %s alert", def.Kind)
			report.Skipped++
			return
		}

		period := def.AttributedPeriod(now)
		exists, err := s.recon.FindExistingInitialAlert(ctx, channel, def, period)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("%s: existing-alert check: %v", def.Kind, err))
			return
		}
		if exists {
			log.Printf("⏭️  Alert for %s %s already posted, skipping", def.Kind, period)
			report.Skipped++
			return
		}

		if _, err := s.adv.PostInitialAlert(ctx, channel, def, period, now.Day()); err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("%s: post alert: %v", def.Kind, err))
			return
		}
		report.Alerts++
		return
	}

	for _, period := range def.PeriodsToWatch(now) {
		n, err := s.remindIncomplete(ctx, channel, def, period)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("%s %s: reminders: %v", def.Kind, period, err))
			continue
		}
		report.Reminders += n
	}
}

// triggerAllowed applies the optional expression veto. Evaluation errors
// fail open: a broken expression must not silently stop settlements.
func (s *SchedulerService) triggerAllowed(def *flow.Definition, now time.Time) bool {
	if def.TriggerExpr == "" {
		return true
	}
	env := map[string]interface{}{
		"day":           now.Day(),
		"month":         int(now.Month()),
		"weekday":       int(now.Weekday()),
		"isBusinessDay": calendar.IsBusinessDay(now),
	}
	ok, err := s.expr.EvaluateBool(def.TriggerExpr, env)
	if err != nil {
		log.Printf("⚠️  Trigger expression for %s failed, allowing trigger: %v", def.Kind, err)
		return true
	}
	return ok
}

func (s *SchedulerService) runDeadline(ctx context.Context, channel string, def *flow.DeadlineDefinition, now time.Time, afternoon bool, report *RunReport) {
	if !def.ShouldTrigger(now) {
		return
	}
	if afternoon {
		log.Printf("🌇 Afternoon cutoff: suppressing %s deadline alert", def.Company)
		report.Skipped++
		return
	}

	exists, err := s.recon.FindExistingDeadlineAlert(ctx, channel, def, now)
	if err != nil {
		report.Errors = append(report.Errors, fmt.Sprintf("%s: existing-deadline check: %v", def.Company, err))
		return
	}
	if exists {
		log.Printf("⏭️  Deadline alert for %s already posted, skipping", def.Company)
		report.Skipped++
		return
	}

	if _, err := s.adv.PostDeadlineAlert(ctx, channel, def, now); err != nil {
		report.Errors = append(report.Errors, fmt.Sprintf("%s: post deadline alert: %v", def.Company, err))
		return
	}
	report.Alerts++
}

// remindIncomplete scans for still-pending chains of one workflow/period
// and nudges the current step's owner, subject to the cooldown.
func (s *SchedulerService) remindIncomplete(ctx context.Context, channel string, def *flow.Definition, period flow.Period) (int, error) {
	roots, err := s.recon.FindIncompleteInstances(ctx, channel, def, period)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, root := range roots {
		done, err := s.recon.IsTerminallyComplete(ctx, channel, root.Timestamp)
		if err != nil {
			log.Printf("⚠️  Completion check failed for ts=%s: %v", root.Timestamp, err)
			continue
		}
		if done {
			continue
		}

		pending, err := s.recon.ResolveCurrentStep(ctx, channel, root.Timestamp, def)
		if err != nil {
			log.Printf("⚠️  Step resolution failed for ts=%s: %v", root.Timestamp, err)
			continue
		}
		if pending == nil {
			log.Printf("⚠️  No actionable step in thread ts=%s, skipping", root.Timestamp)
			continue
		}

		recent, err := s.recon.HasRecentReminder(ctx, channel, root.Timestamp, s.cfg.ReminderCooldown)
		if err != nil {
			log.Printf("⚠️  Reminder check failed for ts=%s: %v", root.Timestamp, err)
			continue
		}
		if recent {
			continue
		}

		text := fmt.Sprintf("%s <@%s>, the %s %s settlement is still pending your action. Please take a look.\nTime: %s",
			flow.ReminderPrefix, pending.Step.UserID, def.Name, period,
			time.Now().In(s.cfg.Location).Format("2006-01-02 15:04:05"))
		if _, err := s.gw.PostMessage(ctx, channel, slackgw.OutboundMessage{Text: text, ThreadTs: root.Timestamp}); err != nil {
			log.Printf("⚠️  Failed to post reminder on ts=%s: %v", root.Timestamp, err)
			continue
		}
		log.Printf("⏰ Reminder sent: %s %s step=%d user=%s", def.Kind, period, pending.StepIndex, pending.Step.UserID)
		sent++
	}
	return sent, nil
}

// RemindKind runs the reminder pass for a single workflow and period,
// ignoring the cooldown's usual companions (trigger and deadline logic).
func (s *SchedulerService) RemindKind(ctx context.Context, kind string, period flow.Period, channel string) (int, error) {
	def, ok := s.reg.Settlement(kind)
	if !ok {
		return 0, fmt.Errorf("unknown workflow kind %q", kind)
	}
	if channel == "" {
		channel = s.cfg.FinanceChannelID
	}
	return s.remindIncomplete(ctx, channel, def, period)
}

// Start launches the embedded cron job if not already running.
func (s *SchedulerService) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	c := cron.New(cron.WithLocation(s.cfg.Location))
	_, err := c.AddFunc(s.cfg.CronSpec, func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("🔥 Daily run panicked: %v", r)
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		s.RunDaily(ctx, RunOptions{})
	})
	if err != nil {
		return fmt.Errorf("failed to schedule daily run: %w", err)
	}

	c.Start()
	s.cron = c
	s.running = true
	log.Printf("⏰ Scheduler started: spec=%q tz=%s", s.cfg.CronSpec, s.cfg.Timezone)
	return nil
}

// Stop halts the embedded cron job and waits for an in-flight run.
func (s *SchedulerService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	<-s.cron.Stop().Done()
	s.running = false
	log.Println("⏹️  Scheduler stopped")
}
