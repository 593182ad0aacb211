// Package flow holds the static workflow definitions: approval chains for
// platform settlements and weekly groupware deadline checks. Definitions
// are immutable for the process lifetime and injected into the services
// that need them.
package flow

import (
	"fmt"
	"strings"
	"time"
)

// Step is one stage of an approval chain, owned by one responsible party.
type Step struct {
	Role     string
	UserID   string
	Template string // message template; "{title}" is substituted
	Done     string // label shown on the completed rendering of this step
}

// Render produces the step's prompt mentioning the responsible party.
func (s Step) Render(title string) string {
	return fmt.Sprintf("<@%s> %s", s.UserID, strings.ReplaceAll(s.Template, "{title}", title))
}

// Definition describes one settlement approval workflow: which days of
// the month trigger it and the ordered chain of approval steps. The step
// count is fixed per definition version; changing it invalidates
// in-flight chains encoded with the old length.
type Definition struct {
	Kind        string
	Name        string // display name, used for history text matching
	TriggerDays []int
	// TriggerExpr optionally vetoes a trigger day. Evaluated with
	// day/month/weekday/isBusinessDay in scope; empty means no veto.
	TriggerExpr string
	DayLabels   map[int]string // per-trigger-day settlement batch label
	Steps       []Step
}

// TriggersOnDay reports whether day-of-month is a configured trigger day.
func (d *Definition) TriggersOnDay(day int) bool {
	for _, td := range d.TriggerDays {
		if td == day {
			return true
		}
	}
	return false
}

// AttributedPeriod returns the period a trigger on the given date belongs
// to. Day-1 triggers settle the previous month's final batch, so they are
// attributed to the previous month; all other days attribute directly.
func (d *Definition) AttributedPeriod(date time.Time) Period {
	p := PeriodOf(date)
	if date.Day() == 1 && d.TriggersOnDay(1) {
		return p.Prev()
	}
	return p
}

// PeriodsToWatch returns the periods that may have open instances on the
// given date. Kinds with a day-1 trigger can have last month's final batch
// still pending alongside the current month's.
func (d *Definition) PeriodsToWatch(date time.Time) []Period {
	cur := PeriodOf(date)
	if d.TriggersOnDay(1) {
		return []Period{cur.Prev(), cur}
	}
	return []Period{cur}
}

// Title builds the human-readable settlement title. It always contains
// the display name and the period marker, which is what history matching
// keys on.
func (d *Definition) Title(period Period, day int) string {
	if label, ok := d.DayLabels[day]; ok {
		return fmt.Sprintf("%s %s %s settlement", d.Name, period, label)
	}
	return fmt.Sprintf("%s %s settlement", d.Name, period)
}

// DeadlineException overrides the weekly trigger for the ISO week its key
// date falls in: skip the week entirely, move to another weekday within
// the week, or move to an explicit date.
type DeadlineException struct {
	Skip    bool
	Weekday *time.Weekday
	Date    *time.Time
}

// DeadlineDefinition describes a weekly groupware-deadline workflow for
// one company.
type DeadlineDefinition struct {
	Company            string
	Name               string // display name, used for history text matching
	Owners             []string
	TransferManager    string
	DefaultWeekday     time.Weekday
	FallbackWeekday    time.Weekday
	SkipHolidayWeeks   bool
	AutoShiftOnHoliday bool
	Exceptions         map[string]DeadlineException // keyed "YYYY-MM-DD"
}

// AllowsUser reports whether userID may complete the deadline button.
func (d *DeadlineDefinition) AllowsUser(userID string) bool {
	for _, u := range d.Owners {
		if u == userID {
			return true
		}
	}
	return false
}

// Registry is the read-only set of workflow definitions, loaded once at
// startup.
type Registry struct {
	settlements   map[string]*Definition
	settleOrder   []string
	deadlines     map[string]*DeadlineDefinition
	deadlineOrder []string
}

// NewRegistry builds a registry from explicit definition lists.
func NewRegistry(settlements []*Definition, deadlines []*DeadlineDefinition) *Registry {
	r := &Registry{
		settlements: make(map[string]*Definition),
		deadlines:   make(map[string]*DeadlineDefinition),
	}
	for _, d := range settlements {
		r.settlements[d.Kind] = d
		r.settleOrder = append(r.settleOrder, d.Kind)
	}
	for _, d := range deadlines {
		r.deadlines[d.Company] = d
		r.deadlineOrder = append(r.deadlineOrder, d.Company)
	}
	return r
}

// Settlement looks up a settlement workflow by kind.
func (r *Registry) Settlement(kind string) (*Definition, bool) {
	d, ok := r.settlements[kind]
	return d, ok
}

// Settlements returns all settlement workflows in registration order.
func (r *Registry) Settlements() []*Definition {
	out := make([]*Definition, 0, len(r.settleOrder))
	for _, kind := range r.settleOrder {
		out = append(out, r.settlements[kind])
	}
	return out
}

// Deadline looks up a deadline workflow by company.
func (r *Registry) Deadline(company string) (*DeadlineDefinition, bool) {
	d, ok := r.deadlines[company]
	return d, ok
}

// Deadlines returns all deadline workflows in registration order.
func (r *Registry) Deadlines() []*DeadlineDefinition {
	out := make([]*DeadlineDefinition, 0, len(r.deadlineOrder))
	for _, company := range r.deadlineOrder {
		out = append(out, r.deadlines[company])
	}
	return out
}

// DefaultRegistry returns the production workflow set.
func DefaultRegistry() *Registry {
	settlementSteps := func(drafter string) []Step {
		return []Step{
			{Role: "settlement_owner", UserID: drafter, Template: "Has the payment draft for {title} been registered?", Done: "Draft registration complete"},
			{Role: "finance_lead", UserID: "U03ABD7F9DE", Template: "Requesting approval for {title}.", Done: "Lead approval complete"},
			{Role: "ceo", UserID: "U013R34Q719", Template: "Requesting approval for {title}.", Done: "CEO approval complete"},
			{Role: "accounting_manager", UserID: "U06K3R3R6QK", Template: "Has the approval for {title} been completed?", Done: "Accounting sign-off complete"},
			{Role: "finance_manager", UserID: "U044Z1AB6CT", Template: "Requesting transfer for {title}.", Done: "Transfer registration complete"},
		}
	}

	settlements := []*Definition{
		{
			Kind:        "stylemall",
			Name:        "StyleMall",
			TriggerDays: []int{11, 25},
			DayLabels:   map[int]string{11: "regular", 25: "mid-month"},
			Steps:       settlementSteps("U02JESZKDAT"),
		},
		{
			Kind:        "freshmart",
			Name:        "FreshMart",
			TriggerDays: []int{1, 11, 21},
			DayLabels:   map[int]string{1: "3rd batch", 11: "1st batch", 21: "2nd batch"},
			Steps:       settlementSteps("U0499M26EJ2"),
		},
	}

	deadlines := []*DeadlineDefinition{
		{
			Company:            "acmelabs",
			Name:               "Acme Labs",
			Owners:             []string{"U06K3R3R6QK", "U05R2F50Y4X"},
			TransferManager:    "U044Z1AB6CT",
			DefaultWeekday:     time.Thursday,
			FallbackWeekday:    time.Wednesday,
			SkipHolidayWeeks:   true,
			AutoShiftOnHoliday: true,
			Exceptions:         map[string]DeadlineException{},
		},
		{
			Company:            "acmestudio",
			Name:               "Acme Studio",
			Owners:             []string{"U06K3R3R6QK", "U05R2F50Y4X"},
			TransferManager:    "U044Z1AB6CT",
			DefaultWeekday:     time.Thursday,
			FallbackWeekday:    time.Wednesday,
			SkipHolidayWeeks:   true,
			AutoShiftOnHoliday: true,
			Exceptions:         map[string]DeadlineException{},
		},
	}

	return NewRegistry(settlements, deadlines)
}
