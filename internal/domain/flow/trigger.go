package flow

import (
	"time"

	"github.com/settlebot/backend/internal/domain/calendar"
)

// ShouldTrigger decides whether the weekly deadline workflow fires on the
// given date. Rule order matters and is fixed:
//
//  1. An exception whose key date falls in the current ISO week decides
//     the whole week and returns immediately.
//  2. With holiday-week auto-skip enabled, any holiday in the current
//     week suppresses the trigger.
//  3. With auto-shift enabled, a holiday on the default weekday moves the
//     trigger to the fallback weekday of the same week.
//  4. Otherwise the trigger fires on the default weekday.
func (d *DeadlineDefinition) ShouldTrigger(date time.Time) bool {
	today := calendar.StripTime(date)

	// 1. Exception table wins over everything else.
	for key, exc := range d.Exceptions {
		keyDate, err := time.ParseInLocation("2006-01-02", key, today.Location())
		if err != nil {
			continue // malformed key; never let config typos fire triggers
		}
		if !calendar.SameISOWeek(keyDate, today) {
			continue
		}
		switch {
		case exc.Skip:
			return false
		case exc.Date != nil:
			return calendar.SameDay(today, *exc.Date)
		case exc.Weekday != nil:
			return today.Weekday() == *exc.Weekday
		default:
			return false
		}
	}

	// 2. Holiday-week auto-skip.
	if d.SkipHolidayWeeks && calendar.HolidayInWeek(today) {
		return false
	}

	// 3. Holiday auto-shift to the fallback weekday.
	if d.AutoShiftOnHoliday {
		defaultDay := dateOfWeekday(today, d.DefaultWeekday)
		if calendar.IsHoliday(defaultDay) {
			return today.Weekday() == d.FallbackWeekday
		}
	}

	// 4. Plain weekly default.
	return today.Weekday() == d.DefaultWeekday
}

// dateOfWeekday returns the date of the given weekday within t's ISO week.
func dateOfWeekday(t time.Time, wd time.Weekday) time.Time {
	for _, d := range calendar.WeekDates(t) {
		if d.Weekday() == wd {
			return d
		}
	}
	return t // unreachable; WeekDates always covers all seven weekdays
}
