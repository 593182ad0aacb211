// Package calendar provides business-day arithmetic against a static
// holiday table. All functions are pure and operate on date-only values.
package calendar

import (
	"fmt"
	"time"
)

// holidays enumerates KR public holidays by date. The table is finite:
// dates beyond its coverage are never classified as holidays. That is a
// known limitation of the static-table approach, not something callers
// should work around.
var holidays = map[string]bool{
	// 2025
	"2025-01-01": true, // New Year's Day
	"2025-02-12": true, // Lunar New Year holiday
	"2025-02-13": true, // Lunar New Year
	"2025-03-01": true, // Independence Movement Day
	"2025-04-05": true, // Children's Day (observed)
	"2025-05-05": true, // Children's Day
	"2025-05-15": true, // Buddha's Birthday
	"2025-06-06": true, // Memorial Day
	"2025-08-15": true, // Liberation Day
	"2025-09-16": true, // Chuseok holiday
	"2025-09-17": true, // Chuseok
	"2025-09-18": true, // Chuseok holiday
	"2025-10-03": true, // National Foundation Day
	"2025-10-09": true, // Hangul Day
	"2025-12-25": true, // Christmas

	// 2026
	"2026-01-01": true, // New Year's Day
	"2026-02-09": true, // Lunar New Year holiday
	"2026-02-10": true, // Lunar New Year
	"2026-02-11": true, // Lunar New Year holiday
	"2026-03-01": true, // Independence Movement Day
	"2026-04-05": true, // Children's Day (observed)
	"2026-05-05": true, // Children's Day
	"2026-05-06": true, // Substitute holiday
	"2026-06-06": true, // Memorial Day
	"2026-08-15": true, // Liberation Day
	"2026-09-04": true, // Chuseok holiday
	"2026-09-05": true, // Chuseok
	"2026-09-06": true, // Chuseok holiday
	"2026-10-03": true, // National Foundation Day
	"2026-10-09": true, // Hangul Day
	"2026-12-25": true, // Christmas
}

// StripTime returns the date at midnight in the same location.
func StripTime(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// SameDay reports whether a and b fall on the same calendar date.
func SameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

// IsWeekend reports whether t is a Saturday or Sunday.
func IsWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// IsHoliday reports whether t is in the static holiday table.
func IsHoliday(t time.Time) bool {
	return holidays[t.Format("2006-01-02")]
}

// IsBusinessDay reports whether t is neither a weekend nor a holiday.
func IsBusinessDay(t time.Time) bool {
	return !IsWeekend(t) && !IsHoliday(t)
}

// NextBusinessDay returns the first business day strictly after t.
func NextBusinessDay(t time.Time) time.Time {
	d := t.AddDate(0, 0, 1)
	for !IsBusinessDay(d) {
		d = d.AddDate(0, 0, 1)
	}
	return StripTime(d)
}

// PrevBusinessDay returns the first business day strictly before t.
func PrevBusinessDay(t time.Time) time.Time {
	d := t.AddDate(0, 0, -1)
	for !IsBusinessDay(d) {
		d = d.AddDate(0, 0, -1)
	}
	return StripTime(d)
}

// AddBusinessDays walks day-by-day from t, counting only business days,
// in the sign of n. The result is a date-only value.
func AddBusinessDays(t time.Time, n int) time.Time {
	if n == 0 {
		return StripTime(t)
	}
	dir := 1
	if n < 0 {
		dir = -1
		n = -n
	}
	d := t
	for count := 0; count < n; {
		d = d.AddDate(0, 0, dir)
		if IsBusinessDay(d) {
			count++
		}
	}
	return StripTime(d)
}

// ISOWeek returns the ISO-8601 week of t as "YYYY-WW".
func ISOWeek(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%04d-%02d", year, week)
}

// SameISOWeek reports whether a and b fall in the same ISO week.
func SameISOWeek(a, b time.Time) bool {
	return ISOWeek(a) == ISOWeek(b)
}

// WeekDates returns the seven dates of t's Monday-based ISO week.
func WeekDates(t time.Time) []time.Time {
	d := StripTime(t)
	offset := int(d.Weekday()) - int(time.Monday)
	if offset < 0 {
		offset += 7 // Sunday belongs to the preceding Monday's week
	}
	monday := d.AddDate(0, 0, -offset)
	days := make([]time.Time, 7)
	for i := range days {
		days[i] = monday.AddDate(0, 0, i)
	}
	return days
}

// HolidayInWeek reports whether any of t's ISO week's seven days is a
// holiday. Weekend holidays count too; a holiday-shortened week stays a
// holiday week no matter which day it lands on.
func HolidayInWeek(t time.Time) bool {
	for _, d := range WeekDates(t) {
		if IsHoliday(d) {
			return true
		}
	}
	return false
}
