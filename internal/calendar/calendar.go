// Package calendar defines a market's trading-day and trading-hours rules,
// and a JSON-file-backed store for persisting a market's holiday set
// between runs.
package calendar

import (
	"time"
)

// Session is one contiguous trading window within a day, e.g. the morning
// or afternoon session of an A-share market, or the single continuous
// session of a US equity market.
type Session struct {
	Start time.Duration // offset from midnight, e.g. 9h30m
	End   time.Duration
}

// Calendar holds a market's trading sessions and holiday set. The zero
// value is not useful; use New.
type Calendar struct {
	Market   string
	Sessions []Session
	holidays map[string]struct{} // date-only, formatted "2006-01-02"
}

// New constructs a Calendar for market with the given sessions and initial
// holiday set.
func New(market string, sessions []Session, holidays []time.Time) *Calendar {
	c := &Calendar{Market: market, Sessions: sessions, holidays: make(map[string]struct{}, len(holidays))}
	for _, h := range holidays {
		c.holidays[dateKey(h)] = struct{}{}
	}
	return c
}

func dateKey(t time.Time) string { return t.UTC().Format("2006-01-02") }

// IsTradingDay reports whether t falls on a trading day: not a weekend,
// not a holiday.
func (c *Calendar) IsTradingDay(t time.Time) bool {
	wd := t.UTC().Weekday()
	if wd == time.Saturday || wd == time.Sunday {
		return false
	}
	_, holiday := c.holidays[dateKey(t)]
	return !holiday
}

// IsTradingTime reports whether t falls on a trading day and within one of
// the calendar's sessions.
func (c *Calendar) IsTradingTime(t time.Time) bool {
	if !c.IsTradingDay(t) {
		return false
	}
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	offset := t.Sub(midnight)
	for _, s := range c.Sessions {
		if offset >= s.Start && offset <= s.End {
			return true
		}
	}
	return false
}

// NextTradingDay returns the next trading day strictly after t, at the
// start of that calendar day.
func (c *Calendar) NextTradingDay(t time.Time) time.Time {
	next := dayStart(t).AddDate(0, 0, 1)
	for !c.IsTradingDay(next) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// PrevTradingDay returns the trading day strictly before t, at the start
// of that calendar day.
func (c *Calendar) PrevTradingDay(t time.Time) time.Time {
	prev := dayStart(t).AddDate(0, 0, -1)
	for !c.IsTradingDay(prev) {
		prev = prev.AddDate(0, 0, -1)
	}
	return prev
}

// TradingDaysBetween returns every trading day in [start, end], inclusive,
// at the start of each calendar day.
func (c *Calendar) TradingDaysBetween(start, end time.Time) []time.Time {
	var days []time.Time
	for d := dayStart(start); !d.After(end); d = d.AddDate(0, 0, 1) {
		if c.IsTradingDay(d) {
			days = append(days, d)
		}
	}
	return days
}

// AddHoliday marks t's calendar date as a holiday.
func (c *Calendar) AddHoliday(t time.Time) { c.holidays[dateKey(t)] = struct{}{} }

// RemoveHoliday unmarks t's calendar date as a holiday.
func (c *Calendar) RemoveHoliday(t time.Time) { delete(c.holidays, dateKey(t)) }

// Holidays returns a snapshot of the holiday dates, in no particular order.
func (c *Calendar) Holidays() []time.Time {
	out := make([]time.Time, 0, len(c.holidays))
	for k := range c.holidays {
		t, err := time.Parse("2006-01-02", k)
		if err == nil {
			out = append(out, t)
		}
	}
	return out
}

func dayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// USEquityRegularSession is the standard 9:30-16:00 continuous US equity
// trading session.
var USEquityRegularSession = Session{Start: 9*time.Hour + 30*time.Minute, End: 16 * time.Hour}

// AShareSessions is the standard two-session A-share trading day.
var AShareSessions = []Session{
	{Start: 9*time.Hour + 30*time.Minute, End: 11*time.Hour + 30*time.Minute},
	{Start: 13 * time.Hour, End: 15 * time.Hour},
}
