// Package tradingday maps a branch's local trading day onto the UTC time
// window used to query the POS API.
package tradingday

import (
	"fmt"
	"time"
)

const (
	// DateLayout is the calendar date format of a trading day.
	DateLayout = "2006-01-02"
	// QueryLayout is the timestamp format accepted by the POS OData filter.
	QueryLayout = "2006-01-02T15:04:05Z"
)

// Window is one local calendar day expressed in UTC.
type Window struct {
	Date  time.Time // local midnight
	Start time.Time // UTC, inclusive
	End   time.Time // UTC, inclusive, last whole second of the day
}

// For returns the window of the calendar day of date in loc.
func For(date time.Time, loc *time.Location) Window {
	y, m, d := date.In(loc).Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, loc)
	end := time.Date(y, m, d, 23, 59, 59, 0, loc)

	return Window{
		Date:  start,
		Start: start.UTC(),
		End:   end.UTC(),
	}
}

// Today returns the window of the current local day.
func Today(now time.Time, loc *time.Location) Window {
	return For(now, loc)
}

// Parse returns the window of a YYYY-MM-DD date in loc.
func Parse(date string, loc *time.Location) (Window, error) {
	t, err := time.ParseInLocation(DateLayout, date, loc)
	if err != nil {
		return Window{}, fmt.Errorf("invalid trading date %q (expected YYYY-MM-DD): %w", date, err)
	}
	return For(t, loc), nil
}

// LoadLocation resolves a time zone name, e.g. "Australia/Sydney".
func LoadLocation(name string) (*time.Location, error) {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("failed to load time zone %q: %w", name, err)
	}
	return loc, nil
}

// DateString returns the trading day as YYYY-MM-DD.
func (w Window) DateString() string {
	return w.Date.Format(DateLayout)
}

// StartString returns the window start in query format.
func (w Window) StartString() string {
	return w.Start.Format(QueryLayout)
}

// EndString returns the window end in query format.
func (w Window) EndString() string {
	return w.End.Format(QueryLayout)
}
