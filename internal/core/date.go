package core

import (
	"encoding/json"
	"time"
)

// DateFormat is the canonical, zero-padded representation used everywhere a
// date is stored or compared. Range queries rely on lexicographic ordering
// of this format, so dates MUST stay zero padded.
const DateFormat = "2006-01-02"

// Date is a calendar date with day granularity, interpreted in the local
// calendar. Week and day arithmetic never goes through UTC, which keeps
// summaries from shifting by a day across timezones.
type Date struct {
	time.Time
}

// NewDate creates a Date from year, month and day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.Local)}
}

// Today returns the current local date.
func Today() Date {
	y, m, d := time.Now().Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses a strict zero-padded YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.ParseInLocation(DateFormat, s, time.Local)
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// String returns the canonical YYYY-MM-DD form.
func (d Date) String() string { return d.Format(DateFormat) }

// AddDays returns the date n days later (earlier for negative n).
func (d Date) AddDays(n int) Date {
	y, m, day := d.Date()
	return NewDate(y, int(m), day+n)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// DateRange is an inclusive range of calendar dates.
type DateRange struct {
	Start Date
	End   Date
}

// Contains reports whether date falls within the range, boundaries included.
func (r DateRange) Contains(date Date) bool {
	s := date.String()
	return r.Start.String() <= s && s <= r.End.String()
}

// DayRange is the single-day range [anchor, anchor].
func DayRange(anchor Date) DateRange {
	return DateRange{Start: anchor, End: anchor}
}

// WeekRange is the calendar week containing anchor. Weeks run Sunday
// through Saturday, matching how the canteen settles with families.
func WeekRange(anchor Date) DateRange {
	start := anchor.AddDays(-int(anchor.Weekday()))
	return DateRange{Start: start, End: start.AddDays(6)}
}
