package core

import (
	"testing"
	"time"
)

func TestTodayMatchesWallClock(t *testing.T) {
	before := time.Now().Format(DateFormat)
	got := Today().String()
	after := time.Now().Format(DateFormat)
	// Either bound is fine if the test straddles midnight.
	if got != before && got != after {
		t.Fatalf("Today() = %s, wall clock says %s", got, before)
	}
	if _, err := ParseDate(got); err != nil {
		t.Fatalf("Today() not canonical: %v", err)
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-06-12")
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if d.String() != "2024-06-12" {
		t.Fatalf("round trip mismatch: %s", d.String())
	}

	bads := []string{"", "2024-6-12", "12/06/2024", "2024-13-01", "yesterday"}
	for _, s := range bads {
		if _, err := ParseDate(s); err == nil {
			t.Fatalf("%q expected error", s)
		}
	}
}

func TestDateStringIsZeroPadded(t *testing.T) {
	if got := NewDate(2024, 3, 5).String(); got != "2024-03-05" {
		t.Fatalf("expected 2024-03-05, got %s", got)
	}
}

func TestWeekRange(t *testing.T) {
	// Wednesday 2024-06-12 belongs to the week Sunday 06-09 .. Saturday 06-15.
	r := WeekRange(NewDate(2024, 6, 12))
	if r.Start.String() != "2024-06-09" {
		t.Fatalf("expected start 2024-06-09, got %s", r.Start)
	}
	if r.End.String() != "2024-06-15" {
		t.Fatalf("expected end 2024-06-15, got %s", r.End)
	}

	// A Sunday anchors its own week.
	r = WeekRange(NewDate(2024, 6, 9))
	if r.Start.String() != "2024-06-09" || r.End.String() != "2024-06-15" {
		t.Fatalf("sunday anchor: got [%s, %s]", r.Start, r.End)
	}

	// Week ranges cross month boundaries.
	r = WeekRange(NewDate(2024, 7, 2))
	if r.Start.String() != "2024-06-30" || r.End.String() != "2024-07-06" {
		t.Fatalf("month boundary: got [%s, %s]", r.Start, r.End)
	}
}

func TestDayRange(t *testing.T) {
	d := NewDate(2024, 6, 12)
	r := DayRange(d)
	if r.Start.String() != "2024-06-12" || r.End.String() != "2024-06-12" {
		t.Fatalf("got [%s, %s]", r.Start, r.End)
	}
}

func TestRangeContainsInclusiveBounds(t *testing.T) {
	r := DateRange{Start: NewDate(2024, 6, 9), End: NewDate(2024, 6, 15)}
	cases := []struct {
		d    Date
		want bool
	}{
		{NewDate(2024, 6, 9), true},
		{NewDate(2024, 6, 15), true},  // exactly end is included
		{NewDate(2024, 6, 16), false}, // end + 1 day is excluded
		{NewDate(2024, 6, 8), false},
		{NewDate(2024, 6, 12), true},
	}
	for _, tc := range cases {
		if got := r.Contains(tc.d); got != tc.want {
			t.Fatalf("Contains(%s) = %v, want %v", tc.d, got, tc.want)
		}
	}
}

func TestDateJSONRoundTrip(t *testing.T) {
	d := NewDate(2024, 6, 12)
	data, err := d.MarshalJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `"2024-06-12"` {
		t.Fatalf("unexpected encoding %s", data)
	}
	var back Date
	if err := back.UnmarshalJSON(data); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.String() != d.String() {
		t.Fatalf("round trip mismatch: %s != %s", back, d)
	}
}
