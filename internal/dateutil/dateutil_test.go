package dateutil

import (
	"testing"
	"time"
)

func mustParse(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := ParseDate(s)
	if err != nil {
		t.Fatalf("ParseDate(%q): %v", s, err)
	}
	return d
}

func TestParseDate(t *testing.T) {
	cases := []struct {
		in      string
		wantErr bool
	}{
		{"01-01-2024", false},
		{"31-12-2024", false},
		{"2024-01-01", true},
		{"not a date", true},
		{"", true},
	}
	for _, c := range cases {
		_, err := ParseDate(c.in)
		if (err != nil) != c.wantErr {
			t.Errorf("ParseDate(%q) error=%v, wantErr=%v", c.in, err, c.wantErr)
		}
	}
}

func TestParseDates(t *testing.T) {
	dates, errs := ParseDates("01-01-2024; 15-01-2024 ;31-01-2024")
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(dates) != 3 {
		t.Fatalf("got %d dates, want 3", len(dates))
	}
	if !dates[0].Equal(mustParse(t, "01-01-2024")) {
		t.Errorf("dates[0] = %v", dates[0])
	}
}

func TestParseDatesSkipsMalformed(t *testing.T) {
	dates, errs := ParseDates("01-01-2024; garbage ;31-01-2024")
	if len(errs) != 1 {
		t.Fatalf("got %d errors, want 1", len(errs))
	}
	if len(dates) != 2 {
		t.Fatalf("got %d dates, want 2", len(dates))
	}
}

func TestParseRanges(t *testing.T) {
	ranges, errs := ParseRanges("01-01-2024 - 05-01-2024; 10-01-2024")
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(ranges) != 2 {
		t.Fatalf("got %d ranges, want 2", len(ranges))
	}
	if !ranges[0].Start.Equal(mustParse(t, "01-01-2024")) || !ranges[0].End.Equal(mustParse(t, "05-01-2024")) {
		t.Errorf("ranges[0] = %+v", ranges[0])
	}
	if !ranges[1].Start.Equal(ranges[1].End) {
		t.Errorf("single-date range should have Start==End, got %+v", ranges[1])
	}
}

func TestParseRangesRejectsInverted(t *testing.T) {
	_, errs := ParseRanges("05-01-2024 - 01-01-2024")
	if len(errs) != 1 {
		t.Fatalf("got %d errors, want 1 for inverted range", len(errs))
	}
}

func TestIsWeekendLike(t *testing.T) {
	holidays := map[time.Time]struct{}{
		mustParse(t, "01-01-2024"): {}, // Monday holiday
	}
	cases := []struct {
		date string
		want bool
	}{
		{"05-01-2024", true},  // Friday
		{"06-01-2024", true},  // Saturday
		{"07-01-2024", true},  // Sunday
		{"03-01-2024", false}, // Wednesday
		{"01-01-2024", true},  // holiday (Monday)
		{"31-12-2023", true},  // pre-holiday (Sunday anyway, but also pre-holiday)
	}
	for _, c := range cases {
		got := IsWeekendLike(mustParse(t, c.date), holidays)
		if got != c.want {
			t.Errorf("IsWeekendLike(%s) = %v, want %v", c.date, got, c.want)
		}
	}
}

func TestEffectiveWeekday(t *testing.T) {
	holidays := map[time.Time]struct{}{
		mustParse(t, "03-01-2024"): {}, // Wednesday holiday
	}
	if got := EffectiveWeekday(mustParse(t, "03-01-2024"), holidays); got != 6 {
		t.Errorf("holiday effective weekday = %d, want 6 (Sunday)", got)
	}
	if got := EffectiveWeekday(mustParse(t, "02-01-2024"), holidays); got != 4 {
		t.Errorf("pre-holiday effective weekday = %d, want 4 (Friday)", got)
	}
	if got := EffectiveWeekday(mustParse(t, "01-01-2024"), holidays); got != 0 {
		t.Errorf("ordinary Monday effective weekday = %d, want 0", got)
	}
}

func TestWeekendStart(t *testing.T) {
	holidays := map[time.Time]struct{}{}
	fri := mustParse(t, "05-01-2024")
	sat := mustParse(t, "06-01-2024")
	sun := mustParse(t, "07-01-2024")
	for _, d := range []time.Time{fri, sat, sun} {
		if got := WeekendStart(d, holidays); !got.Equal(fri) {
			t.Errorf("WeekendStart(%v) = %v, want %v", d, got, fri)
		}
	}
}
