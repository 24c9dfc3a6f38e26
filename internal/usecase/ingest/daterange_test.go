package ingest

import (
	"testing"
	"time"
)

func TestParseDateRangeSingleDay(t *testing.T) {
	r, err := ParseDateRange("2022-01-15")
	if err != nil {
		t.Fatalf("ParseDateRange: %v", err)
	}
	if !r.Start.Equal(r.End) {
		t.Fatalf("single day range should have Start == End, got %v..%v", r.Start, r.End)
	}
	if !r.Contains(time.Date(2022, time.January, 15, 23, 0, 0, 0, time.UTC)) {
		t.Fatal("range should contain any time on its day")
	}
	if r.Contains(time.Date(2022, time.January, 16, 0, 0, 0, 0, time.UTC)) {
		t.Fatal("range should not contain the next day")
	}
}

func TestParseDateRangeSpan(t *testing.T) {
	r, err := ParseDateRange("2022-01-15:2022-02-01")
	if err != nil {
		t.Fatalf("ParseDateRange: %v", err)
	}

	for _, day := range []time.Time{
		time.Date(2022, time.January, 15, 0, 0, 0, 0, time.UTC),
		time.Date(2022, time.January, 20, 0, 0, 0, 0, time.UTC),
		time.Date(2022, time.February, 1, 0, 0, 0, 0, time.UTC),
	} {
		if !r.Contains(day) {
			t.Fatalf("range should contain %v", day)
		}
	}
	if r.Contains(time.Date(2022, time.January, 14, 0, 0, 0, 0, time.UTC)) {
		t.Fatal("range should not contain the day before Start")
	}
	if r.Contains(time.Date(2022, time.February, 2, 0, 0, 0, 0, time.UTC)) {
		t.Fatal("range should not contain the day after End")
	}
}

func TestParseDateRangeRejectsBadInput(t *testing.T) {
	for _, s := range []string{
		"",
		"2022/01/15",
		"2022-01-15:2022-01-16:2022-01-17",
		"2022-02-01:2022-01-15", // end before start
		"2022-13-01",
	} {
		if _, err := ParseDateRange(s); err == nil {
			t.Fatalf("ParseDateRange(%q) should fail", s)
		}
	}
}

func TestDateRangeZeroMatchesAllDates(t *testing.T) {
	var r DateRange

	if !r.IsZero() {
		t.Fatal("zero value should report IsZero")
	}
	for _, day := range []time.Time{
		time.Date(1959, time.June, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2022, time.January, 15, 0, 0, 0, 0, time.UTC),
		time.Date(2099, time.December, 31, 0, 0, 0, 0, time.UTC),
	} {
		if !r.Contains(day) {
			t.Fatalf("unbounded range should contain %v", day)
		}
	}
	if r.String() != "all" {
		t.Fatalf("String() = %q", r.String())
	}

	parsed, err := ParseDateRange("2022-01-15")
	if err != nil {
		t.Fatal(err)
	}
	if parsed.IsZero() {
		t.Fatal("a parsed range must not report IsZero")
	}
}

func TestDateRangeString(t *testing.T) {
	r, err := ParseDateRange("2022-01-15")
	if err != nil {
		t.Fatal(err)
	}
	if r.String() != "2022-01-15" {
		t.Fatalf("String() = %q", r.String())
	}

	r, err = ParseDateRange("2022-01-15:2022-02-01")
	if err != nil {
		t.Fatal(err)
	}
	if r.String() != "2022-01-15:2022-02-01" {
		t.Fatalf("String() = %q", r.String())
	}
}
