package window

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

func collect(t *testing.T, startMonth, startYear, endMonth, endYear int) []Month {
	t.Helper()
	seq, err := Sequence(startMonth, startYear, endMonth, endYear)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var out []Month
	for m := range seq {
		out = append(out, m)
	}
	return out
}

func TestSequence(t *testing.T) {
	tests := []struct {
		name                                   string
		startMonth, startYear, endMonth, endYr int
		want                                   []Month
	}{
		{
			name:       "single month",
			startMonth: 3, startYear: 2015, endMonth: 4, endYr: 2015,
			want: []Month{{2015, 3}},
		},
		{
			name:       "crosses year boundary",
			startMonth: 11, startYear: 2015, endMonth: 2, endYr: 2016,
			want: []Month{{2015, 11}, {2015, 12}, {2016, 1}},
		},
		{
			name:       "full year excludes end",
			startMonth: 1, startYear: 2012, endMonth: 1, endYr: 2013,
			want: []Month{
				{2012, 1}, {2012, 2}, {2012, 3}, {2012, 4}, {2012, 5}, {2012, 6},
				{2012, 7}, {2012, 8}, {2012, 9}, {2012, 10}, {2012, 11}, {2012, 12},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := collect(t, tt.startMonth, tt.startYear, tt.endMonth, tt.endYr)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("unexpected months: got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSequenceRestartable(t *testing.T) {
	seq, err := Sequence(6, 2010, 9, 2010)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	count := func() int {
		n := 0
		for range seq {
			n++
		}
		return n
	}
	if a, b := count(), count(); a != 3 || b != 3 {
		t.Fatalf("expected 3 months on both passes, got %d and %d", a, b)
	}
}

func TestSequenceEarlyBreak(t *testing.T) {
	seq, err := Sequence(1, 2010, 1, 2020)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	n := 0
	for range seq {
		n++
		if n == 2 {
			break
		}
	}
	if n != 2 {
		t.Fatalf("expected to stop after 2, got %d", n)
	}
}

func TestSequenceInvalidRange(t *testing.T) {
	tests := []struct {
		name                                   string
		startMonth, startYear, endMonth, endYr int
	}{
		{name: "equal", startMonth: 5, startYear: 2014, endMonth: 5, endYr: 2014},
		{name: "reversed", startMonth: 1, startYear: 2015, endMonth: 12, endYr: 2014},
		{name: "month zero", startMonth: 0, startYear: 2014, endMonth: 5, endYr: 2015},
		{name: "month thirteen", startMonth: 1, startYear: 2014, endMonth: 13, endYr: 2015},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Sequence(tt.startMonth, tt.startYear, tt.endMonth, tt.endYr)
			var rangeErr *InvalidRangeError
			if !errors.As(err, &rangeErr) {
				t.Fatalf("expected InvalidRangeError, got %v", err)
			}
		})
	}
}

func TestMonthIndexRoundTrip(t *testing.T) {
	for ym := 12 * 1999; ym < 12*2003; ym++ {
		m := FromIndex(ym)
		if m.Index() != ym {
			t.Fatalf("round trip failed for %d: got %v", ym, m)
		}
		if m.Month < 1 || m.Month > 12 {
			t.Fatalf("month out of range: %v", m)
		}
	}
}

func TestGrowing(t *testing.T) {
	start := Month{2012, 1}
	seq, err := Growing(start, Month{2012, 4})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var labels []string
	var first Range
	for r := range seq {
		if len(labels) == 0 {
			first = r
		}
		labels = append(labels, r.Label())
	}
	want := []string{"2012-1 to 2012-1", "2012-1 to 2012-2", "2012-1 to 2012-3"}
	if !reflect.DeepEqual(labels, want) {
		t.Fatalf("unexpected labels: got %v, want %v", labels, want)
	}
	if !first.Empty() {
		t.Fatal("expected first window to be empty")
	}
}

func TestRangeContains(t *testing.T) {
	r := Range{Start: Month{2016, 2}, End: Month{2016, 4}}
	tests := []struct {
		at   time.Time
		want bool
	}{
		{time.Date(2016, 1, 31, 23, 59, 59, 0, time.UTC), false},
		{time.Date(2016, 2, 1, 0, 0, 0, 0, time.UTC), true},
		{time.Date(2016, 3, 31, 12, 0, 0, 0, time.UTC), true},
		{time.Date(2016, 4, 1, 0, 0, 0, 0, time.UTC), false},
	}
	for _, tt := range tests {
		if got := r.Contains(tt.at); got != tt.want {
			t.Fatalf("Contains(%v) = %v, want %v", tt.at, got, tt.want)
		}
	}
}

func TestParseMonth(t *testing.T) {
	tests := []struct {
		input   string
		want    Month
		wantErr bool
	}{
		{input: "2012-1", want: Month{Year: 2012, Month: 1}},
		{input: "2012-01", want: Month{Year: 2012, Month: 1}},
		{input: " 2016-12 ", want: Month{Year: 2016, Month: 12}},
		{input: "2016-13", wantErr: true},
		{input: "2016", wantErr: true},
		{input: "x-1", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseMonth(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("ParseMonth(%q) = %v, want %v", tt.input, got, tt.want)
			}
			if reparsed, _ := ParseMonth(got.String()); reparsed != got {
				t.Fatalf("String() does not round-trip: %v", got)
			}
		})
	}
}
