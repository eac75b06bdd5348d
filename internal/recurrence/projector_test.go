package recurrence

import (
	"errors"
	"strings"
	"testing"

	"financehub/internal/core"

	"github.com/sebdah/goldie/v2"
)

func TestNextDueDate(t *testing.T) {
	tests := []struct {
		name  string
		start core.Date
		freq  core.Frequency
		after core.Date
		want  core.Date
	}{
		{"daily before start", core.NewDate(2024, 1, 10), core.Daily, core.NewDate(2024, 1, 1), core.NewDate(2024, 1, 10)},
		{"daily after start", core.NewDate(2024, 1, 10), core.Daily, core.NewDate(2024, 3, 1), core.NewDate(2024, 3, 1)},
		{"weekly on occurrence", core.NewDate(2024, 1, 1), core.Weekly, core.NewDate(2024, 1, 15), core.NewDate(2024, 1, 15)},
		{"weekly between", core.NewDate(2024, 1, 1), core.Weekly, core.NewDate(2024, 1, 16), core.NewDate(2024, 1, 22)},
		{"biweekly", core.NewDate(2024, 1, 1), core.Biweekly, core.NewDate(2024, 1, 2), core.NewDate(2024, 1, 15)},
		{"monthly jan31 leap", core.NewDate(2024, 1, 31), core.Monthly, core.NewDate(2024, 2, 1), core.NewDate(2024, 2, 29)},
		{"monthly jan31 non-leap", core.NewDate(2023, 1, 31), core.Monthly, core.NewDate(2023, 2, 1), core.NewDate(2023, 2, 28)},
		{"monthly returns to 31", core.NewDate(2024, 1, 31), core.Monthly, core.NewDate(2024, 3, 1), core.NewDate(2024, 3, 31)},
		{"monthly same month later day", core.NewDate(2024, 1, 10), core.Monthly, core.NewDate(2024, 5, 11), core.NewDate(2024, 6, 10)},
		{"yearly feb29 to non-leap", core.NewDate(2024, 2, 29), core.Yearly, core.NewDate(2024, 3, 1), core.NewDate(2025, 2, 28)},
		{"yearly feb29 back to leap", core.NewDate(2024, 2, 29), core.Yearly, core.NewDate(2027, 3, 1), core.NewDate(2028, 2, 29)},
		{"yearly far future", core.NewDate(2000, 6, 15), core.Yearly, core.NewDate(2999, 6, 16), core.NewDate(3000, 6, 15)},
		{"daily four centuries on", core.NewDate(2000, 1, 1), core.Daily, core.NewDate(2400, 1, 1), core.NewDate(2400, 1, 1)},
		{"weekly four centuries on", core.NewDate(2000, 1, 1), core.Weekly, core.NewDate(2400, 1, 2), core.NewDate(2400, 1, 8)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextDueDate(tt.start, tt.freq, tt.after)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Fatalf("NextDueDate() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestNextDueDateIsDeterministic(t *testing.T) {
	start := core.NewDate(2024, 1, 31)
	after := core.NewDate(2024, 6, 1)
	first, err := NextDueDate(start, core.Monthly, after)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, _ := NextDueDate(start, core.Monthly, after)
		if !again.Equal(first) {
			t.Fatalf("run %d returned %s, first returned %s", i, again, first)
		}
	}
}

func TestNextDueDateNeverBeforeAfterOrStart(t *testing.T) {
	start := core.NewDate(2024, 1, 31)
	for _, freq := range []core.Frequency{core.Daily, core.Weekly, core.Biweekly, core.Monthly, core.Yearly} {
		for day := 0; day < 800; day += 13 {
			after := core.NewDate(2023, 12, 1).AddDays(day)
			got, err := NextDueDate(start, freq, after)
			if err != nil {
				t.Fatalf("%s: %v", freq, err)
			}
			if got.Before(after) || got.Before(start) {
				t.Fatalf("%s after %s: got %s", freq, after, got)
			}
			prev, _ := Occurrences(start, freq, start, 1)
			if len(prev) != 1 || !prev[0].Equal(start) {
				t.Fatalf("%s: first occurrence must be the anchor", freq)
			}
		}
	}
}

func TestUnknownFrequency(t *testing.T) {
	_, err := NextDueDate(core.NewDate(2024, 1, 1), "Bimestral", core.NewDate(2024, 1, 1))
	if !errors.Is(err, core.ErrInvalidFrequency) {
		t.Fatalf("expected ErrInvalidFrequency, got %v", err)
	}
}

func TestAdvanceAfterPayment(t *testing.T) {
	st := core.ScheduledTransaction{StartDate: core.NewDate(2024, 1, 31), Frequency: core.Monthly}
	seq := []core.Date{st.StartDate}
	for i := 0; i < 3; i++ {
		next, err := Advance(st, seq[len(seq)-1])
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		seq = append(seq, next)
	}
	want := []core.Date{core.NewDate(2024, 1, 31), core.NewDate(2024, 2, 29), core.NewDate(2024, 3, 31), core.NewDate(2024, 4, 30)}
	for i := range want {
		if !seq[i].Equal(want[i]) {
			t.Fatalf("occurrence %d = %s, want %s", i, seq[i], want[i])
		}
	}
}

func TestOccurrencesBetween(t *testing.T) {
	got, err := OccurrencesBetween(core.NewDate(2024, 1, 1), core.Weekly, core.NewDate(2024, 1, 2), core.NewDate(2024, 1, 31))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 4 || !got[0].Equal(core.NewDate(2024, 1, 8)) || !got[3].Equal(core.NewDate(2024, 1, 29)) {
		t.Fatalf("unexpected occurrences %v", got)
	}
	daily, _ := OccurrencesBetween(core.NewDate(2000, 1, 1), core.Daily, core.NewDate(2000, 1, 1), core.NewDate(2100, 1, 1))
	if len(daily) != maxOccurrences {
		t.Fatalf("expected range to be capped at %d, got %d", maxOccurrences, len(daily))
	}
}

func TestOccurrencesGolden(t *testing.T) {
	schedules := []struct {
		start core.Date
		freq  core.Frequency
	}{
		{core.NewDate(2024, 1, 31), core.Monthly},
		{core.NewDate(2024, 2, 29), core.Yearly},
		{core.NewDate(2024, 1, 1), core.Biweekly},
	}
	var b strings.Builder
	for _, s := range schedules {
		dates, err := Occurrences(s.start, s.freq, s.start, 4)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		b.WriteString(string(s.freq) + " from " + s.start.String() + "\n")
		for _, d := range dates {
			b.WriteString("  " + d.String() + "\n")
		}
	}
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "occurrences", []byte(b.String()))
}
