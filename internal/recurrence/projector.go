// Package recurrence projects the due dates of scheduled transactions.
//
// Each frequency has a Stepper that knows how to compute the k-th occurrence
// of a schedule directly from its anchor date, so projections are done in
// closed form instead of walking day by day.
package recurrence

import (
	"fmt"

	"financehub/internal/core"
)

// maxOccurrences bounds range projections.
const maxOccurrences = 1000

// Stepper is the strategy interface for one frequency.
type Stepper interface {
	// Nth returns occurrence k (k >= 0) of a schedule anchored at start.
	Nth(start core.Date, k int) core.Date
	// Index returns the smallest k >= 0 such that Nth(start, k) >= after.
	Index(start, after core.Date) int
}

// fixedDays steps by a constant number of days.
type fixedDays struct{ days int }

func (s fixedDays) Nth(start core.Date, k int) core.Date {
	return start.AddDays(k * s.days)
}

func (s fixedDays) Index(start, after core.Date) int {
	diff := start.DaysUntil(after)
	if diff <= 0 {
		return 0
	}
	return (diff + s.days - 1) / s.days
}

// calendarMonths steps by whole calendar months, clamping the anchor's day of
// month to the target month's length. Occurrence k is always derived from the
// anchor, so a Jan 31 schedule returns to the 31st whenever the month allows.
type calendarMonths struct{ months int }

func (s calendarMonths) Nth(start core.Date, k int) core.Date {
	return start.AddMonthsClamped(k * s.months)
}

func (s calendarMonths) Index(start, after core.Date) int {
	if !after.After(start) {
		return 0
	}
	k := start.MonthsUntil(after) / s.months
	if s.Nth(start, k).Before(after) {
		k++
	}
	return k
}

var steppers = map[core.Frequency]Stepper{
	core.Daily:    fixedDays{days: 1},
	core.Weekly:   fixedDays{days: 7},
	core.Biweekly: fixedDays{days: 14},
	core.Monthly:  calendarMonths{months: 1},
	core.Yearly:   calendarMonths{months: 12},
}

// StepperFor returns the strategy for a frequency.
func StepperFor(freq core.Frequency) (Stepper, error) {
	s, ok := steppers[freq]
	if !ok {
		return nil, fmt.Errorf("%w: %q", core.ErrInvalidFrequency, freq)
	}
	return s, nil
}

// NextDueDate returns the first occurrence of the schedule (start, freq) that
// falls on or after after. It is pure: equal inputs give equal outputs.
func NextDueDate(start core.Date, freq core.Frequency, after core.Date) (core.Date, error) {
	s, err := StepperFor(freq)
	if err != nil {
		return core.Date{}, err
	}
	if start.IsEmpty() {
		return core.Date{}, fmt.Errorf("next due date: empty start date")
	}
	return s.Nth(start, s.Index(start, after)), nil
}

// Occurrences returns the next n occurrences on or after from.
func Occurrences(start core.Date, freq core.Frequency, from core.Date, n int) ([]core.Date, error) {
	s, err := StepperFor(freq)
	if err != nil {
		return nil, err
	}
	if n <= 0 {
		return nil, nil
	}
	if n > maxOccurrences {
		n = maxOccurrences
	}
	k0 := s.Index(start, from)
	out := make([]core.Date, 0, n)
	for k := k0; k < k0+n; k++ {
		out = append(out, s.Nth(start, k))
	}
	return out, nil
}

// OccurrencesBetween returns the occurrences in [from, to], at most maxOccurrences.
func OccurrencesBetween(start core.Date, freq core.Frequency, from, to core.Date) ([]core.Date, error) {
	s, err := StepperFor(freq)
	if err != nil {
		return nil, err
	}
	var out []core.Date
	for k := s.Index(start, from); len(out) < maxOccurrences; k++ {
		d := s.Nth(start, k)
		if d.After(to) {
			break
		}
		out = append(out, d)
	}
	return out, nil
}

// Refresh recomputes a schedule's next due date relative to today.
func Refresh(st core.ScheduledTransaction, today core.Date) (core.Date, error) {
	return NextDueDate(st.StartDate, st.Frequency, today)
}

// Advance returns the due date that follows the occurrence paid on paid.
func Advance(st core.ScheduledTransaction, paid core.Date) (core.Date, error) {
	return NextDueDate(st.StartDate, st.Frequency, paid.AddDays(1))
}
