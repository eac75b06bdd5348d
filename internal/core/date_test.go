package core

import (
	"encoding/json"
	"testing"
)

func TestAddMonthsClamped(t *testing.T) {
	tests := []struct {
		from   Date
		months int
		want   Date
	}{
		{NewDate(2024, 1, 31), 1, NewDate(2024, 2, 29)},
		{NewDate(2023, 1, 31), 1, NewDate(2023, 2, 28)},
		{NewDate(2024, 1, 31), 2, NewDate(2024, 3, 31)},
		{NewDate(2024, 1, 31), 3, NewDate(2024, 4, 30)},
		{NewDate(2024, 11, 15), 3, NewDate(2025, 2, 15)},
		{NewDate(2024, 2, 29), 12, NewDate(2025, 2, 28)},
		{NewDate(2024, 2, 29), 48, NewDate(2028, 2, 29)},
		{NewDate(2024, 3, 31), -1, NewDate(2024, 2, 29)},
	}
	for _, tt := range tests {
		if got := tt.from.AddMonthsClamped(tt.months); !got.Equal(tt.want) {
			t.Errorf("%s + %d months = %s, want %s", tt.from, tt.months, got, tt.want)
		}
	}
}

func TestDaysUntilAndMonthsUntil(t *testing.T) {
	a := NewDate(2024, 1, 31)
	b := NewDate(2024, 3, 1)
	if got := a.DaysUntil(b); got != 30 {
		t.Fatalf("DaysUntil = %d, want 30", got)
	}
	if got := a.MonthsUntil(b); got != 2 {
		t.Fatalf("MonthsUntil = %d, want 2", got)
	}
	if got := b.DaysUntil(a); got != -30 {
		t.Fatalf("DaysUntil reversed = %d, want -30", got)
	}
}

func TestDaysUntilFarApart(t *testing.T) {
	// 400 Gregorian years are exactly 146097 days.
	a := NewDate(2000, 1, 1)
	b := NewDate(2400, 1, 1)
	if got := a.DaysUntil(b); got != 146097 {
		t.Fatalf("DaysUntil = %d, want 146097", got)
	}
	if got := b.DaysUntil(a); got != -146097 {
		t.Fatalf("DaysUntil reversed = %d, want -146097", got)
	}
	if got := NewDate(1900, 1, 1).DaysUntil(NewDate(1900, 3, 1)); got != 59 {
		t.Fatalf("DaysUntil before the epoch = %d, want 59", got)
	}
}

func TestDateJSON(t *testing.T) {
	d := NewDate(2024, 2, 29)
	data, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `"2024-02-29"` {
		t.Fatalf("unexpected json %s", data)
	}
	var back Date
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !back.Equal(d) {
		t.Fatalf("got %s, want %s", back, d)
	}
	if _, err := ParseDate("2024-13-01"); err == nil {
		t.Fatalf("expected parse error")
	}
}
