package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestElapsed_Symmetric(t *testing.T) {
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	offsets := []time.Duration{
		0,
		time.Second,
		1500 * time.Millisecond,
		-1500 * time.Millisecond,
		-10 * time.Second,
		59*time.Minute + 59*time.Second,
		-2 * time.Hour,
	}
	for _, d := range offsets {
		t.Run(d.String(), func(t *testing.T) {
			other := base.Add(d)
			assert.Equal(t, Elapsed(base, other), Elapsed(other, base))
		})
	}
}

func TestElapsed_Truncates(t *testing.T) {
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, 1, Elapsed(base, base.Add(1999*time.Millisecond)))
	assert.Equal(t, 0, Elapsed(base, base.Add(999*time.Millisecond)))
	assert.Equal(t, 10, Elapsed(base.Add(10*time.Second), base))
}

func TestElapsed_FarApart(t *testing.T) {
	near := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	far := time.Date(2400, 1, 1, 0, 0, 0, 0, time.UTC)
	want := int(far.Unix() - near.Unix())

	assert.Equal(t, want, Elapsed(near, far))
	assert.Equal(t, want, Elapsed(far, near))
	assert.Positive(t, Elapsed(far, near))
}

func TestCharge(t *testing.T) {
	ref := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	future := time.Date(2400, 1, 1, 0, 0, 0, 0, time.UTC)
	skew := int(future.Unix() - ref.Unix())

	tests := []struct {
		name      string
		remaining int
		reference time.Time
		submitted time.Time
		elapsed   int
		after     int
	}{
		{"within budget", 3600, ref, ref.Add(10 * time.Second), 10, 3590},
		{"exact budget", 30, ref, ref.Add(30 * time.Second), 30, 0},
		{"overrun", 5, ref, ref.Add(30 * time.Second), 30, -25},
		{"submitted before reference", 100, ref, ref.Add(-4 * time.Second), 4, 96},
		{"no reference", 100, time.Time{}, ref, 0, 100},
		{"reference far in the future", 3600, future, ref, skew, 3600 - skew},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			elapsed, after := Charge(tt.remaining, tt.reference, tt.submitted)
			assert.Equal(t, tt.elapsed, elapsed)
			assert.Equal(t, tt.after, after)
		})
	}
}

func TestFormatBudget(t *testing.T) {
	tests := []struct {
		seconds int
		want    string
	}{
		{3600, "60 minutes"},
		{3590, "59 minutes"},
		{119, "1 minutes"},
		{60, "1 minutes"},
		{59, "59 seconds"},
		{1, "1 seconds"},
		{0, "0 seconds"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatBudget(tt.seconds))
		})
	}
}
