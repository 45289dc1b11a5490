package sim

import "testing"

func TestHourOfDay(t *testing.T) {
	cases := []struct {
		at   Time
		want int
	}{
		{0, 0},
		{59 * Minute, 0},
		{Hour, 1},
		{23*Hour + 59*Minute, 23},
		{Day, 0},
		{Day + 5*Hour, 5},
		{3*Day + 21*Hour, 21},
	}
	for _, c := range cases {
		if got := c.at.HourOfDay(); got != c.want {
			t.Fatalf("HourOfDay(%d) = %d, want %d", c.at, got, c.want)
		}
	}
}

func TestSeconds(t *testing.T) {
	if got := (90 * Second).Seconds(); got != 90 {
		t.Fatalf("got %v, want 90", got)
	}
	if got := Time(1500).Seconds(); got != 1.5 {
		t.Fatalf("got %v, want 1.5", got)
	}
}
