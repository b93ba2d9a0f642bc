package toggl

import (
	"testing"
	"time"
)

func TestParseElapsed(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"15m", 15 * time.Minute, false},
		{"2.5h", 150 * time.Minute, false},
		{"1d", 8 * time.Hour, false},
		{"1h 30m", 90 * time.Minute, false},
		{"1H30M", 90 * time.Minute, false},
		{"  45m  ", 45 * time.Minute, false},
		{"", 0, true},
		{"15", 0, true},
		{"h", 0, true},
		{"15 minutes", 0, true},
		{"2.5x", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseElapsed(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseElapsed(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseElapsed(%q) = %v, want %v", tt.in, got, tt.want)
			}
			if IsElapsed(tt.in) == tt.wantErr {
				t.Errorf("IsElapsed(%q) = %v", tt.in, !tt.wantErr)
			}
		})
	}
}

func TestEstimatedSeconds(t *testing.T) {
	pt := func(n int) *int { return &n }
	tests := []struct {
		estimate *int
		want     int64
	}{
		{pt(0), 900},
		{pt(1), 4500},
		{pt(2), 10800},
		{pt(3), 28800},
		{pt(5), -3600},
		{pt(-1), -3600},
		{nil, -3600},
	}
	for _, tt := range tests {
		if got := EstimatedSeconds(tt.estimate); got != tt.want {
			t.Errorf("EstimatedSeconds(%v) = %d, want %d", tt.estimate, got, tt.want)
		}
	}
}
