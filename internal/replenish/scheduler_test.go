package replenish

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/Spok95/labstock/internal/clock"
)

func TestParseDailyAt(t *testing.T) {
	t.Parallel()

	h, m, err := ParseDailyAt("02:30")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if h != 2 || m != 30 {
		t.Fatalf("expected 02:30, got %02d:%02d", h, m)
	}

	for _, bad := range []string{"", "2", "25:00", "ab:cd"} {
		if _, _, err := ParseDailyAt(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestNextRun(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("COT", -5*3600)
	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{
			name: "later today",
			now:  time.Date(2025, 4, 15, 1, 0, 0, 0, loc),
			want: time.Date(2025, 4, 15, 2, 0, 0, 0, loc),
		},
		{
			name: "exactly at the hour runs tomorrow",
			now:  time.Date(2025, 4, 15, 2, 0, 0, 0, loc),
			want: time.Date(2025, 4, 16, 2, 0, 0, 0, loc),
		},
		{
			name: "month rollover",
			now:  time.Date(2025, 4, 30, 23, 0, 0, 0, loc),
			want: time.Date(2025, 5, 1, 2, 0, 0, 0, loc),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := NextRun(tt.now, 2, 0)
			if !got.Equal(tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestDaily_ReturnsWhenContextDone(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		Daily(ctx, nil, clock.NewFixed(now), 2, 0, slog.New(slog.NewTextHandler(io.Discard, nil)))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("expected Daily to return after cancel")
	}
}
