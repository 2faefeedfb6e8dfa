package replenish

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Spok95/labstock/internal/clock"
)

// ParseDailyAt parses "HH:MM".
func ParseDailyAt(v string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", v)
	if err != nil {
		return 0, 0, fmt.Errorf("daily_at %q: want HH:MM", v)
	}
	return t.Hour(), t.Minute(), nil
}

// NextRun is the first hour:minute strictly after now, in now's location.
func NextRun(now time.Time, hour, minute int) time.Time {
	y, m, d := now.Date()
	next := time.Date(y, m, d, hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		next = time.Date(y, m, d+1, hour, minute, 0, 0, now.Location())
	}
	return next
}

// Daily runs the scanner once a day until ctx is done. Runs never overlap:
// the next wait starts after the previous pass returns.
func Daily(ctx context.Context, s *Scanner, clk clock.Clock, hour, minute int, log *slog.Logger) {
	for {
		next := NextRun(clk.Now(), hour, minute)
		log.Info("replenishment scan scheduled", "at", next)

		timer := time.NewTimer(next.Sub(clk.Now()))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		if _, err := s.Run(ctx); err != nil {
			log.Error("replenishment scan failed", "err", err)
		}
	}
}
