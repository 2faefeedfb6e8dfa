package lots

import (
	"context"
	"fmt"
	"time"
)

// Series is the naming series for lots of an item group prefix in a month:
// PREFIX-YYYY-MM-
func Series(prefix string, date time.Time) string {
	return fmt.Sprintf("%s-%04d-%02d-", prefix, date.Year(), int(date.Month()))
}

func FormatName(series string, n int64) string {
	return fmt.Sprintf("%s%04d", series, n)
}

// NextName allocates the next lot id in series.
func (r *Repo) NextName(ctx context.Context, series string) (string, error) {
	var n int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO naming_series (name, current) VALUES ($1, 1)
		ON CONFLICT (name) DO UPDATE SET current = naming_series.current + 1
		RETURNING current
	`, series).Scan(&n)
	if err != nil {
		return "", err
	}
	return FormatName(series, n), nil
}
