package compiler

import (
	"fmt"

	"github.com/leapstack-labs/leapmetrics/pkg/core"
	"github.com/leapstack-labs/leapmetrics/pkg/dialect"
)

// CompileTimeGrain wraps sql in the dialect expression for grain g.
//
// Warehouses truncate weeks to monday. For any other start day the input is
// shifted forward by the day's offset before truncating and the result is
// shifted back, so buckets begin on the configured day.
func CompileTimeGrain(d *dialect.Dialect, sql string, g core.Grain, weekStart core.Weekday) (string, error) {
	if d == nil {
		return "", dialect.ErrDialectRequired
	}
	if g == core.GrainWeek {
		if k := weekStart.WeekOffset(); k != 0 {
			truncated, err := d.Grain(fmt.Sprintf("%s + %d", sql, k), g)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("%s - %d", truncated, k), nil
		}
	}
	return d.Grain(sql, g)
}

// CompileDuration renders the difference between start and end in unit u.
func CompileDuration(d *dialect.Dialect, start, end string, u core.Unit) (string, error) {
	if d == nil {
		return "", dialect.ErrDialectRequired
	}
	return d.Diff(start, end, u)
}
