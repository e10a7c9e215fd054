// Package bigquery provides the BigQuery SQL dialect definition.
// This package is pure Go with no database driver dependencies.
package bigquery

import (
	"fmt"

	"github.com/leapstack-labs/leapmetrics/pkg/core"
	"github.com/leapstack-labs/leapmetrics/pkg/dialect"
)

// Name is the registered dialect name.
const Name = "bigquery"

func truncate(part string) dialect.GrainFunc {
	return func(sql string) string { return fmt.Sprintf("DATE_TRUNC(%s, %s)", sql, part) }
}

func format(pattern string) dialect.GrainFunc {
	return func(sql string) string { return fmt.Sprintf("CAST(%s AS STRING FORMAT '%s')", sql, pattern) }
}

// dateDiff takes the end first, matching DATE_DIFF(later, earlier, part).
func dateDiff(part string) dialect.DiffFunc {
	return func(start, end string) string { return fmt.Sprintf("DATE_DIFF(%s, %s, %s)", end, start, part) }
}

// grains is the BigQuery time-grain table.
var grains = map[core.Grain]dialect.GrainFunc{
	core.GrainRaw:       func(sql string) string { return sql },
	core.GrainTime:      func(sql string) string { return "CAST(" + sql + " as TIMESTAMP)" },
	core.GrainDate:      truncate("DAY"),
	core.GrainWeek:      truncate("WEEK"),
	core.GrainMonth:     truncate("MONTH"),
	core.GrainQuarter:   truncate("QUARTER"),
	core.GrainYear:      truncate("YEAR"),
	core.GrainHourOfDay: format("HH24"),
	core.GrainDayOfWeek: format("DAY"),
}

// DATE_DIFF works on dates, so sub-day units have no rule.
var durations = map[core.Unit]dialect.DiffFunc{
	core.UnitDays:     dateDiff("DAY"),
	core.UnitWeeks:    dateDiff("ISOWEEK"),
	core.UnitMonths:   dateDiff("MONTH"),
	core.UnitQuarters: dateDiff("QUARTER"),
	core.UnitYears:    dateDiff("ISOYEAR"),
}

var symmetric = dialect.SymmetricSum{
	AdjustedType: "FLOAT64",
	HashPrimaryKey: func(pk string) string {
		return fmt.Sprintf("CAST(FARM_FINGERPRINT(%s) AS BIGNUMERIC)", pk)
	},
	ResultType: "FLOAT64",
}
