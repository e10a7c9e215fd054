// Package snowflake provides the Snowflake SQL dialect definition.
// This package is pure Go with no database driver dependencies.
package snowflake

import (
	"fmt"

	"github.com/leapstack-labs/leapmetrics/pkg/core"
	"github.com/leapstack-labs/leapmetrics/pkg/dialect"
)

// Name is the registered dialect name.
const Name = "snowflake"

func truncate(part string) dialect.GrainFunc {
	return func(sql string) string { return fmt.Sprintf("DATE_TRUNC('%s', %s)", part, sql) }
}

func datediff(part string) dialect.DiffFunc {
	return func(start, end string) string { return fmt.Sprintf("DATEDIFF('%s', %s, %s)", part, start, end) }
}

// grains is the Snowflake time-grain table.
var grains = map[core.Grain]dialect.GrainFunc{
	core.GrainRaw:       func(sql string) string { return sql },
	core.GrainTime:      func(sql string) string { return "CAST(" + sql + " as TIMESTAMP)" },
	core.GrainDate:      truncate("DAY"),
	core.GrainWeek:      truncate("WEEK"),
	core.GrainMonth:     truncate("MONTH"),
	core.GrainQuarter:   truncate("QUARTER"),
	core.GrainYear:      truncate("YEAR"),
	core.GrainHourOfDay: func(sql string) string { return "HOUR(" + sql + ")" },
	core.GrainDayOfWeek: func(sql string) string { return "DAYOFWEEK(" + sql + ")" },
}

// durations covers every unit, sub-day included.
var durations = map[core.Unit]dialect.DiffFunc{
	core.UnitSeconds:  datediff("SECOND"),
	core.UnitMinutes:  datediff("MINUTE"),
	core.UnitHours:    datediff("HOUR"),
	core.UnitDays:     datediff("DAY"),
	core.UnitWeeks:    datediff("WEEK"),
	core.UnitMonths:   datediff("MONTH"),
	core.UnitQuarters: datediff("QUARTER"),
	core.UnitYears:    datediff("YEAR"),
}

// symmetric hashes the key with MD5 and keeps it under 1e27 so the sum stays
// within NUMBER(38, 0).
var symmetric = dialect.SymmetricSum{
	AdjustedType: "DECIMAL(38,0)",
	HashPrimaryKey: func(pk string) string {
		return fmt.Sprintf("(TO_NUMBER(MD5(%s), 'XXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXX') %% 1.0e27)::NUMERIC(38, 0)", pk)
	},
	ResultType: "DOUBLE PRECISION",
}
