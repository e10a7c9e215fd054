package core

import (
	"fmt"
	"strings"
)

// FieldKind is the role a field plays in a view.
type FieldKind string

// Field kinds.
const (
	KindDimension      FieldKind = "dimension"
	KindMeasure        FieldKind = "measure"
	KindDimensionGroup FieldKind = "dimension_group"
)

// ParseFieldKind parses a field_type value.
func ParseFieldKind(s string) (FieldKind, error) {
	switch k := FieldKind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindDimension, KindMeasure, KindDimensionGroup:
		return k, nil
	default:
		return "", fmt.Errorf("unknown field_type %q", s)
	}
}

// ValueType is the declared type of a field. For measures it doubles as the
// aggregate kind.
type ValueType string

// Value types.
const (
	TypeString        ValueType = "string"
	TypeNumber        ValueType = "number"
	TypeYesNo         ValueType = "yesno"
	TypeDate          ValueType = "date"
	TypeTime          ValueType = "time"
	TypeDuration      ValueType = "duration"
	TypeTier          ValueType = "tier"
	TypeCount         ValueType = "count"
	TypeCountDistinct ValueType = "count_distinct"
	TypeSum           ValueType = "sum"
	TypeAverage       ValueType = "average"
)

// IsAggregate reports whether t is a measure aggregate kind.
func (t ValueType) IsAggregate() bool {
	switch t {
	case TypeCount, TypeCountDistinct, TypeSum, TypeAverage, TypeNumber:
		return true
	}
	return false
}

// Grain is the truncation unit of a time dimension group.
type Grain string

// Time grains.
const (
	GrainRaw       Grain = "raw"
	GrainTime      Grain = "time"
	GrainDate      Grain = "date"
	GrainWeek      Grain = "week"
	GrainMonth     Grain = "month"
	GrainQuarter   Grain = "quarter"
	GrainYear      Grain = "year"
	GrainHourOfDay Grain = "hour_of_day"
	GrainDayOfWeek Grain = "day_of_week"
)

// AllGrains lists every grain in the vocabulary, in declaration order.
var AllGrains = []Grain{
	GrainRaw, GrainTime, GrainDate, GrainWeek, GrainMonth,
	GrainQuarter, GrainYear, GrainHourOfDay, GrainDayOfWeek,
}

// ParseGrain parses a timeframe name.
func ParseGrain(s string) (Grain, error) {
	g := Grain(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllGrains {
		if g == known {
			return g, nil
		}
	}
	return "", fmt.Errorf("unknown timeframe %q", s)
}

// Unit is the difference unit of a duration dimension group. Units are plural
// because they appear that way in member aliases ("days_waiting").
type Unit string

// Duration units.
const (
	UnitSeconds  Unit = "seconds"
	UnitMinutes  Unit = "minutes"
	UnitHours    Unit = "hours"
	UnitDays     Unit = "days"
	UnitWeeks    Unit = "weeks"
	UnitMonths   Unit = "months"
	UnitQuarters Unit = "quarters"
	UnitYears    Unit = "years"
)

// AllUnits lists every duration unit, smallest first. It is also the default
// set of intervals for a duration group that declares none.
var AllUnits = []Unit{
	UnitSeconds, UnitMinutes, UnitHours, UnitDays,
	UnitWeeks, UnitMonths, UnitQuarters, UnitYears,
}

// ParseUnit parses an interval name. Both "day" and "days" are accepted.
func ParseUnit(s string) (Unit, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	if v != "" && !strings.HasSuffix(v, "s") {
		v += "s"
	}
	for _, known := range AllUnits {
		if Unit(v) == known {
			return known, nil
		}
	}
	return "", fmt.Errorf("unknown interval %q", s)
}

// Relationship describes the cardinality of a join.
type Relationship string

// Join relationships.
const (
	OneToOne   Relationship = "one_to_one"
	OneToMany  Relationship = "one_to_many"
	ManyToOne  Relationship = "many_to_one"
	ManyToMany Relationship = "many_to_many"
)

// ParseRelationship parses a relationship name.
func ParseRelationship(s string) (Relationship, error) {
	switch r := Relationship(strings.ToLower(strings.TrimSpace(s))); r {
	case OneToOne, OneToMany, ManyToOne, ManyToMany:
		return r, nil
	default:
		return "", fmt.Errorf("unknown relationship %q", s)
	}
}

// FansOut reports whether the relationship duplicates rows of the joined-from side.
func (r Relationship) FansOut() bool {
	return r == OneToMany || r == ManyToMany
}

// Weekday is the configured first day of the week.
type Weekday string

// Weekdays.
const (
	Monday    Weekday = "monday"
	Tuesday   Weekday = "tuesday"
	Wednesday Weekday = "wednesday"
	Thursday  Weekday = "thursday"
	Friday    Weekday = "friday"
	Saturday  Weekday = "saturday"
	Sunday    Weekday = "sunday"
)

// weekOffsets is the shift applied before week truncation so that buckets
// start on the configured day. Monday is the warehouse default and has none.
var weekOffsets = map[Weekday]int{
	Sunday:    1,
	Saturday:  2,
	Friday:    3,
	Thursday:  4,
	Wednesday: 5,
	Tuesday:   6,
}

// ParseWeekday parses a week_start_day value. An empty value means monday.
func ParseWeekday(s string) (Weekday, error) {
	d := Weekday(strings.ToLower(strings.TrimSpace(s)))
	if d == "" || d == Monday {
		return Monday, nil
	}
	if _, ok := weekOffsets[d]; ok {
		return d, nil
	}
	return "", fmt.Errorf("unknown week_start_day %q", s)
}

// WeekOffset returns the day shift for week alignment. Monday returns 0.
func (d Weekday) WeekOffset() int {
	return weekOffsets[d]
}
