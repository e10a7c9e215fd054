package core

import (
	"strconv"
	"strings"
)

// CaseSQL lowers a case definition into a CASE expression. Double quotes in
// conditions become single quotes so the warehouse reads them as literals.
func CaseSQL(c *Case) string {
	var b strings.Builder
	b.WriteString("CASE")
	for _, w := range c.Whens {
		b.WriteString(" WHEN ")
		b.WriteString(strings.ReplaceAll(w.SQL, `"`, "'"))
		b.WriteString(" THEN '")
		b.WriteString(w.Label)
		b.WriteString("'")
	}
	if c.Else != "" {
		b.WriteString(" ELSE '")
		b.WriteString(c.Else)
		b.WriteString("'")
	}
	b.WriteString(" END")
	return b.String()
}

// FilterSQL wraps base so it is only evaluated for rows matching every filter.
// Non-matching rows yield NULL.
func FilterSQL(base string, filters []Filter) string {
	conditions := make([]string, len(filters))
	for i, f := range filters {
		conditions[i] = Placeholder(f.Field) + " = '" + f.Value + "'"
	}
	return "CASE WHEN " + strings.Join(conditions, " AND ") + " THEN " + base + " END"
}

// TierSQL buckets base into the half-open ranges defined by tiers, which must
// be strictly ascending and non-empty.
func TierSQL(base string, tiers []float64) string {
	var b strings.Builder
	first, last := formatTier(tiers[0]), formatTier(tiers[len(tiers)-1])

	b.WriteString("CASE WHEN ")
	b.WriteString(base + " < " + first + " THEN 'Below " + first + "'")
	for i := 0; i < len(tiers)-1; i++ {
		lo, hi := formatTier(tiers[i]), formatTier(tiers[i+1])
		b.WriteString(" WHEN " + base + " >= " + lo + " AND " + base + " < " + hi)
		b.WriteString(" THEN '[" + lo + "," + hi + ")'")
	}
	b.WriteString(" WHEN " + base + " >= " + last + " THEN '[" + last + ",inf)'")
	b.WriteString(" ELSE 'Unknown' END")
	return b.String()
}

func formatTier(t float64) string {
	return strconv.FormatFloat(t, 'f', -1, 64)
}
