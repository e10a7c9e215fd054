package snowflake

import "github.com/leapstack-labs/leapmetrics/pkg/dialect"

func init() {
	dialect.Register(Snowflake)
}

// Snowflake is the Snowflake SQL dialect.
var Snowflake = dialect.New(Name).
	Grains(grains).
	Durations(durations).
	Symmetric(symmetric).
	Build()
