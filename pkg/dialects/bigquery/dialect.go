package bigquery

import "github.com/leapstack-labs/leapmetrics/pkg/dialect"

func init() {
	dialect.Register(BigQuery)
}

// BigQuery is the BigQuery Standard SQL dialect.
var BigQuery = dialect.New(Name).
	Grains(grains).
	Durations(durations).
	Symmetric(symmetric).
	Build()
