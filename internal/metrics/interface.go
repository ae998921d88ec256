package metrics

import "time"

type MetricsProvider interface {
	IncrementDatabaseQueries(queryType string, success bool)
	RecordDatabaseQueryDuration(queryType string, duration time.Duration)

	IncrementCacheHits(tier string)
	IncrementCacheMisses(tier string)
	RecordCacheOperationDuration(operation string, duration time.Duration)

	IncrementPostOperations(operation string, success bool)

	IncrementConsumerEvents(status string)

	SetServiceHealth(healthy bool)
}
