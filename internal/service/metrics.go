package service

import (
	"context"
	"time"

	"go.opencensus.io/stats"
	"go.opencensus.io/stats/view"
	"go.opencensus.io/tag"
)

var (
	// ModelReloads counts metadata model rebuilds
	ModelReloads = stats.Int64("extfields/model_reloads", "Number of metadata model reloads", stats.UnitDimensionless)

	// ModelReloadLatency measures how long a model rebuild takes
	ModelReloadLatency = stats.Float64("extfields/model_reload_latency_ms", "Metadata model reload latency", stats.UnitMilliseconds)

	// FieldMutations counts committed or failed catalog mutations
	FieldMutations = stats.Int64("extfields/field_mutations", "Number of extension field mutations", stats.UnitDimensionless)
)

var (
	KeyOperation  = tag.MustNewKey("operation")
	KeyEntityType = tag.MustNewKey("entity_type")
	KeyOutcome    = tag.MustNewKey("outcome")
)

// Views are registered by the app when tracing is enabled
var Views = []*view.View{
	{
		Name:        "extfields/model_reloads",
		Measure:     ModelReloads,
		Description: "Count of metadata model reloads",
		Aggregation: view.Count(),
	},
	{
		Name:        "extfields/model_reload_latency_ms",
		Measure:     ModelReloadLatency,
		Description: "Distribution of metadata model reload latency",
		Aggregation: view.Distribution(1, 5, 10, 25, 50, 100, 250, 500, 1000),
	},
	{
		Name:        "extfields/field_mutations",
		Measure:     FieldMutations,
		Description: "Count of extension field mutations by operation and outcome",
		TagKeys:     []tag.Key{KeyOperation, KeyEntityType, KeyOutcome},
		Aggregation: view.Count(),
	},
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func recordMutation(ctx context.Context, operation, entityType string, err error) {
	_ = stats.RecordWithTags(ctx, []tag.Mutator{
		tag.Upsert(KeyOperation, operation),
		tag.Upsert(KeyEntityType, entityType),
		tag.Upsert(KeyOutcome, outcome(err)),
	}, FieldMutations.M(1))
}

func recordReload(ctx context.Context, started time.Time) {
	stats.Record(ctx,
		ModelReloads.M(1),
		ModelReloadLatency.M(float64(time.Since(started))/float64(time.Millisecond)),
	)
}
