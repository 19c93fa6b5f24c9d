package invalidation

import (
	"context"
	"log"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var invalidations metric.Int64Counter

func init() {
	meter := otel.Meter("github.com/goliatone/go-productinfo/pkg/invalidation")

	var err error
	invalidations, err = meter.Int64Counter(
		"productinfo.cache.invalidations",
		metric.WithDescription("Number of cache invalidation signals handled"),
	)
	if err != nil {
		log.Fatalf("failed to create cache.invalidations counter: %v", err)
	}
}

func recordInvalidation(ctx context.Context, domain, signal string, remote bool) {
	invalidations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("domain", domain),
		attribute.String("signal", signal),
		attribute.Bool("remote", remote),
	))
}
