// Package sources provides connectors that retrieve raw point-of-sale
// transactions from external systems and normalize them into RawBucket
// rows for the forecast pipeline.
//
// Each source implements the Source interface and can be plugged into the
// forecast engine. Available sources include:
//   - DemoSource — synthetic generator, useful for local runs and tests
//   - POSSource  — generic HTTP adapter for a point-of-sale API, extracting
//     ts/net-sales/ticket-count via configurable JSON paths
//
// Sources are intentionally lightweight: they fetch raw rows and normalize
// field names/types, leaving all aggregation and feature building to the
// aggregator and features packages.
package sources

import (
	"context"
	"time"
)

// RawBucket is a single 15-minute point-of-sale observation for one location.
type RawBucket struct {
	LocationID string
	Timestamp  time.Time // bucket start, in the location's local time
	NetSales   float64
	Tickets    int
}

// Source is the interface all data connectors must implement.
//
// Collect fetches every raw bucket available for a location, ordered or
// unordered (the aggregator sorts), and should respect context cancellation.
type Source interface {
	// Collect fetches raw point-of-sale buckets for locationID.
	// It must handle transient errors gracefully and never panic.
	Collect(ctx context.Context, locationID string) ([]RawBucket, error)

	// Name returns a short, unique identifier for the source.
	Name() string
}
