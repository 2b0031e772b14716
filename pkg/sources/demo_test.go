package sources

import (
	"context"
	"testing"
	"time"
)

func TestDemoSourceCollect(t *testing.T) {
	d := &DemoSource{
		Days:      14,
		OpenHour:  11,
		CloseHour: 23,
		Now:       time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}

	rows, err := d.Collect(context.Background(), "loc-1")
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(rows) == 0 {
		t.Fatal("expected generated rows")
	}

	for _, r := range rows {
		if r.LocationID != "loc-1" {
			t.Fatalf("unexpected location id %q", r.LocationID)
		}
		if r.Timestamp.Hour() < d.OpenHour || r.Timestamp.Hour() >= d.CloseHour {
			t.Fatalf("bucket %v outside open hours [%d,%d)", r.Timestamp, d.OpenHour, d.CloseHour)
		}
		if r.NetSales < 0 {
			t.Fatalf("negative net sales %v", r.NetSales)
		}
	}
}

func TestDemoSourceRespectsContextCancellation(t *testing.T) {
	d := &DemoSource{Days: 90, Now: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := d.Collect(ctx, "loc-1")
	if err == nil {
		t.Fatal("expected context cancellation error")
	}
}

func TestWeekdaySeasonalityCoversAllDays(t *testing.T) {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if _, ok := weekdaySeasonality[d]; !ok {
			t.Fatalf("missing seasonality factor for %v", d)
		}
	}
}
