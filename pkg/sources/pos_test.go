package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestPOSSourceCollect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"rows": [
				{"ts": "2026-03-01T12:00:00Z", "net": 120.5, "tickets": 6},
				{"ts": "2026-03-01T12:15:00Z", "net": 95.0, "tickets": 4}
			]
		}`))
	}))
	defer srv.Close()

	p := &POSSource{
		URL:           srv.URL,
		TimestampPath: "rows.#.ts",
		NetSalesPath:  "rows.#.net",
		TicketsPath:   "rows.#.tickets",
	}

	rows, err := p.Collect(context.Background(), "loc-9")
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].NetSales != 120.5 || rows[0].Tickets != 6 {
		t.Fatalf("unexpected first row: %+v", rows[0])
	}
	if rows[0].LocationID != "loc-9" {
		t.Fatalf("unexpected location id %q", rows[0].LocationID)
	}
}

func TestPOSSourceRequiresURL(t *testing.T) {
	p := &POSSource{TimestampPath: "a", NetSalesPath: "b"}
	if _, err := p.Collect(context.Background(), "loc-1"); err == nil {
		t.Fatal("expected error for missing URL")
	}
}

func TestPOSSourceMismatchedArrayLengths(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"rows":[{"ts":"2026-03-01T12:00:00Z","net":1}], "extra":[{"net":2},{"net":3}]}`))
	}))
	defer srv.Close()

	p := &POSSource{
		URL:           srv.URL,
		TimestampPath: "rows.#.ts",
		NetSalesPath:  "extra.#.net",
	}
	if _, err := p.Collect(context.Background(), "loc-1"); err == nil {
		t.Fatal("expected mismatched-length error")
	}
}
