package sources

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"text/template"
	"time"

	"github.com/tidwall/gjson"

	kedastraltls "github.com/brasero/hourly-forecaster/pkg/tls"
)

// POSSource is a generic HTTP source that calls a point-of-sale reporting
// API and extracts 15-minute bucket rows using gjson path expressions.
//
// It supports:
//   - Configurable HTTP method and a template-based request body, with
//     {{.LocationID}}, {{.Start}}, {{.End}} available as variables
//   - Custom headers, including bearer tokens rendered from the same
//     template variables
//   - JSON path extraction for timestamp, net sales, and ticket count
//   - Optional mTLS via pkg/tls, for POS providers that require client certs
type POSSource struct {
	// URL is the endpoint to call (required).
	URL string

	// Method is the HTTP method. Defaults to GET if empty.
	Method string

	// Headers are custom HTTP headers. Values may use {{.LocationID}} etc.
	Headers map[string]string

	// Body is the request body template (for POST).
	Body string

	// TimestampPath, NetSalesPath, TicketsPath are gjson paths into the
	// response selecting parallel arrays, e.g. "rows.#.ts", "rows.#.net",
	// "rows.#.tickets".
	TimestampPath string
	NetSalesPath  string
	TicketsPath   string

	// TimestampFormat is "rfc3339" (default) or "unix".
	TimestampFormat string

	// LookbackDays bounds how much history is requested per Collect call.
	// Defaults to 120.
	LookbackDays int

	// TLS configures mutual TLS for providers that require client certs.
	// Zero value (Enabled: false) uses a plain HTTP client.
	TLS kedastraltls.Config

	// HTTPClient is optional; if nil, one is built from TLS (or plain if
	// TLS is disabled).
	HTTPClient *http.Client
}

func (p *POSSource) Name() string { return "pos" }

// Collect calls the configured POS endpoint and extracts raw buckets.
func (p *POSSource) Collect(ctx context.Context, locationID string) ([]RawBucket, error) {
	if p.URL == "" {
		return nil, errors.New("pos source: URL is required")
	}
	if p.TimestampPath == "" || p.NetSalesPath == "" {
		return nil, errors.New("pos source: TimestampPath and NetSalesPath are required")
	}

	lookback := p.LookbackDays
	if lookback <= 0 {
		lookback = 120
	}

	now := time.Now().UTC()
	start := now.AddDate(0, 0, -lookback)

	templateData := map[string]any{
		"LocationID": locationID,
		"Start":      start.Format(time.RFC3339),
		"End":        now.Format(time.RFC3339),
	}

	method := p.Method
	if method == "" {
		method = http.MethodGet
	}

	var bodyReader io.Reader
	if p.Body != "" {
		rendered, err := renderTemplate(p.Body, templateData)
		if err != nil {
			return nil, fmt.Errorf("pos source: render body: %w", err)
		}
		bodyReader = bytes.NewBufferString(rendered)
	}

	cli, err := p.client()
	if err != nil {
		return nil, fmt.Errorf("pos source: build client: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.URL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("pos source: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	for key, value := range p.Headers {
		rendered, err := renderTemplate(value, templateData)
		if err != nil {
			return nil, fmt.Errorf("pos source: render header %s: %w", key, err)
		}
		req.Header.Set(key, rendered)
	}

	resp, err := cli.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pos source: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("pos source: status %d: %s", resp.StatusCode, string(body))
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("pos source: read response: %w", err)
	}

	tsArray := gjson.GetBytes(respBody, p.TimestampPath).Array()
	netArray := gjson.GetBytes(respBody, p.NetSalesPath).Array()
	if len(tsArray) != len(netArray) {
		return nil, fmt.Errorf("pos source: timestamp count (%d) != net sales count (%d)", len(tsArray), len(netArray))
	}

	var ticketsArray []gjson.Result
	if p.TicketsPath != "" {
		ticketsArray = gjson.GetBytes(respBody, p.TicketsPath).Array()
		if len(ticketsArray) != 0 && len(ticketsArray) != len(tsArray) {
			return nil, fmt.Errorf("pos source: tickets count (%d) != timestamp count (%d)", len(ticketsArray), len(tsArray))
		}
	}

	rows := make([]RawBucket, 0, len(tsArray))
	for i := range tsArray {
		ts, err := p.parseTimestamp(tsArray[i])
		if err != nil {
			return nil, fmt.Errorf("pos source: parse timestamp[%d]: %w", i, err)
		}

		tickets := 0
		if len(ticketsArray) == len(tsArray) {
			tickets = int(ticketsArray[i].Float())
		}

		rows = append(rows, RawBucket{
			LocationID: locationID,
			Timestamp:  ts,
			NetSales:   netArray[i].Float(),
			Tickets:    tickets,
		})
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].Timestamp.Before(rows[j].Timestamp) })

	return rows, nil
}

func (p *POSSource) client() (*http.Client, error) {
	if p.HTTPClient != nil {
		return p.HTTPClient, nil
	}
	if !p.TLS.Enabled {
		return &http.Client{Timeout: 30 * time.Second}, nil
	}

	tlsCfg, err := kedastraltls.NewClientTLSConfig(p.TLS.CertFile, p.TLS.KeyFile, p.TLS.CAFile)
	if err != nil {
		return nil, err
	}
	return &http.Client{
		Timeout:   30 * time.Second,
		Transport: &http.Transport{TLSClientConfig: tlsCfg},
	}, nil
}

func (p *POSSource) parseTimestamp(value gjson.Result) (time.Time, error) {
	format := p.TimestampFormat
	if format == "" {
		format = "rfc3339"
	}

	switch format {
	case "rfc3339":
		return time.Parse(time.RFC3339, value.String())
	case "unix":
		return time.Unix(int64(value.Float()), 0).UTC(), nil
	default:
		return time.Time{}, fmt.Errorf("unsupported timestamp format: %s", format)
	}
}

func renderTemplate(tmplStr string, data map[string]any) (string, error) {
	tmpl, err := template.New("").Parse(tmplStr)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
