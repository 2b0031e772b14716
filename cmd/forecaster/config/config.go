// Package config provides configuration parsing and management for the forecaster.
//
// It handles both command-line flags and environment variables, with flags taking
// precedence over environment variables. The Config struct contains all runtime
// configuration for the forecaster including:
//   - Location identification (one or more comma-separated location ids)
//   - Forecast parameters (horizon days, run interval)
//   - Service window and labour policy (open hours, wage, labour-cost target)
//   - Data source settings (demo or point-of-sale adapter)
//   - Storage backend settings (memory or redis)
//   - Logging configuration (level, format)
//
// Required configuration values (locations) are validated and the program
// exits with status 1 if they are missing.
//
// Supported configuration sources (in order of precedence):
//  1. Command-line flags
//  2. Environment variables
//  3. Default values
//
// Example usage:
//
//	cfg := config.ParseFlags()
//	// cfg now contains validated configuration
package config

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/brasero/hourly-forecaster/pkg/staffing"
)

// Config holds all forecaster configuration.
type Config struct {
	Listen string

	// Locations is the comma-separated list of location ids this process
	// runs the forecast loop for.
	Locations []string

	HorizonDays        int
	AverageTicketValue float64
	Interval           time.Duration

	OpenTime  string
	CloseTime string
	PrepStart string
	PrepEnd   string
	Timezone  string

	LabourCostPercentage float64
	HourlyWage           float64
	MinLabourHours       float64
	MaxLabourHours       float64

	// ConformalCoverageLevel is the holdout residual quantile (e.g. 0.95
	// for p95) sizing prediction interval half-widths.
	ConformalCoverageLevel float64

	SourceKind    string
	SourceURL     string
	SourceMethod  string
	SourceBody    string
	TimestampPath string
	NetSalesPath  string
	TicketsPath   string

	Storage       string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisTTL      time.Duration

	LogFormat string
	LogLevel  string
}

// ParseFlags parses command-line flags and environment variables into a Config.
// Exits with status 1 if required flags (locations) are missing.
// Environment variables are used as fallbacks when flags are not provided.
func ParseFlags() *Config {
	cfg := &Config{}

	locations := flag.String("locations", getEnv("LOCATIONS", ""), "Comma-separated list of location ids (required)")

	// Server
	listen := flag.String("listen", getEnv("LISTEN", ":8081"), "HTTP listen address")

	// Forecast parameters
	horizonDays := flag.Int("horizon-days", getEnvInt("HORIZON_DAYS", 14), "Forecast horizon in days")
	averageTicketValue := flag.Float64("average-ticket-value", getEnvFloat("AVERAGE_TICKET_VALUE", 25.0), "Average ticket value used to derive covers/orders")
	interval := flag.Duration("interval", getEnvDuration("INTERVAL", 1*time.Hour), "Forecast loop interval per location")

	// Open hours
	openTime := flag.String("open-time", getEnv("OPEN_TIME", "12:00"), "Service open time (HH:MM)")
	closeTime := flag.String("close-time", getEnv("CLOSE_TIME", "23:00"), "Service close time (HH:MM)")
	prepStart := flag.String("prep-start", getEnv("PREP_START", "10:00"), "Prep window start (HH:MM)")
	prepEnd := flag.String("prep-end", getEnv("PREP_END", "12:00"), "Prep window end (HH:MM)")
	timezone := flag.String("timezone", getEnv("TIMEZONE", "Europe/Madrid"), "Location timezone id")

	// Labour policy
	labourCostPercentage := flag.Float64("labour-cost-percentage", getEnvFloat("LABOUR_COST_PERCENTAGE", 0.28), "Target labour cost as a fraction of sales")
	hourlyWage := flag.Float64("hourly-wage", getEnvFloat("HOURLY_WAGE", 14.5), "Average cost of one labour hour")
	minLabourHours := flag.Float64("min-labour-hours", getEnvFloat("MIN_LABOUR_HOURS", 20), "Minimum planned labour hours per day")
	maxLabourHours := flag.Float64("max-labour-hours", getEnvFloat("MAX_LABOUR_HOURS", 120), "Maximum planned labour hours per day")
	conformalCoverage := flag.String("conformal-coverage", getEnv("CONFORMAL_COVERAGE", "p95"), "Prediction interval coverage level (p-notation or decimal, e.g. p95 or 0.95)")

	// Data source
	sourceKind := flag.String("source", getEnv("SOURCE", "demo"), "Data source kind: demo or pos")
	sourceURL := flag.String("source-url", getEnv("SOURCE_URL", ""), "POS source URL (required when source=pos)")
	sourceMethod := flag.String("source-method", getEnv("SOURCE_METHOD", "GET"), "POS source HTTP method")
	sourceBody := flag.String("source-body", getEnv("SOURCE_BODY", ""), "POS source request body")
	timestampPath := flag.String("timestamp-path", getEnv("TIMESTAMP_PATH", ""), "gjson path to the bucket timestamp (required when source=pos)")
	netSalesPath := flag.String("net-sales-path", getEnv("NET_SALES_PATH", ""), "gjson path to net sales (required when source=pos)")
	ticketsPath := flag.String("tickets-path", getEnv("TICKETS_PATH", ""), "gjson path to ticket count")

	// Storage backend
	storage := flag.String("storage", getEnv("STORAGE", "memory"), "Storage backend: memory or redis")
	redisAddr := flag.String("redis-addr", getEnv("REDIS_ADDR", "localhost:6379"), "Redis server address")
	redisPassword := flag.String("redis-password", getEnv("REDIS_PASSWORD", ""), "Redis password (optional)")
	redisDB := flag.Int("redis-db", getEnvInt("REDIS_DB", 0), "Redis database number")
	redisTTL := flag.Duration("redis-ttl", getEnvDuration("REDIS_TTL", 24*time.Hour), "Redis forecast run TTL")

	// Logging
	logFormat := flag.String("log-format", getEnv("LOG_FORMAT", "text"), "Log format: text or json")
	logLevel := flag.String("log-level", getEnv("LOG_LEVEL", "info"), "Log level: debug, info, warn, error")

	flag.Parse()

	cfg.Listen = *listen
	cfg.HorizonDays = *horizonDays
	cfg.AverageTicketValue = *averageTicketValue
	cfg.Interval = *interval
	cfg.OpenTime = *openTime
	cfg.CloseTime = *closeTime
	cfg.PrepStart = *prepStart
	cfg.PrepEnd = *prepEnd
	cfg.Timezone = *timezone
	cfg.LabourCostPercentage = *labourCostPercentage
	cfg.HourlyWage = *hourlyWage
	cfg.MinLabourHours = *minLabourHours
	cfg.MaxLabourHours = *maxLabourHours

	coverageLevel, err := staffing.ParseQuantileLevel(*conformalCoverage)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: --conformal-coverage: %v\n", err)
		os.Exit(1)
	}
	cfg.ConformalCoverageLevel = coverageLevel

	cfg.SourceKind = *sourceKind
	cfg.SourceURL = *sourceURL
	cfg.SourceMethod = *sourceMethod
	cfg.SourceBody = *sourceBody
	cfg.TimestampPath = *timestampPath
	cfg.NetSalesPath = *netSalesPath
	cfg.TicketsPath = *ticketsPath
	cfg.Storage = *storage
	cfg.RedisAddr = *redisAddr
	cfg.RedisPassword = *redisPassword
	cfg.RedisDB = *redisDB
	cfg.RedisTTL = *redisTTL
	cfg.LogFormat = *logFormat
	cfg.LogLevel = *logLevel

	cfg.Locations = splitLocations(*locations)
	if len(cfg.Locations) == 0 {
		fmt.Fprintln(os.Stderr, "Error: --locations is required")
		os.Exit(1)
	}
	if cfg.SourceKind == "pos" {
		if cfg.SourceURL == "" {
			fmt.Fprintln(os.Stderr, "Error: --source-url is required when --source=pos")
			os.Exit(1)
		}
		if cfg.TimestampPath == "" || cfg.NetSalesPath == "" {
			fmt.Fprintln(os.Stderr, "Error: --timestamp-path and --net-sales-path are required when --source=pos")
			os.Exit(1)
		}
	}

	return cfg
}

func splitLocations(raw string) []string {
	var locations []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			locations = append(locations, part)
		}
	}
	return locations
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var i int
		if _, err := fmt.Sscanf(value, "%d", &i); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		var f float64
		if _, err := fmt.Sscanf(value, "%f", &f); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
