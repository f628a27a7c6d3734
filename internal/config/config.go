// Package config loads the process's environment-driven configuration,
// grounded on the teacher's apps/poller/internal/config: getEnv/getEnvInt
// helpers with defaults, plus the teacher's apps/api/main.go godotenv.Load
// pattern for local development.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/dcmshi/transit-planner/internal/graph"
	"github.com/dcmshi/transit-planner/internal/routing"
	"github.com/dcmshi/transit-planner/internal/scheduler"
)

// Config holds every environment-driven setting cmd/transitcore wires up.
type Config struct {
	Port string

	// Storage. DatabaseURL selects Postgres when set; otherwise SQLitePath
	// is used (defaults to a local dev file).
	DatabaseURL string
	SQLitePath  string

	// Routing defaults (spec.md §6).
	MaxRoutes          int
	MaxTransfers       int
	MinTransferMinutes int
	MaxWalkMetres      float64
	WalkSpeedKPH       float64

	// Background jobs.
	GTFSRefreshHours int
	PollSeconds      int

	// Feed sources. Empty values disable that feed/job.
	StaticFeedURL       string
	TripUpdatesURL      string
	VehiclePositionsURL string
	AlertsURL           string

	// IngestAuthToken gates POST /admin/ingest/*; empty disables those
	// endpoints entirely rather than leaving them open.
	IngestAuthToken string
}

// Load reads .env / .env.local (if present) then the environment,
// applying spec-documented defaults for anything unset.
func Load() *Config {
	_ = godotenv.Load(".env")
	_ = godotenv.Overload(".env.local")

	return &Config{
		Port: getEnv("PORT", "8080"),

		DatabaseURL: getEnv("DATABASE_URL", ""),
		SQLitePath:  getEnv("SQLITE_DATABASE", "./data/transitcore.db"),

		MaxRoutes:          getEnvInt("MAX_ROUTES", 5),
		MaxTransfers:       getEnvInt("MAX_TRANSFERS", 2),
		MinTransferMinutes: getEnvInt("MIN_TRANSFER_MINUTES", 10),
		MaxWalkMetres:      getEnvFloat("MAX_WALK_METRES", 500),
		WalkSpeedKPH:       getEnvFloat("WALK_SPEED_KPH", 4.5),

		GTFSRefreshHours: getEnvInt("GTFS_REFRESH_HOURS", 24),
		PollSeconds:      getEnvInt("POLL_SECONDS", 30),

		StaticFeedURL:       getEnv("GTFS_STATIC_URL", ""),
		TripUpdatesURL:      getEnv("GTFS_TRIP_UPDATES_URL", ""),
		VehiclePositionsURL: getEnv("GTFS_VEHICLE_POSITIONS_URL", ""),
		AlertsURL:           getEnv("GTFS_ALERTS_URL", ""),

		IngestAuthToken: getEnv("INGEST_AUTH_TOKEN", ""),
	}
}

// RoutingConfig derives the internal/routing.Config from loaded settings.
func (c *Config) RoutingConfig() routing.Config {
	return routing.Config{
		MaxRoutes:          c.MaxRoutes,
		MaxTransfers:       c.MaxTransfers,
		MinTransferMinutes: c.MinTransferMinutes,
	}
}

// GraphBuildConfig derives the internal/graph.BuildConfig from loaded
// settings.
func (c *Config) GraphBuildConfig() graph.BuildConfig {
	return graph.BuildConfig{MaxWalkMetres: c.MaxWalkMetres, WalkSpeedKPH: c.WalkSpeedKPH}
}

// SchedulerConfig derives the internal/scheduler.Config from loaded
// settings.
func (c *Config) SchedulerConfig() scheduler.Config {
	return scheduler.Config{
		RefreshInterval: time.Duration(c.GTFSRefreshHours) * time.Hour,
		PollInterval:    time.Duration(c.PollSeconds) * time.Second,
	}
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
