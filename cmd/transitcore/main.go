// Command transitcore runs the single-binary transit routing service:
// load config, open the timetable store, build the initial graph, start
// the background refresh/poll scheduler, and serve the HTTP API —
// merging the teacher's two-process split (a poller plus an apps/api
// HTTP wrapper) into one process, per the published component layout.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dcmshi/transit-planner/internal/config"
	"github.com/dcmshi/transit-planner/internal/feed"
	"github.com/dcmshi/transit-planner/internal/graph"
	"github.com/dcmshi/transit-planner/internal/httpapi"
	"github.com/dcmshi/transit-planner/internal/ingest"
	"github.com/dcmshi/transit-planner/internal/journey"
	"github.com/dcmshi/transit-planner/internal/live"
	"github.com/dcmshi/transit-planner/internal/reliability"
	"github.com/dcmshi/transit-planner/internal/resultcache"
	"github.com/dcmshi/transit-planner/internal/scheduler"
	"github.com/dcmshi/transit-planner/internal/store"
	"github.com/dcmshi/transit-planner/internal/store/postgres"
	"github.com/dcmshi/transit-planner/internal/store/sqlite"
	"github.com/dcmshi/transit-planner/internal/testsupport"
)

func main() {
	log.Println("Starting transitcore...")

	cfg := config.Load()

	// ═══════════════════════════════════════════════════════
	// PHASE 1: Storage
	// ═══════════════════════════════════════════════════════
	ctx := context.Background()
	tt, loader, rel, closeStore := openStore(ctx, cfg)
	defer closeStore()
	log.Println("Storage initialized")

	// ═══════════════════════════════════════════════════════
	// PHASE 2: Core singletons
	// ═══════════════════════════════════════════════════════
	graphCache := graph.NewCache()
	graphBuildCf := cfg.GraphBuildConfig()
	liveStore := live.NewStore()
	tracker := reliability.NewTracker(rel)
	resultCache := resultcache.New()

	var ingester *ingest.Ingester
	if cfg.StaticFeedURL != "" {
		ingester = ingest.NewIngester(cfg.StaticFeedURL)
	} else {
		log.Println("Warning: GTFS_STATIC_URL not set, static refresh disabled")
	}

	var feedClt *feed.Client
	if cfg.TripUpdatesURL != "" || cfg.VehiclePositionsURL != "" || cfg.AlertsURL != "" {
		feedClt = feed.NewClient(cfg.TripUpdatesURL, cfg.VehiclePositionsURL, cfg.AlertsURL)
	} else {
		log.Println("Warning: no live feed URLs set, live polling disabled")
	}

	sched := scheduler.New(
		cfg.SchedulerConfig(),
		tt, loader,
		ingester, feedClt,
		graphCache, graphBuildCf,
		liveStore,
		tracker,
		resultCache,
		testsupport.SystemClock{},
	)

	svc := journey.New(
		tt, loader,
		graphCache, graphBuildCf,
		liveStore,
		tracker,
		resultCache,
		ingester, sched,
		cfg.RoutingConfig(),
		testsupport.SystemClock{},
	)

	// ═══════════════════════════════════════════════════════
	// PHASE 3: Background jobs
	// ═══════════════════════════════════════════════════════
	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sched.Run(runCtx)
	log.Println("Scheduler started")

	// ═══════════════════════════════════════════════════════
	// PHASE 4: HTTP server
	// ═══════════════════════════════════════════════════════
	handler := httpapi.NewHandler(svc, cfg.IngestAuthToken)
	router := httpapi.NewRouter(handler)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("transitcore listening on :%s", cfg.Port)
		log.Println("  GET  /stops")
		log.Println("  GET  /routes")
		log.Println("  GET  /health")
		if cfg.IngestAuthToken != "" {
			log.Println("  POST /admin/ingest/static")
			log.Println("  POST /admin/ingest/reliability")
		}
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	// ═══════════════════════════════════════════════════════
	// PHASE 5: Graceful shutdown
	// ═══════════════════════════════════════════════════════
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Println("Shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}
	log.Println("Goodbye!")
}

// openStore selects Postgres when DATABASE_URL is set, otherwise falls
// back to the local SQLite file, matching config.Config's documented
// precedence. Both backends implement Timetable, Loader, and Reliability
// on the same concrete value; openStore hands back all three views since
// no single store interface embeds the others.
func openStore(ctx context.Context, cfg *config.Config) (store.Timetable, store.Loader, store.Reliability, func()) {
	if cfg.DatabaseURL != "" {
		pg, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to Postgres: %v", err)
		}
		return pg, pg, pg, pg.Close
	}

	sq, err := sqlite.Open(ctx, cfg.SQLitePath)
	if err != nil {
		log.Fatalf("Failed to open SQLite database: %v", err)
	}
	return sq, sq, sq, func() { sq.Close() }
}
