// Package journey is the request-time orchestration layer sitting between
// the HTTP boundary and the routing/reliability/live core: it resolves a
// graph snapshot, calls routing.Engine.FindRoutes, scores every trip leg
// with risk.Combine, aggregates a route-level risk score/label, and owns
// the result-cache lookup and the two admin-triggered jobs. Grounded on
// the teacher's apps/api/handlers pattern of a thin handler delegating to
// an injected repository — here the "repository" is the routing core
// itself rather than a SQL table.
package journey

import (
	"context"
	"fmt"
	"time"

	"github.com/dcmshi/transit-planner/internal/graph"
	"github.com/dcmshi/transit-planner/internal/ingest"
	"github.com/dcmshi/transit-planner/internal/live"
	"github.com/dcmshi/transit-planner/internal/llmtext"
	"github.com/dcmshi/transit-planner/internal/model"
	"github.com/dcmshi/transit-planner/internal/reliability"
	"github.com/dcmshi/transit-planner/internal/resultcache"
	"github.com/dcmshi/transit-planner/internal/risk"
	"github.com/dcmshi/transit-planner/internal/routing"
	"github.com/dcmshi/transit-planner/internal/scheduler"
	"github.com/dcmshi/transit-planner/internal/store"
	"github.com/dcmshi/transit-planner/internal/testsupport"
	"github.com/dcmshi/transit-planner/internal/timeutil"
)

// minSeedWindowDays/maxSeedWindowDays bound trigger_reliability_seed's allowed window_days
// input (spec §6: 1..90).
const (
	minSeedWindowDays = 1
	maxSeedWindowDays = 90
)

// Service wires the routing core's components into the operations the
// HTTP boundary needs: search_stops, get_routes, health,
// trigger_static_ingest, trigger_reliability_seed.
type Service struct {
	tt          store.Timetable
	loader      store.Loader
	graphCache  *graph.Cache
	graphBuild  graph.BuildConfig
	liveStore   *live.Store
	tracker     *reliability.Tracker
	resultCache *resultcache.Cache
	ingester    *ingest.Ingester
	sched       *scheduler.Scheduler
	routingCfg  routing.Config
	clock       testsupport.Clock
}

// New builds a Service from the process's already-constructed
// singletons. sched and ingester may be nil in tests that never exercise
// the admin endpoints.
func New(tt store.Timetable, loader store.Loader, graphCache *graph.Cache, graphBuild graph.BuildConfig, liveStore *live.Store, tracker *reliability.Tracker, resultCache *resultcache.Cache, ingester *ingest.Ingester, sched *scheduler.Scheduler, routingCfg routing.Config, clock testsupport.Clock) *Service {
	return &Service{
		tt:          tt,
		loader:      loader,
		graphCache:  graphCache,
		graphBuild:  graphBuild,
		liveStore:   liveStore,
		tracker:     tracker,
		resultCache: resultCache,
		ingester:    ingester,
		sched:       sched,
		routingCfg:  routingCfg,
		clock:       clock,
	}
}

// SearchStops is search_stops: a case-insensitive substring match on
// stop_name, capped at limit results.
func (s *Service) SearchStops(ctx context.Context, query string, limit int) ([]model.StopResult, error) {
	if limit <= 0 {
		limit = 20
	}
	out, err := s.tt.SearchStops(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search stops: %w", err)
	}
	return out, nil
}

// RoutesResult is get_routes's return shape: the ranked, risk-scored
// routes plus an optional plain-text explanation.
type RoutesResult struct {
	Routes      []model.ScoredRoute
	Explanation string
}

// GetRoutes is get_routes: resolve a cached or freshly computed
// leg-only candidate set against the current graph snapshot, score every
// trip leg's live risk fresh (resultcache never caches risk, only the
// candidate legs), aggregate a route-level score/label, and optionally
// render an explanation. Routes are returned in find_routes' order; risk
// annotates each route but does not reorder them.
func (s *Service) GetRoutes(ctx context.Context, origin, destination string, departureDT time.Time, explain bool) (RoutesResult, error) {
	snap := s.graphCache.Current()
	if snap == nil {
		return RoutesResult{}, fmt.Errorf("get routes: %w", model.ErrNoScheduleData)
	}
	if !snap.HasStop(origin) || !snap.HasStop(destination) {
		return RoutesResult{}, fmt.Errorf("get routes: %w", model.ErrUnknownStop)
	}

	key := resultcache.KeyFor(origin, destination, departureDT)
	now := s.clock.Now()

	candidates, ok := s.resultCache.Get(key, now)
	if !ok {
		engine := routing.NewEngine(snap, s.tt, s.routingCfg)
		results, err := engine.FindRoutes(ctx, origin, destination, departureDT, s.routingCfg.MaxRoutes)
		if err != nil {
			return RoutesResult{}, fmt.Errorf("get routes: %w", err)
		}
		s.resultCache.Put(key, results, now)
		candidates = results
	}

	routes := make([]model.ScoredRoute, 0, len(candidates))
	for _, c := range candidates {
		routes = append(routes, s.scoreRoute(ctx, c, departureDT))
	}

	out := RoutesResult{Routes: routes}
	if explain {
		out.Explanation = llmtext.Explain(routes)
	}
	return out, nil
}

// scoreRoute scores every trip leg via risk.Combine and aggregates the
// route-level risk_score as the worst (maximum) leg score, on the
// reasoning that a journey is only as reliable as its riskiest segment —
// see DESIGN.md's Open Question resolution for the alternative
// (weighted-average) considered and rejected.
func (s *Service) scoreRoute(ctx context.Context, c routing.Result, queryDT time.Time) model.ScoredRoute {
	legs := make([]model.Leg, len(c.Legs))
	copy(legs, c.Legs)

	worst := 0.0
	for i := range legs {
		if legs[i].Kind != model.LegTrip {
			continue
		}
		lr := s.scoreLeg(ctx, legs[i], queryDT)
		legs[i].Risk = &lr
		if lr.RiskScore > worst {
			worst = lr.RiskScore
		}
	}

	return model.ScoredRoute{
		Legs:               legs,
		TotalTravelSeconds: c.TotalTravelSeconds,
		Transfers:          c.Transfers,
		TotalWalkMetres:    c.TotalWalkMetres,
		RiskScore:          round3(worst),
		RiskLabel:          risk.LabelFor(worst),
	}
}

// scoreLeg classifies the reliability bucket from the request's query
// time, then folds the historical prior for that bucket together with
// live signals.
func (s *Service) scoreLeg(ctx context.Context, leg model.Leg, queryDT time.Time) model.LegRisk {
	bucket := bucketForLeg(queryDT)

	prior, err := s.tracker.GetHistoricalReliability(ctx, leg.RouteID, leg.FromStopID, bucket)
	if err != nil {
		prior = reliability.NeutralPrior
	}

	return risk.Combine(risk.Inputs{
		RouteID:         leg.RouteID,
		StopID:          leg.FromStopID,
		TripID:          leg.TripID,
		DepartureTime:   leg.DepartureTime,
		QueryDT:         queryDT,
		HistoricalPrior: prior,
	}, s.liveStore)
}

// bucketForLeg derives the time bucket a leg's historical prior is read
// from using the request's query time, not the leg's own service date or
// departure time. Seeding (reliability.SeedFromStatic) classifies on the
// scheduled service date and hour instead, so a leg queried off-peak reads
// the off-peak record even when it departs during a peak.
func bucketForLeg(queryDT time.Time) model.TimeBucket {
	return model.TimeBucket(timeutil.ClassifyBucket(queryDT))
}

func round3(x float64) float64 {
	return float64(int(x*1000+0.5)) / 1000
}

// HealthReport is health()'s return shape.
type HealthReport struct {
	StopCount         int
	TripCount         int
	ReliabilityCount  int
	GraphBuildID      string
	GraphNodeCount    int
	GraphTripEdges    int
	GraphWalkEdges    int
	NextRefreshAt     time.Time
	LastRefreshAt     time.Time
	LastPollAt        time.Time
	LivePollHealthy   bool
	LivePollEnabled   bool
	ResultCacheLen    int
}

// Health is health(): current store/graph sizes plus the scheduler's
// last-run status.
func (s *Service) Health(ctx context.Context) (HealthReport, error) {
	stops, err := s.tt.ListStops(ctx)
	if err != nil {
		return HealthReport{}, fmt.Errorf("health: list stops: %w", err)
	}
	tripCount, err := s.tt.TripCount(ctx)
	if err != nil {
		return HealthReport{}, fmt.Errorf("health: trip count: %w", err)
	}
	reliabilityCount, err := s.tracker.RecordCount(ctx)
	if err != nil {
		return HealthReport{}, fmt.Errorf("health: reliability count: %w", err)
	}

	report := HealthReport{
		StopCount:        len(stops),
		TripCount:        tripCount,
		ReliabilityCount: reliabilityCount,
		ResultCacheLen:   s.resultCache.Len(),
	}

	if snap := s.graphCache.Current(); snap != nil {
		report.GraphBuildID = snap.BuildID
		report.GraphNodeCount = snap.NodeCount()
		report.GraphTripEdges = snap.TripEdgeCount()
		report.GraphWalkEdges = snap.WalkEdgeCount()
	}

	if s.sched != nil {
		st := s.sched.Status()
		report.NextRefreshAt = st.NextRefreshAt
		report.LastRefreshAt = st.LastRefreshAt
		report.LastPollAt = st.LastPollAt
		report.LivePollHealthy = st.PollHealthy
		report.LivePollEnabled = st.LivePolling
	}

	return report, nil
}

// TriggerStaticIngest is trigger_static_ingest: refresh the static feed,
// rebuild the graph, reseed reliability in overwrite mode, and
// invalidate the result cache — synchronously, so the caller's response
// reflects the outcome.
func (s *Service) TriggerStaticIngest(ctx context.Context) (ingest.Result, error) {
	if s.ingester == nil || s.loader == nil {
		return ingest.Result{}, fmt.Errorf("trigger static ingest: %w", model.ErrTransientFetch)
	}

	now := s.clock.Now()
	result, err := s.ingester.Refresh(ctx, s.loader, now)
	if err != nil {
		return ingest.Result{}, fmt.Errorf("trigger static ingest: %w", err)
	}

	snap, err := graph.Build(ctx, s.tt, s.graphBuild)
	if err != nil {
		return ingest.Result{}, fmt.Errorf("trigger static ingest: rebuild graph: %w", err)
	}
	s.graphCache.Swap(snap)

	if err := s.tracker.SeedFromStatic(ctx, s.tt, maxSeedWindowDays, reliability.SeedOverwrite, now); err != nil {
		return ingest.Result{}, fmt.Errorf("trigger static ingest: reseed reliability: %w", err)
	}

	s.resultCache.InvalidateAll()
	return result, nil
}

// TriggerReliabilitySeed is trigger_reliability_seed: seed synthetic
// reliability priors from the static schedule across windowDays,
// clamped to spec's 1..90 range. Fails with model.ErrNoScheduleData if
// no trips are loaded, which the HTTP boundary maps to a Conflict.
func (s *Service) TriggerReliabilitySeed(ctx context.Context, windowDays int) error {
	if windowDays < minSeedWindowDays {
		windowDays = minSeedWindowDays
	}
	if windowDays > maxSeedWindowDays {
		windowDays = maxSeedWindowDays
	}
	now := s.clock.Now()
	if err := s.tracker.SeedFromStatic(ctx, s.tt, windowDays, reliability.SeedOverwrite, now); err != nil {
		return fmt.Errorf("trigger reliability seed: %w", err)
	}
	return nil
}
