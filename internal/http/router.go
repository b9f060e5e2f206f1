package http

import (
	"log/slog"
	"net/http"
	"time"

	"ogfetch/internal/domain"
	"ogfetch/internal/http/handlers"
	"ogfetch/internal/http/middleware"
	"ogfetch/internal/opengraph"
)

type Router struct {
	mux           *http.ServeMux
	healthHandler *handlers.HealthHandler
	graphsHandler *handlers.GraphsHandler
	statsHandler  *handlers.StatsHandler
}

func NewRouter(
	logger *slog.Logger,
	parser *opengraph.Parser,
	graphRepo domain.GraphRepository,
	cache domain.CacheRepository,
	queueRepo domain.QueueRepository,
	userAgent string,
	cacheTTL time.Duration,
) *Router {
	mux := http.NewServeMux()

	return &Router{
		mux:           mux,
		healthHandler: handlers.NewHealthHandler(logger),
		graphsHandler: handlers.NewGraphsHandler(logger, parser, graphRepo, cache, queueRepo, userAgent, cacheTTL),
		statsHandler:  handlers.NewStatsHandler(logger, queueRepo),
	}
}

func (r *Router) SetupRoutes() http.Handler {
	// Health check
	r.mux.HandleFunc("GET /health", r.healthHandler.HandleHealth)

	// API v1 routes - Graph retrieval and extraction
	r.mux.HandleFunc("GET /api/v1/graph", r.graphsHandler.GetGraph)
	r.mux.HandleFunc("POST /api/v1/graph/html", r.graphsHandler.ParseHTML)
	r.mux.HandleFunc("POST /api/v1/graph/async", r.graphsHandler.ExtractAsync)
	r.mux.HandleFunc("GET /api/v1/graph/recent", r.graphsHandler.GetRecent)

	// API v1 routes - Stats
	r.mux.HandleFunc("GET /api/v1/stats", r.statsHandler.GetStats)

	// Add CORS middleware
	return middleware.CORS(r.mux)
}
