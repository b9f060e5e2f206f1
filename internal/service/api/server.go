package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"ogfetch/internal/config"
	"ogfetch/internal/domain"
	ogfetchhttp "ogfetch/internal/http"
	"ogfetch/internal/opengraph"
)

// APIService handles HTTP API requests
type APIService struct {
	config *config.Config
	logger *slog.Logger

	// HTTP server
	server *http.Server
}

// New creates a new API service
func New(
	cfg *config.Config,
	logger *slog.Logger,
	graphRepo domain.GraphRepository,
	cache domain.CacheRepository,
	queueRepo domain.QueueRepository,
) (*APIService, error) {
	client := &http.Client{Timeout: cfg.FetchTimeout}
	parser := opengraph.NewParser(client, logger)

	router := ogfetchhttp.NewRouter(
		logger,
		parser,
		graphRepo,
		cache,
		queueRepo,
		cfg.UserAgent,
		cfg.CacheTTL,
	)

	apiService := &APIService{
		config: cfg,
		logger: logger,
		server: &http.Server{
			Addr:         ":" + cfg.Port,
			Handler:      router.SetupRoutes(),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}

	return apiService, nil
}

// Start begins serving the API
func (s *APIService) Start() error {
	s.logger.Info("Starting API server", "port", s.config.Port)
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the API server
func (s *APIService) Stop(ctx context.Context) error {
	s.logger.Info("Stopping API server...")
	return s.server.Shutdown(ctx)
}
