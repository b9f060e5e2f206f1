package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"ogfetch/internal/domain"
	"ogfetch/internal/opengraph"
)

// JobProcessor handles different types of background jobs
type JobProcessor struct {
	logger    *slog.Logger
	parser    *opengraph.Parser
	graphRepo domain.GraphRepository
	cache     domain.CacheRepository
	cacheTTL  time.Duration
}

// NewJobProcessor creates a new job processor
func NewJobProcessor(
	logger *slog.Logger,
	parser *opengraph.Parser,
	graphRepo domain.GraphRepository,
	cache domain.CacheRepository,
	cacheTTL time.Duration,
) *JobProcessor {
	return &JobProcessor{
		logger:    logger,
		parser:    parser,
		graphRepo: graphRepo,
		cache:     cache,
		cacheTTL:  cacheTTL,
	}
}

// ProcessGraphExtraction runs the full retrieval pipeline for a queued URL,
// then persists and caches the result under the job's fingerprint.
func (p *JobProcessor) ProcessGraphExtraction(ctx context.Context, payload map[string]interface{}, logger *slog.Logger) error {
	url, ok := payload["url"].(string)
	if !ok {
		return fmt.Errorf("missing or invalid url in payload")
	}

	fingerprint, ok := payload["fingerprint"].(string)
	if !ok {
		return fmt.Errorf("missing or invalid fingerprint in payload")
	}

	userAgent, _ := payload["user_agent"].(string)
	strict, _ := payload["strict"].(bool)

	logger.Info("Processing graph extraction job",
		"url", url,
		"fingerprint", fingerprint,
		"strict", strict,
	)

	doc, result, err := p.parser.ParseURLResult(ctx, url, userAgent, strict)
	if err != nil {
		return fmt.Errorf("failed to extract graph from %s: %w", url, err)
	}

	graph := domain.NewGraphFromDocument(doc, fingerprint, result.FinalURL.String(), result.Encoding, time.Now())

	if err := p.graphRepo.Create(ctx, graph); err != nil {
		return fmt.Errorf("failed to persist graph: %w", err)
	}

	// Cache write failures do not fail the job since the record is persisted.
	serialized, err := json.Marshal(graph)
	if err != nil {
		logger.Warn("Failed to encode graph for cache", "error", err)
		return nil
	}
	if err := p.cache.Set(ctx, fingerprint, string(serialized), p.cacheTTL); err != nil {
		logger.Warn("Failed to cache graph", "error", err, "fingerprint", fingerprint)
	}

	logger.Info("Graph extraction complete",
		"graph_id", graph.ID,
		"final_url", graph.FinalURL,
		"entry_count", len(graph.Entries),
	)

	return nil
}
