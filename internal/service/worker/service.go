package worker

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ogfetch/internal/config"
	"ogfetch/internal/domain"
	"ogfetch/internal/opengraph"
)

// WorkerService processes background extraction jobs
type WorkerService struct {
	config *config.Config
	logger *slog.Logger
	ctx    context.Context
	cancel context.CancelFunc

	// Repositories
	graphRepo domain.GraphRepository
	cache     domain.CacheRepository
	queueRepo domain.QueueRepository

	// Job processor
	processor *JobProcessor

	// WorkerStats tracks worker performance metrics
	stats *WorkerStats
}

// WorkerStats tracks worker performance metrics
type WorkerStats struct {
	JobsProcessed  int64
	JobsSucceeded  int64
	JobsFailed     int64
	LastJobTime    time.Time
	AverageJobTime time.Duration
}

// New creates a new worker service
func New(
	cfg *config.Config,
	logger *slog.Logger,
	graphRepo domain.GraphRepository,
	cache domain.CacheRepository,
	queueRepo domain.QueueRepository,
) (*WorkerService, error) {
	ctx, cancel := context.WithCancel(context.Background())

	client := &http.Client{Timeout: cfg.FetchTimeout}
	parser := opengraph.NewParser(client, logger)

	workerService := &WorkerService{
		config:    cfg,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
		graphRepo: graphRepo,
		cache:     cache,
		queueRepo: queueRepo,
		processor: NewJobProcessor(logger, parser, graphRepo, cache, cfg.CacheTTL),
		stats:     &WorkerStats{},
	}

	return workerService, nil
}

// Start begins processing jobs
func (w *WorkerService) Start() error {
	w.logger.Info("Starting worker service...")

	go w.processJobs()

	// Wait for interrupt signal
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	w.logger.Info("Worker service is running. Press Ctrl+C to stop.")
	<-stop

	w.logger.Info("Shutting down worker service...")
	return w.Stop()
}

// Stop gracefully shuts down the worker service
func (w *WorkerService) Stop() error {
	w.logger.Info("Stopping worker service...")
	w.cancel()
	w.logger.Info("Worker service stopped")
	return nil
}

// processJobs continuously processes jobs from the queue
func (w *WorkerService) processJobs() {
	ticker := time.NewTicker(5 * time.Second) // Check for jobs every 5 seconds
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			w.logger.Info("Job processing stopped")
			return
		case <-ticker.C:
			w.processPendingJobs()
		}
	}
}

// processPendingJobs drains pending work and requeues due retries
func (w *WorkerService) processPendingJobs() {
	if err := w.queueRepo.ProcessRetryJobs(w.ctx, domain.JobTypeExtractGraph); err != nil {
		w.logger.Error("Failed to process retry jobs", "error", err)
	}

	w.processJobType(domain.JobTypeExtractGraph)
}

// processJobType processes all pending jobs of a specific type
func (w *WorkerService) processJobType(jobType string) {
	ctx := w.ctx

	pendingCount, err := w.queueRepo.GetPendingCount(ctx, jobType)
	if err != nil {
		w.logger.Error("Failed to get pending job count",
			"error", err,
			"job_type", jobType,
		)
		return
	}

	if pendingCount == 0 {
		return
	}

	w.logger.Debug("Processing pending jobs",
		"job_type", jobType,
		"count", pendingCount,
	)

	// Process jobs (limit to 10 per cycle to avoid overwhelming the system)
	maxJobs := 10
	if pendingCount < maxJobs {
		maxJobs = pendingCount
	}

	for i := 0; i < maxJobs; i++ {
		job, err := w.queueRepo.Dequeue(ctx, jobType)
		if err != nil {
			w.logger.Error("Failed to dequeue job",
				"error", err,
				"job_type", jobType,
			)
			continue
		}

		if job == nil {
			break // No more jobs
		}

		w.processJob(job)
	}
}

// processJob processes a single job
func (w *WorkerService) processJob(job *domain.QueueJob) {
	startTime := time.Now()
	jobLogger := w.logger.With(
		"job_id", job.ID,
		"job_type", job.Type,
	)

	jobLogger.Info("Processing job")

	var processingErr error
	switch job.Type {
	case domain.JobTypeExtractGraph:
		processingErr = w.processor.ProcessGraphExtraction(w.ctx, job.Payload, jobLogger)
	default:
		processingErr = fmt.Errorf("unknown job type: %s", job.Type)
	}

	if processingErr != nil {
		jobLogger.Error("Job processing failed", "error", processingErr)

		if err := w.queueRepo.Fail(w.ctx, job.ID, processingErr.Error()); err != nil {
			jobLogger.Error("Failed to mark job as failed", "error", err)
		}

		w.stats.JobsFailed++
	} else {
		jobLogger.Info("Job processed successfully")

		if err := w.queueRepo.Complete(w.ctx, job.ID); err != nil {
			jobLogger.Error("Failed to mark job as completed", "error", err)
		}

		w.stats.JobsSucceeded++
	}

	w.stats.JobsProcessed++
	w.stats.LastJobTime = time.Now()

	jobDuration := time.Since(startTime)
	if w.stats.JobsProcessed > 1 {
		w.stats.AverageJobTime = time.Duration(
			(int64(w.stats.AverageJobTime) + int64(jobDuration)) / w.stats.JobsProcessed,
		)
	} else {
		w.stats.AverageJobTime = jobDuration
	}

	jobLogger.Debug("Job processing completed",
		"duration", jobDuration,
		"success", processingErr == nil,
	)
}

// GetStats returns current worker statistics
func (w *WorkerService) GetStats() *WorkerStats {
	return w.stats
}

// HealthCheck performs a health check on the worker service
func (w *WorkerService) HealthCheck() error {
	if w.ctx.Err() != nil {
		return fmt.Errorf("worker context cancelled: %w", w.ctx.Err())
	}

	if _, err := w.queueRepo.GetPendingCount(w.ctx, domain.JobTypeExtractGraph); err != nil {
		return fmt.Errorf("queue connectivity check failed: %w", err)
	}

	return nil
}
