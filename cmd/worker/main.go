package main

import (
	"database/sql"
	"fmt"
	"os"

	_ "github.com/lib/pq"

	"ogfetch/internal/config"
	"ogfetch/internal/pkg/logger"
	"ogfetch/internal/repository/postgres"
	"ogfetch/internal/repository/redis"
	"ogfetch/internal/service/worker"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Validate worker-specific configuration
	if err := cfg.ValidateForWorker(); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	// Setup logging
	log := logger.New(cfg.LogLevel)
	log.Info("Starting worker service...")

	// Connect to PostgreSQL
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Error("Failed to ping database", "error", err)
		os.Exit(1)
	}

	// Run database migrations
	if err := postgres.RunMigrations(db, log); err != nil {
		log.Error("Failed to run database migrations", "error", err)
		os.Exit(1)
	}

	// Connect to Redis
	redisClient, err := redis.NewClient(cfg.RedisURL, log)
	if err != nil {
		log.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	// Create repositories
	graphRepo := postgres.NewGraphRepository(db, log)
	cacheRepo := redis.NewCacheRepository(redisClient, log)
	queueRepo := redis.NewQueueRepository(redisClient, log)

	// Create worker service
	workerService, err := worker.New(cfg, log, graphRepo, cacheRepo, queueRepo)
	if err != nil {
		log.Error("Failed to create worker service", "error", err)
		os.Exit(1)
	}

	// Start blocks until an interrupt signal arrives
	if err := workerService.Start(); err != nil {
		log.Error("Worker service failed", "error", err)
		os.Exit(1)
	}

	log.Info("Worker service shutdown complete")
}
