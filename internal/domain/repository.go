package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// GraphRepository defines the interface for persisted extraction results
type GraphRepository interface {
	// GetByID retrieves a graph by its UUID
	GetByID(ctx context.Context, id uuid.UUID) (*Graph, error)

	// GetByFingerprint retrieves the most recent graph for a request fingerprint
	GetByFingerprint(ctx context.Context, fingerprint string) (*Graph, error)

	// GetRecent retrieves recently extracted graphs with cursor pagination
	GetRecent(ctx context.Context, cursor *time.Time, limit int) ([]*Graph, error)

	// Create inserts a new graph record
	Create(ctx context.Context, graph *Graph) error

	// UpdateExtractionStatus updates the extraction status of a record
	UpdateExtractionStatus(ctx context.Context, id uuid.UUID, status string) error
}

// CacheRepository defines the collaborator boundary for result caching.
// The core pipeline never touches the cache directly: the serving layer
// hands it a request fingerprint and a serialized document string.
type CacheRepository interface {
	// Get retrieves the serialized document for a fingerprint.
	// A miss returns ("", false, nil), not an error.
	Get(ctx context.Context, fingerprint string) (string, bool, error)

	// Set stores the serialized document for a fingerprint with a TTL
	Set(ctx context.Context, fingerprint, serialized string, ttl time.Duration) error
}

// QueueRepository defines the interface for job queue operations
type QueueRepository interface {
	// Enqueue adds a new job to the queue and returns its ID
	Enqueue(ctx context.Context, jobType string, payload interface{}) (string, error)

	// Dequeue retrieves the next job from the queue
	Dequeue(ctx context.Context, jobType string) (*QueueJob, error)

	// Complete marks a job as completed
	Complete(ctx context.Context, jobID string) error

	// Fail marks a job as failed with error details
	Fail(ctx context.Context, jobID string, errorMsg string) error

	// GetPendingCount returns the number of pending jobs
	GetPendingCount(ctx context.Context, jobType string) (int, error)

	// ProcessRetryJobs moves due retry jobs back onto the main queue
	ProcessRetryJobs(ctx context.Context, jobType string) error

	// GetQueueStats returns counters for a job type
	GetQueueStats(ctx context.Context, jobType string) (map[string]int64, error)
}

// QueueJob represents a job in the processing queue
type QueueJob struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Payload   map[string]interface{} `json:"payload"`
	Status    string                 `json:"status"`
	CreatedAt string                 `json:"created_at"`
	UpdatedAt *string                `json:"updated_at"`
}

// Job types
const (
	JobTypeExtractGraph = "extract_graph"
)

// Job statuses
const (
	JobStatusPending    = "pending"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)
