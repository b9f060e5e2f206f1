package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"ogfetch/internal/domain"
)

// GraphRepository implements the domain.GraphRepository interface using PostgreSQL
type GraphRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewGraphRepository creates a new PostgreSQL graph repository
func NewGraphRepository(db *sql.DB, logger *slog.Logger) *GraphRepository {
	return &GraphRepository{
		db:     db,
		logger: logger,
	}
}

const graphColumns = `
	id, fingerprint, original_url, final_url,
	title, graph_type, image_url, canonical_url,
	entries, locale_alternates, encoding, extraction_status,
	fetched_at, created_at, updated_at`

// scanGraph reads one row into a domain.Graph, handling nullable columns
// and the JSONB entries payload.
func (r *GraphRepository) scanGraph(row *sql.Row) (*domain.Graph, error) {
	graph := &domain.Graph{}
	var title, graphType, imageURL, canonicalURL sql.NullString
	var updatedAt sql.NullTime
	var entriesBytes []byte

	err := row.Scan(
		&graph.ID,
		&graph.Fingerprint,
		&graph.OriginalURL,
		&graph.FinalURL,
		&title,
		&graphType,
		&imageURL,
		&canonicalURL,
		&entriesBytes,
		pq.Array(&graph.LocaleAlternates),
		&graph.Encoding,
		&graph.ExtractionStatus,
		&graph.FetchedAt,
		&graph.CreatedAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if title.Valid {
		graph.Title = &title.String
	}
	if graphType.Valid {
		graph.GraphType = &graphType.String
	}
	if imageURL.Valid {
		graph.ImageURL = &imageURL.String
	}
	if canonicalURL.Valid {
		graph.CanonicalURL = &canonicalURL.String
	}
	if updatedAt.Valid {
		graph.UpdatedAt = &updatedAt.Time
	}

	if len(entriesBytes) > 0 {
		if err := json.Unmarshal(entriesBytes, &graph.Entries); err != nil {
			r.logger.Warn("Failed to unmarshal graph entries",
				"error", err,
				"graph_id", graph.ID,
			)
			graph.Entries = nil
		}
	}

	return graph, nil
}

// GetByID retrieves a graph by its UUID
func (r *GraphRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Graph, error) {
	query := `SELECT ` + graphColumns + ` FROM graphs WHERE id = $1`

	graph, err := r.scanGraph(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			r.logger.Debug("Graph not found", "graph_id", id)
			return nil, sql.ErrNoRows
		}
		r.logger.Error("Failed to query graph", "error", err, "graph_id", id)
		return nil, fmt.Errorf("failed to query graph: %w", err)
	}

	return graph, nil
}

// GetByFingerprint retrieves the most recent graph for a request fingerprint
func (r *GraphRepository) GetByFingerprint(ctx context.Context, fingerprint string) (*domain.Graph, error) {
	query := `SELECT ` + graphColumns + `
		FROM graphs
		WHERE fingerprint = $1
		ORDER BY created_at DESC
		LIMIT 1`

	graph, err := r.scanGraph(r.db.QueryRowContext(ctx, query, fingerprint))
	if err != nil {
		if err == sql.ErrNoRows {
			r.logger.Debug("No graph for fingerprint", "fingerprint", fingerprint)
			return nil, sql.ErrNoRows
		}
		r.logger.Error("Failed to query graph by fingerprint",
			"error", err,
			"fingerprint", fingerprint,
		)
		return nil, fmt.Errorf("failed to query graph by fingerprint: %w", err)
	}

	return graph, nil
}

// GetRecent retrieves recently extracted graphs with cursor pagination
func (r *GraphRepository) GetRecent(ctx context.Context, cursor *time.Time, limit int) ([]*domain.Graph, error) {
	query := `SELECT ` + graphColumns + `
		FROM graphs
		WHERE ($1::timestamptz IS NULL OR created_at < $1)
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, cursor, limit)
	if err != nil {
		r.logger.Error("Failed to query recent graphs", "error", err)
		return nil, fmt.Errorf("failed to query recent graphs: %w", err)
	}
	defer rows.Close()

	var graphs []*domain.Graph
	for rows.Next() {
		graph := &domain.Graph{}
		var title, graphType, imageURL, canonicalURL sql.NullString
		var updatedAt sql.NullTime
		var entriesBytes []byte

		err := rows.Scan(
			&graph.ID,
			&graph.Fingerprint,
			&graph.OriginalURL,
			&graph.FinalURL,
			&title,
			&graphType,
			&imageURL,
			&canonicalURL,
			&entriesBytes,
			pq.Array(&graph.LocaleAlternates),
			&graph.Encoding,
			&graph.ExtractionStatus,
			&graph.FetchedAt,
			&graph.CreatedAt,
			&updatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan graph row: %w", err)
		}

		if title.Valid {
			graph.Title = &title.String
		}
		if graphType.Valid {
			graph.GraphType = &graphType.String
		}
		if imageURL.Valid {
			graph.ImageURL = &imageURL.String
		}
		if canonicalURL.Valid {
			graph.CanonicalURL = &canonicalURL.String
		}
		if updatedAt.Valid {
			graph.UpdatedAt = &updatedAt.Time
		}
		if len(entriesBytes) > 0 {
			if err := json.Unmarshal(entriesBytes, &graph.Entries); err != nil {
				r.logger.Warn("Failed to unmarshal graph entries",
					"error", err,
					"graph_id", graph.ID,
				)
			}
		}

		graphs = append(graphs, graph)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate graph rows: %w", err)
	}

	return graphs, nil
}

// Create inserts a new graph record
func (r *GraphRepository) Create(ctx context.Context, graph *domain.Graph) error {
	query := `
		INSERT INTO graphs (
			id, fingerprint, original_url, final_url,
			title, graph_type, image_url, canonical_url,
			entries, locale_alternates, encoding, extraction_status,
			fetched_at, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15
		)`

	entries := graph.Entries
	if entries == nil {
		entries = [][2]string{}
	}
	entriesJSON, err := json.Marshal(entries)
	if err != nil {
		r.logger.Error("Failed to marshal graph entries",
			"error", err,
			"graph_id", graph.ID,
		)
		return fmt.Errorf("failed to marshal graph entries: %w", err)
	}

	alternates := graph.LocaleAlternates
	if alternates == nil {
		alternates = []string{}
	}

	updatedAt := graph.CreatedAt
	if graph.UpdatedAt != nil {
		updatedAt = *graph.UpdatedAt
	}

	_, err = r.db.ExecContext(ctx, query,
		graph.ID,
		graph.Fingerprint,
		graph.OriginalURL,
		graph.FinalURL,
		graph.Title,
		graph.GraphType,
		graph.ImageURL,
		graph.CanonicalURL,
		entriesJSON,
		pq.Array(alternates),
		graph.Encoding,
		graph.ExtractionStatus,
		graph.FetchedAt,
		graph.CreatedAt,
		updatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create graph",
			"error", err,
			"graph_id", graph.ID,
			"url", graph.OriginalURL,
		)
		return fmt.Errorf("failed to create graph: %w", err)
	}

	r.logger.Info("Graph created",
		"graph_id", graph.ID,
		"url", graph.OriginalURL,
		"final_url", graph.FinalURL,
		"entry_count", len(graph.Entries),
	)

	return nil
}

// UpdateExtractionStatus updates the extraction status of a record
func (r *GraphRepository) UpdateExtractionStatus(ctx context.Context, id uuid.UUID, status string) error {
	query := `
		UPDATE graphs
		SET extraction_status = $1, updated_at = NOW()
		WHERE id = $2`

	result, err := r.db.ExecContext(ctx, query, status, id)
	if err != nil {
		r.logger.Error("Failed to update extraction status",
			"error", err,
			"graph_id", id,
			"status", status,
		)
		return fmt.Errorf("failed to update extraction status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		r.logger.Warn("No graph found for status update", "graph_id", id)
		return fmt.Errorf("graph not found: %s", id)
	}

	return nil
}
