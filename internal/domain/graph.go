package domain

import (
	"time"

	"github.com/google/uuid"
)

// Graph is the persisted record of one extraction: the document's typed
// fields plus the raw ordered entries, keyed by the request fingerprint
// used for caching and deduplication.
type Graph struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Fingerprint string    `json:"fingerprint" db:"fingerprint"`
	OriginalURL string    `json:"original_url" db:"original_url"`
	FinalURL    string    `json:"final_url" db:"final_url"`

	// Typed Open Graph fields; nil when the property was absent or
	// unparsable on the page.
	Title        *string `json:"title" db:"title"`
	GraphType    *string `json:"graph_type" db:"graph_type"`
	ImageURL     *string `json:"image_url" db:"image_url"`
	CanonicalURL *string `json:"canonical_url" db:"canonical_url"`

	// Entries preserves the raw mapping in first-seen order as key/value
	// pairs (stored as JSONB).
	Entries          [][2]string `json:"entries" db:"entries"`
	LocaleAlternates []string    `json:"locale_alternates" db:"locale_alternates"`

	Encoding         string `json:"encoding" db:"encoding"`
	ExtractionStatus string `json:"extraction_status" db:"extraction_status"`

	FetchedAt time.Time  `json:"fetched_at" db:"fetched_at"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt *time.Time `json:"updated_at" db:"updated_at"`
}

// Extraction status constants
const (
	ExtractionStatusPending    = "pending"
	ExtractionStatusProcessing = "processing"
	ExtractionStatusComplete   = "complete"
	ExtractionStatusFailed     = "failed"
)

// NewGraphFromDocument flattens a document into a persistable record.
func NewGraphFromDocument(doc *Document, fingerprint, finalURL, encoding string, fetchedAt time.Time) *Graph {
	graph := &Graph{
		ID:               uuid.New(),
		Fingerprint:      fingerprint,
		OriginalURL:      doc.OriginalURL(),
		FinalURL:         finalURL,
		LocaleAlternates: doc.LocaleAlternates(),
		Encoding:         encoding,
		ExtractionStatus: ExtractionStatusComplete,
		FetchedAt:        fetchedAt,
		CreatedAt:        time.Now(),
	}

	if title := doc.Title(); title != "" {
		graph.Title = &title
	}
	if graphType := doc.Type(); graphType != "" {
		graph.GraphType = &graphType
	}
	if image := doc.Image(); image != nil {
		s := image.String()
		graph.ImageURL = &s
	}
	if canonical := doc.URL(); canonical != nil {
		s := canonical.String()
		graph.CanonicalURL = &s
	}

	doc.Entries().Each(func(key, value string) {
		graph.Entries = append(graph.Entries, [2]string{key, value})
	})

	return graph
}
