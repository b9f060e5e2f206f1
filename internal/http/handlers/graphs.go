package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"ogfetch/internal/domain"
	"ogfetch/internal/opengraph"
	"ogfetch/internal/pkg/urlnorm"
)

const (
	DefaultPaginationLimit = 25

	// maxHTMLBodyBytes caps POSTed literal HTML.
	maxHTMLBodyBytes = 5 << 20
)

type GraphsHandler struct {
	logger    *slog.Logger
	parser    *opengraph.Parser
	graphRepo domain.GraphRepository
	cache     domain.CacheRepository
	queueRepo domain.QueueRepository

	userAgent string
	cacheTTL  time.Duration
}

func NewGraphsHandler(
	logger *slog.Logger,
	parser *opengraph.Parser,
	graphRepo domain.GraphRepository,
	cache domain.CacheRepository,
	queueRepo domain.QueueRepository,
	userAgent string,
	cacheTTL time.Duration,
) *GraphsHandler {
	return &GraphsHandler{
		logger:    logger,
		parser:    parser,
		graphRepo: graphRepo,
		cache:     cache,
		queueRepo: queueRepo,
		userAgent: userAgent,
		cacheTTL:  cacheTTL,
	}
}

// documentResponse is the payload for documents parsed from literal HTML,
// where no retrieval metadata exists.
type documentResponse struct {
	Title            string      `json:"title"`
	Type             string      `json:"type"`
	Image            string      `json:"image,omitempty"`
	URL              string      `json:"url,omitempty"`
	Entries          [][2]string `json:"entries"`
	LocaleAlternates []string    `json:"locale_alternates,omitempty"`
	HTML             string      `json:"html"`
}

// asyncRequest is the body of an async extraction request.
type asyncRequest struct {
	URL       string `json:"url"`
	UserAgent string `json:"user_agent,omitempty"`
	Strict    bool   `json:"strict,omitempty"`
}

// GraphsResponse represents the paginated response for recent graphs
type GraphsResponse struct {
	Graphs  []*domain.Graph `json:"graphs"`
	HasMore bool            `json:"has_more"`
	Cursor  *string         `json:"cursor,omitempty"`
}

// GetGraph handles GET /api/v1/graph?url=...&strict=...&ua=...
// It serves from the result cache when possible and otherwise runs the
// full retrieval pipeline synchronously.
func (h *GraphsHandler) GetGraph(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	rawURL := r.URL.Query().Get("url")
	if rawURL == "" {
		http.Error(w, "url parameter is required", http.StatusBadRequest)
		return
	}

	normalized, err := urlnorm.Normalize(rawURL)
	if err != nil {
		h.logger.Warn("Rejected unparsable URL", "url", rawURL, "error", err)
		http.Error(w, "Invalid URL", http.StatusBadRequest)
		return
	}

	strict := r.URL.Query().Get("strict") == "true"
	userAgent := r.URL.Query().Get("ua")
	if userAgent == "" {
		userAgent = h.userAgent
	}

	fingerprint := urlnorm.RequestKey(normalized, userAgent, strict)

	if cached, hit, err := h.cache.Get(ctx, fingerprint); err != nil {
		h.logger.Warn("Cache lookup failed", "error", err, "fingerprint", fingerprint)
	} else if hit {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(cached))
		return
	}

	doc, result, err := h.parser.ParseURLResult(ctx, normalized, userAgent, strict)
	if err != nil {
		if errors.Is(err, domain.ErrSpecViolation) {
			h.logger.Info("Page has incomplete Open Graph data",
				"url", normalized,
				"error", err,
			)
			h.writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		h.logger.Error("Failed to retrieve page", "error", err, "url", normalized)
		h.writeError(w, http.StatusBadGateway, "failed to retrieve page")
		return
	}

	graph := domain.NewGraphFromDocument(doc, fingerprint, result.FinalURL.String(), result.Encoding, time.Now())

	serialized, err := json.Marshal(graph)
	if err != nil {
		h.logger.Error("Failed to encode graph", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	// Cache and persistence are best-effort around the core pipeline.
	if err := h.cache.Set(ctx, fingerprint, string(serialized), h.cacheTTL); err != nil {
		h.logger.Warn("Failed to cache graph", "error", err, "fingerprint", fingerprint)
	}
	if err := h.graphRepo.Create(ctx, graph); err != nil {
		h.logger.Warn("Failed to persist graph", "error", err, "fingerprint", fingerprint)
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(serialized)
}

// ParseHTML handles POST /api/v1/graph/html: extraction from literal HTML
// in the request body, no retrieval involved.
func (h *GraphsHandler) ParseHTML(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxHTMLBodyBytes))
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}
	if len(body) == 0 {
		http.Error(w, "Request body is required", http.StatusBadRequest)
		return
	}

	strict := r.URL.Query().Get("strict") == "true"

	doc, err := h.parser.Parse(string(body), strict)
	if err != nil {
		if errors.Is(err, domain.ErrSpecViolation) {
			h.writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		h.logger.Error("Failed to parse HTML", "error", err)
		http.Error(w, "Failed to parse HTML", http.StatusBadRequest)
		return
	}

	response := &documentResponse{
		Title:            doc.Title(),
		Type:             doc.Type(),
		Entries:          [][2]string{},
		LocaleAlternates: doc.LocaleAlternates(),
		HTML:             doc.HTML(),
	}
	if image := doc.Image(); image != nil {
		response.Image = image.String()
	}
	if canonical := doc.URL(); canonical != nil {
		response.URL = canonical.String()
	}
	doc.Entries().Each(func(key, value string) {
		response.Entries = append(response.Entries, [2]string{key, value})
	})

	h.writeJSONResponse(w, response)
}

// ExtractAsync handles POST /api/v1/graph/async: enqueue a background
// extraction job and return its ID immediately.
func (h *GraphsHandler) ExtractAsync(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req asyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}
	if req.URL == "" {
		http.Error(w, "url field is required", http.StatusBadRequest)
		return
	}

	normalized, err := urlnorm.Normalize(req.URL)
	if err != nil {
		http.Error(w, "Invalid URL", http.StatusBadRequest)
		return
	}

	userAgent := req.UserAgent
	if userAgent == "" {
		userAgent = h.userAgent
	}

	payload := map[string]interface{}{
		"url":         normalized,
		"user_agent":  userAgent,
		"strict":      req.Strict,
		"fingerprint": urlnorm.RequestKey(normalized, userAgent, req.Strict),
	}

	jobID, err := h.queueRepo.Enqueue(ctx, domain.JobTypeExtractGraph, payload)
	if err != nil {
		h.logger.Error("Failed to enqueue extraction job", "error", err, "url", normalized)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.Info("Extraction job enqueued", "job_id", jobID, "url", normalized)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{
		"job_id": jobID,
		"status": domain.JobStatusPending,
	})
}

// GetRecent handles GET /api/v1/graph/recent with cursor pagination.
func (h *GraphsHandler) GetRecent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	cursor, err := h.parseCursor(r.URL.Query().Get("cursor"))
	if err != nil {
		h.logger.Warn("Invalid cursor format", "cursor", r.URL.Query().Get("cursor"), "error", err)
		http.Error(w, "Invalid cursor format", http.StatusBadRequest)
		return
	}

	limit := DefaultPaginationLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}

	// Request one extra row to determine if there are more results
	graphs, err := h.graphRepo.GetRecent(ctx, cursor, limit+1)
	if err != nil {
		h.logger.Error("Failed to retrieve graphs", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	hasMore := len(graphs) > limit
	if hasMore {
		graphs = graphs[:limit]
	}

	response := &GraphsResponse{
		Graphs:  graphs,
		HasMore: hasMore,
	}
	if hasMore && len(graphs) > 0 {
		cursorStr := graphs[len(graphs)-1].CreatedAt.Format(time.RFC3339Nano)
		response.Cursor = &cursorStr
	}

	h.writeJSONResponse(w, response)
}

// parseCursor parses a cursor string into a time.Time pointer
func (h *GraphsHandler) parseCursor(cursorStr string) (*time.Time, error) {
	if cursorStr == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339Nano, cursorStr)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

// writeJSONResponse writes a JSON response to the ResponseWriter
func (h *GraphsHandler) writeJSONResponse(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode response", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// writeError writes a structured JSON error body.
func (h *GraphsHandler) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
