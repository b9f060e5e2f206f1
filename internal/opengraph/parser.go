package opengraph

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"ogfetch/internal/domain"
)

// Parser ties the pipeline together: redirect resolution, content
// fetching, meta tag extraction and document assembly. Each call is an
// independent unit of work; a single Parser is safe for concurrent use.
type Parser struct {
	fetcher  *Fetcher
	resolver *RedirectResolver
	logger   *slog.Logger
}

// NewParser creates a parser. A nil client selects sensible defaults on
// both the fetcher and the resolver.
func NewParser(client *http.Client, logger *slog.Logger) *Parser {
	return &Parser{
		fetcher:  NewFetcher(client, logger),
		resolver: NewRedirectResolver(client, logger),
		logger:   logger,
	}
}

// Parse builds a document from literal HTML. No retrieval is performed,
// so the document carries no original URL.
func (p *Parser) Parse(htmlText string, strict bool) (*domain.Document, error) {
	entries, err := ExtractMetaTags(htmlText)
	if err != nil {
		return nil, fmt.Errorf("failed to extract meta tags: %w", err)
	}
	return domain.FromEntries(entries, "", strict)
}

// ParseURL is the blocking variant of ParseURLContext.
func (p *Parser) ParseURL(rawURL, userAgent string, strict bool) (*domain.Document, error) {
	return p.ParseURLContext(context.Background(), rawURL, userAgent, strict)
}

// ParseURLContext retrieves rawURL (resolving any redirect chain first)
// and builds a document from the page. The context applies to the network
// I/O only.
func (p *Parser) ParseURLContext(ctx context.Context, rawURL, userAgent string, strict bool) (*domain.Document, error) {
	doc, _, err := p.ParseURLResult(ctx, rawURL, userAgent, strict)
	return doc, err
}

// ParseURLResult is ParseURLContext for callers that also need the fetch
// result (final URL, resolved encoding). The worker persists both.
func (p *Parser) ParseURLResult(ctx context.Context, rawURL, userAgent string, strict bool) (*domain.Document, *FetchResult, error) {
	finalURL, chain := p.resolver.Resolve(ctx, rawURL, userAgent)
	if len(chain) > 1 {
		p.logger.Debug("Resolved redirect chain",
			"url", rawURL,
			"final_url", finalURL,
			"hops", len(chain)-1,
		)
	}

	result, err := p.fetcher.FetchContext(ctx, finalURL, "", userAgent)
	if err != nil {
		return nil, nil, err
	}

	entries, err := ExtractMetaTags(result.Text)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to extract meta tags from %s: %w", finalURL, err)
	}

	doc, err := domain.FromEntries(entries, rawURL, strict)
	if err != nil {
		return nil, nil, err
	}
	return doc, result, nil
}
