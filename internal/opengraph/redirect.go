package opengraph

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// defaultMaxHops bounds how many Location headers are followed before the
// chain is considered final.
const defaultMaxHops = 10

// RedirectResolver determines the final URL reachable from a starting URL
// by following Location headers one hop at a time. Auto-redirects are
// disabled at the transport layer so every hop stays observable.
type RedirectResolver struct {
	client  *http.Client
	maxHops int
	logger  *slog.Logger
}

// NewRedirectResolver creates a resolver. The supplied client (or a
// default) is copied so its redirect policy can be overridden without
// disturbing the caller's client.
func NewRedirectResolver(client *http.Client, logger *slog.Logger) *RedirectResolver {
	base := &http.Client{Timeout: 10 * time.Second}
	if client != nil {
		base = client
	}
	resolved := *base
	resolved.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return &RedirectResolver{
		client:  &resolved,
		maxHops: defaultMaxHops,
		logger:  logger,
	}
}

// Resolve returns the final URL of the redirect chain starting at rawURL,
// plus the full chain of visited URLs (input first). Resolution is
// best-effort: a transport error at any hop falls back to the original
// input URL and is never surfaced to the caller.
func (r *RedirectResolver) Resolve(ctx context.Context, rawURL, userAgent string) (string, []string) {
	chain := []string{rawURL}
	visited := map[string]bool{rawURL: true}
	current := rawURL

	for hop := 0; hop < r.maxHops; hop++ {
		location, ok := r.nextHop(ctx, current, userAgent)
		if !ok {
			r.logger.Debug("Redirect resolution failed, keeping original URL",
				"url", rawURL,
				"hop", hop,
			)
			return rawURL, chain
		}
		if location == "" {
			// No Location header: current is final.
			return current, chain
		}
		if visited[location] {
			r.logger.Warn("Redirect loop detected",
				"url", rawURL,
				"repeated", location,
			)
			return current, chain
		}
		visited[location] = true
		chain = append(chain, location)
		current = location
	}

	r.logger.Warn("Redirect chain exceeded hop limit",
		"url", rawURL,
		"max_hops", r.maxHops,
	)
	return current, chain
}

// nextHop issues one request without following redirects and returns the
// absolute next-hop URL from the Location header ("" when there is none).
// The Location header is honored on success and error responses alike.
// ok is false on transport failure.
func (r *RedirectResolver) nextHop(ctx context.Context, current, userAgent string) (string, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, current, nil)
	if err != nil {
		return "", false
	}
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return "", false
	}
	defer resp.Body.Close()

	// Drain a little so the connection can be reused.
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	location := resp.Header.Get("Location")
	if location == "" {
		return "", true
	}

	next, err := url.Parse(location)
	if err != nil {
		return "", true
	}
	if !next.IsAbs() {
		if base, err := url.Parse(current); err == nil {
			next = base.ResolveReference(next)
		}
	}
	return next.String(), true
}
