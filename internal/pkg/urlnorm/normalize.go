package urlnorm

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Normalize creates a canonical form of a URL for fingerprinting and
// deduplication before retrieval. It handles:
// - Adding https:// protocol if missing
// - Lowercasing the domain
// - Removing www. prefix
// - Removing tracking parameters (utm_*, fbclid, gclid, ...)
// - Validating the URL structure
func Normalize(rawURL string) (string, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return "", fmt.Errorf("empty URL")
	}

	if !strings.HasPrefix(strings.ToLower(rawURL), "http://") &&
		!strings.HasPrefix(strings.ToLower(rawURL), "https://") {
		// Only promote things that at least look like a domain.
		if strings.Contains(rawURL, ".") {
			rawURL = "https://" + rawURL
		} else {
			return "", fmt.Errorf("invalid URL: no domain found")
		}
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse URL: %w", err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid URL: no host found")
	}

	u.Host = strings.ToLower(u.Host)
	u.Host = strings.TrimPrefix(u.Host, "www.")

	q := u.Query()
	for _, param := range trackingParams {
		q.Del(param)
	}
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// trackingParams are query parameters that identify the share, not the
// page, and would fragment the cache if kept.
var trackingParams = []string{
	// Google Analytics
	"utm_source",
	"utm_medium",
	"utm_campaign",
	"utm_content",
	"utm_term",
	// Platform-specific tracking
	"fbclid",  // Facebook click ID
	"gclid",   // Google click ID
	"msclkid", // Microsoft click ID
	"igshid",  // Instagram share ID
	"si",      // share IDs on media platforms
	"ref",
	"source",
}

// RequestKey derives the deterministic fingerprint used as the cache and
// deduplication key for one retrieval request. Identical URL, user agent
// and strictness always map to the same key.
func RequestKey(normalizedURL, userAgent string, strict bool) string {
	seed := normalizedURL + "\n" + userAgent + "\n" + strconv.FormatBool(strict)
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(seed)).String()
}
