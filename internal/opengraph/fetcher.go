package opengraph

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
)

const (
	defaultUserAgent = "ogfetch/1.0"
	fallbackCharset  = "iso-8859-1"

	// maxBodyBytes caps how much of a response is read. Open Graph tags
	// live in the head, so anything beyond this is waste.
	maxBodyBytes = 5 << 20
)

// metaCharsetPattern matches both <meta charset="..."> and the equivalent
// http-equiv form (content="text/html; charset=...").
var metaCharsetPattern = regexp.MustCompile(`(?i)<meta[^>]+charset\s*=\s*["']?\s*([A-Za-z0-9._:-]+)`)

// FetchResult carries the decoded page text together with the encoding
// that produced it and the response's final URL and headers. It exists
// only for the duration of one fetch.
type FetchResult struct {
	Text     string
	Encoding string
	FinalURL *url.URL
	Header   http.Header
}

// Fetcher performs the raw HTTP exchange for a page: one GET requesting
// gzip/deflate, decompression, and two-pass charset resolution.
type Fetcher struct {
	client *http.Client
	logger *slog.Logger
}

// NewFetcher creates a fetcher. A nil client gets a default one with a
// request timeout; cancellation beyond that is the caller's context.
func NewFetcher(client *http.Client, logger *slog.Logger) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Fetcher{
		client: client,
		logger: logger,
	}
}

// Fetch is the blocking variant of FetchContext.
func (f *Fetcher) Fetch(rawURL, referer, userAgent string) (*FetchResult, error) {
	return f.FetchContext(context.Background(), rawURL, referer, userAgent)
}

// FetchContext retrieves rawURL and returns its decoded, trimmed text.
// The context governs the network I/O only; decoding is synchronous.
// Transport failures are fatal and reported with the target URL attached.
func (f *Fetcher) FetchContext(ctx context.Context, rawURL, referer, userAgent string) (*FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for %s: %w", rawURL, err)
	}

	// Setting Accept-Encoding by hand disables the transport's transparent
	// gzip handling, keeping the Content-Encoding header visible below.
	req.Header.Set("Accept-Encoding", "gzip,deflate")
	if referer != "" {
		req.Header.Set("Referer", referer)
	}
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	raw, err := decompressBody(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to read body from %s: %w", rawURL, err)
	}

	text, encodingName := f.decodeBody(raw, resp.Header)

	f.logger.Debug("Fetched page",
		"url", rawURL,
		"final_url", resp.Request.URL.String(),
		"status", resp.StatusCode,
		"encoding", encodingName,
		"bytes", len(raw),
	)

	return &FetchResult{
		Text:     strings.TrimSpace(text),
		Encoding: encodingName,
		FinalURL: resp.Request.URL,
		Header:   resp.Header,
	}, nil
}

// decompressBody returns the raw page bytes, inflating gzip or deflate
// bodies when the response declares them.
func decompressBody(resp *http.Response) ([]byte, error) {
	if resp.Body == nil {
		return nil, fmt.Errorf("response has no body")
	}
	body := io.LimitReader(resp.Body, maxBodyBytes)

	switch strings.ToLower(resp.Header.Get("Content-Encoding")) {
	case "gzip":
		gz, err := gzip.NewReader(body)
		if err != nil {
			return nil, fmt.Errorf("bad gzip stream: %w", err)
		}
		defer gz.Close()
		return io.ReadAll(gz)

	case "deflate":
		// Servers disagree on whether "deflate" means a zlib wrapper or a
		// raw flate stream; try the wrapper first.
		buf, err := io.ReadAll(body)
		if err != nil {
			return nil, err
		}
		if zr, err := zlib.NewReader(bytes.NewReader(buf)); err == nil {
			defer zr.Close()
			return io.ReadAll(zr)
		}
		fr := flate.NewReader(bytes.NewReader(buf))
		defer fr.Close()
		return io.ReadAll(fr)

	default:
		return io.ReadAll(body)
	}
}

// decodeBody resolves the text encoding in two passes. The server-declared
// charset (ISO-8859-1 when absent) decodes the bytes once; then an
// in-document <meta charset> declaration that names a different encoding
// wins, and the original bytes are decoded again. An unrecognized charset
// name anywhere is ignored, never fatal.
func (f *Fetcher) decodeBody(raw []byte, header http.Header) (string, string) {
	initialName := fallbackCharset
	if declared := headerCharset(header.Get("Content-Type")); declared != "" {
		initialName = declared
	}

	enc, name, err := lookupCharset(initialName)
	if err != nil {
		// The server declared a charset we cannot resolve; keep going with
		// the Latin-1 default rather than fail the fetch.
		f.logger.Debug("Ignoring unknown header charset", "charset", initialName)
		enc, name, _ = lookupCharset(fallbackCharset)
	}

	text, err := decodeBytes(raw, enc)
	if err != nil {
		return string(raw), name
	}

	declared := sniffMetaCharset(text)
	if declared == "" {
		return text, name
	}
	declaredEnc, declaredName, err := lookupCharset(declared)
	if err != nil {
		f.logger.Debug("Ignoring unknown meta charset", "charset", declared)
		return text, name
	}
	if declaredName == name {
		return text, name
	}

	// The document disagrees with the header; the in-document declaration
	// wins, so decode the original bytes again.
	redecoded, err := decodeBytes(raw, declaredEnc)
	if err != nil {
		return text, name
	}
	return redecoded, declaredName
}

// headerCharset extracts the charset parameter from a Content-Type header
// value, or "" when absent or unparsable.
func headerCharset(contentType string) string {
	if contentType == "" {
		return ""
	}
	if _, params, err := mime.ParseMediaType(contentType); err == nil {
		return params["charset"]
	}
	return ""
}

// sniffMetaCharset finds an in-document charset declaration in already
// decoded text, or "" when none is present.
func sniffMetaCharset(text string) string {
	if match := metaCharsetPattern.FindStringSubmatch(text); len(match) > 1 {
		return match[1]
	}
	return ""
}

// lookupCharset resolves a charset name to an encoding and its canonical
// name. "unicode" and utf-16 variants are normalized to UTF-8 before the
// lookup, matching how pages commonly mislabel themselves.
func lookupCharset(name string) (encoding.Encoding, string, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if normalized == "unicode" || strings.HasPrefix(normalized, "utf-16") || strings.HasPrefix(normalized, "utf16") {
		normalized = "utf-8"
	}
	enc, err := htmlindex.Get(normalized)
	if err != nil {
		return nil, "", fmt.Errorf("unknown charset %q: %w", name, err)
	}
	canonical, err := htmlindex.Name(enc)
	if err != nil {
		canonical = normalized
	}
	return enc, canonical, nil
}

// decodeBytes decodes raw bytes with the given encoding into UTF-8 text.
func decodeBytes(raw []byte, enc encoding.Encoding) (string, error) {
	decoded, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}
