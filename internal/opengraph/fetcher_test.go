package opengraph

import (
	"bytes"
	"compress/gzip"
	"compress/zlib"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"golang.org/x/text/encoding/charmap"
)

// createTestLogger creates a logger for testing
func createTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelError, // Only show errors during tests
	}))
}

func TestFetchPlainBody(t *testing.T) {
	const page = `<html><head><meta property="og:title" content="Hello"></head></html>`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Accept-Encoding"); got != "gzip,deflate" {
			t.Errorf("Accept-Encoding = %q, want %q", got, "gzip,deflate")
		}
		if got := r.Header.Get("User-Agent"); got != defaultUserAgent {
			t.Errorf("User-Agent = %q, want %q", got, defaultUserAgent)
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte("  " + page + "  "))
	}))
	defer server.Close()

	fetcher := NewFetcher(server.Client(), createTestLogger())
	result, err := fetcher.Fetch(server.URL, "", "")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	if result.Text != page {
		t.Errorf("Text = %q, want trimmed %q", result.Text, page)
	}
	if result.Encoding != "utf-8" {
		t.Errorf("Encoding = %q, want utf-8", result.Encoding)
	}
	if result.FinalURL.String() != server.URL {
		t.Errorf("FinalURL = %q, want %q", result.FinalURL, server.URL)
	}
}

func TestFetchGzipBody(t *testing.T) {
	const page = `<html><head><meta charset="utf-8"><title>gz</title></head></html>`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		gz := gzip.NewWriter(&buf)
		gz.Write([]byte(page))
		gz.Close()

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Content-Encoding", "gzip")
		w.Write(buf.Bytes())
	}))
	defer server.Close()

	fetcher := NewFetcher(server.Client(), createTestLogger())
	result, err := fetcher.Fetch(server.URL, "", "")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if result.Text != page {
		t.Errorf("Text = %q, want %q", result.Text, page)
	}
}

func TestFetchDeflateBody(t *testing.T) {
	const page = `<html><head><title>deflate</title></head></html>`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		zw := zlib.NewWriter(&buf)
		zw.Write([]byte(page))
		zw.Close()

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Content-Encoding", "deflate")
		w.Write(buf.Bytes())
	}))
	defer server.Close()

	fetcher := NewFetcher(server.Client(), createTestLogger())
	result, err := fetcher.Fetch(server.URL, "", "")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if result.Text != page {
		t.Errorf("Text = %q, want %q", result.Text, page)
	}
}

func TestFetchRefererAndUserAgentForwarded(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Referer"); got != "https://referrer.example" {
			t.Errorf("Referer = %q", got)
		}
		if got := r.Header.Get("User-Agent"); got != "custom-agent/2.0" {
			t.Errorf("User-Agent = %q", got)
		}
		w.Write([]byte("<html></html>"))
	}))
	defer server.Close()

	fetcher := NewFetcher(server.Client(), createTestLogger())
	if _, err := fetcher.Fetch(server.URL, "https://referrer.example", "custom-agent/2.0"); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
}

func TestFetchTransportErrorIsFatal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	fetcher := NewFetcher(nil, createTestLogger())
	if _, err := fetcher.Fetch(url, "", ""); err == nil {
		t.Error("Fetch() against closed server expected error")
	}
}

func TestDecodeBodyCharsetResolution(t *testing.T) {
	logger := createTestLogger()
	fetcher := NewFetcher(nil, logger)

	// "café" encoded in Windows-1252: é is byte 0xE9.
	win1252 := []byte("caf\xe9")

	tests := []struct {
		name         string
		raw          []byte
		contentType  string
		wantText     string
		wantEncoding string
	}{
		{
			name:         "Header charset decodes the body",
			raw:          win1252,
			contentType:  "text/html; charset=windows-1252",
			wantText:     "café",
			wantEncoding: "windows-1252",
		},
		{
			name:         "Missing header falls back to latin-1",
			raw:          win1252,
			contentType:  "text/html",
			wantText:     "café",
			wantEncoding: "windows-1252",
		},
		{
			name:         "Unknown header charset falls back to latin-1",
			raw:          win1252,
			contentType:  "text/html; charset=klingon-8",
			wantText:     "café",
			wantEncoding: "windows-1252",
		},
		{
			name:         "Meta charset overrides the header",
			raw:          append([]byte(`<meta charset="windows-1251">`), 0xEF, 0xF0),
			contentType:  "text/html; charset=iso-8859-1",
			wantText:     `<meta charset="windows-1251">пр`,
			wantEncoding: "windows-1251",
		},
		{
			name:         "Unknown meta charset keeps the header decode",
			raw:          []byte(`<meta charset="not-a-charset">caf` + "\xe9"),
			contentType:  "text/html; charset=windows-1252",
			wantText:     `<meta charset="not-a-charset">café`,
			wantEncoding: "windows-1252",
		},
		{
			name:         "Matching meta and header decode once",
			raw:          []byte(`<meta charset="utf-8">plain`),
			contentType:  "text/html; charset=utf-8",
			wantText:     `<meta charset="utf-8">plain`,
			wantEncoding: "utf-8",
		},
		{
			name:         "http-equiv form recognized",
			raw:          []byte(`<meta http-equiv="Content-Type" content="text/html; charset=utf-8">ok`),
			contentType:  "text/html; charset=windows-1252",
			wantText:     `<meta http-equiv="Content-Type" content="text/html; charset=utf-8">ok`,
			wantEncoding: "utf-8",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := http.Header{}
			header.Set("Content-Type", tt.contentType)

			text, name := fetcher.decodeBody(tt.raw, header)
			if text != tt.wantText {
				t.Errorf("text = %q, want %q", text, tt.wantText)
			}
			if name != tt.wantEncoding {
				t.Errorf("encoding = %q, want %q", name, tt.wantEncoding)
			}
		})
	}
}

func TestLookupCharsetNormalizesUTF16Names(t *testing.T) {
	for _, name := range []string{"unicode", "utf-16", "UTF-16LE", "utf16"} {
		_, canonical, err := lookupCharset(name)
		if err != nil {
			t.Errorf("lookupCharset(%q) error = %v", name, err)
			continue
		}
		if canonical != "utf-8" {
			t.Errorf("lookupCharset(%q) = %q, want utf-8", name, canonical)
		}
	}
}

func TestSniffMetaCharset(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "meta charset form",
			text: `<meta charset="shift_jis">`,
			want: "shift_jis",
		},
		{
			name: "http-equiv form",
			text: `<meta http-equiv="Content-Type" content="text/html; charset=EUC-JP">`,
			want: "EUC-JP",
		},
		{
			name: "unquoted",
			text: `<meta charset=utf-8>`,
			want: "utf-8",
		},
		{
			name: "absent",
			text: `<html><head></head></html>`,
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sniffMetaCharset(tt.text); got != tt.want {
				t.Errorf("sniffMetaCharset() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHeaderCharset(t *testing.T) {
	tests := []struct {
		contentType string
		want        string
	}{
		{"text/html; charset=utf-8", "utf-8"},
		{"text/html; charset=UTF-8", "utf-8"},
		{"text/html", ""},
		{"", ""},
	}

	for _, tt := range tests {
		if got := headerCharset(tt.contentType); got != tt.want {
			t.Errorf("headerCharset(%q) = %q, want %q", tt.contentType, got, tt.want)
		}
	}
}

func TestDecodeBytesRoundTrip(t *testing.T) {
	// Sanity check against the x/text encoder for a non-trivial charset.
	encoded, err := charmap.Windows1252.NewEncoder().Bytes([]byte("naïve café"))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	text, err := decodeBytes(encoded, charmap.Windows1252)
	if err != nil {
		t.Fatalf("decodeBytes() error = %v", err)
	}
	if text != "naïve café" {
		t.Errorf("decodeBytes() = %q", text)
	}
}
