package opengraph

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"ogfetch/internal/domain"
)

func TestParseLiteralHTML(t *testing.T) {
	const page = `<html><head>
		<meta property="og:title" content="Literal Page">
		<meta property="og:type" content="article">
		<meta property="og:image" content="https://example.com/pic.jpg">
		<meta property="og:url" content="https://example.com/article">
	</head><body></body></html>`

	parser := NewParser(nil, createTestLogger())
	doc, err := parser.Parse(page, true)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if doc.Title() != "Literal Page" {
		t.Errorf("Title() = %q", doc.Title())
	}
	if doc.Type() != "article" {
		t.Errorf("Type() = %q", doc.Type())
	}
	if doc.Image() == nil || doc.Image().String() != "https://example.com/pic.jpg" {
		t.Errorf("Image() = %v", doc.Image())
	}
	if doc.URL() == nil || doc.URL().String() != "https://example.com/article" {
		t.Errorf("URL() = %v", doc.URL())
	}
	if doc.OriginalURL() != "" {
		t.Errorf("OriginalURL() = %q, want empty for literal HTML", doc.OriginalURL())
	}
}

func TestParsePartialDocumentNonStrict(t *testing.T) {
	const page = `<html><head>
		<meta property="og:type" content="product">
		<meta property="og:title" content="Product Title">
	</head><body></body></html>`

	parser := NewParser(nil, createTestLogger())
	doc, err := parser.Parse(page, false)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if doc.Type() != "product" {
		t.Errorf("Type() = %q, want product", doc.Type())
	}
	if doc.Title() != "Product Title" {
		t.Errorf("Title() = %q, want Product Title", doc.Title())
	}
	if doc.Image() != nil {
		t.Errorf("Image() = %v, want nil", doc.Image())
	}
	if doc.URL() != nil {
		t.Errorf("URL() = %v, want nil", doc.URL())
	}
	if doc.Entries().Len() != 2 {
		t.Errorf("Entries().Len() = %d, want 2", doc.Entries().Len())
	}
}

func TestParseStrictViolation(t *testing.T) {
	parser := NewParser(nil, createTestLogger())

	_, err := parser.Parse(`<head><meta property="og:title" content="Only Title"></head>`, true)
	if !errors.Is(err, domain.ErrSpecViolation) {
		t.Errorf("Parse() error = %v, want ErrSpecViolation", err)
	}
}

func TestParseRoundTrip(t *testing.T) {
	original := domain.MakeGraph(domain.GraphFields{
		Title:            "Round Trip",
		Type:             "website",
		Image:            "https://example.com/a.png",
		URL:              "https://example.com/",
		Description:      "serialize and parse back",
		SiteName:         "Example",
		Locale:           "en_US",
		LocaleAlternates: []string{"fr_FR", "de_DE"},
	})

	parser := NewParser(nil, createTestLogger())
	parsed, err := parser.Parse(original.HTML(), true)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	originalKeys := original.Entries().Keys()
	parsedKeys := parsed.Entries().Keys()
	// Serialized alternates come back as one locale:alternate entry
	// (first occurrence wins), so compare the literal fields.
	if len(parsedKeys) != len(originalKeys)+1 {
		t.Errorf("parsed keys = %v, original keys = %v", parsedKeys, originalKeys)
	}
	original.Entries().Each(func(key, want string) {
		got, ok := parsed.Entries().Get(key)
		if !ok || got != want {
			t.Errorf("round trip lost %q: got %q, want %q", key, got, want)
		}
	})
	for i, key := range originalKeys {
		if parsedKeys[i] != key {
			t.Errorf("round trip reordered keys: %v vs %v", parsedKeys, originalKeys)
			break
		}
	}
}

func TestParseURLFetchesAndAssembles(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/short", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, server.URL+"/page", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/page", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(`<html><head>
			<meta property="og:title" content="Fetched Page">
			<meta property="og:type" content="website">
			<meta property="og:image" content="` + server.URL + `/img.png">
			<meta property="og:url" content="` + server.URL + `/page">
		</head><body>ignored</body></html>`))
	})

	parser := NewParser(server.Client(), createTestLogger())
	doc, result, err := parser.ParseURLResult(context.Background(), server.URL+"/short", "", true)
	if err != nil {
		t.Fatalf("ParseURLResult() error = %v", err)
	}

	if doc.Title() != "Fetched Page" {
		t.Errorf("Title() = %q", doc.Title())
	}
	if doc.OriginalURL() != server.URL+"/short" {
		t.Errorf("OriginalURL() = %q, want the pre-redirect URL", doc.OriginalURL())
	}
	if result.FinalURL.String() != server.URL+"/page" {
		t.Errorf("FinalURL = %q, want the post-redirect URL", result.FinalURL)
	}
	if result.Encoding != "utf-8" {
		t.Errorf("Encoding = %q", result.Encoding)
	}
}

func TestParseURLTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	parser := NewParser(nil, createTestLogger())
	if _, err := parser.ParseURL(url, "", false); err == nil {
		t.Error("ParseURL() against closed server expected error")
	}
}

func TestParseURLContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	parser := NewParser(server.Client(), createTestLogger())
	if _, err := parser.ParseURLContext(ctx, server.URL, "", false); err == nil {
		t.Error("ParseURLContext() with cancelled context expected error")
	}
}
