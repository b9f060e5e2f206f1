package opengraph

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestResolveFollowsChain(t *testing.T) {
	final := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("landing"))
	}))
	defer final.Close()

	middle := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, final.URL, http.StatusMovedPermanently)
	}))
	defer middle.Close()

	start := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, middle.URL, http.StatusFound)
	}))
	defer start.Close()

	resolver := NewRedirectResolver(start.Client(), createTestLogger())
	got, chain := resolver.Resolve(context.Background(), start.URL, "")

	if got != final.URL {
		t.Errorf("Resolve() = %q, want %q", got, final.URL)
	}
	if len(chain) != 3 {
		t.Errorf("chain length = %d, want 3 (%v)", len(chain), chain)
	}
	if chain[0] != start.URL {
		t.Errorf("chain[0] = %q, want input URL first", chain[0])
	}
}

func TestResolveRelativeLocation(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", "/landing")
		w.WriteHeader(http.StatusFound)
	})
	mux.HandleFunc("/landing", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	resolver := NewRedirectResolver(server.Client(), createTestLogger())
	got, _ := resolver.Resolve(context.Background(), server.URL+"/start", "")

	want := server.URL + "/landing"
	if got != want {
		t.Errorf("Resolve() = %q, want %q", got, want)
	}
}

func TestResolveNoRedirect(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("no redirect here"))
	}))
	defer server.Close()

	resolver := NewRedirectResolver(server.Client(), createTestLogger())
	got, chain := resolver.Resolve(context.Background(), server.URL, "")

	if got != server.URL {
		t.Errorf("Resolve() = %q, want %q", got, server.URL)
	}
	if len(chain) != 1 {
		t.Errorf("chain length = %d, want 1", len(chain))
	}
}

func TestResolveTransportErrorKeepsOriginal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	resolver := NewRedirectResolver(nil, createTestLogger())
	got, chain := resolver.Resolve(context.Background(), url, "")

	if got != url {
		t.Errorf("Resolve() = %q, want original URL %q", got, url)
	}
	if len(chain) != 1 {
		t.Errorf("chain length = %d, want 1", len(chain))
	}
}

func TestResolveLoopDetection(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/a", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", server.URL+"/b")
		w.WriteHeader(http.StatusFound)
	})
	mux.HandleFunc("/b", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", server.URL+"/a")
		w.WriteHeader(http.StatusFound)
	})

	resolver := NewRedirectResolver(server.Client(), createTestLogger())
	got, _ := resolver.Resolve(context.Background(), server.URL+"/a", "")

	// The loop is cut at the repeat; the last distinct hop is final.
	if got != server.URL+"/b" {
		t.Errorf("Resolve() = %q, want %q", got, server.URL+"/b")
	}
}

func TestResolveHopLimit(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", server.URL+"/hop"+r.URL.Path)
		w.WriteHeader(http.StatusFound)
	}))
	defer server.Close()

	resolver := NewRedirectResolver(server.Client(), createTestLogger())
	_, chain := resolver.Resolve(context.Background(), server.URL, "")

	if len(chain) != defaultMaxHops+1 {
		t.Errorf("chain length = %d, want %d", len(chain), defaultMaxHops+1)
	}
}

func TestResolveHonorsLocationOnErrorStatus(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	// Some servers send a Location alongside an error status.
	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", server.URL+"/real")
		w.WriteHeader(http.StatusForbidden)
	})
	mux.HandleFunc("/real", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	resolver := NewRedirectResolver(server.Client(), createTestLogger())
	got, _ := resolver.Resolve(context.Background(), server.URL+"/start", "")

	if got != server.URL+"/real" {
		t.Errorf("Resolve() = %q, want %q", got, server.URL+"/real")
	}
}
