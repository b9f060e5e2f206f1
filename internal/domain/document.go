package domain

import (
	"fmt"
	"net/url"
	"strings"
)

// requiredProperties is the fixed set of properties that strict validation
// demands. Referenced read-only by FromEntries.
var requiredProperties = []string{"title", "type", "image", "url"}

// Entries is an insertion-ordered mapping of normalized Open Graph property
// names (lowercase, without the "og:" prefix) to their string values.
// Keys are unique; on a duplicate the first occurrence wins and later ones
// are discarded. Once sealed inside a Document, all mutation attempts
// return ErrReadOnly.
type Entries struct {
	keys   []string
	values map[string]string
	sealed bool
}

// NewEntries creates an empty, mutable entry mapping.
func NewEntries() *Entries {
	return &Entries{
		values: make(map[string]string),
	}
}

// Set inserts a key/value pair. A key that is already present is skipped
// (first occurrence wins). Returns ErrReadOnly if the mapping has been
// sealed into a document.
func (e *Entries) Set(key, value string) error {
	if e.sealed {
		return fmt.Errorf("cannot set %q: %w", key, ErrReadOnly)
	}
	if _, exists := e.values[key]; exists {
		return nil
	}
	e.keys = append(e.keys, key)
	e.values[key] = value
	return nil
}

// Get returns the value for a key and whether it was present.
func (e *Entries) Get(key string) (string, bool) {
	v, ok := e.values[key]
	return v, ok
}

// Len returns the number of entries.
func (e *Entries) Len() int {
	return len(e.keys)
}

// Keys returns the property names in insertion order.
func (e *Entries) Keys() []string {
	keys := make([]string, len(e.keys))
	copy(keys, e.keys)
	return keys
}

// Each calls fn for every entry in insertion order.
func (e *Entries) Each(fn func(key, value string)) {
	for _, k := range e.keys {
		fn(k, e.values[k])
	}
}

func (e *Entries) seal() {
	e.sealed = true
}

// Document is a read-only Open Graph document. It is constructed atomically,
// either directly from literal fields (MakeGraph) or from an extracted entry
// mapping (FromEntries), and never mutated afterwards.
type Document struct {
	entries          *Entries
	title            string
	graphType        string
	image            *url.URL
	canonicalURL     *url.URL
	originalURL      string
	localeAlternates []string
}

// GraphFields holds the literal values for direct document construction.
// Optional fields left empty are not inserted.
type GraphFields struct {
	Title       string
	Type        string
	Image       string
	URL         string
	Description string
	SiteName    string
	Audio       string
	Video       string
	Locale      string
	Determiner  string

	LocaleAlternates []string
}

// MakeGraph builds a document directly from literal fields. Non-empty
// fields are inserted in a fixed order (title, type, image, url,
// description, site_name, audio, video, locale, determiner); locale
// alternates are stored separately from the entry mapping. No validation
// is performed: the caller asserts correctness.
func MakeGraph(f GraphFields) *Document {
	entries := NewEntries()
	ordered := []struct {
		key   string
		value string
	}{
		{"title", f.Title},
		{"type", f.Type},
		{"image", f.Image},
		{"url", f.URL},
		{"description", f.Description},
		{"site_name", f.SiteName},
		{"audio", f.Audio},
		{"video", f.Video},
		{"locale", f.Locale},
		{"determiner", f.Determiner},
	}
	for _, field := range ordered {
		if field.value == "" {
			continue
		}
		// Entries is still unsealed here, Set cannot fail.
		_ = entries.Set(field.key, field.value)
	}

	alternates := make([]string, len(f.LocaleAlternates))
	copy(alternates, f.LocaleAlternates)

	doc := newDocument(entries, "")
	doc.localeAlternates = alternates
	return doc
}

// FromEntries assembles a document from an extracted entry mapping and the
// URL the caller originally asked for. When strict is true the mapping must
// contain non-empty values for title, type, image and url; otherwise the
// assembly fails with ErrSpecViolation and no document is returned. In
// non-strict mode missing properties surface as empty or absent typed
// fields.
func FromEntries(entries *Entries, originalURL string, strict bool) (*Document, error) {
	if entries == nil {
		entries = NewEntries()
	}

	if strict {
		var missing []string
		for _, required := range requiredProperties {
			if v, ok := entries.Get(required); !ok || v == "" {
				missing = append(missing, required)
			}
		}
		if len(missing) > 0 {
			return nil, fmt.Errorf("%w: missing required properties %s",
				ErrSpecViolation, strings.Join(missing, ", "))
		}
	}

	return newDocument(entries, originalURL), nil
}

// newDocument derives the typed fields and seals the entry mapping.
func newDocument(entries *Entries, originalURL string) *Document {
	doc := &Document{
		entries:     entries,
		originalURL: originalURL,
	}
	doc.title, _ = entries.Get("title")
	doc.graphType, _ = entries.Get("type")
	if v, ok := entries.Get("image"); ok {
		doc.image = parseAbsoluteURL(v)
	}
	if v, ok := entries.Get("url"); ok {
		doc.canonicalURL = parseAbsoluteURL(v)
	}
	entries.seal()
	return doc
}

// parseAbsoluteURL parses v as an absolute URI. Malformed or relative
// values yield nil rather than an error: an unusable value is dropped,
// not fatal.
func parseAbsoluteURL(v string) *url.URL {
	u, err := url.Parse(v)
	if err != nil || !u.IsAbs() {
		return nil
	}
	return u
}

// Title returns the og:title value, or "" if absent.
func (d *Document) Title() string { return d.title }

// Type returns the og:type value, or "" if absent.
func (d *Document) Type() string { return d.graphType }

// Image returns the og:image value parsed as an absolute URI, or nil if
// the property was absent or unparsable.
func (d *Document) Image() *url.URL { return d.image }

// URL returns the og:url value parsed as an absolute URI, or nil if the
// property was absent or unparsable.
func (d *Document) URL() *url.URL { return d.canonicalURL }

// OriginalURL returns the URL the caller supplied before redirect
// resolution. It is empty for documents built from literal HTML or fields.
func (d *Document) OriginalURL() string { return d.originalURL }

// LocaleAlternates returns the og:locale:alternate values in order.
func (d *Document) LocaleAlternates() []string {
	alternates := make([]string, len(d.localeAlternates))
	copy(alternates, d.localeAlternates)
	return alternates
}

// Entries returns the sealed entry mapping. Mutation attempts on it fail
// with ErrReadOnly.
func (d *Document) Entries() *Entries { return d.entries }

// HTML renders the canonical serialization: one meta element per entry in
// insertion order, followed by one og:locale:alternate meta per alternate.
func (d *Document) HTML() string {
	var b strings.Builder
	d.entries.Each(func(key, value string) {
		fmt.Fprintf(&b, "<meta property=\"og:%s\" content=\"%s\">\n", key, value)
	})
	for _, alt := range d.localeAlternates {
		fmt.Fprintf(&b, "<meta property=\"og:locale:alternate\" content=\"%s\">\n", alt)
	}
	return b.String()
}
