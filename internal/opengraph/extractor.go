package opengraph

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"ogfetch/internal/domain"
)

const ogPrefix = "og:"

// attrPattern pulls raw attribute key/value pairs out of a meta tag. The
// tokenizer's own attribute accessors unescape entity references, which
// would silently decode every value; extraction must keep values verbatim
// and apply only the minimal &amp; substitution to URL-shaped ones.
var attrPattern = regexp.MustCompile(`([a-zA-Z][a-zA-Z0-9:_-]*)\s*=\s*(?:"([^"]*)"|'([^']*)')`)

// ExtractMetaTags collects Open Graph meta tags from the head of an HTML
// document into a normalized, insertion-ordered mapping. Only tags whose
// property (or, failing that, name) attribute carries the og: prefix are
// considered; the first occurrence of a key wins and entries with an empty
// content value are skipped entirely.
func ExtractMetaTags(htmlText string) (*domain.Entries, error) {
	// Only the head matters: cut at the first literal, case-sensitive
	// "</head>" and append a synthetic closing so the markup stays well
	// formed. A document without the close tag is scanned whole.
	if idx := strings.Index(htmlText, "</head>"); idx >= 0 {
		htmlText = htmlText[:idx+len("</head>")]
	}
	htmlText += "</body></html>"

	entries := domain.NewEntries()

	tokenizer := html.NewTokenizer(strings.NewReader(htmlText))
	for {
		tokenType := tokenizer.Next()
		if tokenType == html.ErrorToken {
			// Malformed or truncated markup ends the scan, never fails it.
			break
		}
		if tokenType != html.StartTagToken && tokenType != html.SelfClosingTagToken {
			continue
		}
		tagName, hasAttrs := tokenizer.TagName()
		if string(tagName) != "meta" || !hasAttrs {
			continue
		}
		collectMetaTag(string(tokenizer.Raw()), entries)
	}

	return entries, nil
}

// collectMetaTag inspects one raw meta tag and inserts a normalized entry
// when it qualifies.
func collectMetaTag(rawTag string, entries *domain.Entries) {
	var property, name string
	content := ""

	for _, match := range attrPattern.FindAllStringSubmatch(rawTag, -1) {
		value := match[2]
		if value == "" {
			value = match[3]
		}
		switch strings.ToLower(match[1]) {
		case "property":
			property = value
		case "name":
			name = value
		case "content":
			content = value
		}
	}

	// property is preferred; name is only consulted when property is absent.
	key := property
	if key == "" {
		key = name
	}
	if !strings.HasPrefix(key, ogPrefix) || content == "" {
		return
	}

	normalized := strings.ToLower(strings.TrimPrefix(key, ogPrefix))
	if isURLShaped(normalized) {
		// Minimal, deliberately non-exhaustive unescaping pass.
		content = strings.ReplaceAll(content, "&amp;", "&")
	}

	// First occurrence wins; Set skips keys already present.
	_ = entries.Set(normalized, content)
}

// isURLShaped reports whether a normalized property holds a URL: the image
// property, or any property whose name starts with "url".
func isURLShaped(key string) bool {
	return key == "image" || strings.HasPrefix(key, "url")
}
