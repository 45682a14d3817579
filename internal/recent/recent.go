// Package recent keeps the most-recently-used list of submitted URLs.
package recent

import (
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultLimit is the number of links the reader remembers.
const DefaultLimit = 5

// UnknownLabel is used when no hostname can be derived from a URL.
const UnknownLabel = "Unknown Site"

// Link is a previously submitted URL with a display label.
type Link struct {
	Label string
	URL   string
}

// List holds at most limit links, most recent first, unique by URL.
// It is not safe for concurrent use.
type List struct {
	limit int
	links []Link
}

// NewList creates an empty list. A non-positive limit means DefaultLimit.
func NewList(limit int) *List {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &List{limit: limit}
}

// Add moves rawURL to the front of the list, inserting it if needed, and
// drops whatever falls past the limit.
func (l *List) Add(rawURL string) Link {
	link := Link{Label: Label(rawURL), URL: rawURL}

	links := make([]Link, 0, len(l.links)+1)
	links = append(links, link)
	for _, existing := range l.links {
		if existing.URL != rawURL {
			links = append(links, existing)
		}
	}
	if len(links) > l.limit {
		links = links[:l.limit]
	}
	l.links = links

	return link
}

// Links returns a copy of the list, most recent first.
func (l *List) Links() []Link {
	out := make([]Link, len(l.links))
	copy(out, l.links)
	return out
}

// Len returns the number of links held.
func (l *List) Len() int {
	return len(l.links)
}

// At returns the i-th most recent link.
func (l *List) At(i int) (Link, bool) {
	if i < 0 || i >= len(l.links) {
		return Link{}, false
	}
	return l.links[i], true
}

// Label derives a display label from a URL's hostname: the first "www."
// is removed and the first letter upper-cased. URLs without a scheme or
// host get UnknownLabel.
func Label(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Scheme == "" {
		return UnknownLabel
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return UnknownLabel
	}
	host = strings.Replace(host, "www.", "", 1)
	if host == "" {
		return UnknownLabel
	}

	r, size := utf8.DecodeRuneInString(host)
	return string(unicode.ToUpper(r)) + host[size:]
}
