package recent

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestList_AddPutsNewestFirst(t *testing.T) {
	l := NewList(0)
	l.Add("https://a.example")
	l.Add("https://b.example")

	links := l.Links()
	require.Len(t, links, 2)
	assert.Equal(t, "https://b.example", links[0].URL)
	assert.Equal(t, "https://a.example", links[1].URL)
}

func TestList_AddSameURLMovesToFront(t *testing.T) {
	l := NewList(DefaultLimit)
	l.Add("https://a.example")
	l.Add("https://b.example")
	l.Add("https://a.example")

	links := l.Links()
	require.Len(t, links, 2, "no duplicate entry")
	assert.Equal(t, "https://a.example", links[0].URL)
	assert.Equal(t, "https://b.example", links[1].URL)
}

func TestList_NeverExceedsLimit(t *testing.T) {
	l := NewList(DefaultLimit)
	for i := 0; i < 8; i++ {
		url := fmt.Sprintf("https://site%d.example", i)
		l.Add(url)

		assert.LessOrEqual(t, l.Len(), DefaultLimit)
		first, ok := l.At(0)
		require.True(t, ok)
		assert.Equal(t, url, first.URL)
	}

	links := l.Links()
	require.Len(t, links, DefaultLimit)
	assert.Equal(t, "https://site7.example", links[0].URL)
	assert.Equal(t, "https://site3.example", links[4].URL)
}

func TestList_LinksReturnsCopy(t *testing.T) {
	l := NewList(DefaultLimit)
	l.Add("https://a.example")

	links := l.Links()
	links[0].URL = "mutated"

	first, _ := l.At(0)
	assert.Equal(t, "https://a.example", first.URL)
}

func TestList_AtOutOfRange(t *testing.T) {
	l := NewList(DefaultLimit)
	_, ok := l.At(0)
	assert.False(t, ok)
	_, ok = l.At(-1)
	assert.False(t, ok)
}

func TestLabel(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://www.example.com/article", "Example.com"},
		{"https://news.ycombinator.com", "News.ycombinator.com"},
		{"http://WWW.GitHub.com", "Github.com"},
		{"https://example.com:8080/path?q=1", "Example.com"},
		{"example.com", UnknownLabel},
		{"not a url", UnknownLabel},
		{"https://", UnknownLabel},
		{"", UnknownLabel},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Label(tt.url), "Label(%q)", tt.url)
	}
}
