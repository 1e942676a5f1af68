package referrers_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"sitepulse/internal/pkg/referrers"
)

func TestHostname(t *testing.T) {
	testCases := []struct {
		name     string
		raw      string
		expected string
		ok       bool
	}{
		{name: "Full URL", raw: "https://www.google.com/search?q=analytics", expected: "google.com", ok: true},
		{name: "No www", raw: "https://news.ycombinator.com/item?id=1", expected: "news.ycombinator.com", ok: true},
		{name: "Uppercase host", raw: "https://WWW.Reddit.COM/r/golang", expected: "reddit.com", ok: true},
		{name: "Whitespace trimmed", raw: "  https://t.co/abc  ", expected: "t.co", ok: true},
		{name: "Empty", raw: "", ok: false},
		{name: "No host", raw: "/relative/path", ok: false},
		{name: "Garbage", raw: "://nope", ok: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			host, ok := referrers.Hostname(tc.raw)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.expected, host)
		})
	}
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Google", referrers.DisplayName("google.com"))
	assert.Equal(t, "Hacker News", referrers.DisplayName("news.ycombinator.com"))
	assert.Equal(t, "X/Twitter", referrers.DisplayName("t.co"))
	assert.Equal(t, "Google", referrers.DisplayName("GOOGLE.COM"))
	assert.Equal(t, "smallblog.dev", referrers.DisplayName("smallblog.dev"))
}
