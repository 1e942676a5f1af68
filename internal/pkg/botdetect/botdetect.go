// Package botdetect matches user-agent strings against a curated list of
// crawler and bot patterns so automated traffic never reaches the analytics
// counters.
package botdetect

import (
	_ "embed"
	"fmt"

	"go.elara.ws/pcre"
	"gopkg.in/yaml.v3"
)

//go:embed patterns.yml
var patternFile []byte

type botEntry struct {
	Regex string `yaml:"regex"`
	Name  string `yaml:"name"`
}

type compiledEntry struct {
	regex *pcre.Regexp
	name  string
}

// Detector matches user agents against the embedded bot database.
type Detector struct {
	entries []compiledEntry
}

// New parses and compiles the embedded pattern database.
func New() (*Detector, error) {
	var raw []botEntry
	if err := yaml.Unmarshal(patternFile, &raw); err != nil {
		return nil, fmt.Errorf("parsing bot patterns: %w", err)
	}

	entries := make([]compiledEntry, 0, len(raw))
	for _, entry := range raw {
		regex, err := pcre.Compile("(?i)" + entry.Regex)
		if err != nil {
			return nil, fmt.Errorf("compiling bot pattern %q: %w", entry.Regex, err)
		}
		entries = append(entries, compiledEntry{regex: regex, name: entry.Name})
	}

	return &Detector{entries: entries}, nil
}

// Detect returns the bot name matching the user agent, or false when the
// user agent looks like a real browser.
func (d *Detector) Detect(userAgent string) (string, bool) {
	if userAgent == "" {
		return "", false
	}
	for _, entry := range d.entries {
		if entry.regex.MatchString(userAgent) {
			return entry.name, true
		}
	}
	return "", false
}

// IsBot reports whether the user agent matches any bot pattern.
func (d *Detector) IsBot(userAgent string) bool {
	_, ok := d.Detect(userAgent)
	return ok
}
