package visitors_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"sitepulse/internal/visitors"
)

func TestFingerprintIsStable(t *testing.T) {
	first := visitors.Fingerprint("203.0.113.9", "Mozilla/5.0", "salt")
	second := visitors.Fingerprint("203.0.113.9", "Mozilla/5.0", "salt")

	assert.Equal(t, first, second)
	assert.Len(t, first, 32)
}

func TestFingerprintVariesByInput(t *testing.T) {
	base := visitors.Fingerprint("203.0.113.9", "Mozilla/5.0", "salt")

	assert.NotEqual(t, base, visitors.Fingerprint("203.0.113.10", "Mozilla/5.0", "salt"))
	assert.NotEqual(t, base, visitors.Fingerprint("203.0.113.9", "curl/8.0", "salt"))
	assert.NotEqual(t, base, visitors.Fingerprint("203.0.113.9", "Mozilla/5.0", "pepper"))
}

func TestIsInternalIP(t *testing.T) {
	testCases := []struct {
		address  string
		internal bool
	}{
		{"127.0.0.1", true},
		{"::1", true},
		{"10.0.0.5", true},
		{"172.16.8.1", true},
		{"192.168.1.10", true},
		{"203.0.113.9", false},
		{"8.8.8.8", false},
		{"not-an-ip", false},
		{"", false},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.internal, visitors.IsInternalIP(tc.address), tc.address)
	}
}

func TestAliasIsStableAndReadable(t *testing.T) {
	first := visitors.Alias("fp-alpha")
	second := visitors.Alias("fp-alpha")

	assert.Equal(t, first, second)
	assert.Regexp(t, `^[A-Z][a-z]+ [A-Z][a-z]+$`, first)
	assert.NotEqual(t, first, visitors.Alias("fp-beta"))
}
