package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	counterChrome  = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.6099.109 Safari/537.36"
	counterPatched = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.6099.224 Safari/537.36"
	counterUpgrade = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36"
	dispatchPhone  = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"
	backOffice     = "Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0"
)

func TestParseUserAgent(t *testing.T) {
	tests := []struct {
		name     string
		ua       string
		contains []string
	}{
		{"counter terminal", counterChrome, []string{"Chrome on Windows 10"}},
		{"dispatch phone", dispatchPhone, []string{"Safari", "iPhone"}},
		{"back office", backOffice, []string{"Firefox", "Linux"}},
		{"scanner firmware", "ScanGun/2.1", []string{" on "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseUserAgent(tt.ua)
			for _, want := range tt.contains {
				assert.Contains(t, got, want)
			}
			assert.NotContains(t, got, "  ")
		})
	}

	t.Run("blank header", func(t *testing.T) {
		assert.Equal(t, "Unknown Device", ParseUserAgent("   "))
	})

	t.Run("service satisfies the middleware parser", func(t *testing.T) {
		assert.Equal(t, ParseUserAgent(counterChrome), NewService(false).ParseUserAgent(counterChrome))
	})
}

func TestComputeFingerprint(t *testing.T) {
	svc := NewService(true)

	fp := svc.ComputeFingerprint(counterChrome)
	require.Len(t, fp, 64)
	assert.Equal(t, fp, svc.ComputeFingerprint(counterChrome))

	assert.Equal(t, fp, svc.ComputeFingerprint(counterPatched), "patch releases keep the fingerprint")
	assert.NotEqual(t, fp, svc.ComputeFingerprint(counterUpgrade), "a major upgrade changes it")
	assert.NotEqual(t, fp, svc.ComputeFingerprint(dispatchPhone))

	assert.Empty(t, NewService(false).ComputeFingerprint(counterChrome))
	assert.Empty(t, svc.ComputeFingerprint(""))
}

func TestCompareFingerprints(t *testing.T) {
	svc := NewService(true)
	tests := []struct {
		name            string
		stored, current string
		matched, drift  bool
	}{
		{"same terminal", "abc", "abc", true, false},
		{"different terminal", "abc", "def", false, true},
		{"session opened without a fingerprint", "", "abc", false, false},
		{"request without a user agent", "abc", "", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matched, drift := svc.CompareFingerprints(tt.stored, tt.current)
			assert.Equal(t, tt.matched, matched)
			assert.Equal(t, tt.drift, drift)
		})
	}
}
