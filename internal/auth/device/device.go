// Package device turns User-Agent strings into the short descriptors quoted
// in security alerts, and into fingerprints used to notice a session moving
// to a different terminal.
package device

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/mssola/useragent"
)

const unknownDevice = "Unknown Device"

type Service struct {
	fingerprinting bool
}

func NewService(fingerprinting bool) *Service {
	return &Service{fingerprinting: fingerprinting}
}

// ParseUserAgent satisfies the device middleware's Parser.
func (s *Service) ParseUserAgent(userAgent string) string {
	return ParseUserAgent(userAgent)
}

// ParseUserAgent returns "<browser> on <os>", e.g. "Chrome on Intel Mac OS X 10_15_7".
func ParseUserAgent(userAgent string) string {
	if strings.TrimSpace(userAgent) == "" {
		return unknownDevice
	}
	ua := useragent.New(userAgent)
	browser, _ := ua.Browser()
	if browser == "" {
		browser = "Unknown Browser"
	}
	os := ua.OS()
	if os == "" {
		os = ua.Platform()
	}
	if os == "" {
		os = "Unknown OS"
	}
	return strings.Join(strings.Fields(browser+" on "+os), " ")
}

// ComputeFingerprint hashes the browser family, its major version, the OS and
// the platform. Minor browser updates keep the same fingerprint.
func (s *Service) ComputeFingerprint(userAgent string) string {
	if !s.fingerprinting || userAgent == "" {
		return ""
	}
	ua := useragent.New(userAgent)
	browser, version := ua.Browser()
	major, _, _ := strings.Cut(version, ".")
	sum := sha256.Sum256([]byte(strings.Join([]string{browser, major, ua.OS(), ua.Platform(), boolString(ua.Mobile())}, "|")))
	return hex.EncodeToString(sum[:])
}

// CompareFingerprints reports whether a session's stored fingerprint matches
// the current one. drift is true only when both are known and differ.
func (s *Service) CompareFingerprints(stored, current string) (matched bool, drift bool) {
	if stored == current {
		return true, false
	}
	return false, stored != "" && current != ""
}

func boolString(b bool) string {
	if b {
		return "mobile"
	}
	return "desktop"
}
