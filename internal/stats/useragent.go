package stats

import (
	"net/url"
	"strings"
)

const maxReferrerLength = 500

// ParseUserAgent derives an OS and browser family from a User-Agent
// string. Unknown agents map to "Other".
func ParseUserAgent(ua string) (os, browser string) {
	return detectOS(ua), detectBrowser(ua)
}

func detectOS(ua string) string {
	lower := strings.ToLower(ua)

	switch {
	case strings.Contains(lower, "windows"):
		return "Windows"
	case strings.Contains(lower, "android"):
		// Android carries "linux" in its UA, so it must match first.
		return "Android"
	case strings.Contains(lower, "iphone"), strings.Contains(lower, "ipad"), strings.Contains(lower, "ios"):
		return "iOS"
	case strings.Contains(lower, "mac os"), strings.Contains(lower, "macintosh"):
		return "macOS"
	case strings.Contains(lower, "linux"):
		return "Linux"
	default:
		return "Other"
	}
}

func detectBrowser(ua string) string {
	switch {
	// Edge and Opera embed "Chrome" in their UA, so they match first.
	case strings.Contains(ua, "Edg/"), strings.Contains(ua, "Edge/"):
		return "Edge"
	case strings.Contains(ua, "OPR/"), strings.Contains(ua, "Opera"):
		return "Opera"
	case strings.Contains(ua, "Firefox/"):
		return "Firefox"
	case strings.Contains(ua, "Chrome/"):
		return "Chrome"
	case strings.Contains(ua, "Safari/"):
		return "Safari"
	default:
		return "Other"
	}
}

// SanitizeReferrer cleans and truncates the referrer URL.
// Strips query parameters and fragments for privacy.
func SanitizeReferrer(ref string) string {
	if ref == "" {
		return ""
	}

	parsed, err := url.Parse(ref)
	if err != nil {
		return ""
	}

	parsed.RawQuery = ""
	parsed.Fragment = ""

	sanitized := parsed.String()
	if len(sanitized) > maxReferrerLength {
		return sanitized[:maxReferrerLength]
	}
	return sanitized
}
