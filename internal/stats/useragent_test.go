package stats

import (
	"strings"
	"testing"
)

func TestParseUserAgent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		ua          string
		wantOS      string
		wantBrowser string
	}{
		{
			name:        "windows_chrome",
			ua:          "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 Chrome/120.0.0.0 Safari/537.36",
			wantOS:      "Windows",
			wantBrowser: "Chrome",
		},
		{
			name:        "macos_safari",
			ua:          "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 Version/17.0 Safari/605.1.15",
			wantOS:      "macOS",
			wantBrowser: "Safari",
		},
		{
			name:        "android_chrome",
			ua:          "Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 Chrome/120.0.0.0 Mobile Safari/537.36",
			wantOS:      "Android",
			wantBrowser: "Chrome",
		},
		{
			name:        "ios_safari",
			ua:          "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 Version/17.0 Mobile/15E148 Safari/604.1",
			wantOS:      "iOS",
			wantBrowser: "Safari",
		},
		{
			name:        "linux_firefox",
			ua:          "Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0",
			wantOS:      "Linux",
			wantBrowser: "Firefox",
		},
		{
			name:        "windows_edge",
			ua:          "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 Chrome/120.0.0.0 Safari/537.36 Edg/120.0.0.0",
			wantOS:      "Windows",
			wantBrowser: "Edge",
		},
		{
			name:        "windows_opera",
			ua:          "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 Chrome/120.0.0.0 Safari/537.36 OPR/106.0.0.0",
			wantOS:      "Windows",
			wantBrowser: "Opera",
		},
		{
			name:        "curl",
			ua:          "curl/8.4.0",
			wantOS:      "Other",
			wantBrowser: "Other",
		},
		{
			name:        "empty",
			ua:          "",
			wantOS:      "Other",
			wantBrowser: "Other",
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			os, browser := ParseUserAgent(test.ua)
			if os != test.wantOS {
				t.Errorf("OS = %q, want %q", os, test.wantOS)
			}
			if browser != test.wantBrowser {
				t.Errorf("browser = %q, want %q", browser, test.wantBrowser)
			}
		})
	}
}

func TestSanitizeReferrer(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		ref  string
		want string
	}{
		{"empty", "", ""},
		{"plain", "https://example.com/page", "https://example.com/page"},
		{"strips_query", "https://example.com/page?utm_source=mail&id=42", "https://example.com/page"},
		{"strips_fragment", "https://example.com/page#section", "https://example.com/page"},
		{"unparsable", "http://%zz", ""},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			if got := SanitizeReferrer(test.ref); got != test.want {
				t.Errorf("SanitizeReferrer(%q) = %q, want %q", test.ref, got, test.want)
			}
		})
	}
}

func TestSanitizeReferrer_Truncates(t *testing.T) {
	t.Parallel()

	long := "https://example.com/" + strings.Repeat("a", 2*maxReferrerLength)
	got := SanitizeReferrer(long)
	if len(got) != maxReferrerLength {
		t.Errorf("length = %d, want %d", len(got), maxReferrerLength)
	}
}

func TestParseGeoTable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  map[string]string
	}{
		{"empty", "", map[string]string{}},
		{"single", "10.0.0.0/8=DE", map[string]string{"10.0.0.0/8": "DE"}},
		{
			"multiple with spaces and lowercase",
			"10.0.0.0/8=de, 203.0.113.0/24 = nl",
			map[string]string{"10.0.0.0/8": "DE", "203.0.113.0/24": "NL"},
		},
		{"malformed entries skipped", "nonsense,=DE,10.0.0.0/8=", map[string]string{}},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			got := ParseGeoTable(test.input)
			if len(got) != len(test.want) {
				t.Fatalf("ParseGeoTable(%q) = %v, want %v", test.input, got, test.want)
			}
			for cidr, country := range test.want {
				if got[cidr] != country {
					t.Errorf("table[%q] = %q, want %q", cidr, got[cidr], country)
				}
			}
		})
	}
}

func TestStaticGeo(t *testing.T) {
	t.Parallel()

	geo := NewStaticGeo(map[string]string{
		"10.0.0.0/8":     "US",
		"203.0.113.0/24": "NL",
		"not-a-cidr":     "XX",
	})

	tests := []struct {
		ip   string
		want string
	}{
		{"10.1.2.3", "US"},
		{"203.0.113.200", "NL"},
		{"198.51.100.1", ""},
		{"garbage", ""},
		{"", ""},
	}

	for _, test := range tests {
		test := test
		if got := geo.Country(test.ip); got != test.want {
			t.Errorf("Country(%q) = %q, want %q", test.ip, got, test.want)
		}
	}
}

func TestNoopGeo(t *testing.T) {
	t.Parallel()

	if got := NewNoopGeo().Country("203.0.113.1"); got != "" {
		t.Errorf("noop resolver returned %q", got)
	}
}
