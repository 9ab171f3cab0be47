package stats

import (
	"net"
	"strings"
)

// noopGeo resolves every IP to an unknown country. Used when no geo
// database is configured; the CDN country header still fills the field
// when present.
type noopGeo struct{}

// NewNoopGeo returns a GeoResolver that never resolves a country.
func NewNoopGeo() GeoResolver {
	return noopGeo{}
}

func (noopGeo) Country(string) string { return "" }

// StaticGeo resolves countries from a fixed CIDR table. Suitable for
// tests and for small self-hosted deployments with a known network map.
type StaticGeo struct {
	ranges []staticRange
}

type staticRange struct {
	network *net.IPNet
	country string
}

// NewStaticGeo builds a resolver from CIDR -> country code pairs.
// Invalid CIDRs are skipped.
func NewStaticGeo(table map[string]string) *StaticGeo {
	g := &StaticGeo{}
	for cidr, country := range table {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			continue
		}
		g.ranges = append(g.ranges, staticRange{network: network, country: country})
	}
	return g
}

// ParseGeoTable parses comma-separated "CIDR=CC" pairs into the table
// NewStaticGeo accepts. Malformed entries are skipped.
func ParseGeoTable(s string) map[string]string {
	table := make(map[string]string)
	for _, entry := range strings.Split(s, ",") {
		cidr, country, ok := strings.Cut(strings.TrimSpace(entry), "=")
		if !ok || cidr == "" || country == "" {
			continue
		}
		table[strings.TrimSpace(cidr)] = strings.ToUpper(strings.TrimSpace(country))
	}
	return table
}

// Country returns the country for the first matching range, or "".
func (g *StaticGeo) Country(ip string) string {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return ""
	}
	for _, r := range g.ranges {
		if r.network.Contains(parsed) {
			return r.country
		}
	}
	return ""
}
