package search

import (
	"net/url"
	"strings"
)

// sourcePriority ranks results within one domain group; lower is better.
var sourcePriority = map[string]int{
	"amazon.in":          1,
	"amazon.com":         2,
	"flipkart.com":       3,
	"croma.com":          4,
	"vijaysales.com":     5,
	"reliancedigital.in": 6,
	"bigbasket.com":      7,
	"jiomart.com":        8,
	"1mg.com":            9,
	"netmeds.com":        10,
	"gsmarena.com":       11,
	"91mobiles.com":      12,
	"smartprix.com":      13,
	"gadgets360.com":     14,
}

const defaultPriority = 99

// preferredDomains orders the domain groups during diversification.
var preferredDomains = []string{"amazon.in", "flipkart.com", "croma.com", "bigbasket.com", "jiomart.com", "1mg.com"}

// SourcePriority returns the rank of domain.
func SourcePriority(domain string) int {
	if p, ok := sourcePriority[domain]; ok {
		return p
	}
	return defaultPriority
}

// DomainOf returns the lowercase host of rawURL without a leading "www.".
func DomainOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

// NormalizeDomain collapses regional and subdomain variants of the big
// marketplaces into one group key.
func NormalizeDomain(domain string) string {
	d := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(domain)), "www.")
	switch {
	case d == "":
		return "unknown"
	case strings.Contains(d, "amazon"):
		return "amazon.in"
	case strings.Contains(d, "flipkart"):
		return "flipkart.com"
	}
	return d
}

func preferredRank(domain string) int {
	for i, p := range preferredDomains {
		if strings.Contains(domain, p) {
			return i
		}
	}
	return defaultPriority
}
