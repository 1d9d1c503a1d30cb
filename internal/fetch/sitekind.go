package fetch

import (
	"strings"

	"github.com/sells-group/product-compare/internal/model"
)

// siteKinds is checked in order; the first substring found in the host wins.
var siteKinds = []struct {
	match string
	kind  model.SiteKind
}{
	{"gsmarena.com", model.SiteGSMArena},
	{"amazon", model.SiteAmazon},
	{"apple.com", model.SiteApple},
	{"samsung.com", model.SiteSamsung},
	{"oneplus.com", model.SiteOnePlus},
	{"wikipedia.org", model.SiteWikipedia},
	{"bestbuy.com", model.SiteBestBuy},
	{"flipkart.com", model.SiteFlipkart},
	{"walmart.com", model.SiteWalmart},
	{"target.com", model.SiteTarget},
	{"rtings.com", model.SiteRtings},
}

// SiteKindOf classifies a host.
func SiteKindOf(host string) model.SiteKind {
	host = strings.ToLower(host)
	for _, sk := range siteKinds {
		if strings.Contains(host, sk.match) {
			return sk.kind
		}
	}
	return model.SiteGeneric
}

// DefaultProtectedDomains always start on the anti-blocking transport.
var DefaultProtectedDomains = []string{
	"amazon.com",
	"walmart.com",
	"target.com",
	"bestbuy.com",
	"unilever.com",
	"pepsodent.com",
	"close-up.com",
	"colgate.com",
	"samsung.com",
	"apple.com",
	"flipkart.com",
	"ebay.com",
	"newegg.com",
}

func isProtected(host string, domains []string) bool {
	host = strings.ToLower(host)
	for _, d := range domains {
		if strings.Contains(host, d) {
			return true
		}
	}
	return false
}
