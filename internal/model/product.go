package model

// OriginAPI identifies which search backend produced a candidate.
type OriginAPI string

const (
	OriginPriceSearch OriginAPI = "price_search"
	OriginSpecSearch  OriginAPI = "spec_search"
)

// URLCandidate is a single search result. It is never mutated after the
// retriever creates it.
type URLCandidate struct {
	URL          string    `json:"url"`
	Title        string    `json:"title"`
	Snippet      string    `json:"snippet,omitempty"`
	SourceDomain string    `json:"source_domain"`
	Price        string    `json:"price,omitempty"`
	Image        string    `json:"image,omitempty"`
	Rating       *float64  `json:"rating,omitempty"`
	Origin       OriginAPI `json:"origin_api"`
}

// SiteKind tags a fetched domain and selects its extraction strategy.
type SiteKind string

const (
	SiteGSMArena  SiteKind = "gsmarena"
	SiteAmazon    SiteKind = "amazon"
	SiteApple     SiteKind = "apple"
	SiteSamsung   SiteKind = "samsung"
	SiteOnePlus   SiteKind = "oneplus"
	SiteWikipedia SiteKind = "wikipedia"
	SiteBestBuy   SiteKind = "bestbuy"
	SiteFlipkart  SiteKind = "flipkart"
	SiteWalmart   SiteKind = "walmart"
	SiteTarget    SiteKind = "target"
	SiteRtings    SiteKind = "rtings"
	SiteGeneric   SiteKind = "generic"
)

// PageStatus is the outcome of a fetch.
type PageStatus string

const (
	PageSuccess PageStatus = "success"
	PageError   PageStatus = "error"
)

// SpecRow is one key/value line of a specification table.
type SpecRow struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// SpecTable is an ordered list of key/value rows.
type SpecTable []SpecRow

// FetchedPage is the final outcome of fetching one URL. Retries are folded
// into a single record.
type FetchedPage struct {
	URL         string      `json:"url"`
	SiteKind    SiteKind    `json:"site_kind"`
	Status      PageStatus  `json:"status"`
	Reason      string      `json:"reason,omitempty"` // timeout | connection | challenge | http_<code>
	Attempts    int         `json:"attempts"`
	Title       string      `json:"title,omitempty"`
	Description string      `json:"description,omitempty"`
	Price       string      `json:"price,omitempty"`
	RawSpecText string      `json:"raw_spec_text,omitempty"`
	SpecTables  []SpecTable `json:"spec_tables,omitempty"`
	CleanText   string      `json:"clean_text,omitempty"`
}

// OK reports whether the page was fetched and parsed.
func (p FetchedPage) OK() bool { return p.Status == PageSuccess }

// ExtractionStatus is the outcome of spec extraction for a product.
type ExtractionStatus string

const (
	ExtractionSuccess ExtractionStatus = "success"
	ExtractionPartial ExtractionStatus = "partial"
	ExtractionFailed  ExtractionStatus = "failed"
)

// Specs is a flat attribute map. Values are strings or json.Number, never
// nested maps or slices.
type Specs map[string]any

// Product is one item being compared. It owns its candidates and pages.
type Product struct {
	ID               int              `json:"id"`
	Name             string           `json:"name"`
	Category         Category         `json:"category"`
	Candidates       []URLCandidate   `json:"candidate_urls"`
	Price            string           `json:"price,omitempty"`
	AlternatePrices  []string         `json:"all_prices,omitempty"`
	Image            string           `json:"image,omitempty"`
	Rating           *float64         `json:"rating,omitempty"`
	FetchedPages     []FetchedPage    `json:"fetched_pages,omitempty"`
	BestSource       *FetchedPage     `json:"best_source,omitempty"`
	CombinedSpecText string           `json:"-"`
	CombinedText     string           `json:"-"`
	URLsFetched      int              `json:"urls_fetched"`
	URLsFailed       int              `json:"urls_failed"`
	Specifications   Specs            `json:"specifications,omitempty"`
	ExtractionStatus ExtractionStatus `json:"extraction_status,omitempty"`
}

// URLs returns the candidate URLs in order.
func (p *Product) URLs() []string {
	out := make([]string, 0, len(p.Candidates))
	for _, c := range p.Candidates {
		out = append(out, c.URL)
	}
	return out
}

// AddAlternatePrice records a price observation once.
func (p *Product) AddAlternatePrice(price string) {
	if price == "" {
		return
	}
	for _, existing := range p.AlternatePrices {
		if existing == price {
			return
		}
	}
	p.AlternatePrices = append(p.AlternatePrices, price)
}
