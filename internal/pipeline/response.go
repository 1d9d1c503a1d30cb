package pipeline

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sells-group/product-compare/internal/enrich"
	"github.com/sells-group/product-compare/internal/model"
	"github.com/sells-group/product-compare/internal/normalize"
)

// Response is the body returned for a successful comparison.
type Response struct {
	Status                string                 `json:"status"`
	RunID                 string                 `json:"run_id,omitempty"`
	UserQuery             string                 `json:"user_query"`
	ProductType           model.Category         `json:"product_type"`
	UserPreferences       []string               `json:"user_preferences"`
	Products              []ProductView          `json:"products"`
	ComparisonTable       Table                  `json:"comparison_table"`
	RecommendationSummary model.ComparisonResult `json:"recommendation_summary"`
	Stats                 Stats                  `json:"stats"`
	Timestamp             string                 `json:"timestamp"`
}

// ProductView is one product as presented to clients.
type ProductView struct {
	ID               string                 `json:"id"`
	Name             string                 `json:"name"`
	Category         model.Category         `json:"category"`
	Specifications   model.Specs            `json:"specifications"`
	ExtractionStatus model.ExtractionStatus `json:"extraction_status"`
	Price            string                 `json:"price"`
	Image            string                 `json:"image"`
	Rating           *float64               `json:"rating,omitempty"`
	URLs             []model.URLCandidate   `json:"urls"`
}

// Stats summarizes the run.
type Stats struct {
	ProductsCompared int `json:"products_compared"`
	SpecsExtracted   int `json:"specs_extracted"`
	URLsFetched      int `json:"urls_fetched"`
	URLsFailed       int `json:"urls_failed"`
}

// Table is the side-by-side specification grid.
type Table struct {
	Headers      []string   `json:"headers"`
	Rows         []TableRow `json:"rows"`
	ProductNames []string   `json:"product_names,omitempty"`
}

// TableRow is one specification across all products.
type TableRow struct {
	Spec   string   `json:"spec"`
	Key    string   `json:"key"`
	Values []string `json:"values"`
}

// Missing marks a specification a product does not have.
const Missing = "N/A"

// BuildResponse assembles the client response from pipeline output.
// Products whose resolved price carries currency get that price written into
// their specifications.
func BuildResponse(query string, category model.Category, products []*model.Product, normalized normalize.Result, stats enrich.Stats, currency string, now time.Time) *Response {
	views := make([]ProductView, 0, len(products))
	extracted := 0
	for _, p := range products {
		if p.ExtractionStatus == model.ExtractionSuccess {
			extracted++
		}
		views = append(views, view(p, currency))
	}

	prefs := normalized.Preferences
	if prefs == nil {
		prefs = []string{}
	}
	return &Response{
		Status:                "success",
		UserQuery:             query,
		ProductType:           category,
		UserPreferences:       prefs,
		Products:              views,
		ComparisonTable:       BuildTable(products),
		RecommendationSummary: normalized.Comparison,
		Stats: Stats{
			ProductsCompared: len(products),
			SpecsExtracted:   extracted,
			URLsFetched:      stats.URLsFetched,
			URLsFailed:       stats.URLsFailed,
		},
		Timestamp: now.Format(time.RFC3339),
	}
}

func view(p *model.Product, currency string) ProductView {
	if p.Specifications == nil {
		p.Specifications = model.Specs{}
	}
	specs := p.Specifications

	price := ""
	if v, ok := specs["price"]; ok {
		price = fmt.Sprint(v)
	}
	if unusablePrice(price) {
		price = p.Price
	}
	if currency != "" && strings.Contains(price, currency) {
		specs["price"] = price
	}

	image := p.Image
	for _, c := range p.Candidates {
		if image != "" {
			break
		}
		image = c.Image
	}

	urls := p.Candidates
	if urls == nil {
		urls = []model.URLCandidate{}
	}
	category := p.Category
	if category == "" {
		category = model.CategoryGeneral
	}
	return ProductView{
		ID:               fmt.Sprintf("product_%d", p.ID),
		Name:             p.Name,
		Category:         category,
		Specifications:   specs,
		ExtractionStatus: p.ExtractionStatus,
		Price:            price,
		Image:            image,
		Rating:           p.Rating,
		URLs:             urls,
	}
}

func unusablePrice(s string) bool {
	switch strings.TrimSpace(s) {
	case "", Missing, "$,":
		return true
	}
	return false
}

var displayNames = map[string]string{
	"brand":              "Brand",
	"model":              "Model",
	"product_name":       "Product Name",
	"display_size":       "Display Size",
	"display_resolution": "Display Resolution",
	"processor":          "Processor",
	"ram":                "RAM",
	"storage":            "Storage",
	"battery":            "Battery",
	"charging":           "Charging",
	"camera_main":        "Main Camera",
	"camera_front":       "Front Camera",
	"os":                 "Operating System",
	"weight":             "Weight",
	"price":              "Price",
	"refresh_rate":       "Refresh Rate",
	"5g_support":         "5G Support",
	"nfc":                "NFC",
}

// DisplayName is the row label for a specification key.
func DisplayName(key string) string {
	if name, ok := displayNames[key]; ok {
		return name
	}
	return cases.Title(language.English).String(strings.ReplaceAll(key, "_", " "))
}

// BuildTable lays out every specification key seen on any product, sorted,
// with one value per product.
func BuildTable(products []*model.Product) Table {
	if len(products) == 0 {
		return Table{Headers: []string{}, Rows: []TableRow{}}
	}

	keys := map[string]bool{}
	names := make([]string, 0, len(products))
	for _, p := range products {
		names = append(names, p.Name)
		for k := range p.Specifications {
			keys[k] = true
		}
	}
	sorted := make([]string, 0, len(keys))
	for k := range keys {
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)

	rows := make([]TableRow, 0, len(sorted))
	for _, k := range sorted {
		row := TableRow{Spec: DisplayName(k), Key: k, Values: make([]string, 0, len(products))}
		for _, p := range products {
			v, ok := p.Specifications[k]
			if !ok || v == nil {
				row.Values = append(row.Values, Missing)
				continue
			}
			row.Values = append(row.Values, fmt.Sprint(v))
		}
		rows = append(rows, row)
	}

	return Table{
		Headers:      append([]string{"Specification"}, names...),
		Rows:         rows,
		ProductNames: names,
	}
}
