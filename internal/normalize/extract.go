package normalize

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/product-compare/internal/jsonx"
	"github.com/sells-group/product-compare/internal/model"
	"github.com/sells-group/product-compare/internal/oracle"
)

const (
	maxCombinedSpec = 2000
	maxPagePart     = 1000
	// Converted prices at or above this are rounded with thousands separators.
	groupingThreshold = 1000
)

// keySynonyms maps normalized spellings to canonical keys. No value is
// itself a key, so normalizing twice is a no-op.
var keySynonyms = map[string]string{
	"resolution":       "display_resolution",
	"screen_size":      "display_size",
	"screen":           "display_size",
	"display":          "display_size",
	"camera":           "camera_main",
	"rear_camera":      "camera_main",
	"back_camera":      "camera_main",
	"selfie_camera":    "camera_front",
	"front_cam":        "camera_front",
	"chip":             "processor",
	"chipset":          "processor",
	"cpu":              "processor",
	"soc":              "processor",
	"memory":           "ram",
	"internal_storage": "storage",
	"rom":              "storage",
	"battery_capacity": "battery",
	"os_version":       "os",
	"operating_system": "os",
	"weight_g":         "weight",
	"mass":             "weight",
}

var keySeparators = strings.NewReplacer("-", " ", "_", " ")

// NormalizeKey lower-cases k, joins its words with single underscores, then
// maps synonyms to their canonical key.
func NormalizeKey(k string) string {
	k = strings.Join(strings.Fields(keySeparators.Replace(strings.ToLower(k))), "_")
	if canonical, ok := keySynonyms[k]; ok {
		return canonical
	}
	return k
}

// NormalizeKeys rewrites every key of specs. When several keys collapse onto
// one canonical key, a key that was already canonical wins; otherwise the
// first in sorted order does.
func NormalizeKeys(specs model.Specs) model.Specs {
	keys := make([]string, 0, len(specs))
	for k := range specs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(model.Specs, len(specs))
	for _, k := range keys {
		if NormalizeKey(k) == k && !empty(specs[k]) {
			out[k] = specs[k]
		}
	}
	for _, k := range keys {
		nk := NormalizeKey(k)
		if _, taken := out[nk]; taken || empty(specs[k]) {
			continue
		}
		out[nk] = specs[k]
	}
	return out
}

func empty(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}

// Extract fills p.Specifications and p.ExtractionStatus. Oracle failures mark
// the product failed and unparseable output marks it partial; neither is
// returned.
func (n *Normalizer) Extract(ctx context.Context, p *model.Product, category model.Category) {
	log := zap.L().With(zap.String("product", p.Name))
	known := ""
	if strings.Contains(p.Price, n.target) {
		known = p.Price
	}

	prompt := ExtractionPrompt(p.Name, category, known, ScrapedContent(p))
	raw, err := n.oracle.Complete(ctx, oracle.PhaseExtraction, prompt)
	switch {
	case err != nil:
		log.Error("normalize: extraction failed", zap.Error(err))
		p.Specifications = model.Specs{"product_name": p.Name}
		p.ExtractionStatus = model.ExtractionFailed
	default:
		flat, perr := jsonx.ExtractFlat(raw)
		for _, k := range flat.Dropped {
			log.Warn("normalize: dropped nested value", zap.String("key", k))
		}
		if perr != nil {
			log.Warn("normalize: extraction output unusable",
				zap.Error(eris.Wrap(model.ErrExtractionParse, perr.Error())))
			p.Specifications = model.Specs{"product_name": p.Name}
			p.ExtractionStatus = model.ExtractionPartial
			break
		}
		specs := NormalizeKeys(flat.Values)
		n.reconcilePrice(specs, p)
		p.Specifications = specs
		p.ExtractionStatus = model.ExtractionSuccess
		log.Info("normalize: specs extracted", zap.Int("count", len(specs)))
	}

	if known != "" {
		p.Specifications["price"] = known
	}
}

// reconcilePrice settles specs["price"] using one total order: a known
// target-currency product price, then a model price already in the target
// currency, then a converted source-currency model price, then the first
// target-currency alternate observation. Anything else is left untouched.
func (n *Normalizer) reconcilePrice(specs model.Specs, p *model.Product) {
	if strings.Contains(p.Price, n.target) {
		specs["price"] = p.Price
		return
	}
	current := ""
	if v, ok := specs["price"]; ok {
		current = fmt.Sprint(v)
	}
	if strings.Contains(current, n.target) {
		return
	}
	if strings.Contains(current, n.source) {
		if converted, ok := n.Convert(current); ok {
			specs["price"] = converted
			return
		}
	}
	for _, alt := range p.AlternatePrices {
		if strings.Contains(alt, n.target) {
			specs["price"] = alt
			return
		}
	}
}

var amountRe = regexp.MustCompile(`[\d.]+`)

// Convert turns a source-currency price into the target currency at the
// configured rate. Values that already carry the target marker, or have no
// parseable amount, report false.
func (n *Normalizer) Convert(price string) (string, bool) {
	if strings.Contains(price, n.target) || !strings.Contains(price, n.source) {
		return "", false
	}
	cleaned := strings.ReplaceAll(strings.ReplaceAll(price, n.source, ""), ",", "")
	amount, err := strconv.ParseFloat(amountRe.FindString(cleaned), 64)
	if err != nil {
		zap.L().Warn("normalize: price conversion failed", zap.String("price", price), zap.Error(err))
		return "", false
	}
	value := amount * n.rate
	if value >= groupingThreshold {
		return n.printer.Sprintf("%s%.0f", n.target, value), true
	}
	return fmt.Sprintf("%s%.2f", n.target, value), true
}

// ScrapedContent concatenates the product's combined spec text and per-page
// text, each part bounded.
func ScrapedContent(p *model.Product) string {
	var parts []string
	if p.CombinedSpecText != "" {
		parts = append(parts, truncate(p.CombinedSpecText, maxCombinedSpec))
	}
	for _, page := range p.FetchedPages {
		if page.RawSpecText != "" {
			parts = append(parts, truncate(page.RawSpecText, maxPagePart))
		}
		if page.CleanText != "" {
			parts = append(parts, truncate(page.CleanText, maxPagePart))
		}
	}
	return strings.Join(parts, "\n")
}
