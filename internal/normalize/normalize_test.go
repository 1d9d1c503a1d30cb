package normalize

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/product-compare/internal/model"
	"github.com/sells-group/product-compare/internal/oracle"
)

// phaseOracle answers by phase and records every prompt it saw.
type phaseOracle struct {
	mu      sync.Mutex
	replies map[string]string
	errs    map[string]error
	prompts map[string][]string
}

func newPhaseOracle() *phaseOracle {
	return &phaseOracle{
		replies: map[string]string{},
		errs:    map[string]error{},
		prompts: map[string][]string{},
	}
}

func (o *phaseOracle) Complete(_ context.Context, phase, prompt string) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.prompts[phase] = append(o.prompts[phase], prompt)
	return o.replies[phase], o.errs[phase]
}

func (o *phaseOracle) calls(phase string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.prompts[phase])
}

func TestPreferences(t *testing.T) {
	t.Parallel()

	o := newPhaseOracle()
	o.replies[oracle.PhasePreferences] = `Here: ["camera", "price", "battery", "design"]`
	prefs := New(o).Preferences(context.Background(), "best camera phone under 20000", model.CategorySmartphone)
	assert.Equal(t, []string{"camera", "price", "battery"}, prefs)
	assert.Contains(t, o.prompts[oracle.PhasePreferences][0], `"best camera phone under 20000"`)
}

func TestPreferences_EmptyQuerySkipsOracle(t *testing.T) {
	t.Parallel()

	o := newPhaseOracle()
	assert.Nil(t, New(o).Preferences(context.Background(), "  ", model.CategoryGeneral))
	assert.Equal(t, 0, o.calls(oracle.PhasePreferences))
}

func TestPreferences_Failures(t *testing.T) {
	t.Parallel()

	assert.Nil(t, New(oracle.Unavailable{}).Preferences(context.Background(), "q", model.CategoryGeneral))

	o := newPhaseOracle()
	o.replies[oracle.PhasePreferences] = "no idea"
	assert.Nil(t, New(o).Preferences(context.Background(), "q", model.CategoryGeneral))
}

func TestConvert(t *testing.T) {
	t.Parallel()

	n := New(oracle.Unavailable{})
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"$350", "₹29,050", true},
		{"$350.00", "₹29,050", true},
		{"$ 350", "₹29,050", true},
		{"$1,299.99", "₹107,899", true},
		{"$5", "₹415.00", true},
		{"₹29,050", "", false},
		{"350", "", false},
		{"$", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := n.Convert(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConvert_NeverReconvertsTarget(t *testing.T) {
	t.Parallel()

	n := New(oracle.Unavailable{}, WithExchangeRate(90))
	got, ok := n.Convert("$100")
	require.True(t, ok)
	assert.Equal(t, "₹9,000", got)

	_, ok = n.Convert(got)
	assert.False(t, ok)
}

func TestNormalizeKey(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "processor", NormalizeKey("Chipset"))
	assert.Equal(t, "display_size", NormalizeKey("Screen Size"))
	assert.Equal(t, "display_resolution", NormalizeKey("resolution"))
	assert.Equal(t, "storage", NormalizeKey("ROM"))
	assert.Equal(t, "weight", NormalizeKey("mass"))
	assert.Equal(t, "5g_support", NormalizeKey("5G-Support"))
	assert.Equal(t, "fluoride_content", NormalizeKey("Fluoride Content"))
	assert.Equal(t, "display_size", NormalizeKey("Display  Size"))
	assert.Equal(t, "display_size", NormalizeKey(" screen -\tsize "))
	assert.Equal(t, "battery", NormalizeKey("battery__capacity"))

	for synonym, canonical := range keySynonyms {
		assert.Equal(t, canonical, NormalizeKey(synonym))
		assert.Equal(t, canonical, NormalizeKey(canonical), "canonical key %q must be a fixed point", canonical)
	}
}

func TestNormalizeKeys_Idempotent(t *testing.T) {
	t.Parallel()

	in := model.Specs{
		"CPU":       "A16",
		"processor": "A16 Bionic",
		"Memory":    "6GB",
		"screen":    "6.1 inches",
		"nfc":       "Yes",
		"blank":     "",
	}
	once := NormalizeKeys(in)
	assert.Equal(t, model.Specs{
		"processor":    "A16 Bionic",
		"ram":          "6GB",
		"display_size": "6.1 inches",
		"nfc":          "Yes",
	}, once)
	assert.Equal(t, once, NormalizeKeys(once))
}

func TestScrapedContent(t *testing.T) {
	t.Parallel()

	p := &model.Product{
		CombinedSpecText: strings.Repeat("s", 2500),
		FetchedPages: []model.FetchedPage{
			{RawSpecText: strings.Repeat("r", 1200), CleanText: "clean"},
			{CleanText: ""},
		},
	}
	parts := strings.Split(ScrapedContent(p), "\n")
	require.Len(t, parts, 3)
	assert.Len(t, parts[0], 2000)
	assert.Len(t, parts[1], 1000)
	assert.Equal(t, "clean", parts[2])

	assert.Empty(t, ScrapedContent(&model.Product{}))
}

func TestExtract_KnownPriceWins(t *testing.T) {
	t.Parallel()

	o := newPhaseOracle()
	o.replies[oracle.PhaseExtraction] = "```json\n" + `{"smartphone": {"Chipset": "A16", "Screen Size": "6.1 inches", "rom": "128GB", "nfc": true, "weight": "N/A", "price": "$999", "cameras": {"main": "48MP"}}}` + "\n```"

	p := &model.Product{
		Name:             "iPhone 15",
		Price:            "₹69,900",
		CombinedSpecText: "--- Source: gsmarena ---\nChipset: Apple A16 Bionic",
	}
	New(o).Extract(context.Background(), p, model.CategorySmartphone)

	assert.Equal(t, model.ExtractionSuccess, p.ExtractionStatus)
	assert.Equal(t, model.Specs{
		"processor":    "A16",
		"display_size": "6.1 inches",
		"storage":      "128GB",
		"nfc":          "Yes",
		"price":        "₹69,900",
	}, p.Specifications)

	prompt := o.prompts[oracle.PhaseExtraction][0]
	assert.Contains(t, prompt, "Product: iPhone 15")
	assert.Contains(t, prompt, "Product Type: smartphone")
	assert.Contains(t, prompt, "Current Price: ₹69,900 (USE THIS EXACT PRICE)")
	assert.Contains(t, prompt, "Chipset: Apple A16 Bionic")
}

func TestExtract_PriceReconciliation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		reply  string
		price  string
		alts   []string
		want   any
		absent bool
	}{
		{name: "source currency converted", reply: `{"brand": "Sony", "price": "$350"}`, want: "₹29,050"},
		{name: "target currency kept", reply: `{"brand": "Sony", "price": "₹31,990"}`, alts: []string{"₹29,990"}, want: "₹31,990"},
		{name: "alternate used", reply: `{"brand": "Sony"}`, alts: []string{"$349", "₹29,990"}, want: "₹29,990"},
		{name: "untrusted product price ignored", reply: `{"brand": "Sony", "price": "$350"}`, price: "€320", want: "₹29,050"},
		{name: "no price anywhere", reply: `{"brand": "Sony"}`, absent: true},
		{name: "unmarked value untouched", reply: `{"brand": "Sony", "price": "29990"}`, want: "29990"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := newPhaseOracle()
			o.replies[oracle.PhaseExtraction] = tt.reply
			p := &model.Product{Name: "Sony WH-1000XM5", Price: tt.price, AlternatePrices: tt.alts}
			New(o).Extract(context.Background(), p, model.CategoryHeadphones)

			require.Equal(t, model.ExtractionSuccess, p.ExtractionStatus)
			if tt.absent {
				assert.NotContains(t, p.Specifications, "price")
				return
			}
			assert.Equal(t, tt.want, p.Specifications["price"])
		})
	}
}

func TestExtract_UnparseableIsPartial(t *testing.T) {
	t.Parallel()

	o := newPhaseOracle()
	o.replies[oracle.PhaseExtraction] = `I could not find anything. {"brand": "unknown", "ram": ""}`
	p := &model.Product{Name: "Mystery Phone"}
	New(o).Extract(context.Background(), p, model.CategorySmartphone)

	assert.Equal(t, model.ExtractionPartial, p.ExtractionStatus)
	assert.Equal(t, model.Specs{"product_name": "Mystery Phone"}, p.Specifications)
}

func TestExtract_OracleErrorIsFailed(t *testing.T) {
	t.Parallel()

	o := newPhaseOracle()
	o.errs[oracle.PhaseExtraction] = errors.New("boom")
	p := &model.Product{Name: "Colgate Total", Price: "₹120"}
	New(o).Extract(context.Background(), p, model.CategoryToothpaste)

	assert.Equal(t, model.ExtractionFailed, p.ExtractionStatus)
	assert.Equal(t, model.Specs{"product_name": "Colgate Total", "price": "₹120"}, p.Specifications)
}

func TestExtract_SpecsAlwaysFlat(t *testing.T) {
	t.Parallel()

	o := newPhaseOracle()
	o.replies[oracle.PhaseExtraction] = `{"a": {"b": {"c": {"ram": "8GB", "colors": ["black", "blue"], "extra": {"x": 1}, "ports": [{"usb": 2}]}}}}`
	p := &model.Product{Name: "Pixel 8"}
	New(o).Extract(context.Background(), p, model.CategorySmartphone)

	require.Equal(t, model.ExtractionSuccess, p.ExtractionStatus)
	for k, v := range p.Specifications {
		switch v.(type) {
		case map[string]any, []any:
			t.Fatalf("key %q holds nested value %v", k, v)
		}
	}
	assert.Equal(t, "8GB", p.Specifications["ram"])
	assert.Equal(t, "black, blue", p.Specifications["colors"])
}

func TestCompare_ParsesOracleVerdict(t *testing.T) {
	t.Parallel()

	o := newPhaseOracle()
	o.replies[oracle.PhaseComparison] = `Here is my analysis:
{
  "priority_recommendation": {"aspect": "camera", "winner": "Pixel 8", "reason": "Better sensor"},
  "aspect_recommendations": [
    {"aspect": "battery", "winner": "iPhone 15", "reason": "longer", "details": "3349 vs 4575"}
  ],
  "overall_recommendation": {"winner": "Pixel 8", "summary": "Best camera."}
}
Hope that helps.`

	products := []*model.Product{
		{Name: "Pixel 8", Price: "₹75,999", Specifications: model.Specs{"ram": "8GB"}},
		{Name: "iPhone 15", Specifications: model.Specs{"price": "₹69,900"}},
	}
	res := New(o).Compare(context.Background(), "pixel 8 vs iphone 15 for camera", []string{"camera"}, model.CategorySmartphone, products)

	assert.Equal(t, model.ComparisonSuccess, res.Status)
	assert.Equal(t, "camera", res.UserPriority)
	assert.Equal(t, "Pixel 8", res.PriorityRecommendation.Winner)
	require.Len(t, res.AspectRecommendations, 1)
	assert.Equal(t, "3349 vs 4575", res.AspectRecommendations[0].Details)
	assert.Equal(t, "Pixel 8", res.OverallRecommendation.Winner)

	prompt := o.prompts[oracle.PhaseComparison][0]
	assert.Contains(t, prompt, "User Priority: camera")
	assert.Contains(t, prompt, `"price": "₹75,999"`)
	assert.Contains(t, prompt, `"price": "₹69,900"`)
	assert.Contains(t, prompt, `["Pixel 8","iPhone 15"]`)
	assert.Contains(t, prompt, "do NOT use smartphone aspects for toothpaste")
}

func TestCompare_Fallbacks(t *testing.T) {
	t.Parallel()

	two := []*model.Product{{Name: "Colgate MaxFresh"}, {Name: "Pepsodent Germicheck"}}
	want := model.ComparisonResult{
		Status:       model.ComparisonFallback,
		UserPriority: DefaultPriority,
		PriorityRecommendation: model.Verdict{
			Aspect: DefaultPriority,
			Winner: "Colgate MaxFresh",
			Reason: "Based on available data",
		},
		AspectRecommendations: []model.AspectRecommendation{{
			Aspect: "overall",
			Winner: "See comparison table",
			Reason: "Compare the toothpaste specifications above to make your decision",
		}},
		OverallRecommendation: model.OverallRecommendation{
			Winner:  "Colgate MaxFresh",
			Summary: "Compare Colgate MaxFresh and Pepsodent Germicheck using the specification table above to find the best toothpaste for your needs.",
		},
	}

	t.Run("oracle error", func(t *testing.T) {
		res := New(oracle.Unavailable{}).Compare(context.Background(), "q", nil, model.CategoryToothpaste, two)
		assert.Equal(t, want, res)
	})

	t.Run("garbage output", func(t *testing.T) {
		o := newPhaseOracle()
		o.replies[oracle.PhaseComparison] = `{"note": "cannot compare"}`
		res := New(o).Compare(context.Background(), "q", nil, model.CategoryToothpaste, two)
		assert.Equal(t, want, res)
	})

	t.Run("single product skips oracle", func(t *testing.T) {
		o := newPhaseOracle()
		res := New(o).Compare(context.Background(), "q", []string{"whitening"}, model.CategoryToothpaste, two[:1])
		assert.Equal(t, 0, o.calls(oracle.PhaseComparison))
		assert.Equal(t, model.ComparisonFallback, res.Status)
		assert.Equal(t, "whitening", res.UserPriority)
		assert.Equal(t, "Colgate MaxFresh", res.OverallRecommendation.Winner)
	})

	t.Run("no products", func(t *testing.T) {
		res := Fallback(nil, DefaultPriority, model.CategoryGeneral)
		assert.Equal(t, model.ComparisonFallback, res.Status)
		assert.Empty(t, res.OverallRecommendation.Winner)
	})
}

func TestNormalize_OfflineDegradesGracefully(t *testing.T) {
	t.Parallel()

	products := []*model.Product{
		{Name: "vivo y73", Price: "₹17,990"},
		{Name: "realme 8 pro"},
	}
	res := New(oracle.Unavailable{}).Normalize(context.Background(), "compare vivo y73 vs realme 8 pro", model.CategorySmartphone, products)

	assert.Empty(t, res.Preferences)
	assert.Equal(t, model.ComparisonFallback, res.Comparison.Status)
	assert.Equal(t, "vivo y73", res.Comparison.OverallRecommendation.Winner)
	for _, p := range products {
		assert.Equal(t, model.ExtractionFailed, p.ExtractionStatus)
		assert.Equal(t, p.Name, p.Specifications["product_name"])
	}
	assert.Equal(t, "₹17,990", products[0].Specifications["price"])
}
