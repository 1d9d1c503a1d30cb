package normalize

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/product-compare/internal/jsonx"
	"github.com/sells-group/product-compare/internal/model"
	"github.com/sells-group/product-compare/internal/oracle"
)

// Compare produces the recommendation. Fewer than two products, an oracle
// failure or unparseable output all yield Fallback.
func (n *Normalizer) Compare(ctx context.Context, query string, prefs []string, category model.Category, products []*model.Product) model.ComparisonResult {
	priority := DefaultPriority
	if len(prefs) > 0 {
		priority = prefs[0]
	}
	if len(products) < 2 {
		return Fallback(products, priority, category)
	}

	raw, err := n.oracle.Complete(ctx, oracle.PhaseComparison, ComparisonPrompt(query, priority, category, products))
	if err != nil {
		zap.L().Error("normalize: comparison failed", zap.Error(err))
		return Fallback(products, priority, category)
	}
	res, err := ParseComparison(raw)
	if err != nil {
		zap.L().Warn("normalize: comparison unparseable", zap.Error(err))
		return Fallback(products, priority, category)
	}
	if res.UserPriority == "" {
		res.UserPriority = priority
	}
	return res
}

// ParseComparison decodes the first JSON object in raw. An object naming no
// overall winner and no aspects is rejected.
func ParseComparison(raw string) (model.ComparisonResult, error) {
	var res model.ComparisonResult
	if err := jsonx.Decode(raw, &res); err != nil {
		return model.ComparisonResult{}, eris.Wrap(model.ErrComparisonParse, err.Error())
	}
	if res.OverallRecommendation.Winner == "" && len(res.AspectRecommendations) == 0 {
		return model.ComparisonResult{}, eris.Wrap(model.ErrComparisonParse, "normalize: recommendation is empty")
	}
	res.Status = model.ComparisonSuccess
	return res, nil
}

// Fallback is the deterministic recommendation naming the first product.
func Fallback(products []*model.Product, priority string, category model.Category) model.ComparisonResult {
	names := make([]string, 0, len(products))
	for _, p := range products {
		names = append(names, p.Name)
	}
	first := ""
	if len(names) > 0 {
		first = names[0]
	}
	summary := fmt.Sprintf("Compare %s using the specification table above to find the best %s for your needs.",
		strings.Join(names, " and "), category)
	return model.ComparisonResult{
		Status:       model.ComparisonFallback,
		UserPriority: priority,
		PriorityRecommendation: model.Verdict{
			Aspect: priority,
			Winner: first,
			Reason: "Based on available data",
		},
		AspectRecommendations: []model.AspectRecommendation{{
			Aspect: "overall",
			Winner: "See comparison table",
			Reason: fmt.Sprintf("Compare the %s specifications above to make your decision", category),
		}},
		OverallRecommendation: model.OverallRecommendation{
			Winner:  first,
			Summary: summary,
		},
	}
}
