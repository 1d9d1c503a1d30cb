package normalize

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sells-group/product-compare/internal/model"
)

const maxPromptContent = 3000

// PreferencesPrompt asks for a JSON array of priority keywords.
func PreferencesPrompt(query string, category model.Category) string {
	return fmt.Sprintf(`Analyze this user query and identify their priorities/preferences.

Query: %q
Product Type: %s

Return ONLY a JSON array of 1-3 preference keywords that matter to this user.
Examples:
- For "best camera phone under 20000" -> ["camera", "price"]
- For "toothpaste for sensitive teeth" -> ["sensitivity protection"]
- For "gaming laptop with good battery" -> ["gaming performance", "battery"]
- For "running shoes for marathon" -> ["comfort", "durability"]

Return ONLY the JSON array, nothing else:
["preference1", "preference2"]`, query, category)
}

// ExtractionPrompt asks for a flat specification object. knownPrice, when
// non-empty, is quoted as the price to use verbatim.
func ExtractionPrompt(name string, category model.Category, knownPrice, content string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are a product specification expert. Extract relevant specifications for this product.\n\n")
	fmt.Fprintf(&b, "Product: %s\nProduct Type: %s\n", name, category)
	if knownPrice != "" {
		fmt.Fprintf(&b, "Current Price: %s (USE THIS EXACT PRICE)\n", knownPrice)
	}
	if content != "" {
		fmt.Fprintf(&b, "\nScraped content (use if helpful):\n---\n%s\n---\n", truncate(content, maxPromptContent))
	}
	fmt.Fprintf(&b, `
IMPORTANT RULES:
1. Return a FLAT JSON object (no nested objects!)
2. Use CONSISTENT key names from this list:
   - %s
3. Values must be simple strings or numbers (NOT objects or arrays)
4. If price is known, include it in the local currency format
5. Omit any field you don't know (don't write "N/A" or "Unknown")

For %s, extract the RELEVANT specifications only.

CORRECT FORMAT EXAMPLE:
{
    "brand": "Samsung",
    "model": "Galaxy S24",
    "display_size": "6.2 inches",
    "processor": "Snapdragon 8 Gen 3",
    "ram": "8GB",
    "storage": "256GB",
    "battery": "4000 mAh",
    "camera_main": "50 MP",
    "camera_front": "12 MP",
    "os": "Android 14",
    "price": "₹79,999"
}

WRONG FORMAT (DO NOT DO THIS):
{
    "smartphone": {
        "brand": "Samsung"
    }
}

Return ONLY the flat JSON object, no explanation or markdown.`, strings.Join(keyGroups, "\n   - "), category)
	return b.String()
}

// keyGroups lists the canonical vocabulary as shown to the oracle.
var keyGroups = []string{
	"brand, model, product_name",
	"display_size, display_resolution, refresh_rate",
	"processor, ram, storage",
	"battery, charging",
	"camera_main, camera_front",
	"os, weight, price",
	"5g_support, nfc, bluetooth",
}

type productSummary struct {
	Name           string      `json:"name"`
	Price          string      `json:"price"`
	Specifications model.Specs `json:"specifications"`
}

// ComparisonPrompt asks the oracle to pick category-appropriate aspects and
// a winner for each.
func ComparisonPrompt(query, priority string, category model.Category, products []*model.Product) string {
	summaries := make([]productSummary, 0, len(products))
	names := make([]string, 0, len(products))
	for _, p := range products {
		summaries = append(summaries, productSummary{
			Name:           p.Name,
			Price:          resolvedPrice(p),
			Specifications: p.Specifications,
		})
		names = append(names, p.Name)
	}
	data, _ := json.MarshalIndent(summaries, "", "  ")
	nameList, _ := json.Marshal(names)

	aspect := func(ordinal string) string {
		return fmt.Sprintf(`        {
            "aspect": "%s relevant aspect for %s",
            "winner": "product name",
            "reason": "specific reason with actual values",
            "details": "comparison details"
        }`, ordinal, category)
	}
	aspects := []string{aspect("first"), aspect("second"), aspect("third"), aspect("fourth"), aspect("fifth")}

	return fmt.Sprintf(`You are a product comparison expert. Compare these %[1]s products and provide recommendations.

User Query: %[2]q
User Priority: %[3]s
Product Type: %[1]s

Products to Compare:
%[4]s

IMPORTANT INSTRUCTIONS:
1. First, determine 5-6 relevant comparison aspects for "%[1]s" products.
   - For smartphones: price, performance, camera, battery, display, storage
   - For toothpaste: price, whitening, cavity protection, freshness, sensitivity protection, ingredients
   - For laptops: price, performance, display, portability, battery, build quality
   - For shampoo: price, effectiveness, hair type suitability, ingredients, fragrance
   - For shoes: price, comfort, durability, style, material quality
   - Choose aspects that make sense for %[1]s!

2. Compare the products on each of these RELEVANT aspects.

3. Use ACTUAL data from the specifications provided above.

Return ONLY this JSON format:
{
    "user_priority": "%[3]s",
    "priority_recommendation": {
        "aspect": "%[3]s",
        "winner": "product name from %[5]s",
        "reason": "specific reason based on actual specs"
    },
    "aspect_recommendations": [
%[6]s
    ],
    "overall_recommendation": {
        "winner": "best product name",
        "summary": "2-3 sentence summary explaining why this %[1]s is recommended based on the user's needs"
    }
}

CRITICAL RULES:
1. The aspects MUST be relevant to %[1]s - do NOT use smartphone aspects for toothpaste!
2. Use ACTUAL specifications from the data provided
3. Be specific with comparisons (e.g., "contains fluoride vs fluoride-free" for toothpaste)
4. Return ONLY valid JSON, no markdown or explanation`,
		category, query, priority, data, nameList, strings.Join(aspects, ",\n"))
}

// resolvedPrice is the product price, falling back to the extracted one.
func resolvedPrice(p *model.Product) string {
	if p.Price != "" {
		return p.Price
	}
	if v, ok := p.Specifications["price"]; ok {
		if s := fmt.Sprint(v); s != "" {
			return s
		}
	}
	return "N/A"
}
