package model

import (
	"regexp"
	"strings"
)

// Category is the closed set of product kinds the pipeline understands.
type Category string

const (
	CategorySmartphone Category = "smartphone"
	CategoryLaptop     Category = "laptop"
	CategoryTablet     Category = "tablet"
	CategoryHeadphones Category = "headphones"
	CategorySmartwatch Category = "smartwatch"
	CategoryTV         Category = "tv"
	CategoryToothpaste Category = "toothpaste"
	CategoryFMCG       Category = "fmcg"
	CategoryGeneral    Category = "general"
)

// AllCategories returns every known category.
func AllCategories() []Category {
	return []Category{
		CategoryToothpaste,
		CategorySmartphone,
		CategoryLaptop,
		CategoryTablet,
		CategoryHeadphones,
		CategorySmartwatch,
		CategoryTV,
		CategoryFMCG,
		CategoryGeneral,
	}
}

// ParseCategory maps free text to a Category. Unknown values report false.
func ParseCategory(s string) (Category, bool) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllCategories() {
		if c == known {
			return c, true
		}
	}
	return "", false
}

// categoryKeywords drives category inference. Toothpaste is checked before
// smartphone so "colgate" never matches a phone brand. Tablet and tv are
// checked before smartphone so "galaxy tab" and "samsung tv" do not resolve
// to a phone by brand name.
var categoryKeywords = []struct {
	category Category
	words    []string
}{
	{CategoryToothpaste, []string{"toothpaste", "colgate", "pepsodent", "sensodyne", "closeup", "close up", "oral-b", "dabur red", "patanjali dant"}},
	{CategoryTablet, []string{"ipad", "galaxy tab", "tab", "tablet"}},
	{CategoryHeadphones, []string{"airpods", "headphone", "headphones", "earbuds", "earphone", "earphones", "buds", "headset"}},
	{CategorySmartwatch, []string{"smartwatch", "watch", "fitbit", "garmin", "band"}},
	{CategoryLaptop, []string{"laptop", "macbook", "thinkpad", "xps", "zenbook", "notebook", "chromebook", "surface", "pavilion", "inspiron", "legion", "rog"}},
	{CategoryTV, []string{"tv", "television", "oled", "qled"}},
	{CategorySmartphone, []string{"phone", "smartphone", "mobile", "iphone", "galaxy", "pixel", "oneplus", "redmi", "realme", "vivo", "oppo", "poco", "xiaomi", "nothing", "motorola", "nokia", "samsung"}},
	{CategoryFMCG, []string{"soap", "shampoo", "detergent", "cream", "lotion", "face wash", "body wash"}},
}

var nonWord = regexp.MustCompile(`[^a-z0-9\-]+`)

// InferCategory detects a category from keywords in the query. Keywords
// match whole words only, so "tab" does not fire on "stable".
func InferCategory(query string) Category {
	padded := " " + strings.TrimSpace(nonWord.ReplaceAllString(strings.ToLower(query), " ")) + " "
	for _, entry := range categoryKeywords {
		for _, w := range entry.words {
			if strings.Contains(padded, " "+w+" ") {
				return entry.category
			}
		}
	}
	return CategoryGeneral
}
