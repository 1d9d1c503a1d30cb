package search

import "github.com/sells-group/product-compare/internal/model"

// CategoryConfig tailors the specification query to a category.
type CategoryConfig struct {
	SpecSites []string
	ShopSites []string
	Suffix    string
}

// Only the first maxSiteFilter spec sites go into the OR-of-site filter.
const maxSiteFilter = 4

var categoryConfigs = map[model.Category]CategoryConfig{
	model.CategorySmartphone: {
		SpecSites: []string{"gsmarena.com", "91mobiles.com", "smartprix.com", "gadgets360.com"},
		ShopSites: []string{"amazon.in", "flipkart.com", "croma.com", "vijaysales.com"},
		Suffix:    "specifications features",
	},
	model.CategoryLaptop: {
		SpecSites: []string{"notebookcheck.net", "laptopmag.com", "91mobiles.com", "gadgets360.com"},
		ShopSites: []string{"amazon.in", "flipkart.com", "croma.com", "dell.com", "hp.com"},
		Suffix:    "specifications features review",
	},
	model.CategoryTablet: {
		SpecSites: []string{"gsmarena.com", "91mobiles.com", "smartprix.com", "gadgets360.com"},
		ShopSites: []string{"amazon.in", "flipkart.com", "croma.com"},
		Suffix:    "specifications features",
	},
	model.CategoryHeadphones: {
		SpecSites: []string{"rtings.com", "91mobiles.com", "gadgets360.com", "amazon.in"},
		ShopSites: []string{"amazon.in", "flipkart.com", "croma.com"},
		Suffix:    "specifications review",
	},
	model.CategorySmartwatch: {
		SpecSites: []string{"91mobiles.com", "smartprix.com", "gadgets360.com", "amazon.in"},
		ShopSites: []string{"amazon.in", "flipkart.com", "croma.com"},
		Suffix:    "specifications features",
	},
	model.CategoryTV: {
		SpecSites: []string{"rtings.com", "91mobiles.com", "gadgets360.com", "amazon.in"},
		ShopSites: []string{"amazon.in", "flipkart.com", "croma.com", "reliancedigital.in"},
		Suffix:    "specifications review",
	},
	model.CategoryToothpaste: {
		SpecSites: []string{"amazon.in", "flipkart.com", "1mg.com", "netmeds.com", "bigbasket.com"},
		ShopSites: []string{"amazon.in", "flipkart.com", "bigbasket.com", "jiomart.com"},
		Suffix:    "ingredients benefits review",
	},
	model.CategoryFMCG: {
		SpecSites: []string{"amazon.in", "flipkart.com", "bigbasket.com", "jiomart.com"},
		ShopSites: []string{"amazon.in", "flipkart.com", "bigbasket.com", "1mg.com"},
		Suffix:    "review features",
	},
	model.CategoryGeneral: {
		SpecSites: []string{"amazon.in", "flipkart.com"},
		ShopSites: []string{"amazon.in", "flipkart.com", "croma.com"},
		Suffix:    "review specifications",
	},
}

// ConfigFor returns the search configuration for c, falling back to general.
func ConfigFor(c model.Category) CategoryConfig {
	if cfg, ok := categoryConfigs[c]; ok {
		return cfg
	}
	return categoryConfigs[model.CategoryGeneral]
}
