package fetch

import (
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"

	"github.com/sells-group/product-compare/internal/model"
)

var (
	priceClassRe   = regexp.MustCompile(`(?i)price`)
	aboutClassRe   = regexp.MustCompile(`(?i)about`)
	appleSpecRe    = regexp.MustCompile(`(?i)techspecs|specs`)
	samsungSpecRe  = regexp.MustCompile(`(?i)spec|feature`)
	infoboxRe      = regexp.MustCompile(`(?i)infobox`)
	rtingsResultRe = regexp.MustCompile(`(?i)test-result|score`)
	specListRe     = regexp.MustCompile(`(?i)feature|spec|detail|benefit`)
	genericSpecRe  = regexp.MustCompile(`(?i)spec|feature|detail|technical|overview|ingredient|nutrition|about`)
)

// Generic extractor bounds.
const (
	maxContainerText = 2000
	maxLongText      = 1000
	maxGenericTables = 5
	maxGenericDLs    = 3
	maxGenericLists  = 3
)

func css(selector string) PriceLocator {
	return func(doc *goquery.Document) *goquery.Selection { return doc.Find(selector) }
}

func classMatch(tags string, re *regexp.Regexp) PriceLocator {
	return func(doc *goquery.Document) *goquery.Selection { return byClass(doc, tags, re) }
}

var (
	genericPrices = []PriceLocator{
		classMatch("span", priceClassRe),
		classMatch("div", priceClassRe),
		css(`span[itemprop="price"]`),
	}
	amazonPrices = []PriceLocator{
		css("span.a-price-whole"),
		css("span#priceblock_ourprice"),
		css("span.a-offscreen"),
		css("span.a-price"),
	}
	walmartPrices = []PriceLocator{
		css(`span[itemprop="price"]`),
		classMatch("span", priceClassRe),
	}
	targetPrices = []PriceLocator{
		css(`span[data-test="product-price"]`),
		classMatch("span", priceClassRe),
	}
	bestbuyPrices = []PriceLocator{
		css("div.priceView-customer-price"),
		func(doc *goquery.Document) *goquery.Selection {
			return doc.Find("span.sr-only").FilterFunction(func(_ int, s *goquery.Selection) bool {
				return strings.Contains(s.Text(), "$")
			})
		},
	}
)

func gsmarenaSpecs(doc *goquery.Document) (string, []model.SpecTable) {
	var lines specLines
	var tables []model.SpecTable

	specTables := doc.Find("table.specs-brief")
	if specTables.Length() == 0 {
		specTables = doc.Find("table")
	}
	specTables.Each(func(_ int, t *goquery.Selection) {
		var table model.SpecTable
		t.Find("tr").Each(func(_ int, tr *goquery.Selection) {
			cells := tr.ChildrenFiltered("td, th")
			if cells.Length() < 2 {
				return
			}
			key, value := textOf(cells.Eq(0)), textOf(cells.Eq(1))
			if key != "" && value != "" {
				table = append(table, model.SpecRow{Key: key, Value: value})
			}
		})
		if len(table) > 0 {
			tables = append(tables, table)
			lines.addTable(table)
		}
	})
	doc.Find("li.specs-brief-accent").Each(func(_ int, s *goquery.Selection) { lines.add(textOf(s)) })
	doc.Find("div.nfo").Each(func(_ int, s *goquery.Selection) { lines.add(textOf(s)) })
	return lines.String(), tables
}

func amazonSpecs(doc *goquery.Document) (string, []model.SpecTable) {
	var lines specLines
	var tables []model.SpecTable

	for _, id := range []string{"#productDetails_detailBullets_sections1", "#productDetails_techSpec_section_1"} {
		var table model.SpecTable
		doc.Find("table" + id + " tr").Each(func(_ int, tr *goquery.Selection) {
			th, td := tr.Find("th").First(), tr.Find("td").First()
			if th.Length() == 0 || td.Length() == 0 {
				return
			}
			table = append(table, model.SpecRow{Key: textOf(th), Value: textOf(td)})
		})
		if len(table) > 0 {
			tables = append(tables, table)
			lines.addTable(table)
		}
	}
	doc.Find("div#feature-bullets li").Each(func(_ int, s *goquery.Selection) { lines.add(textOf(s)) })
	lines.add(truncate(textOf(doc.Find("div#productDescription").First()), maxLongText))
	return lines.String(), tables
}

func walmartSpecs(doc *goquery.Document) (string, []model.SpecTable) {
	var lines specLines
	doc.Find(`div[data-testid="product-highlights"] li`).Each(func(_ int, s *goquery.Selection) { lines.add(textOf(s)) })
	doc.Find(`div[data-testid="specifications"]`).First().Find("tr, div").Each(func(_ int, s *goquery.Selection) {
		lines.add(joinedText(s, ": "))
	})
	lines.add(truncate(textOf(byClass(doc, "div", aboutClassRe).First()), maxLongText))
	return lines.String(), nil
}

func targetSpecs(doc *goquery.Document) (string, []model.SpecTable) {
	var lines specLines
	doc.Find(`div[data-test="item-highlights"] li`).Each(func(_ int, s *goquery.Selection) { lines.add(textOf(s)) })
	lines.add(joinedText(doc.Find(`div[data-test="item-details-specifications"]`).First(), "\n"))
	lines.add(truncate(textOf(doc.Find(`div[data-test="item-details-description"]`).First()), maxLongText))
	return lines.String(), nil
}

func appleSpecs(doc *goquery.Document) (string, []model.SpecTable) {
	var lines specLines
	var tables []model.SpecTable

	byClass(doc, "div", appleSpecRe).Each(func(_ int, section *goquery.Selection) {
		lines.add(joinedText(section, "\n"))
		section.Find("table").Each(func(_ int, t *goquery.Selection) {
			if table := parseTable(t); len(table) > 0 {
				tables = append(tables, table)
			}
		})
	})
	doc.Find("dl").Each(func(_ int, dl *goquery.Selection) {
		if table := definitionList(dl); len(table) > 0 {
			tables = append(tables, table)
			lines.addTable(table)
		}
	})
	return lines.String(), tables
}

func samsungSpecs(doc *goquery.Document) (string, []model.SpecTable) {
	var lines specLines
	var tables []model.SpecTable

	byClass(doc, "div", samsungSpecRe).Each(func(_ int, section *goquery.Selection) {
		if text := joinedText(section, "\n"); len(text) > 10 {
			lines.add(text)
		}
	})
	doc.Find("table").Each(func(_ int, t *goquery.Selection) {
		if table := parseTable(t); len(table) > 0 {
			tables = append(tables, table)
		}
	})
	return lines.String(), tables
}

func wikipediaSpecs(doc *goquery.Document) (string, []model.SpecTable) {
	var lines specLines
	var tables []model.SpecTable

	if table := parseTable(byClass(doc, "table", infoboxRe).First()); len(table) > 0 {
		tables = append(tables, table)
		lines.addTable(table)
	}
	paras := doc.Find("div.mw-parser-output").First().Find("p")
	paras.Slice(0, min(5, paras.Length())).Each(func(_ int, p *goquery.Selection) {
		if text := textOf(p); len(text) > 50 {
			lines.add(text)
		}
	})
	return lines.String(), tables
}

func rtingsSpecs(doc *goquery.Document) (string, []model.SpecTable) {
	var lines specLines
	var tables []model.SpecTable

	byClass(doc, "div", rtingsResultRe).Each(func(_ int, s *goquery.Selection) { lines.add(textOf(s)) })
	doc.Find("table").Each(func(_ int, t *goquery.Selection) {
		if table := parseTable(t); len(table) > 0 {
			tables = append(tables, table)
			lines.addTable(table)
		}
	})
	return lines.String(), tables
}

// genericSpecs scans spec-labelled containers, tables, definition lists and
// feature lists. Containers are converted to markdown so list and heading
// structure survives into the prompt.
func genericSpecs(doc *goquery.Document) (string, []model.SpecTable) {
	var lines specLines
	var tables []model.SpecTable
	seen := make(map[string]bool)
	conv := md.NewConverter("", true, nil)

	byClass(doc, "div, section, article", genericSpecRe).Each(func(_ int, s *goquery.Selection) {
		text := containerText(conv, s)
		if len(text) <= 20 || seen[text] {
			return
		}
		seen[text] = true
		lines.add(truncate(text, maxContainerText))
	})

	tbls := doc.Find("table")
	tbls.Slice(0, min(maxGenericTables, tbls.Length())).Each(func(_ int, t *goquery.Selection) {
		if table := parseTable(t); len(table) > 0 {
			tables = append(tables, table)
			lines.addTable(table)
		}
	})

	dls := doc.Find("dl")
	dls.Slice(0, min(maxGenericDLs, dls.Length())).Each(func(_ int, dl *goquery.Selection) {
		lines.addTable(definitionList(dl))
	})

	lists := byClass(doc, "ul, ol", specListRe)
	lists.Slice(0, min(maxGenericLists, lists.Length())).Each(func(_ int, l *goquery.Selection) {
		l.Find("li").Each(func(_ int, li *goquery.Selection) {
			if text := textOf(li); len(text) > 10 {
				lines.add(text)
			}
		})
	})
	return lines.String(), tables
}

func containerText(conv *md.Converter, s *goquery.Selection) string {
	html, err := goquery.OuterHtml(s)
	if err == nil {
		if out, err := conv.ConvertString(html); err == nil {
			if out = strings.TrimSpace(out); out != "" {
				return out
			}
		}
	}
	return joinedText(s, "\n")
}
