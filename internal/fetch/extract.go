package fetch

import (
	"bytes"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"golang.org/x/net/html"

	"github.com/sells-group/product-compare/internal/model"
)

// Size caps for extracted fields, in runes.
const (
	maxDescription = 500
	maxCleanText   = 10000
	maxTableKey    = 100
	maxTableValue  = 500
	maxInfoCell    = 200
)

// PriceRe matches a currency-tagged amount.
var PriceRe = regexp.MustCompile(`[$€£₹]\s?\d[\d,]*(?:\.\d+)?`)

var spaceRe = regexp.MustCompile(`\s+`)

// Extraction is the content pulled from one page.
type Extraction struct {
	Title       string
	Description string
	Price       string
	SpecText    string
	Tables      []model.SpecTable
	CleanText   string
}

// Extract parses body with the strategy registered for kind. The document
// is mutated while computing clean text, so that step runs last.
func Extract(body []byte, kind model.SiteKind, reg *Registry) (Extraction, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return Extraction{}, eris.Wrap(err, "fetch: parse html")
	}
	strat := reg.Lookup(kind)

	ex := Extraction{
		Title:       pageTitle(doc),
		Description: pageDescription(doc),
		Price:       pagePrice(doc, strat.Prices),
	}
	if strat.Specs != nil {
		ex.SpecText, ex.Tables = strat.Specs(doc)
	}
	ex.CleanText = cleanText(doc)
	return ex, nil
}

func pageTitle(doc *goquery.Document) string {
	if v := metaContent(doc, `meta[property="og:title"]`); v != "" {
		return v
	}
	if t := textOf(doc.Find("title").First()); t != "" {
		return t
	}
	return textOf(doc.Find("h1").First())
}

func pageDescription(doc *goquery.Document) string {
	if v := metaContent(doc, `meta[name="description"]`); v != "" {
		return v
	}
	if v := metaContent(doc, `meta[property="og:description"]`); v != "" {
		return v
	}
	return truncate(textOf(doc.Find("p").First()), maxDescription)
}

func metaContent(doc *goquery.Document, selector string) string {
	v, _ := doc.Find(selector).First().Attr("content")
	return strings.TrimSpace(v)
}

// pagePrice tries each locator in order, then scans the whole page.
func pagePrice(doc *goquery.Document, locators []PriceLocator) string {
	for _, locate := range locators {
		found := ""
		locate(doc).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			found = MatchPrice(s.Text())
			return found == ""
		})
		if found != "" {
			return found
		}
	}
	return MatchPrice(doc.Text())
}

// MatchPrice returns the first currency-tagged amount in text with inner
// whitespace removed.
func MatchPrice(text string) string {
	m := PriceRe.FindString(text)
	return strings.Join(strings.Fields(m), "")
}

// cleanText strips page chrome and returns one trimmed line per text run.
func cleanText(doc *goquery.Document) string {
	doc.Find("script, style, nav, footer, header, aside, noscript").Remove()
	return truncate(joinedText(doc.Selection, "\n"), maxCleanText)
}

// textOf returns the whitespace-collapsed text of s.
func textOf(s *goquery.Selection) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(s.Text(), " "))
}

// joinedText joins every non-empty text node under s with sep.
func joinedText(s *goquery.Selection, sep string) string {
	var parts []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			if t := strings.TrimSpace(spaceRe.ReplaceAllString(n.Data, " ")); t != "" {
				parts = append(parts, t)
			}
			return
		case html.ElementNode:
			if n.Data == "script" || n.Data == "style" {
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range s.Nodes {
		walk(n)
	}
	return strings.Join(parts, sep)
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}

// parseTable reads rows of a table. Two-cell rows become key/value pairs
// within size bounds; short single-cell rows become {info: text}.
func parseTable(table *goquery.Selection) model.SpecTable {
	var rows model.SpecTable
	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.ChildrenFiltered("td, th")
		switch {
		case cells.Length() >= 2:
			key := textOf(cells.Eq(0))
			value := textOf(cells.Eq(1))
			if key != "" && value != "" &&
				utf8.RuneCountInString(key) < maxTableKey &&
				utf8.RuneCountInString(value) < maxTableValue {
				rows = append(rows, model.SpecRow{Key: key, Value: value})
			}
		case cells.Length() == 1:
			text := textOf(cells)
			if text != "" && utf8.RuneCountInString(text) < maxInfoCell {
				rows = append(rows, model.SpecRow{Key: "info", Value: text})
			}
		}
	})
	return rows
}

// definitionList pairs dt/dd elements of a dl.
func definitionList(dl *goquery.Selection) model.SpecTable {
	dts := dl.Find("dt")
	dds := dl.Find("dd")
	n := min(dts.Length(), dds.Length())
	var rows model.SpecTable
	for i := 0; i < n; i++ {
		key := textOf(dts.Eq(i))
		value := textOf(dds.Eq(i))
		if key != "" && value != "" {
			rows = append(rows, model.SpecRow{Key: key, Value: value})
		}
	}
	return rows
}

// byClass selects elements matching tags whose class attribute matches re.
func byClass(doc *goquery.Document, tags string, re *regexp.Regexp) *goquery.Selection {
	return doc.Find(tags).FilterFunction(func(_ int, s *goquery.Selection) bool {
		class, ok := s.Attr("class")
		return ok && re.MatchString(class)
	})
}

// specLines accumulates "key: value" lines and free-text lines.
type specLines []string

func (l *specLines) add(s string) {
	if s = strings.TrimSpace(s); s != "" {
		*l = append(*l, s)
	}
}

func (l *specLines) addTable(t model.SpecTable) {
	for _, row := range t {
		l.add(row.Key + ": " + row.Value)
	}
}

func (l specLines) String() string { return strings.Join(l, "\n") }
