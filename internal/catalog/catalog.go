// Package catalog serves the sample comparison queries shown to API clients.
package catalog

import (
	_ "embed"
	"sync"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/product-compare/internal/model"
)

//go:embed examples.yaml
var examplesYAML []byte

// Example is one sample query.
type Example struct {
	Query    string         `yaml:"query" json:"query"`
	Category model.Category `yaml:"category" json:"category"`
}

type document struct {
	Examples []Example `yaml:"examples"`
}

var (
	loadOnce sync.Once
	loaded   []Example
	loadErr  error
)

// Examples returns the embedded sample queries.
func Examples() ([]Example, error) {
	loadOnce.Do(func() {
		loaded, loadErr = Parse(examplesYAML)
	})
	if loadErr != nil {
		return nil, loadErr
	}
	out := make([]Example, len(loaded))
	copy(out, loaded)
	return out, nil
}

// Parse decodes a catalog document. Every example needs a query and a known
// category.
func Parse(data []byte) ([]Example, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrap(err, "catalog: decode")
	}
	for i, ex := range doc.Examples {
		if ex.Query == "" {
			return nil, eris.Errorf("catalog: example %d has no query", i)
		}
		if _, ok := model.ParseCategory(string(ex.Category)); !ok {
			return nil, eris.Errorf("catalog: example %d has unknown category %q", i, ex.Category)
		}
	}
	if doc.Examples == nil {
		doc.Examples = []Example{}
	}
	return doc.Examples, nil
}
