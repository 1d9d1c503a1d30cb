package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/product-compare/internal/model"
)

func TestExamples(t *testing.T) {
	t.Parallel()

	examples, err := Examples()
	require.NoError(t, err)
	require.Len(t, examples, 5)
	assert.Equal(t, Example{Query: "Compare iPhone 15 vs Samsung Galaxy S24", Category: model.CategorySmartphone}, examples[0])
	assert.Equal(t, model.CategoryLaptop, examples[2].Category)

	// Callers get a copy.
	examples[0].Query = "changed"
	again, err := Examples()
	require.NoError(t, err)
	assert.Equal(t, "Compare iPhone 15 vs Samsung Galaxy S24", again[0].Query)
}

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		doc     string
		want    int
		wantErr string
	}{
		{name: "empty", doc: "", want: 0},
		{name: "valid", doc: "examples:\n  - query: a vs b\n    category: tv\n", want: 1},
		{name: "missing query", doc: "examples:\n  - category: tv\n", wantErr: "no query"},
		{name: "unknown category", doc: "examples:\n  - query: a vs b\n    category: cars\n", wantErr: "unknown category"},
		{name: "malformed", doc: "examples: [", wantErr: "catalog: decode"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse([]byte(tt.doc))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, got)
			assert.Len(t, got, tt.want)
		})
	}
}
