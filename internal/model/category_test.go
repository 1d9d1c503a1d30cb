package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInferCategory(t *testing.T) {
	t.Parallel()

	tests := []struct {
		query string
		want  Category
	}{
		{"compare vivo y73 vs realme 8 pro", CategorySmartphone},
		{"iPhone 15 vs Samsung Galaxy S24", CategorySmartphone},
		{"MacBook Pro vs Dell XPS 15 for video editing", CategoryLaptop},
		{"Colgate vs Pepsodent", CategoryToothpaste},
		{"Samsung Galaxy Tab S9 vs iPad Air", CategoryTablet},
		{"Galaxy Buds vs AirPods Pro", CategoryHeadphones},
		{"Apple Watch vs Galaxy Watch", CategorySmartwatch},
		{"LG OLED vs Sony Bravia TV", CategoryTV},
		{"samsung tv vs lg oled tv", CategoryTV},
		{"Samsung QLED vs Xiaomi TV", CategoryTV},
		{"Dove soap vs Pears", CategoryFMCG},
		{"Oral-B toothbrush", CategoryToothpaste},
		{"stable diffusion", CategoryGeneral},
		{"", CategoryGeneral},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, InferCategory(tt.query))
		})
	}
}

func TestParseCategory(t *testing.T) {
	t.Parallel()

	c, ok := ParseCategory(" Laptop ")
	assert.True(t, ok)
	assert.Equal(t, CategoryLaptop, c)

	_, ok = ParseCategory("spaceship")
	assert.False(t, ok)
}

func TestProductAddAlternatePrice(t *testing.T) {
	t.Parallel()

	var p Product
	p.AddAlternatePrice("₹79,999")
	p.AddAlternatePrice("")
	p.AddAlternatePrice("₹79,999")
	p.AddAlternatePrice("$999")
	assert.Equal(t, []string{"₹79,999", "$999"}, p.AlternatePrices)
}

func TestIsUserError(t *testing.T) {
	t.Parallel()

	assert.True(t, IsUserError(ErrNoProductsFound))
	assert.True(t, IsUserError(ErrNotEnoughProducts))
	assert.False(t, IsUserError(ErrBackendUnavailable))
	assert.False(t, IsUserError(nil))
}
