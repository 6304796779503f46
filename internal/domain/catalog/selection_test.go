package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func shirt() *Product {
	return &Product{
		ID:     "shirt",
		Name:   "Camiseta Básica",
		Sizes:  []string{"P", "M", "G"},
		Colors: []string{"Azul", "Preto"},
		Variations: []Variation{
			{Size: "P", Color: "Azul", Stock: 2},
			{Size: "M", Color: " Preto ", Stock: 5},
		},
	}
}

func TestMatchVariation(t *testing.T) {
	tests := []struct {
		name      string
		sel       Selection
		wantFound bool
		wantStock int
	}{
		{name: "exact", sel: Selection{Size: "P", Color: "Azul"}, wantFound: true, wantStock: 2},
		{name: "case and whitespace", sel: Selection{Size: " m", Color: "preto"}, wantFound: true, wantStock: 5},
		{name: "no combination", sel: Selection{Size: "G", Color: "Azul"}},
		{name: "missing axis", sel: Selection{Size: "P"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, ok := MatchVariation(shirt(), tt.sel)
			require.Equal(t, tt.wantFound, ok)
			if ok {
				assert.Equal(t, tt.wantStock, v.Stock)
			}
		})
	}
}

func TestMatchVariation_OnlyDeclaredAxes(t *testing.T) {
	p := &Product{
		Sizes:      []string{"38", "40"},
		Variations: []Variation{{Size: "40", Color: "whatever", Stock: 7}},
	}

	v, ok := MatchVariation(p, Selection{Size: "40"})
	require.True(t, ok)
	assert.Equal(t, 7, v.Stock)
}

func TestMatchVariation_NoAxes(t *testing.T) {
	p := &Product{Variations: []Variation{{Size: "U", Stock: 3}}}

	_, ok := MatchVariation(p, Selection{Size: "U"})
	assert.False(t, ok)
}

func TestCanonical(t *testing.T) {
	tests := []struct {
		name    string
		product *Product
		sel     Selection
		want    Selection
	}{
		{name: "variation spelling", product: shirt(), sel: Selection{Size: " m", Color: "PRETO"}, want: Selection{Size: "M", Color: "Preto"}},
		{name: "declared option spelling", product: shirt(), sel: Selection{Size: "g", Color: "azul"}, want: Selection{Size: "G", Color: "Azul"}},
		{name: "undeclared axes cleared", product: &Product{ID: "mug"}, sel: Selection{Size: "A", Color: "Red"}, want: Selection{}},
		{name: "unknown value kept trimmed", product: shirt(), sel: Selection{Size: " XG ", Color: "Azul"}, want: Selection{Size: "XG", Color: "Azul"}},
		{name: "missing axis stays empty", product: shirt(), sel: Selection{Size: "p"}, want: Selection{Size: "P"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Canonical(tt.product, tt.sel))
		})
	}
}

func TestSelectionComplete(t *testing.T) {
	p := shirt()

	assert.True(t, Selection{Size: "P", Color: "Azul"}.Complete(p))
	assert.False(t, Selection{Size: "P"}.Complete(p))
	assert.False(t, Selection{Size: "P", Color: "  "}.Complete(p))
	assert.True(t, Selection{}.Complete(&Product{}))
}

func TestSanitizeTerm(t *testing.T) {
	assert.Equal(t, "camiseta", SanitizeTerm("  <Camiseta>  "))
	assert.Equal(t, "ab", SanitizeTerm("{a}[b]|/\\"))
	assert.Len(t, []rune(SanitizeTerm("ãããããããããããããããããããããããããããããããããããã")), 30)
}

func TestSearch(t *testing.T) {
	products := []Product{
		{ID: "1", Name: "Camiseta Azul", Category: "roupas"},
		{ID: "2", Name: "Boné", SKU: "BN-01", Category: "acessorios"},
	}

	assert.Len(t, Search(products, ""), 2)
	assert.Equal(t, "1", Search(products, "CAMISETA")[0].ID)
	assert.Equal(t, "2", Search(products, "bn-01")[0].ID)
	assert.Empty(t, Search(products, "sapato"))
}

func TestValidStoreID(t *testing.T) {
	assert.True(t, ValidStoreID("loja_centro-01"))
	assert.False(t, ValidStoreID("../etc"))
	assert.False(t, ValidStoreID(""))
}
