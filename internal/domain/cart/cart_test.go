package cart

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xenking/vitrine/internal/domain/catalog"
)

func TestNewLineKey(t *testing.T) {
	k := NewLineKey(" p1 ", catalog.Selection{Size: " M ", Color: "Azul "})

	assert.Equal(t, LineKey{ProductID: "p1", Size: "M", Color: "Azul"}, k)
	assert.Equal(t, "p1-M-Azul", k.String())
	assert.Equal(t, "p1--", NewLineKey("p1", catalog.Selection{}).String())
}

func TestCartMergeAndRemove(t *testing.T) {
	c := New("loja", "s1")
	a := LineKey{ProductID: "a"}
	b := LineKey{ProductID: "b", Size: "G"}

	c.Merge(Line{LineKey: a, Quantity: 1, Name: "old"})
	c.Merge(Line{LineKey: b, Quantity: 2})
	c.Merge(Line{LineKey: a, Quantity: 2, Name: "new"})

	assert.Len(t, c.Lines, 2)
	assert.Equal(t, 3, c.Quantity(a))
	assert.Equal(t, 5, c.Count())
	l, _ := c.Find(a)
	assert.Equal(t, "new", l.Name)

	c.SetQuantity(b, 0)
	assert.Len(t, c.Lines, 1)
	assert.Zero(t, c.Quantity(b))

	c.Remove(a)
	assert.True(t, c.Empty())
}
