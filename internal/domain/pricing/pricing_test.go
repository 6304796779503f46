package pricing

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/xenking/vitrine/internal/domain/catalog"
)

var now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func nullDec(s string) decimal.NullDecimal { return decimal.NewNullDecimal(dec(s)) }

func ptr[T any](v T) *T { return &v }

func assertPrice(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), "want %s, got %s", want, got)
}

func TestIsPromoActive(t *testing.T) {
	tests := []struct {
		name    string
		product catalog.Product
		want    bool
	}{
		{name: "no promo", product: catalog.Product{Value: dec("100")}},
		{
			name:    "promo below value",
			product: catalog.Product{Value: dec("100"), PromoValue: nullDec("80")},
			want:    true,
		},
		{
			name:    "promo equal to value",
			product: catalog.Product{Value: dec("100"), PromoValue: nullDec("100")},
		},
		{
			name:    "promo above value ignores expiry",
			product: catalog.Product{Value: dec("100"), PromoValue: nullDec("120"), PromoUntil: ptr(now.Add(time.Hour))},
		},
		{
			name:    "zero promo",
			product: catalog.Product{Value: dec("100"), PromoValue: nullDec("0")},
		},
		{
			name:    "expired",
			product: catalog.Product{Value: dec("100"), PromoValue: nullDec("80"), PromoUntil: ptr(now.Add(-time.Second))},
		},
		{
			name:    "expires exactly now",
			product: catalog.Product{Value: dec("100"), PromoValue: nullDec("80"), PromoUntil: ptr(now)},
		},
		{
			name:    "not yet expired",
			product: catalog.Product{Value: dec("100"), PromoValue: nullDec("80"), PromoUntil: ptr(now.Add(time.Minute))},
			want:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsPromoActive(&tt.product, now))
		})
	}
}

func TestBase_Precedence(t *testing.T) {
	p := &catalog.Product{Value: dec("100"), PriceCash: nullDec("95"), PriceCard: nullDec("110")}

	assertPrice(t, "95", Base(p, nil, MethodPix))
	assertPrice(t, "110", Base(p, nil, MethodCard))
	assertPrice(t, "120", Base(p, &catalog.Variation{Price: nullDec("120")}, MethodCard))
	assertPrice(t, "95", Base(p, &catalog.Variation{}, MethodCash))

	plain := &catalog.Product{Value: dec("100")}
	assertPrice(t, "100", Base(plain, nil, MethodPix))
	assertPrice(t, "100", Base(plain, nil, MethodCard))
}

func TestResolve_InactivePromoReturnsBase(t *testing.T) {
	p := &catalog.Product{Value: dec("100"), PromoValue: nullDec("150"), PriceCard: nullDec("110")}

	assertPrice(t, "100", Resolve(p, nil, MethodPix, now))
	assertPrice(t, "110", Resolve(p, nil, MethodCard, now))
}

func TestResolve_CardDeltaInvariantAcrossPromo(t *testing.T) {
	p := &catalog.Product{Value: dec("100"), PriceCash: nullDec("90"), PriceCard: nullDec("105")}
	delta := CardDelta(p)
	assertPrice(t, "15", delta)

	pix := Resolve(p, nil, MethodPix, now)
	card := Resolve(p, nil, MethodCard, now)
	assertPrice(t, pix.Add(delta).String(), card)

	p.PromoValue = nullDec("70")
	pix = Resolve(p, nil, MethodPix, now)
	card = Resolve(p, nil, MethodCard, now)
	assertPrice(t, "70", pix)
	assertPrice(t, pix.Add(delta).String(), card)
}

func TestResolve_VariationScenario(t *testing.T) {
	p := &catalog.Product{Value: dec("100"), PromoValue: nullDec("80")}
	v := &catalog.Variation{Size: "G", Price: nullDec("120")}

	assertPrice(t, "96", Resolve(p, v, MethodPix, now))
	assertPrice(t, "96", Resolve(p, v, MethodCard, now))

	p.PriceCard = nullDec("130")
	p.PriceCash = nullDec("100")
	assertPrice(t, "96", Resolve(p, v, MethodPix, now))
	assertPrice(t, "126", Resolve(p, v, MethodCard, now))
}

// The promotion is keyed off the product value: a variation priced below
// the promo value still gets scaled because promoValue < value.
func TestResolve_PromoComparedAgainstProductValue(t *testing.T) {
	p := &catalog.Product{Value: dec("100"), PromoValue: nullDec("90")}
	v := &catalog.Variation{Price: nullDec("50")}

	assertPrice(t, "45", Resolve(p, v, MethodPix, now))

	p.Value = dec("80")
	assertPrice(t, "50", Resolve(p, v, MethodPix, now))
}

func TestResolve_VariationWithoutPromo(t *testing.T) {
	p := &catalog.Product{Value: dec("100"), PriceCard: nullDec("110")}
	v := &catalog.Variation{Price: nullDec("120")}

	assertPrice(t, "120", Resolve(p, v, MethodPix, now))
	assertPrice(t, "120", Resolve(p, v, MethodCard, now))
}

func TestResolve_Rounding(t *testing.T) {
	p := &catalog.Product{Value: dec("30"), PromoValue: nullDec("20")}
	v := &catalog.Variation{Price: nullDec("10")}

	assertPrice(t, "6.67", Resolve(p, v, MethodPix, now))
}

func TestQuoteFor(t *testing.T) {
	p := &catalog.Product{Value: dec("50"), PriceCard: nullDec("55"), PromoValue: nullDec("40")}

	q := QuoteFor(p, nil, now)
	assert.True(t, q.PromoActive)
	assertPrice(t, "40", q.Pix)
	assertPrice(t, "45", q.Card)
}

func TestFormatBRL(t *testing.T) {
	assert.Equal(t, "R$ 1234,50", FormatBRL(dec("1234.5")))
	assert.Equal(t, "R$ 0,00", FormatBRL(decimal.Zero))
}
