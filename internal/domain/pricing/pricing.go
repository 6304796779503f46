// Package pricing resolves the unit price of a product or variation for a
// payment method at a point in time.
package pricing

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/vitrine/internal/domain/catalog"
)

// Method is a payment method as chosen by the shopper.
type Method string

// Payment methods. Every method other than MethodCard is priced at the Pix
// tier.
const (
	MethodPix  Method = "Pix"
	MethodCard Method = "Cartão"
	MethodCash Method = "Dinheiro"
)

// IsPromoActive reports whether p's promotion applies at now. The promotion
// is always measured against the product base value, even when a variation
// carries its own price.
func IsPromoActive(p *catalog.Product, now time.Time) bool {
	if !p.PromoValue.Valid || !p.PromoValue.Decimal.IsPositive() {
		return false
	}
	if !p.PromoValue.Decimal.LessThan(p.Value) {
		return false
	}
	return p.PromoUntil == nil || p.PromoUntil.After(now)
}

// Tiers returns the product's Pix and card base prices.
func Tiers(p *catalog.Product) (pix, card decimal.Decimal) {
	pix, card = p.Value, p.Value
	if p.PriceCash.Valid {
		pix = p.PriceCash.Decimal
	}
	if p.PriceCard.Valid {
		card = p.PriceCard.Decimal
	}
	return pix, card
}

// CardDelta is the fixed card surcharge over the Pix tier.
func CardDelta(p *catalog.Product) decimal.Decimal {
	pix, card := Tiers(p)
	return card.Sub(pix)
}

// Base returns the unpromoted unit price, by precedence: the variation's own
// price, then the product's method-specific price, then the product value.
func Base(p *catalog.Product, v *catalog.Variation, method Method) decimal.Decimal {
	if v != nil && v.Price.Valid {
		return v.Price.Decimal
	}
	pix, card := Tiers(p)
	if method == MethodCard {
		return card
	}
	return pix
}

// Resolve returns the unit price of p, or of its variation v when non-nil,
// paid with method at now.
func Resolve(p *catalog.Product, v *catalog.Variation, method Method, now time.Time) decimal.Decimal {
	if !IsPromoActive(p, now) {
		return Base(p, v, method).Round(2)
	}

	promoPix := p.PromoValue.Decimal
	if v != nil && v.Price.Valid {
		promoPix = v.Price.Decimal.Mul(p.PromoValue.Decimal).Div(p.Value)
	}
	if method == MethodCard {
		return promoPix.Add(CardDelta(p)).Round(2)
	}
	return promoPix.Round(2)
}

// Quote is the unit price of a selection for every known method.
type Quote struct {
	Pix         decimal.Decimal `json:"pix"`
	Card        decimal.Decimal `json:"card"`
	PromoActive bool            `json:"promoActive"`
}

// QuoteFor prices a selection for both tiers.
func QuoteFor(p *catalog.Product, v *catalog.Variation, now time.Time) Quote {
	return Quote{
		Pix:         Resolve(p, v, MethodPix, now),
		Card:        Resolve(p, v, MethodCard, now),
		PromoActive: IsPromoActive(p, now),
	}
}

// FormatBRL renders d as Brazilian currency without thousands separators,
// e.g. "R$ 1234,50".
func FormatBRL(d decimal.Decimal) string {
	return "R$ " + strings.Replace(d.StringFixed(2), ".", ",", 1)
}
