package order

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/xenking/vitrine/internal/domain"
	"github.com/xenking/vitrine/internal/domain/pricing"
)

// DeliveryMode is how the order reaches the customer.
type DeliveryMode string

// Delivery modes.
const (
	DeliveryPickup   DeliveryMode = "pickup"
	DeliveryShipping DeliveryMode = "delivery"
)

const minPhoneDigits = 10

// Payment is the payment choice made at checkout. ChangeFor only applies to
// cash and Installments only to card.
type Payment struct {
	Method       pricing.Method
	ChangeFor    decimal.NullDecimal
	Installments int
}

// Annotate renders the payment method string stored on the order:
// the method, plus the change due when paying cash with a larger note, or
// the installment count when paying by card in more than one installment.
func (p Payment) Annotate(total decimal.Decimal) string {
	s := string(p.Method)
	switch p.Method {
	case pricing.MethodCash:
		if p.ChangeFor.Valid && p.ChangeFor.Decimal.GreaterThan(total) {
			s += fmt.Sprintf(" (Troco para %s)", pricing.FormatBRL(p.ChangeFor.Decimal))
		}
	case pricing.MethodCard:
		if p.Installments > 1 {
			s += fmt.Sprintf(" (%dx)", p.Installments)
		}
	}
	return s
}

// Delivery is the shipping choice made at checkout.
type Delivery struct {
	Mode    DeliveryMode
	Fee     decimal.Decimal
	Address Address
}

// Pickup reports whether the customer collects the order.
func (d Delivery) Pickup() bool { return d.Mode == DeliveryPickup }

// EffectiveFee is the fee charged: zero for pickup.
func (d Delivery) EffectiveFee() decimal.Decimal {
	if d.Pickup() {
		return decimal.Zero
	}
	return d.Fee.Round(2)
}

// AddressString renders the delivery place.
func (d Delivery) AddressString() string {
	if d.Pickup() {
		return PickupAddress
	}
	return d.Address.String()
}

// CustomerInput is the contact data typed by the shopper.
type CustomerInput struct {
	Name  string
	Phone string
}

// CheckoutRequest is the input of Service.Checkout. Cart lines are read
// from the session cart, never from the request.
type CheckoutRequest struct {
	StoreID   string
	SessionID string
	Customer  CustomerInput
	Delivery  Delivery
	Payment   Payment
}

// normalize trims every free-text field in place.
func (r *CheckoutRequest) normalize() {
	r.Customer.Name = strings.TrimSpace(r.Customer.Name)
	r.Customer.Phone = strings.TrimSpace(r.Customer.Phone)
	a := &r.Delivery.Address
	a.Street = strings.TrimSpace(a.Street)
	a.Number = strings.TrimSpace(a.Number)
	a.Neighborhood = strings.TrimSpace(a.Neighborhood)
	a.Reference = strings.TrimSpace(a.Reference)
	r.Payment.Method = pricing.Method(strings.TrimSpace(string(r.Payment.Method)))
}

// validate checks the request without touching any store.
func (r *CheckoutRequest) validate() error {
	switch {
	case r.Customer.Name == "":
		return domain.Invalid("name", "required")
	case countDigits(r.Customer.Phone) < minPhoneDigits:
		return domain.Invalid("phone", "must have at least 10 digits")
	case r.Payment.Method == "":
		return domain.Invalid("payment", "required")
	case r.Payment.Installments < 0:
		return domain.Invalid("installments", "must not be negative")
	}

	switch r.Delivery.Mode {
	case DeliveryPickup:
		return nil
	case DeliveryShipping:
	default:
		return domain.Invalid("delivery", "choose pickup or delivery")
	}

	a := r.Delivery.Address
	switch {
	case a.Street == "":
		return domain.Invalid("street", "required")
	case a.Number == "":
		return domain.Invalid("number", "required")
	case a.Neighborhood == "":
		return domain.Invalid("neighborhood", "required")
	case r.Delivery.Fee.IsNegative():
		return domain.Invalid("deliveryFee", "must not be negative")
	}
	return nil
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsDigit(r) {
			n++
		}
	}
	return n
}
