package order

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/vitrine/internal/domain/pricing"
	"github.com/xenking/vitrine/internal/domain/reservation"
)

// Status is the fulfillment state of an order.
type Status string

// StatusPendingWhatsApp is the state of every order written by checkout:
// waiting for the merchant to confirm it over chat.
const StatusPendingWhatsApp Status = "pending_whatsapp"

// PlatformWebCatalog tags orders placed through the storefront.
const PlatformWebCatalog = "web_catalog"

// PickupAddress is the address string of orders collected at the store.
const PickupAddress = "Retirada na Loja"

// Address is a delivery address.
type Address struct {
	Street       string `json:"street"`
	Number       string `json:"number"`
	Neighborhood string `json:"neighborhood"`
	Reference    string `json:"reference,omitempty"`
}

func (a Address) String() string {
	s := fmt.Sprintf("%s, %s - %s", a.Street, a.Number, a.Neighborhood)
	if a.Reference != "" {
		s += " (" + a.Reference + ")"
	}
	return s
}

// Customer holds the contact data captured at checkout.
type Customer struct {
	Name           string   `json:"name"`
	Phone          string   `json:"phone"`
	AddressString  string   `json:"addressString"`
	AddressDetails *Address `json:"addressDetails"`
}

// Item is an order line with the price captured at checkout.
type Item struct {
	ProductID       string          `json:"id"`
	Name            string          `json:"name"`
	SKU             string          `json:"sku"`
	Quantity        int             `json:"qty"`
	Price           decimal.Decimal `json:"price"`
	Size            string          `json:"size,omitempty"`
	Color           string          `json:"color,omitempty"`
	Image           string          `json:"image,omitempty"`
	MaxInstallments int             `json:"maxInstallments,omitempty"`
}

// Subtotal is price × quantity.
func (i Item) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Variation renders the chosen axes as "M/Azul".
func (i Item) Variation() string {
	var parts []string
	for _, p := range []string{i.Size, i.Color} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, "/")
}

// Order is a checkout request forwarded to the merchant. It is immutable
// once written except by the fulfillment process.
type Order struct {
	ID            string          `json:"id"`
	ShortID       string          `json:"shortId"`
	StoreID       string          `json:"storeId"`
	Customer      Customer        `json:"customer"`
	Items         []Item          `json:"items"`
	Method        pricing.Method  `json:"method"`
	PaymentMethod string          `json:"paymentMethod"`
	Pickup        bool            `json:"pickup"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	DeliveryFee   decimal.Decimal `json:"deliveryFee"`
	Total         decimal.Decimal `json:"total"`
	Status        Status          `json:"status"`
	Platform      string          `json:"platform"`
	StockDeducted bool            `json:"stockDeducted"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// ShortID derives the customer-facing order code: the last five characters
// of the id, uppercased.
func ShortID(id string) string {
	id = strings.ReplaceAll(id, "-", "")
	if len(id) > 5 {
		id = id[len(id)-5:]
	}
	return strings.ToUpper(id)
}

// Repository persists orders.
type Repository interface {
	// CreateWithReservations writes the order and its reservations as one
	// atomic unit. Implementations re-verify availability inside the unit
	// and return a *StockLostError when it no longer covers a reservation.
	CreateWithReservations(ctx context.Context, o *Order, reservations []reservation.Reservation) error
}
