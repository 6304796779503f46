package catalog

import (
	"context"
	"regexp"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Sentinel errors for catalog lookups.
var (
	ErrProductNotFound = errors.New("product not found")
	ErrStoreNotFound   = errors.New("store not found")
)

// StatusActive marks a product listed in the storefront.
const StatusActive = "active"

// Product is a catalog item as recorded in the authoritative store.
type Product struct {
	ID              string              `json:"id"`
	Name            string              `json:"name"`
	SKU             string              `json:"sku,omitempty"`
	Value           decimal.Decimal     `json:"value"`
	PriceCash       decimal.NullDecimal `json:"priceCash"`
	PriceCard       decimal.NullDecimal `json:"priceCard"`
	PromoValue      decimal.NullDecimal `json:"promoValue"`
	PromoUntil      *time.Time          `json:"promoUntil,omitempty"`
	Stock           int                 `json:"stock"`
	Sizes           []string            `json:"sizes,omitempty"`
	Colors          []string            `json:"colors,omitempty"`
	Variations      []Variation         `json:"variations,omitempty"`
	Images          []string            `json:"images,omitempty"`
	Category        string              `json:"category,omitempty"`
	Description     string              `json:"description,omitempty"`
	Status          string              `json:"status"`
	MaxInstallments int                 `json:"maxInstallments,omitempty"`
}

// Variation is one (size, color) combination of a product.
type Variation struct {
	Size   string              `json:"size,omitempty"`
	Color  string              `json:"color,omitempty"`
	Stock  int                 `json:"stock"`
	Price  decimal.NullDecimal `json:"price"`
	SKU    string              `json:"sku,omitempty"`
	Image  string              `json:"image,omitempty"`
	Active bool                `json:"active"`
}

// HasAxes reports whether the product declares a size or color axis.
func (p *Product) HasAxes() bool {
	return len(p.Sizes) > 0 || len(p.Colors) > 0
}

// Image returns the first product image, or "" when there is none.
func (p *Product) Image() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

// StoreConfig is the per-store configuration document.
type StoreConfig struct {
	StoreID      string         `json:"storeId"`
	Name         string         `json:"name"`
	WhatsApp     string         `json:"whatsapp"`
	Currency     string         `json:"currency,omitempty"`
	DeliveryNote string         `json:"deliveryNote,omitempty"`
	Theme        map[string]any `json:"theme,omitempty"`
	LastUpdate   time.Time      `json:"lastUpdate"`

	// DeliveryFee, when set, is charged on every delivery order in place of
	// the fee sent by the client.
	DeliveryFee decimal.NullDecimal `json:"deliveryFee"`
}

// Banner is a storefront hero card.
type Banner struct {
	ID       string `json:"id"`
	Title    string `json:"title,omitempty"`
	Subtitle string `json:"subtitle,omitempty"`
	Image    string `json:"image"`
	Link     string `json:"link,omitempty"`
	Position int    `json:"position"`
}

// Repository reads the catalog from the authoritative store. Implementations
// must not serve reads from a local cache.
type Repository interface {
	GetConfig(ctx context.Context, storeID string) (*StoreConfig, error)
	GetProduct(ctx context.Context, storeID, productID string) (*Product, error)
	ListActiveProducts(ctx context.Context, storeID string) ([]Product, error)
	ListBanners(ctx context.Context, storeID string) ([]Banner, error)
}

var storeIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ValidStoreID reports whether id is usable as a store namespace.
func ValidStoreID(id string) bool {
	return storeIDPattern.MatchString(id)
}
