package firestoredb

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/vitrine/internal/domain/catalog"
	"github.com/xenking/vitrine/internal/domain/order"
	"github.com/xenking/vitrine/internal/domain/reservation"
)

// Storefront documents hold numbers as doubles; prices are rounded to
// cents when read.

type configDoc struct {
	Name         string         `firestore:"name"`
	WhatsApp     string         `firestore:"whatsapp"`
	Currency     string         `firestore:"currency,omitempty"`
	DeliveryNote string         `firestore:"deliveryNote,omitempty"`
	DeliveryFee  *float64       `firestore:"deliveryFee"`
	Theme        map[string]any `firestore:"theme,omitempty"`
	LastUpdate   time.Time      `firestore:"lastUpdate"`
}

func (d configDoc) toDomain(storeID string) *catalog.StoreConfig {
	return &catalog.StoreConfig{
		StoreID:      storeID,
		Name:         d.Name,
		WhatsApp:     d.WhatsApp,
		Currency:     d.Currency,
		DeliveryNote: d.DeliveryNote,
		DeliveryFee:  nullMoney(d.DeliveryFee),
		Theme:        d.Theme,
		LastUpdate:   d.LastUpdate,
	}
}

type variationDoc struct {
	Size   string   `firestore:"size"`
	Color  string   `firestore:"color"`
	Stock  float64  `firestore:"stock"`
	Price  *float64 `firestore:"price"`
	SKU    string   `firestore:"sku"`
	Image  string   `firestore:"image"`
	Active *bool    `firestore:"active"`
}

type productDoc struct {
	Name            string         `firestore:"name"`
	SKU             string         `firestore:"sku"`
	Value           float64        `firestore:"value"`
	PriceCash       *float64       `firestore:"priceCash"`
	PriceCard       *float64       `firestore:"priceCard"`
	PromoValue      *float64       `firestore:"promoValue"`
	PromoUntil      *time.Time     `firestore:"promoUntil"`
	Stock           float64        `firestore:"stock"`
	Sizes           []string       `firestore:"sizes"`
	Colors          []string       `firestore:"colors"`
	Variations      []variationDoc `firestore:"variations"`
	Images          []string       `firestore:"images"`
	Category        string         `firestore:"category"`
	Description     string         `firestore:"description"`
	Status          string         `firestore:"status"`
	MaxInstallments float64        `firestore:"maxInstallments"`
}

func (d productDoc) toDomain(id string) catalog.Product {
	p := catalog.Product{
		ID:              id,
		Name:            d.Name,
		SKU:             d.SKU,
		Value:           money(d.Value),
		PriceCash:       nullMoney(d.PriceCash),
		PriceCard:       nullMoney(d.PriceCard),
		PromoValue:      nullMoney(d.PromoValue),
		PromoUntil:      d.PromoUntil,
		Stock:           count(d.Stock),
		Sizes:           d.Sizes,
		Colors:          d.Colors,
		Images:          d.Images,
		Category:        d.Category,
		Description:     d.Description,
		Status:          d.Status,
		MaxInstallments: count(d.MaxInstallments),
	}
	for _, v := range d.Variations {
		p.Variations = append(p.Variations, catalog.Variation{
			Size:   v.Size,
			Color:  v.Color,
			Stock:  count(v.Stock),
			Price:  nullMoney(v.Price),
			SKU:    v.SKU,
			Image:  v.Image,
			Active: v.Active == nil || *v.Active,
		})
	}
	return p
}

func productToDoc(p catalog.Product) productDoc {
	d := productDoc{
		Name:            p.Name,
		SKU:             p.SKU,
		Value:           p.Value.InexactFloat64(),
		PriceCash:       nullFloat(p.PriceCash),
		PriceCard:       nullFloat(p.PriceCard),
		PromoValue:      nullFloat(p.PromoValue),
		PromoUntil:      p.PromoUntil,
		Stock:           float64(p.Stock),
		Sizes:           p.Sizes,
		Colors:          p.Colors,
		Images:          p.Images,
		Category:        p.Category,
		Description:     p.Description,
		Status:          p.Status,
		MaxInstallments: float64(p.MaxInstallments),
	}
	if d.Status == "" {
		d.Status = catalog.StatusActive
	}
	for _, v := range p.Variations {
		active := v.Active
		d.Variations = append(d.Variations, variationDoc{
			Size:   v.Size,
			Color:  v.Color,
			Stock:  float64(v.Stock),
			Price:  nullFloat(v.Price),
			SKU:    v.SKU,
			Image:  v.Image,
			Active: &active,
		})
	}
	return d
}

type bannerDoc struct {
	Title    string  `firestore:"title"`
	Subtitle string  `firestore:"subtitle"`
	Image    string  `firestore:"image"`
	Link     string  `firestore:"link"`
	Position float64 `firestore:"position"`
}

type reservationVariationDoc struct {
	Size  *string `firestore:"size"`
	Color *string `firestore:"color"`
}

type reservationDoc struct {
	ProductID string                  `firestore:"productId"`
	OrderID   string                  `firestore:"orderId"`
	Quantity  float64                 `firestore:"qty"`
	Variation reservationVariationDoc `firestore:"variation"`
	Status    string                  `firestore:"status"`
	CreatedAt time.Time               `firestore:"createdAt"`
}

func reservationToDoc(r reservation.Reservation) reservationDoc {
	return reservationDoc{
		ProductID: r.ProductID,
		OrderID:   r.OrderID,
		Quantity:  float64(r.Quantity),
		Variation: reservationVariationDoc{Size: nullString(r.Size), Color: nullString(r.Color)},
		Status:    string(r.Status),
		CreatedAt: r.CreatedAt,
	}
}

func (d reservationDoc) toDomain(id string) reservation.Reservation {
	r := reservation.Reservation{
		ID:        id,
		ProductID: d.ProductID,
		OrderID:   d.OrderID,
		Quantity:  count(d.Quantity),
		Status:    reservation.Status(d.Status),
		CreatedAt: d.CreatedAt,
	}
	if d.Variation.Size != nil {
		r.Size = *d.Variation.Size
	}
	if d.Variation.Color != nil {
		r.Color = *d.Variation.Color
	}
	return r
}

type addressDoc struct {
	Street       string `firestore:"street"`
	Number       string `firestore:"number"`
	Neighborhood string `firestore:"neighborhood"`
	Reference    string `firestore:"reference"`
}

type customerDoc struct {
	Name           string      `firestore:"name"`
	Phone          string      `firestore:"phone"`
	AddressString  string      `firestore:"addressString"`
	AddressDetails *addressDoc `firestore:"addressDetails"`
}

type itemVariationDoc struct {
	Size  *string `firestore:"size"`
	Color *string `firestore:"color"`
	Image string  `firestore:"image"`
	SKU   string  `firestore:"sku"`
}

type itemDoc struct {
	ID               string           `firestore:"id"`
	Name             string           `firestore:"name"`
	SKU              string           `firestore:"sku"`
	Quantity         int              `firestore:"qty"`
	Price            float64          `firestore:"price"`
	VariationDetails itemVariationDoc `firestore:"variationDetails"`
}

type orderDoc struct {
	ShortID       string      `firestore:"shortId"`
	Customer      customerDoc `firestore:"customer"`
	Items         []itemDoc   `firestore:"items"`
	PaymentMethod string      `firestore:"paymentMethod"`
	Subtotal      float64     `firestore:"subtotal"`
	DeliveryFee   float64     `firestore:"deliveryFee"`
	Total         float64     `firestore:"total"`
	Status        string      `firestore:"status"`
	Platform      string      `firestore:"platform"`
	StockDeducted bool        `firestore:"stockDeducted"`
	CreatedAt     time.Time   `firestore:"createdAt"`
}

func orderToDoc(o *order.Order) orderDoc {
	d := orderDoc{
		ShortID: o.ShortID,
		Customer: customerDoc{
			Name:          o.Customer.Name,
			Phone:         o.Customer.Phone,
			AddressString: o.Customer.AddressString,
		},
		PaymentMethod: o.PaymentMethod,
		Subtotal:      o.Subtotal.InexactFloat64(),
		DeliveryFee:   o.DeliveryFee.InexactFloat64(),
		Total:         o.Total.InexactFloat64(),
		Status:        string(o.Status),
		Platform:      o.Platform,
		StockDeducted: o.StockDeducted,
		CreatedAt:     o.CreatedAt,
	}
	if a := o.Customer.AddressDetails; a != nil {
		d.Customer.AddressDetails = &addressDoc{
			Street:       a.Street,
			Number:       a.Number,
			Neighborhood: a.Neighborhood,
			Reference:    a.Reference,
		}
	}
	for _, it := range o.Items {
		sku := it.SKU
		if sku == "" {
			sku = "N/A"
		}
		d.Items = append(d.Items, itemDoc{
			ID:       it.ProductID,
			Name:     it.Name,
			SKU:      sku,
			Quantity: it.Quantity,
			Price:    it.Price.InexactFloat64(),
			VariationDetails: itemVariationDoc{
				Size:  nullString(it.Size),
				Color: nullString(it.Color),
				Image: it.Image,
				SKU:   sku,
			},
		})
	}
	return d
}

func money(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f).Round(2)
}

func nullMoney(f *float64) decimal.NullDecimal {
	if f == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(money(*f))
}

func nullFloat(d decimal.NullDecimal) *float64 {
	if !d.Valid {
		return nil
	}
	f := d.Decimal.InexactFloat64()
	return &f
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// count converts a stored quantity, which may have been written as a
// double, to an int.
func count(f float64) int {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return int(math.Trunc(f))
}
