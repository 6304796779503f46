// Package messaging hands a finished order over to the merchant's chat.
package messaging

import (
	"context"
	"net/url"
	"strings"
	"unicode"

	"go.uber.org/zap"
)

// Message is the human-readable summary of an order and where to send it.
type Message struct {
	StoreID     string `json:"storeId"`
	OrderID     string `json:"orderId"`
	ShortID     string `json:"shortId"`
	Destination string `json:"destination"`
	Text        string `json:"text"`
	Link        string `json:"link"`
}

// Handoff delivers a message. Callers treat it as fire-and-forget: an error
// is logged and never changes the outcome of the order.
type Handoff interface {
	Handoff(ctx context.Context, msg Message) error
}

// WhatsAppLink builds the wa.me deep link that opens a chat with dest
// pre-filled with text. Non-digit characters are stripped from dest.
func WhatsAppLink(dest, text string) string {
	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, dest)
	return "https://wa.me/" + digits + "?text=" + strings.ReplaceAll(url.QueryEscape(text), "+", "%20")
}

// LogHandoff records messages in the log only. It is used when no broker is
// configured; the shopper still follows the link returned by checkout.
type LogHandoff struct {
	lg *zap.Logger
}

// NewLogHandoff creates a LogHandoff.
func NewLogHandoff(lg *zap.Logger) *LogHandoff {
	return &LogHandoff{lg: lg}
}

// Handoff logs msg.
func (h *LogHandoff) Handoff(_ context.Context, msg Message) error {
	h.lg.Info("Order handed off",
		zap.String("store_id", msg.StoreID),
		zap.String("order_id", msg.OrderID),
		zap.String("short_id", msg.ShortID),
		zap.String("destination", msg.Destination),
	)
	return nil
}
