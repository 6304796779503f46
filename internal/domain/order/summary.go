package order

import (
	"fmt"
	"strings"

	"github.com/xenking/vitrine/internal/domain/pricing"
)

const summaryRule = "---------------------------"

// Summary renders the chat message the merchant receives for o.
func Summary(o *Order) string {
	var b strings.Builder

	fmt.Fprintf(&b, "🛍️ *PEDIDO: #%s*\n%s\n", o.ShortID, summaryRule)
	fmt.Fprintf(&b, "👤 *Cliente:* %s\n📦 *ITENS:*\n", o.Customer.Name)

	for _, it := range o.Items {
		fmt.Fprintf(&b, "• %dx %s", it.Quantity, it.Name)
		if v := it.Variation(); v != "" {
			fmt.Fprintf(&b, " (%s)", v)
		}
		b.WriteByte('\n')
		fmt.Fprintf(&b, "  Unit: %s | Sub: %s\n", pricing.FormatBRL(it.Price), pricing.FormatBRL(it.Subtotal()))
		if o.Method == pricing.MethodCard && it.MaxInstallments > 1 {
			fmt.Fprintf(&b, "  (Até %dx)\n", it.MaxInstallments)
		}
		fmt.Fprintf(&b, "  _Ref: %s_\n", it.SKU)
	}

	fmt.Fprintf(&b, "\n💰 *VALORES:*\nSubtotal: %s\n", pricing.FormatBRL(o.Subtotal))
	if !o.Pickup {
		fmt.Fprintf(&b, "Entrega: %s\n", pricing.FormatBRL(o.DeliveryFee))
	}
	fmt.Fprintf(&b, "*Total: %s*\n\n", pricing.FormatBRL(o.Total))
	fmt.Fprintf(&b, "💳 *PAG:* %s\n📍 *LOCAL:* %s\n", o.PaymentMethod, o.Customer.AddressString)
	fmt.Fprintf(&b, "%s\n_Pedido gerado via Vitrine Online_", summaryRule)

	return b.String()
}
