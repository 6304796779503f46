package messaging

import (
	"context"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestWhatsAppLink(t *testing.T) {
	link := WhatsAppLink("+55 (11) 98765-4321", "*PEDIDO: #AB12C*\nTotal: R$ 10,00 & 1+1")

	u, err := url.Parse(link)
	require.NoError(t, err)
	assert.Equal(t, "wa.me", u.Host)
	assert.Equal(t, "/5511987654321", u.Path)
	assert.Equal(t, "*PEDIDO: #AB12C*\nTotal: R$ 10,00 & 1+1", u.Query().Get("text"))
	assert.NotContains(t, link, "+")
}

func TestLogHandoff(t *testing.T) {
	h := NewLogHandoff(zap.NewNop())
	assert.NoError(t, h.Handoff(context.Background(), Message{OrderID: "o1"}))
}
