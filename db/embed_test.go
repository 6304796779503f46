package db

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrations(t *testing.T) {
	ms, err := Migrations()
	require.NoError(t, err)
	require.NotEmpty(t, ms)

	assert.Equal(t, "001_schema.sql", ms[0].Name)
	assert.True(t, strings.Contains(ms[0].SQL, "CREATE TABLE"))

	names := make([]string, len(ms))
	for i, m := range ms {
		names[i] = m.Name
	}
	assert.IsIncreasing(t, names)
	assert.Contains(t, names, "002_store_delivery_fee.sql")
}

func TestDemoStore(t *testing.T) {
	var v struct {
		Store struct {
			StoreID     string   `json:"storeId"`
			DeliveryFee *float64 `json:"deliveryFee"`
		} `json:"store"`
		Products []json.RawMessage `json:"products"`
	}
	require.NoError(t, json.Unmarshal(DemoStore, &v))
	assert.Equal(t, "demo", v.Store.StoreID)
	require.NotNil(t, v.Store.DeliveryFee)
	assert.NotEmpty(t, v.Products)
}
