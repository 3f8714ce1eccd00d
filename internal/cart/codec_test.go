package cart

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodec_RoundTrip(t *testing.T) {
	in := []Line{
		{ItemID: "m1", Name: "Paracetamol", UnitPrice: price("50"), Quantity: 2},
		{ItemID: "m2", Name: "Ibuprofen", UnitPrice: price("80.50"), ImageRef: "ibu.jpg", Quantity: 1},
	}

	out, err := decodeLines(encodeLines(in))
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "m1", out[0].ItemID)
	assert.Equal(t, 2, out[0].Quantity)
	assert.True(t, in[0].UnitPrice.Equal(out[0].UnitPrice))
	assert.Equal(t, "ibu.jpg", out[1].ImageRef)
	assert.True(t, in[1].UnitPrice.Equal(out[1].UnitPrice))
}

func TestCodec_EmptyCart(t *testing.T) {
	out, err := decodeLines(encodeLines(nil))
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestCodec_VersionTag(t *testing.T) {
	payload := encodeLines(nil)
	assert.Contains(t, payload, `"v":1`)

	_, err := decodeLines(`{"v":7,"lines":[]}`)
	assert.ErrorIs(t, err, errUnknownVersion)
}

func TestCodec_UnknownFieldsIgnored(t *testing.T) {
	payload := `{"v":1,"extra":true,"lines":[{"itemId":"x","name":"A","unitPrice":"5","quantity":1,"future":"field"}]}`

	out, err := decodeLines(payload)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "x", out[0].ItemID)
}

func TestCodec_RejectsInvalidLines(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"truncated", `{"v":1,"lines":[{"itemId":`},
		{"missing item id", `{"v":1,"lines":[{"name":"A","unitPrice":"5","quantity":1}]}`},
		{"zero quantity", `{"v":1,"lines":[{"itemId":"x","unitPrice":"5","quantity":0}]}`},
		{"negative quantity", `{"v":1,"lines":[{"itemId":"x","unitPrice":"5","quantity":-2}]}`},
		{"bad price", `{"v":1,"lines":[{"itemId":"x","unitPrice":"abc","quantity":1}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeLines(tt.payload)
			assert.Error(t, err)
		})
	}
}
