package qr

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rodetes-party/rodetes/internal/model"
)

func TestParseShapes(t *testing.T) {
	cases := []struct {
		name string
		text string
		want *Payload
	}{
		{
			name: "merch sale",
			text: "MERCH_SALE_ID:s-1\nNOMBRE:Ana Pérez\nEMAIL:ana@x.com\nDRAG:La Rodeta\nITEM:Abanico\nCANTIDAD:2",
			want: &Payload{Kind: KindMerchSale, ID: "s-1", Name: "Ana Pérez", Email: "ana@x.com", Drag: "La Rodeta", Item: "Abanico", Quantity: 2},
		},
		{
			name: "merch sale wins over ticket id",
			text: "TICKET_ID:t-9\nMERCH_SALE_ID:s-2",
			want: &Payload{Kind: KindMerchSale, ID: "s-2"},
		},
		{
			name: "current ticket",
			text: "TICKET_ID: t-1 \r\n",
			want: &Payload{Kind: KindTicket, ID: "t-1"},
		},
		{
			name: "current ticket ignores extra display fields",
			text: "TICKET_ID:t-1\nNOMBRE:Ana\nCANTIDAD:3",
			want: &Payload{Kind: KindTicket, ID: "t-1"},
		},
		{
			name: "legacy ticket",
			text: "TICKET_ID:t-2\nEVENTO:Rodetes Pride\nFECHA:2024-06-28\nNOMBRE:Ana\nEMAIL:ana@x.com\nCANTIDAD:3",
			want: &Payload{Kind: KindLegacyTicket, ID: "t-2", Event: "Rodetes Pride", Date: "2024-06-28", Name: "Ana", Email: "ana@x.com", Quantity: 3},
		},
		{
			name: "legacy merch",
			text: "MERCH_ITEM_ID:7\nDRAG:La Rodeta\nITEM:Abanico",
			want: &Payload{Kind: KindLegacyMerch, ID: "7", Drag: "La Rodeta", Item: "Abanico"},
		},
		{name: "empty sale id", text: "MERCH_SALE_ID:\nTICKET_ID:t-1"},
		{name: "empty ticket id", text: "TICKET_ID:   "},
		{name: "legacy without quantity", text: "TICKET_ID:t-2\nEVENTO:X"},
		{name: "legacy zero quantity", text: "TICKET_ID:t-2\nEVENTO:X\nCANTIDAD:0"},
		{name: "legacy bad quantity", text: "TICKET_ID:t-2\nEVENTO:X\nCANTIDAD:dos"},
		{name: "legacy merch missing drag", text: "MERCH_ITEM_ID:7"},
		{name: "garbage", text: "https://rodetes.party"},
		{name: "empty", text: ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := Parse(tc.text)
			if tc.want == nil {
				assert.False(t, ok)
				assert.Nil(t, got)
				return
			}
			require.True(t, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseLegacyMerchIsStale(t *testing.T) {
	p, ok := Parse("MERCH_ITEM_ID:1\nDRAG:web")
	require.True(t, ok)
	assert.True(t, p.Stale())

	p, ok = Parse(TicketPayload("abc"))
	require.True(t, ok)
	assert.False(t, p.Stale())
}

func TestMerchSalePayloadRoundTrip(t *testing.T) {
	sale := model.MerchSale{
		SaleID:       "s-42",
		BuyerName:    "Ana",
		BuyerSurname: "Pérez",
		BuyerEmail:   "ana@x.com",
		DragName:     model.WebSellerName,
		ItemName:     "Tote\nbag",
		Quantity:     3,
	}
	p, ok := Parse(MerchSalePayload(sale))
	require.True(t, ok)
	assert.Equal(t, KindMerchSale, p.Kind)
	assert.Equal(t, "s-42", p.ID)
	assert.Equal(t, "Ana Pérez", p.Name)
	assert.Equal(t, "Tote bag", p.Item)
	assert.Equal(t, 3, p.Quantity)
}

func TestPNG(t *testing.T) {
	img, err := PNG(TicketPayload("t-1"), 0)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(img, []byte("\x89PNG")))
}
