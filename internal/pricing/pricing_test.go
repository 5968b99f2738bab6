package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuote(t *testing.T) {
	rules := DefaultRules()
	cases := []struct {
		name  string
		items int64
		want  Quote
	}{
		{"below threshold pays shipping", 100000, Quote{ItemPrice: 100000, Tax: 10000, ShippingCharges: 30000, TotalAmount: 140000}},
		{"threshold itself pays shipping", 500000, Quote{ItemPrice: 500000, Tax: 50000, ShippingCharges: 30000, TotalAmount: 580000}},
		{"above threshold ships free", 500001, Quote{ItemPrice: 500001, Tax: 50000, ShippingCharges: 0, TotalAmount: 550001}},
		{"tax rounds half up", 15, Quote{ItemPrice: 15, Tax: 2, ShippingCharges: 30000, TotalAmount: 30017}},
		{"tax rounds down below half", 14, Quote{ItemPrice: 14, Tax: 1, ShippingCharges: 30000, TotalAmount: 30015}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, rules.Quote(tc.items))
		})
	}
}

func TestCustomRules(t *testing.T) {
	q := NewRules(0.2, 1000, 50).Quote(1000)
	assert.Equal(t, Quote{ItemPrice: 1000, Tax: 200, ShippingCharges: 50, TotalAmount: 1250}, q)
}

func TestMinorUnits(t *testing.T) {
	assert.Equal(t, int64(12345600), MinorUnits(123456))
}
