// Package pricing computes the order quote shown at checkout and stored on orders.
package pricing

import "github.com/shopspring/decimal"

// Rules holds the tax and shipping parameters.
type Rules struct {
	TaxRate               decimal.Decimal
	FreeShippingThreshold int64
	ShippingCharge        int64
}

// DefaultRules charges 10% tax and ships free above 500000.
func DefaultRules() Rules {
	return NewRules(0.10, 500000, 30000)
}

func NewRules(taxRate float64, freeShippingThreshold, shippingCharge int64) Rules {
	return Rules{
		TaxRate:               decimal.NewFromFloat(taxRate),
		FreeShippingThreshold: freeShippingThreshold,
		ShippingCharge:        shippingCharge,
	}
}

// Quote is the server-computed price breakdown.
type Quote struct {
	ItemPrice       int64 `json:"itemPrice"`
	Tax             int64 `json:"tax"`
	ShippingCharges int64 `json:"shippingCharges"`
	TotalAmount     int64 `json:"totalAmount"`
}

// Quote prices itemPrice. Tax is rounded half away from zero to a whole unit.
func (r Rules) Quote(itemPrice int64) Quote {
	tax := decimal.NewFromInt(itemPrice).Mul(r.TaxRate).Round(0).IntPart()
	shipping := r.ShippingCharge
	if itemPrice > r.FreeShippingThreshold {
		shipping = 0
	}
	return Quote{
		ItemPrice:       itemPrice,
		Tax:             tax,
		ShippingCharges: shipping,
		TotalAmount:     itemPrice + tax + shipping,
	}
}

// MinorUnits converts a whole-unit amount into the payment provider's minor units.
func MinorUnits(amount int64) int64 {
	return decimal.NewFromInt(amount).Mul(decimal.NewFromInt(100)).IntPart()
}
