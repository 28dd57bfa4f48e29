package checkout

import "github.com/bookstore/storefront/internal/model"

const (
	// TaxRateBasisPoints is the sales tax applied to the subtotal (8%).
	TaxRateBasisPoints = 800
	// ShippingFee is charged once per order containing a physical item.
	ShippingFee model.Cents = 599
)

// Summary is the price breakdown shown at review and sent with the order.
type Summary struct {
	Subtotal model.Cents
	Tax      model.Cents
	Shipping model.Cents
	Total    model.Cents
	Units    int
}

// Totals prices items: subtotal of current price times quantity, 8% tax,
// and a flat shipping fee when any item is physical.
func Totals(items []model.CartItem) Summary {
	var s Summary
	physical := false
	for _, item := range items {
		s.Subtotal += model.ToCents(item.CurrentPrice()) * model.Cents(item.Units())
		s.Units += item.Units()
		if !item.IsDigital() {
			physical = true
		}
	}
	s.Tax = roundBasisPoints(s.Subtotal, TaxRateBasisPoints)
	if physical {
		s.Shipping = ShippingFee
	}
	s.Total = s.Subtotal + s.Tax + s.Shipping
	return s
}

// HasDigital reports whether any item is an electronic edition.
func HasDigital(items []model.CartItem) bool {
	for _, item := range items {
		if item.IsDigital() {
			return true
		}
	}
	return false
}

// roundBasisPoints computes amount*bp/10000 rounded half up.
func roundBasisPoints(amount model.Cents, bp int64) model.Cents {
	return model.Cents((int64(amount)*bp + 5000) / 10000)
}
