package types

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// LineKey is the identity of a cart line.
type LineKey struct {
	ProductID int64 `json:"product_id"`
	VariantID int64 `json:"variant_id"`
}

func (k LineKey) String() string {
	return fmt.Sprintf("%d:%d", k.ProductID, k.VariantID)
}

// Valid reports whether both halves of the key address a real product variant.
func (k LineKey) Valid() bool {
	return k.ProductID > 0 && k.VariantID > 0
}

// CartLine is one product+variant pairing held in the local cart mirror.
// UnitPrice is display-only and may be missing or stale.
type CartLine struct {
	LineID       string           `json:"line_id"`
	ProductID    int64            `json:"product_id"`
	VariantID    int64            `json:"variant_id"`
	ProductName  string           `json:"product_name"`
	VariantName  string           `json:"variant_name"`
	BrandName    string           `json:"brand_name,omitempty"`
	ThumbnailRef string           `json:"thumbnail,omitempty"`
	Quantity     int              `json:"quantity"`
	UnitPrice    *decimal.Decimal `json:"unit_price,omitempty"`
}

func (l CartLine) Key() LineKey {
	return LineKey{ProductID: l.ProductID, VariantID: l.VariantID}
}

// CartTotals are the server-computed amounts for the whole cart.
type CartTotals struct {
	SubTotal      decimal.Decimal `json:"sub_total"`
	Discount      decimal.Decimal `json:"discount"`
	NetAmount     decimal.Decimal `json:"net_amount"`
	Tax           decimal.Decimal `json:"tax"`
	PayableAmount decimal.Decimal `json:"payable_amount"`
}

// Equal compares amounts numerically so 1.50 and 1.5 are the same total.
func (t CartTotals) Equal(other CartTotals) bool {
	return t.SubTotal.Equal(other.SubTotal) &&
		t.Discount.Equal(other.Discount) &&
		t.NetAmount.Equal(other.NetAmount) &&
		t.Tax.Equal(other.Tax) &&
		t.PayableAmount.Equal(other.PayableAmount)
}

// CartState is a point-in-time view of the cart mirror.
type CartState struct {
	Lines   []CartLine `json:"lines"`
	Totals  CartTotals `json:"totals"`
	Pending bool       `json:"pending"`
}

// Clone returns a deep copy so callers cannot alias store internals.
func (s CartState) Clone() CartState {
	out := CartState{Totals: s.Totals, Pending: s.Pending}
	if s.Lines != nil {
		out.Lines = make([]CartLine, len(s.Lines))
		for i, line := range s.Lines {
			out.Lines[i] = line.clone()
		}
	}
	return out
}

// Find returns the line with the given key.
func (s CartState) Find(key LineKey) (CartLine, bool) {
	for _, line := range s.Lines {
		if line.Key() == key {
			return line, true
		}
	}
	return CartLine{}, false
}

// ItemCount sums quantities across lines.
func (s CartState) ItemCount() int {
	total := 0
	for _, line := range s.Lines {
		total += line.Quantity
	}
	return total
}

func (l CartLine) clone() CartLine {
	out := l
	if l.UnitPrice != nil {
		price := *l.UnitPrice
		out.UnitPrice = &price
	}
	return out
}
