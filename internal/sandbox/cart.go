package sandbox

import (
	"context"

	pkgerrors "github.com/angelmondragon/grocerycart/pkg/errors"
	"github.com/angelmondragon/grocerycart/pkg/types"
	"github.com/shopspring/decimal"
)

// CartItem is one cart row as served on the wire.
type CartItem struct {
	ID          int64           `json:"id"`
	ProductID   int64           `json:"product_id"`
	VariantID   int64           `json:"variant_id"`
	ProductName string          `json:"product_name"`
	VariantName string          `json:"variant_name"`
	BrandName   string          `json:"brand_name"`
	Thumbnail   string          `json:"thumbnail"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
}

// CartView is the GET /cart payload: rows plus totals at the same level.
type CartView struct {
	Items []CartItem `json:"items"`
	types.CartTotals
}

// MutationView is the payload of add, increment and decrement.
type MutationView struct {
	Quantity int `json:"quantity"`
	*types.CartTotals
}

// Cart returns the customer's cart with freshly computed totals.
func (s *Service) Cart(ctx context.Context, customerID int64) (CartView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.customerLocked(customerID); err != nil {
		return CartView{}, err
	}
	lines := s.carts[customerID]
	view := CartView{Items: make([]CartItem, 0, len(lines)), CartTotals: s.totalsLocked(lines)}
	for _, l := range lines {
		view.Items = append(view.Items, CartItem{
			ID:          l.id,
			ProductID:   l.variant.ProductID,
			VariantID:   l.variant.VariantID,
			ProductName: l.variant.ProductName,
			VariantName: l.variant.VariantName,
			BrandName:   l.variant.BrandName,
			Thumbnail:   l.variant.Thumbnail,
			Quantity:    l.quantity,
			Price:       l.variant.Price,
		})
	}
	return view, nil
}

// Add puts one unit of the variant in the cart. Repeated adds coalesce
// into the existing line.
func (s *Service) Add(ctx context.Context, customerID int64, key types.LineKey) (MutationView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.customerLocked(customerID); err != nil {
		return MutationView{}, err
	}
	variant, ok := s.catalog[key]
	if !ok {
		return MutationView{}, pkgerrors.New(pkgerrors.CodeNotFound, "product variant not found")
	}
	line := s.lineLocked(customerID, key)
	if line == nil {
		s.nextLine++
		line = &cartLine{id: s.nextLine, variant: variant}
		s.carts[customerID] = append(s.carts[customerID], line)
	}
	line.quantity++
	return s.mutationLocked(customerID, line.quantity), nil
}

// Increment raises an existing line by one.
func (s *Service) Increment(ctx context.Context, customerID int64, key types.LineKey) (MutationView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.customerLocked(customerID); err != nil {
		return MutationView{}, err
	}
	line := s.lineLocked(customerID, key)
	if line == nil {
		return MutationView{}, pkgerrors.New(pkgerrors.CodeNotFound, "item not in cart")
	}
	line.quantity++
	return s.mutationLocked(customerID, line.quantity), nil
}

// Decrement lowers an existing line by one and drops it at zero.
func (s *Service) Decrement(ctx context.Context, customerID int64, key types.LineKey) (MutationView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.customerLocked(customerID); err != nil {
		return MutationView{}, err
	}
	line := s.lineLocked(customerID, key)
	if line == nil {
		return MutationView{}, pkgerrors.New(pkgerrors.CodeNotFound, "item not in cart")
	}
	line.quantity--
	if line.quantity <= 0 {
		s.removeLineLocked(customerID, key)
		return s.mutationLocked(customerID, 0), nil
	}
	return s.mutationLocked(customerID, line.quantity), nil
}

func (s *Service) mutationLocked(customerID int64, quantity int) MutationView {
	totals := s.totalsLocked(s.carts[customerID])
	return MutationView{Quantity: quantity, CartTotals: &totals}
}

func (s *Service) lineLocked(customerID int64, key types.LineKey) *cartLine {
	for _, l := range s.carts[customerID] {
		if l.variant.Key() == key {
			return l
		}
	}
	return nil
}

func (s *Service) removeLineLocked(customerID int64, key types.LineKey) {
	lines := s.carts[customerID]
	kept := lines[:0]
	for _, l := range lines {
		if l.variant.Key() != key {
			kept = append(kept, l)
		}
	}
	if len(kept) == 0 {
		delete(s.carts, customerID)
		return
	}
	s.carts[customerID] = kept
}

// totalsLocked prices the lines: discount on the subtotal, tax on the net.
func (s *Service) totalsLocked(lines []*cartLine) types.CartTotals {
	subTotal := decimal.Zero
	for _, l := range lines {
		subTotal = subTotal.Add(l.variant.Price.Mul(decimal.NewFromInt(int64(l.quantity))))
	}
	discount := subTotal.Mul(s.discountRate).Round(2)
	net := subTotal.Sub(discount)
	tax := net.Mul(s.taxRate).Round(2)
	return types.CartTotals{
		SubTotal:      subTotal,
		Discount:      discount,
		NetAmount:     net,
		Tax:           tax,
		PayableAmount: net.Add(tax),
	}
}
