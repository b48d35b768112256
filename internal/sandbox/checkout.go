package sandbox

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/angelmondragon/grocerycart/internal/checkout"
	"github.com/angelmondragon/grocerycart/pkg/enums"
	pkgerrors "github.com/angelmondragon/grocerycart/pkg/errors"
	"github.com/angelmondragon/grocerycart/pkg/types"
	"github.com/shopspring/decimal"
)

// Checkout turns the customer's cart into an order. The order keeps a
// frozen copy of the lines, totals and address; the cart is emptied and
// any wallet share is debited.
func (s *Service) Checkout(ctx context.Context, customerID int64, payload types.CheckoutPayload) (types.Order, error) {
	now := s.now().In(s.loc)

	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.customerLocked(customerID)
	if err != nil {
		return types.Order{}, err
	}
	lines := s.carts[customerID]
	if len(lines) == 0 {
		return types.Order{}, pkgerrors.New(pkgerrors.CodeConflict, "cart is empty")
	}
	if payload.CouponID != nil {
		return types.Order{}, pkgerrors.New(pkgerrors.CodeValidation, "coupon not found")
	}
	if payload.DeliveryType != "" && !payload.DeliveryType.IsValid() {
		return types.Order{}, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown delivery type %q", payload.DeliveryType))
	}

	var address *types.Address
	for i := range c.addresses {
		if c.addresses[i].ID == payload.AddressID {
			addr := c.addresses[i]
			address = &addr
			break
		}
	}
	if address == nil {
		return types.Order{}, pkgerrors.New(pkgerrors.CodeValidation, "delivery address not found")
	}

	date, err := types.ParseDate(payload.DeliveryDate)
	if err != nil {
		return types.Order{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid delivery date")
	}
	if date.In(s.loc).Before(types.DateOf(now).In(s.loc)) {
		return types.Order{}, pkgerrors.New(pkgerrors.CodeValidation, "delivery date is in the past")
	}
	slot, ok := checkout.Slot(payload.DeliveryTime)
	if !ok {
		return types.Order{}, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown delivery time %q", payload.DeliveryTime))
	}
	if !checkout.SlotAvailable(date, slot.WindowEndHour, now) {
		return types.Order{}, pkgerrors.New(pkgerrors.CodeValidation, "delivery slot is no longer available")
	}

	totals := s.totalsLocked(lines)
	payable := totals.PayableAmount
	if payload.Tip != nil {
		if payload.Tip.IsNegative() {
			return types.Order{}, pkgerrors.New(pkgerrors.CodeValidation, "tip cannot be negative")
		}
		payable = payable.Add(*payload.Tip)
	}

	walletShare := decimal.Zero
	if payload.WalletUse {
		walletShare = decimal.Min(c.wallet, payable)
	}
	cardShare := payable.Sub(walletShare)
	if cardShare.IsPositive() {
		if err := validateCard(payload, now.Year()); err != nil {
			return types.Order{}, err
		}
	}

	method := enums.PaymentMethodCard
	switch {
	case walletShare.IsPositive() && cardShare.IsPositive():
		method = enums.PaymentMethodWalletCard
	case walletShare.IsPositive():
		method = enums.PaymentMethodWallet
	}

	s.nextOrder++
	order := types.Order{
		ID:              s.nextOrder,
		CreatedAt:       now,
		Status:          enums.OrderStatusPending.String(),
		PaymentStatus:   enums.PaymentStatusPaid.String(),
		PaymentMethod:   method.String(),
		WalletUse:       payload.WalletUse,
		SubTotal:        totals.SubTotal,
		Discount:        totals.Discount,
		Tax:             totals.Tax,
		DeliveryCharges: decimal.Zero,
		HandlingCharges: decimal.Zero,
		ServiceCharges:  decimal.Zero,
		PayableAmount:   payable,
		Address:         address,
		Items:           make([]types.OrderItem, 0, len(lines)),
	}
	for _, l := range lines {
		s.nextItem++
		order.Items = append(order.Items, types.OrderItem{
			ID:        s.nextItem,
			Quantity:  l.quantity,
			SalePrice: l.variant.Price,
			Product: types.OrderProduct{
				Name:      l.variant.ProductName,
				BrandName: l.variant.BrandName,
				Thumbnail: l.variant.Thumbnail,
			},
		})
	}

	c.wallet = c.wallet.Sub(walletShare)
	delete(s.carts, customerID)
	s.orders[customerID] = append(s.orders[customerID], order)

	s.logg.Info(s.logg.WithFields(s.logg.WithOrderID(ctx, order.ID), map[string]any{
		"customer_id":    customerID,
		"payment_method": method.String(),
		"payable":        payable.String(),
		"delivery_date":  date.String(),
		"delivery_time":  slot.Value,
	}), "sandbox order placed")
	return cloneOrder(order), nil
}

func validateCard(payload types.CheckoutPayload, year int) error {
	switch {
	case strings.TrimSpace(payload.CardNumber) == "" || strings.TrimSpace(payload.CardHolderName) == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "card details required")
	case payload.ExpireMonth == nil || *payload.ExpireMonth < 1 || *payload.ExpireMonth > 12:
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid card expiry month")
	case payload.ExpireYear == nil || *payload.ExpireYear < year:
		return pkgerrors.New(pkgerrors.CodeValidation, "card has expired")
	case payload.CVV == nil || *payload.CVV < 0 || *payload.CVV > 9999:
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid card cvv")
	}
	return nil
}

// Order returns one of the customer's orders.
func (s *Service) Order(ctx context.Context, customerID, orderID int64) (types.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.customerLocked(customerID); err != nil {
		return types.Order{}, err
	}
	for _, o := range s.orders[customerID] {
		if o.ID == orderID {
			return cloneOrder(o), nil
		}
	}
	return types.Order{}, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
}

// Orders lists the customer's orders, newest first.
func (s *Service) Orders(ctx context.Context, customerID int64) ([]types.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.customerLocked(customerID); err != nil {
		return nil, err
	}
	placed := s.orders[customerID]
	out := make([]types.Order, 0, len(placed))
	for _, o := range placed {
		out = append(out, cloneOrder(o))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func cloneOrder(o types.Order) types.Order {
	out := o
	if o.Address != nil {
		addr := *o.Address
		out.Address = &addr
	}
	out.Items = make([]types.OrderItem, len(o.Items))
	copy(out.Items, o.Items)
	return out
}
