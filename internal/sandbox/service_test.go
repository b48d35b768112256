package sandbox

import (
	"context"
	"testing"
	"time"

	"github.com/angelmondragon/grocerycart/pkg/config"
	"github.com/angelmondragon/grocerycart/pkg/enums"
	pkgerrors "github.com/angelmondragon/grocerycart/pkg/errors"
	"github.com/angelmondragon/grocerycart/pkg/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sandboxNow = time.Date(2026, time.October, 16, 14, 0, 0, 0, time.UTC)

func testConfig() config.SandboxConfig {
	return config.SandboxConfig{
		TaxRate:       "0.10",
		DiscountRate:  "0",
		DefaultWallet: "50.00",
		DemoEmail:     "demo@example.com",
		DemoPassword:  "secret-pass",
		Password: config.PasswordConfig{
			ArgonMemoryKB:    8,
			ArgonTime:        1,
			ArgonParallelism: 1,
			ArgonSaltLen:     8,
			ArgonKeyLen:      16,
		},
	}
}

func newTestService(t *testing.T) (*Service, types.CustomerProfile) {
	t.Helper()
	svc, err := NewService(testConfig(), Options{
		Location: time.UTC,
		Now:      func() time.Time { return sandboxNow },
		SeedDemo: true,
	})
	require.NoError(t, err)
	profile, err := svc.Authenticate(context.Background(), "Demo@Example.com ", "secret-pass")
	require.NoError(t, err)
	return svc, profile
}

func key(p, v int64) types.LineKey {
	return types.LineKey{ProductID: p, VariantID: v}
}

func intPtr(v int) *int { return &v }

func TestNewServiceRejectsBadRates(t *testing.T) {
	cfg := testConfig()
	cfg.TaxRate = "1.5"
	_, err := NewService(cfg, Options{})
	require.Error(t, err)

	cfg = testConfig()
	cfg.DefaultWallet = "-1"
	_, err = NewService(cfg, Options{})
	require.Error(t, err)
}

func TestAuthenticate(t *testing.T) {
	svc, profile := newTestService(t)
	assert.Equal(t, "demo@example.com", profile.Email)
	assert.True(t, profile.Wallet.Equal(decimal.RequireFromString("50")))

	_, err := svc.Authenticate(context.Background(), "demo@example.com", "wrong")
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeUnauthorized))

	_, err = svc.Authenticate(context.Background(), "nobody@example.com", "secret-pass")
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeUnauthorized))

	_, err = svc.AddCustomer(context.Background(), CustomerInput{Email: "demo@example.com", Password: "x"})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeConflict))
}

func TestAddressesHaveSingleDefault(t *testing.T) {
	svc, profile := newTestService(t)
	addresses, err := svc.Addresses(context.Background(), profile.ID)
	require.NoError(t, err)
	require.Len(t, addresses, 2)
	defaults := 0
	for _, a := range addresses {
		if a.IsDefault {
			defaults++
			assert.Equal(t, "Office", a.Label)
		}
	}
	assert.Equal(t, 1, defaults)
}

func TestAddCoalescesAndTotals(t *testing.T) {
	ctx := context.Background()
	svc, profile := newTestService(t)

	first, err := svc.Add(ctx, profile.ID, key(5, 12))
	require.NoError(t, err)
	assert.Equal(t, 1, first.Quantity)

	second, err := svc.Add(ctx, profile.ID, key(5, 12))
	require.NoError(t, err)
	assert.Equal(t, 2, second.Quantity)
	assert.True(t, second.SubTotal.Equal(decimal.RequireFromString("2.58")))
	assert.True(t, second.Tax.Equal(decimal.RequireFromString("0.26")))
	assert.True(t, second.PayableAmount.Equal(decimal.RequireFromString("2.84")))

	cart, err := svc.Cart(ctx, profile.ID)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 2, cart.Items[0].Quantity)

	_, err = svc.Add(ctx, profile.ID, key(99, 1))
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))
}

func TestDecrementRemovesAtZero(t *testing.T) {
	ctx := context.Background()
	svc, profile := newTestService(t)

	_, err := svc.Decrement(ctx, profile.ID, key(5, 12))
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound), "decrement of a missing line")
	_, err = svc.Increment(ctx, profile.ID, key(5, 12))
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound), "increment of a missing line")

	_, err = svc.Add(ctx, profile.ID, key(5, 12))
	require.NoError(t, err)
	inc, err := svc.Increment(ctx, profile.ID, key(5, 12))
	require.NoError(t, err)
	assert.Equal(t, 2, inc.Quantity)

	dec, err := svc.Decrement(ctx, profile.ID, key(5, 12))
	require.NoError(t, err)
	assert.Equal(t, 1, dec.Quantity)
	dec, err = svc.Decrement(ctx, profile.ID, key(5, 12))
	require.NoError(t, err)
	assert.Equal(t, 0, dec.Quantity)
	require.NotNil(t, dec.CartTotals)
	assert.True(t, dec.PayableAmount.IsZero())

	cart, err := svc.Cart(ctx, profile.ID)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
}

func validPayload(addressID int64) types.CheckoutPayload {
	return types.CheckoutPayload{
		AddressID:    addressID,
		DeliveryDate: "2026-10-17",
		Deliverable:  true,
		DeliveryTime: "morning",
		DeliveryType: enums.DeliveryTypeStandard,
		DeliveryIn:   "1HR",
	}
}

func TestCheckoutWalletOnly(t *testing.T) {
	ctx := context.Background()
	svc, profile := newTestService(t)
	addresses, _ := svc.Addresses(ctx, profile.ID)

	_, err := svc.Checkout(ctx, profile.ID, validPayload(addresses[0].ID))
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeConflict), "empty cart")

	_, err = svc.Add(ctx, profile.ID, key(3, 7))
	require.NoError(t, err)

	payload := validPayload(addresses[1].ID)
	payload.WalletUse = true
	order, err := svc.Checkout(ctx, profile.ID, payload)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentMethodWallet.String(), order.PaymentMethod)
	assert.True(t, order.PayableAmount.Equal(decimal.RequireFromString("4.62")))
	require.NotNil(t, order.Address)
	assert.Equal(t, "Office", order.Address.Label)

	after, err := svc.Profile(ctx, profile.ID)
	require.NoError(t, err)
	assert.True(t, after.Wallet.Equal(decimal.RequireFromString("45.38")))

	cart, _ := svc.Cart(ctx, profile.ID)
	assert.Empty(t, cart.Items)

	// the order is a frozen snapshot
	_, err = svc.Add(ctx, profile.ID, key(3, 7))
	require.NoError(t, err)
	stored, err := svc.Order(ctx, profile.ID, order.ID)
	require.NoError(t, err)
	require.Len(t, stored.Items, 1)
	assert.Equal(t, 1, stored.Items[0].Quantity)
}

func TestCheckoutRequiresCardForRemainder(t *testing.T) {
	ctx := context.Background()
	svc, profile := newTestService(t)
	addresses, _ := svc.Addresses(ctx, profile.ID)
	for i := 0; i < 5; i++ {
		_, err := svc.Add(ctx, profile.ID, key(4, 9))
		require.NoError(t, err)
	}

	payload := validPayload(addresses[0].ID)
	payload.WalletUse = true
	_, err := svc.Checkout(ctx, profile.ID, payload)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))

	payload.CardNumber = "4242424242424242"
	payload.CardHolderName = "Demo"
	payload.ExpireMonth = intPtr(12)
	payload.ExpireYear = intPtr(2030)
	payload.CVV = intPtr(123)
	order, err := svc.Checkout(ctx, profile.ID, payload)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentMethodWalletCard.String(), order.PaymentMethod)

	after, _ := svc.Profile(ctx, profile.ID)
	assert.True(t, after.Wallet.IsZero())
}

func TestCheckoutRejectsBadDelivery(t *testing.T) {
	ctx := context.Background()
	svc, profile := newTestService(t)
	addresses, _ := svc.Addresses(ctx, profile.ID)
	_, err := svc.Add(ctx, profile.ID, key(1, 1))
	require.NoError(t, err)

	cases := map[string]func(p *types.CheckoutPayload){
		"unknown address": func(p *types.CheckoutPayload) { p.AddressID = 999 },
		"past date":       func(p *types.CheckoutPayload) { p.DeliveryDate = "2026-10-15" },
		"bad date":        func(p *types.CheckoutPayload) { p.DeliveryDate = "17/10/2026" },
		"unknown slot":    func(p *types.CheckoutPayload) { p.DeliveryTime = "midnight" },
		"closed slot": func(p *types.CheckoutPayload) {
			p.DeliveryDate = "2026-10-16"
			p.DeliveryTime = "morning"
		},
		"coupon": func(p *types.CheckoutPayload) {
			id := int64(3)
			p.CouponID = &id
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			payload := validPayload(addresses[0].ID)
			payload.WalletUse = true
			mutate(&payload)
			_, err := svc.Checkout(ctx, profile.ID, payload)
			assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation), "got %v", err)
		})
	}

	orders, err := svc.Orders(ctx, profile.ID)
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestOrdersNewestFirst(t *testing.T) {
	ctx := context.Background()
	svc, profile := newTestService(t)
	addresses, _ := svc.Addresses(ctx, profile.ID)
	payload := validPayload(addresses[0].ID)
	payload.WalletUse = true

	for i := 0; i < 2; i++ {
		_, err := svc.Add(ctx, profile.ID, key(5, 12))
		require.NoError(t, err)
		_, err = svc.Checkout(ctx, profile.ID, payload)
		require.NoError(t, err)
	}

	orders, err := svc.Orders(ctx, profile.ID)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Greater(t, orders[0].ID, orders[1].ID)

	_, err = svc.Order(ctx, profile.ID, 1)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))
}
