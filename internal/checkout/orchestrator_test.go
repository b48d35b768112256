package checkout

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/angelmondragon/grocerycart/pkg/cartapi"
	"github.com/angelmondragon/grocerycart/pkg/credentials"
	"github.com/angelmondragon/grocerycart/pkg/enums"
	pkgerrors "github.com/angelmondragon/grocerycart/pkg/errors"
	"github.com/angelmondragon/grocerycart/pkg/metrics"
	"github.com/angelmondragon/grocerycart/pkg/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
)

type stubRemote struct {
	mu        sync.Mutex
	addresses []types.Address
	receipt   *cartapi.CheckoutReceipt
	err       error
	payloads  []types.CheckoutPayload
	block     chan struct{}
}

func (s *stubRemote) Addresses(ctx context.Context, token string) ([]types.Address, error) {
	return s.addresses, nil
}

func (s *stubRemote) Checkout(ctx context.Context, token string, payload types.CheckoutPayload) (*cartapi.CheckoutReceipt, error) {
	s.mu.Lock()
	s.payloads = append(s.payloads, payload)
	block := s.block
	s.mu.Unlock()
	if block != nil {
		<-block
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.receipt, nil
}

func (s *stubRemote) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.payloads)
}

type fixedTotals struct{ payable decimal.Decimal }

func (f fixedTotals) Totals() types.CartTotals {
	return types.CartTotals{SubTotal: f.payable, NetAmount: f.payable, PayableAmount: f.payable}
}

var testNow = time.Date(2026, time.October, 16, 14, 0, 0, 0, time.UTC)

func newHarness(t *testing.T, wallet, payable string) (*Orchestrator, *stubRemote, *credentials.Memory) {
	t.Helper()
	ctx := context.Background()
	creds := credentials.NewMemory()
	profile := types.CustomerProfile{ID: 7, Name: "Asha", Email: "asha@example.com", Wallet: decimal.RequireFromString(wallet)}
	if err := credentials.SaveSession(ctx, creds, "tok", profile); err != nil {
		t.Fatalf("save session: %v", err)
	}
	remote := &stubRemote{
		addresses: []types.Address{
			{ID: 1, Name: "Home", Street: "1 Main St"},
			{ID: 2, Name: "Office", Street: "9 Side Rd", IsDefault: true},
			{ID: 3, Name: "Gym", Street: "3 Loop"},
		},
		receipt: &cartapi.CheckoutReceipt{OrderID: 501, Message: "Order placed"},
	}
	orch, err := NewOrchestrator(remote, fixedTotals{payable: decimal.RequireFromString(payable)}, creds, Options{
		Location: time.UTC,
		Now:      func() time.Time { return testNow },
	})
	if err != nil {
		t.Fatalf("NewOrchestrator: %v", err)
	}
	return orch, remote, creds
}

func today() types.Date {
	return types.DateOf(testNow)
}

func fullCard() types.CardDetails {
	return types.CardDetails{Holder: "Asha K", Number: "4242424242424242", ExpiryMonth: "12", ExpiryYear: "2030", CVV: "123"}
}

func readyForPayment(t *testing.T, orch *Orchestrator) {
	t.Helper()
	if _, err := orch.LoadAddresses(context.Background()); err != nil {
		t.Fatalf("LoadAddresses: %v", err)
	}
	if err := orch.SelectDate(today().AddDays(1)); err != nil {
		t.Fatalf("SelectDate: %v", err)
	}
}

func TestNewOrchestratorRequiresDependencies(t *testing.T) {
	creds := credentials.NewMemory()
	if _, err := NewOrchestrator(nil, fixedTotals{}, creds, Options{}); err == nil {
		t.Fatal("expected error for nil remote")
	}
	if _, err := NewOrchestrator(&stubRemote{}, nil, creds, Options{}); err == nil {
		t.Fatal("expected error for nil totals")
	}
	if _, err := NewOrchestrator(&stubRemote{}, fixedTotals{}, nil, Options{}); err == nil {
		t.Fatal("expected error for nil credentials")
	}
	if _, err := NewOrchestrator(&stubRemote{}, fixedTotals{}, creds, Options{DeliveryType: "teleport"}); err == nil {
		t.Fatal("expected error for unknown delivery type")
	}
}

func TestLoadAddressesSelectsDefault(t *testing.T) {
	orch, _, _ := newHarness(t, "0", "30")
	if got := orch.Stage(); got != enums.CheckoutStageCollectingAddress {
		t.Fatalf("expected collecting_address, got %s", got)
	}

	addresses, err := orch.LoadAddresses(context.Background())
	if err != nil {
		t.Fatalf("LoadAddresses: %v", err)
	}
	assertSingleSelected(t, addresses, 2)

	if err := orch.SelectAddress(2); err != nil {
		t.Fatalf("SelectAddress: %v", err)
	}
	assertSingleSelected(t, orch.Addresses(), 3)

	err = orch.SelectAddress(9)
	if pkgerrors.Section(err) != SectionAddress {
		t.Fatalf("expected address validation, got %v", err)
	}
	if got := orch.Stage(); got != enums.CheckoutStageCollectingSlot {
		t.Fatalf("expected collecting_slot, got %s", got)
	}
}

func TestLoadAddressesFallsBackToFirst(t *testing.T) {
	orch, remote, _ := newHarness(t, "0", "30")
	remote.addresses = []types.Address{{ID: 10}, {ID: 11}}
	addresses, err := orch.LoadAddresses(context.Background())
	if err != nil {
		t.Fatalf("LoadAddresses: %v", err)
	}
	assertSingleSelected(t, addresses, 10)
}

func TestLoadAddressesRequiresToken(t *testing.T) {
	orch, _, creds := newHarness(t, "0", "30")
	if err := credentials.ClearSession(context.Background(), creds); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, err := orch.LoadAddresses(context.Background()); !pkgerrors.Is(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func assertSingleSelected(t *testing.T, addresses []types.Address, id int64) {
	t.Helper()
	selected := 0
	for _, a := range addresses {
		if a.Selected {
			selected++
			if a.ID != id {
				t.Fatalf("expected address %d selected, got %d", id, a.ID)
			}
		}
	}
	if selected != 1 {
		t.Fatalf("expected exactly one selected address, got %d", selected)
	}
}

func TestSlotAvailabilityForToday(t *testing.T) {
	orch, _, _ := newHarness(t, "0", "30")

	dates := orch.Dates()
	if len(dates) != 10 || dates[0] != today() || dates[9] != today().AddDays(9) {
		t.Fatalf("unexpected date window %v", dates)
	}

	want := map[string]bool{"morning": false, "afternoon": true, "evening": true, "night": true}
	for _, slot := range orch.Slots(today()) {
		if slot.Available != want[slot.Value] {
			t.Fatalf("slot %s available=%v at 14:00", slot.Value, slot.Available)
		}
	}
	for _, slot := range orch.Slots(today().AddDays(1)) {
		if !slot.Available {
			t.Fatalf("slot %s should be open tomorrow", slot.Value)
		}
	}
}

func TestSelectDateAutoSelectsFirstOpenSlot(t *testing.T) {
	orch, _, _ := newHarness(t, "0", "30")
	if err := orch.SelectDate(today()); err != nil {
		t.Fatalf("SelectDate: %v", err)
	}
	sel := orch.Selection(context.Background())
	if sel.DeliverySlot == nil || sel.DeliverySlot.Value != "afternoon" {
		t.Fatalf("expected afternoon auto-selected, got %+v", sel.DeliverySlot)
	}

	err := orch.SelectSlot("morning")
	if pkgerrors.Section(err) != SectionSlot {
		t.Fatalf("expected slot validation for closed window, got %v", err)
	}
	if err := orch.SelectSlot("night"); err != nil {
		t.Fatalf("SelectSlot: %v", err)
	}
	if err := orch.SelectDate(today().AddDays(30)); pkgerrors.Section(err) != SectionDate {
		t.Fatalf("expected date validation outside window, got %v", err)
	}
}

func TestSelectDateWithNoOpenSlots(t *testing.T) {
	orch, _, _ := newHarness(t, "0", "30")
	late := time.Date(2026, time.October, 16, 23, 0, 0, 0, time.UTC)
	orch.opts.Now = func() time.Time { return late }

	err := orch.SelectDate(types.DateOf(late))
	if pkgerrors.Section(err) != SectionSlot {
		t.Fatalf("expected slot validation, got %v", err)
	}
	sel := orch.Selection(context.Background())
	if sel.DeliveryDate != types.DateOf(late) {
		t.Fatalf("date should be recorded, got %v", sel.DeliveryDate)
	}
	if sel.DeliverySlot != nil {
		t.Fatalf("no slot should be selected, got %+v", sel.DeliverySlot)
	}
}

func TestSelectSlotRequiresDate(t *testing.T) {
	orch, _, _ := newHarness(t, "0", "30")
	err := orch.SelectSlot("evening")
	if pkgerrors.Section(err) != SectionDate {
		t.Fatalf("expected date validation, got %v", err)
	}
}

func TestSubmitBlockedByMissingSelections(t *testing.T) {
	ctx := context.Background()

	t.Run("address", func(t *testing.T) {
		orch, remote, _ := newHarness(t, "0", "30")
		_, err := orch.Submit(ctx)
		assertBlocked(t, err, SectionAddress, "Please select a delivery address", remote)
	})

	t.Run("date", func(t *testing.T) {
		orch, remote, _ := newHarness(t, "0", "30")
		if _, err := orch.LoadAddresses(ctx); err != nil {
			t.Fatalf("LoadAddresses: %v", err)
		}
		_, err := orch.Submit(ctx)
		assertBlocked(t, err, SectionDate, "Please select a delivery date", remote)
	})

	t.Run("slot", func(t *testing.T) {
		orch, remote, _ := newHarness(t, "0", "30")
		if _, err := orch.LoadAddresses(ctx); err != nil {
			t.Fatalf("LoadAddresses: %v", err)
		}
		orch.opts.Now = func() time.Time { return time.Date(2026, time.October, 16, 23, 0, 0, 0, time.UTC) }
		_ = orch.SelectDate(today())
		_, err := orch.Submit(ctx)
		assertBlocked(t, err, SectionSlot, "Please select a delivery slot", remote)
	})

	t.Run("card", func(t *testing.T) {
		orch, remote, _ := newHarness(t, "0", "30")
		readyForPayment(t, orch)
		_ = orch.SetCardDetails(types.CardDetails{Holder: "Asha", Number: "4242"})
		_, err := orch.Submit(ctx)
		assertBlocked(t, err, SectionPayment, "Please enter valid card details", remote)
	})

	t.Run("non numeric cvv", func(t *testing.T) {
		orch, remote, _ := newHarness(t, "0", "30")
		readyForPayment(t, orch)
		card := fullCard()
		card.CVV = "12a"
		_ = orch.SetCardDetails(card)
		_, err := orch.Submit(ctx)
		assertBlocked(t, err, SectionPayment, "Please enter valid card details", remote)
	})
}

func assertBlocked(t *testing.T, err error, section, message string, remote *stubRemote) {
	t.Helper()
	if !pkgerrors.Is(err, pkgerrors.CodeValidation) || pkgerrors.Section(err) != section {
		t.Fatalf("expected %s validation, got %v", section, err)
	}
	if got := pkgerrors.UserMessage(err); got != message {
		t.Fatalf("expected %q, got %q", message, got)
	}
	if remote.calls() != 0 {
		t.Fatalf("no checkout request should be sent, got %d", remote.calls())
	}
}

func TestPaymentModeResolution(t *testing.T) {
	cases := []struct {
		name    string
		use     bool
		wallet  string
		payable string
		want    enums.PaymentMode
	}{
		{name: "wallet covers", use: true, wallet: "50", payable: "30", want: enums.PaymentModeWalletOnly},
		{name: "wallet exact", use: true, wallet: "30", payable: "30", want: enums.PaymentModeWalletOnly},
		{name: "wallet short", use: true, wallet: "10", payable: "30", want: enums.PaymentModeWalletPartialPlusCard},
		{name: "wallet off", use: false, wallet: "50", payable: "30", want: enums.PaymentModeCardOnly},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ResolvePaymentMode(tc.use, decimal.RequireFromString(tc.wallet), decimal.RequireFromString(tc.payable))
			if got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestSubmitWalletOnlyOmitsCard(t *testing.T) {
	ctx := context.Background()
	orch, remote, _ := newHarness(t, "50", "30")
	readyForPayment(t, orch)
	if err := orch.SetUseWallet(true); err != nil {
		t.Fatalf("SetUseWallet: %v", err)
	}
	if got := orch.PaymentMode(ctx); got != enums.PaymentModeWalletOnly {
		t.Fatalf("expected WALLET_ONLY, got %s", got)
	}

	id, err := orch.Submit(ctx)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if id != 501 {
		t.Fatalf("expected order 501, got %d", id)
	}
	payload := remote.payloads[0]
	if payload.HasCard() {
		t.Fatalf("wallet-only payload should carry no card fields: %+v", payload)
	}
	if !payload.WalletUse || payload.AddressID != 2 || payload.DeliveryTime != "morning" {
		t.Fatalf("unexpected payload %+v", payload)
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var wire map[string]any
	if err := json.Unmarshal(raw, &wire); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if wire["delivery_date"] != "2026-10-17" || wire["delivery_type"] != "standard" || wire["delivery_in"] != "1HR" || wire["deliverable"] != true {
		t.Fatalf("unexpected wire payload %s", raw)
	}
	if _, ok := wire["cvv"]; ok {
		t.Fatalf("cvv should be omitted: %s", raw)
	}
}

func TestSubmitPartialWalletSendsNumericCard(t *testing.T) {
	ctx := context.Background()
	orch, remote, _ := newHarness(t, "10", "30")
	readyForPayment(t, orch)
	_ = orch.SetUseWallet(true)

	if _, err := orch.Submit(ctx); pkgerrors.Section(err) != SectionPayment {
		t.Fatalf("card should be required when wallet falls short, got %v", err)
	}

	_ = orch.SetCardDetails(fullCard())
	if _, err := orch.Submit(ctx); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	payload := remote.payloads[0]
	if payload.CardNumber != "4242424242424242" || payload.CardHolderName != "Asha K" {
		t.Fatalf("unexpected card fields %+v", payload)
	}
	if payload.ExpireMonth == nil || *payload.ExpireMonth != 12 || *payload.ExpireYear != 2030 || *payload.CVV != 123 {
		t.Fatalf("card numbers should be numeric: %+v", payload)
	}
}

func TestSubmitRequiresToken(t *testing.T) {
	ctx := context.Background()
	orch, remote, creds := newHarness(t, "0", "30")
	readyForPayment(t, orch)
	_ = orch.SetCardDetails(fullCard())
	if err := creds.Remove(ctx, credentials.KeyToken); err != nil {
		t.Fatalf("remove: %v", err)
	}

	if _, err := orch.Submit(ctx); !pkgerrors.Is(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if remote.calls() != 0 {
		t.Fatal("no checkout request should be sent")
	}
	if got := orch.Stage(); got != enums.CheckoutStageCollectingPayment {
		t.Fatalf("stage should return to collecting_payment, got %s", got)
	}
}

func TestSubmitSuccessDiscardsSelection(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	orch, _, _ := newHarness(t, "0", "30")
	orch.metrics = metrics.NewCheckoutMetrics(reg, "test")
	readyForPayment(t, orch)
	_ = orch.SetCardDetails(fullCard())

	if _, err := orch.Submit(ctx); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if got := orch.Stage(); got != enums.CheckoutStageSucceeded {
		t.Fatalf("expected succeeded, got %s", got)
	}
	if orch.OrderID() != 501 {
		t.Fatalf("expected order id 501, got %d", orch.OrderID())
	}
	sel := orch.Selection(ctx)
	if sel.Address != nil || sel.DeliverySlot != nil || sel.Card != nil || !sel.DeliveryDate.IsZero() {
		t.Fatalf("selection should be discarded, got %+v", sel)
	}
	if _, err := orch.Submit(ctx); !pkgerrors.Is(err, pkgerrors.CodeConflict) {
		t.Fatalf("resubmitting a placed order should conflict, got %v", err)
	}
	if err := orch.SetUseWallet(true); !pkgerrors.Is(err, pkgerrors.CodeConflict) {
		t.Fatalf("edits after success should conflict, got %v", err)
	}
	if n, err := testutil.GatherAndCount(reg, "test_checkout_submissions_total"); err != nil || n != 1 {
		t.Fatalf("expected one submission series, got %d (%v)", n, err)
	}

	orch.Reset()
	if got := orch.Stage(); got != enums.CheckoutStageCollectingSlot {
		t.Fatalf("reset should reselect the default address, got %s", got)
	}
}

func TestSubmitFailureKeepsSelection(t *testing.T) {
	ctx := context.Background()
	orch, remote, _ := newHarness(t, "0", "30")
	remote.err = pkgerrors.New(pkgerrors.CodeServerRejected, "Slot is full").WithDetails(map[string]any{"status": 422})
	readyForPayment(t, orch)
	_ = orch.SetCardDetails(fullCard())

	if _, err := orch.Submit(ctx); !pkgerrors.Is(err, pkgerrors.CodeServerRejected) {
		t.Fatalf("expected server rejection, got %v", err)
	}
	if got := orch.Stage(); got != enums.CheckoutStageFailed {
		t.Fatalf("expected failed, got %s", got)
	}
	if got := orch.FailureReason(); got != "Slot is full" {
		t.Fatalf("unexpected reason %q", got)
	}
	sel := orch.Selection(ctx)
	if sel.Address == nil || sel.DeliverySlot == nil || sel.Card == nil {
		t.Fatalf("selection should survive a failure, got %+v", sel)
	}

	if err := orch.SelectSlot("evening"); err != nil {
		t.Fatalf("SelectSlot: %v", err)
	}
	if orch.FailureReason() != "" || orch.Stage() != enums.CheckoutStageCollectingPayment {
		t.Fatal("editing should clear the failure")
	}

	remote.err = nil
	if _, err := orch.Submit(ctx); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if remote.calls() != 2 {
		t.Fatalf("expected two requests, got %d", remote.calls())
	}
}

func TestSubmitFailureReasonFallsBack(t *testing.T) {
	ctx := context.Background()
	orch, remote, _ := newHarness(t, "0", "30")
	remote.err = pkgerrors.New(pkgerrors.CodeInternal, "")
	readyForPayment(t, orch)
	_ = orch.SetCardDetails(fullCard())

	_, _ = orch.Submit(ctx)
	if got := orch.FailureReason(); got != "Checkout failed" {
		t.Fatalf("expected generic reason, got %q", got)
	}
}

func TestSubmitRejectsConcurrentSubmit(t *testing.T) {
	ctx := context.Background()
	orch, remote, _ := newHarness(t, "0", "30")
	remote.block = make(chan struct{})
	readyForPayment(t, orch)
	_ = orch.SetCardDetails(fullCard())

	done := make(chan error, 1)
	go func() {
		_, err := orch.Submit(ctx)
		done <- err
	}()

	deadline := time.Now().Add(2 * time.Second)
	for orch.Stage() != enums.CheckoutStageSubmitting {
		if time.Now().After(deadline) {
			t.Fatal("first submit never started")
		}
		time.Sleep(time.Millisecond)
	}

	if _, err := orch.Submit(ctx); !pkgerrors.Is(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if err := orch.SelectSlot("night"); !pkgerrors.Is(err, pkgerrors.CodeConflict) {
		t.Fatalf("edits while submitting should conflict, got %v", err)
	}

	close(remote.block)
	if err := <-done; err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if remote.calls() != 1 {
		t.Fatalf("expected a single request, got %d", remote.calls())
	}
}

func TestWalletWithoutProfileIsZero(t *testing.T) {
	ctx := context.Background()
	orch, _, creds := newHarness(t, "50", "30")
	if err := creds.Remove(ctx, credentials.KeyUserDetails); err != nil {
		t.Fatalf("remove: %v", err)
	}
	_ = orch.SetUseWallet(true)
	if got := orch.PaymentMode(ctx); got != enums.PaymentModeWalletPartialPlusCard {
		t.Fatalf("expected partial mode without a profile, got %s", got)
	}
}
