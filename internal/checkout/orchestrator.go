package checkout

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/angelmondragon/grocerycart/pkg/cartapi"
	"github.com/angelmondragon/grocerycart/pkg/credentials"
	"github.com/angelmondragon/grocerycart/pkg/enums"
	pkgerrors "github.com/angelmondragon/grocerycart/pkg/errors"
	"github.com/angelmondragon/grocerycart/pkg/logger"
	"github.com/angelmondragon/grocerycart/pkg/metrics"
	"github.com/angelmondragon/grocerycart/pkg/types"
	"github.com/shopspring/decimal"
)

// Validation sections.
const (
	SectionAddress = "address"
	SectionDate    = "date"
	SectionSlot    = "slot"
	SectionPayment = "payment"
)

const defaultFailureReason = "Checkout failed"

// Remote is the slice of the commerce API checkout needs.
type Remote interface {
	Addresses(ctx context.Context, token string) ([]types.Address, error)
	Checkout(ctx context.Context, token string, payload types.CheckoutPayload) (*cartapi.CheckoutReceipt, error)
}

// TotalsSource exposes the authoritative cart totals (the cart store).
type TotalsSource interface {
	Totals() types.CartTotals
}

// Options tunes an Orchestrator. Zero values fall back to defaults.
type Options struct {
	DeliveryType   enums.DeliveryType
	DeliveryIn     string
	DateWindowDays int
	Location       *time.Location
	Now            func() time.Time
	Logger         *logger.Logger
	Metrics        *metrics.CheckoutMetrics
}

// Extras are the optional payload fields.
type Extras struct {
	CouponID    *int64
	Tip         *decimal.Decimal
	Instruction string
	Note        string
}

// Orchestrator drives one checkout: address, delivery date and slot,
// payment, then submission.
type Orchestrator struct {
	remote  Remote
	totals  TotalsSource
	creds   credentials.Reader
	opts    Options
	logg    *logger.Logger
	metrics *metrics.CheckoutMetrics

	mu         sync.Mutex
	addresses  []types.Address
	selection  types.CheckoutSelection
	extras     Extras
	submitting bool
	outcome    enums.CheckoutStage
	orderID    int64
	failure    string
}

// NewOrchestrator validates collaborators and applies option defaults.
func NewOrchestrator(remote Remote, totals TotalsSource, creds credentials.Reader, opts Options) (*Orchestrator, error) {
	if remote == nil {
		return nil, fmt.Errorf("checkout remote required")
	}
	if totals == nil {
		return nil, fmt.Errorf("cart totals source required")
	}
	if creds == nil {
		return nil, fmt.Errorf("credential reader required")
	}
	if opts.DeliveryType == "" {
		opts.DeliveryType = enums.DeliveryTypeStandard
	}
	if !opts.DeliveryType.IsValid() {
		return nil, fmt.Errorf("invalid delivery type %q", opts.DeliveryType)
	}
	if strings.TrimSpace(opts.DeliveryIn) == "" {
		opts.DeliveryIn = "1HR"
	}
	if opts.DateWindowDays <= 0 {
		opts.DateWindowDays = 10
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logg := opts.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &Orchestrator{
		remote:  remote,
		totals:  totals,
		creds:   creds,
		opts:    opts,
		logg:    logg,
		metrics: opts.Metrics,
	}, nil
}

func (o *Orchestrator) now() time.Time {
	return o.opts.Now().In(o.opts.Location)
}

// Stage derives the current step from what has been filled in.
func (o *Orchestrator) Stage() enums.CheckoutStage {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.stageLocked()
}

func (o *Orchestrator) stageLocked() enums.CheckoutStage {
	switch {
	case o.submitting:
		return enums.CheckoutStageSubmitting
	case o.outcome.IsTerminal():
		return o.outcome
	case o.selection.Address == nil:
		return enums.CheckoutStageCollectingAddress
	case o.selection.DeliveryDate.IsZero() || o.selection.DeliverySlot == nil:
		return enums.CheckoutStageCollectingSlot
	default:
		return enums.CheckoutStageCollectingPayment
	}
}

// OrderID is the id of the placed order once the stage is succeeded.
func (o *Orchestrator) OrderID() int64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.orderID
}

// FailureReason is the human-readable reason of the last failed submission.
func (o *Orchestrator) FailureReason() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.failure
}

// Reset starts a fresh checkout, keeping the loaded address book.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.submitting {
		return
	}
	o.selection = types.CheckoutSelection{}
	o.extras = Extras{}
	o.outcome = ""
	o.orderID = 0
	o.failure = ""
	o.selectDefaultLocked()
}

// LoadAddresses fetches the address book and preselects the default one,
// falling back to the first entry.
func (o *Orchestrator) LoadAddresses(ctx context.Context) ([]types.Address, error) {
	token, err := o.token(ctx)
	if err != nil {
		return nil, err
	}
	addresses, err := o.remote.Addresses(ctx, token)
	if err != nil {
		o.logg.Error(o.logg.WithField(ctx, "operation", "load_addresses"), "address fetch failed", err)
		return nil, err
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	o.addresses = make([]types.Address, len(addresses))
	copy(o.addresses, addresses)
	o.selectDefaultLocked()
	return o.addressesLocked(), nil
}

func (o *Orchestrator) selectDefaultLocked() {
	if len(o.addresses) == 0 {
		o.selection.Address = nil
		return
	}
	idx := 0
	for i, addr := range o.addresses {
		if addr.IsDefault {
			idx = i
			break
		}
	}
	o.markSelectedLocked(idx)
}

// Addresses returns the address book with the current selection flagged.
func (o *Orchestrator) Addresses() []types.Address {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.addressesLocked()
}

func (o *Orchestrator) addressesLocked() []types.Address {
	out := make([]types.Address, len(o.addresses))
	copy(out, o.addresses)
	return out
}

// SelectAddress picks the i-th address and clears every other selection flag.
func (o *Orchestrator) SelectAddress(i int) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.editableLocked(); err != nil {
		return err
	}
	if i < 0 || i >= len(o.addresses) {
		return pkgerrors.Validation(SectionAddress, "Please select a delivery address")
	}
	o.markSelectedLocked(i)
	return nil
}

func (o *Orchestrator) markSelectedLocked(idx int) {
	for i := range o.addresses {
		o.addresses[i].Selected = i == idx
	}
	addr := o.addresses[idx]
	o.selection.Address = &addr
}

// Dates lists the delivery dates on offer, starting today.
func (o *Orchestrator) Dates() []types.Date {
	return DateWindow(o.now(), o.opts.DateWindowDays)
}

// Slots lists the delivery windows for date with availability as of now.
func (o *Orchestrator) Slots(date types.Date) []types.DeliverySlot {
	return SlotsFor(date, o.now())
}

// SelectDate records the date and auto-selects its first open slot. When
// every slot is closed the date is kept, no slot is selected and a slot
// validation error is returned.
func (o *Orchestrator) SelectDate(date types.Date) error {
	now := o.now()
	if !inWindow(date, now, o.opts.DateWindowDays) {
		return pkgerrors.Validation(SectionDate, "Selected delivery date is not available")
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.editableLocked(); err != nil {
		return err
	}
	o.selection.DeliveryDate = date
	o.selection.DeliverySlot = nil

	slot, ok := firstAvailable(SlotsFor(date, now))
	if !ok {
		return pkgerrors.Validation(SectionSlot, "No delivery slots left for this date, please pick another day")
	}
	o.selection.DeliverySlot = &slot
	return nil
}

// SelectSlot picks a window for the chosen date.
func (o *Orchestrator) SelectSlot(value string) error {
	now := o.now()

	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.editableLocked(); err != nil {
		return err
	}
	if o.selection.DeliveryDate.IsZero() {
		return pkgerrors.Validation(SectionDate, "Please select a delivery date")
	}
	slot, ok := findSlot(SlotsFor(o.selection.DeliveryDate, now), value)
	if !ok {
		return pkgerrors.Validation(SectionSlot, fmt.Sprintf("Unknown delivery slot %q", value))
	}
	if !slot.Available {
		return pkgerrors.Validation(SectionSlot, "Selected delivery slot is no longer available")
	}
	o.selection.DeliverySlot = &slot
	return nil
}

// SetUseWallet toggles paying from the wallet balance.
func (o *Orchestrator) SetUseWallet(use bool) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.editableLocked(); err != nil {
		return err
	}
	o.selection.UseWallet = use
	return nil
}

// SetCardDetails stores the card fields as typed.
func (o *Orchestrator) SetCardDetails(card types.CardDetails) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.editableLocked(); err != nil {
		return err
	}
	o.selection.Card = &card
	return nil
}

// SetExtras stores coupon, tip and delivery notes.
func (o *Orchestrator) SetExtras(extras Extras) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.editableLocked(); err != nil {
		return err
	}
	o.extras = extras
	return nil
}

// editableLocked rejects edits mid-submit or after success and clears a
// previous failure otherwise.
func (o *Orchestrator) editableLocked() error {
	if o.submitting {
		return pkgerrors.New(pkgerrors.CodeConflict, "checkout is being submitted")
	}
	if o.outcome == enums.CheckoutStageSucceeded {
		return pkgerrors.New(pkgerrors.CodeConflict, "order already placed, start a new checkout")
	}
	if o.outcome == enums.CheckoutStageFailed {
		o.outcome = ""
		o.failure = ""
	}
	return nil
}

// Wallet returns the cached wallet balance, zero when unknown.
func (o *Orchestrator) Wallet(ctx context.Context) decimal.Decimal {
	profile, err := credentials.Profile(ctx, o.creds)
	if err != nil {
		if !errors.Is(err, credentials.ErrNotFound) {
			o.logg.Warn(o.logg.WithField(ctx, "error", err.Error()), "unreadable customer profile, assuming empty wallet")
		}
		return decimal.Zero
	}
	return profile.Wallet
}

// ResolvePaymentMode decides how the payable amount is settled.
func ResolvePaymentMode(useWallet bool, wallet, payable decimal.Decimal) enums.PaymentMode {
	switch {
	case useWallet && wallet.GreaterThanOrEqual(payable):
		return enums.PaymentModeWalletOnly
	case useWallet:
		return enums.PaymentModeWalletPartialPlusCard
	default:
		return enums.PaymentModeCardOnly
	}
}

// PaymentMode resolves the mode from the wallet flag, balance and cart totals.
func (o *Orchestrator) PaymentMode(ctx context.Context) enums.PaymentMode {
	wallet := o.Wallet(ctx)
	payable := o.totals.Totals().PayableAmount
	o.mu.Lock()
	defer o.mu.Unlock()
	return ResolvePaymentMode(o.selection.UseWallet, wallet, payable)
}

// Selection returns a copy of the current choices with the payment mode resolved.
func (o *Orchestrator) Selection(ctx context.Context) types.CheckoutSelection {
	mode := o.PaymentMode(ctx)
	o.mu.Lock()
	defer o.mu.Unlock()
	sel := copySelection(o.selection)
	sel.PaymentMode = mode
	return sel
}

// Validate checks address, date, slot and payment in that order.
func (o *Orchestrator) Validate(ctx context.Context) error {
	_, err := o.BuildPayload(ctx)
	return err
}

// BuildPayload validates the selection and renders the wire request.
func (o *Orchestrator) BuildPayload(ctx context.Context) (types.CheckoutPayload, error) {
	wallet := o.Wallet(ctx)
	payable := o.totals.Totals().PayableAmount
	now := o.now()

	o.mu.Lock()
	defer o.mu.Unlock()
	return o.buildPayloadLocked(wallet, payable, now)
}

func (o *Orchestrator) buildPayloadLocked(wallet, payable decimal.Decimal, now time.Time) (types.CheckoutPayload, error) {
	sel := o.selection
	if sel.Address == nil {
		return types.CheckoutPayload{}, pkgerrors.Validation(SectionAddress, "Please select a delivery address")
	}
	if sel.DeliveryDate.IsZero() {
		return types.CheckoutPayload{}, pkgerrors.Validation(SectionDate, "Please select a delivery date")
	}
	if !inWindow(sel.DeliveryDate, now, o.opts.DateWindowDays) {
		return types.CheckoutPayload{}, pkgerrors.Validation(SectionDate, "Selected delivery date is not available")
	}
	if sel.DeliverySlot == nil {
		return types.CheckoutPayload{}, pkgerrors.Validation(SectionSlot, "Please select a delivery slot")
	}
	if !SlotAvailable(sel.DeliveryDate, sel.DeliverySlot.WindowEndHour, now) {
		return types.CheckoutPayload{}, pkgerrors.Validation(SectionSlot, "Selected delivery slot is no longer available")
	}

	payload := types.CheckoutPayload{
		WalletUse:           sel.UseWallet,
		CouponID:            o.extras.CouponID,
		Tip:                 o.extras.Tip,
		AddressID:           sel.Address.ID,
		DeliveryDate:        sel.DeliveryDate.String(),
		Deliverable:         true,
		DeliveryInstruction: strings.TrimSpace(o.extras.Instruction),
		DeliveryNote:        strings.TrimSpace(o.extras.Note),
		DeliveryTime:        sel.DeliverySlot.Value,
		DeliveryType:        o.opts.DeliveryType,
		DeliveryIn:          o.opts.DeliveryIn,
	}

	if !ResolvePaymentMode(sel.UseWallet, wallet, payable).RequiresCard() {
		return payload, nil
	}
	if sel.Card == nil || !sel.Card.Complete() {
		return types.CheckoutPayload{}, pkgerrors.Validation(SectionPayment, "Please enter valid card details")
	}
	month, errMonth := strconv.Atoi(strings.TrimSpace(sel.Card.ExpiryMonth))
	year, errYear := strconv.Atoi(strings.TrimSpace(sel.Card.ExpiryYear))
	cvv, errCVV := strconv.Atoi(strings.TrimSpace(sel.Card.CVV))
	if errMonth != nil || errYear != nil || errCVV != nil {
		return types.CheckoutPayload{}, pkgerrors.Validation(SectionPayment, "Please enter valid card details")
	}
	payload.CardNumber = strings.TrimSpace(sel.Card.Number)
	payload.CardHolderName = strings.TrimSpace(sel.Card.Holder)
	payload.ExpireMonth = &month
	payload.ExpireYear = &year
	payload.CVV = &cvv
	return payload, nil
}

// Submit validates, then places the order. On success the selection is
// discarded and the order id kept; on failure the selection stays for a
// retry. The cart is not refetched here.
func (o *Orchestrator) Submit(ctx context.Context) (int64, error) {
	wallet := o.Wallet(ctx)
	payable := o.totals.Totals().PayableAmount
	now := o.now()

	o.mu.Lock()
	if o.submitting {
		o.mu.Unlock()
		return 0, pkgerrors.New(pkgerrors.CodeConflict, "checkout is already being submitted")
	}
	if o.outcome == enums.CheckoutStageSucceeded {
		id := o.orderID
		o.mu.Unlock()
		return id, pkgerrors.New(pkgerrors.CodeConflict, "order already placed")
	}
	payload, err := o.buildPayloadLocked(wallet, payable, now)
	if err != nil {
		o.mu.Unlock()
		return 0, err
	}
	mode := ResolvePaymentMode(o.selection.UseWallet, wallet, payable)
	o.submitting = true
	o.outcome = ""
	o.failure = ""
	o.mu.Unlock()

	token, err := o.token(ctx)
	if err != nil {
		o.mu.Lock()
		o.submitting = false
		o.mu.Unlock()
		return 0, err
	}

	ctx = o.logg.WithFields(ctx, map[string]any{
		"operation":     "checkout",
		"payment_mode":  mode.String(),
		"address_id":    payload.AddressID,
		"delivery_date": payload.DeliveryDate,
		"delivery_time": payload.DeliveryTime,
	})
	started := time.Now()
	receipt, err := o.remote.Checkout(ctx, token, payload)

	o.mu.Lock()
	defer o.mu.Unlock()
	o.submitting = false
	if err != nil {
		o.outcome = enums.CheckoutStageFailed
		o.failure = failureReason(err)
		o.metrics.ObserveSubmit(mode.String(), metrics.OutcomeError, time.Since(started))
		o.logg.Error(ctx, "checkout failed", err)
		return 0, err
	}

	o.outcome = enums.CheckoutStageSucceeded
	o.orderID = receipt.OrderID
	o.selection = types.CheckoutSelection{}
	o.extras = Extras{}
	for i := range o.addresses {
		o.addresses[i].Selected = false
	}
	o.metrics.ObserveSubmit(mode.String(), metrics.OutcomeOK, time.Since(started))
	o.logg.Info(o.logg.WithOrderID(ctx, receipt.OrderID), "order placed")
	return receipt.OrderID, nil
}

func (o *Orchestrator) token(ctx context.Context) (string, error) {
	token, err := credentials.Token(ctx, o.creds)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "could not read the session token")
	}
	if token == "" {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "please log in to check out")
	}
	return token, nil
}

func failureReason(err error) string {
	switch pkgerrors.CodeOf(err) {
	case pkgerrors.CodeServerRejected, pkgerrors.CodeUnauthorized:
		if typed := pkgerrors.As(err); typed != nil && typed.Message() != "" {
			return typed.Message()
		}
		return defaultFailureReason
	case pkgerrors.CodeNetwork:
		return pkgerrors.UserMessage(err)
	default:
		return defaultFailureReason
	}
}

func inWindow(date types.Date, now time.Time, days int) bool {
	for _, d := range DateWindow(now, days) {
		if d == date {
			return true
		}
	}
	return false
}

func copySelection(sel types.CheckoutSelection) types.CheckoutSelection {
	out := sel
	if sel.Address != nil {
		addr := *sel.Address
		out.Address = &addr
	}
	if sel.DeliverySlot != nil {
		slot := *sel.DeliverySlot
		out.DeliverySlot = &slot
	}
	if sel.Card != nil {
		card := *sel.Card
		out.Card = &card
	}
	return out
}
