package types

import (
	"strings"

	"github.com/angelmondragon/grocerycart/pkg/enums"
	"github.com/shopspring/decimal"
)

// DeliverySlot is a named delivery window. Available is computed for a target date.
type DeliverySlot struct {
	Value           string `json:"value"`
	Label           string `json:"label"`
	WindowStartHour int    `json:"window_start_hour"`
	WindowEndHour   int    `json:"window_end_hour"`
	Available       bool   `json:"available"`
}

// CardDetails holds card fields exactly as the customer typed them.
type CardDetails struct {
	Holder      string `json:"holder"`
	Number      string `json:"number"`
	ExpiryMonth string `json:"expiry_month"`
	ExpiryYear  string `json:"expiry_year"`
	CVV         string `json:"-"`
}

// Complete reports whether every card field is non-blank.
func (c CardDetails) Complete() bool {
	for _, field := range []string{c.Holder, c.Number, c.ExpiryMonth, c.ExpiryYear, c.CVV} {
		if strings.TrimSpace(field) == "" {
			return false
		}
	}
	return true
}

// MaskedNumber keeps only the last four digits.
func (c CardDetails) MaskedNumber() string {
	digits := strings.ReplaceAll(strings.TrimSpace(c.Number), " ", "")
	if len(digits) <= 4 {
		return digits
	}
	return strings.Repeat("*", len(digits)-4) + digits[len(digits)-4:]
}

// CheckoutSelection is everything the customer chose before submitting.
type CheckoutSelection struct {
	Address      *Address          `json:"address,omitempty"`
	DeliveryDate Date              `json:"-"`
	DeliverySlot *DeliverySlot     `json:"delivery_slot,omitempty"`
	UseWallet    bool              `json:"use_wallet"`
	PaymentMode  enums.PaymentMode `json:"payment_mode"`
	Card         *CardDetails      `json:"card,omitempty"`
}

// CheckoutPayload is the wire body of POST /checkout.
type CheckoutPayload struct {
	WalletUse           bool               `json:"wallet_use"`
	CouponID            *int64             `json:"coupon_id,omitempty"`
	Tip                 *decimal.Decimal   `json:"tip,omitempty"`
	AddressID           int64              `json:"address_id"`
	DeliveryDate        string             `json:"delivery_date"`
	Deliverable         bool               `json:"deliverable"`
	CardNumber          string             `json:"card_number,omitempty"`
	CardHolderName      string             `json:"card_holder_name,omitempty"`
	ExpireMonth         *int               `json:"expire_month,omitempty"`
	ExpireYear          *int               `json:"expire_year,omitempty"`
	CVV                 *int               `json:"cvv,omitempty"`
	DeliveryInstruction string             `json:"delivery_instraction,omitempty"`
	DeliveryNote        string             `json:"delivery_Note,omitempty"`
	DeliveryTime        string             `json:"delivery_time"`
	DeliveryType        enums.DeliveryType `json:"delivery_type"`
	DeliveryIn          string             `json:"delivery_in"`
}

// HasCard reports whether card fields are attached.
func (p CheckoutPayload) HasCard() bool {
	return p.CardNumber != "" || p.CardHolderName != "" || p.ExpireMonth != nil || p.ExpireYear != nil || p.CVV != nil
}
