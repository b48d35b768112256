package enums

import "fmt"

// PaymentMode describes how the payable amount is settled at checkout.
type PaymentMode string

const (
	PaymentModeWalletOnly            PaymentMode = "WALLET_ONLY"
	PaymentModeWalletPartialPlusCard PaymentMode = "WALLET_PARTIAL_PLUS_CARD"
	PaymentModeCardOnly              PaymentMode = "CARD_ONLY"
)

var validPaymentModes = []PaymentMode{
	PaymentModeWalletOnly,
	PaymentModeWalletPartialPlusCard,
	PaymentModeCardOnly,
}

// String implements fmt.Stringer.
func (p PaymentMode) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentMode.
func (p PaymentMode) IsValid() bool {
	for _, candidate := range validPaymentModes {
		if candidate == p {
			return true
		}
	}
	return false
}

// RequiresCard reports whether full card details must accompany the submission.
func (p PaymentMode) RequiresCard() bool {
	return p != PaymentModeWalletOnly
}

// ParsePaymentMode converts raw input into a PaymentMode.
func ParsePaymentMode(value string) (PaymentMode, error) {
	for _, candidate := range validPaymentModes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment mode %q", value)
}
