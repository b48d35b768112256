package enums

import "fmt"

// CheckoutStage tracks where the checkout flow currently is.
type CheckoutStage string

const (
	CheckoutStageCollectingAddress CheckoutStage = "collecting_address"
	CheckoutStageCollectingSlot    CheckoutStage = "collecting_slot"
	CheckoutStageCollectingPayment CheckoutStage = "collecting_payment"
	CheckoutStageSubmitting        CheckoutStage = "submitting"
	CheckoutStageSucceeded         CheckoutStage = "succeeded"
	CheckoutStageFailed            CheckoutStage = "failed"
)

var validCheckoutStages = []CheckoutStage{
	CheckoutStageCollectingAddress,
	CheckoutStageCollectingSlot,
	CheckoutStageCollectingPayment,
	CheckoutStageSubmitting,
	CheckoutStageSucceeded,
	CheckoutStageFailed,
}

// String implements fmt.Stringer.
func (c CheckoutStage) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CheckoutStage.
func (c CheckoutStage) IsValid() bool {
	for _, candidate := range validCheckoutStages {
		if candidate == c {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the flow has produced an outcome.
func (c CheckoutStage) IsTerminal() bool {
	return c == CheckoutStageSucceeded || c == CheckoutStageFailed
}

// ParseCheckoutStage converts raw input into a CheckoutStage.
func ParseCheckoutStage(value string) (CheckoutStage, error) {
	for _, candidate := range validCheckoutStages {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid checkout stage %q", value)
}
