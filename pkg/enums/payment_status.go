package enums

import "fmt"

// PaymentStatus tracks a single mobile money collection attempt.
type PaymentStatus string

const (
	PaymentStatusInitiated PaymentStatus = "initiated"
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusSuccess   PaymentStatus = "success"
	PaymentStatusFailed    PaymentStatus = "failed"
)

var validPaymentStatuses = []PaymentStatus{
	PaymentStatusInitiated,
	PaymentStatusPending,
	PaymentStatusSuccess,
	PaymentStatusFailed,
}

// OpenPaymentStatuses are the statuses a callback may still settle.
var OpenPaymentStatuses = []PaymentStatus{PaymentStatusInitiated, PaymentStatusPending}

var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusInitiated: {PaymentStatusPending, PaymentStatusSuccess, PaymentStatusFailed},
	PaymentStatusPending:   {PaymentStatusSuccess, PaymentStatusFailed},
}

// String implements fmt.Stringer.
func (p PaymentStatus) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentStatus.
func (p PaymentStatus) IsValid() bool {
	for _, candidate := range validPaymentStatuses {
		if candidate == p {
			return true
		}
	}
	return false
}

// IsOpen reports whether the payment is still awaiting a gateway result.
func (p PaymentStatus) IsOpen() bool {
	return p == PaymentStatusInitiated || p == PaymentStatusPending
}

// IsTerminal reports whether the payment has settled.
func (p PaymentStatus) IsTerminal() bool {
	return p == PaymentStatusSuccess || p == PaymentStatusFailed
}

// CanTransitionTo reports whether next is reachable from p.
func (p PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	for _, candidate := range paymentTransitions[p] {
		if candidate == next {
			return true
		}
	}
	return false
}

// ParsePaymentStatus converts raw input into a PaymentStatus.
func ParsePaymentStatus(value string) (PaymentStatus, error) {
	for _, candidate := range validPaymentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment status %q", value)
}
