package enums

import "fmt"

// PaymentMethod selects how the customer settles an order.
type PaymentMethod string

const (
	PaymentMethodMpesa         PaymentMethod = "mpesa"
	PaymentMethodPayOnDelivery PaymentMethod = "pay_on_delivery"
)

var validPaymentMethods = []PaymentMethod{PaymentMethodMpesa, PaymentMethodPayOnDelivery}

// String implements fmt.Stringer.
func (m PaymentMethod) String() string {
	return string(m)
}

// IsValid reports whether the value is a known PaymentMethod.
func (m PaymentMethod) IsValid() bool {
	for _, candidate := range validPaymentMethods {
		if candidate == m {
			return true
		}
	}
	return false
}

// InitialOrderStatus is the status a freshly created order starts in.
func (m PaymentMethod) InitialOrderStatus() OrderStatus {
	if m == PaymentMethodPayOnDelivery {
		return OrderStatusProcessing
	}
	return OrderStatusPendingPayment
}

// DeductsStockAtCheckout reports whether stock leaves the shelf when the order is placed.
func (m PaymentMethod) DeductsStockAtCheckout() bool {
	return m == PaymentMethodPayOnDelivery
}

// ParsePaymentMethod converts raw input into a PaymentMethod.
func ParsePaymentMethod(value string) (PaymentMethod, error) {
	for _, candidate := range validPaymentMethods {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment method %q", value)
}

// DeliveryMethod selects how the goods reach the customer.
type DeliveryMethod string

const (
	DeliveryMethodDelivery DeliveryMethod = "delivery"
	DeliveryMethodPickup   DeliveryMethod = "pickup"
)

var validDeliveryMethods = []DeliveryMethod{DeliveryMethodDelivery, DeliveryMethodPickup}

// String implements fmt.Stringer.
func (d DeliveryMethod) String() string {
	return string(d)
}

// IsValid reports whether the value is a known DeliveryMethod.
func (d DeliveryMethod) IsValid() bool {
	for _, candidate := range validDeliveryMethods {
		if candidate == d {
			return true
		}
	}
	return false
}

// ParseDeliveryMethod converts raw input into a DeliveryMethod.
func ParseDeliveryMethod(value string) (DeliveryMethod, error) {
	for _, candidate := range validDeliveryMethods {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid delivery method %q", value)
}
