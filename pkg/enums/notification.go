package enums

import "fmt"

// NotificationType classifies admin inbox entries.
type NotificationType string

const (
	NotificationOrderPlaced    NotificationType = "order_placed"
	NotificationOrderUpdated   NotificationType = "order_updated"
	NotificationOrderShipped   NotificationType = "order_shipped"
	NotificationOrderDelivered NotificationType = "order_delivered"
	NotificationOrderCancelled NotificationType = "order_cancelled"
	NotificationPaymentSuccess NotificationType = "payment_success"
	NotificationLowStock       NotificationType = "low_stock"
)

var validNotificationTypes = []NotificationType{
	NotificationOrderPlaced,
	NotificationOrderUpdated,
	NotificationOrderShipped,
	NotificationOrderDelivered,
	NotificationOrderCancelled,
	NotificationPaymentSuccess,
	NotificationLowStock,
}

// String implements fmt.Stringer.
func (n NotificationType) String() string {
	return string(n)
}

// IsValid reports whether the value is a known NotificationType.
func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == n {
			return true
		}
	}
	return false
}

// NotificationTypeForStatus picks the inbox type announcing a move to status.
func NotificationTypeForStatus(status OrderStatus) NotificationType {
	switch status {
	case OrderStatusShipped:
		return NotificationOrderShipped
	case OrderStatusCompleted:
		return NotificationOrderDelivered
	case OrderStatusCancelled:
		return NotificationOrderCancelled
	default:
		return NotificationOrderUpdated
	}
}

// ParseNotificationType converts raw input into a NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}
