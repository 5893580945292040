package enums

import "fmt"

// NotificationType classifies the order events handed to the notifier.
type NotificationType string

const (
	NotificationTypeOrderCreated       NotificationType = "order_created"
	NotificationTypeOrderStatusChanged NotificationType = "order_status_changed"
	NotificationTypePaymentRecorded    NotificationType = "payment_recorded"
	NotificationTypeOrderRemoved       NotificationType = "order_removed"
)

var validNotificationTypes = []NotificationType{
	NotificationTypeOrderCreated,
	NotificationTypeOrderStatusChanged,
	NotificationTypePaymentRecorded,
	NotificationTypeOrderRemoved,
}

// IsValid checks whether the given type matches the canonical enum.
func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationType converts raw strings into NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}
