package enums

import "fmt"

// FeedEventType maps to the feed_event_type enum in Postgres. The set is
// closed: producers and clients agree on it, so extending it is a versioned
// contract change, not an ad hoc string.
type FeedEventType string

const (
	EventNotificationCreated FeedEventType = "notification_created"
	EventNotificationUpdated FeedEventType = "notification_updated"
	EventNotificationDeleted FeedEventType = "notification_deleted"
	EventNotificationRead    FeedEventType = "notification_read"
	EventUnreadCountChanged  FeedEventType = "unread_count_changed"

	EventCartChanged FeedEventType = "cart_changed"

	EventConsigneeCreated FeedEventType = "consignee_created"
	EventConsigneeUpdated FeedEventType = "consignee_updated"
	EventConsigneeDeleted FeedEventType = "consignee_deleted"

	EventDeliveryAddressCreated FeedEventType = "delivery_address_created"
	EventDeliveryAddressUpdated FeedEventType = "delivery_address_updated"
	EventDeliveryAddressDeleted FeedEventType = "delivery_address_deleted"

	EventCounterpartyUpdated FeedEventType = "counterparty_updated"

	EventOrderCreated      FeedEventType = "order_created"
	EventOrderUpdated      FeedEventType = "order_updated"
	EventOrderCommentAdded FeedEventType = "order_comment_added"
)

var validFeedEventTypes = []FeedEventType{
	EventNotificationCreated,
	EventNotificationUpdated,
	EventNotificationDeleted,
	EventNotificationRead,
	EventUnreadCountChanged,
	EventCartChanged,
	EventConsigneeCreated,
	EventConsigneeUpdated,
	EventConsigneeDeleted,
	EventDeliveryAddressCreated,
	EventDeliveryAddressUpdated,
	EventDeliveryAddressDeleted,
	EventCounterpartyUpdated,
	EventOrderCreated,
	EventOrderUpdated,
	EventOrderCommentAdded,
}

// IsValid checks whether the given type matches the canonical enum.
func (f FeedEventType) IsValid() bool {
	for _, candidate := range validFeedEventTypes {
		if candidate == f {
			return true
		}
	}
	return false
}

// ParseFeedEventType converts raw strings into FeedEventType.
func ParseFeedEventType(value string) (FeedEventType, error) {
	for _, candidate := range validFeedEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid feed event type %q", value)
}
