package repository

// SubscriptionFilter narrows a subscription listing.
type SubscriptionFilter struct {
	EventType string
	Limit     int
	Offset    int
}

// DeliveryLogFilter narrows a delivery log listing. A negative Limit means
// unlimited; results are returned most-recent-first.
type DeliveryLogFilter struct {
	SubscriptionID string
	Status         DeliveryStatus
	Limit          int
	Offset         int
}
