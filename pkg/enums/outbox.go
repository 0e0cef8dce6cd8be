package enums

// OutboxAggregateType names the entity an outbox event describes.
type OutboxAggregateType string

const (
	AggregatePickup OutboxAggregateType = "pickup"
	AggregateStaff  OutboxAggregateType = "staff"
)

func (a OutboxAggregateType) IsValid() bool {
	return a == AggregatePickup || a == AggregateStaff
}

// OutboxEventType names a domain event persisted through the outbox and
// published on the domain topic.
type OutboxEventType string

const (
	EventPickupCreated  OutboxEventType = "pickup_created"
	EventPickupReviewed OutboxEventType = "pickup_reviewed"
	EventRewardCredited OutboxEventType = "reward_credited"
)

// eventAggregates fixes which aggregate each event type belongs to.
var eventAggregates = map[OutboxEventType]OutboxAggregateType{
	EventPickupCreated:  AggregatePickup,
	EventPickupReviewed: AggregatePickup,
	EventRewardCredited: AggregateStaff,
}

func (e OutboxEventType) IsValid() bool {
	_, ok := eventAggregates[e]
	return ok
}

// Aggregate returns the aggregate type the event is keyed by, or "" when unknown.
func (e OutboxEventType) Aggregate() OutboxAggregateType {
	return eventAggregates[e]
}
