// Package registry decodes outbox rows into typed payloads and routes them to
// a Pub/Sub topic.
package registry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/vatavaran/vatavaran-backend/pkg/config"
	"github.com/vatavaran/vatavaran-backend/pkg/db/models"
	"github.com/vatavaran/vatavaran-backend/pkg/enums"
	"github.com/vatavaran/vatavaran-backend/pkg/outbox"
	"github.com/vatavaran/vatavaran-backend/pkg/outbox/payloads"
)

type decodeFunc func(json.RawMessage) (any, error)

// typed returns a decoder that rejects unknown fields, so a payload written by
// a newer producer is parked instead of published half-understood.
func typed[T any]() decodeFunc {
	return func(raw json.RawMessage) (any, error) {
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.DisallowUnknownFields()
		out := new(T)
		if err := dec.Decode(out); err != nil {
			return nil, err
		}
		return out, nil
	}
}

// EventDescriptor is where an event type is published.
type EventDescriptor struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	Topic         string
}

// ResolvedEvent is a validated outbox row. Payload is a pointer to the
// payloads type registered for the event.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    any
}

type entry struct {
	desc   EventDescriptor
	decode decodeFunc
}

type EventRegistry struct {
	entries map[enums.OutboxEventType]entry
}

// NonRetryableError marks a row the publisher should park rather than retry.
type NonRetryableError struct {
	Err error
}

func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable outbox error"
	}
	return e.Err.Error()
}

func (e NonRetryableError) Unwrap() error { return e.Err }

func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	if cfg.DomainTopic == "" {
		return nil, errors.New("pubsub domain topic is required")
	}
	decoders := map[enums.OutboxEventType]decodeFunc{
		enums.EventPickupCreated:  typed[payloads.PickupCreatedEvent](),
		enums.EventPickupReviewed: typed[payloads.PickupReviewedEvent](),
		enums.EventRewardCredited: typed[payloads.RewardCreditedEvent](),
	}

	reg := &EventRegistry{entries: make(map[enums.OutboxEventType]entry, len(decoders))}
	for eventType, decode := range decoders {
		reg.entries[eventType] = entry{
			desc: EventDescriptor{
				EventType:     eventType,
				AggregateType: eventType.Aggregate(),
				Topic:         cfg.DomainTopic,
			},
			decode: decode,
		}
	}
	return reg, nil
}

// Resolve checks the row against its registered descriptor and decodes the
// payload. Every error it returns is a NonRetryableError.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	resolved, err := r.resolve(event)
	if err != nil {
		return nil, NewNonRetryableError(err)
	}
	return resolved, nil
}

func (r *EventRegistry) resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	e, ok := r.entries[event.EventType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", outbox.ErrUnknownEventType, event.EventType)
	}
	if event.AggregateType != e.desc.AggregateType || event.AggregateID == uuid.Nil {
		return nil, fmt.Errorf("%w: %s on %s %s", outbox.ErrInvalidAggregate, event.EventType, event.AggregateType, event.AggregateID)
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(event.Payload, &envelope); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	if envelope.Version != outbox.EnvelopeVersion {
		return nil, fmt.Errorf("unsupported envelope version %d", envelope.Version)
	}
	if envelope.EventID != event.ID.String() {
		return nil, fmt.Errorf("envelope event id %q does not match row %s", envelope.EventID, event.ID)
	}
	data := bytes.TrimSpace(envelope.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, fmt.Errorf("%s payload missing", event.EventType)
	}

	payload, err := e.decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", event.EventType, err)
	}
	return &ResolvedEvent{Descriptor: e.desc, Envelope: envelope, Payload: payload}, nil
}
