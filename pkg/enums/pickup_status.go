package enums

import (
	"fmt"
	"strings"
)

// PickupStatus tracks the review lifecycle of a pickup.
type PickupStatus string

const (
	PickupStatusPending  PickupStatus = "PENDING"
	PickupStatusApproved PickupStatus = "APPROVED"
	PickupStatusRejected PickupStatus = "REJECTED"
)

var validPickupStatuses = []PickupStatus{
	PickupStatusPending,
	PickupStatusApproved,
	PickupStatusRejected,
}

// pickupTransitions lists the destinations reachable from each status.
// REJECTED -> PENDING only happens through an owner edit.
var pickupTransitions = map[PickupStatus][]PickupStatus{
	PickupStatusPending:  {PickupStatusApproved, PickupStatusRejected},
	PickupStatusRejected: {PickupStatusApproved, PickupStatusPending},
	PickupStatusApproved: {},
}

// String implements fmt.Stringer.
func (s PickupStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known PickupStatus.
func (s PickupStatus) IsValid() bool {
	for _, candidate := range validPickupStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsEditable reports whether the owner may still change or delete the pickup.
func (s PickupStatus) IsEditable() bool {
	return s == PickupStatusPending || s == PickupStatusRejected
}

// IsReviewTarget reports whether a reviewer may request this status.
func (s PickupStatus) IsReviewTarget() bool {
	return s == PickupStatusApproved || s == PickupStatusRejected
}

// CanTransitionTo reports whether moving from s to next is a legal transition.
func (s PickupStatus) CanTransitionTo(next PickupStatus) bool {
	for _, candidate := range pickupTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// ParsePickupStatus converts raw input into a PickupStatus. Matching is case-insensitive.
func ParsePickupStatus(value string) (PickupStatus, error) {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	for _, candidate := range validPickupStatuses {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid pickup status %q", value)
}
