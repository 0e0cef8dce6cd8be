// Package authz decides whether an authenticated actor may act on a pickup.
// Decisions are pure: no I/O, no clock, no shared state.
package authz

import (
	"github.com/google/uuid"

	"github.com/vatavaran/vatavaran-backend/pkg/enums"
)

// Action is an operation an actor requests against a pickup.
type Action string

const (
	ActionCreate           Action = "create"
	ActionReadOwn          Action = "readOwn"
	ActionReadAny          Action = "readAny"
	ActionUpdate           Action = "update"
	ActionDelete           Action = "delete"
	ActionList             Action = "list"
	ActionReviewTransition Action = "reviewTransition"
)

// DenyReason explains a denial so callers can choose the right error.
type DenyReason string

const (
	ReasonNone      DenyReason = ""
	ReasonRole      DenyReason = "role"
	ReasonOwnership DenyReason = "ownership"
	ReasonStatus    DenyReason = "status"
	ReasonAction    DenyReason = "action"
)

// Actor is the verified identity behind a request.
type Actor struct {
	ID   uuid.UUID
	Role enums.Role
}

// Request carries everything a decision depends on. OwnerID, CurrentStatus
// and TargetStatus are ignored by actions that do not need them.
type Request struct {
	Role          enums.Role
	ActorID       uuid.UUID
	OwnerID       uuid.UUID
	Action        Action
	CurrentStatus enums.PickupStatus
	TargetStatus  enums.PickupStatus
}

// Decision is the outcome of CanPerform.
type Decision struct {
	Allowed bool
	Reason  DenyReason
}

// For builds a request for actor against a pickup owned by ownerID.
func For(actor Actor, action Action, ownerID uuid.UUID, current enums.PickupStatus) Request {
	return Request{
		Role:          actor.Role,
		ActorID:       actor.ID,
		OwnerID:       ownerID,
		Action:        action,
		CurrentStatus: current,
	}
}

func allow() Decision { return Decision{Allowed: true} }

func deny(reason DenyReason) Decision { return Decision{Reason: reason} }

// CanPerform applies the pickup access rules to req.
func CanPerform(req Request) Decision {
	if !req.Role.IsValid() {
		return deny(ReasonRole)
	}

	switch req.Action {
	case ActionCreate:
		if req.Role != enums.RoleStaff {
			return deny(ReasonRole)
		}
		return allow()

	case ActionReadOwn:
		return ownerOnly(req)

	case ActionUpdate, ActionDelete:
		if d := ownerOnly(req); !d.Allowed {
			return d
		}
		if !req.CurrentStatus.IsEditable() {
			return deny(ReasonStatus)
		}
		return allow()

	case ActionReadAny, ActionList:
		if !req.Role.IsReviewer() {
			return deny(ReasonRole)
		}
		return allow()

	case ActionReviewTransition:
		if !req.Role.IsReviewer() {
			return deny(ReasonRole)
		}
		// APPROVED is terminal; re-requesting it is a no-op, anything else leaves it.
		if req.CurrentStatus == enums.PickupStatusApproved && req.TargetStatus != enums.PickupStatusApproved {
			return deny(ReasonStatus)
		}
		return allow()
	}

	return deny(ReasonAction)
}

func ownerOnly(req Request) Decision {
	if req.Role != enums.RoleStaff {
		return deny(ReasonRole)
	}
	if req.ActorID == uuid.Nil || req.ActorID != req.OwnerID {
		return deny(ReasonOwnership)
	}
	return allow()
}
