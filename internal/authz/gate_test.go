package authz

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/vatavaran/vatavaran-backend/pkg/enums"
)

var (
	allRoles    = []enums.Role{enums.RoleStaff, enums.RoleSupervisor, enums.RoleAdmin}
	allStatuses = []enums.PickupStatus{enums.PickupStatusPending, enums.PickupStatusApproved, enums.PickupStatusRejected}
)

func TestCreateRequiresStaff(t *testing.T) {
	for _, role := range allRoles {
		d := CanPerform(Request{Role: role, ActorID: uuid.New(), Action: ActionCreate})
		assert.Equal(t, role == enums.RoleStaff, d.Allowed, role)
		if !d.Allowed {
			assert.Equal(t, ReasonRole, d.Reason)
		}
	}
}

func TestOwnerActionsExhaustive(t *testing.T) {
	owner := uuid.New()
	stranger := uuid.New()

	for _, action := range []Action{ActionReadOwn, ActionUpdate, ActionDelete} {
		for _, role := range allRoles {
			for _, actor := range []uuid.UUID{owner, stranger} {
				for _, status := range allStatuses {
					d := CanPerform(Request{
						Role:          role,
						ActorID:       actor,
						OwnerID:       owner,
						Action:        action,
						CurrentStatus: status,
					})

					var want DenyReason
					switch {
					case role != enums.RoleStaff:
						want = ReasonRole
					case actor != owner:
						want = ReasonOwnership
					case action != ActionReadOwn && status == enums.PickupStatusApproved:
						want = ReasonStatus
					}

					assert.Equal(t, want == ReasonNone, d.Allowed, "%s %s owner=%v %s", action, role, actor == owner, status)
					assert.Equal(t, want, d.Reason, "%s %s owner=%v %s", action, role, actor == owner, status)
				}
			}
		}
	}
}

func TestReviewerActions(t *testing.T) {
	for _, action := range []Action{ActionReadAny, ActionList} {
		for _, role := range allRoles {
			d := CanPerform(Request{Role: role, ActorID: uuid.New(), Action: action})
			assert.Equal(t, role.IsReviewer(), d.Allowed, "%s %s", action, role)
		}
	}
}

func TestReviewTransitionTable(t *testing.T) {
	targets := []enums.PickupStatus{enums.PickupStatusApproved, enums.PickupStatusRejected}
	for _, role := range allRoles {
		for _, current := range allStatuses {
			for _, target := range targets {
				d := CanPerform(Request{
					Role:          role,
					ActorID:       uuid.New(),
					OwnerID:       uuid.New(),
					Action:        ActionReviewTransition,
					CurrentStatus: current,
					TargetStatus:  target,
				})
				switch {
				case !role.IsReviewer():
					assert.False(t, d.Allowed)
					assert.Equal(t, ReasonRole, d.Reason)
				case current == enums.PickupStatusApproved && target == enums.PickupStatusRejected:
					assert.False(t, d.Allowed)
					assert.Equal(t, ReasonStatus, d.Reason)
				default:
					assert.True(t, d.Allowed, "%s %s -> %s", role, current, target)
				}
			}
		}
	}
}

func TestSupervisorCannotEditEvenAsOwner(t *testing.T) {
	id := uuid.New()
	d := CanPerform(Request{Role: enums.RoleSupervisor, ActorID: id, OwnerID: id, Action: ActionUpdate, CurrentStatus: enums.PickupStatusPending})
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonRole, d.Reason)
}

func TestUnknownRoleOrActionDenied(t *testing.T) {
	assert.Equal(t, ReasonRole, CanPerform(Request{Role: "GUEST", Action: ActionCreate}).Reason)
	assert.Equal(t, ReasonAction, CanPerform(Request{Role: enums.RoleAdmin, Action: "purge"}).Reason)
}

func TestNilActorNeverOwns(t *testing.T) {
	d := CanPerform(Request{Role: enums.RoleStaff, Action: ActionReadOwn})
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonOwnership, d.Reason)
}

func TestForCopiesActor(t *testing.T) {
	actor := Actor{ID: uuid.New(), Role: enums.RoleStaff}
	req := For(actor, ActionUpdate, actor.ID, enums.PickupStatusRejected)
	if !CanPerform(req).Allowed {
		t.Fatalf("owner should edit a rejected pickup: %+v", req)
	}
}
