package pickups

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/vatavaran/vatavaran-backend/internal/authz"
	"github.com/vatavaran/vatavaran-backend/internal/ledger"
	"github.com/vatavaran/vatavaran-backend/pkg/db"
	"github.com/vatavaran/vatavaran-backend/pkg/db/models"
	"github.com/vatavaran/vatavaran-backend/pkg/enums"
	pkgerrors "github.com/vatavaran/vatavaran-backend/pkg/errors"
	"github.com/vatavaran/vatavaran-backend/pkg/outbox"
	"github.com/vatavaran/vatavaran-backend/pkg/pagination"
)

type ledgerFunc func(ctx context.Context, tx *gorm.DB, input ledger.CreditInput) (int64, error)

func (f ledgerFunc) Credit(ctx context.Context, tx *gorm.DB, input ledger.CreditInput) (int64, error) {
	return f(ctx, tx, input)
}

type lifecycleFixture struct {
	conn       *gorm.DB
	svc        Service
	ledger     ledger.Service
	staffA     authz.Actor
	staffB     authz.Actor
	supervisor authz.Actor
	admin      authz.Actor
}

func newLifecycleFixture(t *testing.T, override rewardLedger) *lifecycleFixture {
	t.Helper()
	conn := setupPickupsTestDB(t)
	txRunner := db.NewFromDB(conn)

	ledgerSvc, err := ledger.NewService(ledger.NewRepository(conn), txRunner)
	require.NoError(t, err)

	var credit rewardLedger = ledgerSvc
	if override != nil {
		credit = override
	}
	svc, err := NewService(NewRepository(conn), txRunner, credit, outbox.NewService(outbox.NewRepository(conn), nil), nil, nil)
	require.NoError(t, err)

	f := &lifecycleFixture{conn: conn, svc: svc, ledger: ledgerSvc}
	f.staffA = seedActor(t, conn, enums.RoleStaff)
	f.staffB = seedActor(t, conn, enums.RoleStaff)
	f.supervisor = seedActor(t, conn, enums.RoleSupervisor)
	f.admin = seedActor(t, conn, enums.RoleAdmin)
	return f
}

func seedActor(t *testing.T, conn *gorm.DB, role enums.Role) authz.Actor {
	t.Helper()
	staff := models.Staff{
		Name:         string(role),
		Email:        uuid.NewString() + "@vatavaran.test",
		PasswordHash: "hash",
		Role:         role,
	}
	require.NoError(t, conn.Create(&staff).Error)
	return authz.Actor{ID: staff.ID, Role: role}
}

func (f *lifecycleFixture) create(t *testing.T, owner authz.Actor, category string, weight float64) *PickupDTO {
	t.Helper()
	p, err := f.svc.Create(context.Background(), owner, CreatePickupRequest{
		Category:  category,
		WeightKg:  weight,
		Latitude:  floatPtr(28.61),
		Longitude: floatPtr(77.20),
	})
	require.NoError(t, err)
	return p
}

func (f *lifecycleFixture) balance(t *testing.T, actor authz.Actor) int64 {
	t.Helper()
	b, err := f.ledger.Balance(context.Background(), actor.ID)
	require.NoError(t, err)
	return b
}

func (f *lifecycleFixture) countEvents(t *testing.T, eventType enums.OutboxEventType) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.conn.Model(&models.OutboxEvent{}).Where("event_type = ?", eventType).Count(&n).Error)
	return n
}

func assertCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, code, pkgerrors.CodeOf(err), "error: %v", err)
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	conn := setupPickupsTestDB(t)
	repo := NewRepository(conn)
	tx := db.NewFromDB(conn)
	credit := ledgerFunc(func(context.Context, *gorm.DB, ledger.CreditInput) (int64, error) { return 0, nil })
	emitter := outbox.NewService(outbox.NewRepository(conn), nil)

	_, err := NewService(nil, tx, credit, emitter, nil, nil)
	assert.Error(t, err)
	_, err = NewService(repo, nil, credit, emitter, nil, nil)
	assert.Error(t, err)
	_, err = NewService(repo, tx, nil, emitter, nil, nil)
	assert.Error(t, err)
	_, err = NewService(repo, tx, credit, nil, nil, nil)
	assert.Error(t, err)
}

func TestCreatePickupStartsPending(t *testing.T) {
	f := newLifecycleFixture(t, nil)

	p := f.create(t, f.staffA, "PLASTIC", 2.0)
	assert.Equal(t, enums.PickupStatusPending, p.Status)
	assert.InDelta(t, 3.4, p.CO2Saved, 1e-9)
	assert.Equal(t, f.staffA.ID, p.OwnerID)
	assert.Equal(t, int64(1), f.countEvents(t, enums.EventPickupCreated))
}

func TestCreatePickupNormalizesCategory(t *testing.T) {
	f := newLifecycleFixture(t, nil)

	assert.Equal(t, enums.WasteCategoryOther, f.create(t, f.staffA, "banana peels", 1).Category)
	assert.Equal(t, enums.WasteCategoryEWaste, f.create(t, f.staffA, "ewaste", 1).Category)
}

func TestCreatePickupRejections(t *testing.T) {
	f := newLifecycleFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, f.supervisor, CreatePickupRequest{Category: "PAPER", WeightKg: 1, Latitude: floatPtr(1), Longitude: floatPtr(1)})
	assertCode(t, err, pkgerrors.CodeForbidden)

	_, err = f.svc.Create(ctx, f.staffA, CreatePickupRequest{Category: "PAPER", WeightKg: 0, Latitude: floatPtr(1), Longitude: floatPtr(1)})
	assertCode(t, err, pkgerrors.CodeValidation)

	for _, w := range []float64{math.NaN(), math.Inf(1)} {
		_, err = f.svc.Create(ctx, f.staffA, CreatePickupRequest{Category: "PAPER", WeightKg: w, Latitude: floatPtr(1), Longitude: floatPtr(1)})
		assertCode(t, err, pkgerrors.CodeValidation)
	}

	_, err = f.svc.Create(ctx, f.staffA, CreatePickupRequest{Category: "PAPER", WeightKg: 1, Latitude: floatPtr(math.NaN()), Longitude: floatPtr(1)})
	assertCode(t, err, pkgerrors.CodeValidation)

	_, err = f.svc.Create(ctx, f.staffA, CreatePickupRequest{Category: "PAPER", WeightKg: 1})
	assertCode(t, err, pkgerrors.CodeValidation)

	_, err = f.svc.Create(ctx, f.staffA, CreatePickupRequest{Category: " ", WeightKg: 1, Latitude: floatPtr(1), Longitude: floatPtr(1)})
	assertCode(t, err, pkgerrors.CodeValidation)

	_, err = f.svc.Create(ctx, f.staffA, CreatePickupRequest{Category: "PAPER", WeightKg: 1, Latitude: floatPtr(91), Longitude: floatPtr(1)})
	assertCode(t, err, pkgerrors.CodeValidation)

	assert.Equal(t, int64(0), f.countEvents(t, enums.EventPickupCreated))
}

func TestApproveCreditsOnce(t *testing.T) {
	f := newLifecycleFixture(t, nil)
	ctx := context.Background()
	p := f.create(t, f.staffA, "PLASTIC", 2.0)

	res, err := f.svc.Review(ctx, f.supervisor, p.ID, enums.PickupStatusApproved)
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, enums.PickupStatusApproved, res.Pickup.Status)
	assert.Equal(t, int64(20), res.PointsAwarded)
	require.NotNil(t, res.Balance)
	assert.Equal(t, int64(20), *res.Balance)
	require.NotNil(t, res.Pickup.ReviewedBy)
	assert.Equal(t, f.supervisor.ID, *res.Pickup.ReviewedBy)

	again, err := f.svc.Review(ctx, f.admin, p.ID, enums.PickupStatusApproved)
	require.NoError(t, err)
	assert.False(t, again.Changed)
	assert.Nil(t, again.Balance)
	assert.Equal(t, enums.PickupStatusApproved, again.Pickup.Status)

	assert.Equal(t, int64(20), f.balance(t, f.staffA))
	assert.Equal(t, int64(1), f.countEvents(t, enums.EventPickupReviewed))
	assert.Equal(t, int64(1), f.countEvents(t, enums.EventRewardCredited))
}

func TestConcurrentApprovalsCreditOnce(t *testing.T) {
	f := newLifecycleFixture(t, nil)
	p := f.create(t, f.staffA, "PLASTIC", 2.0)

	const reviewers = 6
	var wg sync.WaitGroup
	changed := make(chan bool, reviewers)
	for i := 0; i < reviewers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := f.svc.Review(context.Background(), f.supervisor, p.ID, enums.PickupStatusApproved)
			if err != nil {
				t.Errorf("review failed: %v", err)
				return
			}
			changed <- res.Changed
		}()
	}
	wg.Wait()
	close(changed)

	applied := 0
	for c := range changed {
		if c {
			applied++
		}
	}
	assert.Equal(t, 1, applied)
	assert.Equal(t, int64(20), f.balance(t, f.staffA))
}

func TestApprovalsAcrossPickupsAccumulate(t *testing.T) {
	f := newLifecycleFixture(t, nil)
	ctx := context.Background()

	first := f.create(t, f.staffA, "PLASTIC", 2.0)
	second := f.create(t, f.staffA, "E-WASTE", 1.5)
	rejectedFirst := f.create(t, f.staffA, "METAL", 1.0)

	_, err := f.svc.Review(ctx, f.supervisor, first.ID, enums.PickupStatusApproved)
	require.NoError(t, err)
	_, err = f.svc.Review(ctx, f.supervisor, rejectedFirst.ID, enums.PickupStatusRejected)
	require.NoError(t, err)
	res, err := f.svc.Review(ctx, f.supervisor, second.ID, enums.PickupStatusApproved)
	require.NoError(t, err)
	assert.Equal(t, int64(23), res.PointsAwarded)

	_, err = f.svc.Review(ctx, f.supervisor, rejectedFirst.ID, enums.PickupStatusApproved)
	require.NoError(t, err)

	assert.Equal(t, int64(20+23+8), f.balance(t, f.staffA))
	assert.Equal(t, int64(0), f.balance(t, f.staffB))
}

func TestRejectNeverTouchesLedger(t *testing.T) {
	calls := 0
	credit := ledgerFunc(func(context.Context, *gorm.DB, ledger.CreditInput) (int64, error) {
		calls++
		return 0, nil
	})
	f := newLifecycleFixture(t, credit)
	p := f.create(t, f.staffA, "GLASS", 4)

	res, err := f.svc.Review(context.Background(), f.supervisor, p.ID, enums.PickupStatusRejected)
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, enums.PickupStatusRejected, res.Pickup.Status)
	assert.Nil(t, res.Balance)
	assert.Equal(t, 0, calls)
}

func TestApprovedIsTerminalForReview(t *testing.T) {
	f := newLifecycleFixture(t, nil)
	ctx := context.Background()
	p := f.create(t, f.staffA, "PLASTIC", 2.0)

	_, err := f.svc.Review(ctx, f.supervisor, p.ID, enums.PickupStatusApproved)
	require.NoError(t, err)

	_, err = f.svc.Review(ctx, f.supervisor, p.ID, enums.PickupStatusRejected)
	assertCode(t, err, pkgerrors.CodeStateConflict)

	got, err := f.svc.Get(ctx, f.supervisor, p.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PickupStatusApproved, got.Status)
	assert.Equal(t, int64(20), f.balance(t, f.staffA))
}

func TestReviewRejections(t *testing.T) {
	f := newLifecycleFixture(t, nil)
	ctx := context.Background()
	p := f.create(t, f.staffA, "PAPER", 1)

	_, err := f.svc.Review(ctx, f.staffA, p.ID, enums.PickupStatusApproved)
	assertCode(t, err, pkgerrors.CodeForbidden)

	_, err = f.svc.Review(ctx, f.supervisor, p.ID, enums.PickupStatusPending)
	assertCode(t, err, pkgerrors.CodeValidation)

	_, err = f.svc.Review(ctx, f.supervisor, uuid.New(), enums.PickupStatusApproved)
	assertCode(t, err, pkgerrors.CodeNotFound)

	assert.Equal(t, int64(0), f.balance(t, f.staffA))
}

func TestReviewRollsBackWhenCreditFails(t *testing.T) {
	credit := ledgerFunc(func(context.Context, *gorm.DB, ledger.CreditInput) (int64, error) {
		return 0, errors.New("deadlock detected")
	})
	f := newLifecycleFixture(t, credit)
	ctx := context.Background()
	p := f.create(t, f.staffA, "PLASTIC", 2.0)

	_, err := f.svc.Review(ctx, f.supervisor, p.ID, enums.PickupStatusApproved)
	assertCode(t, err, pkgerrors.CodeTransaction)
	assert.True(t, pkgerrors.MetadataFor(pkgerrors.CodeOf(err)).Retryable)

	got, err := f.svc.Get(ctx, f.staffA, p.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PickupStatusPending, got.Status)
	assert.Nil(t, got.ReviewedBy)
	assert.Equal(t, int64(0), f.countEvents(t, enums.EventPickupReviewed))
}

func TestReviewRollsBackWhenContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	credit := ledgerFunc(func(context.Context, *gorm.DB, ledger.CreditInput) (int64, error) {
		cancel()
		return 20, nil
	})
	f := newLifecycleFixture(t, credit)
	p := f.create(t, f.staffA, "PLASTIC", 2.0)

	_, err := f.svc.Review(ctx, f.supervisor, p.ID, enums.PickupStatusApproved)
	assertCode(t, err, pkgerrors.CodeInternal)
	assert.True(t, errors.Is(err, context.Canceled))

	got, err := f.svc.Get(context.Background(), f.staffA, p.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PickupStatusPending, got.Status)
}

func TestReviewOfMissingOwnerFailsAtomically(t *testing.T) {
	f := newLifecycleFixture(t, nil)
	ctx := context.Background()
	p := f.create(t, f.staffA, "PLASTIC", 2.0)
	require.NoError(t, f.conn.Exec("DELETE FROM staff WHERE id = ?", f.staffA.ID).Error)

	_, err := f.svc.Review(ctx, f.supervisor, p.ID, enums.PickupStatusApproved)
	assertCode(t, err, pkgerrors.CodeNotFound)

	got, err := f.svc.Get(ctx, f.supervisor, p.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PickupStatusPending, got.Status)
}

func TestEditRejectedReturnsToPending(t *testing.T) {
	f := newLifecycleFixture(t, nil)
	ctx := context.Background()
	p := f.create(t, f.staffA, "PLASTIC", 2.0)

	_, err := f.svc.Review(ctx, f.supervisor, p.ID, enums.PickupStatusRejected)
	require.NoError(t, err)

	weight := 3.0
	edited, err := f.svc.Edit(ctx, f.staffA, p.ID, EditPickupRequest{WeightKg: &weight})
	require.NoError(t, err)
	assert.Equal(t, enums.PickupStatusPending, edited.Status)
	assert.InDelta(t, 5.1, edited.CO2Saved, 1e-9)
	assert.Equal(t, 3.0, edited.WeightKg)
}

func TestEditPendingKeepsStatusAndNormalizesCategory(t *testing.T) {
	f := newLifecycleFixture(t, nil)
	p := f.create(t, f.staffA, "PLASTIC", 2.0)

	category := "green"
	edited, err := f.svc.Edit(context.Background(), f.staffA, p.ID, EditPickupRequest{Category: &category})
	require.NoError(t, err)
	assert.Equal(t, enums.PickupStatusPending, edited.Status)
	assert.Equal(t, enums.WasteCategoryOrganic, edited.Category)
	assert.InDelta(t, 0.6, edited.CO2Saved, 1e-9)
}

func TestEditAndDeleteApprovedConflict(t *testing.T) {
	f := newLifecycleFixture(t, nil)
	ctx := context.Background()
	p := f.create(t, f.staffA, "PLASTIC", 2.0)
	_, err := f.svc.Review(ctx, f.supervisor, p.ID, enums.PickupStatusApproved)
	require.NoError(t, err)

	weight := 9.0
	_, err = f.svc.Edit(ctx, f.staffA, p.ID, EditPickupRequest{WeightKg: &weight})
	assertCode(t, err, pkgerrors.CodeConflict)

	err = f.svc.Delete(ctx, f.staffA, p.ID)
	assertCode(t, err, pkgerrors.CodeConflict)

	got, err := f.svc.Get(ctx, f.staffA, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 2.0, got.WeightKg)
}

func TestStrangerIsForbidden(t *testing.T) {
	f := newLifecycleFixture(t, nil)
	ctx := context.Background()
	p := f.create(t, f.staffB, "PAPER", 1)

	_, err := f.svc.Get(ctx, f.staffA, p.ID)
	assertCode(t, err, pkgerrors.CodeForbidden)

	weight := 2.0
	_, err = f.svc.Edit(ctx, f.staffA, p.ID, EditPickupRequest{WeightKg: &weight})
	assertCode(t, err, pkgerrors.CodeForbidden)

	err = f.svc.Delete(ctx, f.staffA, p.ID)
	assertCode(t, err, pkgerrors.CodeForbidden)

	_, err = f.svc.Edit(ctx, f.supervisor, p.ID, EditPickupRequest{WeightKg: &weight})
	assertCode(t, err, pkgerrors.CodeForbidden)

	got, err := f.svc.Get(ctx, f.supervisor, p.ID)
	require.NoError(t, err)
	assert.Equal(t, f.staffB.ID, got.OwnerID)
}

func TestEditValidation(t *testing.T) {
	f := newLifecycleFixture(t, nil)
	ctx := context.Background()
	p := f.create(t, f.staffA, "PAPER", 1)

	_, err := f.svc.Edit(ctx, f.staffA, p.ID, EditPickupRequest{})
	assertCode(t, err, pkgerrors.CodeValidation)

	negative := -2.0
	_, err = f.svc.Edit(ctx, f.staffA, p.ID, EditPickupRequest{WeightKg: &negative})
	assertCode(t, err, pkgerrors.CodeValidation)

	_, err = f.svc.Edit(ctx, f.staffA, p.ID, EditPickupRequest{WeightKg: floatPtr(math.NaN())})
	assertCode(t, err, pkgerrors.CodeValidation)

	_, err = f.svc.Edit(ctx, f.staffA, p.ID, EditPickupRequest{WeightKg: floatPtr(math.Inf(1))})
	assertCode(t, err, pkgerrors.CodeValidation)

	weight := 2.0
	_, err = f.svc.Edit(ctx, f.staffA, uuid.New(), EditPickupRequest{WeightKg: &weight})
	assertCode(t, err, pkgerrors.CodeNotFound)
}

func TestDeleteOwnPickup(t *testing.T) {
	f := newLifecycleFixture(t, nil)
	ctx := context.Background()
	p := f.create(t, f.staffA, "PAPER", 1)

	require.NoError(t, f.svc.Delete(ctx, f.staffA, p.ID))
	_, err := f.svc.Get(ctx, f.staffA, p.ID)
	assertCode(t, err, pkgerrors.CodeNotFound)

	err = f.svc.Delete(ctx, f.staffA, p.ID)
	assertCode(t, err, pkgerrors.CodeNotFound)
}

func TestListScopesStaffToOwnPickups(t *testing.T) {
	f := newLifecycleFixture(t, nil)
	ctx := context.Background()
	f.create(t, f.staffA, "PAPER", 1)
	f.create(t, f.staffA, "METAL", 2)
	f.create(t, f.staffB, "GLASS", 3)

	other := f.staffB.ID
	res, err := f.svc.List(ctx, f.staffA, ListQuery{StaffID: &other})
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Pagination.Total)
	for _, item := range res.Items {
		assert.Equal(t, f.staffA.ID, item.OwnerID)
	}

	res, err = f.svc.List(ctx, f.supervisor, ListQuery{StaffID: &other})
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Pagination.Total)

	res, err = f.svc.List(ctx, f.admin, ListQuery{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.Pagination.Total)
	assert.Equal(t, 1, res.Pagination.Page)
	assert.Equal(t, pagination.DefaultPageSize, res.Pagination.PageSize)

	_, err = f.svc.List(ctx, authz.Actor{ID: uuid.New(), Role: "JANITOR"}, ListQuery{})
	assertCode(t, err, pkgerrors.CodeForbidden)
}

func TestListAllApprovedPaging(t *testing.T) {
	f := newLifecycleFixture(t, nil)
	ctx := context.Background()

	for i := 0; i < 11; i++ {
		p := f.create(t, f.staffA, "DRY", 1)
		_, err := f.svc.Review(ctx, f.supervisor, p.ID, enums.PickupStatusApproved)
		require.NoError(t, err)
	}
	f.create(t, f.staffA, "DRY", 1)

	approved := enums.PickupStatusApproved
	res, err := f.svc.List(ctx, f.supervisor, ListQuery{
		Status: &approved,
		Page:   pagination.Params{Page: 1, PageSize: 10},
	})
	require.NoError(t, err)
	assert.Len(t, res.Items, 10)
	assert.Equal(t, int64(11), res.Pagination.Total)
	assert.Equal(t, 2, res.Pagination.Pages)
	assert.Equal(t, int64(33), f.balance(t, f.staffA))
}

func TestListValidation(t *testing.T) {
	f := newLifecycleFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.List(ctx, f.supervisor, ListQuery{Sort: Sort{Field: "password_hash"}})
	assertCode(t, err, pkgerrors.CodeValidation)
}
