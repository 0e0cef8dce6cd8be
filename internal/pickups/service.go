package pickups

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vatavaran/vatavaran-backend/internal/authz"
	"github.com/vatavaran/vatavaran-backend/internal/ledger"
	"github.com/vatavaran/vatavaran-backend/internal/rewards"
	"github.com/vatavaran/vatavaran-backend/pkg/enums"
	pkgerrors "github.com/vatavaran/vatavaran-backend/pkg/errors"
	"github.com/vatavaran/vatavaran-backend/pkg/logger"
	"github.com/vatavaran/vatavaran-backend/pkg/metrics"
	"github.com/vatavaran/vatavaran-backend/pkg/outbox"
	"github.com/vatavaran/vatavaran-backend/pkg/outbox/payloads"
	"github.com/vatavaran/vatavaran-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type rewardLedger interface {
	Credit(ctx context.Context, tx *gorm.DB, input ledger.CreditInput) (int64, error)
}

// Service is the pickup lifecycle: every read and mutation of a pickup goes
// through it so authorization, status rules and reward crediting stay in one place.
type Service interface {
	Create(ctx context.Context, actor authz.Actor, req CreatePickupRequest) (*PickupDTO, error)
	Get(ctx context.Context, actor authz.Actor, id uuid.UUID) (*PickupDTO, error)
	List(ctx context.Context, actor authz.Actor, query ListQuery) (*ListResult, error)
	Edit(ctx context.Context, actor authz.Actor, id uuid.UUID, req EditPickupRequest) (*PickupDTO, error)
	Delete(ctx context.Context, actor authz.Actor, id uuid.UUID) error
	Review(ctx context.Context, actor authz.Actor, id uuid.UUID, target enums.PickupStatus) (*ReviewResult, error)
}

type service struct {
	repo    Repository
	tx      txRunner
	ledger  rewardLedger
	outbox  outboxPublisher
	metrics *metrics.PickupMetrics
	logg    *logger.Logger
	now     func() time.Time
}

// NewService wires the lifecycle. pm and logg may be nil.
func NewService(repo Repository, tx txRunner, ledger rewardLedger, outbox outboxPublisher, pm *metrics.PickupMetrics, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("pickups repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("reward ledger required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		repo:    repo,
		tx:      tx,
		ledger:  ledger,
		outbox:  outbox,
		metrics: pm,
		logg:    logg,
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Create(ctx context.Context, actor authz.Actor, req CreatePickupRequest) (*PickupDTO, error) {
	decision := authz.CanPerform(authz.Request{Role: actor.Role, ActorID: actor.ID, Action: authz.ActionCreate})
	if !decision.Allowed {
		return nil, denied(decision, "only staff may submit pickups")
	}

	category := enums.NormalizeWasteCategory(req.Category)
	if err := validateLocation(req.Latitude, req.Longitude, true); err != nil {
		return nil, err
	}

	var created *PickupDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		pickup, err := s.repo.WithTx(tx).Create(ctx, CreatePickupInput{
			OwnerID:   actor.ID,
			Category:  category,
			WeightKg:  req.WeightKg,
			Latitude:  req.Latitude,
			Longitude: req.Longitude,
			ImageURL:  req.ImageURL,
		})
		if err != nil {
			return err
		}
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPickupCreated,
			AggregateType: enums.AggregatePickup,
			AggregateID:   pickup.ID,
			Actor:         actorRef(actor),
			Data: payloads.PickupCreatedEvent{
				PickupID: pickup.ID,
				OwnerID:  pickup.OwnerID,
				Category: pickup.Category,
				WeightKg: pickup.WeightKg,
				CO2Saved: pickup.CO2Saved,
			},
		}); err != nil {
			return err
		}
		created = FromModel(pickup)
		return nil
	})
	if err != nil {
		return nil, storeFailure(err, "create pickup")
	}

	s.metrics.IncCreated()
	logCtx := s.logg.WithPickupID(ctx, created.ID.String())
	s.logg.Info(logCtx, "pickup created")
	return created, nil
}

func (s *service) Get(ctx context.Context, actor authz.Actor, id uuid.UUID) (*PickupDTO, error) {
	pickup, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupFailure(err)
	}

	action := authz.ActionReadOwn
	if actor.Role.IsReviewer() {
		action = authz.ActionReadAny
	}
	decision := authz.CanPerform(authz.For(actor, action, pickup.OwnerID, pickup.Status))
	if !decision.Allowed {
		return nil, denied(decision, "pickup belongs to another staff member")
	}
	return FromModel(pickup), nil
}

func (s *service) List(ctx context.Context, actor authz.Actor, query ListQuery) (*ListResult, error) {
	filter := ListFilter{
		Status:   query.Status,
		Category: query.Category,
		OwnerID:  query.StaffID,
		From:     query.From,
		To:       query.To,
		Search:   query.Search,
	}

	switch {
	case actor.Role == enums.RoleStaff:
		if actor.ID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "staff identity missing")
		}
		owner := actor.ID
		filter.OwnerID = &owner
	default:
		decision := authz.CanPerform(authz.Request{Role: actor.Role, ActorID: actor.ID, Action: authz.ActionList})
		if !decision.Allowed {
			return nil, denied(decision, "not allowed to list pickups")
		}
	}

	if filter.From != nil && filter.To != nil && filter.From.After(*filter.To) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "startDate must not be after endDate")
	}
	if query.Sort.Field != "" {
		if _, ok := ParseSortField(string(query.Sort.Field)); !ok {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported sort field")
		}
	}

	page := query.Page.Normalize()
	rows, total, err := s.repo.List(ctx, ListParams{Filter: filter, Sort: query.Sort, Page: page})
	if err != nil {
		return nil, storeFailure(err, "list pickups")
	}

	items := make([]PickupDTO, 0, len(rows))
	for i := range rows {
		items = append(items, *FromModel(&rows[i]))
	}
	return &ListResult{Items: items, Pagination: pagination.NewPage(page, total)}, nil
}

func (s *service) Edit(ctx context.Context, actor authz.Actor, id uuid.UUID, req EditPickupRequest) (*PickupDTO, error) {
	if req.Category == nil && req.WeightKg == nil && req.Latitude == nil && req.Longitude == nil && req.ImageURL == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no fields to update")
	}
	if err := validateLocation(req.Latitude, req.Longitude, false); err != nil {
		return nil, err
	}

	var updated *PickupDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := repo.FindByIDForUpdate(ctx, id)
		if err != nil {
			return lookupFailure(err)
		}

		decision := authz.CanPerform(authz.For(actor, authz.ActionUpdate, current.OwnerID, current.Status))
		if !decision.Allowed {
			return denied(decision, "only the owner may edit this pickup")
		}

		fields := UpdatePickupFields{
			WeightKg:  req.WeightKg,
			Latitude:  req.Latitude,
			Longitude: req.Longitude,
			ImageURL:  req.ImageURL,
		}
		if req.Category != nil {
			category := enums.NormalizeWasteCategory(*req.Category)
			fields.Category = &category
		}
		if current.Status == enums.PickupStatusRejected {
			pending := enums.PickupStatusPending
			fields.Status = &pending
		}

		pickup, err := repo.Update(ctx, id, fields)
		if err != nil {
			return err
		}
		updated = FromModel(pickup)
		return nil
	})
	if err != nil {
		return nil, storeFailure(err, "edit pickup")
	}
	return updated, nil
}

func (s *service) Delete(ctx context.Context, actor authz.Actor, id uuid.UUID) error {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := repo.FindByIDForUpdate(ctx, id)
		if err != nil {
			return lookupFailure(err)
		}
		decision := authz.CanPerform(authz.For(actor, authz.ActionDelete, current.OwnerID, current.Status))
		if !decision.Allowed {
			return denied(decision, "only the owner may delete this pickup")
		}
		if err := repo.Delete(ctx, id); err != nil {
			return lookupFailure(err)
		}
		return nil
	})
	if err != nil {
		return storeFailure(err, "delete pickup")
	}

	logCtx := s.logg.WithPickupID(ctx, id.String())
	s.logg.Info(logCtx, "pickup deleted")
	return nil
}

// Review applies a reviewer's decision. The status change, the reward credit
// and both outbox events commit together or not at all.
func (s *service) Review(ctx context.Context, actor authz.Actor, id uuid.UUID, target enums.PickupStatus) (*ReviewResult, error) {
	if !target.IsReviewTarget() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "status must be APPROVED or REJECTED")
	}

	started := time.Now()
	result := &ReviewResult{}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := repo.FindByIDForUpdate(ctx, id)
		if err != nil {
			return lookupFailure(err)
		}

		req := authz.For(actor, authz.ActionReviewTransition, current.OwnerID, current.Status)
		req.TargetStatus = target
		if decision := authz.CanPerform(req); !decision.Allowed {
			return reviewDenied(decision, current.Status)
		}

		if current.Status == target {
			result.Pickup = FromModel(current)
			return nil
		}
		if !current.Status.CanTransitionTo(target) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("cannot move pickup from %s to %s", current.Status, target))
		}

		reviewedAt := s.now()
		// Guard on the observed status only; REJECTED -> APPROVED is legal too.
		ok, err := repo.TransitionStatus(ctx, id, []enums.PickupStatus{current.Status}, target, actor.ID, reviewedAt)
		if err != nil {
			return err
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeTransaction, "pickup status changed during review")
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPickupReviewed,
			AggregateType: enums.AggregatePickup,
			AggregateID:   id,
			Actor:         actorRef(actor),
			OccurredAt:    reviewedAt,
			Data: payloads.PickupReviewedEvent{
				PickupID:       id,
				OwnerID:        current.OwnerID,
				ReviewerID:     actor.ID,
				PreviousStatus: current.Status,
				Status:         target,
				ReviewedAt:     reviewedAt,
			},
		}); err != nil {
			return err
		}

		if target == enums.PickupStatusApproved {
			points := rewards.Points(current.Category, current.WeightKg)
			balance, err := s.ledger.Credit(ctx, tx, ledger.CreditInput{
				StaffID:  current.OwnerID,
				PickupID: id,
				Points:   points,
			})
			if err != nil {
				return err
			}
			if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventRewardCredited,
				AggregateType: enums.AggregateStaff,
				AggregateID:   current.OwnerID,
				Actor:         actorRef(actor),
				OccurredAt:    reviewedAt,
				Data: payloads.RewardCreditedEvent{
					PickupID:     id,
					StaffID:      current.OwnerID,
					Points:       points,
					BalanceAfter: balance,
				},
			}); err != nil {
				return err
			}
			result.PointsAwarded = points
			result.Balance = &balance
		}

		reviewed, err := repo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		result.Pickup = FromModel(reviewed)
		result.Changed = true
		return nil
	})
	if err != nil {
		err = reviewFailure(err)
		s.metrics.IncReviewFailure(string(pkgerrors.CodeOf(err)))
		return nil, err
	}

	logCtx := s.logg.WithFields(s.logg.WithPickupID(ctx, id.String()), map[string]any{
		"status":         result.Pickup.Status,
		"changed":        result.Changed,
		"points_awarded": result.PointsAwarded,
	})
	if result.Changed {
		s.metrics.ObserveReview(string(target), result.PointsAwarded, time.Since(started))
		s.logg.Info(logCtx, "pickup reviewed")
	} else {
		s.logg.Debug(logCtx, "pickup review was a no-op")
	}
	return result, nil
}

func validateLocation(lat, lon *float64, required bool) error {
	if required && (lat == nil || lon == nil) {
		return pkgerrors.New(pkgerrors.CodeValidation, "location is required")
	}
	if lat != nil && !(*lat >= -90 && *lat <= 90) {
		return pkgerrors.New(pkgerrors.CodeValidation, "latitude must be between -90 and 90")
	}
	if lon != nil && !(*lon >= -180 && *lon <= 180) {
		return pkgerrors.New(pkgerrors.CodeValidation, "longitude must be between -180 and 180")
	}
	return nil
}

func actorRef(actor authz.Actor) *outbox.ActorRef {
	return &outbox.ActorRef{StaffID: actor.ID, Role: string(actor.Role)}
}

func denied(decision authz.Decision, msg string) error {
	if decision.Reason == authz.ReasonStatus {
		return pkgerrors.New(pkgerrors.CodeConflict, "pickup is approved and can no longer be changed")
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, msg)
}

func reviewDenied(decision authz.Decision, current enums.PickupStatus) error {
	if decision.Reason == authz.ReasonStatus {
		return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("pickup is %s and cannot be reviewed again", current))
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "only supervisors or admins may review pickups")
}

func lookupFailure(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "pickup not found")
	}
	return err
}

// storeFailure keeps typed errors and hides storage detail behind a retryable
// internal error.
func storeFailure(err error, op string) error {
	if typed := pkgerrors.As(err); typed != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, op)
}

// reviewFailure reports anything that aborted the review transaction without
// a domain reason as a retryable transaction failure.
func reviewFailure(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "review timed out")
	}
	if typed := pkgerrors.As(err); typed != nil && typed.Code() != pkgerrors.CodeInternal {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeTransaction, err, "review not applied")
}
