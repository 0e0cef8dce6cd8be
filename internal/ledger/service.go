package ledger

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vatavaran/vatavaran-backend/pkg/db"
	"github.com/vatavaran/vatavaran-backend/pkg/db/models"
	pkgerrors "github.com/vatavaran/vatavaran-backend/pkg/errors"
)

const defaultHistoryLimit = 50

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// CreditInput describes a single reward credit. PickupID ties the credit to
// the approval that produced it.
type CreditInput struct {
	StaffID  uuid.UUID
	PickupID uuid.UUID
	Points   int64
}

// Service exposes the staff reward ledger.
type Service interface {
	// Credit adds points to the staff balance and returns the new balance.
	// When tx is nil the credit runs in its own transaction.
	Credit(ctx context.Context, tx *gorm.DB, input CreditInput) (int64, error)
	Balance(ctx context.Context, staffID uuid.UUID) (int64, error)
	History(ctx context.Context, staffID uuid.UUID, limit int) ([]models.RewardCredit, error)
}

type service struct {
	repo Repository
	tx   txRunner
}

// NewService wires the ledger service.
func NewService(repo Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, errors.New("ledger repository required")
	}
	if tx == nil {
		return nil, errors.New("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

func (s *service) Credit(ctx context.Context, tx *gorm.DB, input CreditInput) (int64, error) {
	if input.StaffID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "staff id is required")
	}
	if input.PickupID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "pickup id is required")
	}
	if input.Points < 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "points must not be negative")
	}

	if tx != nil {
		return s.credit(ctx, s.repo.WithTx(tx), input)
	}

	var balance int64
	err := s.tx.WithTx(ctx, func(inner *gorm.DB) error {
		var err error
		balance, err = s.credit(ctx, s.repo.WithTx(inner), input)
		return err
	})
	return balance, err
}

func (s *service) credit(ctx context.Context, repo Repository, input CreditInput) (int64, error) {
	// A failed insert aborts a postgres transaction, so refuse a repeat credit
	// before touching the balance. The unique index still backs this up.
	if _, err := repo.FindCreditByPickup(ctx, input.PickupID); err == nil {
		return 0, pkgerrors.New(pkgerrors.CodeConflict, "pickup already credited")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check reward credit")
	}

	affected, err := repo.IncrementPoints(ctx, input.StaffID, input.Points)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "increment reward points")
	}
	if affected == 0 {
		return 0, pkgerrors.New(pkgerrors.CodeNotFound, "staff not found")
	}

	balance, err := repo.Balance(ctx, input.StaffID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "read reward balance")
	}

	credit := &models.RewardCredit{
		PickupID:     input.PickupID,
		StaffID:      input.StaffID,
		Points:       input.Points,
		BalanceAfter: balance,
	}
	if err := repo.InsertCredit(ctx, credit); err != nil {
		if db.IsUniqueViolation(err, "") {
			return 0, pkgerrors.New(pkgerrors.CodeConflict, "pickup already credited")
		}
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record reward credit")
	}
	return balance, nil
}

func (s *service) Balance(ctx context.Context, staffID uuid.UUID) (int64, error) {
	balance, err := s.repo.Balance(ctx, staffID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, pkgerrors.New(pkgerrors.CodeNotFound, "staff not found")
		}
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "read reward balance")
	}
	return balance, nil
}

func (s *service) History(ctx context.Context, staffID uuid.UUID, limit int) ([]models.RewardCredit, error) {
	if limit <= 0 || limit > defaultHistoryLimit {
		limit = defaultHistoryLimit
	}
	credits, err := s.repo.ListCredits(ctx, staffID, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list reward credits")
	}
	return credits, nil
}
