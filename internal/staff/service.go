package staff

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vatavaran/vatavaran-backend/pkg/config"
	"github.com/vatavaran/vatavaran-backend/pkg/db"
	"github.com/vatavaran/vatavaran-backend/pkg/db/models"
	"github.com/vatavaran/vatavaran-backend/pkg/enums"
	pkgerrors "github.com/vatavaran/vatavaran-backend/pkg/errors"
	"github.com/vatavaran/vatavaran-backend/pkg/security"
)

const (
	minPasswordLength  = 6
	recentCreditsLimit = 10
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type creditHistory interface {
	History(ctx context.Context, staffID uuid.UUID, limit int) ([]models.RewardCredit, error)
}

// Service covers staff onboarding and profile reads.
type Service interface {
	Create(ctx context.Context, input CreateStaffInput) (*StaffDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*StaffDTO, error)
	Profile(ctx context.Context, id uuid.UUID) (*ProfileDTO, error)
	Authenticate(ctx context.Context, email, password string) (*models.Staff, error)
}

type service struct {
	repo        *Repository
	tx          txRunner
	credits     creditHistory
	passwordCfg config.PasswordConfig
}

// NewService builds the staff service.
func NewService(repo *Repository, tx txRunner, credits creditHistory, passwordCfg config.PasswordConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("staff repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if credits == nil {
		return nil, fmt.Errorf("credit history required")
	}
	return &service{
		repo:        repo,
		tx:          tx,
		credits:     credits,
		passwordCfg: passwordCfg,
	}, nil
}

// NormalizeEmail lowercases and trims an address for lookups and storage.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *service) Create(ctx context.Context, input CreateStaffInput) (*StaffDTO, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	email := NormalizeEmail(input.Email)
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	if len(input.Password) < minPasswordLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}
	if !input.Role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid role").
			WithDetails(map[string]any{"allowed": []enums.Role{enums.RoleStaff, enums.RoleSupervisor, enums.RoleAdmin}})
	}

	hash, err := security.HashPassword(input.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	var created *models.Staff
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.FindByEmail(ctx, email); err == nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check staff email")
		}

		member, err := repo.Create(ctx, &models.Staff{
			Name:         name,
			Email:        email,
			PasswordHash: hash,
			Role:         input.Role,
		})
		if err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create staff")
		}
		created = member
		return nil
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create staff")
	}
	return FromModel(created), nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*StaffDTO, error) {
	member, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return FromModel(member), nil
}

func (s *service) Profile(ctx context.Context, id uuid.UUID) (*ProfileDTO, error) {
	member, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	credits, err := s.credits.History(ctx, id, recentCreditsLimit)
	if err != nil {
		return nil, err
	}
	return &ProfileDTO{
		StaffDTO:      *FromModel(member),
		RecentCredits: creditsFromModels(credits),
	}, nil
}

// Authenticate resolves a staff member by credentials. Unknown emails and
// wrong passwords produce the same Unauthorized error.
func (s *service) Authenticate(ctx context.Context, email, password string) (*models.Staff, error) {
	normalized := NormalizeEmail(email)
	if normalized == "" || password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
	}
	member, err := s.repo.FindByEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup staff")
	}
	ok, err := security.VerifyPassword(password, member.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
	}
	s.upgradeHash(ctx, member, password)
	return member, nil
}

// upgradeHash re-hashes a verified password stored under outdated argon2
// costs. Failures leave the old hash in place.
func (s *service) upgradeHash(ctx context.Context, member *models.Staff, password string) {
	if !security.NeedsRehash(member.PasswordHash, s.passwordCfg) {
		return
	}
	hash, err := security.HashPassword(password, s.passwordCfg)
	if err != nil {
		return
	}
	if err := s.repo.UpdatePasswordHash(ctx, member.ID, hash); err == nil {
		member.PasswordHash = hash
	}
}

func (s *service) find(ctx context.Context, id uuid.UUID) (*models.Staff, error) {
	member, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "staff not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load staff")
	}
	return member, nil
}
