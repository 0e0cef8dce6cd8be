package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vatavaran/vatavaran-backend/internal/staff"
	pkgAuth "github.com/vatavaran/vatavaran-backend/pkg/auth"
	"github.com/vatavaran/vatavaran-backend/pkg/auth/session"
	"github.com/vatavaran/vatavaran-backend/pkg/config"
	"github.com/vatavaran/vatavaran-backend/pkg/db/models"
	"github.com/vatavaran/vatavaran-backend/pkg/enums"
	pkgerrors "github.com/vatavaran/vatavaran-backend/pkg/errors"
)

var testJWT = config.JWTConfig{Secret: "secret", Issuer: "vatavaran", ExpirationMinutes: 60}

type stubStaff struct {
	createFn       func(ctx context.Context, input staff.CreateStaffInput) (*staff.StaffDTO, error)
	authenticateFn func(ctx context.Context, email, password string) (*models.Staff, error)
}

func (s stubStaff) Create(ctx context.Context, input staff.CreateStaffInput) (*staff.StaffDTO, error) {
	return s.createFn(ctx, input)
}

func (s stubStaff) Authenticate(ctx context.Context, email, password string) (*models.Staff, error) {
	return s.authenticateFn(ctx, email, password)
}

type stubSessions struct {
	generated []string
	err       error

	rotatedFrom string
	rotateErr   error
	revoked     []string
}

func (s *stubSessions) Generate(_ context.Context, accessID string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.generated = append(s.generated, accessID)
	return "refresh-" + accessID, nil
}

func (s *stubSessions) Rotate(_ context.Context, oldAccessID, provided string) (string, string, error) {
	s.rotatedFrom = oldAccessID
	if s.rotateErr != nil {
		return "", "", s.rotateErr
	}
	return "next-jti", "next-" + provided, nil
}

func (s *stubSessions) Revoke(_ context.Context, accessID string) error {
	if s.err != nil {
		return s.err
	}
	s.revoked = append(s.revoked, accessID)
	return nil
}

func presentedToken(t *testing.T, cfg config.JWTConfig, staffID uuid.UUID, role enums.Role, issuedAt time.Time) (string, string) {
	t.Helper()
	jti := session.NewAccessID()
	token, err := pkgAuth.MintAccessToken(cfg, issuedAt, pkgAuth.AccessTokenPayload{StaffID: staffID, Role: role, JTI: jti})
	require.NoError(t, err)
	return token, jti
}

func sessionOnlyService(t *testing.T, sessions *stubSessions) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{Staff: stubStaff{}, SessionManager: sessions, JWTConfig: testJWT})
	require.NoError(t, err)
	return svc
}

func TestSignupAlwaysCreatesStaffRole(t *testing.T) {
	var gotInput staff.CreateStaffInput
	sessions := &stubSessions{}
	svc, err := NewService(ServiceParams{
		Staff: stubStaff{createFn: func(_ context.Context, input staff.CreateStaffInput) (*staff.StaffDTO, error) {
			gotInput = input
			return &staff.StaffDTO{ID: uuid.New(), Email: input.Email, Role: input.Role}, nil
		}},
		SessionManager: sessions,
		JWTConfig:      testJWT,
	})
	require.NoError(t, err)

	resp, err := svc.Signup(context.Background(), SignupRequest{Name: "Asha", Email: "asha@example.com", Password: "secret-pass"})
	require.NoError(t, err)
	assert.Equal(t, enums.RoleStaff, gotInput.Role)
	require.Len(t, sessions.generated, 1)
	assert.Equal(t, "refresh-"+sessions.generated[0], resp.RefreshToken)

	claims, err := pkgAuth.ParseAccessToken(testJWT, resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, resp.Staff.ID, claims.StaffID)
	assert.Equal(t, enums.RoleStaff, claims.Role)
	assert.Equal(t, sessions.generated[0], claims.ID)
}

func TestSignupPropagatesConflict(t *testing.T) {
	svc, err := NewService(ServiceParams{
		Staff: stubStaff{createFn: func(context.Context, staff.CreateStaffInput) (*staff.StaffDTO, error) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		}},
		SessionManager: &stubSessions{},
		JWTConfig:      testJWT,
	})
	require.NoError(t, err)

	_, err = svc.Signup(context.Background(), SignupRequest{Name: "A", Email: "a@example.com", Password: "secret-pass"})
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.CodeOf(err))
}

func TestLoginMintsRoleFromStaffRecord(t *testing.T) {
	supervisor := &models.Staff{ID: uuid.New(), Email: "sup@example.com", Role: enums.RoleSupervisor, RewardPoints: 40}
	fixed := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	svc, err := NewService(ServiceParams{
		Staff: stubStaff{authenticateFn: func(_ context.Context, email, password string) (*models.Staff, error) {
			if email == supervisor.Email && password == "pw" {
				return supervisor, nil
			}
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
		}},
		SessionManager: &stubSessions{},
		JWTConfig:      testJWT,
		Now:            func() time.Time { return fixed },
	})
	require.NoError(t, err)

	resp, err := svc.Login(context.Background(), LoginRequest{Email: supervisor.Email, Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, int64(40), resp.Staff.RewardPoints)

	claims, err := pkgAuth.ParseAccessTokenAllowExpired(testJWT, resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, enums.RoleSupervisor, claims.Role)
	assert.True(t, claims.IssuedAt.Time.Equal(fixed))

	_, err = svc.Login(context.Background(), LoginRequest{Email: supervisor.Email, Password: "nope"})
	assert.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.CodeOf(err))
}

func TestLoginSessionStoreFailure(t *testing.T) {
	member := &models.Staff{ID: uuid.New(), Role: enums.RoleStaff}
	svc, err := NewService(ServiceParams{
		Staff: stubStaff{authenticateFn: func(context.Context, string, string) (*models.Staff, error) {
			return member, nil
		}},
		SessionManager: &stubSessions{err: errors.New("redis down")},
		JWTConfig:      testJWT,
	})
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), LoginRequest{Email: "x@example.com", Password: "pw"})
	assert.Equal(t, pkgerrors.CodeInternal, pkgerrors.CodeOf(err))
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(ServiceParams{SessionManager: &stubSessions{}})
	assert.Error(t, err)
	_, err = NewService(ServiceParams{Staff: stubStaff{}})
	assert.Error(t, err)
}

func TestRefreshAcceptsExpiredAccessToken(t *testing.T) {
	sessions := &stubSessions{}
	svc := sessionOnlyService(t, sessions)
	staffID := uuid.New()
	token, jti := presentedToken(t, testJWT, staffID, enums.RoleSupervisor, time.Now().Add(-3*time.Hour))

	pair, err := svc.Refresh(context.Background(), token, "old-refresh")
	require.NoError(t, err)
	assert.Equal(t, jti, sessions.rotatedFrom)
	assert.Equal(t, "next-old-refresh", pair.RefreshToken)

	claims, err := pkgAuth.ParseAccessToken(testJWT, pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, staffID, claims.StaffID)
	assert.Equal(t, enums.RoleSupervisor, claims.Role)
	assert.Equal(t, "next-jti", claims.ID)
}

func TestRefreshFailures(t *testing.T) {
	foreign := testJWT
	foreign.Secret = "someone-else"
	forged, _ := presentedToken(t, foreign, uuid.New(), enums.RoleAdmin, time.Now())
	valid, _ := presentedToken(t, testJWT, uuid.New(), enums.RoleStaff, time.Now())

	cases := map[string]struct {
		token     string
		rotateErr error
		want      pkgerrors.Code
	}{
		"forged signature":  {token: forged, want: pkgerrors.CodeUnauthorized},
		"garbage token":     {token: "not-a-jwt", want: pkgerrors.CodeUnauthorized},
		"stale refresh":     {token: valid, rotateErr: session.ErrInvalidRefreshToken, want: pkgerrors.CodeUnauthorized},
		"store unavailable": {token: valid, rotateErr: errors.New("redis down"), want: pkgerrors.CodeDependency},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			sessions := &stubSessions{rotateErr: tc.rotateErr}
			_, err := sessionOnlyService(t, sessions).Refresh(context.Background(), tc.token, "refresh")
			assert.Equal(t, tc.want, pkgerrors.CodeOf(err))
			if tc.token == forged {
				assert.Empty(t, sessions.rotatedFrom)
			}
		})
	}
}

func TestLogoutRevokesPresentedSession(t *testing.T) {
	sessions := &stubSessions{}
	token, jti := presentedToken(t, testJWT, uuid.New(), enums.RoleStaff, time.Now().Add(-2*time.Hour))

	require.NoError(t, sessionOnlyService(t, sessions).Logout(context.Background(), token))
	assert.Equal(t, []string{jti}, sessions.revoked)

	err := sessionOnlyService(t, &stubSessions{err: errors.New("redis down")}).Logout(context.Background(), token)
	assert.Equal(t, pkgerrors.CodeDependency, pkgerrors.CodeOf(err))
	assert.True(t, pkgerrors.MetadataFor(pkgerrors.CodeOf(err)).Retryable)
}
