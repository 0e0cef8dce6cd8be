package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vatavaran/vatavaran-backend/pkg/config"
	"github.com/vatavaran/vatavaran-backend/pkg/enums"
)

func testJWTConfig(minutes int) config.JWTConfig {
	return config.JWTConfig{Secret: "secret", Issuer: "vatavaran", ExpirationMinutes: minutes}
}

func TestMintAndParseAccessToken(t *testing.T) {
	cfg := testJWTConfig(30)
	now := time.Now().UTC().Truncate(time.Second)
	staffID := uuid.New()

	token, err := MintAccessToken(cfg, now, AccessTokenPayload{StaffID: staffID, Role: enums.RoleSupervisor, JTI: "session-1"})
	require.NoError(t, err)

	claims, err := ParseAccessToken(cfg, token)
	require.NoError(t, err)
	assert.Equal(t, staffID, claims.StaffID)
	assert.Equal(t, enums.RoleSupervisor, claims.Role)
	assert.Equal(t, "session-1", claims.ID)
	assert.Equal(t, staffID.String(), claims.Subject)
	assert.Equal(t, "vatavaran", claims.Issuer)
	assert.WithinDuration(t, now.Add(30*time.Minute), claims.ExpiresAt.Time, time.Second)
}

func TestMintAccessTokenGeneratesJTI(t *testing.T) {
	cfg := testJWTConfig(10)
	token, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{StaffID: uuid.New(), Role: enums.RoleStaff})
	require.NoError(t, err)

	claims, err := ParseAccessToken(cfg, token)
	require.NoError(t, err)
	_, err = uuid.Parse(claims.ID)
	assert.NoError(t, err)
}

func TestParseAccessTokenRejectsTampering(t *testing.T) {
	cfg := testJWTConfig(10)
	token, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{StaffID: uuid.New(), Role: enums.RoleAdmin})
	require.NoError(t, err)

	_, err = ParseAccessToken(cfg, token+"x")
	assert.Error(t, err)

	rotated := cfg
	rotated.Secret = "rotated"
	_, err = ParseAccessToken(rotated, token)
	assert.Error(t, err)

	otherIssuer := cfg
	otherIssuer.Issuer = "someone-else"
	_, err = ParseAccessToken(otherIssuer, token)
	assert.ErrorIs(t, err, jwt.ErrTokenInvalidIssuer)
	_, err = ParseAccessTokenAllowExpired(otherIssuer, token)
	assert.ErrorIs(t, err, jwt.ErrTokenInvalidIssuer)
}

func TestParseAccessTokenRejectsForeignAlgorithm(t *testing.T) {
	cfg := testJWTConfig(10)
	staffID := uuid.New()
	claims := AccessTokenClaims{
		StaffID: staffID,
		Role:    enums.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ID: "x", Issuer: cfg.Issuer, Subject: staffID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(cfg.Secret))
	require.NoError(t, err)

	_, err = ParseAccessToken(cfg, token)
	assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)
}

func TestExpiredTokenStillReadableForRefresh(t *testing.T) {
	cfg := testJWTConfig(15)
	token, err := MintAccessToken(cfg, time.Now().Add(-time.Hour), AccessTokenPayload{
		StaffID: uuid.New(),
		Role:    enums.RoleStaff,
		JTI:     "expired-session",
	})
	require.NoError(t, err)

	_, err = ParseAccessToken(cfg, token)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	claims, err := ParseAccessTokenAllowExpired(cfg, token)
	require.NoError(t, err)
	assert.Equal(t, "expired-session", claims.ID)
}

func TestMintAccessTokenRejectsBadPayload(t *testing.T) {
	cfg := testJWTConfig(5)
	now := time.Now()

	_, err := MintAccessToken(cfg, now, AccessTokenPayload{StaffID: uuid.New()})
	assert.Error(t, err, "missing role")
	_, err = MintAccessToken(cfg, now, AccessTokenPayload{Role: enums.RoleStaff})
	assert.Error(t, err, "missing staff id")
	_, err = MintAccessToken(config.JWTConfig{Issuer: "x", ExpirationMinutes: 5}, now, AccessTokenPayload{StaffID: uuid.New(), Role: enums.RoleStaff})
	assert.ErrorIs(t, err, errNoSecret)
}

func TestClaimsValidate(t *testing.T) {
	id := uuid.New()
	valid := AccessTokenClaims{StaffID: id, Role: enums.RoleStaff, RegisteredClaims: jwt.RegisteredClaims{ID: "j", Subject: id.String()}}
	assert.NoError(t, valid.Validate())

	mismatched := valid
	mismatched.Subject = uuid.NewString()
	assert.Error(t, mismatched.Validate())

	noJTI := valid
	noJTI.ID = ""
	assert.Error(t, noJTI.Validate())
}
