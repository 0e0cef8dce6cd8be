package auth

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/vatavaran/vatavaran-backend/pkg/enums"
)

// AccessTokenPayload is what the login, signup and refresh flows know when minting.
type AccessTokenPayload struct {
	StaffID uuid.UUID
	Role    enums.Role
	JTI     string
}

// AccessTokenClaims is the body of a staff access token. The jti doubles as
// the session key in Redis.
type AccessTokenClaims struct {
	StaffID uuid.UUID  `json:"staff_id"`
	Role    enums.Role `json:"role"`
	jwt.RegisteredClaims
}

// Validate runs after the registered-claim checks in jwt.Parser.
func (c AccessTokenClaims) Validate() error {
	switch {
	case c.StaffID == uuid.Nil:
		return errors.New("token has no staff_id")
	case c.Subject != c.StaffID.String():
		return errors.New("token subject does not match staff_id")
	case !c.Role.IsValid():
		return errors.New("token carries an unknown role")
	case c.ID == "":
		return errors.New("token has no jti")
	}
	return nil
}
