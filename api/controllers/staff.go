package controllers

import (
	"net/http"

	"github.com/vatavaran/vatavaran-backend/api/responses"
	"github.com/vatavaran/vatavaran-backend/api/validators"
	"github.com/vatavaran/vatavaran-backend/internal/staff"
	"github.com/vatavaran/vatavaran-backend/pkg/enums"
	pkgerrors "github.com/vatavaran/vatavaran-backend/pkg/errors"
	"github.com/vatavaran/vatavaran-backend/pkg/logger"
)

// StaffMe returns the caller's profile, balance and recent credits.
func StaffMe(svc staff.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}

		profile, err := svc.Profile(r.Context(), actor.ID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, profile)
	}
}

// AdminCreateStaff lets an ADMIN onboard a member with any role.
func AdminCreateStaff(svc staff.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body staff.CreateStaffRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		role, err := enums.ParseRole(body.Role)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "role must be STAFF, SUPERVISOR or ADMIN").
				WithDetails(map[string]any{"field": "role"}))
			return
		}

		created, err := svc.Create(r.Context(), staff.CreateStaffInput{
			Name:     validators.SanitizeString(body.Name, maxNameLength),
			Email:    body.Email,
			Password: body.Password,
			Role:     role,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}
