package controllers

import (
	"net/http"
	"strings"

	"github.com/vatavaran/vatavaran-backend/api/middleware"
	"github.com/vatavaran/vatavaran-backend/api/responses"
	"github.com/vatavaran/vatavaran-backend/api/validators"
	"github.com/vatavaran/vatavaran-backend/internal/authz"
	"github.com/vatavaran/vatavaran-backend/internal/pickups"
	"github.com/vatavaran/vatavaran-backend/pkg/enums"
	pkgerrors "github.com/vatavaran/vatavaran-backend/pkg/errors"
	"github.com/vatavaran/vatavaran-backend/pkg/logger"
	"github.com/vatavaran/vatavaran-backend/pkg/pagination"
)

type createPickupBody struct {
	Category  string   `json:"category" validate:"required"`
	WeightKg  float64  `json:"weightKg" validate:"gt=0"`
	Latitude  *float64 `json:"latitude" validate:"required"`
	Longitude *float64 `json:"longitude" validate:"required"`
	ImageURL  *string  `json:"imageUrl,omitempty" validate:"omitempty,url"`
}

type editPickupBody struct {
	Category  *string  `json:"category,omitempty"`
	WeightKg  *float64 `json:"weightKg,omitempty" validate:"omitempty,gt=0"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	ImageURL  *string  `json:"imageUrl,omitempty" validate:"omitempty,url"`
}

type reviewPickupBody struct {
	Status string `json:"status" validate:"required"`
}

func requireActor(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (authz.Actor, bool) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
		return authz.Actor{}, false
	}
	return actor, true
}

// PickupCreate handles POST /api/v1/pickups.
func PickupCreate(svc pickups.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}

		var body createPickupBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := svc.Create(r.Context(), actor, pickups.CreatePickupRequest{
			Category:  body.Category,
			WeightKg:  body.WeightKg,
			Latitude:  body.Latitude,
			Longitude: body.Longitude,
			ImageURL:  body.ImageURL,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

// PickupListMine handles GET /api/v1/pickups/my.
func PickupListMine(svc pickups.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		query, err := parseListQuery(r, false)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		query.StaffID = &actor.ID

		result, err := svc.List(r.Context(), actor, query)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// PickupListAll handles GET /api/v1/pickups for reviewers.
func PickupListAll(svc pickups.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		query, err := parseListQuery(r, true)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.List(r.Context(), actor, query)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// PickupGet handles GET /api/v1/pickups/{pickupId}.
func PickupGet(svc pickups.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		id, err := validators.PathUUID(r, "pickupId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		pickup, err := svc.Get(r.Context(), actor, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, pickup)
	}
}

// PickupEdit handles PUT /api/v1/pickups/{pickupId}.
func PickupEdit(svc pickups.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		id, err := validators.PathUUID(r, "pickupId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body editPickupBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.Edit(r.Context(), actor, id, pickups.EditPickupRequest{
			Category:  body.Category,
			WeightKg:  body.WeightKg,
			Latitude:  body.Latitude,
			Longitude: body.Longitude,
			ImageURL:  body.ImageURL,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, updated)
	}
}

// PickupDelete handles DELETE /api/v1/pickups/{pickupId}.
func PickupDelete(svc pickups.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		id, err := validators.PathUUID(r, "pickupId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), actor, id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"id": id, "deleted": true})
	}
}

// PickupReview handles PATCH /api/v1/pickups/{pickupId}/status.
func PickupReview(svc pickups.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		id, err := validators.PathUUID(r, "pickupId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body reviewPickupBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		target, err := enums.ParsePickupStatus(body.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "status must be APPROVED or REJECTED"))
			return
		}

		result, err := svc.Review(r.Context(), actor, id, target)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func parseListQuery(r *http.Request, reviewer bool) (pickups.ListQuery, error) {
	var query pickups.ListQuery

	page, err := validators.ParseQueryInt(r, "page", pagination.DefaultPage, 1, 1<<20)
	if err != nil {
		return query, err
	}
	sizeKey := "pageSize"
	if r.URL.Query().Get(sizeKey) == "" && r.URL.Query().Get("limit") != "" {
		sizeKey = "limit"
	}
	size, err := validators.ParseQueryInt(r, sizeKey, pagination.DefaultPageSize, 1, pagination.MaxPageSize)
	if err != nil {
		return query, err
	}
	query.Page = pagination.Params{Page: page, PageSize: size}

	field, ok := pickups.ParseSortField(r.URL.Query().Get("sortBy"))
	if !ok {
		return query, pkgerrors.New(pkgerrors.CodeValidation, "unsupported sortBy").WithDetails(map[string]any{"field": "sortBy"})
	}
	orderKey := "order"
	if r.URL.Query().Get(orderKey) == "" {
		orderKey = "sortOrder"
	}
	asc, err := validators.ParseSortOrder(r, orderKey)
	if err != nil {
		return query, err
	}
	query.Sort = pickups.Sort{Field: field, Asc: asc}

	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status, err := enums.ParsePickupStatus(raw)
		if err != nil {
			return query, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
		}
		query.Status = &status
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("category")); raw != "" {
		category, err := enums.ParseWasteCategory(raw)
		if err != nil {
			return query, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid category filter")
		}
		query.Category = &category
	}

	if !reviewer {
		return query, nil
	}

	if query.StaffID, err = validators.ParseQueryUUID(r, "staffId"); err != nil {
		return query, err
	}
	if query.From, err = validators.ParseQueryTime(r, "startDate", false); err != nil {
		return query, err
	}
	if query.To, err = validators.ParseQueryTime(r, "endDate", true); err != nil {
		return query, err
	}
	query.Search = validators.SanitizeString(r.URL.Query().Get("search"), 64)
	return query, nil
}
