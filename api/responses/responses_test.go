package responses

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/vatavaran/vatavaran-backend/pkg/errors"
	"github.com/vatavaran/vatavaran-backend/pkg/logger"
)

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorBody {
	t.Helper()
	var env ErrorEnvelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&env))
	return env.Error
}

func TestWriteSuccess(t *testing.T) {
	w := httptest.NewRecorder()
	WriteSuccessStatus(w, http.StatusCreated, map[string]string{"status": "PENDING"})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	assert.JSONEq(t, `{"data":{"status":"PENDING"}}`, w.Body.String())
}

func TestWriteErrorExposesClientErrors(t *testing.T) {
	w := httptest.NewRecorder()
	err := pkgerrors.New(pkgerrors.CodeValidation, "weightKg must be greater than zero").
		WithDetails(map[string]string{"weightKg": "must be greater than 0"})
	WriteError(context.Background(), logger.Nop(), w, err)

	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeError(t, w)
	assert.Equal(t, string(pkgerrors.CodeValidation), body.Code)
	assert.Equal(t, "weightKg must be greater than zero", body.Message)
	assert.Equal(t, map[string]any{"weightKg": "must be greater than 0"}, body.Details)
	assert.Empty(t, w.Header().Get("Retry-After"))
}

func TestWriteErrorHidesServerErrors(t *testing.T) {
	cases := map[string]struct {
		err     error
		status  int
		message string
	}{
		"untyped": {
			err:     errors.New(`pq: relation "pickups" does not exist`),
			status:  http.StatusInternalServerError,
			message: "internal server error",
		},
		"transaction": {
			err:     pkgerrors.Wrap(pkgerrors.CodeTransaction, errors.New("deadlock detected"), "reward credit failed"),
			status:  http.StatusServiceUnavailable,
			message: "operation not applied, safe to retry",
		},
		"nil": {
			err:     nil,
			status:  http.StatusInternalServerError,
			message: "internal server error",
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteError(context.Background(), nil, w, tc.err)

			assert.Equal(t, tc.status, w.Code)
			assert.Equal(t, tc.message, decodeError(t, w).Message)
			assert.Equal(t, "1", w.Header().Get("Retry-After"))
		})
	}
}

func TestWriteErrorKeepsExistingRetryAfter(t *testing.T) {
	w := httptest.NewRecorder()
	w.Header().Set("Retry-After", "30")
	WriteError(context.Background(), nil, w, pkgerrors.New(pkgerrors.CodeDependency, "redis unavailable"))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "30", w.Header().Get("Retry-After"))
}

func TestWriteErrorOmitsDetailsWhenNotAllowed(t *testing.T) {
	w := httptest.NewRecorder()
	err := pkgerrors.New(pkgerrors.CodeForbidden, "not your pickup").WithDetails(map[string]string{"ownerId": "x"})
	WriteError(context.Background(), nil, w, err)

	body := decodeError(t, w)
	assert.Equal(t, "not your pickup", body.Message)
	assert.Nil(t, body.Details)
}
