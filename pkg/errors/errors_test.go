package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataFor(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		retryable bool
		details   bool
	}{
		{CodeValidation, http.StatusBadRequest, false, true},
		{CodeUnauthorized, http.StatusUnauthorized, false, false},
		{CodeForbidden, http.StatusForbidden, false, false},
		{CodeNotFound, http.StatusNotFound, false, false},
		{CodeConflict, http.StatusConflict, false, false},
		{CodeStateConflict, http.StatusUnprocessableEntity, false, true},
		{CodeIdempotency, http.StatusConflict, false, true},
		{CodeRateLimit, http.StatusTooManyRequests, false, false},
		{CodeInternal, http.StatusInternalServerError, true, false},
		{CodeDependency, http.StatusServiceUnavailable, true, true},
		{CodeTransaction, http.StatusServiceUnavailable, true, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			meta := MetadataFor(tt.code)
			assert.Equal(t, tt.status, meta.HTTPStatus)
			assert.Equal(t, tt.retryable, meta.Retryable)
			assert.Equal(t, tt.details, meta.DetailsAllowed)
			assert.NotEmpty(t, meta.PublicMessage)
		})
	}

	assert.Equal(t, MetadataFor(CodeInternal), MetadataFor("SOMETHING_UNKNOWN"))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := stdErrors.New("connection reset")
	err := Wrap(CodeDependency, cause, "reward ledger").WithDetails(map[string]string{"store": "postgres"})

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "reward ledger", err.Message())
	assert.Equal(t, "DEPENDENCY_ERROR: reward ledger: connection reset", err.Error())
	assert.NotNil(t, err.Details())
}

func TestCodeOfAndIsCode(t *testing.T) {
	wrapped := fmt.Errorf("review: %w", Wrap(CodeTransaction, stdErrors.New("ledger down"), "reward credit failed"))

	assert.Equal(t, CodeTransaction, CodeOf(wrapped))
	assert.True(t, IsCode(wrapped, CodeTransaction))
	assert.False(t, IsCode(wrapped, CodeNotFound))
	assert.Equal(t, CodeInternal, CodeOf(stdErrors.New("plain")))
	assert.Nil(t, As(nil))
}

func TestNilErrorIsSafe(t *testing.T) {
	var e *Error
	assert.Equal(t, CodeInternal, e.Code())
	assert.Empty(t, e.Message())
	assert.Nil(t, e.WithDetails("x"))
	assert.NoError(t, e.Unwrap())
}

func TestDumpExtractsPostgresFields(t *testing.T) {
	pgx := &pgconn.PgError{Code: "23505", ConstraintName: "ux_reward_credits_pickup", TableName: "reward_credits"}
	d := Dump(Wrap(CodeConflict, fmt.Errorf("insert credit: %w", pgx), "already credited"))

	assert.Equal(t, CodeConflict, d.Code)
	assert.Equal(t, "23505", d.PGCode)
	assert.Equal(t, "ux_reward_credits_pickup", d.PGConstraint)
	assert.Equal(t, "reward_credits", d.PGTable)
	require.Len(t, d.Chain, 3)
	assert.Equal(t, "*errors.Error", d.Chain[0])

	pqd := Dump(&pq.Error{Code: "40001", Detail: "could not serialize access"})
	assert.Equal(t, "40001", pqd.PGCode)
	assert.Equal(t, "could not serialize access", pqd.PGDetail)

	assert.Equal(t, ErrorDump{}, Dump(nil))
}
