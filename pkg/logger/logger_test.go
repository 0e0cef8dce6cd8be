package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestErrorCarriesContextFields(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "api", Level: zerolog.DebugLevel, Output: buf, Format: "json"})

	ctx := log.WithRequestID(context.Background(), "req-123")
	ctx = log.WithPickupID(ctx, "pickup-9")
	log.Error(ctx, "review failed", errors.New("ledger down"))

	entry := decodeLine(t, buf)
	assert.Equal(t, "api", entry["service"])
	assert.Equal(t, "req-123", entry["request_id"])
	assert.Equal(t, "pickup-9", entry["pickup_id"])
	assert.Equal(t, "ledger down", entry["error"])
	assert.Contains(t, entry, "stack")
}

func TestNewestFieldWins(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{Output: buf, Format: "json"})

	parent := log.WithField(context.Background(), "status", "PENDING")
	child := log.WithField(parent, "status", "APPROVED")
	log.Info(child, "transition")

	assert.Equal(t, "APPROVED", decodeLine(t, buf)["status"])

	buf.Reset()
	log.Info(parent, "unchanged")
	assert.Equal(t, "PENDING", decodeLine(t, buf)["status"])
}

func TestWarnStackToggle(t *testing.T) {
	buf := &bytes.Buffer{}
	New(Options{Output: buf, WarnStack: true, Format: "json"}).Warn(context.Background(), "slow")
	assert.Contains(t, decodeLine(t, buf), "stack")

	buf.Reset()
	New(Options{Output: buf, Format: "json"}).Warn(context.Background(), "slow")
	assert.NotContains(t, decodeLine(t, buf), "stack")
}

func TestLevelFiltersDebug(t *testing.T) {
	buf := &bytes.Buffer{}
	New(Options{Output: buf, Format: "json"}).Debug(context.Background(), "noise")
	assert.Zero(t, buf.Len())
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.InfoLevel, ParseLevel(""))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("invalid"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel(" WARN "))
}

func TestNopDiscards(t *testing.T) {
	log := Nop()
	assert.NotPanics(t, func() {
		log.Error(log.WithUserID(context.TODO(), "u1"), "ignored", nil)
	})
}
