package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vatavaran/vatavaran-backend/pkg/config"
)

type memoryStore struct {
	mu     sync.Mutex
	data   map[string]string
	ttls   map[string]time.Duration
	setErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memoryStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = fmt.Sprint(value)
	m.ttls[key] = ttl
	return nil
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.data[key]
	if !ok {
		return "", goredis.Nil
	}
	return val, nil
}

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

func (m *memoryStore) AccessSessionKey(accessID string) string {
	return "sess:" + accessID
}

func testManager(t *testing.T, store Store) *Manager {
	t.Helper()
	manager, err := newManager(store, config.JWTConfig{ExpirationMinutes: 15, RefreshTokenDays: 7})
	require.NoError(t, err)
	return manager
}

func TestGenerateStoresDigestOnly(t *testing.T) {
	store := newMemoryStore()
	manager := testManager(t, store)

	token, err := manager.Generate(context.Background(), "jti-1")
	require.NoError(t, err)

	stored := store.data["sess:jti-1"]
	assert.NotEqual(t, token, stored)
	assert.Equal(t, digest(token), stored)
	assert.Equal(t, 7*24*time.Hour, store.ttls["sess:jti-1"])
}

func TestRotateIsSingleUse(t *testing.T) {
	store := newMemoryStore()
	manager := testManager(t, store)
	ctx := context.Background()

	token, err := manager.Generate(ctx, "jti-1")
	require.NoError(t, err)

	_, _, err = manager.Rotate(ctx, "jti-1", "wrong")
	require.ErrorIs(t, err, ErrInvalidRefreshToken)

	newID, newToken, err := manager.Rotate(ctx, "jti-1", token)
	require.NoError(t, err)
	assert.NotEqual(t, "jti-1", newID)
	assert.NotContains(t, store.data, "sess:jti-1")
	assert.Equal(t, digest(newToken), store.data["sess:"+newID])

	_, _, err = manager.Rotate(ctx, "jti-1", token)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestRotateSurfacesStoreFailure(t *testing.T) {
	store := newMemoryStore()
	manager := testManager(t, store)
	ctx := context.Background()

	token, err := manager.Generate(ctx, "jti-1")
	require.NoError(t, err)

	store.setErr = errors.New("redis down")
	_, _, err = manager.Rotate(ctx, "jti-1", token)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidRefreshToken)
	assert.NotContains(t, store.data, "sess:jti-1")
}

func TestRevokeEndsSession(t *testing.T) {
	store := newMemoryStore()
	manager := testManager(t, store)
	ctx := context.Background()

	_, err := manager.Generate(ctx, "jti-1")
	require.NoError(t, err)

	ok, err := manager.HasSession(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, manager.Revoke(ctx, "jti-1"))
	ok, err = manager.HasSession(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = manager.Generate(ctx, " ")
	assert.Error(t, err)
	assert.Error(t, manager.Revoke(ctx, ""))
}

func TestNewManagerValidatesTTL(t *testing.T) {
	_, err := NewManager(nil, config.JWTConfig{})
	assert.Error(t, err)

	store := newMemoryStore()
	_, err = newManager(store, config.JWTConfig{ExpirationMinutes: 60})
	assert.Error(t, err, "zero refresh ttl")

	_, err = newManager(store, config.JWTConfig{ExpirationMinutes: 60 * 24 * 30, RefreshTokenDays: 7})
	assert.Error(t, err, "refresh ttl shorter than access ttl")
}
