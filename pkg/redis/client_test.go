package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vatavaran/vatavaran-backend/pkg/config"
)

type fakeCommands struct {
	counts    map[string]int64
	expiries  map[string]time.Duration
	incrErr   error
	deleted   []string
	expireNXs int
}

func newFakeCommands() *fakeCommands {
	return &fakeCommands{counts: map[string]int64{}, expiries: map[string]time.Duration{}}
}

func (f *fakeCommands) Ping(ctx context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (f *fakeCommands) Set(ctx context.Context, key string, value any, ttl time.Duration) *redis.StatusCmd {
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeCommands) Get(ctx context.Context, key string) *redis.StringCmd {
	return redis.NewStringResult("", redis.Nil)
}

func (f *fakeCommands) SetNX(ctx context.Context, key string, value any, ttl time.Duration) *redis.BoolCmd {
	return redis.NewBoolResult(true, nil)
}

func (f *fakeCommands) Incr(ctx context.Context, key string) *redis.IntCmd {
	if f.incrErr != nil {
		return redis.NewIntResult(0, f.incrErr)
	}
	f.counts[key]++
	return redis.NewIntResult(f.counts[key], nil)
}

func (f *fakeCommands) ExpireNX(ctx context.Context, key string, ttl time.Duration) *redis.BoolCmd {
	f.expireNXs++
	if _, ok := f.expiries[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	f.expiries[key] = ttl
	return redis.NewBoolResult(true, nil)
}

func (f *fakeCommands) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	f.deleted = append(f.deleted, keys...)
	return redis.NewIntResult(int64(len(keys)), nil)
}

func TestIncrWithTTLKeepsFirstExpiry(t *testing.T) {
	cmd := newFakeCommands()
	client := &Client{Keyspace: NewKeyspace(""), cmd: cmd}
	key := client.RateLimitKey("login:ip:10.0.0.1")

	first, err := client.IncrWithTTL(context.Background(), key, time.Minute)
	require.NoError(t, err)
	second, err := client.IncrWithTTL(context.Background(), key, time.Hour)
	require.NoError(t, err)

	assert.Equal(t, int64(1), first)
	assert.Equal(t, int64(2), second)
	assert.Equal(t, time.Minute, cmd.expiries[key])
	assert.Equal(t, 2, cmd.expireNXs)
}

func TestIncrWithTTLSurfacesIncrError(t *testing.T) {
	cmd := newFakeCommands()
	cmd.incrErr = errors.New("connection refused")
	client := &Client{Keyspace: NewKeyspace(""), cmd: cmd}

	_, err := client.IncrWithTTL(context.Background(), "k", time.Minute)
	require.Error(t, err)
	assert.Zero(t, cmd.expireNXs)
}

func TestDelSkipsEmptyKeyList(t *testing.T) {
	cmd := newFakeCommands()
	client := &Client{cmd: cmd}

	require.NoError(t, client.Del(context.Background()))
	require.NoError(t, client.Del(context.Background(), "a", "b"))
	assert.Equal(t, []string{"a", "b"}, cmd.deleted)
}

func TestZeroClientReturnsNotInitialized(t *testing.T) {
	var client *Client
	assert.ErrorIs(t, client.Ping(context.Background()), ErrNotInitialized)
	_, err := client.Get(context.Background(), "k")
	assert.ErrorIs(t, err, ErrNotInitialized)
	assert.NoError(t, client.Close())
}

func TestKeyspace(t *testing.T) {
	ks := NewKeyspace("")
	assert.Equal(t, "vt:idempotency:pickups:abc", ks.IdempotencyKey("pickups", "abc"))
	assert.Equal(t, "vt:rate_limit:signup:ip:1.2.3.4", ks.RateLimitKey("signup:ip:1.2.3.4"))
	assert.Equal(t, "vt:session:access:jti", ks.AccessSessionKey("jti"))
	assert.Equal(t, "vt:classify:deadbeef", ks.ClassificationKey("deadbeef"))
	assert.Equal(t, "vt:idempotency:scope", ks.IdempotencyKey("scope", " "))

	custom := NewKeyspace(" staging: ")
	assert.Equal(t, "staging:classify:ff", custom.ClassificationKey("ff"))
}

func TestOptionsFromConfig(t *testing.T) {
	opts, err := optionsFromConfig(config.RedisConfig{
		URL:         "redis://:secret@cache:6380/2",
		PoolSize:    20,
		DialTimeout: 2 * time.Second,
	})
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, 20, opts.PoolSize)

	_, err = optionsFromConfig(config.RedisConfig{})
	assert.Error(t, err)

	_, err = optionsFromConfig(config.RedisConfig{URL: "://bad"})
	assert.Error(t, err)
}
