package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/crewctl/internal/backend/redis"
	"github.com/tombee/crewctl/internal/operation"
	"github.com/tombee/crewctl/internal/operation/storetest"
	"github.com/tombee/crewctl/internal/operation/transport"
)

func newStore(t *testing.T, opts ...redis.Option) (*redis.Store, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return redis.NewFromClient(client, operation.DefaultRegistry(), opts...), mr
}

func TestRedisStore_Contract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) operation.Store {
		store, _ := newStore(t)
		return store
	})
}

func TestRedisStore_KeysAndPrefix(t *testing.T) {
	store, mr := newStore(t, redis.WithPrefix("test:"))
	ctx := context.Background()

	require.NoError(t, store.SetInput(ctx, operation.Sentiment, "text", "hello"))

	assert.True(t, mr.Exists("test:sentiment"))
	assert.False(t, mr.Exists(redis.DefaultPrefix+"sentiment"))

	raw, err := mr.Get("test:sentiment")
	require.NoError(t, err)
	assert.Contains(t, raw, `"text":"hello"`)
}

func TestRedisStore_TTL(t *testing.T) {
	store, mr := newStore(t, redis.WithTTL(time.Minute))
	ctx := context.Background()

	_, err := store.Begin(ctx, operation.Analyze, "r1")
	require.NoError(t, err)
	assert.Equal(t, time.Minute, mr.TTL(redis.DefaultPrefix+"analyze"))

	mr.FastForward(2 * time.Minute)

	st, err := store.Get(ctx, operation.Analyze)
	require.NoError(t, err)
	assert.Equal(t, operation.StatusIdle, st.Status, "expired state reads as idle")
}

func TestRedisStore_SharedBetweenInstances(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	open := func() *redis.Store {
		client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = client.Close() })
		return redis.NewFromClient(client, operation.DefaultRegistry())
	}
	a, b := open(), open()

	_, err := a.Begin(ctx, operation.Recommend, "r1")
	require.NoError(t, err)
	require.NoError(t, b.SetResult(ctx, operation.Recommend, "r1", map[string]any{"item": "book"}))

	st, err := a.Get(ctx, operation.Recommend)
	require.NoError(t, err)
	assert.Equal(t, operation.StatusSucceeded, st.Status)
	assert.Equal(t, map[string]any{"item": "book"}, st.Result)
}

func TestRedisStore_DecodeFillsMissingFields(t *testing.T) {
	store, mr := newStore(t)
	ctx := context.Background()

	require.NoError(t, mr.Set(redis.DefaultPrefix+"generate-content", `{"operation":"generate-content","input":{"topic":"space"},"status":"idle"}`))

	st, err := store.Get(ctx, operation.GenerateContent)
	require.NoError(t, err)
	assert.Equal(t, operation.Input{"topic": "space", "content_type": ""}, st.Input)
}

func TestRedisStore_CorruptDocument(t *testing.T) {
	store, mr := newStore(t)
	ctx := context.Background()

	require.NoError(t, mr.Set(redis.DefaultPrefix+"analyze", "not json"))

	_, err := store.Get(ctx, operation.Analyze)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to unmarshal state for analyze")

	_, err = store.List(ctx)
	assert.Error(t, err)
}

func TestRedisStore_Ping(t *testing.T) {
	store, mr := newStore(t)
	require.NoError(t, store.Ping(context.Background()))

	mr.Close()
	err := store.Ping(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to reach redis")
}

type cancellingTransport struct {
	cancel context.CancelFunc
}

func (c cancellingTransport) Send(ctx context.Context, path string, body map[string]any) (any, error) {
	c.cancel()
	return nil, &transport.TransportError{Type: transport.ErrorTypeCancelled, Message: "request cancelled", Cause: ctx.Err()}
}

func TestRedisStore_CancelledInvocationEndsFailed(t *testing.T) {
	store, _ := newStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	invoker := operation.NewInvoker(operation.DefaultRegistry(), store, cancellingTransport{cancel: cancel})
	require.NoError(t, invoker.Invoke(ctx, operation.Analyze))

	st, err := store.Get(context.Background(), operation.Analyze)
	require.NoError(t, err)
	assert.Equal(t, operation.StatusFailed, st.Status)
	assert.Equal(t, "Error analyzing data", st.Error)
}
