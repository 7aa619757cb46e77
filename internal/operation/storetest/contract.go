// Package storetest provides a behavioural test suite shared by every
// operation.Store implementation.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/crewctl/internal/operation"
)

// Factory returns a fresh store backed by the default registry.
type Factory func(t *testing.T) operation.Store

// Run exercises the Store contract against stores created by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	t.Run("initial state", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		states, err := store.List(ctx)
		require.NoError(t, err)
		require.Len(t, states, 4)

		names := operation.DefaultRegistry().Names()
		for i, st := range states {
			assert.Equal(t, names[i], st.Operation)
			assert.Equal(t, operation.StatusIdle, st.Status)
			assert.Nil(t, st.Result)
			assert.Empty(t, st.Error)
		}

		gen, err := store.Get(ctx, operation.GenerateContent)
		require.NoError(t, err)
		assert.Equal(t, operation.Input{"topic": "", "content_type": ""}, gen.Input)
	})

	t.Run("unknown operation", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		_, err := store.Get(ctx, "translate")
		assert.ErrorIs(t, err, operation.ErrUnknownOperation)

		_, err = store.Begin(ctx, "translate", "r1")
		assert.ErrorIs(t, err, operation.ErrUnknownOperation)

		err = store.SetInput(ctx, "translate", "text", "x")
		assert.ErrorIs(t, err, operation.ErrUnknownOperation)
	})

	t.Run("set input", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		require.NoError(t, store.SetInput(ctx, operation.Sentiment, "text", "I love this"))

		st, err := store.Get(ctx, operation.Sentiment)
		require.NoError(t, err)
		assert.Equal(t, "I love this", st.Input["text"])
		assert.Equal(t, operation.StatusIdle, st.Status)

		err = store.SetInput(ctx, operation.Sentiment, "data", "x")
		require.Error(t, err)
	})

	t.Run("snapshot is a copy", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		st, err := store.Get(ctx, operation.Analyze)
		require.NoError(t, err)
		st.Input["data"] = "mutated"

		again, err := store.Get(ctx, operation.Analyze)
		require.NoError(t, err)
		assert.Equal(t, "", again.Input["data"])
	})

	t.Run("begin then result", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		require.NoError(t, store.SetInput(ctx, operation.Analyze, "data", "1,2,3"))

		snap, err := store.Begin(ctx, operation.Analyze, "r1")
		require.NoError(t, err)
		assert.Equal(t, operation.StatusPending, snap.Status)
		assert.Equal(t, "1,2,3", snap.Input["data"])
		assert.Equal(t, "r1", snap.RequestID)

		result := map[string]any{"mean": 2.0}
		require.NoError(t, store.SetResult(ctx, operation.Analyze, "r1", result))

		st, err := store.Get(ctx, operation.Analyze)
		require.NoError(t, err)
		assert.Equal(t, operation.StatusSucceeded, st.Status)
		assert.Equal(t, result, st.Result)
		assert.Empty(t, st.Error)
	})

	t.Run("begin then error", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		_, err := store.Begin(ctx, operation.Recommend, "r1")
		require.NoError(t, err)
		require.NoError(t, store.SetError(ctx, operation.Recommend, "r1", "Error getting recommendation"))

		st, err := store.Get(ctx, operation.Recommend)
		require.NoError(t, err)
		assert.Equal(t, operation.StatusFailed, st.Status)
		assert.Equal(t, "Error getting recommendation", st.Error)
		assert.Nil(t, st.Result)
	})

	t.Run("begin clears previous outcome", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		_, err := store.Begin(ctx, operation.Sentiment, "r1")
		require.NoError(t, err)
		require.NoError(t, store.SetResult(ctx, operation.Sentiment, "r1", "old"))

		snap, err := store.Begin(ctx, operation.Sentiment, "r2")
		require.NoError(t, err)
		assert.Equal(t, operation.StatusPending, snap.Status)
		assert.Nil(t, snap.Result)
		assert.Empty(t, snap.Error)

		require.NoError(t, store.SetError(ctx, operation.Sentiment, "r2", "Error analyzing sentiment"))
		snap, err = store.Begin(ctx, operation.Sentiment, "r3")
		require.NoError(t, err)
		assert.Empty(t, snap.Error)
		assert.Nil(t, snap.Result)
	})

	t.Run("stale completion is discarded", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		_, err := store.Begin(ctx, operation.Analyze, "first")
		require.NoError(t, err)
		_, err = store.Begin(ctx, operation.Analyze, "second")
		require.NoError(t, err)

		err = store.SetResult(ctx, operation.Analyze, "first", "late")
		assert.ErrorIs(t, err, operation.ErrStaleRequest)
		err = store.SetError(ctx, operation.Analyze, "first", "Error analyzing data")
		assert.ErrorIs(t, err, operation.ErrStaleRequest)

		st, err := store.Get(ctx, operation.Analyze)
		require.NoError(t, err)
		assert.Equal(t, operation.StatusPending, st.Status)
		assert.Equal(t, "second", st.RequestID)

		require.NoError(t, store.SetResult(ctx, operation.Analyze, "second", "fresh"))
		st, err = store.Get(ctx, operation.Analyze)
		require.NoError(t, err)
		assert.Equal(t, "fresh", st.Result)
	})

	t.Run("double completion is rejected", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		_, err := store.Begin(ctx, operation.Analyze, "r1")
		require.NoError(t, err)
		require.NoError(t, store.SetResult(ctx, operation.Analyze, "r1", "a"))
		assert.ErrorIs(t, store.SetError(ctx, operation.Analyze, "r1", "x"), operation.ErrStaleRequest)

		st, err := store.Get(ctx, operation.Analyze)
		require.NoError(t, err)
		assert.Equal(t, operation.StatusSucceeded, st.Status)
		assert.Empty(t, st.Error)
	})

	t.Run("operations are isolated", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		_, err := store.Begin(ctx, operation.Analyze, "a1")
		require.NoError(t, err)
		_, err = store.Begin(ctx, operation.Sentiment, "s1")
		require.NoError(t, err)
		require.NoError(t, store.SetError(ctx, operation.Analyze, "a1", "Error analyzing data"))

		st, err := store.Get(ctx, operation.Sentiment)
		require.NoError(t, err)
		assert.Equal(t, operation.StatusPending, st.Status)

		st, err = store.Get(ctx, operation.Recommend)
		require.NoError(t, err)
		assert.Equal(t, operation.StatusIdle, st.Status)
	})

	t.Run("concurrent writers", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		names := operation.DefaultRegistry().Names()

		var wg sync.WaitGroup
		for _, name := range names {
			for n := 0; n < 5; n++ {
				wg.Add(1)
				go func(name string, n int) {
					defer wg.Done()
					id := fmt.Sprintf("%s-%d", name, n)
					if _, err := store.Begin(ctx, name, id); err != nil {
						t.Errorf("begin %s: %v", id, err)
						return
					}
					_ = store.SetResult(ctx, name, id, id)
				}(name, n)
			}
		}
		wg.Wait()

		for _, name := range names {
			st, err := store.Get(ctx, name)
			require.NoError(t, err)
			if st.Status == operation.StatusSucceeded {
				assert.Equal(t, st.RequestID, st.Result, "result must belong to the latest request")
			}
		}
	})
}
