package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Notifuse/extfields/internal/domain"
	"github.com/Notifuse/extfields/internal/domain/mocks"
	"github.com/Notifuse/extfields/pkg/logger"
)

// stubLoader returns models for a version chosen by the test
type stubLoader struct {
	mu      sync.Mutex
	version int64
	err     error
	delay   time.Duration
	calls   atomic.Int32
}

func (l *stubLoader) set(version int64, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.version = version
	l.err = err
}

func (l *stubLoader) Load(ctx context.Context) (*domain.Model, error) {
	l.calls.Add(1)
	if l.delay > 0 {
		time.Sleep(l.delay)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	return domain.NewModel(l.version), nil
}

func newTestModelCache(t *testing.T) (*ModelCache, *mocks.MockSchemaVersionRepository, *stubLoader) {
	ctrl := gomock.NewController(t)
	versions := mocks.NewMockSchemaVersionRepository(ctrl)
	loader := &stubLoader{}
	return NewModelCache(versions, loader, logger.NewTestLogger(t)), versions, loader
}

func TestModelCache_Current(t *testing.T) {
	ctx := context.Background()

	t.Run("first call loads", func(t *testing.T) {
		cache, versions, loader := newTestModelCache(t)
		loader.set(3, nil)

		versions.EXPECT().GetVersion(gomock.Any()).Return(int64(3), nil)

		assert.Nil(t, cache.Cached())
		model, err := cache.Current(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(3), model.Version)
		assert.Same(t, model, cache.Cached())
		assert.Equal(t, int32(1), loader.calls.Load())
	})

	t.Run("unchanged version is served from cache", func(t *testing.T) {
		cache, versions, loader := newTestModelCache(t)
		loader.set(3, nil)

		versions.EXPECT().GetVersion(gomock.Any()).Return(int64(3), nil).Times(3)

		first, err := cache.Current(ctx)
		require.NoError(t, err)
		for i := 0; i < 2; i++ {
			model, err := cache.Current(ctx)
			require.NoError(t, err)
			assert.Same(t, first, model)
		}
		assert.Equal(t, int32(1), loader.calls.Load())
	})

	t.Run("version bump from another process reloads", func(t *testing.T) {
		cache, versions, loader := newTestModelCache(t)
		loader.set(3, nil)

		gomock.InOrder(
			versions.EXPECT().GetVersion(gomock.Any()).Return(int64(3), nil),
			versions.EXPECT().GetVersion(gomock.Any()).Return(int64(4), nil),
		)

		before, err := cache.Current(ctx)
		require.NoError(t, err)

		loader.set(4, nil)
		after, err := cache.Current(ctx)
		require.NoError(t, err)

		assert.Equal(t, int64(3), before.Version)
		assert.Equal(t, int64(4), after.Version)
		assert.NotSame(t, before, after)
		assert.Equal(t, int32(2), loader.calls.Load())
	})

	t.Run("concurrent callers share one reload", func(t *testing.T) {
		cache, versions, loader := newTestModelCache(t)
		loader.set(5, nil)
		loader.delay = 50 * time.Millisecond

		const callers = 8
		var arrived sync.WaitGroup
		arrived.Add(callers)
		versions.EXPECT().GetVersion(gomock.Any()).DoAndReturn(func(context.Context) (int64, error) {
			arrived.Done()
			arrived.Wait()
			return 5, nil
		}).Times(callers)

		models := make([]*domain.Model, callers)
		var wg sync.WaitGroup
		for i := 0; i < callers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				model, err := cache.Current(ctx)
				assert.NoError(t, err)
				models[i] = model
			}(i)
		}
		wg.Wait()

		assert.Equal(t, int32(1), loader.calls.Load())
		for _, model := range models {
			assert.Same(t, models[0], model)
		}
	})

	t.Run("an older load never replaces a newer model", func(t *testing.T) {
		cache, versions, loader := newTestModelCache(t)
		loader.set(7, nil)

		versions.EXPECT().GetVersion(gomock.Any()).Return(int64(7), nil)
		newer, err := cache.Current(ctx)
		require.NoError(t, err)

		loader.set(6, nil)
		versions.EXPECT().GetVersion(gomock.Any()).Return(int64(6), nil)
		older, err := cache.Current(ctx)
		require.NoError(t, err)

		assert.Equal(t, int64(6), older.Version)
		assert.Same(t, newer, cache.Cached())
	})

	t.Run("load failure keeps the previous model", func(t *testing.T) {
		cache, versions, loader := newTestModelCache(t)
		loader.set(1, nil)

		versions.EXPECT().GetVersion(gomock.Any()).Return(int64(1), nil)
		previous, err := cache.Current(ctx)
		require.NoError(t, err)

		loader.set(0, errors.New("catalog unavailable"))
		versions.EXPECT().GetVersion(gomock.Any()).Return(int64(2), nil)
		_, err = cache.Current(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "catalog unavailable")
		assert.Same(t, previous, cache.Cached())
	})

	t.Run("version read failure", func(t *testing.T) {
		cache, versions, loader := newTestModelCache(t)

		versions.EXPECT().GetVersion(gomock.Any()).Return(int64(0), errors.New("connection refused"))

		_, err := cache.Current(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to read schema version")
		assert.Equal(t, int32(0), loader.calls.Load())
	})

	t.Run("invalidate forces a reload", func(t *testing.T) {
		cache, versions, loader := newTestModelCache(t)
		loader.set(2, nil)

		versions.EXPECT().GetVersion(gomock.Any()).Return(int64(2), nil).Times(2)

		_, err := cache.Current(ctx)
		require.NoError(t, err)
		cache.Invalidate()
		assert.Nil(t, cache.Cached())

		_, err = cache.Current(ctx)
		require.NoError(t, err)
		assert.Equal(t, int32(2), loader.calls.Load())
	})
}
