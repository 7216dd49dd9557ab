package pagecache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smtools/confgraph/internal/core/model"
)

func pageLoader(id string, calls *int32) Loader {
	return func(context.Context) (*model.Page, error) {
		atomic.AddInt32(calls, 1)
		return &model.Page{ID: id, Title: "page " + id}, nil
	}
}

func TestGetCachesLoadedPage(t *testing.T) {
	c := New(10)
	var calls int32

	first, err := c.Get(context.Background(), "1", pageLoader("1", &calls))
	require.NoError(t, err)
	second, err := c.Get(context.Background(), "1", pageLoader("1", &calls))
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.EqualValues(t, 1, calls)
}

func TestGetDoesNotCacheFailures(t *testing.T) {
	c := New(10)
	var calls int32
	failing := func(context.Context) (*model.Page, error) {
		atomic.AddInt32(&calls, 1)
		return nil, errors.New("upstream down")
	}

	_, err := c.Get(context.Background(), "1", failing)
	require.Error(t, err)
	_, err = c.Get(context.Background(), "1", failing)
	require.Error(t, err)

	assert.EqualValues(t, 2, calls)
	assert.Zero(t, c.Len())
}

func TestEvictionKeepsCapacity(t *testing.T) {
	c := New(2)
	var calls int32

	for _, id := range []string{"1", "2", "3"} {
		_, err := c.Get(context.Background(), id, pageLoader(id, &calls))
		require.NoError(t, err)
	}

	assert.Equal(t, 2, c.Len())

	// "1" was evicted, so it loads again; "3" is still cached.
	_, _ = c.Get(context.Background(), "3", pageLoader("3", &calls))
	assert.EqualValues(t, 3, calls)
	_, _ = c.Get(context.Background(), "1", pageLoader("1", &calls))
	assert.EqualValues(t, 4, calls)
}

func TestConcurrentGetsShareOneLoad(t *testing.T) {
	c := New(10)
	var calls int32
	slow := func(context.Context) (*model.Page, error) {
		atomic.AddInt32(&calls, 1)
		time.Sleep(50 * time.Millisecond)
		return &model.Page{ID: "1"}, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			page, err := c.Get(context.Background(), "1", slow)
			assert.NoError(t, err)
			assert.Equal(t, "1", page.ID)
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, calls)
}
