package memory

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigStore_TypedGetters(t *testing.T) {
	s := NewConfigStore(map[string]any{
		"storage.driver":       "sqlite",
		"sync.batch_size":      int64(100),
		"sync.max_attempts":    3.0,
		"embedding.fallback":   true,
		"sync.backoff_initial": "1s",
		"sync.backoff_max":     8 * time.Second,
		"wordpress.routes":     []any{"posts", 7, "pages"},
	})

	assert.Equal(t, "sqlite", s.GetString("storage.driver"))
	assert.Equal(t, 100, s.GetInt("sync.batch_size"))
	assert.Equal(t, 3, s.GetInt("sync.max_attempts"))
	assert.True(t, s.GetBool("embedding.fallback"))
	assert.Equal(t, time.Second, s.GetDuration("sync.backoff_initial"))
	assert.Equal(t, 8*time.Second, s.GetDuration("sync.backoff_max"))
	assert.Equal(t, []string{"posts", "pages"}, s.GetStringSlice("wordpress.routes"))

	// Wrong types and missing keys yield zero values.
	assert.Empty(t, s.GetString("sync.batch_size"))
	assert.Zero(t, s.GetInt("storage.driver"))
	assert.False(t, s.GetBool("missing"))
	assert.Zero(t, s.GetDuration("storage.driver"))
	assert.Nil(t, s.GetStringSlice("storage.driver"))
}

func TestConfigStore_SetAndNoOps(t *testing.T) {
	s := NewConfigStore(nil)
	require.NoError(t, s.Set("queue.driver", "redis"))
	v, ok := s.Get("queue.driver")
	assert.True(t, ok)
	assert.Equal(t, "redis", v)

	assert.NoError(t, s.Save())
	assert.NoError(t, s.Load())
	assert.Equal(t, ":memory:", s.Path())
}

func TestConfigStore_SeedIsCopied(t *testing.T) {
	seed := map[string]any{"a": "1"}
	s := NewConfigStore(seed)
	seed["a"] = "2"
	assert.Equal(t, "1", s.GetString("a"))
}

func TestConfigStore_Concurrent(t *testing.T) {
	s := NewConfigStore(nil)
	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Set("k", i)
			_ = s.GetInt("k")
		}()
	}
	wg.Wait()
	_, ok := s.Get("k")
	assert.True(t, ok)
}
