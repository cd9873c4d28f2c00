package rescache

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEntryCacheLoadSyncCachesResult(t *testing.T) {
	c := newEntryCache[int]()
	calls := 0
	load := func() (int, error) {
		calls++
		return 42, nil
	}

	v, err := c.loadSync("a", load)
	require.NoError(t, err)
	require.Equal(t, 42, v)

	v, err = c.loadSync("a", load)
	require.NoError(t, err)
	require.Equal(t, 42, v)
	require.Equal(t, 1, calls)
}

func TestEntryCacheLoadSyncPropagatesError(t *testing.T) {
	c := newEntryCache[int]()
	_, err := c.loadSync("a", func() (int, error) { return 0, errBoom })
	require.Error(t, err)

	_, ok := c.get("a")
	require.False(t, ok, "failed load should not be cached")
}

func TestEntryCacheLoadAsyncDedupesConcurrentLoads(t *testing.T) {
	c := newEntryCache[int]()
	var calls int
	var mu sync.Mutex
	started := make(chan struct{})
	release := make(chan struct{})

	load := func() (int, error) {
		mu.Lock()
		calls++
		first := calls == 1
		mu.Unlock()
		if first {
			close(started)
			<-release
		}
		return 7, nil
	}

	ch1 := c.loadAsync("x", load)
	<-started
	ch2 := c.loadAsync("x", load)
	close(release)

	r1 := <-ch1
	r2 := <-ch2
	require.NoError(t, r1.err)
	require.NoError(t, r2.err)
	require.Equal(t, 7, r1.value)
	require.Equal(t, 7, r2.value)
	require.Equal(t, 1, calls)
}

func TestEntryCacheUnloadReportsPresence(t *testing.T) {
	c := newEntryCache[int]()
	require.False(t, c.unload("missing"))
	c.put("present", 1)
	require.True(t, c.unload("present"))
	require.False(t, c.unload("present"))
}

func TestBatchLoadReturnsInputOrder(t *testing.T) {
	inputs := []string{"b", "a", "c"}
	ids, err := BatchLoad(inputs, func(id string) (int, error) { return len(id), nil })
	require.NoError(t, err)
	require.Equal(t, inputs, ids)
}

func TestBatchLoadAbortsOnFirstError(t *testing.T) {
	inputs := []string{"a", "bad", "c"}
	_, err := BatchLoad(inputs, func(id string) (int, error) {
		if id == "bad" {
			return 0, errBoom
		}
		return 0, nil
	})
	require.Error(t, err)
}

var errBoom = &boomError{}

type boomError struct{}

func (*boomError) Error() string { return "boom" }
