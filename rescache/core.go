package rescache

import (
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/Shanyu-Yun/RenderV2/ferrors"
)

const prefix = "rescache: "

// entryCache is the generic shape behind the mesh, texture, and shader
// caches: a loaded map of resolved handles, a singleflight group that
// coalesces concurrent async loads of the same id, and the mutex
// guarding the loaded map.
//
// singleflight.Group substitutes for a hand-rolled "loading" map of
// shared futures (x/sync/singleflight already is exactly that: a
// per-key in-flight-call dedupe table), so there is no separate
// "loading" field here — Group.Do/DoChan owns that bookkeeping.
type entryCache[T any] struct {
	mu     sync.RWMutex
	loaded map[string]T
	group  singleflight.Group
}

func newEntryCache[T any]() *entryCache[T] {
	return &entryCache[T]{loaded: map[string]T{}}
}

func (c *entryCache[T]) get(id string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.loaded[id]
	return v, ok
}

func (c *entryCache[T]) put(id string, v T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loaded[id] = v
}

// loadSync returns the cached entry for id if present; otherwise it
// runs load (outside any lock held by the caller) and inserts the
// result. If two callers race on the same id, both may run load, and
// the loser's result is discarded — idempotent and acceptable per the
// cache's concurrency contract.
func (c *entryCache[T]) loadSync(id string, load func() (T, error)) (T, error) {
	if v, ok := c.get(id); ok {
		return v, nil
	}
	v, err := load()
	if err != nil {
		var zero T
		return zero, err
	}
	c.put(id, v)
	return v, nil
}

// loadAsync dedupes concurrent loads of the same id via singleflight: if
// id is already loaded, it resolves immediately; otherwise the caller
// joins (or starts) the in-flight call for id, and every joiner
// publishes the same result once the load completes.
func (c *entryCache[T]) loadAsync(id string, load func() (T, error)) <-chan loadResult[T] {
	ch := make(chan loadResult[T], 1)
	if v, ok := c.get(id); ok {
		ch <- loadResult[T]{id: id, value: v}
		close(ch)
		return ch
	}
	go func() {
		defer close(ch)
		v, err, _ := c.group.Do(id, func() (any, error) {
			if v, ok := c.get(id); ok {
				return v, nil
			}
			v, err := load()
			if err != nil {
				return nil, err
			}
			c.put(id, v)
			return v, nil
		})
		if err != nil {
			ch <- loadResult[T]{id: id, err: err}
			return
		}
		ch <- loadResult[T]{id: id, value: v.(T)}
	}()
	return ch
}

// unload removes id from the loaded map, reporting whether an entry was
// present. It never touches in-flight singleflight calls: a task that is
// already running still publishes into loaded on completion, which is
// benign (the caller asked to evict a snapshot, not to cancel work).
func (c *entryCache[T]) unload(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.loaded[id]; !ok {
		return false
	}
	delete(c.loaded, id)
	return true
}

// loadResult is one element of an async load's outcome.
type loadResult[T any] struct {
	id    string
	value T
	err   error
}

// BatchLoad runs load for every input, returning once all complete. The
// returned ids slice mirrors the input order; an error from any single
// load aborts the batch with that error.
func BatchLoad[T any](inputs []string, load func(string) (T, error)) ([]string, error) {
	type outcome struct {
		id  string
		err error
	}
	results := make([]outcome, len(inputs))
	var wg sync.WaitGroup
	wg.Add(len(inputs))
	for i, id := range inputs {
		go func(i int, id string) {
			defer wg.Done()
			_, err := load(id)
			results[i] = outcome{id: id, err: err}
		}(i, id)
	}
	wg.Wait()

	ids := make([]string, len(inputs))
	for i, r := range results {
		if r.err != nil {
			return nil, ferrors.Wrap(ferrors.FileSystem, prefix, "batch load failed for "+r.id, r.err)
		}
		ids[i] = r.id
	}
	return ids, nil
}
