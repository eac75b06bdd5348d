package ledger

import (
	"context"
	"slices"
	"sync"
)

// keyLocker serializes work per key. Waiters on the same key are served in
// arrival order; keys are independent of each other.
type keyLocker struct {
	mu     sync.Mutex
	queues map[string][]chan struct{}
}

func newKeyLocker() *keyLocker {
	return &keyLocker{queues: make(map[string][]chan struct{})}
}

// Lock acquires every key in sorted order, so two callers with overlapping
// key sets cannot deadlock. The returned func releases them all.
func (l *keyLocker) Lock(ctx context.Context, keys []string) (func(), error) {
	keys = slices.Clone(keys)
	slices.Sort(keys)
	keys = slices.Compact(keys)

	held := make([]string, 0, len(keys))
	unlock := func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		for _, k := range held {
			l.releaseLocked(k)
		}
	}
	for _, k := range keys {
		if err := l.acquire(ctx, k); err != nil {
			unlock()
			return nil, err
		}
		held = append(held, k)
	}
	return unlock, nil
}

func (l *keyLocker) acquire(ctx context.Context, key string) error {
	l.mu.Lock()
	ch := make(chan struct{})
	q := l.queues[key]
	l.queues[key] = append(q, ch)
	if len(q) == 0 {
		close(ch)
	}
	l.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	select {
	case <-ch:
		// granted while we were giving up
		l.releaseLocked(key)
	default:
		q := l.queues[key]
		if i := slices.Index(q, ch); i >= 0 {
			l.queues[key] = slices.Delete(q, i, i+1)
		}
	}
	return ctx.Err()
}

func (l *keyLocker) releaseLocked(key string) {
	q := l.queues[key]
	if len(q) <= 1 {
		delete(l.queues, key)
		return
	}
	q = q[1:]
	l.queues[key] = q
	close(q[0])
}

// waiting reports how many callers hold or wait for key.
func (l *keyLocker) waiting(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queues[key])
}
