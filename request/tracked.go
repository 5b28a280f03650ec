package request

import (
	"context"
	"sync"
)

// tracked is one request and the history of its snapshots.
type tracked struct {
	id     string
	key    Key
	ctx    context.Context
	cancel context.CancelFunc

	// subscribers is guarded by the tracker mutex.
	subscribers int

	mu      sync.Mutex
	history []Entry
	done    bool
	changed chan struct{}
}

func newTracked(parent context.Context, id string, key Key) *tracked {
	ctx, cancel := context.WithCancel(parent)
	return &tracked{
		id:      id,
		key:     key,
		ctx:     ctx,
		cancel:  cancel,
		changed: make(chan struct{}),
	}
}

func (t *tracked) append(e Entry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.appendLocked(e)
	t.notifyLocked()
}

// settle appends the final snapshot, if any, and wakes every subscriber for
// the last time.
func (t *tracked) settle(final *Entry) {
	t.mu.Lock()
	if final != nil {
		t.appendLocked(*final)
	}
	t.done = true
	t.notifyLocked()
	t.mu.Unlock()
	t.cancel()
}

func (t *tracked) isDone() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.done
}

func (t *tracked) appendLocked(e Entry) {
	e.ID = t.id
	e.Key = t.key
	t.history = append(t.history, e)
}

func (t *tracked) notifyLocked() {
	close(t.changed)
	t.changed = make(chan struct{})
}

// replay emits the history from the start, then every new snapshot, until the
// request settles, the subscriber goes away, or ctx ends.
func (t *tracked) replay(ctx context.Context, emit func(Entry) bool) {
	next := 0
	for {
		t.mu.Lock()
		history, done, changed := t.history, t.done, t.changed
		t.mu.Unlock()

		for ; next < len(history); next++ {
			if !emit(history[next]) {
				return
			}
		}
		if done {
			return
		}
		select {
		case <-changed:
		case <-ctx.Done():
			return
		}
	}
}
