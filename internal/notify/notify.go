package notify

import (
	"sync"
)

// Dispatcher calls listeners of type L outside of the caller's locks, in the
// order the calls were enqueued. Enqueue is called while the announced state
// is still locked, so that the order of the calls is the order of the
// mutations, and Deliver once it is released.
//
// Only the latest call is delivered: a call enqueued while an older one is
// being delivered stops the older one before its next listener. When another
// goroutine is delivering, Deliver returns at once and that goroutine
// delivers the newer call as well.
type Dispatcher[L any] struct {
	mu         sync.Mutex
	listeners  []L
	version    uint64
	pending    func(L)
	delivering bool
}

func (d *Dispatcher[L]) Subscribe(l L) {
	d.mu.Lock()
	defer d.mu.Unlock()

	listeners := make([]L, len(d.listeners), len(d.listeners)+1)
	copy(listeners, d.listeners)
	d.listeners = append(listeners, l)
}

// Enqueue replaces the pending call with call.
func (d *Dispatcher[L]) Enqueue(call func(L)) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.version++
	d.pending = call
}

// Deliver calls the pending call on every listener, until nothing is
// pending anymore.
func (d *Dispatcher[L]) Deliver() {
	d.mu.Lock()
	if d.delivering {
		d.mu.Unlock()
		return
	}
	d.delivering = true

	for d.pending != nil {
		call, version, listeners := d.pending, d.version, d.listeners
		d.pending = nil
		d.mu.Unlock()

		for _, l := range listeners {
			if d.superseded(version) {
				break
			}
			call(l)
		}

		d.mu.Lock()
	}

	d.delivering = false
	d.mu.Unlock()
}

func (d *Dispatcher[L]) superseded(version uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.version != version
}
