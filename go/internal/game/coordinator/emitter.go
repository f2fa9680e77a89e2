package coordinator

import (
	"sort"
	"sync"

	"github.com/mcdev12/connectfour/go/internal/game/events"
)

// emitter is the observer list a service owns. Observers run on the
// goroutine that emits and must not block.
type emitter struct {
	mu        sync.RWMutex
	next      int
	observers map[int]func(events.Event)
}

func newEmitter() *emitter {
	return &emitter{observers: make(map[int]func(events.Event))}
}

func (e *emitter) subscribe(fn func(events.Event)) func() {
	e.mu.Lock()
	id := e.next
	e.next++
	e.observers[id] = fn
	e.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Lock()
			delete(e.observers, id)
			e.mu.Unlock()
		})
	}
}

func (e *emitter) emit(evts ...events.Event) {
	if len(evts) == 0 {
		return
	}

	e.mu.RLock()
	ids := make([]int, 0, len(e.observers))
	for id := range e.observers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(events.Event), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, e.observers[id])
	}
	e.mu.RUnlock()

	for _, evt := range evts {
		for _, fn := range fns {
			fn(evt)
		}
	}
}
