package store

import (
	"context"
	"sync"
)

type subscriber struct {
	inbox   chan []byte
	touched bool
}

// changeHub fans collection changes out to in-process subscribers. Each inbox
// holds at most the latest value, so a slow callback only ever sees the
// newest collection state.
type changeHub struct {
	mu          sync.Mutex
	nextID      int
	closed      bool
	subscribers map[string]map[int]*subscriber
}

func newChangeHub() *changeHub {
	return &changeHub{subscribers: make(map[string]map[int]*subscriber)}
}

func (hub *changeHub) register(name string) (int, *subscriber, error) {
	hub.mu.Lock()
	defer hub.mu.Unlock()

	if hub.closed {
		return 0, nil, ErrClosed
	}
	hub.nextID++
	entry := &subscriber{inbox: make(chan []byte, 1)}
	if hub.subscribers[name] == nil {
		hub.subscribers[name] = make(map[int]*subscriber)
	}
	hub.subscribers[name][hub.nextID] = entry
	return hub.nextID, entry, nil
}

func (hub *changeHub) unregister(name string, id int) {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	delete(hub.subscribers[name], id)
}

func (hub *changeHub) publish(name string, value []byte) {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	for _, entry := range hub.subscribers[name] {
		entry.touched = true
		replaceLatest(entry.inbox, cloneBytes(value))
	}
}

// seed hands the subscriber its initial value unless a newer change already arrived.
func (hub *changeHub) seed(entry *subscriber, value []byte) {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	if entry.touched {
		return
	}
	replaceLatest(entry.inbox, cloneBytes(value))
}

func (hub *changeHub) close() {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	hub.closed = true
}

func replaceLatest(inbox chan []byte, value []byte) {
	select {
	case <-inbox:
	default:
	}
	inbox <- value
}

// subscribe wires fn to name, seeding it with the value returned by current.
func (hub *changeHub) subscribe(ctx context.Context, name string, current func() ([]byte, error), fn func([]byte)) error {
	id, entry, err := hub.register(name)
	if err != nil {
		return err
	}

	value, err := current()
	if err != nil {
		hub.unregister(name, id)
		return err
	}
	hub.seed(entry, value)

	go func() {
		defer hub.unregister(name, id)
		for {
			select {
			case <-ctx.Done():
				return
			case next := <-entry.inbox:
				fn(next)
			}
		}
	}()
	return nil
}
