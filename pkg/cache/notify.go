package cache

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"
)

// Op identifies the operation that produced an Event.
type Op uint8

const (
	OpSet Op = iota + 1
	OpInvalidate
	OpInvalidatePattern
	OpClear
)

var opNames = map[Op]string{
	OpSet:               "set",
	OpInvalidate:        "invalidate",
	OpInvalidatePattern: "invalidate_pattern",
	OpClear:             "clear",
}

func (o Op) String() string {
	if name, ok := opNames[o]; ok {
		return name
	}
	return fmt.Sprintf("op(%d)", o)
}

// MarshalText implements encoding.TextMarshaler.
func (o Op) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// Event describes a change to the cache.
//
// Key is set only for OpSet. Invalidation events are broad: Key is empty and
// Removed lists the keys that were actually dropped (possibly none).
type Event struct {
	At      time.Time `json:"at"`
	Key     string    `json:"key,omitempty"`
	Pattern string    `json:"pattern,omitempty"`
	Removed []string  `json:"removed,omitempty"`
	Op      Op        `json:"op"`
}

// Broad reports whether the event does not name a single key.
func (e Event) Broad() bool {
	return e.Key == ""
}

// notifier fans events out to subscribers. Each subscriber has an unbounded
// FIFO drained by its own goroutine, so emit never blocks.
type notifier struct {
	logger *slog.Logger
	subs   map[uint64]*subscriber
	done   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
	nextID uint64
	closed bool
}

type subscriber struct {
	fn    func(Event)
	wake  chan struct{}
	stop  chan struct{}
	queue []Event
	once  sync.Once
	mu    sync.Mutex
}

func newNotifier(logger *slog.Logger) *notifier {
	return &notifier{
		logger: logger,
		subs:   make(map[uint64]*subscriber),
		done:   make(chan struct{}),
	}
}

func (n *notifier) subscribe(fn func(Event)) func() {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed || fn == nil {
		return func() {}
	}

	n.nextID++
	id := n.nextID
	s := &subscriber{
		fn:   fn,
		wake: make(chan struct{}, 1),
		stop: make(chan struct{}),
	}
	n.subs[id] = s

	n.wg.Add(1)
	go n.deliver(s)

	return func() {
		n.mu.Lock()
		delete(n.subs, id)
		n.mu.Unlock()
		s.halt()
	}
}

// emit queues ev for every subscriber.
func (n *notifier) emit(ev Event) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return
	}

	for _, s := range n.subs {
		cp := ev
		cp.Removed = slices.Clone(ev.Removed)

		s.mu.Lock()
		s.queue = append(s.queue, cp)
		s.mu.Unlock()

		select {
		case s.wake <- struct{}{}:
		default:
		}
	}
}

// close stops accepting events and waits until every subscriber has been
// handed its pending events.
func (n *notifier) close() {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return
	}
	n.closed = true
	close(n.done)
	n.mu.Unlock()

	n.wg.Wait()
}

func (n *notifier) deliver(s *subscriber) {
	defer n.wg.Done()

	for {
		select {
		case <-s.stop:
			return
		case <-n.done:
			n.drain(s)
			return
		case <-s.wake:
			n.drain(s)
		}
	}
}

// drain hands out queued events in order until the queue is empty or the
// subscriber is stopped.
func (n *notifier) drain(s *subscriber) {
	for {
		s.mu.Lock()
		batch := s.queue
		s.queue = nil
		s.mu.Unlock()

		if len(batch) == 0 {
			return
		}

		for _, ev := range batch {
			select {
			case <-s.stop:
				return
			default:
			}
			n.dispatch(s, ev)
		}
	}
}

func (n *notifier) dispatch(s *subscriber, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			n.logger.Error("cache subscriber panicked",
				slog.String("op", ev.Op.String()),
				slog.Any("panic", r),
			)
		}
	}()
	s.fn(ev)
}

func (s *subscriber) halt() {
	s.once.Do(func() { close(s.stop) })
}
