package bridge

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// ReadyListenerID is the listener ID reserved for the runtime ready signal.
const ReadyListenerID = "ready"

// Listener receives the arguments of a remote event firing.
type Listener func(args ...any)

// Unsubscribe detaches a listener. Calling it more than once is harmless.
type Unsubscribe func()

type firing struct {
	listenerID string
	args       []any
}

// fireQueue buffers firings between ticks. In DeliverLatest mode a new firing
// for a listener replaces the buffered one.
type fireQueue struct {
	mode    DeliveryMode
	latest  map[string][]any
	order   []string
	pending []firing
}

func newFireQueue(mode DeliveryMode) *fireQueue {
	return &fireQueue{
		mode:   mode,
		latest: make(map[string][]any),
	}
}

func (q *fireQueue) put(listenerID string, args []any) {
	if q.mode == DeliverAll {
		q.pending = append(q.pending, firing{listenerID: listenerID, args: args})
		return
	}
	if _, ok := q.latest[listenerID]; !ok {
		q.order = append(q.order, listenerID)
	}
	q.latest[listenerID] = args
}

// drain returns the buffered firings and empties the queue.
func (q *fireQueue) drain() []firing {
	if q.mode == DeliverAll {
		out := q.pending
		q.pending = nil
		return out
	}
	out := make([]firing, 0, len(q.order))
	for _, id := range q.order {
		out = append(out, firing{listenerID: id, args: q.latest[id]})
		delete(q.latest, id)
	}
	q.order = q.order[:0]
	return out
}

func (q *fireQueue) len() int {
	if q.mode == DeliverAll {
		return len(q.pending)
	}
	return len(q.order)
}

// scheduler runs queued callbacks one at a time, in order, on its own
// goroutine. It stands in for the host event loop's next tick.
type scheduler struct {
	log   *zap.Logger
	mu    sync.Mutex
	queue []func()
	wake  chan struct{}

	// busy is set while a callback runs on the delivery goroutine.
	busy atomic.Bool
}

func newScheduler(log *zap.Logger) *scheduler {
	return &scheduler{
		log:  log,
		wake: make(chan struct{}, 1),
	}
}

func (s *scheduler) schedule(fn func()) {
	s.mu.Lock()
	s.queue = append(s.queue, fn)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *scheduler) next() func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return nil
	}
	fn := s.queue[0]
	s.queue[0] = nil
	s.queue = s.queue[1:]
	return fn
}

func (s *scheduler) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.wake:
		}
		for fn := s.next(); fn != nil; fn = s.next() {
			if ctx.Err() != nil {
				return
			}
			s.invoke(fn)
		}
	}
}

func (s *scheduler) delivering() bool {
	return s.busy.Load()
}

func (s *scheduler) invoke(fn func()) {
	s.busy.Store(true)
	defer s.busy.Store(false)
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("listener panicked", zap.Any("panic", r))
		}
	}()
	fn()
}

// loop drains the fire queue every interval until ctx is done.
func (b *Bridge) loop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.Tick()
		}
	}
}

// Tick drains the pending firings once and schedules their listeners.
// The event loop calls it every tick interval.
func (b *Bridge) Tick() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, f := range b.queue.drain() {
		cb, ok := b.callbacks[f.listenerID]
		if !ok {
			b.log.Debug("dropping firing for unknown listener", zap.String("listener", f.listenerID))
			continue
		}
		b.scheduleDelivery(f.listenerID, cb, f.args)
	}
}

// scheduleDelivery queues one listener call. Inbound arguments are
// marshalled on the delivery goroutine, just before the listener runs.
func (b *Bridge) scheduleDelivery(listenerID string, cb Listener, raw []any) {
	b.sched.schedule(func() {
		ctx, cancel := context.WithTimeout(context.Background(), b.opts.callTimeout)
		args, err := b.toLocalArgs(ctx, raw)
		cancel()
		if err != nil {
			b.log.Error("cannot marshal event arguments",
				zap.String("listener", listenerID), zap.Error(err))
			return
		}
		cb(args...)
	})
}
