package bridge

import (
	"context"
	"sync"

	"go.uber.org/zap"

	iabridge "github.com/wippyai/ia-bridge"
	"github.com/wippyai/ia-bridge/errors"
)

// Bridge owns the state shared by every proxy of one host connection: the
// listener table, the pending firings, the ready flag and the event loop.
// Bridge implements iabridge.Notifier.
type Bridge struct {
	host  iabridge.Host
	opts  *options
	log   *zap.Logger
	sched *scheduler

	mu        sync.Mutex
	callbacks map[string]Listener
	queue     *fireQueue
	ready     bool
	onReady   []func()

	cancel    context.CancelFunc
	loopWG    sync.WaitGroup
	deliverWG sync.WaitGroup
	started   bool
	closed  bool
}

var _ iabridge.Notifier = (*Bridge)(nil)

// New creates a bridge over host. Call Start to run the event loop.
func New(host iabridge.Host, opts ...Option) *Bridge {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = Logger()
	}

	b := &Bridge{
		host:      host,
		opts:      o,
		log:       o.logger,
		sched:     newScheduler(o.logger),
		callbacks: make(map[string]Listener),
		queue:     newFireQueue(o.delivery),
	}
	b.callbacks[ReadyListenerID] = func(...any) { b.runtimeReady() }
	return b
}

// Start runs the event loop and the delivery goroutine until ctx is done or
// Close is called. Calling Start again has no effect.
func (b *Bridge) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return errors.Closed(errors.PhaseDispatch, "bridge")
	}
	if b.started {
		return nil
	}
	b.started = true

	ctx, b.cancel = context.WithCancel(ctx)
	b.loopWG.Add(1)
	go func() {
		defer b.loopWG.Done()
		b.loop(ctx, b.opts.tickInterval)
	}()
	b.deliverWG.Add(1)
	go func() {
		defer b.deliverWG.Done()
		b.sched.run(ctx)
	}()

	b.log.Debug("event loop started", zap.Duration("interval", b.opts.tickInterval),
		zap.Stringer("delivery", b.opts.delivery))
	return nil
}

// Close stops the event loop. Pending firings and scheduled deliveries are
// discarded. Called from a listener or ready callback, Close returns without
// waiting for the delivery goroutine, which exits once the callback returns.
func (b *Bridge) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	cancel := b.cancel
	b.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	b.loopWG.Wait()
	if !b.sched.delivering() {
		b.deliverWG.Wait()
	}
	return nil
}

// Host returns the host call surface the bridge was created with.
func (b *Bridge) Host() iabridge.Host {
	return b.host
}

// FireEvent buffers a firing for delivery on the next tick.
// It never runs the listener itself.
func (b *Bridge) FireEvent(listenerID string, args []any) {
	buf := make([]any, len(args))
	copy(buf, args)

	b.mu.Lock()
	b.queue.put(listenerID, buf)
	b.mu.Unlock()
}

// FireRuntimeReady signals that the host finished initializing. The ready
// transition happens on the event loop.
func (b *Bridge) FireRuntimeReady() {
	b.FireEvent(ReadyListenerID, nil)
}

// OnReady registers fn to run once the runtime is ready. If it already is,
// fn is scheduled immediately.
func (b *Bridge) OnReady(fn func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.ready {
		b.sched.schedule(fn)
		return
	}
	b.onReady = append(b.onReady, fn)
}

// Ready reports whether the runtime ready signal has been delivered.
func (b *Bridge) Ready() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ready
}

// runtimeReady flips the ready flag and schedules each queued callback
// separately, in registration order.
func (b *Bridge) runtimeReady() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.ready = true
	callbacks := b.onReady
	b.onReady = nil
	for _, fn := range callbacks {
		b.sched.schedule(fn)
	}
	b.log.Debug("runtime ready", zap.Int("callbacks", len(callbacks)))
}

// Wrap reflects a remote handle and returns its proxy.
func (b *Bridge) Wrap(ctx context.Context, h iabridge.Handle) (*RemoteObject, error) {
	if h == nil {
		return nil, errors.InvalidInput(errors.PhaseReflect, "nil handle")
	}
	desc, err := reflectHandle(ctx, h)
	if err != nil {
		return nil, err
	}
	return newRemoteObject(b, h, desc), nil
}

// addListener stores cb under a host-assigned listener ID.
func (b *Bridge) addListener(listenerID string, cb Listener) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if listenerID == ReadyListenerID {
		return errors.New(errors.PhaseDispatch, errors.KindReserved).
			Detail("host assigned reserved listener ID %q", listenerID).
			Build()
	}
	b.callbacks[listenerID] = cb
	return nil
}

// removeListener drops the local entry and asks the host to release its side.
func (b *Bridge) removeListener(listenerID string) {
	b.mu.Lock()
	delete(b.callbacks, listenerID)
	b.mu.Unlock()

	b.log.Debug("removing event listener", zap.String("listener", listenerID))

	ctx, cancel := context.WithTimeout(context.Background(), b.opts.callTimeout)
	defer cancel()
	if _, err := b.host.Invoke(ctx, b.opts.target, iabridge.OpRemoveEventListener, listenerID); err != nil {
		b.log.Debug("host listener removal failed", zap.String("listener", listenerID), zap.Error(err))
	}
}

// listenerCount returns the number of registered listeners, excluding the
// reserved ready listener.
func (b *Bridge) listenerCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.callbacks) - 1
}

// pendingCount returns the number of buffered firings.
func (b *Bridge) pendingCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.queue.len()
}
