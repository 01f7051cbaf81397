package runtime

import (
	"reflect"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/ia-bridge/errors"
	"github.com/wippyai/ia-bridge/resource"
)

// Option configures a Runtime.
type Option func(*Runtime)

// WithLogger sets the runtime logger. Defaults to Logger().
func WithLogger(l *zap.Logger) Option {
	return func(r *Runtime) { r.log = l }
}

// Runtime hosts one object graph. Sessions created from it share the object
// table and the call lock.
type Runtime struct {
	root  reflect.Value
	table *resource.UnifiedTable
	types *typeRegistry
	log   *zap.Logger

	// mu serializes every call into the object graph.
	mu sync.Mutex

	smu      sync.Mutex
	sessions map[*Session]struct{}
	ready    bool
	closed   bool
}

// New creates a runtime whose client reference is root, a pointer to a struct.
func New(root any, opts ...Option) (*Runtime, error) {
	rv := reflect.ValueOf(root)
	if !rv.IsValid() || !isObjectType(rv.Type()) || rv.IsNil() {
		return nil, errors.New(errors.PhaseHost, errors.KindInvalidInput).
			Value(root).
			Detail("root must be a non-nil pointer to a struct, got %T", root).
			Build()
	}

	r := &Runtime{
		root:     rv,
		table:    resource.NewTable(),
		types:    newTypeRegistry(),
		sessions: make(map[*Session]struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		r.log = Logger()
	}

	r.table.Subscribe(resource.ObserverFunc(func(e resource.Event) {
		r.log.Debug("object "+e.Type.String(),
			zap.Stringer("id", e.Handle),
			zap.String("type", reflect.TypeOf(e.Value).String()))
	}))
	return r, nil
}

// Do runs fn under the runtime call lock. Model code running outside a
// remote call uses it to mutate state and fire events.
func (r *Runtime) Do(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn()
}

// Ready marks the runtime initialized and notifies every attached session.
// Later calls have no effect.
func (r *Runtime) Ready() {
	r.smu.Lock()
	if r.ready {
		r.smu.Unlock()
		return
	}
	r.ready = true
	sessions := r.sessionList()
	r.smu.Unlock()

	r.log.Debug("runtime ready", zap.Int("sessions", len(sessions)))
	for _, s := range sessions {
		s.notifyReady()
	}
}

// IsReady reports whether Ready has been called.
func (r *Runtime) IsReady() bool {
	r.smu.Lock()
	defer r.smu.Unlock()
	return r.ready
}

// Release invalidates an object ID and drops every listener attached to the
// object. Later calls on the ID fail with a not-found error.
func (r *Runtime) Release(id string) error {
	h, err := resource.ParseHandle(id)
	if err != nil {
		return errors.NotFound(errors.PhaseHost, "object", id)
	}
	if _, ok := r.table.Remove(h); !ok {
		return errors.NotFound(errors.PhaseHost, "object", id)
	}

	r.smu.Lock()
	sessions := r.sessionList()
	r.smu.Unlock()
	for _, s := range sessions {
		s.dropObjectListeners(id)
	}
	return nil
}

// Objects returns the number of live object IDs.
func (r *Runtime) Objects() int {
	return r.table.Len()
}

// Close closes every session and releases the object table.
func (r *Runtime) Close() error {
	r.smu.Lock()
	if r.closed {
		r.smu.Unlock()
		return nil
	}
	r.closed = true
	sessions := r.sessionList()
	r.smu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
	return r.table.Close()
}

func (r *Runtime) sessionList() []*Session {
	out := make([]*Session, 0, len(r.sessions))
	for s := range r.sessions {
		out = append(out, s)
	}
	return out
}

// intern returns the object ID of a model pointer, registering it if needed.
func (r *Runtime) intern(v reflect.Value) string {
	info := r.types.lookup(v.Type())
	return r.table.Intern(info.id, v.Interface()).String()
}

// objectValue resolves an object ID to its model pointer.
func (r *Runtime) objectValue(id string) (reflect.Value, error) {
	h, err := resource.ParseHandle(id)
	if err != nil {
		return reflect.Value{}, errors.NotFound(errors.PhaseHost, "object", id)
	}
	v, ok := r.table.Get(h)
	if !ok {
		return reflect.Value{}, errors.NotFound(errors.PhaseHost, "object", id)
	}
	return reflect.ValueOf(v), nil
}

func (r *Runtime) object(id string) (reflect.Value, *typeInfo, error) {
	v, err := r.objectValue(id)
	if err != nil {
		return reflect.Value{}, nil, err
	}
	return v, r.types.lookup(v.Type()), nil
}
