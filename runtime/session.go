package runtime

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	iabridge "github.com/wippyai/ia-bridge"
	"github.com/wippyai/ia-bridge/errors"
)

type listenerEntry struct {
	object string
	event  *Event
}

// Session is one client's view of a runtime. It implements iabridge.Host;
// events for listeners added through it go to its notifier.
type Session struct {
	rt  *Runtime
	id  string
	log *zap.Logger

	mu        sync.Mutex
	notifier  iabridge.Notifier
	listeners map[string]listenerEntry
	closed    bool
}

var _ iabridge.Host = (*Session)(nil)

// NewSession creates a session. Attach a notifier to receive events.
func (r *Runtime) NewSession() *Session {
	s := &Session{
		rt:        r,
		id:        uuid.NewString(),
		listeners: make(map[string]listenerEntry),
	}
	s.log = r.log.With(zap.String("session", s.id))

	r.smu.Lock()
	r.sessions[s] = struct{}{}
	r.smu.Unlock()

	s.log.Debug("session opened")
	return s
}

// ID returns the session ID.
func (s *Session) ID() string {
	return s.id
}

// Attach routes the session's events to n. If the runtime is already ready,
// n is told so immediately.
func (s *Session) Attach(n iabridge.Notifier) {
	s.mu.Lock()
	s.notifier = n
	s.mu.Unlock()

	if s.rt.IsReady() {
		n.FireRuntimeReady()
	}
}

// Close removes the session's listeners and detaches it from the runtime.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	listeners := s.listeners
	s.listeners = nil
	s.notifier = nil
	s.mu.Unlock()

	for id, l := range listeners {
		l.event.remove(id)
	}

	s.rt.smu.Lock()
	delete(s.rt.sessions, s)
	s.rt.smu.Unlock()

	s.log.Debug("session closed", zap.Int("listeners", len(listeners)))
	return nil
}

func (s *Session) attached() iabridge.Notifier {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.notifier
}

func (s *Session) notifyReady() {
	if n := s.attached(); n != nil {
		n.FireRuntimeReady()
	}
}

// Invoke runs a target-level operation.
func (s *Session) Invoke(ctx context.Context, target, op string, args ...any) (any, error) {
	if target != iabridge.RuntimeTarget {
		return nil, errors.NotFound(errors.PhaseHost, "target", target)
	}
	if s.isClosed() {
		return nil, errors.Closed(errors.PhaseHost, "session")
	}

	switch op {
	case iabridge.OpGetClientReference:
		s.rt.mu.Lock()
		defer s.rt.mu.Unlock()
		return s.export(s.rt.root), nil

	case iabridge.OpRemoveEventListener:
		id, err := argString(args, 0, "listener ID")
		if err != nil {
			return nil, err
		}
		s.removeListener(id)
		return nil, nil

	default:
		return nil, errors.NotFound(errors.PhaseHost, "operation", op)
	}
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Object returns a handle for an object ID already known to the runtime.
func (s *Session) Object(id string) (*ObjectHandle, error) {
	if _, err := s.rt.objectValue(id); err != nil {
		return nil, err
	}
	return s.handle(id), nil
}

func (s *Session) handle(id string) *ObjectHandle {
	return &ObjectHandle{session: s, id: id}
}

// invokeObject runs a per-object operation under the runtime call lock.
func (s *Session) invokeObject(ctx context.Context, id, op string, args []any) (any, error) {
	if s.isClosed() {
		return nil, errors.Closed(errors.PhaseHost, "session")
	}

	s.rt.mu.Lock()
	defer s.rt.mu.Unlock()

	obj, info, err := s.rt.object(id)
	if err != nil {
		return nil, err
	}

	switch op {
	case iabridge.OpGetMethods:
		return append([]string(nil), info.methodNames...), nil

	case iabridge.OpGetProperties:
		return info.propertyMeta(), nil

	case iabridge.OpGetEvents:
		return info.eventMeta(), nil

	case iabridge.OpInvokeMethod:
		name, err := argString(args, 0, "method name")
		if err != nil {
			return nil, err
		}
		idx, ok := info.methods[name]
		if !ok {
			return nil, errors.MemberNotFound(errors.PhaseHost, id, name, "method")
		}
		var callArgs []any
		if len(args) > 1 && args[1] != nil {
			list, ok := args[1].([]any)
			if !ok {
				return nil, errors.TypeMismatch(errors.PhaseHost, name, "argument list", args[1])
			}
			callArgs = list
		}
		out, err := s.rt.call(ctx, name, obj.Method(idx), callArgs)
		if err != nil {
			return nil, err
		}
		return s.exportAll(out), nil

	case iabridge.OpGetProperty:
		name, err := argString(args, 0, "property name")
		if err != nil {
			return nil, err
		}
		f, ok := info.properties[name]
		if !ok {
			return nil, errors.MemberNotFound(errors.PhaseHost, id, name, "property")
		}
		return s.export(obj.Elem().FieldByIndex(f.index)), nil

	case iabridge.OpSetProperty:
		name, err := argString(args, 0, "property name")
		if err != nil {
			return nil, err
		}
		f, ok := info.properties[name]
		if !ok {
			return nil, errors.MemberNotFound(errors.PhaseHost, id, name, "property")
		}
		if f.readOnly {
			return nil, errors.New(errors.PhaseHost, errors.KindUnsupported).
				Object(id).
				Member(name).
				Detail("property is read-only").
				Build()
		}
		var value any
		if len(args) > 1 {
			value = args[1]
		}
		v, err := s.rt.coerce(value, f.typ)
		if err != nil {
			return nil, err
		}
		obj.Elem().FieldByIndex(f.index).Set(v)
		return nil, nil

	case iabridge.OpAddEventListener:
		name, err := argString(args, 0, "event name")
		if err != nil {
			return nil, err
		}
		idx, ok := info.events[name]
		if !ok {
			return nil, errors.MemberNotFound(errors.PhaseHost, id, name, "event")
		}
		ev := obj.Elem().FieldByIndex(idx).Addr().Interface().(*Event)
		return s.addListener(id, name, ev)

	default:
		return nil, errors.NotFound(errors.PhaseHost, "operation", op)
	}
}

func (s *Session) addListener(object, event string, ev *Event) (string, error) {
	listenerID := uuid.NewString()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return "", errors.Closed(errors.PhaseHost, "session")
	}
	s.listeners[listenerID] = listenerEntry{object: object, event: ev}
	s.mu.Unlock()

	ev.add(listenerID, func(args []any) { s.fire(listenerID, args) })
	s.log.Debug("listener added",
		zap.String("listener", listenerID), zap.String("object", object), zap.String("event", event))
	return listenerID, nil
}

// removeListener detaches a listener. Unknown IDs are ignored.
func (s *Session) removeListener(listenerID string) {
	s.mu.Lock()
	l, ok := s.listeners[listenerID]
	delete(s.listeners, listenerID)
	s.mu.Unlock()

	if ok {
		l.event.remove(listenerID)
		s.log.Debug("listener removed", zap.String("listener", listenerID))
	}
}

func (s *Session) dropObjectListeners(object string) {
	s.mu.Lock()
	var ids []string
	for id, l := range s.listeners {
		if l.object == object {
			ids = append(ids, id)
		}
	}
	s.mu.Unlock()

	for _, id := range ids {
		s.removeListener(id)
	}
}

// Listeners returns the number of listeners added through the session.
func (s *Session) Listeners() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.listeners)
}

func (s *Session) fire(listenerID string, args []any) {
	n := s.attached()
	if n == nil {
		s.log.Debug("dropping event for detached session", zap.String("listener", listenerID))
		return
	}
	n.FireEvent(listenerID, s.exportArgs(args))
}

// ObjectHandle is a session-bound reference to a runtime object.
// It implements iabridge.Handle.
type ObjectHandle struct {
	session *Session
	id      string
}

var _ iabridge.Handle = (*ObjectHandle)(nil)

// ObjectID returns the runtime object ID.
func (h *ObjectHandle) ObjectID() string {
	return h.id
}

// InvokeMethod runs a per-object operation.
func (h *ObjectHandle) InvokeMethod(ctx context.Context, op string, args ...any) (any, error) {
	return h.session.invokeObject(ctx, h.id, op, args)
}

// Ref returns the wire reference for the object.
func (h *ObjectHandle) Ref() iabridge.Ref {
	return iabridge.Ref{ID: h.id}
}
