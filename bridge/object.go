package bridge

import (
	"context"
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"sync"

	iabridge "github.com/wippyai/ia-bridge"
	"github.com/wippyai/ia-bridge/errors"
)

// Local names of the indexer methods.
const (
	indexGetMethod = "get_Item"
	indexSetMethod = "set_Item"
)

// Method is a bound remote method.
type Method func(ctx context.Context, args ...any) (any, error)

// SubscribeFunc attaches a listener to a bound remote event.
type SubscribeFunc func(ctx context.Context, listener Listener) (Unsubscribe, error)

// MemberKind classifies a resolved member name.
type MemberKind int

const (
	// MemberNone means the name matches nothing on the object.
	MemberNone MemberKind = iota
	// MemberField is a value stored locally on the proxy.
	MemberField
	// MemberMethod is a remote method.
	MemberMethod
	// MemberProperty is a remote property.
	MemberProperty
	// MemberEvent is a remote event.
	MemberEvent
)

func (k MemberKind) String() string {
	switch k {
	case MemberField:
		return "field"
	case MemberMethod:
		return "method"
	case MemberProperty:
		return "property"
	case MemberEvent:
		return "event"
	default:
		return "none"
	}
}

// RemoteObject is the local proxy of a remote object. Member access is
// resolved against the descriptors captured when the object was wrapped.
type RemoteObject struct {
	bridge *Bridge
	handle iabridge.Handle
	desc   Descriptors

	supportsIndexRead  bool
	supportsIndexWrite bool

	mu     sync.RWMutex
	fields map[string]any
}

func newRemoteObject(b *Bridge, h iabridge.Handle, desc Descriptors) *RemoteObject {
	_, read := desc.Methods[indexGetMethod]
	_, write := desc.Methods[indexSetMethod]
	return &RemoteObject{
		bridge:             b,
		handle:             h,
		desc:               desc,
		supportsIndexRead:  read,
		supportsIndexWrite: write,
		fields:             make(map[string]any),
	}
}

// ID returns the host-assigned object ID.
func (o *RemoteObject) ID() string {
	return o.handle.ObjectID()
}

// Handle returns the wrapped remote handle.
func (o *RemoteObject) Handle() iabridge.Handle {
	return o.handle
}

// Descriptors returns the member set captured at wrap time.
func (o *RemoteObject) Descriptors() Descriptors {
	return o.desc
}

// Kind reports how name resolves on this object.
func (o *RemoteObject) Kind(name string) MemberKind {
	o.mu.RLock()
	_, local := o.fields[name]
	o.mu.RUnlock()

	switch {
	case local:
		return MemberField
	case o.desc.Methods[name] != "":
		return MemberMethod
	case o.desc.Properties[name].OriginalName != "":
		return MemberProperty
	case o.desc.Events[name].OriginalName != "":
		return MemberEvent
	default:
		return MemberNone
	}
}

// Has reports whether name resolves to a field, method, property or event.
func (o *RemoteObject) Has(name string) bool {
	return o.Kind(name) != MemberNone
}

// Members returns the sorted local names of methods, properties and events.
func (o *RemoteObject) Members() (methods, properties, events []string) {
	for name := range o.desc.Methods {
		methods = append(methods, name)
	}
	for name := range o.desc.Properties {
		properties = append(properties, name)
	}
	for name := range o.desc.Events {
		events = append(events, name)
	}
	sort.Strings(methods)
	sort.Strings(properties)
	sort.Strings(events)
	return methods, properties, events
}

// Get resolves name the way member reads on the original proxy do:
// local field, method, property, event, indexer, then nil.
// A name that matches nothing yields nil and no error.
func (o *RemoteObject) Get(ctx context.Context, name string) (any, error) {
	o.mu.RLock()
	v, ok := o.fields[name]
	o.mu.RUnlock()
	if ok {
		return v, nil
	}

	if original, ok := o.desc.Methods[name]; ok {
		return o.method(original), nil
	}
	if p, ok := o.desc.Properties[name]; ok {
		return o.getProperty(ctx, p.OriginalName)
	}
	if e, ok := o.desc.Events[name]; ok {
		return o.subscriber(e.OriginalName), nil
	}
	if o.supportsIndexRead {
		return o.method(o.desc.Methods[indexGetMethod])(ctx, name)
	}
	return nil, nil
}

// Set resolves name the way member writes on the original proxy do:
// a property is written remotely, an event subscribes value as a listener,
// anything else is stored as a local field.
func (o *RemoteObject) Set(ctx context.Context, name string, value any) error {
	if p, ok := o.desc.Properties[name]; ok {
		return o.setProperty(ctx, p.OriginalName, value)
	}
	if e, ok := o.desc.Events[name]; ok {
		listener, ok := asListener(value)
		if !ok {
			return errors.TypeMismatch(errors.PhaseInvoke, name, "listener", value)
		}
		_, err := o.subscribe(ctx, e.OriginalName, listener)
		return err
	}

	o.mu.Lock()
	o.fields[name] = value
	o.mu.Unlock()
	return nil
}

// Invoke calls the method with the given local name.
func (o *RemoteObject) Invoke(ctx context.Context, name string, args ...any) (any, error) {
	original, ok := o.desc.Methods[name]
	if !ok {
		return nil, errors.MemberNotFound(errors.PhaseInvoke, o.ID(), name, "method")
	}
	return o.method(original)(ctx, args...)
}

// GetProperty reads the property with the given local name.
func (o *RemoteObject) GetProperty(ctx context.Context, name string) (any, error) {
	p, ok := o.desc.Properties[name]
	if !ok {
		return nil, errors.MemberNotFound(errors.PhaseInvoke, o.ID(), name, "property")
	}
	return o.getProperty(ctx, p.OriginalName)
}

// SetProperty writes the property with the given local name.
func (o *RemoteObject) SetProperty(ctx context.Context, name string, value any) error {
	p, ok := o.desc.Properties[name]
	if !ok {
		return errors.MemberNotFound(errors.PhaseInvoke, o.ID(), name, "property")
	}
	return o.setProperty(ctx, p.OriginalName, value)
}

// Subscribe attaches listener to the event with the given local name.
func (o *RemoteObject) Subscribe(ctx context.Context, name string, listener Listener) (Unsubscribe, error) {
	e, ok := o.desc.Events[name]
	if !ok {
		return nil, errors.MemberNotFound(errors.PhaseInvoke, o.ID(), name, "event")
	}
	return o.subscribe(ctx, e.OriginalName, listener)
}

// Index reads an item through the object's indexer.
func (o *RemoteObject) Index(ctx context.Context, key any) (any, error) {
	if !o.supportsIndexRead {
		return nil, errors.Unsupported(errors.PhaseInvoke, "object has no indexer")
	}
	return o.method(o.desc.Methods[indexGetMethod])(ctx, key)
}

// SetIndex writes an item through the object's indexer.
func (o *RemoteObject) SetIndex(ctx context.Context, key, value any) error {
	if !o.supportsIndexWrite {
		return errors.Unsupported(errors.PhaseInvoke, "object has no writable indexer")
	}
	_, err := o.method(o.desc.Methods[indexSetMethod])(ctx, key, value)
	return err
}

func (o *RemoteObject) method(original string) Method {
	return func(ctx context.Context, args ...any) (any, error) {
		result, err := o.handle.InvokeMethod(ctx, iabridge.OpInvokeMethod, original, o.bridge.toHostArgs(args))
		if err != nil {
			return nil, errors.Remote(errors.PhaseInvoke, o.ID(), original, err)
		}
		return o.bridge.toLocal(ctx, result)
	}
}

func (o *RemoteObject) getProperty(ctx context.Context, original string) (any, error) {
	result, err := o.handle.InvokeMethod(ctx, iabridge.OpGetProperty, original)
	if err != nil {
		return nil, errors.Remote(errors.PhaseInvoke, o.ID(), original, err)
	}
	return o.bridge.toLocal(ctx, result)
}

func (o *RemoteObject) setProperty(ctx context.Context, original string, value any) error {
	if _, err := o.handle.InvokeMethod(ctx, iabridge.OpSetProperty, original, o.bridge.toHost(value)); err != nil {
		return errors.Remote(errors.PhaseInvoke, o.ID(), original, err)
	}
	return nil
}

func (o *RemoteObject) subscriber(original string) SubscribeFunc {
	return func(ctx context.Context, listener Listener) (Unsubscribe, error) {
		return o.subscribe(ctx, original, listener)
	}
}

// subscribe registers listener with the host and returns the function that
// removes it again.
func (o *RemoteObject) subscribe(ctx context.Context, original string, listener Listener) (Unsubscribe, error) {
	if listener == nil {
		return nil, errors.InvalidInput(errors.PhaseInvoke, "nil listener")
	}
	raw, err := o.handle.InvokeMethod(ctx, iabridge.OpAddEventListener, original)
	if err != nil {
		return nil, errors.Remote(errors.PhaseInvoke, o.ID(), original, err)
	}
	listenerID, err := listenerIDOf(raw)
	if err != nil {
		return nil, err
	}
	if err := o.bridge.addListener(listenerID, listener); err != nil {
		return nil, err
	}

	var once sync.Once
	return func() {
		once.Do(func() { o.bridge.removeListener(listenerID) })
	}, nil
}

func asListener(v any) (Listener, bool) {
	switch fn := v.(type) {
	case Listener:
		return fn, fn != nil
	case func(...any):
		return fn, fn != nil
	default:
		return nil, false
	}
}

// listenerIDOf normalizes the listener ID returned by AddEventListener.
// Hosts may report it as a string or as an integral number.
func listenerIDOf(raw any) (string, error) {
	switch id := raw.(type) {
	case string:
		if id != "" {
			return id, nil
		}
	case int:
		return strconv.Itoa(id), nil
	case int64:
		return strconv.FormatInt(id, 10), nil
	case uint32:
		return strconv.FormatUint(uint64(id), 10), nil
	case uint64:
		return strconv.FormatUint(id, 10), nil
	case float64:
		if id == math.Trunc(id) {
			return strconv.FormatFloat(id, 'f', 0, 64), nil
		}
	case json.Number:
		return id.String(), nil
	}
	return "", errors.New(errors.PhaseInvoke, errors.KindInvalidData).
		Value(raw).
		Detail("invalid listener ID %v (%T)", raw, raw).
		Build()
}
