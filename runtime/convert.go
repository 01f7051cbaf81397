package runtime

import (
	"context"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"

	iabridge "github.com/wippyai/ia-bridge"
	"github.com/wippyai/ia-bridge/errors"
)

var (
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
	refType     = reflect.TypeOf(iabridge.Ref{})
)

// refID reports whether v is an object reference and returns its ID.
// References arrive as iabridge.Ref in process and as a map over JSON.
func refID(v any) (string, bool) {
	switch r := v.(type) {
	case iabridge.Ref:
		return r.ID, true
	case *iabridge.Ref:
		if r != nil {
			return r.ID, true
		}
	case map[string]any:
		if len(r) == 1 {
			id, ok := r[iabridge.RefKey].(string)
			return id, ok
		}
	case iabridge.Handle:
		return r.ObjectID(), true
	}
	return "", false
}

// coerce converts an inbound argument to type t.
func (rt *Runtime) coerce(v any, t reflect.Type) (reflect.Value, error) {
	if v == nil {
		return reflect.Zero(t), nil
	}
	if id, ok := refID(v); ok && t != refType {
		obj, err := rt.objectValue(id)
		if err != nil {
			return reflect.Value{}, err
		}
		v = obj.Interface()
	}

	src := reflect.ValueOf(v)
	if src.Type().AssignableTo(t) {
		return src, nil
	}
	if numeric(src.Kind()) && numeric(t.Kind()) {
		if err := checkNumeric(src, t); err != nil {
			return reflect.Value{}, err
		}
		return src.Convert(t), nil
	}
	if src.Kind() == reflect.String && t.Kind() == reflect.String {
		return src.Convert(t), nil
	}

	out := reflect.New(t)
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out.Interface(),
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.ComposeDecodeHookFunc(rt.refHook, numericHook),
	})
	if err != nil {
		return reflect.Value{}, err
	}
	if err := dec.Decode(v); err != nil {
		return reflect.Value{}, errors.New(errors.PhaseHost, errors.KindTypeMismatch).
			Value(v).
			Detail("cannot convert %T to %s", v, t).
			Cause(err).
			Build()
	}
	return out.Elem(), nil
}

// refHook resolves object references nested inside decoded values.
func (rt *Runtime) refHook(from, to reflect.Type, data any) (any, error) {
	if !isObjectType(to) {
		return data, nil
	}
	id, ok := refID(data)
	if !ok {
		return data, nil
	}
	obj, err := rt.objectValue(id)
	if err != nil {
		return nil, err
	}
	return obj.Interface(), nil
}

// numericHook applies checkNumeric to numbers nested in decoded values.
func numericHook(from, to reflect.Type, data any) (any, error) {
	if data == nil || !numeric(from.Kind()) || !numeric(to.Kind()) {
		return data, nil
	}
	if err := checkNumeric(reflect.ValueOf(data), to); err != nil {
		return nil, err
	}
	return data, nil
}

// checkNumeric rejects a conversion of src to t that would change its value:
// fractions, NaN and infinities going to integers, negatives going to
// unsigned types, and anything outside the range of t.
func checkNumeric(src reflect.Value, t reflect.Type) error {
	const (
		two63 = 1 << 63
		two64 = 1 << 64
	)
	zero := reflect.Zero(t)

	var lost bool
	switch {
	case signed(t.Kind()):
		switch {
		case floating(src.Kind()):
			f := src.Float()
			lost = f != math.Trunc(f) || f < -two63 || f >= two63 || zero.OverflowInt(int64(f))
		case unsigned(src.Kind()):
			u := src.Uint()
			lost = u >= two63 || zero.OverflowInt(int64(u))
		default:
			lost = zero.OverflowInt(src.Int())
		}
	case unsigned(t.Kind()):
		switch {
		case floating(src.Kind()):
			f := src.Float()
			lost = f != math.Trunc(f) || f < 0 || f >= two64 || zero.OverflowUint(uint64(f))
		case signed(src.Kind()):
			i := src.Int()
			lost = i < 0 || zero.OverflowUint(uint64(i))
		default:
			lost = zero.OverflowUint(src.Uint())
		}
	case floating(t.Kind()) && floating(src.Kind()):
		f := src.Float()
		lost = !math.IsInf(f, 0) && !math.IsNaN(f) && zero.OverflowFloat(f)
	}

	if lost {
		return errors.New(errors.PhaseHost, errors.KindTypeMismatch).
			Value(src.Interface()).
			Detail("%v does not fit %s", src.Interface(), t).
			Build()
	}
	return nil
}

func signed(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return true
	}
	return false
}

func unsigned(k reflect.Kind) bool {
	switch k {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return true
	}
	return false
}

func floating(k reflect.Kind) bool {
	return k == reflect.Float32 || k == reflect.Float64
}

func numeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// call invokes fn with coerced args. A leading context.Context parameter
// receives ctx; a trailing error result becomes the call error.
func (rt *Runtime) call(ctx context.Context, name string, fn reflect.Value, args []any) (result []reflect.Value, err error) {
	ft := fn.Type()

	var in []reflect.Value
	first := 0
	if ft.NumIn() > 0 && ft.In(0) == contextType {
		in = append(in, reflect.ValueOf(ctx))
		first = 1
	}

	fixed := ft.NumIn() - first
	if ft.IsVariadic() {
		fixed--
	}
	if len(args) < fixed || (!ft.IsVariadic() && len(args) > fixed) {
		return nil, errors.New(errors.PhaseHost, errors.KindInvalidInput).
			Member(name).
			Detail("expected %d arguments, got %d", fixed, len(args)).
			Build()
	}

	for i, a := range args {
		var pt reflect.Type
		if ft.IsVariadic() && i >= fixed {
			pt = ft.In(ft.NumIn() - 1).Elem()
		} else {
			pt = ft.In(first + i)
		}
		v, err := rt.coerce(a, pt)
		if err != nil {
			return nil, errors.New(errors.PhaseHost, errors.KindTypeMismatch).
				Member(name).
				Detail("argument %d", i).
				Cause(err).
				Build()
		}
		in = append(in, v)
	}

	defer func() {
		if r := recover(); r != nil {
			err = errors.New(errors.PhaseHost, errors.KindRemote).
				Member(name).
				Detail("panic: %v", r).
				Build()
		}
	}()
	out := fn.Call(in)

	if n := len(out); n > 0 && ft.Out(n-1) == errorType {
		if e := out[n-1]; !e.IsNil() {
			return nil, e.Interface().(error)
		}
		out = out[:n-1]
	}
	return out, nil
}

// export converts an outbound value. Pointers to structs become object
// handles bound to the session; slices and string-keyed maps are converted
// element by element.
func (s *Session) export(v reflect.Value) any {
	if !v.IsValid() {
		return nil
	}
	switch v.Kind() {
	case reflect.Interface:
		if v.IsNil() {
			return nil
		}
		return s.export(v.Elem())
	case reflect.Ptr:
		if v.IsNil() {
			return nil
		}
		if isObjectType(v.Type()) {
			return s.handle(s.rt.intern(v))
		}
		return s.export(v.Elem())
	case reflect.Slice, reflect.Array:
		if v.Kind() == reflect.Slice && v.IsNil() {
			return nil
		}
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return v.Interface()
		}
		out := make([]any, v.Len())
		for i := range out {
			out[i] = s.export(v.Index(i))
		}
		return out
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String || v.IsNil() {
			return v.Interface()
		}
		out := make(map[string]any, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = s.export(iter.Value())
		}
		return out
	case reflect.Struct:
		if !holdsObjects(v.Type(), make(map[reflect.Type]bool)) {
			return v.Interface()
		}
		return s.exportStruct(v)
	default:
		return v.Interface()
	}
}

// exportStruct converts a struct value that carries model pointers into a
// map keyed by JSON field name, exporting each field.
func (s *Session) exportStruct(v reflect.Value) map[string]any {
	t := v.Type()
	out := make(map[string]any, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() || f.Type == eventType {
			continue
		}
		name := f.Name
		if tag, ok := f.Tag.Lookup("json"); ok {
			tag, _, _ = strings.Cut(tag, ",")
			if tag == "-" {
				continue
			}
			if tag != "" {
				name = tag
			}
		}
		out[name] = s.export(v.Field(i))
	}
	return out
}

// holdsObjects reports whether values of t can contain model pointers.
func holdsObjects(t reflect.Type, seen map[reflect.Type]bool) bool {
	if seen[t] {
		return false
	}
	seen[t] = true
	switch t.Kind() {
	case reflect.Ptr:
		return isObjectType(t) || holdsObjects(t.Elem(), seen)
	case reflect.Slice, reflect.Array, reflect.Map:
		return holdsObjects(t.Elem(), seen)
	case reflect.Interface:
		return true
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			if f := t.Field(i); f.IsExported() && holdsObjects(f.Type, seen) {
				return true
			}
		}
	}
	return false
}

func (s *Session) exportAll(values []reflect.Value) any {
	switch len(values) {
	case 0:
		return nil
	case 1:
		return s.export(values[0])
	default:
		out := make([]any, len(values))
		for i, v := range values {
			out[i] = s.export(v)
		}
		return out
	}
}

func (s *Session) exportArgs(args []any) []any {
	out := make([]any, len(args))
	for i, a := range args {
		out[i] = s.export(reflect.ValueOf(a))
	}
	return out
}

func argString(args []any, i int, what string) (string, error) {
	if i >= len(args) {
		return "", errors.InvalidInput(errors.PhaseHost, fmt.Sprintf("missing %s", what))
	}
	s, ok := args[i].(string)
	if !ok {
		return "", errors.TypeMismatch(errors.PhaseHost, what, "string", args[i])
	}
	return s, nil
}
