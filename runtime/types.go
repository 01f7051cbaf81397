package runtime

import (
	"reflect"
	"sort"
	"strings"
	"sync"
)

const (
	itemMethod    = "Item"
	setItemMethod = "SetItem"
	getItemName   = "get_Item"
	setItemName   = "set_Item"
)

type fieldInfo struct {
	index    []int
	typ      reflect.Type
	readOnly bool
}

// typeInfo is the member set of one model type.
type typeInfo struct {
	id          uint32
	name        string
	methods     map[string]int // remote name -> method index on the pointer type
	methodNames []string
	properties  map[string]fieldInfo
	events      map[string][]int
}

type typeRegistry struct {
	mu     sync.RWMutex
	types  map[reflect.Type]*typeInfo
	nextID uint32
}

func newTypeRegistry() *typeRegistry {
	return &typeRegistry{types: make(map[reflect.Type]*typeInfo)}
}

// lookup returns the member set of ptrType, a pointer to a struct.
func (r *typeRegistry) lookup(ptrType reflect.Type) *typeInfo {
	r.mu.RLock()
	info, ok := r.types[ptrType]
	r.mu.RUnlock()
	if ok {
		return info
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if info, ok := r.types[ptrType]; ok {
		return info
	}
	r.nextID++
	info = reflectType(r.nextID, ptrType)
	r.types[ptrType] = info
	return info
}

func reflectType(id uint32, ptrType reflect.Type) *typeInfo {
	st := ptrType.Elem()
	info := &typeInfo{
		id:         id,
		name:       st.Name(),
		methods:    make(map[string]int),
		properties: make(map[string]fieldInfo),
		events:     make(map[string][]int),
	}

	for i := 0; i < ptrType.NumMethod(); i++ {
		m := ptrType.Method(i)
		name := m.Name
		switch name {
		case itemMethod:
			name = getItemName
		case setItemMethod:
			name = setItemName
		}
		info.methods[name] = i
		info.methodNames = append(info.methodNames, name)
	}
	sort.Strings(info.methodNames)

	for i := 0; i < st.NumField(); i++ {
		f := st.Field(i)
		if !f.IsExported() {
			continue
		}
		tag := f.Tag.Get("ia")
		if tag == "-" {
			continue
		}
		if f.Type == eventType {
			info.events[f.Name] = f.Index
			continue
		}
		info.properties[f.Name] = fieldInfo{
			index:    f.Index,
			typ:      f.Type,
			readOnly: hasTagOption(tag, "readonly"),
		}
	}
	return info
}

func hasTagOption(tag, option string) bool {
	for _, opt := range strings.Split(tag, ",") {
		if strings.TrimSpace(opt) == option {
			return true
		}
	}
	return false
}

// propertyMeta returns the metadata GetProperties reports.
func (t *typeInfo) propertyMeta() map[string]map[string]any {
	out := make(map[string]map[string]any, len(t.properties))
	for name, f := range t.properties {
		out[name] = map[string]any{
			"type":     typeName(f.typ),
			"canWrite": !f.readOnly,
		}
	}
	return out
}

func (t *typeInfo) eventMeta() map[string]map[string]any {
	out := make(map[string]map[string]any, len(t.events))
	for name := range t.events {
		out[name] = map[string]any{}
	}
	return out
}

// typeName is the short type name reported in property metadata.
func typeName(t reflect.Type) string {
	switch t.Kind() {
	case reflect.Ptr:
		if t.Elem().Kind() == reflect.Struct {
			return t.Elem().Name()
		}
		return typeName(t.Elem())
	case reflect.Slice, reflect.Array:
		return "[]" + typeName(t.Elem())
	case reflect.Map:
		return "map[" + typeName(t.Key()) + "]" + typeName(t.Elem())
	case reflect.Interface:
		return "any"
	default:
		if t.Name() != "" {
			return t.Name()
		}
		return t.String()
	}
}

func isObjectType(t reflect.Type) bool {
	return t.Kind() == reflect.Ptr && t.Elem().Kind() == reflect.Struct && t.Elem() != eventType
}
