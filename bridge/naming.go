package bridge

import (
	"unicode"
	"unicode/utf8"
)

// Member describes a property or event as reported by the host.
type Member struct {
	Meta         map[string]any
	OriginalName string
}

// Descriptors is the member set of a remote object, keyed by local name.
// It is built once when the object is wrapped and never changes.
type Descriptors struct {
	Methods    map[string]string
	Properties map[string]Member
	Events     map[string]Member
}

// NameToLocalCase lowercases the first character of name and leaves the rest
// unchanged: GetItem -> getItem.
func NameToLocalCase(name string) string {
	r, size := utf8.DecodeRuneInString(name)
	if size == 0 || !unicode.IsUpper(r) {
		return name
	}
	return string(unicode.ToLower(r)) + name[size:]
}

// MethodDescriptors maps the local name of every method to its original name.
func MethodDescriptors(names []string) map[string]string {
	result := make(map[string]string, len(names))
	for _, name := range names {
		result[NameToLocalCase(name)] = name
	}
	return result
}

// MemberDescriptors keys every property or event by its local name and
// annotates its metadata with the original name.
func MemberDescriptors(members map[string]map[string]any) map[string]Member {
	result := make(map[string]Member, len(members))
	for name, meta := range members {
		annotated := make(map[string]any, len(meta)+1)
		for k, v := range meta {
			annotated[k] = v
		}
		annotated["originalName"] = name
		result[NameToLocalCase(name)] = Member{
			OriginalName: name,
			Meta:         annotated,
		}
	}
	return result
}
