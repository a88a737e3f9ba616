// Package shortlist models the user's shortlisted universities as an ordered
// set. On the wire it is a single ", "-joined string; only Parse and String
// cross that boundary.
package shortlist

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Delimiter joins names in the serialized form.
const Delimiter = ", "

// Set is an insertion-ordered set of university names. The zero value is empty.
// Set values are immutable: Toggle returns a new Set.
type Set struct {
	names []string
}

// Parse splits s on commas, trims each piece, drops empties and keeps the
// first occurrence of duplicates.
func Parse(s string) Set {
	var out Set
	for _, part := range strings.Split(s, ",") {
		name := strings.TrimSpace(part)
		if name == "" || out.Contains(name) {
			continue
		}
		out.names = append(out.names, name)
	}
	return out
}

// Of builds a Set from names using the same normalization as Parse. A name
// containing a comma becomes several members, exactly as it would after a
// round trip through String and Parse.
func Of(names ...string) Set {
	return Parse(strings.Join(names, ","))
}

// ValidName reports whether name can be stored as a single member: non-blank
// and free of the comma that separates members on the wire.
func ValidName(name string) bool {
	name = strings.TrimSpace(name)
	return name != "" && !strings.Contains(name, ",")
}

// String serializes the set for the wire.
func (s Set) String() string {
	return strings.Join(s.names, Delimiter)
}

// Names returns a copy of the members in order.
func (s Set) Names() []string {
	if len(s.names) == 0 {
		return nil
	}
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Len returns the number of members.
func (s Set) Len() int { return len(s.names) }

// Contains reports whether name (trimmed) is a member.
func (s Set) Contains(name string) bool {
	name = strings.TrimSpace(name)
	for _, n := range s.names {
		if n == name {
			return true
		}
	}
	return false
}

// Toggle removes name if present, otherwise appends it. added reports which
// happened. A name failing ValidName leaves the set unchanged.
func (s Set) Toggle(name string) (next Set, added bool) {
	if !ValidName(name) {
		return s, false
	}
	name = strings.TrimSpace(name)
	if s.Contains(name) {
		kept := make([]string, 0, len(s.names)-1)
		for _, n := range s.names {
			if n != name {
				kept = append(kept, n)
			}
		}
		return Set{names: kept}, false
	}
	grown := make([]string, len(s.names), len(s.names)+1)
	copy(grown, s.names)
	return Set{names: append(grown, name)}, true
}

// Equal reports whether both sets hold the same names in the same order.
func (s Set) Equal(o Set) bool {
	if len(s.names) != len(o.names) {
		return false
	}
	for i := range s.names {
		if s.names[i] != o.names[i] {
			return false
		}
	}
	return true
}

// MarshalJSON encodes the set as its delimited string.
func (s Set) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON accepts the delimited string, a JSON array of names, or null.
func (s *Set) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case nil:
		*s = Set{}
	case string:
		*s = Parse(v)
	case []any:
		names := make([]string, 0, len(v))
		for _, item := range v {
			names = append(names, fmt.Sprint(item))
		}
		*s = Of(names...)
	default:
		return fmt.Errorf("shortlist: unsupported JSON type %T", raw)
	}
	return nil
}

// Toggle applies a membership toggle to the serialized form.
func Toggle(s, name string) string {
	next, _ := Parse(s).Toggle(name)
	return next.String()
}

// IsMember reports whether name is in the serialized shortlist s.
func IsMember(s, name string) bool {
	return Parse(s).Contains(name)
}
