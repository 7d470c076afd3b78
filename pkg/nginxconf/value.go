package nginxconf

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
)

// ValueKind identifies the shape held by a Value.
type ValueKind int

const (
	StringKind ValueKind = iota
	IntKind
	BoolKind
	ListKind
	MapKind
)

// Value is the typed union stored in the global section of a config model.
// Directive arguments arrive as strings; the builder coerces obvious
// integers and on/off switches and keeps everything else verbatim.
type Value struct {
	kind ValueKind
	str  string
	num  int
	b    bool
	list []string
	m    map[string]string
}

func StringValue(s string) Value { return Value{kind: StringKind, str: s} }

func IntValue(n int) Value { return Value{kind: IntKind, num: n} }

func BoolValue(b bool) Value { return Value{kind: BoolKind, b: b} }

func ListValue(items ...string) Value {
	cp := make([]string, len(items))
	copy(cp, items)
	return Value{kind: ListKind, list: cp}
}

func MapValue(m map[string]string) Value {
	cp := make(map[string]string, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return Value{kind: MapKind, m: cp}
}

func (v Value) Kind() ValueKind { return v.kind }

// AsString renders any value as text. Lists join with single spaces and
// maps join sorted k=v pairs, so the result is stable.
func (v Value) AsString() string {
	switch v.kind {
	case IntKind:
		return strconv.Itoa(v.num)
	case BoolKind:
		return strconv.FormatBool(v.b)
	case ListKind:
		return strings.Join(v.list, " ")
	case MapKind:
		pairs := make([]string, 0, len(v.m))
		for k, val := range v.m {
			pairs = append(pairs, k+"="+val)
		}
		sort.Strings(pairs)
		return strings.Join(pairs, " ")
	default:
		return v.str
	}
}

// AsList returns the items of a list value, or the single-element rendering
// of any other kind.
func (v Value) AsList() []string {
	if v.kind == ListKind {
		cp := make([]string, len(v.list))
		copy(cp, v.list)
		return cp
	}
	return []string{v.AsString()}
}

// AsMap returns a copy of a map value, or nil for every other kind.
func (v Value) AsMap() map[string]string {
	if v.kind != MapKind {
		return nil
	}
	cp := make(map[string]string, len(v.m))
	for k, val := range v.m {
		cp[k] = val
	}
	return cp
}

// Int reports the numeric value and whether the value is an integer.
func (v Value) Int() (int, bool) {
	if v.kind == IntKind {
		return v.num, true
	}
	return 0, false
}

// Bool reports the boolean value and whether the value is a boolean.
func (v Value) Bool() (bool, bool) {
	if v.kind == BoolKind {
		return v.b, true
	}
	return false, false
}

// Append returns a list value extended with items. Non-list receivers are
// converted to a one-element list first.
func (v Value) Append(items ...string) Value {
	base := v.AsList()
	out := make([]string, 0, len(base)+len(items))
	out = append(out, base...)
	out = append(out, items...)
	return Value{kind: ListKind, list: out}
}

// MarshalJSON emits the natural JSON form of each kind.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case IntKind:
		return json.Marshal(v.num)
	case BoolKind:
		return json.Marshal(v.b)
	case ListKind:
		return json.Marshal(v.list)
	case MapKind:
		return json.Marshal(v.m)
	default:
		return json.Marshal(v.str)
	}
}
