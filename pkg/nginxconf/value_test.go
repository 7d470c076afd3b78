package nginxconf

import (
	"encoding/json"
	"testing"
)

func TestValueKindsAndAsString(t *testing.T) {
	cases := []struct {
		name string
		v    Value
		kind ValueKind
		want string
	}{
		{name: "string", v: StringValue("auto"), kind: StringKind, want: "auto"},
		{name: "int", v: IntValue(8080), kind: IntKind, want: "8080"},
		{name: "bool", v: BoolValue(true), kind: BoolKind, want: "true"},
		{name: "list", v: ListValue("a", "b"), kind: ListKind, want: "a b"},
		{name: "map", v: MapValue(map[string]string{"b": "2", "a": "1"}), kind: MapKind, want: "a=1 b=2"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.v.Kind() != tc.kind {
				t.Fatalf("kind: got %d, want %d", tc.v.Kind(), tc.kind)
			}
			if got := tc.v.AsString(); got != tc.want {
				t.Fatalf("AsString: got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestValueAccessors(t *testing.T) {
	if n, ok := IntValue(4).Int(); !ok || n != 4 {
		t.Fatalf("Int on int value: %d %v", n, ok)
	}
	if _, ok := StringValue("4").Int(); ok {
		t.Fatalf("Int on string value should not be ok")
	}
	if b, ok := BoolValue(false).Bool(); !ok || b {
		t.Fatalf("Bool on bool value: %v %v", b, ok)
	}
	if _, ok := IntValue(1).Bool(); ok {
		t.Fatalf("Bool on int value should not be ok")
	}
	got := StringValue("one").AsList()
	if len(got) != 1 || got[0] != "one" {
		t.Fatalf("AsList on string: %v", got)
	}
	if m := StringValue("x").AsMap(); m != nil {
		t.Fatalf("AsMap on string should be nil, got %v", m)
	}
}

func TestValueAppend(t *testing.T) {
	v := ListValue("a").Append("b", "c")
	if got := v.AsString(); got != "a b c" {
		t.Fatalf("append to list: %q", got)
	}
	v = IntValue(80).Append("443")
	if v.Kind() != ListKind || v.AsString() != "80 443" {
		t.Fatalf("append to int should build a list: %q", v.AsString())
	}
}

func TestValueCopiesInput(t *testing.T) {
	src := []string{"a", "b"}
	v := ListValue(src...)
	src[0] = "mutated"
	if got := v.AsList()[0]; got != "a" {
		t.Fatalf("value should not share the caller's slice, got %q", got)
	}
}

func TestValueMarshalJSON(t *testing.T) {
	cases := []struct {
		v    Value
		want string
	}{
		{v: StringValue("auto"), want: `"auto"`},
		{v: IntValue(8), want: `8`},
		{v: BoolValue(true), want: `true`},
		{v: ListValue("a", "b"), want: `["a","b"]`},
	}
	for _, tc := range cases {
		b, err := json.Marshal(tc.v)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		if string(b) != tc.want {
			t.Fatalf("marshal: got %s, want %s", b, tc.want)
		}
	}
}
