// Package jsonvalue models request and response payloads as a closed set of
// JSON variants so that payload walkers (sanitization, decoding) can switch
// over every shape explicitly instead of recursing over interface{} maps.
package jsonvalue

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
)

// Kind identifies the variant held by a Value.
type Kind int

const (
	NullKind Kind = iota
	BoolKind
	NumberKind
	StringKind
	ArrayKind
	ObjectKind
)

func (k Kind) String() string {
	switch k {
	case NullKind:
		return "null"
	case BoolKind:
		return "bool"
	case NumberKind:
		return "number"
	case StringKind:
		return "string"
	case ArrayKind:
		return "array"
	case ObjectKind:
		return "object"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Value is one of Null, Bool, Number, String, Array or Object.
// A nil Value is treated as Null everywhere in this package.
type Value interface {
	Kind() Kind
	json.Marshaler
	isValue()
}

type (
	Null   struct{}
	Bool   bool
	Number json.Number // literal kept as received so integers survive a round trip
	String string
	Array  []Value
	Object map[string]Value
)

func (Null) Kind() Kind   { return NullKind }
func (Bool) Kind() Kind   { return BoolKind }
func (Number) Kind() Kind { return NumberKind }
func (String) Kind() Kind { return StringKind }
func (Array) Kind() Kind  { return ArrayKind }
func (Object) Kind() Kind { return ObjectKind }

func (Null) isValue()   {}
func (Bool) isValue()   {}
func (Number) isValue() {}
func (String) isValue() {}
func (Array) isValue()  {}
func (Object) isValue() {}

func (Null) MarshalJSON() ([]byte, error) { return []byte("null"), nil }

func (b Bool) MarshalJSON() ([]byte, error) { return json.Marshal(bool(b)) }

func (n Number) MarshalJSON() ([]byte, error) {
	if n == "" {
		return []byte("0"), nil
	}
	if !validNumber(string(n)) {
		return nil, fmt.Errorf("encode json: %q is not a number literal", string(n))
	}
	return []byte(n), nil
}

// validNumber reports whether s is a single JSON number literal.
func validNumber(s string) bool {
	if s[0] != '-' && (s[0] < '0' || s[0] > '9') {
		return false
	}
	return json.Valid([]byte(s))
}

func (s String) MarshalJSON() ([]byte, error) { return json.Marshal(string(s)) }

func (a Array) MarshalJSON() ([]byte, error) {
	if a == nil {
		return []byte("[]"), nil
	}
	items := make([]json.RawMessage, len(a))
	for i, v := range a {
		raw, err := Marshal(v)
		if err != nil {
			return nil, err
		}
		items[i] = raw
	}
	return json.Marshal(items)
}

func (o Object) MarshalJSON() ([]byte, error) {
	fields := make(map[string]json.RawMessage, len(o))
	for k, v := range o {
		raw, err := Marshal(v)
		if err != nil {
			return nil, err
		}
		fields[k] = raw
	}
	return json.Marshal(fields)
}

// Float64 returns the numeric value of n.
func (n Number) Float64() (float64, error) { return json.Number(n).Float64() }

// Int64 returns the integer value of n.
func (n Number) Int64() (int64, error) { return json.Number(n).Int64() }

// Keys returns the object's keys in sorted order.
func (o Object) Keys() []string {
	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Marshal encodes v, writing null for a nil Value.
func Marshal(v Value) ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}
	return v.MarshalJSON()
}

// Parse decodes a single JSON document. Empty input decodes to Null.
func Parse(data []byte) (Value, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Null{}, nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw interface{}
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("decode json: trailing data after document")
	}
	return fromDecoded(raw)
}

// FromGo converts any JSON-marshalable Go value into a Value.
// A Value passed in is returned unchanged.
func FromGo(in interface{}) (Value, error) {
	switch v := in.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return v, nil
	case json.RawMessage:
		return Parse(v)
	}
	data, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return Parse(data)
}

// ToGo converts v into the plain Go representation produced by
// encoding/json with UseNumber (map[string]interface{}, []interface{},
// json.Number, string, bool, nil).
func ToGo(v Value) interface{} {
	switch t := v.(type) {
	case nil, Null:
		return nil
	case Bool:
		return bool(t)
	case Number:
		return json.Number(t)
	case String:
		return string(t)
	case Array:
		out := make([]interface{}, len(t))
		for i, item := range t {
			out[i] = ToGo(item)
		}
		return out
	case Object:
		out := make(map[string]interface{}, len(t))
		for k, item := range t {
			out[k] = ToGo(item)
		}
		return out
	}
	panic(fmt.Sprintf("jsonvalue: unknown variant %T", v))
}

// Decode unmarshals v into out, which must be a pointer.
func Decode(v Value, out interface{}) error {
	data, err := Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

// MapStrings returns a copy of v with fn applied to every string leaf at any
// depth. Object keys are left untouched.
func MapStrings(v Value, fn func(string) string) Value {
	return mapValue(v, nil, fn)
}

// MapKeysAndStrings is MapStrings that also rewrites every object key with
// key. When several keys of one object rewrite to the same string, an entry
// whose key key left unchanged wins; otherwise the entry with the smallest
// original key wins. The other entries are dropped.
func MapKeysAndStrings(v Value, key, str func(string) string) Value {
	return mapValue(v, key, str)
}

func mapValue(v Value, key, str func(string) string) Value {
	switch t := v.(type) {
	case nil:
		return Null{}
	case Null, Bool, Number:
		return t
	case String:
		return String(str(string(t)))
	case Array:
		out := make(Array, len(t))
		for i, item := range t {
			out[i] = mapValue(item, key, str)
		}
		return out
	case Object:
		out := make(Object, len(t))
		if key == nil {
			for k, item := range t {
				out[k] = mapValue(item, key, str)
			}
			return out
		}
		var rewritten []string
		for _, k := range t.Keys() {
			if key(k) == k {
				out[k] = mapValue(t[k], key, str)
			} else {
				rewritten = append(rewritten, k)
			}
		}
		for _, k := range rewritten {
			nk := key(k)
			if _, taken := out[nk]; taken {
				continue
			}
			out[nk] = mapValue(t[k], key, str)
		}
		return out
	}
	panic(fmt.Sprintf("jsonvalue: unknown variant %T", v))
}

// Strings calls fn for every string leaf in v.
func Strings(v Value, fn func(string)) {
	switch t := v.(type) {
	case String:
		fn(string(t))
	case Array:
		for _, item := range t {
			Strings(item, fn)
		}
	case Object:
		for _, item := range t {
			Strings(item, fn)
		}
	}
}

// Equal reports whether a and b hold structurally equal documents.
// Numbers compare by their decimal value.
func Equal(a, b Value) bool {
	if a == nil {
		a = Null{}
	}
	if b == nil {
		b = Null{}
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch x := a.(type) {
	case Null:
		return true
	case Bool:
		return x == b.(Bool)
	case Number:
		y := b.(Number)
		if x == y {
			return true
		}
		fx, errx := x.Float64()
		fy, erry := y.Float64()
		return errx == nil && erry == nil && fx == fy
	case String:
		return x == b.(String)
	case Array:
		y := b.(Array)
		if len(x) != len(y) {
			return false
		}
		for i := range x {
			if !Equal(x[i], y[i]) {
				return false
			}
		}
		return true
	case Object:
		y := b.(Object)
		if len(x) != len(y) {
			return false
		}
		for k, xv := range x {
			yv, ok := y[k]
			if !ok || !Equal(xv, yv) {
				return false
			}
		}
		return true
	}
	return false
}

func fromDecoded(raw interface{}) (Value, error) {
	switch t := raw.(type) {
	case nil:
		return Null{}, nil
	case bool:
		return Bool(t), nil
	case json.Number:
		return Number(t), nil
	case string:
		return String(t), nil
	case []interface{}:
		out := make(Array, len(t))
		for i, item := range t {
			v, err := fromDecoded(item)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	case map[string]interface{}:
		out := make(Object, len(t))
		for k, item := range t {
			v, err := fromDecoded(item)
			if err != nil {
				return nil, err
			}
			out[k] = v
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported json type %T", raw)
}
