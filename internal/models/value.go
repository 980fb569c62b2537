package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Kind identifies which variant a Value holds
type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
	KindObject
	KindArray
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	default:
		return "unknown"
	}
}

// Value is a JSON value as served by the minifigure backend.
// Records carry arbitrary, dynamically named fields, so every field is kept
// as a Value and accessed through the typed accessors below.
// Numbers are kept as decimals so prices never go through float64.
type Value struct {
	kind Kind
	str  string
	num  decimal.Decimal
	b    bool
	obj  map[string]Value
	arr  []Value
}

func Null() Value                     { return Value{} }
func String(s string) Value           { return Value{kind: KindString, str: s} }
func Number(d decimal.Decimal) Value  { return Value{kind: KindNumber, num: d} }
func Int(n int64) Value               { return Number(decimal.NewFromInt(n)) }
func Bool(b bool) Value               { return Value{kind: KindBool, b: b} }
func Object(m map[string]Value) Value { return Value{kind: KindObject, obj: m} }
func Array(items ...Value) Value      { return Value{kind: KindArray, arr: items} }

func (v Value) Kind() Kind     { return v.kind }
func (v Value) IsNull() bool   { return v.kind == KindNull }
func (v Value) Items() []Value { return v.arr }

// Str returns the string payload and whether v is a string
func (v Value) Str() (string, bool) {
	return v.str, v.kind == KindString
}

// Num returns the numeric payload and whether v is a number
func (v Value) Num() (decimal.Decimal, bool) {
	return v.num, v.kind == KindNumber
}

// Truth returns the boolean payload and whether v is a bool
func (v Value) Truth() (bool, bool) {
	return v.b, v.kind == KindBool
}

// Field returns the member named key of an object value.
// It reports false when v is not an object or the key is missing.
func (v Value) Field(key string) (Value, bool) {
	if v.kind != KindObject {
		return Value{}, false
	}
	f, ok := v.obj[key]
	return f, ok
}

// Lookup follows a dot separated path through nested objects.
// "Current value.used_price" reads the used_price member of the
// "Current value" object. Missing members and non-object intermediates
// report false instead of panicking.
func (v Value) Lookup(path string) (Value, bool) {
	cur := v
	for _, part := range strings.Split(path, ".") {
		next, ok := cur.Field(part)
		if !ok {
			return Value{}, false
		}
		cur = next
	}
	return cur, true
}

// AsNumber interprets v as a number. Numbers are returned as is and strings
// are accepted when their trimmed content parses as a decimal ("12.50").
// Commas are thousands separators, as in scraped prices ("1,234.56").
// Empty strings, bools, objects, arrays and null are not numbers.
func (v Value) AsNumber() (decimal.Decimal, bool) {
	switch v.kind {
	case KindNumber:
		return v.num, true
	case KindString:
		s := strings.ReplaceAll(strings.TrimSpace(v.str), ",", "")
		if s == "" {
			return decimal.Zero, false
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Zero, false
		}
		return d, true
	default:
		return decimal.Zero, false
	}
}

// Equal reports deep equality
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindString:
		return v.str == o.str
	case KindNumber:
		return v.num.Equal(o.num)
	case KindBool:
		return v.b == o.b
	case KindObject:
		if len(v.obj) != len(o.obj) {
			return false
		}
		for k, fv := range v.obj {
			ov, ok := o.obj[k]
			if !ok || !fv.Equal(ov) {
				return false
			}
		}
		return true
	case KindArray:
		if len(v.arr) != len(o.arr) {
			return false
		}
		for i := range v.arr {
			if !v.arr[i].Equal(o.arr[i]) {
				return false
			}
		}
		return true
	}
	return false
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNull:
		return []byte("null"), nil
	case KindString:
		return json.Marshal(v.str)
	case KindNumber:
		return []byte(v.num.String()), nil
	case KindBool:
		return json.Marshal(v.b)
	case KindObject:
		keys := make([]string, 0, len(v.obj))
		for k := range v.obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var buf bytes.Buffer
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return nil, err
			}
			buf.Write(kb)
			buf.WriteByte(':')
			fb, err := v.obj[k].MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf.Write(fb)
		}
		buf.WriteByte('}')
		return buf.Bytes(), nil
	case KindArray:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, item := range v.arr {
			if i > 0 {
				buf.WriteByte(',')
			}
			ib, err := item.MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf.Write(ib)
		}
		buf.WriteByte(']')
		return buf.Bytes(), nil
	}
	return nil, fmt.Errorf("unknown value kind %d", v.kind)
}

func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}

	parsed, err := fromAny(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func fromAny(raw any) (Value, error) {
	switch t := raw.(type) {
	case nil:
		return Null(), nil
	case string:
		return String(t), nil
	case bool:
		return Bool(t), nil
	case json.Number:
		d, err := decimal.NewFromString(t.String())
		if err != nil {
			return Value{}, fmt.Errorf("invalid number %q: %w", t.String(), err)
		}
		return Number(d), nil
	case map[string]any:
		obj := make(map[string]Value, len(t))
		for k, item := range t {
			fv, err := fromAny(item)
			if err != nil {
				return Value{}, err
			}
			obj[k] = fv
		}
		return Object(obj), nil
	case []any:
		arr := make([]Value, 0, len(t))
		for _, item := range t {
			iv, err := fromAny(item)
			if err != nil {
				return Value{}, err
			}
			arr = append(arr, iv)
		}
		return Array(arr...), nil
	default:
		return Value{}, fmt.Errorf("unsupported JSON type %T", raw)
	}
}
