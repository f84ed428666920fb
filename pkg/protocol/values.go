package protocol

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"reflect"
	"strconv"
)

// Decoders disagree on how they hand back JSON values: encoding/json yields
// float64 or json.Number, CBOR yields int64/uint64 and map[interface{}]interface{},
// hand-built DTOs use any Go kind. The helpers below accept all of them.

// asObject returns v as a string-keyed map if it is a keyed structure.
func asObject(v interface{}) (map[string]interface{}, bool) {
	switch m := v.(type) {
	case map[string]interface{}:
		return m, true
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(m))
		for k, val := range m {
			key, ok := k.(string)
			if !ok {
				return nil, false
			}
			out[key] = val
		}
		return out, true
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	out := make(map[string]interface{}, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out[iter.Key().String()] = iter.Value().Interface()
	}
	return out, true
}

// isSequence reports whether v is an index-ordered collection. Byte slices are
// excluded: they encode as strings.
func isSequence(v interface{}) bool {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		return rv.Type().Elem().Kind() != reflect.Uint8
	default:
		return false
	}
}

// isNumeric reports whether v is a finite number of any Go kind or a
// json.Number. NaN and infinities have no JSON encoding.
func isNumeric(v interface{}) bool {
	if n, ok := v.(json.Number); ok {
		f, err := n.Float64()
		return err == nil && isFinite(f)
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	case reflect.Float32, reflect.Float64:
		return isFinite(rv.Float())
	default:
		return false
	}
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// toInt64 returns v as an integer. Floats count when they are integral, since
// plain encoding/json decodes every number as float64. A json.Number must be an
// integer literal.
func toInt64(v interface{}) (int64, bool) {
	i, ok := toBigInt(v)
	if !ok || !i.IsInt64() {
		return 0, false
	}
	return i.Int64(), true
}

// toBigInt is toInt64 without the range limit: ids may be any integer.
func toBigInt(v interface{}) (*big.Int, bool) {
	if n, ok := v.(json.Number); ok {
		return new(big.Int).SetString(string(n), 10)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return big.NewInt(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return new(big.Int).SetUint64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if !isFinite(f) || f != math.Trunc(f) {
			return nil, false
		}
		i, _ := big.NewFloat(f).Int(nil)
		return i, true
	default:
		return nil, false
	}
}

func isInteger(v interface{}) bool {
	_, ok := toBigInt(v)
	return ok
}

func typeName(v interface{}) string {
	if v == nil {
		return "nil"
	}
	return fmt.Sprintf("%T", v)
}

// idKey is an id reduced to what loose comparison needs. Integers compare
// exactly at any size.
type idKey struct {
	text    string
	i       *big.Int
	isFloat bool
	f       float64
}

func intKey(i *big.Int) idKey {
	f, _ := new(big.Float).SetInt(i).Float64()
	return idKey{i: i, isFloat: true, f: f}
}

func newIDKey(v interface{}) idKey {
	if i, ok := toBigInt(v); ok {
		return intKey(i)
	}

	var text string
	switch t := v.(type) {
	case string:
		text = t
	case json.Number:
		text = string(t)
	default:
		rv := reflect.ValueOf(v)
		if k := rv.Kind(); k == reflect.Float32 || k == reflect.Float64 {
			return idKey{isFloat: true, f: rv.Float()}
		}
		return idKey{text: fmt.Sprintf("%v", v)}
	}

	if i, ok := new(big.Int).SetString(text, 10); ok {
		return intKey(i)
	}
	key := idKey{text: text}
	if f, err := strconv.ParseFloat(text, 64); err == nil && isFinite(f) {
		key.isFloat, key.f = true, f
	}
	return key
}

// looseEqual compares ids the way text encodings round-trip them: 1, 1.0, "1"
// and "01" are equal; non-numeric strings compare exactly.
func looseEqual(a, b interface{}) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ka, kb := newIDKey(a), newIDKey(b)
	switch {
	case ka.i != nil && kb.i != nil:
		return ka.i.Cmp(kb.i) == 0
	case ka.isFloat && kb.isFloat:
		return ka.f == kb.f
	case ka.isFloat || kb.isFloat:
		return false
	default:
		return ka.text == kb.text
	}
}
