package normalize

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// shape tags the recognized row payload shapes. Classification happens once;
// the normalizer dispatches on the tag instead of re-testing types.
type shape int

const (
	// shapeNone marks empty, malformed, or mixed payloads that produce no records.
	shapeNone shape = iota
	// shapeObjectRows is a non-empty array where every element is an object.
	shapeObjectRows
	// shapeArrayRows is a non-empty array where every element is an array.
	shapeArrayRows
	// shapeScalarRows is a non-empty array of bare scalars.
	shapeScalarRows
	// shapeSingleScalar is any non-array payload.
	shapeSingleScalar
)

// classify inspects a decoded payload and returns its shape together with the
// row elements to normalize.
func classify(v any) (shape, []any) {
	arr, ok := v.([]any)
	if !ok {
		if v == nil {
			return shapeNone, nil
		}
		return shapeSingleScalar, []any{v}
	}
	if len(arr) == 0 {
		return shapeNone, nil
	}

	objects, arrays, scalars := true, true, true
	for _, e := range arr {
		switch e.(type) {
		case *object:
			arrays, scalars = false, false
		case []any:
			objects, scalars = false, false
		default:
			objects, arrays = false, false
		}
	}

	switch {
	case objects:
		return shapeObjectRows, arr
	case arrays:
		return shapeArrayRows, arr
	case scalars:
		return shapeScalarRows, arr
	}
	return shapeNone, nil
}

// unwrap replaces an object payload with the array held under the first
// recognized wrapper key. Keys holding non-arrays are skipped.
func unwrap(v any) any {
	obj, ok := v.(*object)
	if !ok {
		return v
	}
	for _, k := range wrapperKeys {
		if arr, ok := obj.fields[k].([]any); ok {
			return arr
		}
	}
	return v
}

// object is a decoded JSON object that remembers its key order. The standard
// map decoding loses it, and first-seen header order depends on it.
type object struct {
	keys   []string
	fields map[string]any
}

// MarshalJSON serializes the object with its original key order.
func (o *object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(o.fields[k])
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// decode parses JSON keeping object key order and number literals intact.
// The second return is false when the input is not valid JSON.
func decode(data []byte) (any, bool) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	v, err := decodeValue(dec)
	if err != nil {
		return nil, false
	}
	return v, true
}

func decodeValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	delim, ok := tok.(json.Delim)
	if !ok {
		return tok, nil // string, json.Number, bool or nil
	}

	switch delim {
	case '{':
		obj := &object{fields: make(map[string]any)}
		for dec.More() {
			kt, err := dec.Token()
			if err != nil {
				return nil, err
			}
			key, ok := kt.(string)
			if !ok {
				return nil, fmt.Errorf("unexpected object key token %v", kt)
			}
			val, err := decodeValue(dec)
			if err != nil {
				return nil, err
			}
			if _, dup := obj.fields[key]; !dup {
				obj.keys = append(obj.keys, key)
			}
			obj.fields[key] = val
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return obj, nil

	case '[':
		arr := []any{}
		for dec.More() {
			val, err := decodeValue(dec)
			if err != nil {
				return nil, err
			}
			arr = append(arr, val)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return arr, nil
	}

	return nil, fmt.Errorf("unexpected token %v", tok)
}
