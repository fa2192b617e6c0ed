package nbt

import (
	"errors"
	"io"
	"math"
	"reflect"
	"strings"
)

// Encoder writes Go values as tags. Structs and string-keyed maps become
// compounds, []byte, []int32 and []int64 become arrays, and other slices
// become lists. Struct fields take their tag name from an `nbt:"name"` tag;
// `nbt:",omitempty"` leaves out nil or empty slices, maps and strings.
type Encoder struct {
	w io.Writer
}

func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// Encode writes v as an unnamed root tag.
func (e *Encoder) Encode(v interface{}) error {
	return e.marshal(reflect.ValueOf(v), "")
}

func (e *Encoder) marshal(val reflect.Value, tagName string) error {
	if val.Kind() == reflect.Interface || val.Kind() == reflect.Ptr {
		if val.IsNil() {
			return errors.New("nbt: cannot encode nil value for " + tagName)
		}
		return e.marshal(val.Elem(), tagName)
	}

	t, err := tagTypeOf(val.Type())
	if err != nil {
		return err
	}
	if err := e.writeTag(t, tagName); err != nil {
		return err
	}
	return e.marshalPayload(val, t)
}

func (e *Encoder) marshalPayload(val reflect.Value, t TagType) error {
	if val.Kind() == reflect.Interface || val.Kind() == reflect.Ptr {
		return e.marshalPayload(val.Elem(), t)
	}

	switch t {
	case TagByte:
		var b byte
		switch val.Kind() {
		case reflect.Bool:
			if val.Bool() {
				b = 1
			}
		case reflect.Int8:
			b = byte(val.Int())
		default:
			b = byte(val.Uint())
		}
		_, err := e.w.Write([]byte{b})
		return err
	case TagShort:
		return e.writeInt16(int16(intOf(val)))
	case TagInt:
		return e.writeInt32(int32(intOf(val)))
	case TagLong:
		return e.writeInt64(intOf(val))
	case TagFloat:
		return e.writeInt32(int32(math.Float32bits(float32(val.Float()))))
	case TagDouble:
		return e.writeInt64(int64(math.Float64bits(val.Float())))
	case TagString:
		return e.writeString(val.String())
	case TagByteArray:
		if err := e.writeInt32(int32(val.Len())); err != nil {
			return err
		}
		b := make([]byte, val.Len())
		for i := range b {
			b[i] = byte(val.Index(i).Uint())
		}
		_, err := e.w.Write(b)
		return err
	case TagIntArray:
		n := val.Len()
		if err := e.writeInt32(int32(n)); err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			if err := e.writeInt32(int32(val.Index(i).Int())); err != nil {
				return err
			}
		}
		return nil
	case TagLongArray:
		n := val.Len()
		if err := e.writeInt32(int32(n)); err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			if err := e.writeInt64(val.Index(i).Int()); err != nil {
				return err
			}
		}
		return nil
	case TagList:
		return e.marshalList(val)
	case TagCompound:
		if val.Kind() == reflect.Map {
			return e.marshalMap(val)
		}
		return e.marshalStruct(val)
	}
	return errors.New("nbt: cannot encode " + t.String())
}

func (e *Encoder) marshalList(val reflect.Value) error {
	n := val.Len()
	elem := TagEnd
	if n > 0 {
		first, err := tagTypeOf(concrete(val.Index(0)).Type())
		if err != nil {
			return err
		}
		elem = first
	} else if k := val.Type().Elem().Kind(); k != reflect.Interface {
		t, err := tagTypeOf(val.Type().Elem())
		if err != nil {
			return err
		}
		elem = t
	}

	if _, err := e.w.Write([]byte{byte(elem)}); err != nil {
		return err
	}
	if err := e.writeInt32(int32(n)); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		item := concrete(val.Index(i))
		t, err := tagTypeOf(item.Type())
		if err != nil {
			return err
		}
		if t != elem {
			return errors.New("nbt: mixed types in list: " + elem.String() + " and " + t.String())
		}
		if err := e.marshalPayload(item, elem); err != nil {
			return err
		}
	}
	return nil
}

func (e *Encoder) marshalStruct(val reflect.Value) error {
	typ := val.Type()
	for i := 0; i < val.NumField(); i++ {
		f := typ.Field(i)
		if f.PkgPath != "" {
			continue // Private field
		}
		name, omitEmpty := f.Name, false
		if tag, ok := f.Tag.Lookup("nbt"); ok {
			if tag == "-" {
				continue
			}
			parts := strings.Split(tag, ",")
			if parts[0] != "" {
				name = parts[0]
			}
			for _, opt := range parts[1:] {
				omitEmpty = omitEmpty || opt == "omitempty"
			}
		}

		field := val.Field(i)
		if omitEmpty && isEmpty(field) {
			continue
		}
		if err := e.marshal(field, name); err != nil {
			return err
		}
	}
	_, err := e.w.Write([]byte{byte(TagEnd)})
	return err
}

func (e *Encoder) marshalMap(val reflect.Value) error {
	iter := val.MapRange()
	for iter.Next() {
		if err := e.marshal(iter.Value(), iter.Key().String()); err != nil {
			return err
		}
	}
	_, err := e.w.Write([]byte{byte(TagEnd)})
	return err
}

func tagTypeOf(typ reflect.Type) (TagType, error) {
	switch typ.Kind() {
	case reflect.Bool, reflect.Int8, reflect.Uint8:
		return TagByte, nil
	case reflect.Int16, reflect.Uint16:
		return TagShort, nil
	case reflect.Int32, reflect.Uint32, reflect.Int:
		return TagInt, nil
	case reflect.Int64, reflect.Uint64:
		return TagLong, nil
	case reflect.Float32:
		return TagFloat, nil
	case reflect.Float64:
		return TagDouble, nil
	case reflect.String:
		return TagString, nil
	case reflect.Struct:
		return TagCompound, nil
	case reflect.Map:
		if typ.Key().Kind() != reflect.String {
			return TagEnd, errors.New("nbt: unknown key type " + typ.String() + " for map")
		}
		return TagCompound, nil
	case reflect.Ptr:
		return tagTypeOf(typ.Elem())
	case reflect.Array, reflect.Slice:
		switch typ.Elem().Kind() {
		case reflect.Uint8:
			return TagByteArray, nil
		case reflect.Int32:
			return TagIntArray, nil
		case reflect.Int64:
			return TagLongArray, nil
		}
		return TagList, nil
	}
	return TagEnd, errors.New("nbt: unknown type " + typ.String())
}

func intOf(val reflect.Value) int64 {
	switch val.Kind() {
	case reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(val.Uint())
	}
	return val.Int()
}

func concrete(val reflect.Value) reflect.Value {
	for val.Kind() == reflect.Interface && !val.IsNil() {
		val = val.Elem()
	}
	return val
}

func isEmpty(val reflect.Value) bool {
	switch val.Kind() {
	case reflect.Slice, reflect.Map, reflect.String:
		return val.Len() == 0
	case reflect.Ptr, reflect.Interface:
		return val.IsNil()
	}
	return false
}

func (e *Encoder) writeTag(tagType TagType, tagName string) error {
	if _, err := e.w.Write([]byte{byte(tagType)}); err != nil {
		return err
	}
	return e.writeString(tagName)
}

func (e *Encoder) writeString(s string) error {
	if err := e.writeInt16(int16(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(e.w, s)
	return err
}

func (e *Encoder) writeInt16(n int16) error {
	_, err := e.w.Write([]byte{byte(n >> 8), byte(n)})
	return err
}

func (e *Encoder) writeInt32(n int32) error {
	_, err := e.w.Write([]byte{byte(n >> 24), byte(n >> 16), byte(n >> 8), byte(n)})
	return err
}

func (e *Encoder) writeInt64(n int64) error {
	_, err := e.w.Write([]byte{
		byte(n >> 56), byte(n >> 48), byte(n >> 40), byte(n >> 32),
		byte(n >> 24), byte(n >> 16), byte(n >> 8), byte(n)})
	return err
}
