// Package nbt reads the named binary tag format used by Anvil worlds.
//
// The Reader is a streaming, selective decoder: callers seek to the tags they
// care about and everything else is skipped without being materialized.
package nbt

import (
	"fmt"
)

// TagType is the one-byte type code that precedes every tag.
type TagType byte

const (
	TagEnd TagType = iota
	TagByte
	TagShort
	TagInt
	TagLong
	TagFloat
	TagDouble
	TagByteArray
	TagString
	TagList
	TagCompound
	TagIntArray
	TagLongArray
)

// tagNone marks that the cursor is not sitting on a payload.
const tagNone TagType = 0xff

func (t TagType) String() string {
	switch t {
	case TagEnd:
		return "TAG_End"
	case TagByte:
		return "TAG_Byte"
	case TagShort:
		return "TAG_Short"
	case TagInt:
		return "TAG_Int"
	case TagLong:
		return "TAG_Long"
	case TagFloat:
		return "TAG_Float"
	case TagDouble:
		return "TAG_Double"
	case TagByteArray:
		return "TAG_Byte_Array"
	case TagString:
		return "TAG_String"
	case TagList:
		return "TAG_List"
	case TagCompound:
		return "TAG_Compound"
	case TagIntArray:
		return "TAG_Int_Array"
	case TagLongArray:
		return "TAG_Long_Array"
	case tagNone:
		return "no payload"
	default:
		return fmt.Sprintf("TAG_Unknown(%d)", byte(t))
	}
}

// Valid reports whether t is one of the defined type codes.
func (t TagType) Valid() bool {
	return t <= TagLongArray
}

// width returns the payload size of fixed-width scalar types, or 0.
func (t TagType) width() int {
	switch t {
	case TagByte:
		return 1
	case TagShort:
		return 2
	case TagInt, TagFloat:
		return 4
	case TagLong, TagDouble:
		return 8
	}
	return 0
}

// DecodeError reports a structural problem in a tag stream: an unknown type
// code, a truncated payload, an impossible length or a tag of the wrong type.
type DecodeError struct {
	Op  string
	Err error
}

func (e *DecodeError) Error() string {
	return "nbt: " + e.Op + ": " + e.Err.Error()
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func decodeErrorf(op, format string, args ...interface{}) error {
	return &DecodeError{Op: op, Err: fmt.Errorf(format, args...)}
}

func mismatch(op string, want, got TagType) error {
	return decodeErrorf(op, "expected %v, found %v", want, got)
}
