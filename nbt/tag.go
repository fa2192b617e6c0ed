package nbt

// Tag is a materialized tag payload. Type selects which of the other fields
// carries the value:
//
//	TagByte, TagShort, TagInt, TagLong  Num
//	TagFloat, TagDouble                 Float
//	TagByteArray                        Bytes
//	TagString                           Str
//	TagIntArray                         Ints
//	TagLongArray                        Longs
//	TagList                             ElemType, Items
//	TagCompound                         Children
type Tag struct {
	Type     TagType
	Num      int64
	Float    float64
	Bytes    []byte
	Str      string
	Ints     []int32
	Longs    []int64
	ElemType TagType
	Items    []Tag
	Children map[string]Tag
}

func (t Tag) Int8() (int8, error) {
	if t.Type != TagByte {
		return 0, mismatch("tag as byte", TagByte, t.Type)
	}
	return int8(t.Num), nil
}

// Int returns the value of any integer scalar.
func (t Tag) Int() (int64, error) {
	switch t.Type {
	case TagByte, TagShort, TagInt, TagLong:
		return t.Num, nil
	}
	return 0, mismatch("tag as integer", TagInt, t.Type)
}

func (t Tag) Text() (string, error) {
	if t.Type != TagString {
		return "", mismatch("tag as string", TagString, t.Type)
	}
	return t.Str, nil
}

// List returns the elements of a list. An empty list may be typed TagEnd.
func (t Tag) List() ([]Tag, error) {
	if t.Type != TagList {
		return nil, mismatch("tag as list", TagList, t.Type)
	}
	return t.Items, nil
}

func (t Tag) Compound() (map[string]Tag, error) {
	if t.Type != TagCompound {
		return nil, mismatch("tag as compound", TagCompound, t.Type)
	}
	return t.Children, nil
}

func (t Tag) ByteArray() ([]byte, error) {
	if t.Type != TagByteArray {
		return nil, mismatch("tag as byte array", TagByteArray, t.Type)
	}
	return t.Bytes, nil
}

func (t Tag) IntArray() ([]int32, error) {
	if t.Type != TagIntArray {
		return nil, mismatch("tag as int array", TagIntArray, t.Type)
	}
	return t.Ints, nil
}

func (t Tag) LongArray() ([]int64, error) {
	if t.Type != TagLongArray {
		return nil, mismatch("tag as long array", TagLongArray, t.Type)
	}
	return t.Longs, nil
}
