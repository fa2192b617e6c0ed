package nbt

import (
	"bufio"
	"encoding/binary"
	"errors"
	"io"
	"math"
)

const (
	// maxPayload caps any single array or string length read from a stream.
	maxPayload = 64 << 20
	// readChunk bounds how much is allocated ahead of the bytes actually read.
	readChunk = 64 << 10
	maxDepth  = 512
)

// Reader decodes tags from an already decompressed stream. It is not safe for
// concurrent use.
type Reader struct {
	r       *bufio.Reader
	scratch [8]byte
	// pending is the type announced by the last header read, as long as its
	// payload has not been consumed yet.
	pending TagType
	depth   int
}

func NewReader(r io.Reader) *Reader {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	return &Reader{r: br, pending: tagNone}
}

// ReadHeader reads a type code and, unless it is TagEnd, the tag name.
func (r *Reader) ReadHeader() (TagType, string, error) {
	r.pending = tagNone
	t, err := r.readType("read header")
	if err != nil {
		return TagEnd, "", err
	}
	if t == TagEnd {
		return TagEnd, "", nil
	}
	name, err := r.readString("read header name")
	if err != nil {
		return t, "", err
	}
	r.pending = t
	return t, name, nil
}

// Skip consumes a payload of type t without materializing it.
func (r *Reader) Skip(t TagType) error {
	r.pending = tagNone
	if w := t.width(); w > 0 {
		return r.discard("skip "+t.String(), w)
	}

	switch t {
	case TagEnd:
		return nil
	case TagByteArray:
		return r.skipArray(t, 1)
	case TagIntArray:
		return r.skipArray(t, 4)
	case TagLongArray:
		return r.skipArray(t, 8)
	case TagString:
		n, err := r.readUint16("skip string")
		if err != nil {
			return err
		}
		return r.discard("skip string", int(n))
	case TagList:
		elem, n, err := r.readListHeader("skip list")
		if err != nil {
			return err
		}
		if w := elem.width(); w > 0 {
			return r.discard("skip list", n*w)
		}
		if err := r.enter("skip list"); err != nil {
			return err
		}
		defer r.leave()
		for i := 0; i < n; i++ {
			if err := r.Skip(elem); err != nil {
				return err
			}
		}
		return nil
	case TagCompound:
		if err := r.enter("skip compound"); err != nil {
			return err
		}
		defer r.leave()
		for {
			child, _, err := r.ReadHeader()
			if err != nil {
				return err
			}
			if child == TagEnd {
				return nil
			}
			if err := r.Skip(child); err != nil {
				return err
			}
		}
	default:
		return decodeErrorf("skip", "invalid type code %d", byte(t))
	}
}

// SeekNamed scans the remaining children of the current compound for a tag
// called name. On success the cursor is at the match's payload. When the
// compound's TagEnd is reached first, found is false and the end tag has been
// consumed.
func (r *Reader) SeekNamed(name string) (t TagType, found bool, err error) {
	_, t, found, err = r.SeekNamedAny(name)
	return
}

// SeekNamedAny is SeekNamed for a set of names; it reports which one matched.
func (r *Reader) SeekNamedAny(names ...string) (string, TagType, bool, error) {
	for {
		t, name, err := r.ReadHeader()
		if err != nil {
			return "", t, false, err
		}
		if t == TagEnd {
			return "", TagEnd, false, nil
		}
		for _, want := range names {
			if name == want {
				return name, t, true, nil
			}
		}
		if err := r.Skip(t); err != nil {
			return "", t, false, err
		}
	}
}

// MaterializeCompound reads the current compound up to and including its
// TagEnd, returning the children whose names are listed. All other children
// are skipped.
func (r *Reader) MaterializeCompound(names ...string) (map[string]Tag, error) {
	fields := make(map[string]Tag, len(names))
	for {
		t, name, err := r.ReadHeader()
		if err != nil {
			return nil, err
		}
		if t == TagEnd {
			return fields, nil
		}
		if !contains(names, name) {
			if err := r.Skip(t); err != nil {
				return nil, err
			}
			continue
		}
		value, err := r.ReadValue(t)
		if err != nil {
			return nil, err
		}
		fields[name] = value
	}
}

// ReadValue materializes a payload of type t.
func (r *Reader) ReadValue(t TagType) (Tag, error) {
	r.pending = tagNone
	tag := Tag{Type: t}
	var err error

	switch t {
	case TagEnd:
	case TagByte:
		var b byte
		b, err = r.readByte("read byte")
		tag.Num = int64(int8(b))
	case TagShort:
		var v uint16
		v, err = r.readUint16("read short")
		tag.Num = int64(int16(v))
	case TagInt:
		var v int32
		v, err = r.readInt32("read int")
		tag.Num = int64(v)
	case TagLong:
		var v uint64
		v, err = r.readUint64("read long")
		tag.Num = int64(v)
	case TagFloat:
		var v int32
		v, err = r.readInt32("read float")
		tag.Float = float64(math.Float32frombits(uint32(v)))
	case TagDouble:
		var v uint64
		v, err = r.readUint64("read double")
		tag.Float = math.Float64frombits(v)
	case TagByteArray:
		tag.Bytes, err = r.readByteArray()
	case TagString:
		tag.Str, err = r.readString("read string")
	case TagIntArray:
		tag.Ints, err = r.readIntArray()
	case TagLongArray:
		tag.Longs, err = r.readLongArray()
	case TagList:
		tag.ElemType, tag.Items, err = r.readList()
	case TagCompound:
		tag.Children, err = r.readCompound()
	default:
		err = decodeErrorf("read value", "invalid type code %d", byte(t))
	}
	if err != nil {
		return Tag{}, err
	}
	return tag, nil
}

// ReadListLength reads the element type and count of the list at the cursor.
func (r *Reader) ReadListLength() (TagType, int, error) {
	if err := r.expect("read list length", TagList); err != nil {
		return TagEnd, 0, err
	}
	return r.readListHeader("read list length")
}

func (r *Reader) ReadByteArray() ([]byte, error) {
	if err := r.expect("read byte array", TagByteArray); err != nil {
		return nil, err
	}
	return r.readByteArray()
}

func (r *Reader) ReadIntArray() ([]int32, error) {
	if err := r.expect("read int array", TagIntArray); err != nil {
		return nil, err
	}
	return r.readIntArray()
}

func (r *Reader) ReadLongArray() ([]int64, error) {
	if err := r.expect("read long array", TagLongArray); err != nil {
		return nil, err
	}
	return r.readLongArray()
}

func (r *Reader) expect(op string, want TagType) error {
	got := r.pending
	r.pending = tagNone
	if got != want {
		return mismatch(op, want, got)
	}
	return nil
}

func (r *Reader) enter(op string) error {
	r.depth++
	if r.depth > maxDepth {
		r.depth--
		return decodeErrorf(op, "nesting deeper than %d", maxDepth)
	}
	return nil
}

func (r *Reader) leave() {
	r.depth--
}

func (r *Reader) readList() (TagType, []Tag, error) {
	elem, n, err := r.readListHeader("read list")
	if err != nil {
		return TagEnd, nil, err
	}
	if err := r.enter("read list"); err != nil {
		return TagEnd, nil, err
	}
	defer r.leave()

	items := make([]Tag, 0, min(n, readChunk))
	for i := 0; i < n; i++ {
		item, err := r.ReadValue(elem)
		if err != nil {
			return TagEnd, nil, err
		}
		items = append(items, item)
	}
	return elem, items, nil
}

func (r *Reader) readCompound() (map[string]Tag, error) {
	if err := r.enter("read compound"); err != nil {
		return nil, err
	}
	defer r.leave()

	children := make(map[string]Tag)
	for {
		t, name, err := r.ReadHeader()
		if err != nil {
			return nil, err
		}
		if t == TagEnd {
			return children, nil
		}
		child, err := r.ReadValue(t)
		if err != nil {
			return nil, err
		}
		children[name] = child
	}
}

func (r *Reader) readListHeader(op string) (TagType, int, error) {
	elem, err := r.readType(op)
	if err != nil {
		return TagEnd, 0, err
	}
	n, err := r.readLength(op)
	if err != nil {
		return TagEnd, 0, err
	}
	if elem == TagEnd && n > 0 {
		return TagEnd, 0, decodeErrorf(op, "list of %d TAG_End elements", n)
	}
	return elem, n, nil
}

func (r *Reader) skipArray(t TagType, width int) error {
	op := "skip " + t.String()
	n, err := r.readLength(op)
	if err != nil {
		return err
	}
	if n > maxPayload/width {
		return decodeErrorf(op, "length %d exceeds limit", n)
	}
	return r.discard(op, n*width)
}

func (r *Reader) readByteArray() ([]byte, error) {
	n, err := r.readLength("read byte array")
	if err != nil {
		return nil, err
	}
	return r.readBytes("read byte array", n)
}

func (r *Reader) readIntArray() ([]int32, error) {
	n, err := r.readLength("read int array")
	if err != nil {
		return nil, err
	}
	if n > maxPayload/4 {
		return nil, decodeErrorf("read int array", "length %d exceeds limit", n)
	}
	raw, err := r.readBytes("read int array", n*4)
	if err != nil {
		return nil, err
	}
	out := make([]int32, n)
	for i := range out {
		out[i] = int32(binary.BigEndian.Uint32(raw[i*4:]))
	}
	return out, nil
}

func (r *Reader) readLongArray() ([]int64, error) {
	n, err := r.readLength("read long array")
	if err != nil {
		return nil, err
	}
	if n > maxPayload/8 {
		return nil, decodeErrorf("read long array", "length %d exceeds limit", n)
	}
	raw, err := r.readBytes("read long array", n*8)
	if err != nil {
		return nil, err
	}
	out := make([]int64, n)
	for i := range out {
		out[i] = int64(binary.BigEndian.Uint64(raw[i*8:]))
	}
	return out, nil
}

func (r *Reader) readType(op string) (TagType, error) {
	b, err := r.readByte(op)
	if err != nil {
		return TagEnd, err
	}
	t := TagType(b)
	if !t.Valid() {
		return TagEnd, decodeErrorf(op, "invalid type code %d", b)
	}
	return t, nil
}

func (r *Reader) readString(op string) (string, error) {
	n, err := r.readUint16(op)
	if err != nil {
		return "", err
	}
	b, err := r.readBytes(op, int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// readLength reads a signed 32-bit element count.
func (r *Reader) readLength(op string) (int, error) {
	n, err := r.readInt32(op)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, decodeErrorf(op, "negative length %d", n)
	}
	return int(n), nil
}

func (r *Reader) readByte(op string) (byte, error) {
	b, err := r.r.ReadByte()
	if err != nil {
		return 0, r.wrap(op, err)
	}
	return b, nil
}

func (r *Reader) readUint16(op string) (uint16, error) {
	if _, err := io.ReadFull(r.r, r.scratch[:2]); err != nil {
		return 0, r.wrap(op, err)
	}
	return binary.BigEndian.Uint16(r.scratch[:2]), nil
}

func (r *Reader) readInt32(op string) (int32, error) {
	if _, err := io.ReadFull(r.r, r.scratch[:4]); err != nil {
		return 0, r.wrap(op, err)
	}
	return int32(binary.BigEndian.Uint32(r.scratch[:4])), nil
}

func (r *Reader) readUint64(op string) (uint64, error) {
	if _, err := io.ReadFull(r.r, r.scratch[:8]); err != nil {
		return 0, r.wrap(op, err)
	}
	return binary.BigEndian.Uint64(r.scratch[:8]), nil
}

// readBytes reads n bytes, growing the buffer as data arrives so a bogus
// length on a short stream fails before allocating the full amount.
func (r *Reader) readBytes(op string, n int) ([]byte, error) {
	if n > maxPayload {
		return nil, decodeErrorf(op, "length %d exceeds limit", n)
	}
	buf := make([]byte, 0, min(n, readChunk))
	for len(buf) < n {
		start := len(buf)
		buf = append(buf, make([]byte, min(n-start, readChunk))...)
		if _, err := io.ReadFull(r.r, buf[start:]); err != nil {
			return nil, r.wrap(op, err)
		}
	}
	return buf, nil
}

func (r *Reader) discard(op string, n int) error {
	if _, err := r.r.Discard(n); err != nil {
		return r.wrap(op, err)
	}
	return nil
}

// wrap turns a premature end of stream into a DecodeError. Any other error
// comes from the layer underneath (file or decompressor) and is passed on.
func (r *Reader) wrap(op string, err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return &DecodeError{Op: op, Err: io.ErrUnexpectedEOF}
	}
	return err
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
