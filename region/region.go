// Package region reads Anvil region files: a 32×32 grid of chunk slots, each
// holding one zlib-compressed tag tree.
package region

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zlib"
	"github.com/willf/bitset"

	"github.com/astei/anvilmap/coord"
)

const (
	SlotsPerSide = coord.UnitsPerContainer
	SlotCount    = SlotsPerSide * SlotsPerSide
	SectorSize   = 4096
	headerSize   = 5
)

var ErrNoChunk = errors.New("region: chunk not found")
var ErrInvalidChunkLength = errors.New("region: invalid chunk length")
var ErrInvalidCompression = errors.New("region: invalid compression format")

type Compression byte

const (
	CompressionGzip Compression = 1
	CompressionZlib Compression = 2
)

// Location is one entry of the location table: the sector offset in the top
// three bytes and the sector count in the low byte.
type Location uint32

func (l Location) Offset() int64 {
	return int64(l>>8) * SectorSize
}

func (l Location) Sectors() int {
	return int(l & 0xff)
}

func (l Location) Present() bool {
	return l>>8 != 0
}

// Reader allows you to read a region file and extract its chunks. The reader
// is not safe for concurrent access.
type Reader struct {
	source    io.ReadSeeker
	locations [SlotCount]Location
	occupied  *bitset.BitSet
	Name      string
}

// NewReader reads the location table of source. The ownership of the source
// is transferred to this reader.
func NewReader(source io.ReadSeeker) (*Reader, error) {
	reader := &Reader{
		source:   source,
		occupied: bitset.New(SlotCount),
	}
	if file, ok := source.(*os.File); ok {
		reader.Name = file.Name()
	}
	if err := reader.readLocationTable(); err != nil {
		return nil, fmt.Errorf("reading location table of %s: %w", reader.Name, err)
	}
	return reader, nil
}

// Open opens the region file at path. Only the location table is read.
func Open(path string) (*Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	reader, err := NewReader(file)
	if err != nil {
		file.Close()
		return nil, err
	}
	return reader, nil
}

func (r *Reader) readLocationTable() error {
	if _, err := r.source.Seek(0, io.SeekStart); err != nil {
		return err
	}

	raw := make([]byte, SlotCount*4)
	if _, err := io.ReadFull(r.source, raw); err != nil {
		return err
	}
	for i := range r.locations {
		loc := Location(binary.BigEndian.Uint32(raw[i*4:]))
		r.locations[i] = loc
		if loc.Present() {
			r.occupied.Set(uint(i))
		}
	}
	return nil
}

// Slot returns the table index of the chunk at region-local x, z.
func Slot(x, z int) int {
	return z*SlotsPerSide + x
}

// Locate returns the location table entry for slot. ok is false when the slot
// is unallocated or out of range.
func (r *Reader) Locate(slot int) (loc Location, ok bool) {
	if slot < 0 || slot >= SlotCount {
		return 0, false
	}
	loc = r.locations[slot]
	return loc, loc.Present()
}

func (r *Reader) Exists(x, z int) bool {
	if x < 0 || x >= SlotsPerSide || z < 0 || z >= SlotsPerSide {
		return false
	}
	return r.occupied.Test(uint(Slot(x, z)))
}

// Count returns the number of occupied slots.
func (r *Reader) Count() int {
	return int(r.occupied.Count())
}

// Occupied lists the occupied slots inside bounds (region-local, inclusive),
// z outer and x inner.
func (r *Reader) Occupied(bounds coord.Edges) []coord.Pair {
	bounds = bounds.Intersect(coord.Full(SlotsPerSide))
	var slots []coord.Pair
	for i, ok := r.occupied.NextSet(0); ok; i, ok = r.occupied.NextSet(i + 1) {
		p := coord.Pair{X: int(i) % SlotsPerSide, Z: int(i) / SlotsPerSide}
		if bounds.Contains(p) {
			slots = append(slots, p)
		}
	}
	return slots
}

// OpenSlot returns a decompressing reader over the chunk at region-local x, z,
// positioned at the start of its root tag.
func (r *Reader) OpenSlot(x, z int) (io.ReadCloser, error) {
	if x < 0 || x >= SlotsPerSide || z < 0 || z >= SlotsPerSide {
		return nil, ErrNoChunk
	}
	loc, ok := r.Locate(Slot(x, z))
	if !ok {
		return nil, ErrNoChunk
	}

	if _, err := r.source.Seek(loc.Offset(), io.SeekStart); err != nil {
		return nil, err
	}

	var header struct {
		Length      int32
		Compression Compression
	}
	if err := binary.Read(r.source, binary.BigEndian, &header); err != nil {
		return nil, fmt.Errorf("chunk %d,%d header: %w", x, z, unexpectedEOF(err))
	}

	// The payload, header included, must fit the allocated sectors. A count
	// of zero allocates nothing.
	if header.Length < 1 || int64(header.Length) > int64(loc.Sectors()*SectorSize-headerSize+1) {
		return nil, ErrInvalidChunkLength
	}
	if header.Compression != CompressionZlib {
		return nil, fmt.Errorf("%w: scheme %d", ErrInvalidCompression, header.Compression)
	}

	payload := make([]byte, header.Length-1)
	if _, err := io.ReadFull(r.source, payload); err != nil {
		return nil, fmt.Errorf("chunk %d,%d payload: %w", x, z, unexpectedEOF(err))
	}
	return zlib.NewReader(bytes.NewReader(payload))
}

func (r *Reader) Close() error {
	if closer, ok := r.source.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func unexpectedEOF(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}
