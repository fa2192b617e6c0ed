package world

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/astei/anvilmap/chunk"
	"github.com/astei/anvilmap/coord"
	"github.com/astei/anvilmap/nbt"
	"github.com/astei/anvilmap/region"
)

type Direction int

const (
	North Direction = iota
	East
	South
	West
)

var directions = [...]struct {
	name   string
	dx, dz int
	// strip is the part of the neighbouring region bordering this one.
	strip coord.Edges
}{
	North: {"north", 0, -1, coord.Edges{N: 31, E: 31, S: 31, W: 0}},
	East:  {"east", 1, 0, coord.Edges{N: 0, E: 0, S: 31, W: 0}},
	South: {"south", 0, 1, coord.Edges{N: 0, E: 31, S: 0, W: 0}},
	West:  {"west", -1, 0, coord.Edges{N: 0, E: 31, S: 31, W: 31}},
}

func (d Direction) String() string {
	if d < North || d > West {
		return fmt.Sprintf("Direction(%d)", int(d))
	}
	return directions[d].name
}

// Offset returns the unit step towards d.
func (d Direction) Offset() (dx, dz int) {
	return directions[d].dx, directions[d].dz
}

// Region holds the decoded chunks of one region and the border chunks of its
// four neighbours. Keys are region-local unit coordinates of the region the
// chunk was read from.
type Region struct {
	Coord  coord.Pair
	chunks map[coord.Pair]*chunk.Data
	strips [4]map[coord.Pair]*chunk.Data
}

// Neighborhood is a chunk with its four cardinal neighbours. A missing
// neighbour is a fresh chunk.Empty() and reads as all air. Present chunks are
// shared with the Region they came from.
type Neighborhood struct {
	// Coord is the global unit coordinate of Center.
	Coord  coord.Pair
	Center *chunk.Data
	Sides  [4]*chunk.Data
}

func (n Neighborhood) Side(d Direction) *chunk.Data {
	return n.Sides[d]
}

// LoadRegion decodes every chunk of region c plus the row or column of each
// neighbouring region that touches it. A chunk that fails to decode
// structurally is logged and left out; I/O and decompression errors abort.
func (w *World) LoadRegion(c coord.Pair, dec *chunk.Decoder) (*Region, error) {
	r := &Region{Coord: c}

	var err error
	r.chunks, err = w.loadChunks(w.regionPath(c), coord.Full(coord.UnitsPerContainer), dec)
	if err != nil {
		return nil, fmt.Errorf("region %v: %w", c, err)
	}

	for d := North; d <= West; d++ {
		n := c.Add(d.Offset())
		strip, err := w.loadChunks(w.regionPath(n), directions[d].strip, dec)
		if errors.Is(err, fs.ErrNotExist) {
			strip = map[coord.Pair]*chunk.Data{}
		} else if err != nil {
			return nil, fmt.Errorf("%v neighbour of region %v: %w", d, c, err)
		}
		r.strips[d] = strip
	}
	return r, nil
}

func (w *World) loadChunks(path string, bounds coord.Edges, dec *chunk.Decoder) (map[coord.Pair]*chunk.Data, error) {
	reader, err := region.Open(path)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	chunks := make(map[coord.Pair]*chunk.Data)
	for _, slot := range reader.Occupied(bounds) {
		data, err := decodeSlot(reader, slot, dec)
		if err != nil {
			if !dropsChunk(err) {
				return nil, fmt.Errorf("chunk %v: %w", slot, err)
			}
			w.log.Warn("skipping chunk", "region", reader.Name, "chunk", slot, "err", err)
			continue
		}
		if data != nil {
			chunks[slot] = data
		}
	}
	return chunks, nil
}

func decodeSlot(reader *region.Reader, slot coord.Pair, dec *chunk.Decoder) (*chunk.Data, error) {
	stream, err := reader.OpenSlot(slot.X, slot.Z)
	if err != nil {
		return nil, err
	}
	defer stream.Close()
	return dec.Decode(stream)
}

// dropsChunk reports whether err only concerns the chunk being decoded.
func dropsChunk(err error) bool {
	var decodeErr *nbt.DecodeError
	return errors.As(err, &decodeErr) ||
		errors.Is(err, region.ErrInvalidCompression) ||
		errors.Is(err, region.ErrInvalidChunkLength)
}

func (r *Region) Chunk(local coord.Pair) (*chunk.Data, bool) {
	data, ok := r.chunks[local]
	return data, ok
}

// Chunks returns the local coordinates of every decoded chunk, sorted by z
// and then x.
func (r *Region) Chunks() []coord.Pair {
	list := make([]coord.Pair, 0, len(r.chunks))
	for p := range r.chunks {
		list = append(list, p)
	}
	sortPairs(list)
	return list
}

// Neighborhood assembles the chunk at local with its neighbours. ok is false
// when the region holds no chunk there.
func (r *Region) Neighborhood(local coord.Pair) (n Neighborhood, ok bool) {
	center, ok := r.chunks[local]
	if !ok {
		return Neighborhood{}, false
	}
	n = Neighborhood{
		Coord:  coord.GlobalPair(r.Coord, local),
		Center: center,
	}
	for d := North; d <= West; d++ {
		n.Sides[d] = r.neighbor(local, d)
	}
	return n, true
}

func (r *Region) neighbor(local coord.Pair, d Direction) *chunk.Data {
	p := local.Add(d.Offset())
	chunks := r.chunks
	if !coord.Full(coord.UnitsPerContainer).Contains(p) {
		chunks = r.strips[d]
		p = coord.LocalPair(p)
	}
	if data, ok := chunks[p]; ok {
		return data
	}
	return chunk.Empty()
}

// Assemble loads the region holding global unit u and returns u's
// neighbourhood. ok is false when there is no chunk at u.
func (w *World) Assemble(u coord.Pair, dec *chunk.Decoder) (n Neighborhood, ok bool, err error) {
	r, err := w.LoadRegion(coord.ContainerPair(u), dec)
	if err != nil {
		return Neighborhood{}, false, err
	}
	n, ok = r.Neighborhood(coord.LocalPair(u))
	return n, ok, nil
}
