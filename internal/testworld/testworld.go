// Package testworld writes small worlds to disk for tests: region files with
// hand-built chunk trees and a level.dat.
package testworld

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"

	"github.com/astei/anvilmap/coord"
	"github.com/astei/anvilmap/nbt"
)

const (
	sectorSize   = 4096
	slotsPerSide = coord.UnitsPerContainer
	// Location table plus the timestamp table.
	headerSectors = 2
	schemeZlib    = 2
)

// Block is one palette entry.
type Block struct {
	Name       string            `nbt:"Name"`
	Properties map[string]string `nbt:"Properties,omitempty"`
}

type Section struct {
	Y           int8    `nbt:"Y"`
	Palette     []Block `nbt:"Palette,omitempty"`
	BlockStates []int64 `nbt:"BlockStates,omitempty"`
	BlockLight  []byte  `nbt:"BlockLight,omitempty"`
	SkyLight    []byte  `nbt:"SkyLight,omitempty"`
}

// Level mirrors the "Level" compound of a 1.13–1.15 chunk. Biomes may be
// []byte or []int32. Heightmaps maps names such as WORLD_SURFACE to packed
// words.
type Level struct {
	XPos       int32                  `nbt:"xPos"`
	ZPos       int32                  `nbt:"zPos"`
	Status     string                 `nbt:"Status,omitempty"`
	Entities   []Block                `nbt:"Entities"`
	Sections   []Section              `nbt:"Sections"`
	Biomes     interface{}            `nbt:"Biomes,omitempty"`
	Heightmaps map[string]interface{} `nbt:"Heightmaps,omitempty"`
}

type Chunk struct {
	DataVersion int32  `nbt:"DataVersion"`
	Level       *Level `nbt:"Level,omitempty"`
}

// NewChunk returns a chunk at global unit coordinates u with no sections.
func NewChunk(u coord.Pair) Chunk {
	return Chunk{
		DataVersion: 2230,
		Level:       &Level{XPos: int32(u.X), ZPos: int32(u.Z), Status: "full"},
	}
}

// Encode serializes c as an uncompressed root compound.
func (c Chunk) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := nbt.NewEncoder(&buf).Encode(c); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Pack lays out values the way block states and heightmaps are stored: each
// value bits wide, the last position first, MSB-first over the words taken
// last-to-first. len(values)*bits must be a multiple of 64.
func Pack(values []uint16, bits int) []int64 {
	buf := make([]byte, len(values)*bits/8)
	pos := 0
	for i := len(values) - 1; i >= 0; i-- {
		v := values[i]
		for b := bits - 1; b >= 0; b-- {
			if v>>uint(b)&1 != 0 {
				buf[pos/8] |= 0x80 >> uint(pos%8)
			}
			pos++
		}
	}

	words := make([]int64, len(buf)/8)
	for i := range words {
		words[len(words)-1-i] = int64(binary.BigEndian.Uint64(buf[i*8:]))
	}
	return words
}

// Heights packs 256 column heights into a WORLD_SURFACE heightmap.
func Heights(fn func(x, z int) int) []int64 {
	values := make([]uint16, 256)
	for z := 0; z < 16; z++ {
		for x := 0; x < 16; x++ {
			values[z*16+x] = uint16(fn(x, z))
		}
	}
	return Pack(values, 9)
}

// Fill builds a section at height y whose block at each local position is
// palette[fn(x, y, z)], packed with the given width.
func Fill(y int8, palette []string, bits int, fn func(x, y, z int) int) Section {
	indices := make([]uint16, 4096)
	for ly := 0; ly < 16; ly++ {
		for z := 0; z < 16; z++ {
			for x := 0; x < 16; x++ {
				indices[ly*256+z*16+x] = uint16(fn(x, ly, z))
			}
		}
	}
	s := Section{Y: y, BlockStates: Pack(indices, bits)}
	for _, name := range palette {
		s.Palette = append(s.Palette, Block{Name: name})
	}
	return s
}

// Nibbles returns a 2048-byte light array with every nibble set to v.
func Nibbles(v byte) []byte {
	return bytes.Repeat([]byte{v&0x0f | v<<4}, 2048)
}

type slot struct {
	scheme  byte
	payload []byte
	// length, when set, replaces the declared length len(payload)+1.
	length *int32
}

// Region collects chunk payloads for one region file.
type Region struct {
	slots map[coord.Pair]slot
}

func NewRegion() *Region {
	return &Region{slots: make(map[coord.Pair]slot)}
}

// Put stores c zlib-compressed at region-local x, z.
func (r *Region) Put(x, z int, c Chunk) error {
	raw, err := c.Encode()
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		return err
	}
	if err := zw.Close(); err != nil {
		return err
	}
	r.PutRaw(x, z, schemeZlib, buf.Bytes())
	return nil
}

// PutRaw stores an already compressed payload with an arbitrary scheme byte.
func (r *Region) PutRaw(x, z int, scheme byte, payload []byte) {
	r.slots[coord.Pair{X: x, Z: z}] = slot{scheme: scheme, payload: payload}
}

// PutLength stores payload but declares length instead of len(payload)+1.
func (r *Region) PutLength(x, z int, length int32, payload []byte) {
	r.slots[coord.Pair{X: x, Z: z}] = slot{scheme: schemeZlib, payload: payload, length: &length}
}

// Bytes renders the region file.
func (r *Region) Bytes() []byte {
	keys := make([]coord.Pair, 0, len(r.slots))
	for k := range r.slots {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Z != keys[j].Z {
			return keys[i].Z < keys[j].Z
		}
		return keys[i].X < keys[j].X
	})

	out := make([]byte, headerSectors*sectorSize)
	sector := headerSectors
	for _, k := range keys {
		s := r.slots[k]
		length := int32(len(s.payload) + 1)
		if s.length != nil {
			length = *s.length
		}
		body := make([]byte, 5, 5+len(s.payload))
		binary.BigEndian.PutUint32(body, uint32(length))
		body[4] = s.scheme
		body = append(body, s.payload...)

		sectors := (len(body) + sectorSize - 1) / sectorSize
		padded := make([]byte, sectors*sectorSize)
		copy(padded, body)
		out = append(out, padded...)

		entry := uint32(sector)<<8 | uint32(sectors)
		binary.BigEndian.PutUint32(out[(k.Z*slotsPerSide+k.X)*4:], entry)
		sector += sectors
	}
	return out
}

// World is a world directory under construction.
type World struct {
	Dir     string
	regions map[coord.Pair]*Region
}

func NewWorld(dir string) *World {
	return &World{Dir: dir, regions: make(map[coord.Pair]*Region)}
}

// Region returns the builder for container c, creating it on first use.
func (w *World) Region(c coord.Pair) *Region {
	r, ok := w.regions[c]
	if !ok {
		r = NewRegion()
		w.regions[c] = r
	}
	return r
}

// PutChunk stores a chunk built by NewChunk at global unit coordinates u.
func (w *World) PutChunk(u coord.Pair, c Chunk) error {
	return w.Region(coord.ContainerPair(u)).Put(coord.UnitInContainer(u.X), coord.UnitInContainer(u.Z), c)
}

// Save writes every region file to Dir/region.
func (w *World) Save() error {
	dir := filepath.Join(w.Dir, "region")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for c, r := range w.regions {
		name := filepath.Join(dir, fmt.Sprintf("r.%d.%d.mca", c.X, c.Z))
		if err := os.WriteFile(name, r.Bytes(), 0o644); err != nil {
			return err
		}
	}
	return nil
}

type Version struct {
	ID   int32  `nbt:"Id"`
	Name string `nbt:"Name"`
}

// LevelData is the subset of level.dat that tests care about.
type LevelData struct {
	LevelName   string  `nbt:"LevelName"`
	DataVersion int32   `nbt:"DataVersion"`
	Version     Version `nbt:"Version"`
	SpawnX      int32   `nbt:"SpawnX"`
	SpawnY      int32   `nbt:"SpawnY"`
	SpawnZ      int32   `nbt:"SpawnZ"`
	LastPlayed  int64   `nbt:"LastPlayed"`
}

// WriteLevel writes a gzip-compressed level.dat into Dir.
func (w *World) WriteLevel(data LevelData) error {
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return err
	}
	file, err := os.Create(filepath.Join(w.Dir, "level.dat"))
	if err != nil {
		return err
	}
	defer file.Close()

	gz := gzip.NewWriter(file)
	root := struct {
		Data LevelData `nbt:"Data"`
	}{data}
	if err := nbt.NewEncoder(gz).Encode(root); err != nil {
		return err
	}
	if err := gz.Close(); err != nil {
		return err
	}
	return file.Close()
}
