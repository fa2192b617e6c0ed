package chunk

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/astei/anvilmap/nbt"
)

// Decoder turns a decompressed chunk tag tree into Data. Palette names are
// resolved through the registry it was built with.
type Decoder struct {
	registry *Registry
}

func NewDecoder(registry *Registry) *Decoder {
	return &Decoder{registry: registry}
}

// Decode reads one chunk from source, which must be positioned at its root
// tag header. A chunk without a Level compound yields nil and no error.
//
// Structural problems are reported as *nbt.DecodeError. Errors from source
// itself are returned unchanged.
func (d *Decoder) Decode(source io.Reader) (*Data, error) {
	tags := nbt.NewReader(source)
	typ, _, err := tags.ReadHeader()
	if err != nil {
		return nil, err
	}
	if typ != nbt.TagCompound {
		return nil, &nbt.DecodeError{Op: "decode chunk", Err: fmt.Errorf("root is %v, not a compound", typ)}
	}

	typ, found, err := tags.SeekNamed("Level")
	if err != nil {
		return nil, err
	}
	if !found || typ != nbt.TagCompound {
		return nil, nil
	}

	data := new(Data)
	var lit [SectionCount]bool
	for {
		name, typ, found, err := tags.SeekNamedAny("Sections", "Biomes", "Heightmaps")
		if err != nil {
			return nil, err
		}
		if !found {
			break
		}

		switch name {
		case "Sections":
			if typ != nbt.TagList {
				return nil, &nbt.DecodeError{Op: "decode sections", Err: fmt.Errorf("expected %v, found %v", nbt.TagList, typ)}
			}
			if err := d.readSections(tags, data, &lit); err != nil {
				return nil, err
			}
		case "Biomes":
			if err := readBiomes(tags, typ, data); err != nil {
				return nil, err
			}
		case "Heightmaps":
			if err := readHeights(tags, typ, data); err != nil {
				return nil, err
			}
		}
	}

	fillLight(data, &lit)
	return data, nil
}

func (d *Decoder) readSections(tags *nbt.Reader, data *Data, lit *[SectionCount]bool) error {
	elem, n, err := tags.ReadListLength()
	if err != nil {
		return err
	}
	if n > 0 && elem != nbt.TagCompound {
		return &nbt.DecodeError{Op: "decode sections", Err: fmt.Errorf("list of %v", elem)}
	}

	for i := 0; i < n; i++ {
		fields, err := tags.MaterializeCompound("Y", "Palette", "BlockStates", "BlockLight", "SkyLight")
		if err != nil {
			return err
		}
		if err := d.readSection(fields, data, lit); err != nil {
			return err
		}
	}
	return nil
}

func (d *Decoder) readSection(fields map[string]nbt.Tag, data *Data, lit *[SectionCount]bool) error {
	yTag, ok := fields["Y"]
	if !ok {
		return &nbt.DecodeError{Op: "decode section", Err: fmt.Errorf("missing Y")}
	}
	y, err := yTag.Int()
	if err != nil {
		return err
	}
	// Light-only sections below and above the world.
	if y < 0 || y >= SectionCount {
		return nil
	}
	base := int(y) * BlocksInSection

	if states, ok := fields["BlockStates"]; ok {
		words, err := states.LongArray()
		if err != nil {
			return err
		}
		palette, err := d.palette(fields["Palette"])
		if err != nil {
			return err
		}
		if err := unpack(data.Blocks[base:base+BlocksInSection], words, palette); err != nil {
			return err
		}
	}

	blockTag, hasBlock := fields["BlockLight"]
	skyTag, hasSky := fields["SkyLight"]
	if !hasBlock && !hasSky {
		return nil
	}
	var blockLight, skyLight []byte
	if hasBlock {
		if blockLight, err = nibbles("BlockLight", blockTag); err != nil {
			return err
		}
	}
	if hasSky {
		if skyLight, err = nibbles("SkyLight", skyTag); err != nil {
			return err
		}
	}
	packLight(data.Lights[base:base+BlocksInSection], blockLight, skyLight)
	lit[y] = true
	return nil
}

// palette resolves each entry's Name to a registry index.
func (d *Decoder) palette(tag nbt.Tag) ([]uint16, error) {
	entries, err := tag.List()
	if err != nil {
		return nil, err
	}
	palette := make([]uint16, len(entries))
	for i, entry := range entries {
		props, err := entry.Compound()
		if err != nil {
			return nil, err
		}
		name, err := props["Name"].Text()
		if err != nil {
			return nil, err
		}
		index, ok := d.registry.Lookup(name)
		if !ok {
			return nil, &nbt.DecodeError{Op: "decode palette", Err: fmt.Errorf("%w: %s", ErrUnknownBlock, name)}
		}
		palette[i] = index
	}
	return palette, nil
}

// unpack decodes 4096 palette indices. The width is len(words)/64 bits.
func unpack(dst []uint16, words []int64, palette []uint16) error {
	bits := uint(len(words) / 64)
	if bits == 0 || bits > 16 {
		return &nbt.DecodeError{Op: "unpack block states", Err: fmt.Errorf("%d words", len(words))}
	}
	return readPacked(words, bits, len(dst), func(i int, v uint64) error {
		if v >= uint64(len(palette)) {
			return &nbt.DecodeError{Op: "unpack block states", Err: fmt.Errorf("index %d outside palette of %d", v, len(palette))}
		}
		dst[i] = palette[v]
		return nil
	})
}

// readPacked reads n values of the given width from words. The words are
// taken last to first, each most significant byte first, as one bit stream
// holding positions n-1 down to 0. words must hold at least n*bits bits.
func readPacked(words []int64, bits uint, n int, fn func(i int, v uint64) error) error {
	stream := make([]byte, len(words)*8)
	for i := range words {
		binary.BigEndian.PutUint64(stream[i*8:], uint64(words[len(words)-1-i]))
	}

	var acc uint64
	var have uint
	pos := 0
	for i := n - 1; i >= 0; i-- {
		for have < bits {
			acc = acc<<8 | uint64(stream[pos])
			pos++
			have += 8
		}
		have -= bits
		v := acc >> have & (1<<bits - 1)
		acc &= 1<<have - 1
		if err := fn(i, v); err != nil {
			return err
		}
	}
	return nil
}

func nibbles(name string, tag nbt.Tag) ([]byte, error) {
	b, err := tag.ByteArray()
	if err != nil {
		return nil, err
	}
	if len(b) != lightBytes {
		return nil, &nbt.DecodeError{Op: "decode " + name, Err: fmt.Errorf("%d bytes, want %d", len(b), lightBytes)}
	}
	return b, nil
}

var darkness [lightBytes]byte

// packLight merges two nibble arrays into dst. A nil channel reads as zero.
func packLight(dst []uint8, blockLight, skyLight []byte) {
	if blockLight == nil {
		blockLight = darkness[:]
	}
	if skyLight == nil {
		skyLight = darkness[:]
	}
	for i := 0; i < lightBytes; i++ {
		b, s := blockLight[i], skyLight[i]
		dst[i*2] = (b&0x0f)<<4 | s&0x0f
		dst[i*2+1] = b&0xf0 | s>>4
	}
}

// fillLight gives every section without light data the bottom layer of the
// nearest lit section above it. Above the top the sky is fully lit. Occlusion
// is not modelled.
func fillLight(data *Data, lit *[SectionCount]bool) {
	var above [BlocksInLayer]uint8
	for i := range above {
		above[i] = 0x0f
	}
	for y := SectionCount - 1; y >= 0; y-- {
		base := y * BlocksInSection
		if lit[y] {
			copy(above[:], data.Lights[base:base+BlocksInLayer])
			continue
		}
		for layer := 0; layer < SectionHeight; layer++ {
			offset := base + layer*BlocksInLayer
			copy(data.Lights[offset:offset+BlocksInLayer], above[:])
		}
	}
}

func readBiomes(tags *nbt.Reader, typ nbt.TagType, data *Data) error {
	switch typ {
	case nbt.TagByteArray:
		biomes, err := tags.ReadByteArray()
		if err != nil {
			return err
		}
		if len(biomes) == BlocksInLayer {
			copy(data.Biomes[:], biomes)
		}
	case nbt.TagIntArray:
		biomes, err := tags.ReadIntArray()
		if err != nil {
			return err
		}
		if len(biomes) == BlocksInLayer {
			for i, b := range biomes {
				data.Biomes[i] = uint8(b)
			}
		}
	default:
		return tags.Skip(typ)
	}
	return nil
}

// readHeights decodes the WORLD_SURFACE heightmap: 256 columns of 9 bits in
// 36 words, packed like block states. Other layouts leave zeros.
func readHeights(tags *nbt.Reader, typ nbt.TagType, data *Data) error {
	if typ != nbt.TagCompound {
		return tags.Skip(typ)
	}
	maps, err := tags.MaterializeCompound("WORLD_SURFACE")
	if err != nil {
		return err
	}
	surface, ok := maps["WORLD_SURFACE"]
	if !ok {
		return nil
	}
	words, err := surface.LongArray()
	if err != nil {
		return err
	}
	if len(words) != heightWords {
		return nil
	}
	return readPacked(words, heightBits, BlocksInLayer, func(i int, v uint64) error {
		data.Heights[i] = uint16(v)
		return nil
	})
}
