// Package chunk decodes one unit (a 16×16×256 column) into flat block, light
// and biome arrays.
package chunk

const (
	Width           = 16
	Height          = 256
	SectionHeight   = 16
	SectionCount    = Height / SectionHeight
	BlocksInLayer   = Width * Width
	BlocksInSection = BlocksInLayer * SectionHeight
	BlocksInChunk   = BlocksInLayer * Height
	lightBytes      = BlocksInSection / 2
	heightBits      = 9
	heightWords     = BlocksInLayer * heightBits / 64
)

// Data is one decoded unit. Every array is always fully populated. Voxels are
// ordered y, then z, then x. Each light byte holds block light in its high
// nibble and sky light in its low nibble. Heights holds the stored surface
// height of each column, ordered z then x.
type Data struct {
	Blocks  [BlocksInChunk]uint16
	Lights  [BlocksInChunk]uint8
	Biomes  [BlocksInLayer]uint8
	Heights [BlocksInLayer]uint16
}

// Empty returns a new all-zero unit.
func Empty() *Data {
	return new(Data)
}

// Index returns the array position of local voxel x, y, z.
func Index(x, y, z int) int {
	return y*BlocksInLayer + z*Width + x
}

func (d *Data) Block(x, y, z int) uint16 {
	return d.Blocks[Index(x, y, z)]
}

func (d *Data) SkyLight(x, y, z int) uint8 {
	return d.Lights[Index(x, y, z)] & 0x0f
}

func (d *Data) BlockLight(x, y, z int) uint8 {
	return d.Lights[Index(x, y, z)] >> 4
}

func (d *Data) Biome(x, z int) uint8 {
	return d.Biomes[z*Width+x]
}

// Height returns the surface height of column x, z as stored in the chunk:
// one above the highest non-air block, or 0 for an empty column.
func (d *Data) Height(x, z int) int {
	return int(d.Heights[z*Width+x])
}

// Column returns the block indices of column x, z from bottom to top.
func (d *Data) Column(x, z int) []uint16 {
	col := make([]uint16, Height)
	for y := range col {
		col[y] = d.Blocks[Index(x, y, z)]
	}
	return col
}

// Top returns the height and block of the highest block in column x, z that
// is not air. ok is false for an all-air column.
func (d *Data) Top(x, z int) (y int, block uint16, ok bool) {
	for y = Height - 1; y >= 0; y-- {
		if b := d.Blocks[Index(x, y, z)]; b != Air {
			return y, b, true
		}
	}
	return 0, Air, false
}

// Count returns the number of voxels that are not air.
func (d *Data) Count() int {
	n := 0
	for _, b := range d.Blocks {
		if b != Air {
			n++
		}
	}
	return n
}
