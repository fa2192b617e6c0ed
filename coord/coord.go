// Package coord converts between block, unit (chunk) and container (region)
// coordinates and describes rectangular areas in any of those spaces.
package coord

import (
	"fmt"
	"math"
)

const (
	BlocksPerUnit      = 16
	UnitsPerContainer  = 32
	BlocksPerContainer = BlocksPerUnit * UnitsPerContainer
)

// Pair is a horizontal position. It is comparable and used as a map key.
type Pair struct {
	X, Z int
}

func (p Pair) String() string {
	return fmt.Sprintf("%d,%d", p.X, p.Z)
}

func (p Pair) Add(dx, dz int) Pair {
	return Pair{X: p.X + dx, Z: p.Z + dz}
}

// BlockToUnit returns the unit holding block b. Negative coordinates round
// towards negative infinity.
func BlockToUnit(b int) int { return b >> 4 }

// BlockInUnit returns the offset of block b inside its unit, 0..15.
func BlockInUnit(b int) int { return b & (BlocksPerUnit - 1) }

func UnitToContainer(u int) int { return u >> 5 }

// UnitInContainer returns the offset of unit u inside its container, 0..31.
func UnitInContainer(u int) int { return u & (UnitsPerContainer - 1) }

func UnitToBlock(u int) int { return u * BlocksPerUnit }

func ContainerToUnit(c int) int { return c * UnitsPerContainer }

func BlockToContainer(b int) int { return UnitToContainer(BlockToUnit(b)) }

// UnitPair converts a block position to the unit that holds it.
func UnitPair(block Pair) Pair {
	return Pair{X: BlockToUnit(block.X), Z: BlockToUnit(block.Z)}
}

// ContainerPair converts a unit position to the container that holds it.
func ContainerPair(unit Pair) Pair {
	return Pair{X: UnitToContainer(unit.X), Z: UnitToContainer(unit.Z)}
}

// LocalPair returns the position of a unit inside its container.
func LocalPair(unit Pair) Pair {
	return Pair{X: UnitInContainer(unit.X), Z: UnitInContainer(unit.Z)}
}

// GlobalPair is the inverse of ContainerPair and LocalPair.
func GlobalPair(container, local Pair) Pair {
	return Pair{
		X: ContainerToUnit(container.X) + local.X,
		Z: ContainerToUnit(container.Z) + local.Z,
	}
}

// Edges is an inclusive rectangle: N is the smallest z, S the largest, W the
// smallest x and E the largest.
type Edges struct {
	N, E, S, W int
}

// Full returns the edges of a size×size grid starting at 0.
func Full(size int) Edges {
	return Edges{N: 0, E: size - 1, S: size - 1, W: 0}
}

// EmptyEdges returns edges that contain nothing; Union grows them.
func EmptyEdges() Edges {
	return Edges{N: math.MaxInt32, E: math.MinInt32, S: math.MinInt32, W: math.MaxInt32}
}

func (e Edges) IsEmpty() bool {
	return e.W > e.E || e.N > e.S
}

func (e Edges) Contains(p Pair) bool {
	return p.X >= e.W && p.X <= e.E && p.Z >= e.N && p.Z <= e.S
}

// Size returns the width (x) and depth (z) covered, or zero when empty.
func (e Edges) Size() Pair {
	if e.IsEmpty() {
		return Pair{}
	}
	return Pair{X: e.E - e.W + 1, Z: e.S - e.N + 1}
}

// Union grows e to cover p.
func (e *Edges) Union(p Pair) {
	if p.X < e.W {
		e.W = p.X
	}
	if p.X > e.E {
		e.E = p.X
	}
	if p.Z < e.N {
		e.N = p.Z
	}
	if p.Z > e.S {
		e.S = p.Z
	}
}

func (e Edges) Intersect(o Edges) Edges {
	return Edges{
		N: max(e.N, o.N),
		E: min(e.E, o.E),
		S: min(e.S, o.S),
		W: max(e.W, o.W),
	}
}

// BlocksToUnits returns the units touched by block edges e.
func (e Edges) BlocksToUnits() Edges {
	return Edges{
		N: BlockToUnit(e.N),
		E: BlockToUnit(e.E),
		S: BlockToUnit(e.S),
		W: BlockToUnit(e.W),
	}
}

// UnitsToContainers returns the containers touched by unit edges e.
func (e Edges) UnitsToContainers() Edges {
	return Edges{
		N: UnitToContainer(e.N),
		E: UnitToContainer(e.E),
		S: UnitToContainer(e.S),
		W: UnitToContainer(e.W),
	}
}

// UnitsToBlocks returns the block edges covered by whole units e.
func (e Edges) UnitsToBlocks() Edges {
	return Edges{
		N: UnitToBlock(e.N),
		E: UnitToBlock(e.E) + BlocksPerUnit - 1,
		S: UnitToBlock(e.S) + BlocksPerUnit - 1,
		W: UnitToBlock(e.W),
	}
}

// InContainer returns the part of global unit edges e that falls inside
// container c, in container-local unit coordinates.
func (e Edges) InContainer(c Pair) Edges {
	origin := GlobalPair(c, Pair{})
	local := Edges{
		N: e.N - origin.Z,
		E: e.E - origin.X,
		S: e.S - origin.Z,
		W: e.W - origin.X,
	}
	return local.Intersect(Full(UnitsPerContainer))
}

func (e Edges) String() string {
	return fmt.Sprintf("n=%d e=%d s=%d w=%d", e.N, e.E, e.S, e.W)
}
