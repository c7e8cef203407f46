// File: internal/spatialgrid/grid.go
// Project: Starwake battle core
// Description: Uniform 3D spatial hash for O(k) neighbor queries
// Version: 1.0.0
// Author: Joshua Ferguson
// Created: 2025-01-07

// Package spatialgrid implements a uniform grid over 3D space that maps
// integer cell coordinates to lists of unit indices, for fast local
// neighbor queries in the battle simulator's per-tick target search.
package spatialgrid

import "math"

type cellKey struct {
	x, y, z int32
}

// Grid is a uniform spatial hash. It is rebuilt every tick: there is no
// removal operation, only Clear followed by a fresh set of Insert calls.
type Grid struct {
	cellSize    float64
	invCellSize float64
	cells       map[cellKey][]int
}

// New creates a Grid with the given cell size (reference value: 100).
func New(cellSize float64) *Grid {
	return &Grid{
		cellSize:    cellSize,
		invCellSize: 1.0 / cellSize,
		cells:       make(map[cellKey][]int),
	}
}

func (g *Grid) key(x, y, z float64) cellKey {
	return cellKey{
		x: int32(math.Floor(x * g.invCellSize)),
		y: int32(math.Floor(y * g.invCellSize)),
		z: int32(math.Floor(z * g.invCellSize)),
	}
}

// Clear empties all cells. The underlying map is reused, not reallocated.
func (g *Grid) Clear() {
	for k := range g.cells {
		delete(g.cells, k)
	}
}

// Insert appends index to the cell containing (x, y, z).
func (g *Grid) Insert(index int, x, y, z float64) {
	k := g.key(x, y, z)
	g.cells[k] = append(g.cells[k], index)
}

// GetNearby returns every index in cells within a Chebyshev radius of
// ceil(radius/cellSize) (floored at 1) of the query cell. The result is a
// superset of units within the Euclidean ball of the given radius; callers
// must re-check actual distance.
func (g *Grid) GetNearby(x, y, z, radius float64) []int {
	center := g.key(x, y, z)

	cellRadius := int32(math.Ceil(radius * g.invCellSize))
	if cellRadius < 1 {
		cellRadius = 1
	}

	var result []int
	for dx := -cellRadius; dx <= cellRadius; dx++ {
		for dy := -cellRadius; dy <= cellRadius; dy++ {
			for dz := -cellRadius; dz <= cellRadius; dz++ {
				k := cellKey{center.x + dx, center.y + dy, center.z + dz}
				if cell, ok := g.cells[k]; ok {
					result = append(result, cell...)
				}
			}
		}
	}
	return result
}

// Stats returns (occupied cell count, total indexed unit count).
func (g *Grid) Stats() (int, int) {
	total := 0
	for _, cell := range g.cells {
		total += len(cell)
	}
	return len(g.cells), total
}
