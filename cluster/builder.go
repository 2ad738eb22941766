package cluster

import (
	"fmt"
	"math"
)

const (
	// boundsBufferFraction pads the tight bounding box on each axis so radius
	// queries near the edge are not truncated by the index bounds.
	boundsBufferFraction = 0.1

	// minBoundsBuffer keeps the padding non-degenerate when all events share
	// a latitude or longitude.
	minBoundsBuffer = 0.1
)

// BuildIndex filters the quakes to those with finite coordinates, computes a
// buffered bounding box and an adaptive cell size, and returns a populated
// index. Returns nil when no valid quakes remain: "nothing to index", as
// opposed to an empty but usable index.
func BuildIndex(quakes []*Quake, targetPerCell int) *SpatialIndex {
	valid := make([]*Quake, 0, len(quakes))
	for _, q := range quakes {
		if q.HasValidCoordinates() {
			valid = append(valid, q)
		}
	}
	if len(valid) == 0 {
		return nil
	}

	bounds, _ := boundingBox(valid)
	bounds = bufferBounds(bounds)

	cellSize := CalculateOptimalCellSize(valid, targetPerCell)
	if cellSize <= 0 || math.IsNaN(cellSize) {
		cellSize = DefaultCellSize
	}

	index := NewSpatialIndex(bounds, cellSize)
	failed := 0
	for _, q := range valid {
		if !index.Insert(q) {
			// A quake passed the finiteness check but still missed the
			// buffered box (floating rounding at the edge). Not fatal.
			failed++
		}
	}
	if failed > 0 {
		fmt.Printf("BuildIndex: %d of %d valid quakes failed insertion\n", failed, len(valid))
	}

	return index
}

func bufferBounds(b Bounds) Bounds {
	latBuffer := (b.North - b.South) * boundsBufferFraction
	if latBuffer < minBoundsBuffer {
		latBuffer = minBoundsBuffer
	}
	lonBuffer := (b.East - b.West) * boundsBufferFraction
	if lonBuffer < minBoundsBuffer {
		lonBuffer = minBoundsBuffer
	}
	return Bounds{
		North: b.North + latBuffer,
		South: b.South - latBuffer,
		East:  b.East + lonBuffer,
		West:  b.West - lonBuffer,
	}
}
