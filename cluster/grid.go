package cluster

import "math"

// DefaultCellSize is used whenever an adaptive cell size cannot be computed.
const DefaultCellSize = 1.0

type cellKey struct {
	X, Y int
}

// SpatialIndex is a uniform grid over a bounded lat/lon rectangle. Cells are
// cellSize degrees on each side and hold references to the inserted quakes.
// A grid beats a k-d or quad tree here: event density is roughly uniform
// within one run's bounding box, insertion is O(1), and a radius query only
// scans a small fixed neighborhood of cells.
//
// An index is built once per clustering pass, queried, and discarded. It is
// not safe for concurrent mutation; concurrent passes need their own index.
type SpatialIndex struct {
	cellSize float64
	bounds   Bounds
	cells    map[cellKey][]*Quake

	quakeCount     int
	insertions     int
	queries        int
	distCalcsSaved int
}

// IndexStats is a point-in-time snapshot of the index's usage counters.
type IndexStats struct {
	Insertions                int     `json:"insertions"`
	Queries                   int     `json:"queries"`
	QuakeCount                int     `json:"earthquakeCount"`
	GridCells                 int     `json:"gridCells"`
	CellSize                  float64 `json:"cellSize"`
	DistanceCalculationsSaved int     `json:"distanceCalculationsSaved"`
}

// Neighbor is a radius-query hit annotated with its exact distance.
type Neighbor struct {
	Quake      *Quake  `json:"quake"`
	DistanceKm float64 `json:"distanceKm"`
}

// NewSpatialIndex creates an empty index. cellSize must be > 0; callers that
// compute an adaptive size are responsible for substituting DefaultCellSize
// before construction (BuildIndex does this).
func NewSpatialIndex(bounds Bounds, cellSize float64) *SpatialIndex {
	return &SpatialIndex{
		cellSize: cellSize,
		bounds:   bounds,
		cells:    make(map[cellKey][]*Quake),
	}
}

// Bounds returns the rectangle the index covers.
func (si *SpatialIndex) Bounds() Bounds {
	return si.bounds
}

// CellSize returns the grid cell edge length in degrees.
func (si *SpatialIndex) CellSize() float64 {
	return si.cellSize
}

func (si *SpatialIndex) cellFor(lat, lon float64) cellKey {
	return cellKey{
		X: int(math.Floor((lon - si.bounds.West) / si.cellSize)),
		Y: int(math.Floor((lat - si.bounds.South) / si.cellSize)),
	}
}

// Insert adds a quake reference to its grid cell. Returns false without
// mutating the index when the coordinates are non-finite or fall outside the
// index bounds.
func (si *SpatialIndex) Insert(q *Quake) bool {
	if !q.HasValidCoordinates() {
		return false
	}
	if !si.bounds.Contains(q.Latitude, q.Longitude) {
		return false
	}

	key := si.cellFor(q.Latitude, q.Longitude)
	si.cells[key] = append(si.cells[key], q)
	si.insertions++
	si.quakeCount++
	return true
}

// FindWithinRadius returns every indexed quake within radiusKm of the query
// point (inclusive), annotated with its exact Haversine distance. The scan
// window is the block of cells covering the radius converted to degrees; all
// candidates in those cells get an exact distance check.
func (si *SpatialIndex) FindWithinRadius(lat, lon, radiusKm float64) []Neighbor {
	si.queries++

	if radiusKm < 0 || math.IsNaN(radiusKm) {
		si.distCalcsSaved += si.quakeCount
		return nil
	}

	cellsX := int(math.Ceil(lonSpanDegrees(radiusKm, lat)/si.cellSize)) + 1
	cellsY := int(math.Ceil(latSpanDegrees(radiusKm)/si.cellSize)) + 1

	center := si.cellFor(lat, lon)
	var results []Neighbor
	examined := 0

	for cy := center.Y - cellsY; cy <= center.Y+cellsY; cy++ {
		for cx := center.X - cellsX; cx <= center.X+cellsX; cx++ {
			for _, q := range si.cells[cellKey{X: cx, Y: cy}] {
				examined++
				d := DistanceKm(lat, lon, q.Latitude, q.Longitude)
				if d <= radiusKm {
					results = append(results, Neighbor{Quake: q, DistanceKm: d})
				}
			}
		}
	}

	si.distCalcsSaved += si.quakeCount - examined
	return results
}

// QueryBounds returns all quakes whose cell overlaps the given rectangle.
// This is cell-granular: quakes in a partially-overlapping cell are included
// even when they sit just outside the rectangle. Used for coarse viewport
// lookups where the caller clips afterwards if it cares.
func (si *SpatialIndex) QueryBounds(b Bounds) []*Quake {
	si.queries++

	min := si.cellFor(b.South, b.West)
	max := si.cellFor(b.North, b.East)

	var results []*Quake
	for cy := min.Y; cy <= max.Y; cy++ {
		for cx := min.X; cx <= max.X; cx++ {
			results = append(results, si.cells[cellKey{X: cx, Y: cy}]...)
		}
	}
	return results
}

// Stats returns the index's usage counters.
func (si *SpatialIndex) Stats() IndexStats {
	return IndexStats{
		Insertions:                si.insertions,
		Queries:                   si.queries,
		QuakeCount:                si.quakeCount,
		GridCells:                 len(si.cells),
		CellSize:                  si.cellSize,
		DistanceCalculationsSaved: si.distCalcsSaved,
	}
}

// CalculateOptimalCellSize picks a cell size so that average bucket occupancy
// approximates targetPerCell for the given events. Returns DefaultCellSize
// for an empty slice or a degenerate (zero-area) bounding box.
func CalculateOptimalCellSize(quakes []*Quake, targetPerCell int) float64 {
	if len(quakes) == 0 || targetPerCell <= 0 {
		return DefaultCellSize
	}

	bounds, n := boundingBox(quakes)
	if n == 0 {
		return DefaultCellSize
	}

	area := (bounds.North - bounds.South) * (bounds.East - bounds.West)
	if area <= 0 || math.IsNaN(area) {
		return DefaultCellSize
	}

	// area / (n / target) degrees^2 per cell, so edge = sqrt of that.
	cellSize := math.Sqrt(area * float64(targetPerCell) / float64(n))
	if cellSize <= 0 || math.IsNaN(cellSize) {
		return DefaultCellSize
	}
	return cellSize
}

// boundingBox computes the tight bounds of the valid quakes and how many
// quakes were counted.
func boundingBox(quakes []*Quake) (Bounds, int) {
	bounds := Bounds{
		North: math.Inf(-1),
		South: math.Inf(1),
		East:  math.Inf(-1),
		West:  math.Inf(1),
	}
	n := 0
	for _, q := range quakes {
		if !q.HasValidCoordinates() {
			continue
		}
		bounds.Extend(q.Latitude, q.Longitude)
		n++
	}
	return bounds, n
}
