package cluster

import (
	"math"

	"github.com/google/uuid"
)

// Quake is one seismic event. Records are immutable once parsed; the index
// and the engines only hold references to them, never copies.
type Quake struct {
	ID        string   `json:"id"`
	Magnitude *float64 `json:"mag"` // nil when the feed reports no magnitude
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Depth     float64  `json:"depth"` // kilometers
	Time      int64    `json:"time"`  // epoch milliseconds
	Place     string   `json:"place,omitempty"`
}

// Mag returns the magnitude, treating an absent magnitude as 0. Used for
// sorting and anchor selection only; the raw (possibly nil) value is what
// gets serialized back out.
func (q *Quake) Mag() float64 {
	if q.Magnitude == nil {
		return 0
	}
	return *q.Magnitude
}

// HasValidCoordinates reports whether the quake can be indexed at all.
func (q *Quake) HasValidCoordinates() bool {
	return !math.IsNaN(q.Latitude) && !math.IsInf(q.Latitude, 0) &&
		!math.IsNaN(q.Longitude) && !math.IsInf(q.Longitude, 0)
}

// Bounds is a lat/lon rectangle with North > South and East > West.
// Rectangles crossing the antimeridian are not supported; a dataset
// straddling +/-180 longitude needs two separate passes.
type Bounds struct {
	North float64 `json:"north"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	West  float64 `json:"west"`
}

// Contains reports whether the point lies inside the bounds (inclusive).
func (b Bounds) Contains(lat, lon float64) bool {
	return lat >= b.South && lat <= b.North && lon >= b.West && lon <= b.East
}

// Extend grows the bounds to include the given point.
func (b *Bounds) Extend(lat, lon float64) {
	b.South = math.Min(b.South, lat)
	b.North = math.Max(b.North, lat)
	b.West = math.Min(b.West, lon)
	b.East = math.Max(b.East, lon)
}

// Cluster is an ordered, non-empty group of quakes. The first element is the
// anchor and carries the maximum magnitude of the group. The ID is generated
// fresh each clustering run and is only meaningful within one response.
type Cluster struct {
	ID     string   `json:"id"`
	Quakes []*Quake `json:"quakes"`
}

func newCluster(quakes []*Quake) *Cluster {
	return &Cluster{
		ID:     uuid.New().String(),
		Quakes: quakes,
	}
}

// Anchor returns the first (maximum-magnitude) member.
func (c *Cluster) Anchor() *Quake {
	return c.Quakes[0]
}

// MaxMagnitude returns the largest magnitude in the cluster.
func (c *Cluster) MaxMagnitude() float64 {
	max := c.Quakes[0].Mag()
	for _, q := range c.Quakes[1:] {
		if q.Mag() > max {
			max = q.Mag()
		}
	}
	return max
}

// GeoJSON types matching the upstream feed shape: properties.mag may be null,
// geometry.coordinates is [longitude, latitude, depth].
type Feature struct {
	Type       string            `json:"type"`
	ID         string            `json:"id"`
	Properties FeatureProperties `json:"properties"`
	Geometry   Geometry          `json:"geometry"`
}

type FeatureProperties struct {
	Mag   *float64 `json:"mag"`
	Time  int64    `json:"time"`
	Place string   `json:"place,omitempty"`
}

type Geometry struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// QuakeFromFeature converts one GeoJSON feature to a Quake. Features with
// fewer than two coordinates yield a quake with NaN coordinates, which the
// index builder filters out downstream.
func QuakeFromFeature(f Feature) *Quake {
	q := &Quake{
		ID:        f.ID,
		Magnitude: f.Properties.Mag,
		Latitude:  math.NaN(),
		Longitude: math.NaN(),
		Time:      f.Properties.Time,
		Place:     f.Properties.Place,
	}
	if len(f.Geometry.Coordinates) >= 2 {
		q.Longitude = f.Geometry.Coordinates[0]
		q.Latitude = f.Geometry.Coordinates[1]
	}
	if len(f.Geometry.Coordinates) >= 3 {
		q.Depth = f.Geometry.Coordinates[2]
	}
	return q
}

// QuakesFromFeatureCollection converts a whole feed snapshot.
func QuakesFromFeatureCollection(fc FeatureCollection) []*Quake {
	quakes := make([]*Quake, len(fc.Features))
	for i, f := range fc.Features {
		quakes[i] = QuakeFromFeature(f)
	}
	return quakes
}

// ToFeature converts a quake back to the feed's GeoJSON shape.
func (q *Quake) ToFeature() Feature {
	return Feature{
		Type: "Feature",
		ID:   q.ID,
		Properties: FeatureProperties{
			Mag:   q.Magnitude,
			Time:  q.Time,
			Place: q.Place,
		},
		Geometry: Geometry{
			Type:        "Point",
			Coordinates: []float64{q.Longitude, q.Latitude, q.Depth},
		},
	}
}

// ToFeatureCollection renders the cluster members, anchor first.
func (c *Cluster) ToFeatureCollection() FeatureCollection {
	features := make([]Feature, len(c.Quakes))
	for i, q := range c.Quakes {
		features[i] = q.ToFeature()
	}
	return FeatureCollection{
		Type:     "FeatureCollection",
		Features: features,
	}
}
