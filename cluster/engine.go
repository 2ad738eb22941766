package cluster

import (
	"math"
	"sort"
)

// FindClusters is the brute-force reference implementation of the
// anchor-greedy grouping: quakes are sorted by magnitude descending (stable,
// absent magnitude sorts as 0), then each unprocessed quake in turn anchors a
// candidate group of every other unprocessed quake within maxDistanceKm.
// Every member of a candidate group is marked processed whether or not the
// group reaches minQuakes, so an absorbed quake never joins a later cluster,
// even a potentially larger one. That greedy trade-off is deliberate and
// downstream consumers depend on it.
//
// Groups smaller than minQuakes are discarded; their members simply do not
// appear in the output. O(n^2); kept as the correctness reference for
// FindClustersIndexed.
func FindClusters(quakes []*Quake, maxDistanceKm float64, minQuakes int) []*Cluster {
	sorted := sortableQuakes(quakes, maxDistanceKm, minQuakes)
	if sorted == nil {
		return []*Cluster{}
	}

	clusters := []*Cluster{}
	processed := make(map[string]bool, len(sorted))

	for i, anchor := range sorted {
		if processed[anchor.ID] {
			continue
		}
		processed[anchor.ID] = true

		members := []*Quake{anchor}
		for _, other := range sorted[i+1:] {
			if processed[other.ID] {
				continue
			}
			if DistanceKm(anchor.Latitude, anchor.Longitude, other.Latitude, other.Longitude) <= maxDistanceKm {
				members = append(members, other)
				processed[other.ID] = true
			}
		}

		if len(members) >= minQuakes {
			clusters = append(clusters, newCluster(members))
		}
	}

	return clusters
}

// FindClustersIndexed is the grid-accelerated variant. Candidate neighbors
// come from the pre-built index instead of a full scan; members are then
// emitted in sorted-list order so the grouping is identical to FindClusters
// on the same input, member order included. index must contain exactly the
// quakes passed in (BuildIndex over the same slice); a nil index yields an
// empty result.
func FindClustersIndexed(quakes []*Quake, index *SpatialIndex, maxDistanceKm float64, minQuakes int) []*Cluster {
	if index == nil {
		return []*Cluster{}
	}
	sorted := sortableQuakes(quakes, maxDistanceKm, minQuakes)
	if sorted == nil {
		return []*Cluster{}
	}

	clusters := []*Cluster{}
	processed := make(map[string]bool, len(sorted))

	for _, anchor := range sorted {
		if processed[anchor.ID] {
			continue
		}
		processed[anchor.ID] = true

		neighbors := index.FindWithinRadius(anchor.Latitude, anchor.Longitude, maxDistanceKm)

		matched := make(map[string]bool, len(neighbors))
		for _, n := range neighbors {
			if n.Quake.ID == anchor.ID || processed[n.Quake.ID] {
				continue
			}
			matched[n.Quake.ID] = true
		}

		// Collect members by walking the sorted list, so member order (and
		// therefore later anchor selection) matches the reference exactly.
		members := []*Quake{anchor}
		for _, other := range sorted {
			if matched[other.ID] {
				members = append(members, other)
				processed[other.ID] = true
			}
		}

		if len(members) >= minQuakes {
			clusters = append(clusters, newCluster(members))
		}
	}

	return clusters
}

// sortableQuakes validates parameters, filters out quakes that cannot be
// clustered, and returns them stably sorted by magnitude descending. A nil
// return means the caller should produce an empty result.
func sortableQuakes(quakes []*Quake, maxDistanceKm float64, minQuakes int) []*Quake {
	if maxDistanceKm <= 0 || math.IsNaN(maxDistanceKm) {
		return nil
	}

	valid := make([]*Quake, 0, len(quakes))
	for _, q := range quakes {
		if q.HasValidCoordinates() {
			valid = append(valid, q)
		}
	}
	if len(valid) < minQuakes || len(valid) == 0 {
		return nil
	}

	sort.SliceStable(valid, func(i, j int) bool {
		return valid[i].Mag() > valid[j].Mag()
	})
	return valid
}
