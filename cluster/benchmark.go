package cluster

import (
	"sort"
	"strings"
	"time"
)

// ClusteringResult is one engine variant's output plus its wall-clock cost.
type ClusteringResult struct {
	Clusters     []*Cluster    `json:"clusters"`
	ClusterCount int           `json:"clusterCount"`
	TotalQuakes  int           `json:"totalEarthquakes"`
	Duration     time.Duration `json:"duration"`
}

// ComparisonResult holds both variants run on identical input. Equivalent is
// true when the two produced the same grouping (same set-of-sets of quake
// IDs), which is the correctness contract between the reference and the
// accelerated path.
type ComparisonResult struct {
	Optimized  ClusteringResult `json:"optimized"`
	Reference  ClusteringResult `json:"reference"`
	Equivalent bool             `json:"equivalent"`
}

// CompareClusterers runs the index-accelerated and brute-force engines on the
// same input and reports both outputs with timings. The accelerated timing
// includes building its index, since a production pass pays that cost too.
// Side-effect free; safe to call repeatedly.
func CompareClusterers(quakes []*Quake, maxDistanceKm float64, minQuakes int) ComparisonResult {
	start := time.Now()
	index := BuildIndex(quakes, defaultTargetPerCell)
	optimized := FindClustersIndexed(quakes, index, maxDistanceKm, minQuakes)
	optimizedDuration := time.Since(start)

	start = time.Now()
	reference := FindClusters(quakes, maxDistanceKm, minQuakes)
	referenceDuration := time.Since(start)

	return ComparisonResult{
		Optimized:  summarize(optimized, optimizedDuration),
		Reference:  summarize(reference, referenceDuration),
		Equivalent: sameGrouping(optimized, reference),
	}
}

// defaultTargetPerCell is the bucket occupancy BuildIndex aims for when the
// harness builds its own index.
const defaultTargetPerCell = 4

func summarize(clusters []*Cluster, d time.Duration) ClusteringResult {
	total := 0
	for _, c := range clusters {
		total += len(c.Quakes)
	}
	return ClusteringResult{
		Clusters:     clusters,
		ClusterCount: len(clusters),
		TotalQuakes:  total,
		Duration:     d,
	}
}

// sameGrouping compares two cluster lists as sets of ID sets, ignoring
// cluster order, member order and generated cluster IDs.
func sameGrouping(a, b []*Cluster) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]int, len(a))
	for _, c := range a {
		seen[groupingKey(c)]++
	}
	for _, c := range b {
		key := groupingKey(c)
		if seen[key] == 0 {
			return false
		}
		seen[key]--
	}
	return true
}

func groupingKey(c *Cluster) string {
	ids := make([]string, len(c.Quakes))
	for i, q := range c.Quakes {
		ids[i] = q.ID
	}
	sort.Strings(ids)
	return strings.Join(ids, "\x00")
}
