package cluster

import (
	"math"
	"testing"
)

// Two tight groups ~5 km wide, 50 km apart, plus one isolated quake.
func scenarioTwoGroups() []*Quake {
	quakes := []*Quake{
		// Group 1 around (35.0, -118.0).
		makeQuake("g1a", 4.0, 35.00, -118.00),
		makeQuake("g1b", 3.1, 35.02, -118.01),
		makeQuake("g1c", 2.8, 34.99, -118.02),
		makeQuake("g1d", 2.5, 35.01, -117.98),
		makeQuake("g1e", 2.2, 34.98, -118.00),
		// Group 2 around (35.45, -118.0), ~50 km north of group 1.
		makeQuake("g2a", 3.9, 35.45, -118.00),
		makeQuake("g2b", 3.0, 35.46, -118.01),
		makeQuake("g2c", 2.7, 35.44, -117.99),
		makeQuake("g2d", 2.4, 35.45, -118.02),
		// Isolated, ~170 km away from everything.
		makeQuake("lone", 5.0, 36.50, -118.00),
	}
	return quakes
}

func clusterIDs(c *Cluster) map[string]bool {
	ids := make(map[string]bool, len(c.Quakes))
	for _, q := range c.Quakes {
		ids[q.ID] = true
	}
	return ids
}

func TestFindClustersTwoGroups(t *testing.T) {
	clusters := FindClusters(scenarioTwoGroups(), 20, 3)

	if len(clusters) != 2 {
		t.Fatalf("Expected 2 clusters, got %d", len(clusters))
	}

	sizes := map[int]bool{}
	for _, c := range clusters {
		sizes[len(c.Quakes)] = true
		if clusterIDs(c)["lone"] {
			t.Error("Isolated quake must not appear in any cluster")
		}
	}
	if !sizes[5] || !sizes[4] {
		t.Errorf("Expected cluster sizes 5 and 4, got %v", sizes)
	}
}

func TestFindClustersAnchorHasMaxMagnitude(t *testing.T) {
	quakes := []*Quake{
		makeQuake("low", 3.0, 36.000, -117.500),
		makeQuake("high", 6.0, 36.005, -117.505),
		makeQuake("mid", 4.5, 36.003, -117.502),
	}

	clusters := FindClusters(quakes, 10, 2)
	if len(clusters) != 1 {
		t.Fatalf("Expected 1 cluster, got %d", len(clusters))
	}
	c := clusters[0]
	if c.Anchor().ID != "high" || c.Anchor().Mag() != 6.0 {
		t.Errorf("Expected anchor to be the magnitude 6.0 quake, got %s (%f)", c.Anchor().ID, c.Anchor().Mag())
	}
	if c.Anchor().Mag() != c.MaxMagnitude() {
		t.Errorf("Anchor magnitude %f is not the cluster maximum %f", c.Anchor().Mag(), c.MaxMagnitude())
	}
}

func TestFindClustersEmptyAndUndersizedInput(t *testing.T) {
	if clusters := FindClusters(nil, 20, 3); len(clusters) != 0 {
		t.Errorf("Expected empty output for empty input, got %d clusters", len(clusters))
	}
	single := []*Quake{makeQuake("only", 4.0, 36, -120)}
	if clusters := FindClusters(single, 20, 3); len(clusters) != 0 {
		t.Errorf("Expected empty output for single quake with minQuakes=3, got %d clusters", len(clusters))
	}
}

func TestFindClustersAllInvalidInput(t *testing.T) {
	quakes := []*Quake{
		makeQuake("a", 4.0, math.NaN(), -120),
		makeQuake("b", 3.0, 36, math.Inf(1)),
	}
	if clusters := FindClusters(quakes, 20, 1); len(clusters) != 0 {
		t.Errorf("Expected empty output for all-invalid input, got %d clusters", len(clusters))
	}
}

func TestFindClustersDegenerateRadius(t *testing.T) {
	quakes := scenarioTwoGroups()
	for _, radius := range []float64{0, -5, math.NaN()} {
		if clusters := FindClusters(quakes, radius, 3); len(clusters) != 0 {
			t.Errorf("Expected empty output for radius %f, got %d clusters", radius, len(clusters))
		}
	}
}

func TestFindClustersSingletonDegenerate(t *testing.T) {
	quakes := []*Quake{
		makeQuake("a", 4.0, 35.0, -118.0),
		makeQuake("b", 3.0, 38.0, -115.0),
	}
	// minQuakes=1 degenerates to every quake being its own cluster; the
	// engine permits it and leaves guarding to callers.
	clusters := FindClusters(quakes, 5, 1)
	if len(clusters) != 2 {
		t.Errorf("Expected 2 singleton clusters, got %d", len(clusters))
	}
}

func TestFindClustersAbsentMagnitudeSortsAsZero(t *testing.T) {
	noMag := &Quake{ID: "nomag", Latitude: 36.000, Longitude: -117.500, Time: 1}
	quakes := []*Quake{
		noMag,
		makeQuake("anchor", 2.0, 36.002, -117.501),
	}

	clusters := FindClusters(quakes, 10, 2)
	if len(clusters) != 1 {
		t.Fatalf("Expected 1 cluster, got %d", len(clusters))
	}
	if clusters[0].Anchor().ID != "anchor" {
		t.Errorf("Expected the magnitude 2.0 quake to anchor, got %s", clusters[0].Anchor().ID)
	}
	// The nil magnitude survives into the output untouched.
	if clusters[0].Quakes[1].Magnitude != nil {
		t.Error("Expected absent magnitude to stay nil in cluster output")
	}
}

func TestFindClustersDisjointOutput(t *testing.T) {
	quakes := GenerateTestQuakesSeeded(600, testBounds, 21)
	clusters := FindClusters(quakes, 30, 3)

	seen := make(map[string]bool)
	for _, c := range clusters {
		if len(c.Quakes) < 3 {
			t.Errorf("Cluster %s smaller than minQuakes: %d", c.ID, len(c.Quakes))
		}
		anchor := c.Anchor()
		for _, q := range c.Quakes {
			if seen[q.ID] {
				t.Errorf("Quake %s appears in more than one cluster", q.ID)
			}
			seen[q.ID] = true
			if d := DistanceKm(anchor.Latitude, anchor.Longitude, q.Latitude, q.Longitude); d > 30 {
				t.Errorf("Quake %s is %f km from its anchor, beyond the 30 km radius", q.ID, d)
			}
			if q.Mag() > anchor.Mag() {
				t.Errorf("Cluster member %s (%f) outranks anchor %s (%f)", q.ID, q.Mag(), anchor.ID, anchor.Mag())
			}
		}
	}
}

func TestFindClustersGreedyAbsorption(t *testing.T) {
	// The strong anchor absorbs "torn" into an undersized, discarded group;
	// torn must not be reconsidered for the later cluster it also neighbors.
	torn := makeQuake("torn", 1.0, 35.10, -118.00)
	quakes := []*Quake{
		makeQuake("strong", 6.0, 35.00, -118.00), // 11 km south of torn
		torn,
		makeQuake("w1", 2.0, 35.20, -118.00), // 11 km north of torn
		makeQuake("w2", 1.9, 35.21, -118.01),
		makeQuake("w3", 1.8, 35.19, -118.01),
	}

	clusters := FindClusters(quakes, 15, 3)
	if len(clusters) != 1 {
		t.Fatalf("Expected exactly 1 cluster, got %d", len(clusters))
	}
	ids := clusterIDs(clusters[0])
	if ids["torn"] || ids["strong"] {
		t.Errorf("Quakes absorbed by the discarded anchor group leaked into a cluster: %v", ids)
	}
	if len(clusters[0].Quakes) != 3 {
		t.Errorf("Expected the 3-quake western cluster, got %d members", len(clusters[0].Quakes))
	}
}

func TestFindClustersIndexedMatchesReference(t *testing.T) {
	cases := []struct {
		name      string
		quakes    []*Quake
		radius    float64
		minQuakes int
	}{
		{"two groups", scenarioTwoGroups(), 20, 3},
		{"random 300", GenerateTestQuakesSeeded(300, testBounds, 42), 25, 3},
		{"random 1000 small radius", GenerateTestQuakesSeeded(1000, testBounds, 43), 8, 2},
		{"random 1000 singletons", GenerateTestQuakesSeeded(1000, testBounds, 44), 15, 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			reference := FindClusters(tc.quakes, tc.radius, tc.minQuakes)

			index := BuildIndex(tc.quakes, 4)
			optimized := FindClustersIndexed(tc.quakes, index, tc.radius, tc.minQuakes)

			if len(reference) != len(optimized) {
				t.Fatalf("Cluster counts differ: reference %d, optimized %d", len(reference), len(optimized))
			}
			for i := range reference {
				if len(reference[i].Quakes) != len(optimized[i].Quakes) {
					t.Fatalf("Cluster %d sizes differ: %d vs %d", i, len(reference[i].Quakes), len(optimized[i].Quakes))
				}
				for j := range reference[i].Quakes {
					if reference[i].Quakes[j].ID != optimized[i].Quakes[j].ID {
						t.Errorf("Cluster %d member %d differs: %s vs %s",
							i, j, reference[i].Quakes[j].ID, optimized[i].Quakes[j].ID)
					}
				}
			}
		})
	}
}

func TestFindClustersIndexedNilIndex(t *testing.T) {
	if clusters := FindClustersIndexed(scenarioTwoGroups(), nil, 20, 3); len(clusters) != 0 {
		t.Errorf("Expected empty output for nil index, got %d clusters", len(clusters))
	}
}

func TestClusterOrderFollowsAnchorMagnitude(t *testing.T) {
	clusters := FindClusters(scenarioTwoGroups(), 20, 3)
	if len(clusters) != 2 {
		t.Fatalf("Expected 2 clusters, got %d", len(clusters))
	}
	if clusters[0].Anchor().Mag() < clusters[1].Anchor().Mag() {
		t.Errorf("Expected clusters in descending anchor magnitude order, got %f then %f",
			clusters[0].Anchor().Mag(), clusters[1].Anchor().Mag())
	}
}
