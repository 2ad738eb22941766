package cluster

import (
	"fmt"
	"math/rand"
	"time"
)

// ClusterSummary aggregates one clustering run for dashboards and logs.
type ClusterSummary struct {
	TotalQuakes    int            `json:"totalEarthquakes"`
	NumClusters    int            `json:"numClusters"`
	LargestCluster int            `json:"largestCluster"`
	Magnitude      MagnitudeStats `json:"magnitude"`
	TimeRange      *TimeRange     `json:"timeRange,omitempty"`
}

type MagnitudeStats struct {
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Average float64 `json:"average"`
}

type TimeRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// CalculateClusterSummary rolls up magnitude and time statistics across all
// clustered quakes. Quakes without a magnitude are excluded from the
// magnitude statistics but still counted.
func CalculateClusterSummary(clusters []*Cluster) ClusterSummary {
	summary := ClusterSummary{NumClusters: len(clusters)}
	if len(clusters) == 0 {
		return summary
	}

	var magMin, magMax, magSum float64
	magCount := 0
	var timeMin, timeMax int64

	for _, c := range clusters {
		summary.TotalQuakes += len(c.Quakes)
		if len(c.Quakes) > summary.LargestCluster {
			summary.LargestCluster = len(c.Quakes)
		}

		for _, q := range c.Quakes {
			if q.Magnitude != nil {
				m := *q.Magnitude
				if magCount == 0 || m < magMin {
					magMin = m
				}
				if magCount == 0 || m > magMax {
					magMax = m
				}
				magSum += m
				magCount++
			}
			if q.Time > 0 {
				if timeMin == 0 || q.Time < timeMin {
					timeMin = q.Time
				}
				if q.Time > timeMax {
					timeMax = q.Time
				}
			}
		}
	}

	if magCount > 0 {
		summary.Magnitude = MagnitudeStats{
			Min:     magMin,
			Max:     magMax,
			Average: magSum / float64(magCount),
		}
	}
	if timeMax > 0 {
		summary.TimeRange = &TimeRange{
			Start: time.UnixMilli(timeMin).UTC().Format(time.RFC3339),
			End:   time.UnixMilli(timeMax).UTC().Format(time.RFC3339),
		}
	}

	return summary
}

// GenerateTestQuakes creates n random quakes inside the given bounds, with
// magnitudes spread over [0, 8) and timestamps spread over the past week.
func GenerateTestQuakes(n int, bounds Bounds) []*Quake {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	return generateQuakes(r, n, bounds)
}

// GenerateTestQuakesSeeded is the deterministic variant used by benchmarks
// and the profiler.
func GenerateTestQuakesSeeded(n int, bounds Bounds, seed int64) []*Quake {
	r := rand.New(rand.NewSource(seed))
	return generateQuakes(r, n, bounds)
}

func generateQuakes(r *rand.Rand, n int, bounds Bounds) []*Quake {
	now := time.Now().UnixMilli()
	quakes := make([]*Quake, n)

	for i := 0; i < n; i++ {
		mag := r.Float64() * 8
		quakes[i] = &Quake{
			ID:        fmt.Sprintf("test%d", i+1),
			Magnitude: &mag,
			Latitude:  bounds.South + r.Float64()*(bounds.North-bounds.South),
			Longitude: bounds.West + r.Float64()*(bounds.East-bounds.West),
			Depth:     r.Float64() * 70,
			Time:      now - int64(r.Intn(7*24*3600*1000)),
		}
	}
	return quakes
}
