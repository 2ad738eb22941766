package main

import (
	"flag"
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"
	"time"

	"github.com/watkajtys/earthquake-sub002/cluster"
)

var (
	cpuprofile  = flag.String("cpuprofile", "", "write cpu profile to file")
	memprofile  = flag.String("memprofile", "", "write memory profile to file")
	heapprofile = flag.String("heapprofile", "", "write heap profile to file")
	numQuakes   = flag.Int("quakes", 10000, "number of quakes to generate")
	maxDistance = flag.Float64("radius", 100, "cluster radius in km")
	minQuakes   = flag.Int("min", 3, "minimum quakes per cluster")
	testall     = flag.Bool("testall", false, "test all configurations")
)

// California-ish region, same shape the service typically handles.
var profileBounds = cluster.Bounds{North: 42, South: 32, East: -114, West: -125}

func runSingleProfile(n int, maxDistanceKm float64, minQuakes int) {
	fmt.Printf("Profiling with %d quakes, radius %.1f km, min %d\n", n, maxDistanceKm, minQuakes)

	quakes := cluster.GenerateTestQuakesSeeded(n, profileBounds, 42)

	// Measure memory before clustering
	var memStatsBefore, memStatsAfter runtime.MemStats
	runtime.ReadMemStats(&memStatsBefore)

	start := time.Now()
	index := cluster.BuildIndex(quakes, 4)
	clusters := cluster.FindClustersIndexed(quakes, index, maxDistanceKm, minQuakes)
	duration := time.Since(start)

	runtime.ReadMemStats(&memStatsAfter)
	allocMB := float64(memStatsAfter.TotalAlloc-memStatsBefore.TotalAlloc) / 1024 / 1024

	stats := index.Stats()
	fmt.Printf("Clustering completed in %v (%d clusters)\n", duration, len(clusters))
	fmt.Printf("Index: %d cells, cell size %.3f deg, %d distance calcs saved\n",
		stats.GridCells, stats.CellSize, stats.DistanceCalculationsSaved)
	fmt.Printf("Memory allocated: %.2f MB\n", allocMB)
	fmt.Printf("Memory usage: %.2f MB\n", float64(memStatsAfter.Alloc)/1024/1024)
}

func runProfileBattery() {
	quakeCounts := []int{1000, 5000, 10000, 25000}
	radii := []float64{25, 50, 100, 250}

	fmt.Println("Running comprehensive profile battery...")
	fmt.Println("=======================================")

	// Table header
	fmt.Printf("%-10s | %-10s | %-12s | %-15s | %-10s | %-10s\n",
		"Quakes", "Radius", "Method", "Duration", "Memory (MB)", "GC Runs")
	fmt.Printf("%s\n", "------------------------------------------------------------------------")

	for _, n := range quakeCounts {
		quakes := cluster.GenerateTestQuakesSeeded(n, profileBounds, 42)

		for _, radius := range radii {
			for _, indexed := range []bool{false, true} {
				method := "Reference"
				if indexed {
					method = "Indexed"
				}

				// Collect GC stats before
				var memStatsBefore, memStatsAfter runtime.MemStats
				runtime.ReadMemStats(&memStatsBefore)

				start := time.Now()
				if indexed {
					index := cluster.BuildIndex(quakes, 4)
					cluster.FindClustersIndexed(quakes, index, radius, 3)
				} else {
					cluster.FindClusters(quakes, radius, 3)
				}
				duration := time.Since(start)

				runtime.ReadMemStats(&memStatsAfter)
				memMB := float64(memStatsAfter.TotalAlloc-memStatsBefore.TotalAlloc) / 1024 / 1024
				gcRuns := memStatsAfter.NumGC - memStatsBefore.NumGC

				fmt.Printf("%-10d | %-10.0f | %-12s | %-15s | %-10.2f | %-10d\n",
					n, radius, method, duration, memMB, gcRuns)
			}
		}

		// Add separator between quake counts
		fmt.Printf("%s\n", "------------------------------------------------------------------------")
	}
}

func main() {
	flag.Parse()

	// Set up CPU profiling if requested
	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Could not create CPU profile: %v\n", err)
			return
		}
		defer f.Close()

		fmt.Println("Starting CPU profiling...")
		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "Could not start CPU profile: %v\n", err)
			return
		}
		defer pprof.StopCPUProfile()
	}

	if *testall {
		runProfileBattery()
	} else {
		runSingleProfile(*numQuakes, *maxDistance, *minQuakes)
	}

	// Write memory profile if requested
	if *memprofile != "" {
		f, err := os.Create(*memprofile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Could not create memory profile: %v\n", err)
			return
		}
		defer f.Close()
		runtime.GC() // Get up-to-date statistics
		if err := pprof.WriteHeapProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "Could not write memory profile: %v\n", err)
		}
	}

	// Write heap profile if requested
	if *heapprofile != "" {
		f, err := os.Create(*heapprofile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Could not create heap profile: %v\n", err)
			return
		}
		defer f.Close()

		memProfile := pprof.Lookup("heap")
		if memProfile == nil {
			fmt.Fprintf(os.Stderr, "Could not find heap profile\n")
			return
		}

		if err := memProfile.WriteTo(f, 0); err != nil {
			fmt.Fprintf(os.Stderr, "Could not write heap profile: %v\n", err)
		}
	}
}
