package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/watkajtys/earthquake-sub002/cluster"
)

const (
	defaultMaxDistanceKm = 100.0
	defaultMinQuakes     = 3
	targetQuakesPerCell  = 4
)

var snapshotDir = flag.String("snapshot-dir", "data/snapshots", "directory for quake snapshot files")

// QuakeServer holds the current event snapshot and its spatial index. The
// index is rebuilt whenever a new snapshot is ingested; clustering passes
// read it without mutation.
type QuakeServer struct {
	mu     sync.RWMutex
	quakes []*cluster.Quake
	index  *cluster.SpatialIndex
}

func (s *QuakeServer) SetQuakes(quakes []*cluster.Quake) {
	index := cluster.BuildIndex(quakes, targetQuakesPerCell)

	s.mu.Lock()
	s.quakes = quakes
	s.index = index
	s.mu.Unlock()

	indexed := 0
	if index != nil {
		indexed = index.Stats().QuakeCount
	}
	quakesIndexed.Set(float64(indexed))
	fmt.Printf("Snapshot loaded: %d quakes, %d indexed\n", len(quakes), indexed)
}

func (s *QuakeServer) Snapshot() ([]*cluster.Quake, *cluster.SpatialIndex) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.quakes, s.index
}

type SnapshotInfo struct {
	ID        string    `json:"id"`
	NumQuakes int       `json:"numQuakes"`
	Timestamp time.Time `json:"timestamp"`
	FileSize  int64     `json:"fileSize"`
}

func generateSnapshotFilename(size int) string {
	timestamp := time.Now().Format("20060102-150405")
	id := uuid.New().String()[:8]
	return filepath.Join(*snapshotDir, fmt.Sprintf("snapshot-%dq-%s-%s.zst", size, timestamp, id))
}

// parseSnapshotFilename inverts generateSnapshotFilename.
// Format: snapshot-{numQuakes}q-{date}-{time}-{id}.zst
func parseSnapshotFilename(name string) (SnapshotInfo, bool) {
	parts := strings.Split(strings.TrimSuffix(name, ".zst"), "-")
	if len(parts) != 5 || parts[0] != "snapshot" {
		return SnapshotInfo{}, false
	}
	numQuakes, err := strconv.Atoi(strings.TrimSuffix(parts[1], "q"))
	if err != nil {
		return SnapshotInfo{}, false
	}
	timestamp, err := time.Parse("20060102-150405", parts[2]+"-"+parts[3])
	if err != nil {
		return SnapshotInfo{}, false
	}
	return SnapshotInfo{ID: parts[4], NumQuakes: numQuakes, Timestamp: timestamp}, true
}

func listSnapshots() ([]SnapshotInfo, error) {
	files, err := os.ReadDir(*snapshotDir)
	if err != nil {
		return nil, err
	}

	snapshots := make([]SnapshotInfo, 0)
	for _, file := range files {
		if file.IsDir() || filepath.Ext(file.Name()) != ".zst" {
			continue
		}
		info, ok := parseSnapshotFilename(file.Name())
		if !ok {
			fmt.Printf("Skipping unrecognized snapshot file %s\n", file.Name())
			continue
		}
		if fi, err := file.Info(); err == nil {
			info.FileSize = fi.Size()
		}
		snapshots = append(snapshots, info)
	}

	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].Timestamp.After(snapshots[j].Timestamp)
	})
	return snapshots, nil
}

func findSnapshotFile(id string) (string, error) {
	files, err := os.ReadDir(*snapshotDir)
	if err != nil {
		return "", err
	}
	for _, file := range files {
		if strings.Contains(file.Name(), id) && filepath.Ext(file.Name()) == ".zst" {
			return filepath.Join(*snapshotDir, file.Name()), nil
		}
	}
	return "", fmt.Errorf("snapshot with ID %s not found", id)
}

func (s *QuakeServer) saveSnapshot() (string, error) {
	quakes, _ := s.Snapshot()
	path := generateSnapshotFilename(len(quakes))

	start := time.Now()
	if err := cluster.SaveSnapshot(quakes, path); err != nil {
		snapshotOpsTotal.WithLabelValues("save", "error").Inc()
		return "", err
	}
	snapshotOpsTotal.WithLabelValues("save", "success").Inc()
	fmt.Printf("Snapshot saved to %s in %v\n", path, time.Since(start))
	return path, nil
}

func (s *QuakeServer) loadSnapshotByID(id string) (int, error) {
	path, err := findSnapshotFile(id)
	if err != nil {
		snapshotOpsTotal.WithLabelValues("load", "error").Inc()
		return 0, err
	}

	start := time.Now()
	quakes, err := cluster.LoadSnapshot(path)
	if err != nil {
		snapshotOpsTotal.WithLabelValues("load", "error").Inc()
		return 0, fmt.Errorf("failed to load snapshot: %v", err)
	}
	snapshotOpsTotal.WithLabelValues("load", "success").Inc()
	fmt.Printf("Snapshot %s loaded in %v\n", id, time.Since(start))

	s.SetQuakes(quakes)
	return len(quakes), nil
}

func parseClusterParams(c *gin.Context) (maxDistanceKm float64, minQuakes int, err error) {
	maxDistanceKm = defaultMaxDistanceKm
	minQuakes = defaultMinQuakes

	if v := c.Query("maxDistanceKm"); v != "" {
		maxDistanceKm, err = strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid maxDistanceKm parameter")
		}
	}
	if v := c.Query("minQuakes"); v != "" {
		minQuakes, err = strconv.Atoi(v)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid minQuakes parameter")
		}
	}
	return maxDistanceKm, minQuakes, nil
}

func getBoundsFromQuery(c *gin.Context) (cluster.Bounds, error) {
	north, err := strconv.ParseFloat(c.Query("north"), 64)
	if err != nil {
		return cluster.Bounds{}, fmt.Errorf("invalid north parameter")
	}
	south, err := strconv.ParseFloat(c.Query("south"), 64)
	if err != nil {
		return cluster.Bounds{}, fmt.Errorf("invalid south parameter")
	}
	east, err := strconv.ParseFloat(c.Query("east"), 64)
	if err != nil {
		return cluster.Bounds{}, fmt.Errorf("invalid east parameter")
	}
	west, err := strconv.ParseFloat(c.Query("west"), 64)
	if err != nil {
		return cluster.Bounds{}, fmt.Errorf("invalid west parameter")
	}
	return cluster.Bounds{North: north, South: south, East: east, West: west}, nil
}

func clusterResponse(clusters []*cluster.Cluster) []gin.H {
	out := make([]gin.H, len(clusters))
	for i, cl := range clusters {
		out[i] = gin.H{
			"id":           cl.ID,
			"quakeCount":   len(cl.Quakes),
			"maxMagnitude": cl.MaxMagnitude(),
			"features":     cl.ToFeatureCollection().Features,
		}
	}
	return out
}

func main() {
	port := flag.Int("port", 8000, "HTTP listen port")
	flag.Parse()

	if err := os.MkdirAll(*snapshotDir, 0755); err != nil {
		fmt.Printf("Error creating snapshot directory: %v\n", err)
	}

	registerMetrics()

	server := &QuakeServer{}
	fmt.Println("Started with empty quake server - waiting for a snapshot to be ingested...")

	r := gin.Default()

	// Enable CORS
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Ingest a GeoJSON FeatureCollection as the new snapshot.
	r.POST("/api/quakes", func(c *gin.Context) {
		var fc cluster.FeatureCollection
		if err := c.BindJSON(&fc); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid FeatureCollection body"})
			return
		}

		quakes := cluster.QuakesFromFeatureCollection(fc)
		server.SetQuakes(quakes)
		c.JSON(http.StatusOK, gin.H{"message": "Snapshot ingested", "numQuakes": len(quakes)})
	})

	// Cluster the current snapshot.
	r.GET("/api/clusters", func(c *gin.Context) {
		maxDistanceKm, minQuakes, err := parseClusterParams(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		quakes, index := server.Snapshot()
		fmt.Printf("Clustering %d quakes with maxDistanceKm=%f minQuakes=%d\n",
			len(quakes), maxDistanceKm, minQuakes)

		start := time.Now()
		clusters := cluster.FindClustersIndexed(quakes, index, maxDistanceKm, minQuakes)
		elapsed := time.Since(start)

		clusteringRunsTotal.Inc()
		clusteringDuration.Observe(elapsed.Seconds())
		clustersFound.Set(float64(len(clusters)))

		c.JSON(http.StatusOK, gin.H{
			"clusters": clusterResponse(clusters),
			"summary":  cluster.CalculateClusterSummary(clusters),
			"duration": elapsed.String(),
		})
	})

	// Coarse viewport query against the live index.
	r.GET("/api/quakes", func(c *gin.Context) {
		bounds, err := getBoundsFromQuery(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		_, index := server.Snapshot()
		if index == nil {
			c.JSON(http.StatusOK, gin.H{"quakes": []*cluster.Quake{}})
			return
		}
		c.JSON(http.StatusOK, gin.H{"quakes": index.QueryBounds(bounds)})
	})

	r.GET("/api/stats", func(c *gin.Context) {
		_, index := server.Snapshot()
		if index == nil {
			c.JSON(http.StatusOK, gin.H{"error": "no index built yet"})
			return
		}
		c.JSON(http.StatusOK, index.Stats())
	})

	// Run both engine variants and report timings plus equivalence.
	r.GET("/api/benchmark", func(c *gin.Context) {
		maxDistanceKm, minQuakes, err := parseClusterParams(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		quakes, _ := server.Snapshot()
		result := cluster.CompareClusterers(quakes, maxDistanceKm, minQuakes)

		c.JSON(http.StatusOK, gin.H{
			"equivalent": result.Equivalent,
			"optimized": gin.H{
				"clusterCount":     result.Optimized.ClusterCount,
				"totalEarthquakes": result.Optimized.TotalQuakes,
				"duration":         result.Optimized.Duration.String(),
			},
			"reference": gin.H{
				"clusterCount":     result.Reference.ClusterCount,
				"totalEarthquakes": result.Reference.TotalQuakes,
				"duration":         result.Reference.Duration.String(),
			},
		})
	})

	r.GET("/api/snapshots", func(c *gin.Context) {
		snapshots, err := listSnapshots()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, snapshots)
	})

	r.POST("/api/snapshots", func(c *gin.Context) {
		path, err := server.saveSnapshot()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Snapshot saved", "path": path})
	})

	r.POST("/api/snapshots/load/:id", func(c *gin.Context) {
		id := c.Param("id")
		fmt.Printf("Received request to load snapshot with ID: %s\n", id)

		numQuakes, err := server.loadSnapshotByID(id)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Snapshot loaded successfully", "numQuakes": numQuakes})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		fmt.Printf("Starting server on :%d...\n", *port)
		if err := r.Run(fmt.Sprintf(":%d", *port)); err != nil {
			fmt.Printf("Server error: %v\n", err)
		}
	}()

	<-quit
	fmt.Println("\nShutting down server...")

	if quakes, _ := server.Snapshot(); len(quakes) > 0 {
		if _, err := server.saveSnapshot(); err != nil {
			fmt.Printf("Failed to save snapshot on shutdown: %v\n", err)
		}
	}

	fmt.Println("Server stopped")
}
