// Package ann provides the approximate nearest neighbor index used to match descriptors against
// previously seen content.
package ann

import (
	"math/rand"
	"sort"

	"github.com/coder/hnsw"
	"gonum.org/v1/gonum/floats"

	"go.viam.com/scrollstitch/utils"
)

// Index is an approximate nearest neighbor index over fixed-length descriptors. All Add calls
// must happen before Build, and Search is only valid after Build.
type Index interface {
	// Add registers a descriptor and returns its id.
	Add(desc []float64) int
	// Build makes every added descriptor searchable.
	Build()
	// Search returns the ids of up to k approximate nearest neighbors of desc.
	Search(desc []float64, k int) []int
	// Descriptor returns the descriptor registered under id.
	Descriptor(id int) []float64
	// Len returns the number of registered descriptors.
	Len() int
}

// HNSWConfig holds the graph parameters of an HNSW index.
type HNSWConfig struct {
	// M is the maximum number of neighbors kept per node.
	M int `json:"m"`
	// EfSearch is the candidate list size while searching.
	EfSearch int `json:"ef_search"`
}

// graphSeed seeds node level assignment, so the same descriptors always build the same layers.
const graphSeed = 1

// DefaultHNSWConfig returns graph parameters that find a stored descriptor's own entry for nearly
// every query on frame sized indexes.
func DefaultHNSWConfig() HNSWConfig {
	return HNSWConfig{M: 16, EfSearch: 64}
}

// HNSWIndex is an Index backed by a hierarchical navigable small world graph.
type HNSWIndex struct {
	cfg   HNSWConfig
	descs [][]float64
	graph *hnsw.Graph[int]
}

// NewHNSWIndex returns an empty index.
func NewHNSWIndex(cfg HNSWConfig) *HNSWIndex {
	def := DefaultHNSWConfig()
	if cfg.M <= 0 {
		cfg.M = def.M
	}
	if cfg.EfSearch <= 0 {
		cfg.EfSearch = def.EfSearch
	}
	return &HNSWIndex{cfg: cfg}
}

// Config returns the graph parameters in use, with defaults filled in.
func (idx *HNSWIndex) Config() HNSWConfig {
	return idx.cfg
}

// Add registers a descriptor and returns its id.
func (idx *HNSWIndex) Add(desc []float64) int {
	idx.descs = append(idx.descs, desc)
	return len(idx.descs) - 1
}

// Build inserts every registered descriptor into a fresh graph.
func (idx *HNSWIndex) Build() {
	graph := hnsw.NewGraph[int]()
	graph.Distance = hnsw.EuclideanDistance
	graph.Rng = rand.New(rand.NewSource(graphSeed))
	graph.M = idx.cfg.M
	graph.EfSearch = idx.cfg.EfSearch

	nodes := make([]hnsw.Node[int], 0, len(idx.descs))
	for id, desc := range idx.descs {
		nodes = append(nodes, hnsw.MakeNode(id, toVector(desc)))
	}
	if len(nodes) > 0 {
		graph.Add(nodes...)
	}
	idx.graph = graph
}

// Search returns the ids of up to k approximate nearest neighbors, closest first. The graph is
// asked for at least EfSearch candidates, which are then ranked by exact distance. It returns nil
// when the index is empty or has not been built.
func (idx *HNSWIndex) Search(desc []float64, k int) []int {
	if idx.graph == nil || idx.graph.Len() == 0 || k <= 0 {
		return nil
	}
	found := idx.graph.Search(toVector(desc), utils.MaxInt(k, idx.cfg.EfSearch))
	ids := make([]int, 0, len(found))
	dists := make(map[int]float64, len(found))
	for _, node := range found {
		ids = append(ids, node.Key)
		dists[node.Key] = Distance(idx.descs[node.Key], desc)
	}
	sort.SliceStable(ids, func(i, j int) bool {
		return dists[ids[i]] < dists[ids[j]]
	})
	if len(ids) > k {
		ids = ids[:k]
	}
	return ids
}

// Descriptor returns the descriptor registered under id.
func (idx *HNSWIndex) Descriptor(id int) []float64 {
	return idx.descs[id]
}

// Len returns the number of registered descriptors.
func (idx *HNSWIndex) Len() int {
	return len(idx.descs)
}

// Distance is the Euclidean distance between two descriptors.
func Distance(a, b []float64) float64 {
	return floats.Distance(a, b, 2)
}

func toVector(desc []float64) hnsw.Vector {
	vec := make(hnsw.Vector, len(desc))
	for i, v := range desc {
		vec[i] = float32(v)
	}
	return vec
}
