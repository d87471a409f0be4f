package gallery

import (
	"errors"

	"github.com/coder/hnsw"
)

// hnswMaxNeighbors is the M parameter of the graph. Small because identity
// galleries are small.
const hnswMaxNeighbors = 16

// SimilarIndex is an approximate-nearest-neighbor view over the gallery's
// reference embeddings. It backs the offline "similar" inspection command;
// the tracking loop itself sticks to the exact linear scan.
type SimilarIndex struct {
	graph *hnsw.Graph[int]
}

// Neighbor is one similarity hit.
type Neighbor struct {
	ID       int
	Distance float64
}

// BuildSimilarIndex indexes the given entries.
func BuildSimilarIndex(entries []Entry) (*SimilarIndex, error) {
	if len(entries) == 0 {
		return nil, errors.New("no identities to index")
	}

	g := hnsw.NewGraph[int]()
	g.M = hnswMaxNeighbors
	g.Ml = 1.0 / float64(hnswMaxNeighbors)
	g.Distance = hnsw.EuclideanDistance

	for _, entry := range entries {
		if len(entry.Embedding) == 0 {
			continue
		}
		g.Add(hnsw.MakeNode(entry.ID, entry.Embedding))
	}

	return &SimilarIndex{graph: g}, nil
}

// Search returns up to k identities nearest to the query embedding. The
// distance reported is the exact Euclidean distance recomputed from the
// node's stored vector, not the graph's internal estimate.
func (s *SimilarIndex) Search(query []float32, k int) []Neighbor {
	nodes := s.graph.Search(query, k)

	neighbors := make([]Neighbor, 0, len(nodes))
	for _, n := range nodes {
		neighbors = append(neighbors, Neighbor{
			ID:       n.Key,
			Distance: EuclideanDistance(query, n.Value),
		})
	}
	return neighbors
}
