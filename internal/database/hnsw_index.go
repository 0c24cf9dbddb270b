package database

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/coder/hnsw"
)

// HNSWIndexMetadata stores metadata for validating cached HNSW indexes.
type HNSWIndexMetadata struct {
	IdentityCount int64     `json:"identity_count"`
	MaxIdentityID int64     `json:"max_identity_id"`
	BuildTime     time.Time `json:"build_time"`
	Version       int       `json:"version"`
}

// IsStale reports whether the cached index no longer reflects the table.
func (m HNSWIndexMetadata) IsStale(count, maxID int64) bool {
	return m.Version != hnswMetadataVersion || m.IdentityCount != count || m.MaxIdentityID != maxID
}

const hnswMetadataVersion = 1

// HNSWIndex wraps the HNSW graph for nearest-identity search.
// Deleted identities stay in the graph as tombstones and are filtered out
// on search; the graph is rebuilt once tombstones outnumber live identities.
type HNSWIndex struct {
	graph      *hnsw.Graph[int64]
	identities map[int64]*StoredIdentity // Maps HNSW node ID to identity
	tombstoned map[int64]struct{}        // Graph nodes with no live identity
	mu         sync.RWMutex
}

// NewHNSWIndex creates a new empty HNSW index.
func NewHNSWIndex() *HNSWIndex {
	return &HNSWIndex{
		identities: make(map[int64]*StoredIdentity),
		tombstoned: make(map[int64]struct{}),
	}
}

func newGraph() *hnsw.Graph[int64] {
	g := hnsw.NewGraph[int64]()
	g.M = HNSWMaxNeighbors
	g.Ml = 1.0 / float64(HNSWMaxNeighbors)
	g.EfSearch = HNSWEfSearch
	g.Distance = hnsw.EuclideanDistance
	return g
}

// buildGraph returns a graph holding identities in ID order, nil when there are none.
func buildGraph(identities map[int64]*StoredIdentity) *hnsw.Graph[int64] {
	if len(identities) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(identities))
	for id := range identities {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	g := newGraph()
	for _, id := range ids {
		g.Add(hnsw.MakeNode(id, identities[id].Descriptor))
	}
	return g
}

// rebuildLocked recreates the graph from the live identities, dropping tombstones.
func (h *HNSWIndex) rebuildLocked() {
	h.graph = buildGraph(h.identities)
	h.tombstoned = make(map[int64]struct{})
}

// Build replaces the index contents with identities.
func (h *HNSWIndex) Build(identities []StoredIdentity) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.identities = make(map[int64]*StoredIdentity, len(identities))
	for i := range identities {
		if len(identities[i].Descriptor) == 0 {
			continue
		}
		h.identities[identities[i].ID] = &identities[i]
	}
	h.rebuildLocked()
}

// Add inserts or replaces a single identity.
func (h *HNSWIndex) Add(identity StoredIdentity) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(identity.Descriptor) == 0 {
		return
	}

	_, live := h.identities[identity.ID]
	_, dead := h.tombstoned[identity.ID]
	h.identities[identity.ID] = &identity
	if live || dead || h.graph == nil {
		// The graph cannot replace a node in place.
		h.rebuildLocked()
		return
	}
	h.graph.Add(hnsw.MakeNode(identity.ID, identity.Descriptor))
}

// Delete removes an identity from the index, leaving its node as a tombstone.
func (h *HNSWIndex) Delete(id int64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.identities[id]; !ok {
		return
	}
	delete(h.identities, id)

	if len(h.identities) == 0 {
		h.graph = nil
		h.tombstoned = make(map[int64]struct{})
		return
	}
	h.tombstoned[id] = struct{}{}
	if len(h.tombstoned) > len(h.identities) {
		h.rebuildLocked()
	}
}

// Search returns up to k identities nearest to query, closest first.
func (h *HNSWIndex) Search(query []float32, k int) ([]IdentityMatch, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.graph == nil {
		return nil, errors.New("index not initialized")
	}
	if len(h.identities) == 0 || k <= 0 {
		return nil, nil
	}

	neighbors := h.graph.Search(query, k*HNSWSearchMultiplier)
	matches := make([]IdentityMatch, 0, len(neighbors))
	for _, n := range neighbors {
		identity, ok := h.identities[n.Key]
		if !ok {
			continue
		}
		matches = append(matches, IdentityMatch{
			Identity: *identity,
			Distance: EuclideanDistance(query, n.Value),
		})
	}

	slices.SortFunc(matches, func(a, b IdentityMatch) int {
		switch {
		case a.Distance < b.Distance:
			return -1
		case a.Distance > b.Distance:
			return 1
		default:
			return 0
		}
	})
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// Nearest returns the closest identity within maxDistance.
func (h *HNSWIndex) Nearest(query []float32, maxDistance float64) (*IdentityMatch, error) {
	if h.IsEmpty() {
		return nil, nil
	}
	matches, err := h.Search(query, 1)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 || !WithinThreshold(matches[0].Distance, maxDistance) {
		return nil, nil
	}
	return &matches[0], nil
}

// Get returns the identity for a given ID.
func (h *HNSWIndex) Get(id int64) *StoredIdentity {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.identities[id]
}

// Count returns the number of indexed identities.
func (h *HNSWIndex) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.identities)
}

// IsEmpty returns true if the index has no graph or identities.
func (h *HNSWIndex) IsEmpty() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.graph == nil || len(h.identities) == 0
}

// SaveWithMetadata persists the graph, a .meta file for staleness detection
// and a .identities file with the indexed rows.
func (h *HNSWIndex) SaveWithMetadata(path string, metadata HNSWIndexMetadata) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.graph == nil {
		_ = os.Remove(path)
		_ = os.Remove(path + ".meta")
		_ = os.Remove(path + ".identities")
		return nil
	}

	// Tombstones are not persisted.
	graph := h.graph
	if len(h.tombstoned) > 0 {
		graph = buildGraph(h.identities)
	}

	f, err := os.Create(path) //nolint:gosec // path is from trusted config
	if err != nil {
		return fmt.Errorf("failed to create HNSW index file: %w", err)
	}
	if err := graph.Export(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to export HNSW graph: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close HNSW index file: %w", err)
	}

	metadata.Version = hnswMetadataVersion
	metaData, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	if err := os.WriteFile(path+".meta", metaData, 0600); err != nil {
		return fmt.Errorf("failed to write metadata file: %w", err)
	}

	identities := make([]StoredIdentity, 0, len(h.identities))
	for _, identity := range h.identities {
		identities = append(identities, *identity)
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(identities); err != nil {
		return fmt.Errorf("failed to encode identities: %w", err)
	}
	if err := os.WriteFile(path+".identities", buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write identities file: %w", err)
	}
	return nil
}

// LoadHNSWMetadata loads metadata from a separate .meta file.
func LoadHNSWMetadata(path string) (HNSWIndexMetadata, error) {
	var metadata HNSWIndexMetadata

	data, err := os.ReadFile(path + ".meta") //nolint:gosec // path is from trusted config
	if err != nil {
		return metadata, fmt.Errorf("failed to read metadata file: %w", err)
	}
	if err := json.Unmarshal(data, &metadata); err != nil {
		return metadata, fmt.Errorf("failed to unmarshal metadata: %w", err)
	}
	return metadata, nil
}

// LoadWithMetadata loads the graph and identity rows written by SaveWithMetadata.
func (h *HNSWIndex) LoadWithMetadata(path string) error {
	data, err := os.ReadFile(path + ".identities") //nolint:gosec // path is from trusted config
	if err != nil {
		return fmt.Errorf("failed to read identities file: %w", err)
	}
	var identities []StoredIdentity
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&identities); err != nil {
		return fmt.Errorf("failed to decode identities: %w", err)
	}

	saved, err := hnsw.LoadSavedGraph[int64](path)
	if err != nil {
		return fmt.Errorf("failed to load HNSW index: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.graph = saved.Graph
	h.graph.Distance = hnsw.EuclideanDistance
	h.identities = make(map[int64]*StoredIdentity, len(identities))
	for i := range identities {
		h.identities[identities[i].ID] = &identities[i]
	}
	h.tombstoned = make(map[int64]struct{})
	return nil
}
