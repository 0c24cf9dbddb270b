package database

// HNSW index parameters for 128-dim face descriptors
const (
	// HNSWMaxNeighbors (M) is the maximum number of neighbors per node.
	HNSWMaxNeighbors = 16

	// HNSWEfSearch is the search candidate pool size.
	HNSWEfSearch = 64

	// HNSWSearchMultiplier widens the candidate request so deleted or
	// filtered nodes still leave enough results.
	HNSWSearchMultiplier = 3
)

// DescriptorBytes is the encoded size of a 128-dim float32 descriptor.
const DescriptorBytes = 128 * 4
