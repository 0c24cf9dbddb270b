package database

import (
	"context"
	"errors"
	"sync"
)

// HNSWRebuilder is an interface for repositories that support HNSW index rebuilding
type HNSWRebuilder interface {
	// RebuildHNSW rebuilds the in-memory HNSW index
	RebuildHNSW(ctx context.Context) error
	// HNSWCount returns the number of items in the HNSW index
	HNSWCount() int
	// IsHNSWEnabled returns whether HNSW is enabled
	IsHNSWEnabled() bool
	// SaveHNSWIndex saves the current index to disk (if path configured)
	SaveHNSWIndex() error
}

var (
	providerMu    sync.RWMutex
	identityStore func() IdentityStore
	identityHNSW  HNSWRebuilder
	backendName   string
)

// RegisterIdentityBackend registers the identity store constructor.
// This is called by the backend packages to avoid import cycles.
func RegisterIdentityBackend(name string, store func() IdentityStore) {
	providerMu.Lock()
	defer providerMu.Unlock()
	backendName = name
	identityStore = store
}

// RegisterHNSWRebuilder registers the HNSW rebuilder of the active backend.
func RegisterHNSWRebuilder(rebuilder HNSWRebuilder) {
	providerMu.Lock()
	defer providerMu.Unlock()
	identityHNSW = rebuilder
}

// GetHNSWRebuilder returns the registered rebuilder, or nil if not registered.
func GetHNSWRebuilder() HNSWRebuilder {
	providerMu.RLock()
	defer providerMu.RUnlock()
	return identityHNSW
}

// IsInitialized returns whether a backend has been registered.
func IsInitialized() bool {
	providerMu.RLock()
	defer providerMu.RUnlock()
	return identityStore != nil
}

// BackendName returns the name of the registered backend.
func BackendName() string {
	providerMu.RLock()
	defer providerMu.RUnlock()
	return backendName
}

// GetIdentityStore returns the registered identity store.
func GetIdentityStore(_ context.Context) (IdentityStore, error) {
	providerMu.RLock()
	defer providerMu.RUnlock()
	if identityStore == nil {
		return nil, errors.New("identity storage not initialized: DATABASE_URL is required")
	}
	return identityStore(), nil
}

// ResetBackend clears all registrations.
func ResetBackend() {
	providerMu.Lock()
	defer providerMu.Unlock()
	identityStore = nil
	identityHNSW = nil
	backendName = ""
}
