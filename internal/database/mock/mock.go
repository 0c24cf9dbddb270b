// Package mock provides mock implementations of database interfaces for testing.
package mock

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/princesingh-ai-dev/faceauth/internal/biometric"
	"github.com/princesingh-ai-dev/faceauth/internal/database"
)

// MockIdentityStore is an in-memory database.IdentityStore with linear
// nearest-identity search.
type MockIdentityStore struct {
	mu         sync.RWMutex
	identities map[string]*database.StoredIdentity // keyed by normalized name
	nextID     int64

	// Error injection
	GetError         error
	ListError        error
	FindNearestError error
	CountError       error
	CreateError      error
	DeleteError      error
}

// NewMockIdentityStore creates an empty mock store.
func NewMockIdentityStore() *MockIdentityStore {
	return &MockIdentityStore{
		identities: make(map[string]*database.StoredIdentity),
	}
}

// AddIdentity seeds the store without going through Create.
func (m *MockIdentityStore) AddIdentity(name string, descriptor []float32) database.StoredIdentity {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertLocked(name, descriptor)
}

func (m *MockIdentityStore) insertLocked(name string, descriptor []float32) database.StoredIdentity {
	m.nextID++
	identity := database.StoredIdentity{
		ID:             m.nextID,
		Name:           biometric.CleanLabel(name),
		NormalizedName: biometric.NormalizeLabel(name),
		Descriptor:     slices.Clone(descriptor),
		CreatedAt:      time.Now().UTC(),
	}
	m.identities[identity.NormalizedName] = &identity
	return identity
}

// Get retrieves an identity by name
func (m *MockIdentityStore) Get(ctx context.Context, name string) (*database.StoredIdentity, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	identity, ok := m.identities[biometric.NormalizeLabel(name)]
	if !ok {
		return nil, database.ErrIdentityNotFound
	}
	copied := *identity
	return &copied, nil
}

// List returns all identities ordered by normalized name
func (m *MockIdentityStore) List(ctx context.Context) ([]database.StoredIdentity, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]database.StoredIdentity, 0, len(m.identities))
	for _, identity := range m.identities {
		result = append(result, *identity)
	}
	slices.SortFunc(result, func(a, b database.StoredIdentity) int {
		return cmp.Compare(a.NormalizedName, b.NormalizedName)
	})
	return result, nil
}

// FindNearest returns the closest identity within maxDistance
func (m *MockIdentityStore) FindNearest(
	ctx context.Context, descriptor []float32, maxDistance float64,
) (*database.IdentityMatch, error) {
	if m.FindNearestError != nil {
		return nil, m.FindNearestError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var best *database.IdentityMatch
	for _, identity := range m.identities {
		d := database.EuclideanDistance(descriptor, identity.Descriptor)
		if !database.WithinThreshold(d, maxDistance) {
			continue
		}
		if best == nil || d < best.Distance {
			best = &database.IdentityMatch{Identity: *identity, Distance: d}
		}
	}
	return best, nil
}

// Count returns the number of identities
func (m *MockIdentityStore) Count(ctx context.Context) (int, error) {
	if m.CountError != nil {
		return 0, m.CountError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.identities), nil
}

// Create enrolls a new identity
func (m *MockIdentityStore) Create(
	ctx context.Context, name string, descriptor []float32,
) (*database.StoredIdentity, error) {
	if m.CreateError != nil {
		return nil, m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.identities[biometric.NormalizeLabel(name)]; exists {
		return nil, database.ErrIdentityExists
	}
	identity := m.insertLocked(name, descriptor)
	return &identity, nil
}

// Delete removes an identity by name
func (m *MockIdentityStore) Delete(ctx context.Context, name string) error {
	if m.DeleteError != nil {
		return m.DeleteError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := biometric.NormalizeLabel(name)
	if _, ok := m.identities[key]; !ok {
		return database.ErrIdentityNotFound
	}
	delete(m.identities, key)
	return nil
}

var _ database.IdentityStore = (*MockIdentityStore)(nil)
