package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/princesingh-ai-dev/faceauth/internal/biometric"
	"github.com/princesingh-ai-dev/faceauth/internal/database"
)

// uniqueViolation is the PostgreSQL error code for unique_violation.
const uniqueViolation = "23505"

// IdentityRepository provides PostgreSQL-backed identity storage with optional in-memory HNSW index.
type IdentityRepository struct {
	pool          *Pool
	hnswIndex     *database.HNSWIndex
	hnswEnabled   bool
	hnswIndexPath string // Path to persist HNSW index (optional)
	hnswMu        sync.RWMutex
}

// NewIdentityRepository creates a new PostgreSQL identity repository.
func NewIdentityRepository(pool *Pool) *IdentityRepository {
	return &IdentityRepository{pool: pool}
}

const identityColumns = `id, name, normalized_name, descriptor, created_at`

// Get retrieves an identity by name.
func (r *IdentityRepository) Get(ctx context.Context, name string) (*database.StoredIdentity, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+identityColumns+` FROM identities WHERE normalized_name = $1`,
		biometric.NormalizeLabel(name))

	identity, err := scanIdentity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, database.ErrIdentityNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get identity: %w", err)
	}
	return &identity, nil
}

// List returns all identities ordered by name.
func (r *IdentityRepository) List(ctx context.Context) ([]database.StoredIdentity, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+identityColumns+` FROM identities ORDER BY normalized_name`)
	if err != nil {
		return nil, fmt.Errorf("query identities: %w", err)
	}
	defer rows.Close()

	return scanIdentities(rows)
}

// Count returns the number of enrolled identities.
func (r *IdentityRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM identities").Scan(&count); err != nil {
		return 0, fmt.Errorf("count identities: %w", err)
	}
	return count, nil
}

// FindNearest returns the closest identity within maxDistance.
// Uses the in-memory HNSW index if enabled, otherwise falls back to pgvector.
func (r *IdentityRepository) FindNearest(
	ctx context.Context, descriptor []float32, maxDistance float64,
) (*database.IdentityMatch, error) {
	r.hnswMu.RLock()
	index := r.hnswIndex
	enabled := r.hnswEnabled && index != nil
	r.hnswMu.RUnlock()

	if enabled {
		return index.Nearest(descriptor, maxDistance)
	}
	return r.findNearestPostgres(ctx, descriptor, maxDistance)
}

func (r *IdentityRepository) findNearestPostgres(
	ctx context.Context, descriptor []float32, maxDistance float64,
) (*database.IdentityMatch, error) {
	tx, err := r.pool.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("SET LOCAL hnsw.ef_search = %d", database.HNSWEfSearch)); err != nil {
		return nil, fmt.Errorf("set ef_search: %w", err)
	}

	query := `
		SELECT ` + identityColumns + `, descriptor <-> $1::vector AS distance
		FROM identities
		ORDER BY descriptor <-> $1::vector
		LIMIT 1
	`

	var (
		match database.IdentityMatch
		vec   pgvector.Vector
	)
	err = tx.QueryRowContext(ctx, query, pgvector.NewVector(descriptor)).Scan(
		&match.Identity.ID, &match.Identity.Name, &match.Identity.NormalizedName,
		&vec, &match.Identity.CreatedAt, &match.Distance,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query nearest identity: %w", err)
	}
	match.Identity.Descriptor = vec.Slice()

	if !database.WithinThreshold(match.Distance, maxDistance) {
		return nil, nil
	}
	return &match, nil
}

// Create enrolls a new identity.
func (r *IdentityRepository) Create(
	ctx context.Context, name string, descriptor []float32,
) (*database.StoredIdentity, error) {
	identity := database.StoredIdentity{
		Name:           biometric.CleanLabel(name),
		NormalizedName: biometric.NormalizeLabel(name),
		Descriptor:     descriptor,
	}

	err := r.pool.QueryRow(ctx, `
		INSERT INTO identities (name, normalized_name, descriptor)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, identity.Name, identity.NormalizedName, pgvector.NewVector(descriptor)).Scan(&identity.ID, &identity.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil, database.ErrIdentityExists
		}
		return nil, fmt.Errorf("insert identity: %w", err)
	}

	r.hnswMu.RLock()
	if r.hnswEnabled && r.hnswIndex != nil {
		r.hnswIndex.Add(identity)
	}
	r.hnswMu.RUnlock()

	return &identity, nil
}

// Delete removes an identity by name.
func (r *IdentityRepository) Delete(ctx context.Context, name string) error {
	var id int64
	err := r.pool.QueryRow(ctx,
		"DELETE FROM identities WHERE normalized_name = $1 RETURNING id",
		biometric.NormalizeLabel(name)).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return database.ErrIdentityNotFound
	}
	if err != nil {
		return fmt.Errorf("delete identity: %w", err)
	}

	r.hnswMu.RLock()
	if r.hnswEnabled && r.hnswIndex != nil {
		r.hnswIndex.Delete(id)
	}
	r.hnswMu.RUnlock()
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIdentity(row rowScanner) (database.StoredIdentity, error) {
	var (
		identity database.StoredIdentity
		vec      pgvector.Vector
	)
	if err := row.Scan(&identity.ID, &identity.Name, &identity.NormalizedName, &vec, &identity.CreatedAt); err != nil {
		return identity, err
	}
	identity.Descriptor = vec.Slice()
	return identity, nil
}

func scanIdentities(rows *sql.Rows) ([]database.StoredIdentity, error) {
	var identities []database.StoredIdentity
	for rows.Next() {
		identity, err := scanIdentity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan identity: %w", err)
		}
		identities = append(identities, identity)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate identities: %w", err)
	}
	return identities, nil
}

func (r *IdentityRepository) stats(ctx context.Context) (count, maxID int64, err error) {
	err = r.pool.QueryRow(ctx, "SELECT COUNT(*), COALESCE(MAX(id), 0) FROM identities").Scan(&count, &maxID)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to get identity stats: %w", err)
	}
	return count, maxID, nil
}

// EnableHNSW loads the cached index from indexPath when it is still fresh,
// otherwise builds it from the table and caches it.
func (r *IdentityRepository) EnableHNSW(ctx context.Context, indexPath string) error {
	r.hnswMu.Lock()
	defer r.hnswMu.Unlock()

	r.hnswIndexPath = indexPath

	count, maxID, err := r.stats(ctx)
	if err != nil {
		return err
	}

	if indexPath != "" {
		if metadata, err := database.LoadHNSWMetadata(indexPath); err == nil && !metadata.IsStale(count, maxID) {
			index := database.NewHNSWIndex()
			if err := index.LoadWithMetadata(indexPath); err == nil {
				r.hnswIndex = index
				r.hnswEnabled = true
				fmt.Printf("Identity index: loaded from disk (%d identities)\n", index.Count())
				return nil
			}
		}
	}

	identities, err := r.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to load identities: %w", err)
	}

	r.hnswIndex = database.NewHNSWIndex()
	r.hnswIndex.Build(identities)

	if indexPath != "" && len(identities) > 0 {
		metadata := database.HNSWIndexMetadata{IdentityCount: count, MaxIdentityID: maxID}
		if err := r.hnswIndex.SaveWithMetadata(indexPath, metadata); err != nil {
			fmt.Printf("Warning: failed to save HNSW index to disk: %v\n", err)
		}
	}

	r.hnswEnabled = true
	return nil
}

// DisableHNSW disables the in-memory HNSW index, falling back to pgvector queries.
func (r *IdentityRepository) DisableHNSW() {
	r.hnswMu.Lock()
	defer r.hnswMu.Unlock()
	r.hnswEnabled = false
	r.hnswIndex = nil
}

// IsHNSWEnabled returns whether the in-memory HNSW index is active.
func (r *IdentityRepository) IsHNSWEnabled() bool {
	r.hnswMu.RLock()
	defer r.hnswMu.RUnlock()
	return r.hnswEnabled && r.hnswIndex != nil
}

// HNSWCount returns the number of identities in the HNSW index.
func (r *IdentityRepository) HNSWCount() int {
	r.hnswMu.RLock()
	defer r.hnswMu.RUnlock()
	if r.hnswIndex == nil {
		return 0
	}
	return r.hnswIndex.Count()
}

// RebuildHNSW rebuilds the HNSW index from PostgreSQL data.
func (r *IdentityRepository) RebuildHNSW(ctx context.Context) error {
	r.hnswMu.RLock()
	indexPath := r.hnswIndexPath
	r.hnswMu.RUnlock()
	return r.EnableHNSW(ctx, indexPath)
}

// SaveHNSWIndex saves the current HNSW index to disk (if path configured).
func (r *IdentityRepository) SaveHNSWIndex() error {
	r.hnswMu.RLock()
	defer r.hnswMu.RUnlock()

	if r.hnswIndexPath == "" || r.hnswIndex == nil {
		return nil
	}

	count, maxID, err := r.stats(context.Background())
	if err != nil {
		return err
	}
	metadata := database.HNSWIndexMetadata{IdentityCount: count, MaxIdentityID: maxID}
	if err := r.hnswIndex.SaveWithMetadata(r.hnswIndexPath, metadata); err != nil {
		return fmt.Errorf("saving HNSW identity index: %w", err)
	}
	fmt.Printf("Identity index save: saved to %s (count=%d, max_id=%d)\n", r.hnswIndexPath, count, maxID)
	return nil
}
