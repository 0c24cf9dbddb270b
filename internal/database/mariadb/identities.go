package mariadb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/go-sql-driver/mysql"
	"github.com/princesingh-ai-dev/faceauth/internal/biometric"
	"github.com/princesingh-ai-dev/faceauth/internal/database"
)

// duplicateEntry is the MySQL/MariaDB error number for ER_DUP_ENTRY.
const duplicateEntry = 1062

// IdentityRepository stores descriptors as BLOBs. MariaDB has no vector
// type, so nearest-identity search always goes through the HNSW index.
type IdentityRepository struct {
	pool      *Pool
	indexPath string

	mu    sync.RWMutex
	index *database.HNSWIndex
}

// NewIdentityRepository creates a repository with an empty index.
func NewIdentityRepository(pool *Pool, indexPath string) *IdentityRepository {
	return &IdentityRepository{pool: pool, indexPath: indexPath, index: database.NewHNSWIndex()}
}

const identityColumns = `id, name, normalized_name, descriptor, created_at`

// Get retrieves an identity by name.
func (r *IdentityRepository) Get(ctx context.Context, name string) (*database.StoredIdentity, error) {
	row := r.pool.db.QueryRowContext(ctx,
		`SELECT `+identityColumns+` FROM identities WHERE normalized_name = ?`,
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
	rows, err := r.pool.db.QueryContext(ctx, `SELECT `+identityColumns+` FROM identities ORDER BY normalized_name`)
	if err != nil {
		return nil, fmt.Errorf("query identities: %w", err)
	}
	defer rows.Close()

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

// Count returns the number of enrolled identities.
func (r *IdentityRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM identities").Scan(&count); err != nil {
		return 0, fmt.Errorf("count identities: %w", err)
	}
	return count, nil
}

// FindNearest returns the closest identity within maxDistance.
func (r *IdentityRepository) FindNearest(
	_ context.Context, descriptor []float32, maxDistance float64,
) (*database.IdentityMatch, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.index.Nearest(descriptor, maxDistance)
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

	res, err := r.pool.db.ExecContext(ctx,
		`INSERT INTO identities (name, normalized_name, descriptor) VALUES (?, ?, ?)`,
		identity.Name, identity.NormalizedName, database.EncodeDescriptor(descriptor))
	if err != nil {
		var myErr *mysql.MySQLError
		if errors.As(err, &myErr) && myErr.Number == duplicateEntry {
			return nil, database.ErrIdentityExists
		}
		return nil, fmt.Errorf("insert identity: %w", err)
	}
	if identity.ID, err = res.LastInsertId(); err != nil {
		return nil, fmt.Errorf("read identity id: %w", err)
	}
	err = r.pool.db.QueryRowContext(ctx, "SELECT created_at FROM identities WHERE id = ?", identity.ID).
		Scan(&identity.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("read identity timestamp: %w", err)
	}

	r.mu.RLock()
	r.index.Add(identity)
	r.mu.RUnlock()
	return &identity, nil
}

// Delete removes an identity by name.
func (r *IdentityRepository) Delete(ctx context.Context, name string) error {
	existing, err := r.Get(ctx, name)
	if err != nil {
		return err
	}
	res, err := r.pool.db.ExecContext(ctx, "DELETE FROM identities WHERE id = ?", existing.ID)
	if err != nil {
		return fmt.Errorf("delete identity: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return database.ErrIdentityNotFound
	}

	r.mu.RLock()
	r.index.Delete(existing.ID)
	r.mu.RUnlock()
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIdentity(row rowScanner) (database.StoredIdentity, error) {
	var (
		identity database.StoredIdentity
		blob     []byte
	)
	if err := row.Scan(&identity.ID, &identity.Name, &identity.NormalizedName, &blob, &identity.CreatedAt); err != nil {
		return identity, err
	}
	descriptor, err := database.DecodeDescriptor(blob)
	if err != nil {
		return identity, fmt.Errorf("identity %d: %w", identity.ID, err)
	}
	identity.Descriptor = descriptor
	return identity, nil
}

func (r *IdentityRepository) stats(ctx context.Context) (count, maxID int64, err error) {
	err = r.pool.db.QueryRowContext(ctx, "SELECT COUNT(*), COALESCE(MAX(id), 0) FROM identities").Scan(&count, &maxID)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to get identity stats: %w", err)
	}
	return count, maxID, nil
}

// RebuildHNSW reloads the index from the cache file when fresh, otherwise from the table.
func (r *IdentityRepository) RebuildHNSW(ctx context.Context) error {
	count, maxID, err := r.stats(ctx)
	if err != nil {
		return err
	}

	index := database.NewHNSWIndex()
	loaded := false
	if r.indexPath != "" {
		if metadata, err := database.LoadHNSWMetadata(r.indexPath); err == nil && !metadata.IsStale(count, maxID) {
			loaded = index.LoadWithMetadata(r.indexPath) == nil
		}
	}
	if !loaded {
		identities, err := r.List(ctx)
		if err != nil {
			return fmt.Errorf("failed to load identities: %w", err)
		}
		index.Build(identities)
	}

	r.mu.Lock()
	r.index = index
	r.mu.Unlock()
	return nil
}

// HNSWCount returns the number of identities in the index.
func (r *IdentityRepository) HNSWCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.index.Count()
}

// IsHNSWEnabled always reports true: the index is the only search path.
func (r *IdentityRepository) IsHNSWEnabled() bool {
	return true
}

// SaveHNSWIndex saves the index to disk (if path configured).
func (r *IdentityRepository) SaveHNSWIndex() error {
	if r.indexPath == "" {
		return nil
	}
	count, maxID, err := r.stats(context.Background())
	if err != nil {
		return err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	metadata := database.HNSWIndexMetadata{IdentityCount: count, MaxIdentityID: maxID}
	if err := r.index.SaveWithMetadata(r.indexPath, metadata); err != nil {
		return fmt.Errorf("saving HNSW identity index: %w", err)
	}
	return nil
}
