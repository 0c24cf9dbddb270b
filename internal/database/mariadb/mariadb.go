package mariadb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/princesingh-ai-dev/faceauth/internal/config"
	"github.com/princesingh-ai-dev/faceauth/internal/database"
)

// Pool manages a MariaDB connection pool.
type Pool struct {
	db *sql.DB
}

// NewPool creates a new MariaDB connection pool. DATETIME columns are
// always parsed into time.Time regardless of the DSN.
func NewPool(cfg *config.DatabaseConfig) (*Pool, error) {
	if cfg == nil || cfg.URL == "" {
		return nil, errors.New("MariaDB DSN is required")
	}

	dsn, err := mysql.ParseDSN(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid MariaDB DSN: %w", err)
	}
	dsn.ParseTime = true

	db, err := sql.Open("mysql", dsn.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open MariaDB: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping MariaDB: %w", err)
	}

	return &Pool{db: db}, nil
}

// Close closes the connection pool.
func (p *Pool) Close() error {
	if p.db != nil {
		if err := p.db.Close(); err != nil {
			return fmt.Errorf("closing database connection: %w", err)
		}
	}
	return nil
}

// EnsureSchema creates the identities table when missing.
func (p *Pool) EnsureSchema(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS identities (
			id              BIGINT AUTO_INCREMENT PRIMARY KEY,
			name            VARCHAR(255) NOT NULL,
			normalized_name VARCHAR(255) NOT NULL,
			descriptor      BLOB NOT NULL,
			created_at      DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
			UNIQUE KEY idx_identities_normalized_name (normalized_name)
		) DEFAULT CHARSET=utf8mb4
	`)
	if err != nil {
		return fmt.Errorf("create identities table: %w", err)
	}
	return nil
}

// Initialize opens the pool, creates the schema, builds the HNSW index and
// registers the repository as the active storage backend.
func Initialize(ctx context.Context, cfg *config.DatabaseConfig, indexPath string) (*IdentityRepository, *Pool, error) {
	pool, err := NewPool(cfg)
	if err != nil {
		return nil, nil, err
	}
	if err := pool.EnsureSchema(ctx); err != nil {
		_ = pool.Close()
		return nil, nil, err
	}

	repo := NewIdentityRepository(pool, indexPath)
	if err := repo.RebuildHNSW(ctx); err != nil {
		_ = pool.Close()
		return nil, nil, fmt.Errorf("failed to build identity index: %w", err)
	}

	database.RegisterIdentityBackend("mysql", func() database.IdentityStore { return repo })
	database.RegisterHNSWRebuilder(repo)
	return repo, pool, nil
}
