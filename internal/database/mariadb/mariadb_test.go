//go:build integration

package mariadb

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/princesingh-ai-dev/faceauth/internal/config"
	"github.com/princesingh-ai-dev/faceauth/internal/database"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestContainer(t *testing.T) (*Pool, func()) {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "mariadb:11",
		ExposedPorts: []string{"3306/tcp"},
		Env: map[string]string{
			"MARIADB_USER":          "test",
			"MARIADB_PASSWORD":      "test",
			"MARIADB_DATABASE":      "testdb",
			"MARIADB_ROOT_PASSWORD": "root",
		},
		WaitingFor: wait.ForListeningPort("3306/tcp").WithStartupTimeout(90 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil || container == nil {
		t.Skipf("Docker not available or container failed to start, skipping integration test: %v", err)
		return nil, func() {}
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "3306")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	cfg := &config.DatabaseConfig{
		URL:          fmt.Sprintf("test:test@tcp(%s:%s)/testdb", host, port.Port()),
		MaxOpenConns: 5,
		MaxIdleConns: 2,
	}

	var pool *Pool
	// The port opens before the server accepts logins.
	for range 30 {
		if pool, err = NewPool(cfg); err == nil {
			break
		}
		time.Sleep(time.Second)
	}
	if err != nil {
		container.Terminate(ctx)
		t.Fatalf("Failed to create pool: %v", err)
	}
	if err := pool.EnsureSchema(ctx); err != nil {
		pool.Close()
		container.Terminate(ctx)
		t.Fatalf("Failed to create schema: %v", err)
	}

	return pool, func() {
		pool.Close()
		container.Terminate(ctx)
	}
}

func descriptor(base float32) []float32 {
	d := make([]float32, 128)
	for i := range d {
		d[i] = base + float32(i)*0.001
	}
	return d
}

func TestIdentityRepository(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	defer cleanup()

	ctx := context.Background()
	repo := NewIdentityRepository(pool, "")

	alice, err := repo.Create(ctx, "Alice", descriptor(0.1))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if alice.ID == 0 || alice.CreatedAt.IsZero() {
		t.Errorf("created = %+v", alice)
	}
	if _, err := repo.Create(ctx, "alice", descriptor(0.2)); !errors.Is(err, database.ErrIdentityExists) {
		t.Errorf("duplicate err = %v, want ErrIdentityExists", err)
	}

	got, err := repo.Get(ctx, "ALICE")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Descriptor[5] != alice.Descriptor[5] {
		t.Error("descriptor did not survive the BLOB round trip")
	}

	match, err := repo.FindNearest(ctx, descriptor(0.11), 0.6)
	if err != nil || match == nil || match.Identity.Name != "Alice" {
		t.Fatalf("FindNearest = (%+v, %v), want Alice", match, err)
	}

	// A fresh repository finds the identity only after rebuilding its index.
	fresh := NewIdentityRepository(pool, "")
	if err := fresh.RebuildHNSW(ctx); err != nil {
		t.Fatalf("RebuildHNSW: %v", err)
	}
	if fresh.HNSWCount() != 1 {
		t.Errorf("HNSWCount = %d, want 1", fresh.HNSWCount())
	}

	if err := repo.Delete(ctx, "Alice"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := repo.Delete(ctx, "Alice"); !errors.Is(err, database.ErrIdentityNotFound) {
		t.Errorf("second Delete err = %v, want ErrIdentityNotFound", err)
	}
	match, err = repo.FindNearest(ctx, descriptor(0.1), 0.6)
	if err != nil || match != nil {
		t.Errorf("FindNearest after delete = (%+v, %v), want none", match, err)
	}
}
