package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/princesingh-ai-dev/faceauth/internal/config"
	"github.com/princesingh-ai-dev/faceauth/internal/database"
	"github.com/princesingh-ai-dev/faceauth/internal/database/mariadb"
	"github.com/princesingh-ai-dev/faceauth/internal/database/postgres"
	"github.com/princesingh-ai-dev/faceauth/internal/web"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the identity server",
	Long: `Start the identity server.
The server stores face templates in PostgreSQL (pgvector) or MariaDB and
answers register, verify, list and delete requests from faceauth clients.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 0, "Port to listen on (default from WEB_PORT or 8080)")
	serveCmd.Flags().String("host", "", "Host to bind to (default from WEB_HOST or 0.0.0.0)")
}

// openIdentityBackend initializes the configured database driver and returns a close func.
func openIdentityBackend(ctx context.Context, cfg *config.Config) (func(), error) {
	indexPath := cfg.Database.HNSWIndexPath
	if indexPath != "" {
		fmt.Printf("Loading identity HNSW index from %s...\n", indexPath)
	} else {
		fmt.Printf("Building in-memory HNSW index for identity matching...\n")
	}

	switch cfg.Database.Driver {
	case "mysql":
		fmt.Printf("Connecting to MariaDB database...\n")
		repo, pool, err := mariadb.Initialize(ctx, &cfg.Database, indexPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize MariaDB: %w", err)
		}
		fmt.Printf("Identity HNSW index built with %d identities\n", repo.HNSWCount())
		return func() { _ = pool.Close() }, nil
	case "postgres":
		fmt.Printf("Connecting to PostgreSQL database...\n")
		repo, err := postgres.Initialize(ctx, &cfg.Database, indexPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
		}
		if repo.IsHNSWEnabled() {
			fmt.Printf("Identity HNSW index ready with %d identities\n", repo.HNSWCount())
		}
		return func() {
			if pool := postgres.GetGlobalPool(); pool != nil {
				_ = pool.Close()
			}
		}, nil
	default:
		return nil, fmt.Errorf("unsupported DATABASE_DRIVER %q (want postgres or mysql)", cfg.Database.Driver)
	}
}

// saveHNSWIndex saves the identity HNSW index to disk during shutdown.
func saveHNSWIndex() {
	rebuilder := database.GetHNSWRebuilder()
	if rebuilder == nil {
		return
	}
	if err := rebuilder.SaveHNSWIndex(); err != nil {
		fmt.Printf("Warning: failed to save identity HNSW index: %v\n", err)
	} else {
		fmt.Println("Identity HNSW index saved to disk")
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	if cfg.Database.URL == "" {
		return errors.New("DATABASE_URL environment variable is required")
	}
	if port := mustGetInt(cmd, "port"); port > 0 {
		cfg.Web.Port = port
	}
	if host := mustGetString(cmd, "host"); host != "" {
		cfg.Web.Host = host
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	closeBackend, err := openIdentityBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeBackend()

	store, err := database.GetIdentityStore(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Using %s backend\n", database.BackendName())

	server := web.NewServer(cfg, store)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")
		saveHNSWIndex()

		shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting faceauth identity server on http://%s:%d\n", cfg.Web.Host, cfg.Web.Port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
