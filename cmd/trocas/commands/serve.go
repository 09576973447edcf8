package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/trocaroupa/trocas/internal/api"
	"github.com/trocaroupa/trocas/internal/db"
	"github.com/trocaroupa/trocas/internal/store"
	"github.com/trocaroupa/trocas/internal/troca"
	"github.com/trocaroupa/trocas/internal/web"
)

const purgeInterval = time.Hour

func serveCmd() *cobra.Command {
	var (
		addr       string
		adminEmail string
		opTimeout  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web and API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, addr, adminEmail, opTimeout)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", envOr("TROCAS_ADDR", ":8080"), "listen address (env TROCAS_ADDR)")
	cmd.Flags().StringVar(&adminEmail, "admin-email", defaultAdminEmail, "admin email when creating a new database")
	cmd.Flags().DurationVar(&opTimeout, "op-timeout", troca.DefaultTimeout, "deadline for a single troca command")
	return cmd
}

func serve(ctx context.Context, addr, adminEmail string, opTimeout time.Duration) error {
	if dbMissing(dbPath) {
		database, password, err := initDatabase(ctx, dbPath, "Admin", adminEmail, "")
		if err != nil {
			return fmt.Errorf("initializing database: %w", err)
		}
		database.Close()
		printInitResult(dbPath, adminEmail, password)
		fmt.Println()
	}

	database, err := db.Open(dbPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()

	if err := db.EnsureSchema(database); err != nil {
		return fmt.Errorf("ensuring schema: %w", err)
	}
	slog.Info("database ready", "path", dbPath)

	jwtSecret, err := store.GetJWTSecret(ctx, database)
	if err != nil {
		return fmt.Errorf("loading JWT secret: %w", err)
	}

	engine := troca.NewEngine(database, troca.WithTimeout(opTimeout))

	webRouter, err := web.NewRouter(database, engine, jwtSecret)
	if err != nil {
		return fmt.Errorf("setting up web router: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/api/", api.NewRouter(database, engine, jwtSecret))
	mux.Handle("/", webRouter)

	server := &http.Server{
		Addr:              addr,
		Handler:           api.LoggingMiddleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go purgeRevokedTokens(ctx, database)

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server forced to shutdown", "error", err)
		}
	}()

	slog.Info("server started", "addr", addr, "op_timeout", opTimeout)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving: %w", err)
	}

	slog.Info("server stopped, closing database")
	return nil
}

// purgeRevokedTokens drops revocation entries whose token has expired anyway.
func purgeRevokedTokens(ctx context.Context, database store.DBTX) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := store.PurgeRevokedTokens(ctx, database, now)
			if err != nil {
				slog.Error("failed to purge revoked tokens", "error", err)
				continue
			}
			if n > 0 {
				slog.Info("purged revoked tokens", "count", n)
			}
		}
	}
}
