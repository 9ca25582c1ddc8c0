package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/marcinkonwiak/projekt-technologie-obiektowe/api"
	"github.com/marcinkonwiak/projekt-technologie-obiektowe/catalog"
	"github.com/marcinkonwiak/projekt-technologie-obiektowe/executor"
	"github.com/marcinkonwiak/projekt-technologie-obiektowe/logger"
	"github.com/marcinkonwiak/projekt-technologie-obiektowe/session"
	"github.com/marcinkonwiak/projekt-technologie-obiektowe/store"
)

type serveOptions struct {
	connection string
	addr       string
	templates  string
}

func newServeCommand() *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the query-builder HTTP API",
		Long: `Run the query-builder HTTP API against a configured connection.

The server introspects the database schema on startup and serves session,
catalog, compilation, execution and template endpoints under /api.

Example:
  dbexplorer serve --connection local
  dbexplorer serve --connection prod --addr :9000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.connection, "connection", "c", "", "named connection from the config file (required)")
	cmd.Flags().StringVar(&opts.addr, "addr", ":8080", "listen address")
	cmd.Flags().StringVar(&opts.templates, "templates", "", "template store path (empty disables saved templates)")
	_ = cmd.MarkFlagRequired("connection")

	return cmd
}

func runServe(ctx context.Context, opts *serveOptions) error {
	conn, ok := cfg.Connection(opts.connection)
	if !ok {
		return fmt.Errorf("connection %q is not configured", opts.connection)
	}

	startTime := time.Now()
	logger.Info("connecting", "connection", opts.connection, "host", conn.Host, "database", conn.Database)

	pool, err := executor.Connect(ctx, conn.DSN())
	if err != nil {
		return err
	}
	defer pool.Close()

	cat := catalog.New(catalog.NewIntrospector(pool.Pgx()))
	if err := cat.Refresh(ctx); err != nil {
		return err
	}

	exec := executor.New(pool.Pgx())
	sessions := session.NewRegistry(cat, exec)

	var templates *store.TemplateStore
	if opts.templates != "" {
		templates, err = store.Open(opts.templates)
		if err != nil {
			return err
		}
		defer templates.Close()
	}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	api.NewHandler(cat, sessions, templates).RegisterRoutes(r)

	server := &http.Server{
		Addr:    opts.addr,
		Handler: r,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", opts.addr, "startup", time.Since(startTime).String())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-sigChan:
	}

	logger.Info("shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP server shutdown: %w", err)
	}
	logger.Info("HTTP server shutdown complete")
	return nil
}
