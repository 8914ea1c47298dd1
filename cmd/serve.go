package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/docqa-io/docqa/internal/analytics"
	"github.com/docqa-io/docqa/internal/conversation"
	"github.com/docqa-io/docqa/internal/db"
	"github.com/docqa-io/docqa/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Starts the docqa HTTP server: chat (REST and WebSocket), document
management, conversation history, analytics and cache control under /api.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().Int("port", 0, "listen port (overrides config)")
	serveCmd.Flags().Bool("allow-all-origins", false, "allow all CORS and WebSocket origins (dev mode)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	port, _ := cmd.Flags().GetInt("port")
	allowAll, _ := cmd.Flags().GetBool("allow-all-origins")

	a, err := buildApp()
	if err != nil {
		return err
	}
	if port == 0 {
		port = a.cfg.Port
	}

	database, err := db.Open(filepath.Join(a.cfg.DataDir, "docqa.db"))
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()

	srv := server.New(server.Config{
		Port:     port,
		DataDir:  a.cfg.DataDir,
		AllowAll: allowAll,
	}, server.Deps{
		Answer:        a.answer,
		Ingestor:      a.ingestor,
		Index:         a.index,
		Cache:         a.cache,
		Conversations: conversation.NewStore(database),
		Analytics:     analytics.NewStore(database),
		Embedder:      a.embedder,
		Logger:        a.log,
	})

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	fmt.Fprintf(os.Stderr, "docqa server listening on :%d (%d records indexed)\n", port, a.index.Count())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-sigCh:
		fmt.Fprintf(os.Stderr, "Received %s, shutting down...\n", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
