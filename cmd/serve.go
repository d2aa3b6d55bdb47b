package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/smartgallery/backend/internal/config"
	"github.com/smartgallery/backend/internal/web"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the gallery API server",
	Long: `Start the Smart Gallery API server.
The server accepts photo uploads, answers semantic and similarity
searches, and manages people (face clusters). State lives in the
configured database plus the on-disk vector indices; both are flushed
on shutdown.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 0, "Port to listen on (overrides PORT)")
	serveCmd.Flags().String("host", "", "Host to bind to (overrides HOST)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if port := mustGetInt(cmd, "port"); port > 0 {
		cfg.Server.Port = port
	}
	if host := mustGetString(cmd, "host"); host != "" {
		cfg.Server.Host = host
	}

	ctx := context.Background()
	svc, st, registry, err := buildService(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	server := web.NewServer(svc, cfg.Server.Host, cfg.Server.Port)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		if err := registry.SaveAll(); err != nil {
			fmt.Printf("Warning: failed to save vector indices: %v\n", err)
		} else {
			fmt.Println("Vector indices saved to disk")
		}

		shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting Smart Gallery on http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
