package cmd

import (
	"context"
	"fmt"

	"github.com/smartgallery/backend/internal/config"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print gallery statistics",
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx := context.Background()
	svc, st, _, err := buildService(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	stats, err := svc.Stats(ctx)
	if err != nil {
		return fmt.Errorf("collecting stats: %w", err)
	}

	fmt.Println("Gallery statistics:")
	fmt.Printf("  Photos:    %d (%d indexed)\n", stats.Photos, stats.IndexedPhotos)
	fmt.Printf("  Faces:     %d (%d indexed)\n", stats.Faces, stats.IndexedFaces)
	fmt.Printf("  People:    %d\n", stats.Clusters)
	fmt.Printf("  Favorites: %d\n", stats.Favorites)
	return nil
}
