package cmd

import (
	"context"
	"fmt"

	"github.com/schollz/progressbar/v3"
	"github.com/smartgallery/backend/internal/config"
	"github.com/spf13/cobra"
)

var reclusterCmd = &cobra.Command{
	Use:   "recluster",
	Short: "Rebuild all face clusters from scratch",
	Long: `Drop every face cluster and re-run the clustering pass over all stored
face embeddings in upload order. Cluster names are lost; run this after
changing the similarity threshold or after bulk imports.`,
	RunE: runRecluster,
}

func init() {
	rootCmd.AddCommand(reclusterCmd)
}

func runRecluster(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx := context.Background()
	svc, st, registry, err := buildService(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	var bar *progressbar.ProgressBar
	processed, err := svc.Engine().ReclusterAll(ctx, func(done, total int) {
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetDescription("Clustering faces"),
				progressbar.OptionShowCount(),
				progressbar.OptionShowIts(),
				progressbar.OptionSetItsString("faces"),
				progressbar.OptionShowElapsedTimeOnFinish(),
				progressbar.OptionFullWidth(),
			)
		}
		_ = bar.Set(done)
	})
	if err != nil {
		return fmt.Errorf("reclustering: %w", err)
	}

	if err := registry.SaveAll(); err != nil {
		return fmt.Errorf("saving vector indices: %w", err)
	}

	clusters, err := st.CountClusters(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("\nReclustered %d faces into %d clusters\n", processed, clusters)
	return nil
}
