package cmd

import (
	"context"
	"fmt"

	"github.com/schollz/progressbar/v3"
	"github.com/smartgallery/backend/internal/config"
	"github.com/spf13/cobra"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Manage the vector indices",
}

var indexRebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Rebuild the vector indices from the database",
	Long: `Reset the photo and face vector indices and refill them from the
embeddings stored in the database. Use this when the index files are
missing or corrupted.`,
	RunE: runIndexRebuild,
}

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.AddCommand(indexRebuildCmd)
}

func runIndexRebuild(cmd *cobra.Command, args []string) error {
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
	if err := svc.RebuildIndexes(ctx, func(done, total int) {
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetDescription("Indexing embeddings"),
				progressbar.OptionShowCount(),
				progressbar.OptionFullWidth(),
			)
		}
		_ = bar.Set(done)
	}); err != nil {
		return fmt.Errorf("rebuilding indices: %w", err)
	}

	if err := registry.SaveAll(); err != nil {
		return fmt.Errorf("saving vector indices: %w", err)
	}

	fmt.Printf("\nIndexed %d photos and %d faces\n", registry.Clip().Count(), registry.Face().Count())
	return nil
}
