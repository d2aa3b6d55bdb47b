package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "smart-gallery",
	Short: "A self-hosted photo gallery with semantic search and face recognition",
	Long: `Smart Gallery stores your photos, indexes them with CLIP embeddings for
natural-language search, and groups detected faces into people using
incremental clustering. Heavy model inference runs on a separate
inference service; this binary serves the API and owns all state.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
