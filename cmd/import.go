package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/smartgallery/backend/internal/config"
	"github.com/spf13/cobra"
)

var importCmd = &cobra.Command{
	Use:   "import <folder-path> [folder-path...]",
	Short: "Import photos from local folders",
	Long: `Import photos from one or more folders into the gallery. Every photo
goes through the full processing pipeline: thumbnailing, object
detection, face detection and clustering, and semantic indexing.

By default only files directly in the given folders are imported.
Use -r to descend into subdirectories.

Example:
  smart-gallery import /path/to/photos
  smart-gallery import -r /mnt/backup/camera-roll`,
	Args: cobra.MinimumNArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.Flags().BoolP("recursive", "r", false, "Search for photos recursively in subdirectories")
}

// isImageFile checks if a file has a supported image extension
func isImageFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp", ".bmp":
		return true
	}
	return false
}

// collectImages gathers image paths from a folder, optionally recursively.
func collectImages(root string, recursive bool) ([]string, error) {
	var paths []string

	if recursive {
		err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && isImageFile(d.Name()) {
				paths = append(paths, path)
			}
			return nil
		})
		return paths, err
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	for _, entry := range entries {
		if !entry.IsDir() && isImageFile(entry.Name()) {
			paths = append(paths, filepath.Join(root, entry.Name()))
		}
	}
	return paths, nil
}

func runImport(cmd *cobra.Command, args []string) error {
	recursive := mustGetBool(cmd, "recursive")

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

	var paths []string
	for _, folder := range args {
		found, err := collectImages(folder, recursive)
		if err != nil {
			return fmt.Errorf("scanning %s: %w", folder, err)
		}
		paths = append(paths, found...)
	}

	if len(paths) == 0 {
		fmt.Println("No images found")
		return nil
	}
	fmt.Printf("Importing %d photos\n\n", len(paths))

	bar := progressbar.NewOptions(len(paths),
		progressbar.OptionSetDescription("Importing"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("photos"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionFullWidth(),
	)

	var imported, failed int
	for _, path := range paths {
		data, err := os.ReadFile(path) //nolint:gosec // paths come from the user's own folders
		if err != nil {
			failed++
			fmt.Printf("\nSkipping %s: %v\n", path, err)
			_ = bar.Add(1)
			continue
		}

		if _, err := svc.UploadPhoto(ctx, filepath.Base(path), data); err != nil {
			failed++
			fmt.Printf("\nSkipping %s: %v\n", path, err)
		} else {
			imported++
		}
		_ = bar.Add(1)
	}

	if err := registry.SaveAll(); err != nil {
		return fmt.Errorf("saving vector indices: %w", err)
	}

	fmt.Printf("\nImported %d photos (%d failed)\n", imported, failed)
	return nil
}
