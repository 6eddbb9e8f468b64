package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var (
	cleanupDir    string
	keepLatest    int
	olderThanDays int
	cleanupDryRun bool
)

// runDirPrefix matches the folders the run command creates.
const runDirPrefix = "narration-"

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Clean up old narration output directories",
	Long:  `Remove old narration run folders based on age or count.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(cleanupDir); os.IsNotExist(err) {
			return fmt.Errorf("output directory %s does not exist", cleanupDir)
		}

		entries, err := os.ReadDir(cleanupDir)
		if err != nil {
			return fmt.Errorf("failed to read output directory: %w", err)
		}

		var runDirs []string
		for _, entry := range entries {
			if entry.IsDir() && strings.HasPrefix(entry.Name(), runDirPrefix) {
				runDirs = append(runDirs, entry.Name())
			}
		}
		if len(runDirs) == 0 {
			fmt.Println("No narration run directories found.")
			return nil
		}

		// Timestamped names sort chronologically (newest last).
		sort.Strings(runDirs)

		var toDelete []string
		if keepLatest > 0 && len(runDirs) > keepLatest {
			toDelete = append(toDelete, runDirs[:len(runDirs)-keepLatest]...)
		}

		if olderThanDays > 0 {
			cutoffTime := time.Now().AddDate(0, 0, -olderThanDays)
			for _, dir := range runDirs {
				stamp := strings.TrimPrefix(dir, runDirPrefix)
				dirTime, err := time.ParseInLocation("20060102-150405", stamp, time.Local)
				if err != nil {
					continue
				}
				if dirTime.Before(cutoffTime) && !contains(toDelete, dir) {
					toDelete = append(toDelete, dir)
				}
			}
		}

		if len(toDelete) == 0 {
			fmt.Println("No directories to delete.")
			return nil
		}

		fmt.Printf("Found %d directories to delete:\n", len(toDelete))
		for _, dir := range toDelete {
			fmt.Printf("- %s\n", dir)
		}

		if cleanupDryRun {
			fmt.Println("Dry run - no directories were deleted.")
			return nil
		}

		for _, dir := range toDelete {
			fullPath := filepath.Join(cleanupDir, dir)
			fmt.Printf("Deleting %s...\n", fullPath)
			if err := os.RemoveAll(fullPath); err != nil {
				fmt.Printf("Error deleting %s: %v\n", fullPath, err)
			}
		}

		fmt.Println("Cleanup completed.")
		return nil
	},
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

func init() {
	cleanupCmd.Flags().StringVarP(&cleanupDir, "dir", "d", "", "Output directory to clean up (required)")
	cleanupCmd.Flags().IntVarP(&keepLatest, "keep-latest", "k", 0, "Keep this many latest run directories")
	cleanupCmd.Flags().IntVarP(&olderThanDays, "older-than", "t", 0, "Delete run directories older than this many days")
	cleanupCmd.Flags().BoolVarP(&cleanupDryRun, "dry-run", "n", false, "Show what would be deleted without actually deleting")

	_ = cleanupCmd.MarkFlagRequired("dir")
	rootCmd.AddCommand(cleanupCmd)
}
