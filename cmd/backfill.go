package cmd

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/classwatch/classwatch/internal/config"
	"github.com/classwatch/classwatch/internal/vision"
)

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Recompute embeddings from stored photos",
	Long: `Recompute face embeddings for every student whose photo exists in the
faces directory. Useful after upgrading the recognition model or when
embeddings were lost.`,
	RunE: runBackfill,
}

func init() {
	rootCmd.AddCommand(backfillCmd)
}

// findStudentPhoto locates a student's photo regardless of extension.
func findStudentPhoto(dir, studentID string) string {
	for _, ext := range []string{".png", ".jpg", ".jpeg", ".gif"} {
		path := filepath.Join(dir, studentID+ext)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

func runBackfill(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	ctx := context.Background()
	store, _, closePool, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closePool()

	detector, err := openDetector(cfg)
	if err != nil {
		return err
	}
	defer detector.Close()

	students, err := store.ListStudents(ctx)
	if err != nil {
		return fmt.Errorf("loading students: %w", err)
	}
	if len(students) == 0 {
		fmt.Println("No students registered")
		return nil
	}

	bar := progressbar.NewOptions(len(students),
		progressbar.OptionSetDescription("Computing embeddings"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("students"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionFullWidth(),
	)

	var updated, skipped, failed int
	for i := range students {
		student := &students[i]
		bar.Add(1)

		photoPath := findStudentPhoto(cfg.Faces.Dir, student.StudentID)
		if photoPath == "" {
			skipped++
			continue
		}

		photo, err := os.ReadFile(photoPath)
		if err != nil {
			fmt.Printf("\n%s: reading photo: %v\n", student.StudentID, err)
			failed++
			continue
		}
		img, _, err := image.Decode(bytes.NewReader(photo))
		if err != nil {
			fmt.Printf("\n%s: decoding photo: %v\n", student.StudentID, err)
			failed++
			continue
		}

		embedding, err := vision.ExtractSingle(detector, img)
		if err != nil {
			fmt.Printf("\n%s: %v\n", student.StudentID, err)
			failed++
			continue
		}
		if err := store.UpdateEmbedding(ctx, student.StudentID, embedding); err != nil {
			fmt.Printf("\n%s: storing embedding: %v\n", student.StudentID, err)
			failed++
			continue
		}
		updated++
	}

	fmt.Printf("\nBackfill complete: %d updated, %d without photos, %d failed\n", updated, skipped, failed)
	return nil
}
