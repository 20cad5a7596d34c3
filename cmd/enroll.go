package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/classwatch/classwatch/internal/config"
	"github.com/classwatch/classwatch/internal/storage"
	"github.com/classwatch/classwatch/internal/vision"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll <student-id> <name> <email>",
	Short: "Enroll a student from a photo file",
	Long: `Enroll a student directly from the command line.
The photo must contain exactly one face; its embedding is stored and
used by the recognition loop from the next cache reload on.`,
	Args: cobra.ExactArgs(3),
	RunE: runEnroll,
}

func init() {
	rootCmd.AddCommand(enrollCmd)

	enrollCmd.Flags().String("photo", "", "Path to the student's photo (required)")
	enrollCmd.Flags().String("course", "", "Course the student attends")
	enrollCmd.MarkFlagRequired("photo")
}

func runEnroll(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	studentID, name, email := args[0], args[1], args[2]
	photoPath := mustGetString(cmd, "photo")
	course := mustGetString(cmd, "course")

	photo, err := os.ReadFile(photoPath)
	if err != nil {
		return fmt.Errorf("reading photo: %w", err)
	}
	img, _, err := image.Decode(bytes.NewReader(photo))
	if err != nil {
		return fmt.Errorf("decoding photo: %w", err)
	}

	detector, err := openDetector(cfg)
	if err != nil {
		return err
	}
	defer detector.Close()

	embedding, err := vision.ExtractSingle(detector, img)
	if errors.Is(err, vision.ErrNoFace) {
		return errors.New("no face detected in the photo")
	}
	if errors.Is(err, vision.ErrMultipleFaces) {
		return errors.New("the photo must contain exactly one face")
	}
	if err != nil {
		return fmt.Errorf("extracting face embedding: %w", err)
	}

	ctx := context.Background()
	store, _, closePool, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closePool()

	student := &storage.Student{
		StudentID: studentID,
		Name:      name,
		Email:     email,
		Course:    course,
	}
	if _, err := store.AddStudent(ctx, student); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return fmt.Errorf("student %s or email %s is already registered", studentID, email)
		}
		return fmt.Errorf("registering student: %w", err)
	}
	if err := store.UpdateEmbedding(ctx, studentID, embedding); err != nil {
		return fmt.Errorf("storing embedding: %w", err)
	}

	// Keep the photo next to the web uploads so backfill can find it.
	if err := os.MkdirAll(cfg.Faces.Dir, 0o755); err == nil {
		ext := strings.ToLower(filepath.Ext(photoPath))
		dst := filepath.Join(cfg.Faces.Dir, studentID+ext)
		if err := os.WriteFile(dst, photo, 0o644); err != nil {
			fmt.Printf("Warning: could not save photo copy: %v\n", err)
		}
	}

	fmt.Printf("Enrolled %s (%s)\n", studentID, name)
	return nil
}
