package cmd

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/classwatch/classwatch/internal/config"
	"github.com/classwatch/classwatch/internal/storage"
	"github.com/classwatch/classwatch/internal/web/handlers"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export attendance records as CSV",
	Long: `Export attendance records as CSV to a file or stdout.
Supports the same filters as the web export endpoint.`,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().String("date", "", "Only records for this date (YYYY-MM-DD)")
	exportCmd.Flags().String("student", "", "Only records for this student ID")
	exportCmd.Flags().String("output", "", "Output file (defaults to stdout)")
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	ctx := context.Background()
	store, _, closePool, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closePool()

	records, err := store.ListRecords(ctx, storage.RecordFilter{
		StudentID: mustGetString(cmd, "student"),
		Date:      mustGetString(cmd, "date"),
	})
	if err != nil {
		return fmt.Errorf("loading records: %w", err)
	}

	out := os.Stdout
	if path := mustGetString(cmd, "output"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	if err := handlers.WriteCSV(csv.NewWriter(out), records); err != nil {
		return fmt.Errorf("writing CSV: %w", err)
	}
	if out != os.Stdout {
		fmt.Fprintf(os.Stderr, "Exported %d records\n", len(records))
	}
	return nil
}
