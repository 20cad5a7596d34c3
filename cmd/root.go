package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "classwatch",
	Short: "Face-recognition attendance for classrooms",
	Long: `ClassWatch watches a classroom camera, recognizes enrolled students,
and records their attendance once per day. It serves a live annotated
video feed and an admin API for enrollment, records, and exports.`,
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
