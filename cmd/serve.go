package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/classwatch/classwatch/internal/camera"
	"github.com/classwatch/classwatch/internal/config"
	"github.com/classwatch/classwatch/internal/dedup"
	"github.com/classwatch/classwatch/internal/encodings"
	"github.com/classwatch/classwatch/internal/match"
	"github.com/classwatch/classwatch/internal/recognizer"
	"github.com/classwatch/classwatch/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the attendance server",
	Long: `Start the ClassWatch server.
The server runs the recognition pipeline against the classroom camera
and exposes the admin API and the live MJPEG feed.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 8080, "Port to listen on")
	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
	serveCmd.Flags().String("session-secret", "", "Secret for signing session cookies (defaults to random)")
}

// resolveServeHostPort resolves port and host from flags and environment variables.
func resolveServeHostPort(cmd *cobra.Command) (int, string, string) {
	port := mustGetInt(cmd, "port")
	host := mustGetString(cmd, "host")
	sessionSecret := mustGetString(cmd, "session-secret")

	if sessionSecret == "" {
		sessionSecret = os.Getenv("WEB_SESSION_SECRET")
	}
	if envPort := os.Getenv("WEB_PORT"); envPort != "" {
		fmt.Sscanf(envPort, "%d", &port)
	}
	if envHost := os.Getenv("WEB_HOST"); envHost != "" {
		host = envHost
	}
	return port, host, sessionSecret
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	if cfg.Admin.Password == "" {
		return fmt.Errorf("ADMIN_PASSWORD environment variable is required")
	}

	ctx := context.Background()
	store, sessionRepo, closePool, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closePool()
	fmt.Printf("Using %s backend\n", cfg.Database.Driver)

	detector, err := openDetector(cfg)
	if err != nil {
		return err
	}
	defer detector.Close()

	cache := encodings.NewCache(store)
	if err := cache.Reload(ctx); err != nil {
		return fmt.Errorf("loading enrolled embeddings: %w", err)
	}
	fmt.Printf("Loaded %d enrolled students\n", cache.Snapshot().Len())

	engine := match.NewEngine(match.NewMatcher(cfg.Recognition.Tolerance), cfg.Recognition.HNSWMinEntries)
	device := camera.NewGocvDevice(cfg.Camera.Device, cfg.Camera.Width, cfg.Camera.Height)
	pipeline := recognizer.New(
		camera.NewManager(device),
		detector,
		cache,
		engine,
		dedup.NewGate(),
		store,
		cfg.Recognition,
	)

	port, host, sessionSecret := resolveServeHostPort(cmd)
	server := web.NewServer(cfg, port, host, sessionSecret, sessionRepo, store, detector, pipeline)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting ClassWatch on http://%s:%d\n", host, port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
