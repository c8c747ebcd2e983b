package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"github.com/spf13/cobra"

	face "github.com/dimuls/face-verify"
	"github.com/dimuls/face-verify/cascade"
	"github.com/dimuls/face-verify/internal/config"
	"github.com/dimuls/face-verify/internal/server"
	"github.com/dimuls/face-verify/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "Address to listen on (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.Server.Addr = addr
	}
	if cfg.Database.URL == "" {
		return errors.New("database url is required, set DATABASE_URL or database.url")
	}

	logOutput, err := openLogOutput(cfg.Server)
	if err != nil {
		return err
	}
	log.SetOutput(logOutput)

	cascadePath, err := cascade.FindCascade(cfg.Detector.CascadePath)
	if err != nil {
		return err
	}

	detector, err := cascade.NewDetector(cascadePath, cascade.Params{
		ScaleFactor:  cfg.Detector.ScaleFactor,
		MinNeighbors: cfg.Detector.MinNeighbors,
		MinSize:      cfg.Detector.MinFaceSize,
		MaxSize:      cfg.Detector.MaxFaceSize,
	})
	if err != nil {
		return fmt.Errorf("failed to create face detector: %w", err)
	}
	defer detector.Close()

	log.Printf("Using face cascade %s", cascadePath)

	faces := face.NewService(detector,
		face.WithTolerance(cfg.Matcher.Tolerance),
		face.WithLogger(log.New(logOutput, "face: ", log.LstdFlags)))

	encodings, err := store.New(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		return err
	}
	defer encodings.Close()

	srv := server.New(cfg.Server, faces, encodings, logOutput)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Listen(cfg.Server.Addr)
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	log.Println("Server stopped")
	return nil
}

// openLogOutput writes to stderr and, if configured, to a daily rotated file.
func openLogOutput(cfg config.ServerConfig) (io.Writer, error) {
	if cfg.LogFile == "" {
		return os.Stderr, nil
	}

	rl, err := rotatelogs.New(
		cfg.LogFile+".%Y%m%d",
		rotatelogs.WithLinkName(cfg.LogFile),
		rotatelogs.WithMaxAge(cfg.LogMaxAge),
		rotatelogs.WithRotationTime(24*time.Hour),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	return io.MultiWriter(os.Stderr, rl), nil
}
