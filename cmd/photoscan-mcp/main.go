package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/photoscan/internal/config"
	"github.com/ironsheep/photoscan/internal/logger"
	"github.com/ironsheep/photoscan/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Handle --version and -v flags
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("photoscan-mcp %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			fmt.Println("photoscan-mcp - MCP server that turns camera captures of printed photos into clean scans")
			fmt.Println()
			fmt.Println("Usage: photoscan-mcp [options]")
			fmt.Println()
			fmt.Println("Options:")
			fmt.Println("  --version, -v    Print version information")
			fmt.Println("  --help, -h       Print this help message")
			fmt.Println()
			fmt.Println("Environment variables:")
			fmt.Println("  PHOTOSCAN_LOG_LEVEL=debug         Enable debug logging")
			fmt.Println("  PHOTOSCAN_LOG_FORMAT=json         Log as JSON")
			fmt.Println("  PHOTOSCAN_WORKERS=N               Concurrent photos in a batch")
			fmt.Println("  PHOTOSCAN_ACCEPT_THRESHOLD=0.5    Minimum confidence to straighten")
			fmt.Println("  PHOTOSCAN_WORKING_WIDTH=600       Detector downscale width")
			fmt.Println("  PHOTOSCAN_MIN_AREA=1000           Smallest photo area at working scale")
			fmt.Println("  PHOTOSCAN_JPEG_QUALITY=95         JPEG output quality")
			fmt.Println()
			fmt.Println("This server communicates via MCP protocol over stdin/stdout.")
			fmt.Println("Configure it in your MCP client (e.g., Claude Desktop).")
			return
		}
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	// Logs go to stderr; stdout is for MCP protocol
	logger.SetOutput(os.Stderr)
	logger.Configure(cfg.LogLevel, cfg.LogFormat)

	logger.WithFields(logrus.Fields{
		"version":    Version,
		"build_time": BuildTime,
		"commit":     GitCommit,
		"workers":    cfg.Workers,
	}).Debug("Photoscan MCP server starting")

	server.Version = Version
	srv := server.New(cfg)
	if err := srv.Run(); err != nil {
		logger.WithError(err).Fatal("Server error")
	}
}
