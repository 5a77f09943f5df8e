// Package main is the entry point for the textseq API server
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/james-see/textseq/pkg/api"
	"github.com/james-see/textseq/pkg/app"
	"github.com/james-see/textseq/pkg/config"
	"github.com/james-see/textseq/pkg/logging"
)

func main() {
	port := flag.Int("port", 0, "Server port (default from config)")
	configPath := flag.String("config", "", "Config file")
	flag.Parse()

	if err := run(*configPath, *port); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, port int) error {
	if configPath == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return err
		}
		configPath = p
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if port == 0 {
		port = cfg.Server.Port
	}
	// The standalone server has no audio device of its own.
	cfg.Output = config.OutputNone
	logger := logging.New(os.Stderr, cfg.LogLevel)

	ctx := context.Background()
	a, err := app.Setup(ctx, cfg, logger, app.Options{})
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()
	a.Start(ctx)

	fmt.Printf("Starting textseq API server on port %d...\n", port)
	fmt.Printf("Swagger docs available at http://localhost:%d/swagger/index.html\n", port)
	return api.StartServer(a.Engine, port)
}
