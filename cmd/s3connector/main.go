// cmd/s3connector/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/FairForge/s3connector/internal/api"
	"github.com/FairForge/s3connector/internal/config"
	"github.com/FairForge/s3connector/internal/drivers"
	"github.com/FairForge/s3connector/internal/host"
	"github.com/FairForge/s3connector/internal/logging"
	"github.com/FairForge/s3connector/internal/nodes"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

// session is what every command shares once Before has run.
type session struct {
	cfg      *config.Config
	logger   *zap.Logger
	registry *host.Registry
}

func main() {
	rt := &session{}

	app := &cli.App{
		Name:    "s3connector",
		Usage:   "Move node-graph images in and out of S3-compatible buckets",
		Version: api.Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "Optional YAML config file",
				EnvVars: []string{"S3_CONNECTOR_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "debug, info, warn or error (overrides config)",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "json or console (overrides config)",
			},
		},
		Before: rt.init,
		After: func(c *cli.Context) error {
			if rt.logger != nil {
				_ = rt.logger.Sync()
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "Serve the node pack over HTTP",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "port", Usage: "Listen port (overrides config)"},
				},
				Action: rt.serve,
			},
			{
				Name:  "nodes",
				Usage: "Print the node definitions",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "yaml", Usage: "Print YAML instead of JSON"},
				},
				Action: rt.printNodes,
			},
			{
				Name:      "upload",
				Usage:     "Upload an image file through an upload node",
				ArgsUsage: " ",
				Flags: append(addressFlags(),
					&cli.StringFlag{Name: "file", Usage: "Image file to upload", Required: true},
					&cli.StringFlag{Name: "filename-prefix", Usage: "Generate <prefix>_<uuid>.png under --key-prefix"},
				),
				Action: rt.upload,
			},
			{
				Name:  "download",
				Usage: "Download an image through a load node",
				Flags: append(addressFlags(),
					&cli.StringFlag{Name: "out", Usage: "Where to write the image", Required: true},
					&cli.StringFlag{Name: "mask-out", Usage: "Where to write the mask as grayscale PNG"},
				),
				Action: rt.download,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func (rt *session) init(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"), envDirs()...)
	if err != nil {
		return err
	}
	if lvl := c.String("log-level"); lvl != "" {
		cfg.Log.Level = lvl
	}
	if f := c.String("log-format"); f != "" {
		cfg.Log.Format = f
	}

	logger, err := logging.New(&logging.LoggerConfig{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return err
	}

	factory := drivers.NewFactory(cfg.Storage, logger)
	reg := host.NewRegistry()
	if err := nodes.Register(reg, factory.Engine); err != nil {
		return err
	}

	rt.cfg, rt.logger, rt.registry = cfg, logger, reg
	return nil
}

// envDirs lists where a .env file is looked up: next to the binary first,
// then the working directory.
func envDirs() []string {
	var dirs []string
	if exe, err := os.Executable(); err == nil {
		dirs = append(dirs, filepath.Dir(exe))
	}
	if wd, err := os.Getwd(); err == nil {
		dirs = append(dirs, wd)
	}
	return dirs
}

func (rt *session) serve(c *cli.Context) error {
	serverCfg := rt.cfg.Server
	if p := c.Int("port"); p > 0 {
		serverCfg.Port = p
	}
	if err := rt.cfg.Storage.Validate(); err != nil {
		rt.logger.Warn("storage is not configured, nodes will fail until it is", zap.Error(err))
	}

	server := api.NewServer(serverCfg, rt.registry, rt.logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-sigCh:
		rt.logger.Info("shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return server.Shutdown(ctx)
	}
}
