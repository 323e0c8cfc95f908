package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/username/directreg/src/config"
	"github.com/username/directreg/src/logger"
	"github.com/username/directreg/src/server"
	"github.com/username/directreg/src/services"
)

type serveOptions struct {
	addr   string
	apiURL string
}

func newServeCmd(root *RootOptions) *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the web front end",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), root, opts)
		},
	}
	cmd.Flags().StringVar(&opts.addr, "addr", "", "listen address (overrides LISTEN_ADDR)")
	cmd.Flags().StringVar(&opts.apiURL, "api", "", "registry API base URL (overrides REGISTRY_API_URL)")
	return cmd
}

func runServe(ctx context.Context, root *RootOptions, opts *serveOptions) error {
	if err := config.LoadConfig(root.ConfigPath); err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if opts.addr != "" {
		config.Cfg.ListenAddr = opts.addr
	}
	if opts.apiURL != "" {
		config.Cfg.RegistryAPIURL = opts.apiURL
	}

	logger.InitLogger(config.Cfg.LogLevel)
	logger.L.Info("Direct Registration front end starting...", "version", Version, "registry", config.Cfg.RegistryAPIURL)

	client := services.NewRegistryClient(config.Cfg.RegistryAPIURL, config.Cfg.RegistryTimeout)
	srv, err := server.New(config.Cfg, client, Version)
	if err != nil {
		return err
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	return srv.Run(ctx)
}
