package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"drone-spoof/internal/app"
	"drone-spoof/internal/config"
)

func newRootCommand() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "dronespoof",
		Short:         "Drone GNSS spoofing and data injection simulator",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")

	load := func() (config.File, *log.Logger, error) {
		bootstrap := log.NewWithOptions(os.Stderr, log.Options{Prefix: "dronespoof"})
		cfg, err := config.Load(configPath, bootstrap)
		if err != nil {
			return config.File{}, nil, err
		}
		return cfg, app.NewLogger(os.Stderr, cfg.Logging), nil
	}

	root.AddCommand(
		newServeCommand(load),
		newRunCommand(load),
		newZoneCommand(load),
		newScenariosCommand(load),
		newSchemaCommand(),
	)
	return root
}

type loader func() (config.File, *log.Logger, error)

func newServeCommand(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and websocket server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := load()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return app.Run(ctx, cfg, logger)
		},
	}
}

func main() {
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "dronespoof:", err)
		os.Exit(1)
	}
}
