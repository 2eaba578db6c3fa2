package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"jxlpress/config"
	"jxlpress/logger"
	"jxlpress/routes"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var cfg *config.Config

	rootCmd := &cobra.Command{
		Use:           "jxlpress",
		Short:         "JPEG XL compression service",
		Version:       routes.Version(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load()
			if err != nil {
				return err
			}
			if err := setupLogger(loaded); err != nil {
				return err
			}
			cfg = loaded
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logger.Close()
		},
	}

	configValue := func() *config.Config { return cfg }
	serveCmd := newServeCommand(configValue)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(newEncodeCommand(configValue))
	// bare "jxlpress" runs the server
	rootCmd.RunE = serveCmd.RunE

	return rootCmd
}

func setupLogger(cfg *config.Config) error {
	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	if cfg.LogFile != "" {
		if err := logger.Init(cfg.LogFile, true); err != nil {
			return err
		}
	}
	logger.SetLevel(level)
	return nil
}
