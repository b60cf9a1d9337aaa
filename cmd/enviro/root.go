// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/relabs-tech/enviro_monitor/internal/app"
	"github.com/relabs-tech/enviro_monitor/internal/config"
	"github.com/relabs-tech/enviro_monitor/internal/logger"
)

type rootOptions struct {
	configPath string
	verbose    bool
	mock       bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:     "enviro",
		Short:   "Raspberry Pi environmental monitor",
		Long:    "Reads the Enviro board sensors, renders them on its LCD and publishes them over MQTT.",
		Version: version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger.SetDebug(opts.verbose)
			if err := config.InitGlobal(opts.configPath); err != nil {
				return err
			}
			if opts.mock {
				config.Get().Mock = true
			}
			return nil
		},
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", config.DefaultPath, "path to enviro.yml")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().BoolVar(&opts.mock, "mock", false, "use synthetic sensors and an in-memory display")

	root.AddCommand(newRunCmd(), newConsoleCmd())
	return root
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the display and publish loops",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			log.Println("starting enviro monitor")
			return app.RunEnviro(ctx, config.Get())
		},
	}
}

func newConsoleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "console",
		Short: "Print readings published by every monitor on the broker",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			log.Println("starting enviro console (MQTT subscriber)")
			return app.RunConsoleMQTT(ctx, config.Get().MQTT, cmd.OutOrStdout())
		},
	}
}
