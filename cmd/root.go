package main

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"lensblur/config"
)

// RootOptions 全局参数
type RootOptions struct {
	ConfigPath string
	LogLevel   string

	Config *config.Config
	Logger *slog.Logger
}

// NewRootCommand 命令行入口
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}
	cmd := &cobra.Command{
		Use:           "lensblur",
		Short:         "Sparse structure from motion by bundle adjustment",
		Long:          "Reconstruct sparse 3-D points and camera motion from 2-D feature tracks.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			c, err := config.Load(opts.ConfigPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("log-level") {
				c.Debug.LogLevel = opts.LogLevel
				if err := c.Validate(); err != nil {
					return err
				}
			}
			opts.Config = c
			opts.Logger = newLogger(cmd.ErrOrStderr(), c.Debug.Level())
			return nil
		},
	}
	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "YAML configuration file")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "info", "log level (debug|info|warn|error)")

	cmd.AddCommand(NewSolveCommand(opts))
	cmd.AddCommand(NewSynthCommand(opts))
	return cmd
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
