package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sensorable/yolokit/internal/conf"
	"github.com/sensorable/yolokit/internal/logger"
)

// app carries the state shared by the commands of one invocation.
type app struct {
	fs         afero.Fs
	v          *viper.Viper
	configPath string
	settings   *conf.Settings
	log        logger.Logger
	logCloser  io.Closer
}

func newApp(fs afero.Fs) *app {
	return &app{fs: fs, v: conf.NewViper(), log: logger.NewDiscard()}
}

// rootCommand creates the root command with its sub-commands.
func (a *app) rootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "yolokit",
		Short:         "COCO to YOLO conversion and YOLO dataset health checks",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initialize(cmd.ErrOrStderr())
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-file", "main.log", "Log file, truncated per run; empty disables it")
	a.bindFlag(rootCmd.PersistentFlags().Lookup("log-level"), "log.level")
	a.bindFlag(rootCmd.PersistentFlags().Lookup("log-file"), "log.file")

	rootCmd.AddCommand(a.convertCommand(), a.healthCommand())

	return rootCmd
}

// initialize loads the settings and sets up logging once the flags are parsed.
func (a *app) initialize(console io.Writer) error {
	settings, err := conf.Load(a.v, a.configPath)
	if err != nil {
		return err
	}
	a.settings = settings

	log, closer, err := logger.New(a.fs, console, logger.Config{
		Level: settings.Log.Level,
		File:  settings.Log.File,
	})
	if err != nil {
		return err
	}
	a.log, a.logCloser = log, closer

	return nil
}

// bindFlag makes flag override the setting key.
func (a *app) bindFlag(flag *pflag.Flag, key string) {
	if err := a.v.BindPFlag(key, flag); err != nil {
		panic(fmt.Sprintf("cannot bind flag to %q: %v", key, err))
	}
}

// fail logs a command failure before it is returned to main.
func (a *app) fail(cmd *cobra.Command, err error) error {
	a.log.Error("Command failed", logger.String("command", cmd.Name()), logger.Error(err))
	return err
}

// close releases the log file, if any.
func (a *app) close() {
	if a.logCloser == nil {
		return
	}
	if err := a.logCloser.Close(); err != nil {
		fmt.Fprintln(os.Stderr, "Failed to close the log file:", err)
	}
	a.logCloser = nil
}
