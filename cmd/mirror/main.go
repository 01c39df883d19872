package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/openmined/syftmirror/internal/config"
	"github.com/openmined/syftmirror/internal/pathrules"
	"github.com/openmined/syftmirror/internal/utils"
	"github.com/openmined/syftmirror/internal/version"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	configFileName = "config"
	envPrefix      = "MIRROR"
)

var rootCmd = &cobra.Command{
	Use:           "mirror",
	Short:         "Compare and follow two directory trees",
	Version:       version.Detailed(),
	SilenceErrors: true,
}

// closeLog releases the log file opened by setupLogger, if any.
var closeLog = func() error { return nil }

func init() {
	addPersistentFlags(rootCmd)
}

func addPersistentFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.SortFlags = false
	flags.StringP("config", "c", filepath.Join(config.DefaultConfigDir, configFileName+".yaml"), "config file")
	flags.StringP("local", "l", "", "local directory")
	flags.StringP("remote", "r", "", "remote directory")
	flags.StringP("output", "o", config.DefaultOutput, "output format: text, json or yaml")
	flags.String("log-level", config.DefaultLogLevel, "log level: debug, info, warn or error")
	flags.String("log-file", "", "also write logs to this file")
	flags.StringSlice("exclude", nil, "extra gitignore style exclude rule (repeatable)")
	flags.StringSlice("include", nil, "rule that overrides excludes and .gitignore files (repeatable)")
	flags.StringSlice("debug", nil, "trace ignore decisions for paths with this prefix or glob (repeatable)")
}

func main() {
	// Setup root context with signal handling
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if cerr := closeLog(); cerr != nil {
		fmt.Fprintf(os.Stderr, "close log file: %v\n", cerr)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, red("Error:"), err)
		os.Exit(1)
	}
}

// loadConfig merges, from lowest to highest priority, defaults, the config
// file, a .env file, MIRROR_* environment variables and flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	v := viper.New()

	v.SetDefault("excludes", pathrules.DefaultExcludes)
	v.SetDefault("includes", []string{})
	v.SetDefault("excludes_file", "")
	v.SetDefault("debug_prefixes", []string{})
	v.SetDefault("drain_interval", config.DefaultDrainInterval)
	v.SetDefault("log_level", config.DefaultLogLevel)
	v.SetDefault("log_file", "")
	v.SetDefault("output", config.DefaultOutput)

	// config path
	if cmd.Flag("config").Changed {
		configFilePath, _ := cmd.Flags().GetString("config")
		v.SetConfigFile(configFilePath)
	} else {
		v.AddConfigPath(config.DefaultConfigDir)
		v.SetConfigName(configFileName)
	}

	if err := v.ReadInConfig(); err != nil {
		enoent := errors.Is(err, os.ErrNotExist)
		_, ok := err.(viper.ConfigFileNotFoundError)
		if !enoent && !ok {
			return nil, fmt.Errorf("config read '%s': %w", v.ConfigFileUsed(), err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	// Bind flags to viper
	v.BindPFlag("local_dir", cmd.Flags().Lookup("local"))
	v.BindPFlag("remote_dir", cmd.Flags().Lookup("remote"))
	v.BindPFlag("output", cmd.Flags().Lookup("output"))
	v.BindPFlag("log_level", cmd.Flags().Lookup("log-level"))
	v.BindPFlag("log_file", cmd.Flags().Lookup("log-file"))
	v.BindPFlag("includes", cmd.Flags().Lookup("include"))
	v.BindPFlag("debug_prefixes", cmd.Flags().Lookup("debug"))
	if interval := cmd.Flags().Lookup("interval"); interval != nil {
		v.BindPFlag("drain_interval", interval)
	}

	// Set up environment variables
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	cfg := &config.Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config decode: %w", err)
	}
	cfg.Path = v.ConfigFileUsed()

	// --exclude adds to the configured excludes instead of replacing them
	if extra, _ := cmd.Flags().GetStringSlice("exclude"); len(extra) > 0 {
		cfg.Excludes = append(cfg.Excludes, extra...)
	}

	return cfg, nil
}

// setupLogger logs to stderr, keeping stdout for plans, and to cfg.LogFile
// when set.
func setupLogger(cfg *config.Config, stderr io.Writer) error {
	level := cfg.SlogLevel()

	noColor := true
	if f, ok := stderr.(*os.File); ok {
		noColor = !isatty.IsTerminal(f.Fd())
	}
	stderrHandler := tint.NewHandler(stderr, &tint.Options{
		Level:      level,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
		NoColor:    noColor,
	})

	if cfg.LogFile == "" {
		slog.SetDefault(slog.New(stderrHandler))
		return nil
	}

	if err := utils.EnsureParent(cfg.LogFile); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}
	file, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	logInterceptor := utils.NewLogInterceptor(file)
	fileHandler := slog.NewTextHandler(logInterceptor, &slog.HandlerOptions{
		Level: level,
		// time is added by the log interceptor
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{}
			}
			return a
		},
	})
	closeLog = func() error {
		return errors.Join(logInterceptor.Close(), file.Close())
	}

	slog.SetDefault(slog.New(utils.NewMultiLogHandler(stderrHandler, fileHandler)))
	return nil
}

// prepare loads and validates the config and installs the logger. Commands
// call it first thing in RunE.
func prepare(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// all good now, no need for usage on later errors
	cmd.SilenceUsage = true

	if err := setupLogger(cfg, cmd.ErrOrStderr()); err != nil {
		return nil, err
	}
	slog.Debug("config loaded", "path", cfg.Path, "local", cfg.LocalDir, "remote", cfg.RemoteDir,
		"drainInterval", cfg.DrainInterval.Round(time.Millisecond))
	return cfg, nil
}
