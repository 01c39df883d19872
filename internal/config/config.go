package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/openmined/syftmirror/internal/pathrules"
	"github.com/openmined/syftmirror/internal/utils"
)

const (
	DefaultDrainInterval = time.Second
	DefaultLogLevel      = "info"
	DefaultOutput        = "text"
)

var (
	home, _           = os.UserHomeDir()
	DefaultConfigDir  = filepath.Join(home, ".mirror")
	ErrNoLocalDir     = errors.New("`local_dir` is required")
	ErrNoRemoteDir    = errors.New("`remote_dir` is required")
	ErrSameDirs       = errors.New("`local_dir` and `remote_dir` must differ")
	validOutputs      = []string{"text", "json", "yaml"}
	validLogLevelsMap = map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
)

type Config struct {
	LocalDir      string        `mapstructure:"local_dir" json:"local_dir"`
	RemoteDir     string        `mapstructure:"remote_dir" json:"remote_dir"`
	Includes      []string      `mapstructure:"includes" json:"includes,omitempty"`
	Excludes      []string      `mapstructure:"excludes" json:"excludes,omitempty"`
	ExcludesFile  string        `mapstructure:"excludes_file" json:"excludes_file,omitempty"`
	DebugPrefixes []string      `mapstructure:"debug_prefixes" json:"debug_prefixes,omitempty"`
	DrainInterval time.Duration `mapstructure:"drain_interval" json:"drain_interval"`
	LogLevel      string        `mapstructure:"log_level" json:"log_level"`
	LogFile       string        `mapstructure:"log_file" json:"log_file,omitempty"`
	Output        string        `mapstructure:"output" json:"output"`
	Path          string        `mapstructure:"-" json:"-"`
}

// Validate checks required fields, resolves directories to absolute paths
// and fills defaults.
func (c *Config) Validate() error {
	if c.LocalDir == "" {
		return ErrNoLocalDir
	}
	if c.RemoteDir == "" {
		return ErrNoRemoteDir
	}

	var err error
	if c.LocalDir, err = utils.ResolvePath(c.LocalDir); err != nil {
		return fmt.Errorf("local dir: %w", err)
	}
	if c.RemoteDir, err = utils.ResolvePath(c.RemoteDir); err != nil {
		return fmt.Errorf("remote dir: %w", err)
	}
	if c.LocalDir == c.RemoteDir {
		return ErrSameDirs
	}
	if !utils.DirExists(c.LocalDir) {
		return fmt.Errorf("local dir %q is not a directory", c.LocalDir)
	}
	if !utils.DirExists(c.RemoteDir) {
		return fmt.Errorf("remote dir %q is not a directory", c.RemoteDir)
	}

	if c.DrainInterval <= 0 {
		c.DrainInterval = DefaultDrainInterval
	}

	c.LogLevel = strings.ToLower(c.LogLevel)
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if _, ok := validLogLevelsMap[c.LogLevel]; !ok {
		return fmt.Errorf("invalid `log_level` %q", c.LogLevel)
	}

	c.Output = strings.ToLower(c.Output)
	if c.Output == "" {
		c.Output = DefaultOutput
	}
	if !isValidOutput(c.Output) {
		return fmt.Errorf("invalid `output` %q, expected one of %s", c.Output, strings.Join(validOutputs, ", "))
	}

	if c.ExcludesFile != "" {
		if c.ExcludesFile, err = utils.ResolvePath(c.ExcludesFile); err != nil {
			return fmt.Errorf("excludes file: %w", err)
		}
		if !utils.FileExists(c.ExcludesFile) {
			return fmt.Errorf("`excludes_file` %q does not exist", c.ExcludesFile)
		}
	}

	for _, prefix := range c.DebugPrefixes {
		if strings.HasPrefix(prefix, "/") {
			return fmt.Errorf("debug prefix %q must be relative", prefix)
		}
	}

	return nil
}

// SlogLevel returns the configured log level.
func (c *Config) SlogLevel() slog.Level {
	return validLogLevelsMap[strings.ToLower(c.LogLevel)]
}

// Rules compiles the extra include and exclude rules. Lines from
// ExcludesFile are appended to Excludes.
func (c *Config) Rules() (includes, excludes *pathrules.PathRules, err error) {
	excludeLines := append([]string(nil), c.Excludes...)
	if c.ExcludesFile != "" {
		fileRules, err := pathrules.ReadFile(c.ExcludesFile)
		if err != nil {
			return nil, nil, err
		}
		excludeLines = append(excludeLines, fileRules.Lines()...)
	}
	return pathrules.New(c.Includes...), pathrules.New(excludeLines...), nil
}

func isValidOutput(output string) bool {
	for _, v := range validOutputs {
		if v == output {
			return true
		}
	}
	return false
}
