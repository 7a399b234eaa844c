// Package config gathers engine settings from defaults, an optional config
// file, CHESSCORE_ environment variables and command-line flags, in
// increasing order of precedence.
package config

import (
	"errors"
	"flag"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/hailam/chesscore/internal/engine"
)

const (
	KeyHash                    = "hash"
	KeyThreads                 = "threads"
	KeyMultiPV                 = "multipv"
	KeyMinSplitDepth           = "min-split-depth"
	KeyMaxThreadsPerSplitPoint = "max-threads-per-split-point"
	KeyContempt                = "contempt"
	KeyMoveOverhead            = "move-overhead"
	KeyLogLevel                = "log-level"
	KeyDataDir                 = "data-dir"
	KeyAnalysisStore           = "analysis-store"
	KeyConfigFile              = "config"
)

const configName = "chesscore"

// Config is a viper instance preloaded with the engine's keys.
type Config struct {
	*viper.Viper
}

// New returns a config holding the defaults and bound to the environment.
func New() *Config {
	c := &Config{Viper: viper.New()}
	def := engine.DefaultOptions()
	c.SetDefault(KeyHash, def.Hash)
	c.SetDefault(KeyThreads, def.Threads)
	c.SetDefault(KeyMultiPV, def.MultiPV)
	c.SetDefault(KeyMinSplitDepth, def.MinSplitDepth)
	c.SetDefault(KeyMaxThreadsPerSplitPoint, def.MaxThreadsPerSplitPoint)
	c.SetDefault(KeyContempt, def.Contempt)
	c.SetDefault(KeyMoveOverhead, def.MoveOverhead)
	c.SetDefault(KeyLogLevel, "info")
	c.SetDefault(KeyDataDir, "")
	c.SetDefault(KeyAnalysisStore, false)
	c.SetDefault(KeyConfigFile, "")

	c.SetEnvPrefix(configName)
	c.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	c.AutomaticEnv()
	return c
}

// Load parses command-line args and reads the config file, either the one
// named by -config or chesscore.yaml in the data directory if present.
func (c *Config) Load(args []string) error {
	fs := flag.NewFlagSet(configName, flag.ContinueOnError)
	fs.Int(KeyHash, c.GetInt(KeyHash), "transposition table size in MB")
	fs.Int(KeyThreads, c.GetInt(KeyThreads), "number of search threads")
	fs.Int(KeyMultiPV, c.GetInt(KeyMultiPV), "number of principal variations")
	fs.Int(KeyMinSplitDepth, c.GetInt(KeyMinSplitDepth), "minimum depth to split the search, 0 for automatic")
	fs.Int(KeyMaxThreadsPerSplitPoint, c.GetInt(KeyMaxThreadsPerSplitPoint), "maximum threads working on one split point")
	fs.Int(KeyContempt, c.GetInt(KeyContempt), "contempt in centipawns")
	fs.Duration(KeyMoveOverhead, c.GetDuration(KeyMoveOverhead), "time reserved per move for communication")
	fs.String(KeyLogLevel, c.GetString(KeyLogLevel), "log level: trace, debug, info, warn, error, disabled")
	fs.String(KeyDataDir, c.GetString(KeyDataDir), "directory for persistent data")
	fs.Bool(KeyAnalysisStore, c.GetBool(KeyAnalysisStore), "persist search results")
	fs.String(KeyConfigFile, c.GetString(KeyConfigFile), "config file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	// Only flags given explicitly override the other sources.
	fs.Visit(func(f *flag.Flag) {
		c.Set(f.Name, f.Value.(flag.Getter).Get())
	})

	if file := c.GetString(KeyConfigFile); file != "" {
		c.SetConfigFile(file)
		if err := c.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", file, err)
		}
		return nil
	}

	c.SetConfigName(configName)
	c.SetConfigType("yaml")
	if dir := c.GetString(KeyDataDir); dir != "" {
		c.AddConfigPath(dir)
	}
	c.AddConfigPath(".")
	if err := c.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}
	return nil
}

// EngineOptions returns the engine configuration.
func (c *Config) EngineOptions() engine.Options {
	return engine.Options{
		Hash:                    c.GetInt(KeyHash),
		Threads:                 c.GetInt(KeyThreads),
		MultiPV:                 c.GetInt(KeyMultiPV),
		MinSplitDepth:           c.GetInt(KeyMinSplitDepth),
		MaxThreadsPerSplitPoint: c.GetInt(KeyMaxThreadsPerSplitPoint),
		Contempt:                c.GetInt(KeyContempt),
		MoveOverhead:            c.GetDuration(KeyMoveOverhead),
	}
}

// LogLevel returns the configured level, info if it does not parse.
func (c *Config) LogLevel() zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(c.GetString(KeyLogLevel)))
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}

// ConfigFile returns the config file in use, empty when there is none.
func (c *Config) ConfigFile() string {
	if f := c.ConfigFileUsed(); f != "" {
		abs, err := filepath.Abs(f)
		if err == nil {
			return abs
		}
		return f
	}
	return ""
}
