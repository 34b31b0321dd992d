// Package config reads the obstacle-alert process configuration.
package config

import (
	"io"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/obstaclealert/alert"
	"go.viam.com/obstaclealert/fusion"
	"go.viam.com/obstaclealert/logging"
	"go.viam.com/obstaclealert/pipeline"
)

// Config is the whole process configuration. Every section is optional in the file; missing
// sections and fields keep their defaults.
type Config struct {
	Fusion    fusion.Config         `json:"fusion"`
	Pipeline  pipeline.Config       `json:"pipeline"`
	Announcer alert.AnnouncerConfig `json:"announcer"`
	Log       LogConfig             `json:"log"`

	// ConfigFilePath is where the config was read from, if anywhere.
	ConfigFilePath string `json:"-"`
}

// LogConfig selects the log level and an optional rotating log file.
type LogConfig struct {
	Level string `json:"level"`
	File  string `json:"file"`
}

// Default returns a config with every section set to its defaults.
func Default() *Config {
	return &Config{
		Fusion:    fusion.DefaultConfig(),
		Pipeline:  pipeline.DefaultConfig(),
		Announcer: alert.DefaultAnnouncerConfig(),
		Log:       LogConfig{Level: logging.INFO.String()},
	}
}

// Validate checks every section and reports all problems together.
func (c *Config) Validate() error {
	var errs error
	if err := c.Fusion.CheckValid(); err != nil {
		errs = multierr.Append(errs, errors.Wrap(err, "fusion"))
	}
	if err := c.Pipeline.CheckValid(); err != nil {
		errs = multierr.Append(errs, errors.Wrap(err, "pipeline"))
	}
	if err := c.Announcer.CheckValid(); err != nil {
		errs = multierr.Append(errs, errors.Wrap(err, "announcer"))
	}
	if err := c.Log.CheckValid(); err != nil {
		errs = multierr.Append(errs, errors.Wrap(err, "log"))
	}
	return errs
}

// CheckValid ensures the level parses.
func (lc LogConfig) CheckValid() error {
	if lc.Level == "" {
		return nil
	}
	_, err := logging.LevelFromString(lc.Level)
	return err
}

// NewLogger builds a logger named name at the configured level. When a log file is configured
// its rotating appender is added next to stdout and the returned closer releases it.
func (lc LogConfig) NewLogger(name string) (logging.Logger, io.Closer, error) {
	level := logging.INFO
	if lc.Level != "" {
		var err error
		if level, err = logging.LevelFromString(lc.Level); err != nil {
			return nil, nil, err
		}
	}
	logger := logging.NewLogger(name, level)
	if lc.File == "" {
		return logger, nopCloser{}, nil
	}
	appender, closer := logging.NewFileAppender(lc.File)
	logger.AddAppender(appender)
	return logger, closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
