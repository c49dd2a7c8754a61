// Package config loads the rendezvous server's JSON configuration file
// (spec.md §6 Configuration) and applies the logging side effects
// (log file redirection, development-mode verbosity) a composition root
// needs before constructing the server. Configuration loading itself is
// an external-adapter concern per spec.md §1; this package is the thin
// shim the cmd entrypoint uses to turn a file on disk into the handful
// of values the core actually needs.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

// Config mirrors spec.md §6's Configuration JSON shape exactly.
type Config struct {
	DataFolder         string `json:"dataFolder"`
	NotificationServer string `json:"notificationServer"`
	LogFile            string `json:"logFile,omitempty"`
	Development        bool   `json:"development,omitempty"`
	StaticFiles        string `json:"staticFiles,omitempty"`
}

// Load reads and parses the JSON configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if cfg.DataFolder == "" {
		return nil, fmt.Errorf("config: dataFolder is required")
	}
	return &cfg, nil
}

// ApplyLogging points logrus at the configured log file (falling back to
// stderr) and raises verbosity in development mode, grounded on the
// teacher's logrus-everywhere convention — see registry/doc.go and
// push/notifier.go for the same logger used deeper in the call stack.
func (c *Config) ApplyLogging() error {
	if c.Development {
		logrus.SetLevel(logrus.DebugLevel)
	} else {
		logrus.SetLevel(logrus.InfoLevel)
	}
	if c.LogFile == "" {
		return nil
	}
	f, err := os.OpenFile(c.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("config: open log file: %w", err)
	}
	logrus.SetOutput(f)
	return nil
}
