package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Environment variables consulted when the matching flag is not set.
const (
	envClaudeDir = "CLAUDE_CONFIG_DIR"
	envLogLevel  = "CLAUDE_HISTORY_LOG_LEVEL"
	envDBPath    = "CLAUDE_HISTORY_DB"
)

const defaultLogLevel = "warn"

// config is the resolved runtime configuration. Built once by loadConfig
// and passed explicitly from there on.
type config struct {
	claudeDir string // Claude home, usually ~/.claude
	dbPath    string // session annotations database
	logLevel  string
}

// configFlags are the raw values of the persistent flags.
type configFlags struct {
	claudeDir string
	dbPath    string
	logLevel  string
}

// loadConfig resolves flags, then environment, then defaults. getenv is
// injected so tests need not touch the process environment.
func loadConfig(flags configFlags, getenv func(string) string) (config, error) {
	cfg := config{
		claudeDir: firstNonEmpty(flags.claudeDir, getenv(envClaudeDir)),
		dbPath:    firstNonEmpty(flags.dbPath, getenv(envDBPath)),
		logLevel:  strings.ToLower(firstNonEmpty(flags.logLevel, getenv(envLogLevel), defaultLogLevel)),
	}

	if cfg.claudeDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return config{}, fmt.Errorf("resolving home directory: %w", err)
		}
		cfg.claudeDir = filepath.Join(home, ".claude")
	}
	cfg.claudeDir = expandHome(cfg.claudeDir)

	if cfg.dbPath == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return config{}, fmt.Errorf("resolving config directory: %w", err)
		}
		cfg.dbPath = filepath.Join(dir, "claude-history", "sessions.db")
	}
	cfg.dbPath = expandHome(cfg.dbPath)

	return cfg, nil
}

// expandHome replaces a leading "~/" with the user's home directory.
func expandHome(p string) string {
	if !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, p[2:])
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
