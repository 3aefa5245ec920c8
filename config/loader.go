package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

const (
	// ProjectConfigFile is the name of the project-level config file
	ProjectConfigFile = "semcat.yaml"
	// UserConfigDir is the directory for user-level config
	UserConfigDir = ".config/semcat"
	// UserConfigFile is the name of the user-level config file
	UserConfigFile = "config.yaml"
)

// Loader handles configuration loading with layered precedence
type Loader struct {
	logger *slog.Logger
	// home and workDir override os.UserHomeDir and os.Getwd when set
	home    string
	workDir string
}

// NewLoader creates a new configuration loader
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger}
}

// layer is one configuration source in precedence order.
type layer struct {
	name     string
	path     string
	required bool
}

// layers lists the sources Load consults, lowest precedence first.
func (l *Loader) layers(explicit string) []layer {
	return []layer{
		{name: "user", path: l.userConfigPath()},
		{name: "project", path: l.findProjectConfig()},
		{name: "explicit", path: explicit, required: true},
	}
}

// Load builds the effective configuration. Defaults are overlaid by the user
// file (~/.config/semcat/config.yaml), then the nearest semcat.yaml at or
// above the working directory, then the --config file. Only the explicit
// file is required to exist; a broken optional layer is logged and skipped.
func (l *Loader) Load(explicit string) (*Config, error) {
	cfg := DefaultConfig()

	for _, ly := range l.layers(explicit) {
		if ly.path == "" {
			continue
		}
		layerCfg, err := LoadFromFile(ly.path)
		switch {
		case err == nil:
			l.logger.Debug("Config layer applied", "layer", ly.name, "path", ly.path)
			cfg.Merge(layerCfg)
		case ly.required:
			return nil, err
		case errors.Is(err, os.ErrNotExist):
			// Optional layer absent.
		default:
			l.logger.Warn("Ignoring config layer", "layer", ly.name, "path", ly.path, "error", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// EnsureUserConfig creates the user config file with defaults if it doesn't
// exist and returns its path
func (l *Loader) EnsureUserConfig() (string, error) {
	userConfigPath := l.userConfigPath()
	if userConfigPath == "" {
		return "", fmt.Errorf("cannot determine home directory")
	}

	if _, err := os.Stat(userConfigPath); err == nil {
		return userConfigPath, nil
	}
	if err := DefaultConfig().SaveToFile(userConfigPath); err != nil {
		return "", err
	}

	l.logger.Info("Created default user config", "path", userConfigPath)
	return userConfigPath, nil
}

// userConfigPath returns the path to the user config file
func (l *Loader) userConfigPath() string {
	home := l.home
	if home == "" {
		var err error
		if home, err = os.UserHomeDir(); err != nil {
			return ""
		}
	}
	return filepath.Join(home, UserConfigDir, UserConfigFile)
}

// findProjectConfig searches for semcat.yaml in current and parent directories
func (l *Loader) findProjectConfig() string {
	dir := l.workDir
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return ""
		}
		dir = cwd
	}

	for {
		candidate := filepath.Join(dir, ProjectConfigFile)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
