package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/julianstephens/lightsout/internal/constants"
	"github.com/julianstephens/lightsout/internal/logger"
	"github.com/julianstephens/lightsout/internal/models"
	"github.com/julianstephens/lightsout/internal/storage"
)

var (
	// ErrInvalid marks a configuration file that could not be used. The
	// accompanying Config is always the built-in default.
	ErrInvalid = errors.New("invalid configuration")
	// ErrSaveLimit is returned when the weekly configuration save allowance
	// is used up.
	ErrSaveLimit = errors.New("configuration already changed this week")
)

const fileHeader = "# lightsout configuration. Changes are limited to one save per week.\n"

// HomeDir resolves the state directory: the explicit flag value, then
// $LIGHTSOUT_HOME, then the user config dir.
func HomeDir(flagValue string) (string, error) {
	if flagValue != "" {
		return filepath.Abs(flagValue)
	}
	if env := os.Getenv(constants.HomeEnvVar); env != "" {
		return filepath.Abs(env)
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate user config directory: %w", err)
	}
	return filepath.Join(base, constants.AppName), nil
}

// LoadEnv loads .env and .env.local from home. Values already present in the
// process environment win.
func LoadEnv(home string) {
	for _, name := range []string{".env", ".env.local"} {
		path := filepath.Join(home, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			logger.Warn("Failed to load env file", "path", path, "error", err)
			continue
		}
		logger.Debug("Loaded environment file", "path", path)
	}
}

// Load reads the configuration file at path. A missing file is created with
// the defaults. A file that cannot be parsed or fails validation yields the
// defaults and an error wrapping ErrInvalid; other errors are I/O failures.
func Load(path string) (models.Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		cfg := models.DefaultConfig()
		if werr := writeDefaults(path, cfg); werr != nil {
			logger.Warn("Failed to write default configuration", "path", path, "error", werr)
		}
		return cfg, nil
	}
	if err != nil {
		return models.DefaultConfig(), fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return models.DefaultConfig(), err
	}
	return cfg, nil
}

// Parse decodes configuration YAML. Environment references are expanded
// first and fields absent from the document keep their defaults.
func Parse(data []byte) (models.Config, error) {
	expanded := os.ExpandEnv(string(data))

	cfg := models.DefaultConfig()
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return models.Config{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	models.ApplyDefaultConfig(&cfg)
	if err := cfg.Validate(); err != nil {
		return models.Config{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return cfg, nil
}

// MustLoad is Load for long-running callers: every failure is logged and the
// defaults are used.
func MustLoad(path string) models.Config {
	cfg, err := Load(path)
	if err != nil {
		logger.Warn("Using default configuration", "path", path, "error", err)
	}
	return cfg
}

// Encode renders cfg as the YAML written to disk.
func Encode(cfg models.Config) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(fileHeader)
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeDefaults(path string, cfg models.Config) error {
	data, err := Encode(cfg)
	if err != nil {
		return err
	}
	files := storage.NewFileStore(filepath.Dir(path))
	_, err = files.CompareAndSwap(context.Background(), filepath.Base(path), storage.NoVersion, data)
	if errors.Is(err, storage.ErrConflict) {
		// Another process created it first.
		return nil
	}
	return err
}

// Save validates cfg and writes it to the home directory's config file,
// consuming this week's save allowance first. Writing the initial defaults
// does not count against the allowance.
func Save(ctx context.Context, store *storage.Store, cfg models.Config, now time.Time) error {
	models.ApplyDefaultConfig(&cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	data, err := Encode(cfg)
	if err != nil {
		return err
	}

	_, err = store.ConfigMeta.Reserve(ctx, now, func(m models.ConfigMeta) error {
		if m.SavesThisWeek >= constants.MaxConfigSavesPerWeek {
			return fmt.Errorf("%w (%d of %d saves used since %s)",
				ErrSaveLimit, m.SavesThisWeek, constants.MaxConfigSavesPerWeek, m.WeekStart)
		}
		return nil
	})
	if err != nil {
		return err
	}

	// Hand edits between load and save are overwritten; the allowance is
	// already spent at this point.
	_, version, err := store.Files.Read(constants.ConfigFileName)
	if err != nil {
		return err
	}
	if _, err := store.Files.CompareAndSwap(ctx, constants.ConfigFileName, version, data); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	logger.Info("Configuration saved", "path", store.Files.Path(constants.ConfigFileName))
	return nil
}
