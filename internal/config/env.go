package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Environment overrides.
const (
	EnvServerPort    = "STREAM_AUTOMATE_SERVER_PORT"
	EnvOBSAddress    = "STREAM_AUTOMATE_OBS_ADDRESS"
	EnvOBSPort       = "STREAM_AUTOMATE_OBS_PORT"
	EnvOBSPassword   = "STREAM_AUTOMATE_OBS_PASSWORD"
	EnvRemoteAllowed = "STREAM_AUTOMATE_REMOTE_ALLOWED"
	EnvLogLevel      = "STREAM_AUTOMATE_LOG_LEVEL"
)

// LoadDotEnv loads environment variables from path. A missing file is
// not an error; variables already set win.
func LoadDotEnv(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func applyEnv(cfg *Config) error {
	if err := envInt(EnvServerPort, &cfg.General.ServerPort); err != nil {
		return err
	}
	if err := envInt(EnvOBSPort, &cfg.OBS.Port); err != nil {
		return err
	}
	if v, ok := os.LookupEnv(EnvOBSAddress); ok {
		cfg.OBS.Address = v
	}
	if v, ok := os.LookupEnv(EnvOBSPassword); ok {
		cfg.OBS.Password = v
	}
	if v, ok := os.LookupEnv(EnvLogLevel); ok {
		cfg.General.LogLevel = v
	}
	if v, ok := os.LookupEnv(EnvRemoteAllowed); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvRemoteAllowed, err)
		}
		cfg.Remote.Allowed = b
	}
	return nil
}

func envInt(key string, dst *int) error {
	v, ok := os.LookupEnv(key)
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}
