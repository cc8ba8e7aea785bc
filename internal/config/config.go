// Package config loads the stream-automate configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/hlemont/stream-automate/internal/alias"
	"github.com/hlemont/stream-automate/internal/logging"
	"github.com/hlemont/stream-automate/internal/macro"
)

// AppName names the per-user config directory.
const AppName = "stream-automate"

// Config is one immutable configuration snapshot. Callers must not
// modify a Config returned by the Manager.
type Config struct {
	General GeneralConfig `json:"general" yaml:"general" toml:"general"`
	OBS     OBSConfig     `json:"obs" yaml:"obs" toml:"obs"`
	Remote  RemoteConfig  `json:"remote" yaml:"remote" toml:"remote"`
}

// GeneralConfig contains the HTTP server settings.
type GeneralConfig struct {
	// ServerPort is the HTTP listen port.
	ServerPort int `json:"serverPort" yaml:"serverPort" toml:"serverPort"`

	// Host is the listen address.
	Host string `json:"host" yaml:"host" toml:"host"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"logLevel" yaml:"logLevel" toml:"logLevel"`

	// Metrics exposes /metrics when true.
	Metrics bool `json:"metrics" yaml:"metrics" toml:"metrics"`

	// RequestTimeout bounds each obs-websocket request, as a Go duration.
	RequestTimeout string `json:"requestTimeout" yaml:"requestTimeout" toml:"requestTimeout"`
}

// OBSConfig describes how to reach obs-websocket.
type OBSConfig struct {
	Address      string       `json:"address" yaml:"address" toml:"address"`
	Port         int          `json:"port" yaml:"port" toml:"port"`
	Password     string       `json:"password" yaml:"password" toml:"password"`
	SceneAliases []alias.Pair `json:"sceneAliases" yaml:"sceneAliases" toml:"sceneAliases"`
}

// RemoteConfig controls remote input automation.
type RemoteConfig struct {
	Allowed bool          `json:"allowed" yaml:"allowed" toml:"allowed"`
	Macros  []macro.Named `json:"macros" yaml:"macros" toml:"macros"`
}

// DefaultConfig returns a new Config with defaults.
func DefaultConfig() *Config {
	return &Config{
		General: GeneralConfig{
			ServerPort:     4445,
			Host:           "0.0.0.0",
			LogLevel:       "info",
			Metrics:        true,
			RequestTimeout: "10s",
		},
		OBS: OBSConfig{
			Address: "localhost",
			Port:    4444,
		},
	}
}

// Timeout returns the parsed request timeout.
func (c *Config) Timeout() time.Duration {
	d, err := time.ParseDuration(c.General.RequestTimeout)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.General.Host, c.General.ServerPort)
}

// Aliases builds the scene alias table.
func (c *Config) Aliases() (*alias.Table, error) {
	return alias.New(c.OBS.SceneAliases)
}

// Macros builds the named macro registry.
func (c *Config) Macros() (*macro.Registry, error) {
	return macro.NewRegistry(c.Remote.Macros)
}

// Validate checks the whole snapshot and reports the first problem.
func (c *Config) Validate() error {
	if err := checkPort("general.serverPort", c.General.ServerPort); err != nil {
		return err
	}
	if err := checkPort("obs.port", c.OBS.Port); err != nil {
		return err
	}
	if strings.TrimSpace(c.OBS.Address) == "" {
		return errors.New("obs.address: must not be empty")
	}
	if _, err := logging.ParseLevel(c.General.LogLevel); err != nil {
		return fmt.Errorf("general.logLevel: %w", err)
	}
	d, err := time.ParseDuration(c.General.RequestTimeout)
	if err != nil {
		return fmt.Errorf("general.requestTimeout: %w", err)
	}
	if d <= 0 {
		return fmt.Errorf("general.requestTimeout: must be positive, got %s", d)
	}
	if _, err := c.Aliases(); err != nil {
		return fmt.Errorf("obs.sceneAliases: %w", err)
	}
	if _, err := c.Macros(); err != nil {
		return fmt.Errorf("remote.macros: %w", err)
	}
	return nil
}

func checkPort(field string, port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("%s: port %d out of range", field, port)
	}
	return nil
}

// Masked returns a copy safe to log: the password is replaced by
// asterisks and the alias and macro lists are left out.
func (c *Config) Masked() Config {
	out := *c
	out.OBS.Password = strings.Repeat("*", len(c.OBS.Password))
	out.OBS.SceneAliases = nil
	out.Remote.Macros = nil
	return out
}

// Manager owns the config path and the current snapshot.
type Manager struct {
	mu         sync.Mutex
	configPath string
	config     *Config
}

// NewManager creates a manager for path. An empty path is discovered
// with FindConfig; when nothing is found the defaults are used.
func NewManager(path string) (*Manager, error) {
	if path == "" {
		found, err := FindConfig()
		if err != nil {
			return nil, err
		}
		path = found
	}
	return &Manager{
		configPath: path,
		config:     DefaultConfig(),
	}, nil
}

// Path returns the config file path, empty when running on defaults.
func (m *Manager) Path() string {
	return m.configPath
}

// Load reads, overrides and validates the configuration, and makes it
// current.
func (m *Manager) Load() (*Config, error) {
	cfg, err := LoadFile(m.configPath)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.config = cfg
	m.mu.Unlock()
	return cfg, nil
}

// Reload builds a new snapshot without making it current. Callers
// Commit it once everything built from it is in place.
func (m *Manager) Reload() (*Config, error) {
	return LoadFile(m.configPath)
}

// Commit makes cfg the current snapshot.
func (m *Manager) Commit(cfg *Config) {
	m.mu.Lock()
	m.config = cfg
	m.mu.Unlock()
}

// Get returns the current snapshot.
func (m *Manager) Get() *Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.config
}

// LoadFile decodes path over the defaults, applies environment
// overrides and validates the result. An empty path yields defaults.
func LoadFile(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := decode(path, data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// candidates are the accepted file names, in lookup order.
var candidates = []string{"config.json", "config.jsonc", "config.yaml", "config.yml", "config.toml"}

// FindConfig looks for a config file in the working directory, then in
// the per-user config directory. It returns "" when none exists.
func FindConfig() (string, error) {
	dirs := []string{"."}
	if dir, err := UserConfigDir(); err == nil {
		dirs = append(dirs, dir)
	}
	for _, dir := range dirs {
		for _, name := range candidates {
			path := filepath.Join(dir, name)
			info, err := os.Stat(path)
			if err == nil && !info.IsDir() {
				return path, nil
			}
			if err != nil && !errors.Is(err, os.ErrNotExist) {
				return "", err
			}
		}
	}
	return "", nil
}

// UserConfigDir returns the per-user stream-automate directory.
func UserConfigDir() (string, error) {
	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, "Library", "Application Support", AppName), nil
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			appData = filepath.Join(home, "AppData", "Roaming")
		}
		return filepath.Join(appData, AppName), nil
	default:
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".config", AppName), nil
	}
}
