package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// CurrentVersion is the config schema version written by this build.
const CurrentVersion = 1

// ProjectFileName is the per-project configuration file.
const ProjectFileName = ".artman.yaml"

// DefaultRegistryName and DefaultRegistryLocation name the registry
// configured when nothing else is.
const (
	DefaultRegistryName     = "default"
	DefaultRegistryLocation = "https://github.com/Aman-CERP/artman-registry"
)

// Config is the complete artman configuration.
type Config struct {
	Version    int               `yaml:"version" json:"version"`
	Registries []RegistryConfig  `yaml:"registries" json:"registries"`
	Cache      CacheConfig       `yaml:"cache" json:"cache"`
	Index      IndexConfig       `yaml:"index" json:"index"`
	Host       HostConfig        `yaml:"host" json:"host"`
	Tools      map[string]string `yaml:"tools" json:"tools"`
	Log        LogConfig         `yaml:"log" json:"log"`
}

// RegistryConfig is one configured registry. Order is search order.
type RegistryConfig struct {
	Name     string `yaml:"name" json:"name"`
	Location string `yaml:"location" json:"location"`
}

// CacheConfig configures where remote registries are cached.
type CacheConfig struct {
	// Dir holds one folder per remote registry.
	// Defaults to ~/.artman/cache
	Dir string `yaml:"dir" json:"dir"`
}

// IndexConfig tunes index regeneration and lookups.
type IndexConfig struct {
	// Workers bounds the documents parsed concurrently (default: 4).
	Workers int `yaml:"workers" json:"workers"`
	// CacheSize is the number of opened artifacts kept per registry
	// (default: 512).
	CacheSize int `yaml:"cache_size" json:"cache_size"`
}

// HostConfig adds tags to the detected host context.
type HostConfig struct {
	Tags []string `yaml:"tags" json:"tags"`
}

// LogConfig configures file logging.
type LogConfig struct {
	Level string `yaml:"level" json:"level"`
}

// NewConfig returns a configuration with defaults.
func NewConfig() *Config {
	return &Config{
		Version: CurrentVersion,
		Registries: []RegistryConfig{
			{Name: DefaultRegistryName, Location: DefaultRegistryLocation},
		},
		Cache: CacheConfig{Dir: defaultCacheDir()},
		Index: IndexConfig{
			Workers:   4,
			CacheSize: 512,
		},
		Tools: map[string]string{"git": "tools/git"},
		Log:   LogConfig{Level: "info"},
	}
}

func defaultCacheDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".artman", "cache")
	}
	return filepath.Join(home, ".artman", "cache")
}

// GetUserConfigPath returns the path to the user configuration file:
//   - $XDG_CONFIG_HOME/artman/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/artman/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "artman", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "artman", "config.yaml")
	}
	return filepath.Join(home, ".config", "artman", "config.yaml")
}

// UserConfigExists returns true if the user configuration file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

// LoadUserConfig loads the user configuration over defaults. A missing
// file yields the defaults.
func LoadUserConfig() (*Config, error) {
	cfg := NewConfig()
	path := GetUserConfigPath()
	if !fileExists(path) {
		return cfg, nil
	}
	if err := cfg.loadYAML(path); err != nil {
		return nil, fmt.Errorf("failed to load user config from %s: %w", path, err)
	}
	return cfg, nil
}

// Load loads configuration for the working directory dir, in order of
// increasing precedence:
//  1. Hardcoded defaults
//  2. User config (~/.config/artman/config.yaml)
//  3. Project config (.artman.yaml in dir or the nearest parent)
//  4. Environment variables (ARTMAN_*)
func Load(dir string) (*Config, error) {
	cfg, err := LoadUserConfig()
	if err != nil {
		return nil, err
	}

	if path, ok := FindProjectConfig(dir); ok {
		if err := cfg.loadYAML(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// LoadFile loads defaults overlaid with the single file at path plus
// environment overrides.
func LoadFile(path string) (*Config, error) {
	cfg := NewConfig()
	if err := cfg.loadYAML(path); err != nil {
		return nil, err
	}
	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// FindProjectConfig walks up from startDir looking for .artman.yaml.
func FindProjectConfig(startDir string) (string, bool) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false
	}
	for {
		path := filepath.Join(dir, ProjectFileName)
		if fileExists(path) {
			return path, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	c.mergeWith(&parsed)
	return nil
}

// mergeWith overlays the non-zero values of other. A registries list
// replaces the current one; tools merge by family.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}
	if other.Registries != nil {
		c.Registries = append([]RegistryConfig(nil), other.Registries...)
	}
	if other.Cache.Dir != "" {
		c.Cache.Dir = expandHome(other.Cache.Dir)
	}
	if other.Index.Workers != 0 {
		c.Index.Workers = other.Index.Workers
	}
	if other.Index.CacheSize != 0 {
		c.Index.CacheSize = other.Index.CacheSize
	}
	if len(other.Host.Tags) > 0 {
		c.Host.Tags = append([]string(nil), other.Host.Tags...)
	}
	if len(other.Tools) > 0 {
		if c.Tools == nil {
			c.Tools = map[string]string{}
		}
		for family, id := range other.Tools {
			c.Tools[family] = id
		}
	}
	if other.Log.Level != "" {
		c.Log.Level = other.Log.Level
	}
}

// applyEnvOverrides applies ARTMAN_* environment variable overrides.
func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("ARTMAN_CACHE_DIR"); v != "" {
		c.Cache.Dir = expandHome(v)
	}
	if v := os.Getenv("ARTMAN_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("ARTMAN_WORKERS must be an integer, got %q", v)
		}
		c.Index.Workers = n
	}
	if v := os.Getenv("ARTMAN_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("ARTMAN_HOST_TAGS"); v != "" {
		for _, tag := range strings.Split(v, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				c.Host.Tags = append(c.Host.Tags, tag)
			}
		}
	}
	return nil
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	seenNames := map[string]bool{}
	seenLocations := map[string]bool{}
	for i, r := range c.Registries {
		if r.Location == "" {
			return fmt.Errorf("registries[%d].location is required", i)
		}
		if strings.Contains(r.Name, ":") {
			return fmt.Errorf("registries[%d].name must not contain ':', got %s", i, r.Name)
		}
		if r.Name != "" {
			if seenNames[r.Name] {
				return fmt.Errorf("registry name %s is used twice", r.Name)
			}
			seenNames[r.Name] = true
		}
		if seenLocations[r.Location] {
			return fmt.Errorf("registry location %s is used twice", r.Location)
		}
		seenLocations[r.Location] = true
	}

	if c.Index.Workers < 1 {
		return fmt.Errorf("index.workers must be at least 1, got %d", c.Index.Workers)
	}
	if c.Index.CacheSize < 1 {
		return fmt.Errorf("index.cache_size must be at least 1, got %d", c.Index.CacheSize)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		return fmt.Errorf("log.level must be 'debug', 'info', 'warn', or 'error', got %s", c.Log.Level)
	}
	return nil
}

// AddRegistry appends a registry. Names and locations must be unique.
func (c *Config) AddRegistry(name, location string) error {
	for _, r := range c.Registries {
		if r.Name == name {
			return fmt.Errorf("registry %s already exists", name)
		}
		if r.Location == location {
			return fmt.Errorf("location %s is already registered as %s", location, r.Name)
		}
	}
	c.Registries = append(c.Registries, RegistryConfig{Name: name, Location: location})
	return nil
}

// RemoveRegistry removes the registry called name and reports whether it
// was present.
func (c *Config) RemoveRegistry(name string) bool {
	for i, r := range c.Registries {
		if r.Name == name {
			c.Registries = append(c.Registries[:i:i], c.Registries[i+1:]...)
			return true
		}
	}
	return false
}

// WriteYAML writes the configuration to a YAML file, creating its folder.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
