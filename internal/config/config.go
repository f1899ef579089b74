// Package config handles runtime configuration and the .assay directory
// structure. Every project that uses assay gets a .assay/ folder created in
// its root.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// AssayDir is the name of the directory created in each project.
	AssayDir = ".assay"

	defaultDeck           = "standard"
	defaultTimeoutSeconds = 120
	defaultMaxAttempts    = 3
)

const defaultProjectConfigYAML = `# assay project configuration
version: 1

# Provider backend. The command receives one JSON request on stdin and must
# print the generated text (or a {"content": ...} object) on stdout.
provider:
  command: ""
  args: []
  timeout_seconds: 120
  max_attempts: 3

decks:
  default: standard
`

// ProviderConfig declares the backend command for generated text.
type ProviderConfig struct {
	Command        string   `yaml:"command"`
	Args           []string `yaml:"args,omitempty"`
	TimeoutSeconds int      `yaml:"timeout_seconds,omitempty"`
	MaxAttempts    int      `yaml:"max_attempts,omitempty"`
}

// Timeout returns the per-call provider deadline.
func (pc ProviderConfig) Timeout() time.Duration {
	return time.Duration(pc.TimeoutSeconds) * time.Second
}

// Configured reports whether a backend command is set. Without one the tool
// runs with the scripted offline provider.
func (pc ProviderConfig) Configured() bool {
	return strings.TrimSpace(pc.Command) != ""
}

// DeckConfig captures preset-deck preferences.
type DeckConfig struct {
	Default string `yaml:"default"`
}

// ProjectConfig models .assay/config.yaml.
type ProjectConfig struct {
	Version  int            `yaml:"version"`
	Provider ProviderConfig `yaml:"provider"`
	Decks    DeckConfig     `yaml:"decks"`
}

// Config holds the runtime configuration for assay.
type Config struct {
	// ProjectDir is the directory where the user ran `assay` from.
	ProjectDir string

	// AssayProjectDir is ProjectDir/.assay.
	AssayProjectDir string

	Project ProjectConfig
}

// InitAssayDir creates the .assay directory structure in the given project
// directory. This is called when the TUI starts up.
//
// Structure created:
// .assay/
// ├── agents/   <- Assessment subjects as JSON files
// ├── decks/    <- Project preset decks
// ├── logs/     <- Session logbook
// └── results/  <- Archived analysis results
func InitAssayDir(projectDir string) error {
	assayDir := filepath.Join(projectDir, AssayDir)

	dirs := []string{
		filepath.Join(assayDir, "agents"),
		filepath.Join(assayDir, "decks"),
		filepath.Join(assayDir, "logs"),
		filepath.Join(assayDir, "results"),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	return ensureProjectConfig(filepath.Join(assayDir, "config.yaml"))
}

// NewConfig creates a Config populated from .assay/config.yaml, falling back
// to defaults when the file does not exist yet.
func NewConfig(projectDir string) (*Config, error) {
	cfg := &Config{
		ProjectDir:      projectDir,
		AssayProjectDir: filepath.Join(projectDir, AssayDir),
		Project:         defaultProjectConfig(),
	}
	if err := cfg.loadProjectConfig(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// AgentsDir returns the directory that holds assessment subjects.
func (c *Config) AgentsDir() string {
	return filepath.Join(c.AssayProjectDir, "agents")
}

// DecksDir returns the directory that holds project preset decks.
func (c *Config) DecksDir() string {
	return filepath.Join(c.AssayProjectDir, "decks")
}

// LogsDir returns the directory for the session logbook.
func (c *Config) LogsDir() string {
	return filepath.Join(c.AssayProjectDir, "logs")
}

// ResultsDir returns the directory for archived analysis results.
func (c *Config) ResultsDir() string {
	return filepath.Join(c.AssayProjectDir, "results")
}

// ProjectConfigPath returns the on-disk location for the project config file.
func (c *Config) ProjectConfigPath() string {
	return filepath.Join(c.AssayProjectDir, "config.yaml")
}

// Provider returns the configured provider backend.
func (c *Config) Provider() ProviderConfig {
	return c.Project.Provider
}

// DefaultDeck returns the configured default preset deck name.
func (c *Config) DefaultDeck() string {
	return c.Project.Decks.Default
}

// SetDefaultDeck updates the default deck and persists the value back to
// .assay/config.yaml so the picker opens on it next launch.
func (c *Config) SetDefaultDeck(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("config: deck name is required")
	}
	c.Project.Decks.Default = name
	return c.saveProjectConfig()
}

func (c *Config) loadProjectConfig() error {
	path := c.ProjectConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	var parsed ProjectConfig
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	parsed.applyDefaults()
	parsed.normalize()
	if err := parsed.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	c.Project = parsed
	return nil
}

func defaultProjectConfig() ProjectConfig {
	return ProjectConfig{
		Version: 1,
		Provider: ProviderConfig{
			TimeoutSeconds: defaultTimeoutSeconds,
			MaxAttempts:    defaultMaxAttempts,
		},
		Decks: DeckConfig{Default: defaultDeck},
	}
}

func (pc *ProjectConfig) applyDefaults() {
	if pc.Version == 0 {
		pc.Version = 1
	}
	if pc.Provider.TimeoutSeconds == 0 {
		pc.Provider.TimeoutSeconds = defaultTimeoutSeconds
	}
	if pc.Provider.MaxAttempts == 0 {
		pc.Provider.MaxAttempts = defaultMaxAttempts
	}
	if strings.TrimSpace(pc.Decks.Default) == "" {
		pc.Decks.Default = defaultDeck
	}
}

func (pc *ProjectConfig) normalize() {
	pc.Provider.Command = strings.TrimSpace(pc.Provider.Command)
	for i, arg := range pc.Provider.Args {
		pc.Provider.Args[i] = strings.TrimSpace(arg)
	}
	pc.Decks.Default = strings.TrimSpace(pc.Decks.Default)
}

func (pc *ProjectConfig) validate() error {
	if pc.Version < 1 {
		return fmt.Errorf("config version must be >= 1")
	}
	if pc.Provider.TimeoutSeconds < 1 {
		return fmt.Errorf("provider.timeout_seconds must be >= 1")
	}
	if pc.Provider.MaxAttempts < 1 {
		return fmt.Errorf("provider.max_attempts must be >= 1")
	}
	if pc.Decks.Default == "" {
		return fmt.Errorf("decks.default is required")
	}
	return nil
}

func ensureProjectConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.WriteFile(path, []byte(defaultProjectConfigYAML), 0o644)
}

func (c *Config) saveProjectConfig() error {
	if c == nil {
		return fmt.Errorf("config: nil receiver")
	}
	c.Project.applyDefaults()
	c.Project.normalize()
	if err := c.Project.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := os.MkdirAll(c.AssayProjectDir, 0o755); err != nil {
		return fmt.Errorf("config: ensure assay dir: %w", err)
	}
	data, err := yaml.Marshal(c.Project)
	if err != nil {
		return fmt.Errorf("config: encode config: %w", err)
	}
	if err := os.WriteFile(c.ProjectConfigPath(), data, 0o644); err != nil {
		return fmt.Errorf("config: write project config: %w", err)
	}
	return nil
}
