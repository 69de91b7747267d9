package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Source    SourceConfig    `yaml:"source"`
	Toolchain ToolchainConfig `yaml:"toolchain"`
	Staging   StagingConfig   `yaml:"staging"`
	Daemon    *DaemonConfig   `yaml:"daemon,omitempty"`
}

// SourceConfig locates the front-end project to build. Dir is the nested
// project directory; Repo optionally points at a git repository to fetch
// the project from before building.
type SourceConfig struct {
	Dir  string      `yaml:"dir"`
	Repo *RepoConfig `yaml:"repo,omitempty"`
}

// RepoConfig describes an optional git source for the project.
type RepoConfig struct {
	URL    string `yaml:"url"`
	Branch string `yaml:"branch,omitempty"`
}

// ToolchainConfig describes the external package manager invocation.
type ToolchainConfig struct {
	Manager     string   `yaml:"manager"`      // npm, yarn or pnpm
	InstallArgs []string `yaml:"install_args,omitempty"`
	BuildArgs   []string `yaml:"build_args,omitempty"`
	OutputDir   string   `yaml:"output_dir"` // build output subdir inside source dir
}

// StagingConfig controls artifact filtering and the target directory.
type StagingConfig struct {
	TargetDir string   `yaml:"target_dir"`
	Prune     []string `yaml:"prune,omitempty"`   // basename glob patterns deleted from build output
	Entries   []string `yaml:"entries,omitempty"` // build output entries copied into the target
}

// DaemonConfig configures continuous mode.
type DaemonConfig struct {
	Interval    time.Duration `yaml:"interval"`
	MetricsAddr string        `yaml:"metrics_addr,omitempty"`
	HistoryDB   string        `yaml:"history_db,omitempty"`
	NATS        *NATSConfig   `yaml:"nats,omitempty"`
}

// NATSConfig configures build event publishing.
type NATSConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

// Supported package managers.
const (
	ManagerNPM  = "npm"
	ManagerYarn = "yarn"
	ManagerPNPM = "pnpm"
)

// Load loads configuration from the specified file
func Load(configPath string) (*Config, error) {
	// Load .env file if it exists
	loadEnvFile()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))

	var config Config
	if err := yaml.Unmarshal([]byte(expandedData), &config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Default returns a configuration populated entirely from defaults, for
// running without a config file.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Source.Dir == "" {
		c.Source.Dir = "./web"
	}
	if c.Toolchain.Manager == "" {
		c.Toolchain.Manager = ManagerNPM
	}
	if c.Toolchain.OutputDir == "" {
		c.Toolchain.OutputDir = "build"
	}
	if c.Staging.TargetDir == "" {
		c.Staging.TargetDir = "./stage"
	}
	if len(c.Staging.Prune) == 0 {
		c.Staging.Prune = []string{"*runtime*.js", "*.map"}
	}
	if len(c.Staging.Entries) == 0 {
		c.Staging.Entries = []string{"index.html", "static"}
	}
	if c.Daemon != nil {
		if c.Daemon.Interval <= 0 {
			c.Daemon.Interval = 15 * time.Minute
		}
		if c.Daemon.HistoryDB == "" {
			c.Daemon.HistoryDB = "webstage-history.db"
		}
	}
}

// Validate checks semantic constraints not expressible in the YAML schema.
func (c *Config) Validate() error {
	switch c.Toolchain.Manager {
	case ManagerNPM, ManagerYarn, ManagerPNPM:
	default:
		return fmt.Errorf("unsupported package manager: %s", c.Toolchain.Manager)
	}
	if c.Source.Repo != nil && c.Source.Repo.URL == "" {
		return fmt.Errorf("source.repo.url is required when source.repo is set")
	}
	if c.Daemon != nil && c.Daemon.NATS != nil {
		if c.Daemon.NATS.URL == "" {
			return fmt.Errorf("daemon.nats.url is required when daemon.nats is set")
		}
		if c.Daemon.NATS.Subject == "" {
			return fmt.Errorf("daemon.nats.subject is required when daemon.nats is set")
		}
	}
	return nil
}

// Init creates a new configuration file with example content
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	exampleConfig := Config{
		Source: SourceConfig{
			Dir: "./web",
		},
		Toolchain: ToolchainConfig{
			Manager:   ManagerNPM,
			OutputDir: "build",
		},
		Staging: StagingConfig{
			TargetDir: "./stage",
			Prune:     []string{"*runtime*.js", "*.map"},
			Entries:   []string{"index.html", "static"},
		},
	}

	data, err := yaml.Marshal(&exampleConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal example config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
