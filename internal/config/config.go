package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid config")

// DefaultServiceName is reported by the health endpoint.
const DefaultServiceName = "EngAi Multi-Agent MCP System"

// Defaults
const (
	DefaultOutputDir    = "./generated_projects"
	DefaultPort         = 8000
	DefaultWriteTimeout = 600 // seconds; a full generation run takes minutes
	DefaultLLMTimeout   = 300 // seconds
)

// Config represents the engai configuration
type Config struct {
	OutputDir   string          `yaml:"output_dir"`
	ServiceName string          `yaml:"service_name"`
	Server      ServerConfig    `yaml:"server"`
	LLM         LLMConfig       `yaml:"llm"`
	Usage       UsageConfig     `yaml:"usage"`
	Telemetry   TelemetryConfig `yaml:"telemetry"`
	Prompts     PromptsConfig   `yaml:"prompts"`
	Pipeline    PipelineConfig  `yaml:"pipeline"`

	// APIKey comes from GEMINI_API_KEY only and is never written to a file.
	APIKey string `yaml:"-"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port         int      `yaml:"port"`
	WriteTimeout int      `yaml:"write_timeout"` // seconds
	CORSOrigins  []string `yaml:"cors_origins"`
}

// LLMConfig configures the Gemini client.
type LLMConfig struct {
	Model       string   `yaml:"model"`
	Temperature *float64 `yaml:"temperature,omitempty"`
	MaxTokens   int      `yaml:"max_tokens"`
	Timeout     int      `yaml:"timeout"` // seconds per call
}

// UsageConfig configures usage persistence.
type UsageConfig struct {
	// DBPath is the SQLite file. Empty keeps usage in memory.
	DBPath string `yaml:"db_path"`
}

// TelemetryConfig configures the OTLP exporters.
type TelemetryConfig struct {
	Endpoint string `yaml:"endpoint"`
	Insecure bool   `yaml:"insecure"`
}

// PromptsConfig configures prompt template lookup.
type PromptsConfig struct {
	Dir       string            `yaml:"dir"`
	Overrides map[string]string `yaml:"overrides,omitempty"`
}

// PipelineConfig configures the stage sequence.
type PipelineConfig struct {
	RoutePlan bool `yaml:"route_plan"`
}

// Locations returns the config files checked when no path is given, in
// order.
func Locations() []string {
	locations := []string{
		filepath.Join(".engai", "config.yaml"),
		filepath.Join(".engai", "config.yml"),
	}
	if home, err := os.UserHomeDir(); err == nil {
		locations = append(locations, filepath.Join(home, ".engai", "config.yaml"))
	}
	return locations
}

// LoadDotEnv loads .env files into the environment without overriding
// variables that are already set. Missing files are ignored.
func LoadDotEnv(paths ...string) {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
		}
	}
}

// Load reads config from file, checking multiple locations.
// It returns os.ErrNotExist when no path is given and no file is found.
func Load(path string) (*Config, error) {
	var configPath string

	if path != "" {
		configPath = path
	} else {
		for _, loc := range Locations() {
			if _, err := os.Stat(loc); err == nil {
				configPath = loc
				break
			}
		}
	}

	if configPath == "" {
		return nil, os.ErrNotExist
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", configPath, err)
	}
	cfg.applyDefaults()

	// Apply environment variable overrides
	cfg.ApplyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault is Load that falls back to Default plus environment
// overrides when no config file exists. An explicit path must exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if err == nil {
		return cfg, nil
	}
	if path != "" || !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	cfg = Default()
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.OutputDir == "" {
		c.OutputDir = DefaultOutputDir
	}
	if c.ServiceName == "" {
		c.ServiceName = DefaultServiceName
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = DefaultWriteTimeout
	}
	if len(c.Server.CORSOrigins) == 0 {
		c.Server.CORSOrigins = []string{"*"}
	}
	if c.LLM.Timeout == 0 {
		c.LLM.Timeout = DefaultLLMTimeout
	}
}

// ApplyEnvOverrides applies environment variable overrides to config
func (c *Config) ApplyEnvOverrides() {
	if envDir := os.Getenv("OUTPUT_DIR"); envDir != "" {
		c.OutputDir = envDir
	}
	if envDir := os.Getenv("ENGAI_OUTPUT_DIR"); envDir != "" {
		c.OutputDir = envDir
	}
	if envPort := os.Getenv("ENGAI_PORT"); envPort != "" {
		if port, err := strconv.Atoi(envPort); err == nil && port > 0 {
			c.Server.Port = port
		}
	}
	if envTimeout := os.Getenv("ENGAI_LLM_TIMEOUT"); envTimeout != "" {
		if timeout, err := strconv.Atoi(envTimeout); err == nil && timeout > 0 {
			c.LLM.Timeout = timeout
		}
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.APIKey = key
	}
	if model := os.Getenv("GEMINI_MODEL"); model != "" {
		c.LLM.Model = model
	}
	if db := os.Getenv("ENGAI_USAGE_DB"); db != "" {
		c.Usage.DBPath = db
	}
	if endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); endpoint != "" {
		c.Telemetry.Endpoint = endpoint
	}
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("%w: server.port %d out of range", ErrInvalid, c.Server.Port))
	}
	if c.Server.WriteTimeout < 0 {
		errs = append(errs, fmt.Errorf("%w: server.write_timeout must not be negative", ErrInvalid))
	}
	if t := c.LLM.Temperature; t != nil && (*t < 0 || *t > 2) {
		errs = append(errs, fmt.Errorf("%w: llm.temperature %.2f out of range [0, 2]", ErrInvalid, *t))
	}
	if c.LLM.MaxTokens < 0 {
		errs = append(errs, fmt.Errorf("%w: llm.max_tokens must not be negative", ErrInvalid))
	}
	if c.LLM.Timeout < 0 {
		errs = append(errs, fmt.Errorf("%w: llm.timeout must not be negative", ErrInvalid))
	}
	for name := range c.Prompts.Overrides {
		if strings.TrimSpace(name) == "" {
			errs = append(errs, fmt.Errorf("%w: prompts.overrides has an empty agent name", ErrInvalid))
		}
	}
	return errors.Join(errs...)
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

// LLMTimeout returns the per-call LLM timeout.
func (c *Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLM.Timeout) * time.Second
}

// WriteTimeout returns the HTTP write timeout.
func (c *Config) WriteTimeout() time.Duration {
	return time.Duration(c.Server.WriteTimeout) * time.Second
}

// Default returns the default configuration
func Default() *Config {
	cfg := &Config{
		Usage: UsageConfig{DBPath: filepath.Join(".engai", "usage.db")},
	}
	cfg.applyDefaults()
	return cfg
}

// Marshal renders the config as YAML with a header, for `engai init`.
func (c *Config) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	header := "# EngAi Configuration\n" +
		"# GEMINI_API_KEY is read from the environment or .env, never from this file.\n\n"
	return append([]byte(header), data...), nil
}
