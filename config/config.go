package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type AppConfig struct {
	Name     string `toml:"name"`
	Version  string `toml:"version"`
	Debug    bool   `toml:"debug"`
	LogLevel string `toml:"log_level"`
}

type ServerConfig struct {
	Host        string   `toml:"host"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
}

type OpenAIConfig struct {
	APIKey  string `toml:"api_key"`
	Model   string `toml:"model"`
	BaseURL string `toml:"base_url,omitempty"`
}

type AnthropicConfig struct {
	APIKey  string `toml:"api_key"`
	Model   string `toml:"model"`
	BaseURL string `toml:"base_url,omitempty"`
}

type GeminiConfig struct {
	APIKey string `toml:"api_key"`
	Model  string `toml:"model"`
}

type OllamaConfig struct {
	Host  string `toml:"host"`
	Model string `toml:"model"`
}

type LLMConfig struct {
	Provider          string          `toml:"provider"`
	UIMaxTokens       int             `toml:"ui_max_tokens"`
	RequestTimeout    Duration        `toml:"request_timeout"`
	MaxRetries        int             `toml:"max_retries"`
	FallbackProviders []string        `toml:"fallback_providers"`
	OpenAI            OpenAIConfig    `toml:"openai"`
	Anthropic         AnthropicConfig `toml:"anthropic"`
	Gemini            GeminiConfig    `toml:"gemini"`
	Ollama            OllamaConfig    `toml:"ollama"`
}

type MCPConfig struct {
	Timeout Duration `toml:"timeout"`
}

type DatabaseConfig struct {
	Driver string `toml:"driver"`
	URL    string `toml:"url"`
}

// Config is the complete service configuration. See Load for precedence.
type Config struct {
	App      AppConfig      `toml:"app"`
	Server   ServerConfig   `toml:"server"`
	LLM      LLMConfig      `toml:"llm"`
	MCP      MCPConfig      `toml:"mcp"`
	Database DatabaseConfig `toml:"database"`
}

// Duration lets TOML files carry Go duration strings such as "30s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Addr returns host:port for the HTTP listener.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c *Config) applyEnvOverrides() {
	setString(&c.App.Name, "APP_NAME")
	setBool(&c.App.Debug, "DEBUG")
	setString(&c.App.LogLevel, "LOG_LEVEL")

	setString(&c.Server.Host, "HOST")
	setInt(&c.Server.Port, "PORT")
	setList(&c.Server.CORSOrigins, "CORS_ORIGINS")

	setString(&c.LLM.Provider, "LLM_PROVIDER")
	setInt(&c.LLM.UIMaxTokens, "LLM_UI_MAX_TOKENS")
	setDuration(&c.LLM.RequestTimeout, "LLM_REQUEST_TIMEOUT")
	setInt(&c.LLM.MaxRetries, "LLM_MAX_RETRIES")
	setList(&c.LLM.FallbackProviders, "LLM_FALLBACK_PROVIDERS")

	setString(&c.LLM.OpenAI.APIKey, "OPENAI_API_KEY")
	setString(&c.LLM.OpenAI.Model, "OPENAI_MODEL")
	setString(&c.LLM.OpenAI.BaseURL, "OPENAI_BASE_URL")
	setString(&c.LLM.Anthropic.APIKey, "ANTHROPIC_API_KEY")
	setString(&c.LLM.Anthropic.Model, "CLAUDE_MODEL")
	setString(&c.LLM.Anthropic.BaseURL, "ANTHROPIC_BASE_URL")
	setString(&c.LLM.Gemini.APIKey, "GEMINI_API_KEY")
	setString(&c.LLM.Gemini.Model, "GEMINI_MODEL")
	setString(&c.LLM.Ollama.Host, "OLLAMA_HOST")
	setString(&c.LLM.Ollama.Model, "OLLAMA_MODEL")

	setDuration(&c.MCP.Timeout, "MCP_TIMEOUT")

	setString(&c.Database.Driver, "DATABASE_DRIVER")
	setString(&c.Database.URL, "DATABASE_URL")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) {
	switch strings.ToLower(os.Getenv(key)) {
	case "1", "true", "yes", "on":
		*dst = true
	case "0", "false", "no", "off":
		*dst = false
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setDuration(dst *Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setList(dst *[]string, key string) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return
	}
	var items []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	*dst = items
}

// ValidateLLM checks that the selected provider has both a credential and a
// model configured. The returned error is a *ConfigurationError naming the
// first missing variable.
func (c *Config) ValidateLLM() error {
	return c.ValidateProvider(c.LLM.Provider)
}

// ValidateProvider runs the ValidateLLM checks for an arbitrary provider ID.
func (c *Config) ValidateProvider(id string) error {
	switch id {
	case "openai":
		return require(c.LLM.OpenAI.APIKey, "OPENAI_API_KEY", "OpenAI API key is not configured",
			c.LLM.OpenAI.Model, "OPENAI_MODEL", "OpenAI model is not configured")
	case "claude":
		return require(c.LLM.Anthropic.APIKey, "ANTHROPIC_API_KEY", "Anthropic API key is not configured",
			c.LLM.Anthropic.Model, "CLAUDE_MODEL", "Claude model is not configured")
	case "gemini":
		return require(c.LLM.Gemini.APIKey, "GEMINI_API_KEY", "Gemini API key is not configured",
			c.LLM.Gemini.Model, "GEMINI_MODEL", "Gemini model is not configured")
	case "ollama":
		// Local server, no credential.
		if strings.TrimSpace(c.LLM.Ollama.Model) == "" {
			return &ConfigurationError{Variable: "OLLAMA_MODEL", Message: "Ollama model is not configured"}
		}
		return nil
	default:
		return &ConfigurationError{
			Variable: "LLM_PROVIDER",
			Message:  fmt.Sprintf("Unknown provider: %s", id),
		}
	}
}

func require(key, keyVar, keyMsg, model, modelVar, modelMsg string) error {
	if strings.TrimSpace(key) == "" {
		return &ConfigurationError{Variable: keyVar, Message: keyMsg}
	}
	if strings.TrimSpace(model) == "" {
		return &ConfigurationError{Variable: modelVar, Message: modelMsg}
	}
	return nil
}

// HasLLMKeys reports whether any cloud provider credential is configured.
func (c *Config) HasLLMKeys() bool {
	return c.LLM.OpenAI.APIKey != "" || c.LLM.Anthropic.APIKey != "" || c.LLM.Gemini.APIKey != ""
}

// LoadOptions controls where Load looks for files.
type LoadOptions struct {
	// ConfigFile is an explicit TOML path; empty means PIXIE_CONFIG, then
	// ./pixie.toml when it exists.
	ConfigFile string
	// EnvDir is the directory holding .env and .env.local; empty means ".".
	EnvDir string
}

// Load builds the configuration: defaults, then the TOML file, then .env
// and .env.local, then the process environment.
func Load(opts LoadOptions) (*Config, error) {
	cfg := DefaultConfig()

	if path := ResolveConfigPath(opts.ConfigFile); path != "" {
		if err := LoadFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := LoadEnvFiles(opts.EnvDir); err != nil {
		return nil, fmt.Errorf("failed to load env files: %w", err)
	}

	cfg.applyEnvOverrides()

	if cfg.Database.Driver == "sqlite" {
		cfg.Database.URL = ExpandPath(cfg.Database.URL)
	}

	return cfg, nil
}
