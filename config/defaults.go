package config

import "time"

const (
	DefaultUIMaxTokens = 16000
	DefaultMCPTimeout  = 30 * time.Second
)

func DefaultConfig() *Config {
	return &Config{
		App: AppConfig{
			Name:     "Pixie API",
			Version:  "0.1.0",
			LogLevel: "INFO",
		},
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8000,
			CORSOrigins: []string{"http://localhost:5173", "http://localhost:8080"},
		},
		LLM: LLMConfig{
			Provider:       "openai",
			UIMaxTokens:    DefaultUIMaxTokens,
			RequestTimeout: Duration{120 * time.Second},
			MaxRetries:     2,
			OpenAI:         OpenAIConfig{Model: "gpt-4o"},
			Anthropic:      AnthropicConfig{Model: "claude-haiku-4-5-20251001"},
			Gemini:         GeminiConfig{Model: "gemini-2.5-flash"},
			Ollama: OllamaConfig{
				Host:  "http://localhost:11434",
				Model: "llama3.1:latest",
			},
		},
		MCP: MCPConfig{
			Timeout: Duration{DefaultMCPTimeout},
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			URL:    "pixie.db",
		},
	}
}

func GenerateConfigTemplate() string {
	return `# Pixie Configuration
# This file uses TOML format: https://toml.io
# Every value can be overridden by the environment variable noted beside it.

[app]
name = "Pixie API"        # APP_NAME
debug = false             # DEBUG
log_level = "INFO"        # LOG_LEVEL: DEBUG, INFO, WARNING, ERROR, CRITICAL

[server]
host = "0.0.0.0"          # HOST
port = 8000               # PORT
cors_origins = ["http://localhost:5173", "http://localhost:8080"]  # CORS_ORIGINS

[llm]
# Provider used for UI generation and chat: openai, claude, gemini or ollama
provider = "openai"       # LLM_PROVIDER

# Raise this if generated HTML is getting truncated
ui_max_tokens = 16000     # LLM_UI_MAX_TOKENS

request_timeout = "2m0s"  # LLM_REQUEST_TIMEOUT
max_retries = 2           # LLM_MAX_RETRIES

# Providers tried in order when the primary fails (unset disables fallback)
# fallback_providers = ["claude", "gemini"]   # LLM_FALLBACK_PROVIDERS

[llm.openai]
api_key = ""              # OPENAI_API_KEY
model = "gpt-4o"          # OPENAI_MODEL

[llm.anthropic]
api_key = ""                          # ANTHROPIC_API_KEY
model = "claude-haiku-4-5-20251001"   # CLAUDE_MODEL

[llm.gemini]
api_key = ""              # GEMINI_API_KEY
model = "gemini-2.5-flash"  # GEMINI_MODEL

[llm.ollama]
host = "http://localhost:11434"  # OLLAMA_HOST
model = "llama3.1:latest"        # OLLAMA_MODEL

[mcp]
timeout = "30s"           # MCP_TIMEOUT

[database]
driver = "sqlite"         # DATABASE_DRIVER: sqlite or postgres
url = "pixie.db"          # DATABASE_URL
`
}
