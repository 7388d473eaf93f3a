// Package config provides the application configuration object.
// Configuration is assembled once at startup — YAML file first, environment
// overrides second, defaults for everything left unset — and validated before
// any service is constructed. Services receive the Config value explicitly;
// nothing in the codebase reads provider settings from the environment ad hoc.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Provider names recognized by Validate.
const (
	ProviderOllama    = "ollama"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Defaults applied by Load for unset fields.
const (
	defaultProvider        = ProviderOllama
	defaultOllamaBaseURL   = "http://localhost:11434"
	defaultOllamaChatModel = "llama3.2:3b"
	defaultOllamaEmbed     = "nomic-embed-text"
	defaultOpenAIModel     = "gpt-4o-mini"
	defaultOpenAIEmbed     = "text-embedding-3-small"
	defaultAnthropicModel  = "claude-sonnet-4-20250514"
	defaultDBPath          = "iris.db"
	defaultStepBudget      = 25
	defaultSearchK         = 2
)

// Environment override keys.
const (
	envKeyProvider        = "IRIS_PROVIDER"
	envKeyOllamaBaseURL   = "OLLAMA_BASE_URL"
	envKeyOllamaChatModel = "OLLAMA_CHAT_MODEL"
	envKeyOllamaEmbed     = "OLLAMA_EMBED_MODEL"
	envKeyOpenAIAPIKey    = "OPENAI_API_KEY"
	envKeyOpenAIModel     = "OPENAI_LLM_MODEL"
	envKeyOpenAIEmbed     = "OPENAI_EMBEDDING_MODEL"
	envKeyAnthropicAPIKey = "ANTHROPIC_API_KEY"
	envKeyAnthropicModel  = "ANTHROPIC_MODEL"
	envKeyDBPath          = "IRIS_DB_PATH"
	envKeyStepBudget      = "IRIS_STEP_BUDGET"
	envKeyTavilyAPIKey    = "TAVILY_API_KEY"
)

// MCPServer describes one external Model Context Protocol server whose tools
// are loaded into the registry at startup. Either Command (stdio transport)
// or URL (SSE transport) must be set.
type MCPServer struct {
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
	URL     string   `yaml:"url"`
}

// Config holds runtime configuration for Iris.
type Config struct {
	// Provider selects the model backend: "ollama", "openai" or "anthropic".
	Provider string `yaml:"provider"`

	Ollama struct {
		BaseURL    string `yaml:"base_url"`
		ChatModel  string `yaml:"chat_model"`
		EmbedModel string `yaml:"embed_model"`
	} `yaml:"ollama"`

	OpenAI struct {
		APIKey     string `yaml:"api_key"`
		BaseURL    string `yaml:"base_url"`
		Model      string `yaml:"model"`
		EmbedModel string `yaml:"embed_model"`
	} `yaml:"openai"`

	Anthropic struct {
		APIKey string `yaml:"api_key"`
		Model  string `yaml:"model"`
	} `yaml:"anthropic"`

	Agent struct {
		// StepBudget caps the model-invoke/tool-dispatch cycles per run.
		StepBudget int `yaml:"step_budget"`
		// ParallelToolCalls lets the dispatcher run independent calls concurrently.
		ParallelToolCalls bool `yaml:"parallel_tool_calls"`
		// UseMemory persists conversation state across runs keyed by thread ID.
		UseMemory bool `yaml:"use_memory"`
	} `yaml:"agent"`

	Search struct {
		// K is the number of chunks the retrieve tool returns per query.
		K int `yaml:"k"`
	} `yaml:"search"`

	WebSearch struct {
		// APIKey authenticates against the Tavily search API. Empty leaves
		// the search_web tool registered but answering that search is
		// unavailable.
		APIKey string `yaml:"api_key"`
	} `yaml:"web_search"`

	DBPath string `yaml:"db_path"`

	// MCPServers maps server name to its transport spec.
	MCPServers map[string]MCPServer `yaml:"mcp_servers"`
}

// Load builds a Config from an optional YAML file path (empty path skips the
// file), applies environment overrides, then fills defaults. The result is not
// validated — call Validate once before wiring services.
func Load(path string) (Config, error) {
	var cfg Config
	// Memory is on unless the file turns it off; a zero-value default would
	// make an absent key indistinguishable from an explicit use_memory: false.
	cfg.Agent.UseMemory = true

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()
	cfg.applyDefaults()
	return cfg, nil
}

// Validate checks the configuration once at startup. It fails fast on an
// unrecognized provider or a selected provider missing its credentials.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderOllama:
		if c.Ollama.BaseURL == "" {
			return fmt.Errorf("config: ollama base_url is required")
		}
	case ProviderOpenAI:
		if c.OpenAI.APIKey == "" {
			return fmt.Errorf("config: openai api_key is required when provider=openai")
		}
	case ProviderAnthropic:
		if c.Anthropic.APIKey == "" {
			return fmt.Errorf("config: anthropic api_key is required when provider=anthropic")
		}
	default:
		return fmt.Errorf("config: unknown provider %q (supported: %s, %s, %s)",
			c.Provider, ProviderOllama, ProviderOpenAI, ProviderAnthropic)
	}

	if c.Agent.StepBudget <= 0 {
		return fmt.Errorf("config: agent step_budget must be positive, got %d", c.Agent.StepBudget)
	}
	if c.Search.K <= 0 {
		return fmt.Errorf("config: search k must be positive, got %d", c.Search.K)
	}

	for name, srv := range c.MCPServers {
		if srv.Command == "" && srv.URL == "" {
			return fmt.Errorf("config: mcp server %q needs a command or a url", name)
		}
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	overrideString(&c.Provider, envKeyProvider)
	overrideString(&c.Ollama.BaseURL, envKeyOllamaBaseURL)
	overrideString(&c.Ollama.ChatModel, envKeyOllamaChatModel)
	overrideString(&c.Ollama.EmbedModel, envKeyOllamaEmbed)
	overrideString(&c.OpenAI.APIKey, envKeyOpenAIAPIKey)
	overrideString(&c.OpenAI.Model, envKeyOpenAIModel)
	overrideString(&c.OpenAI.EmbedModel, envKeyOpenAIEmbed)
	overrideString(&c.Anthropic.APIKey, envKeyAnthropicAPIKey)
	overrideString(&c.Anthropic.Model, envKeyAnthropicModel)
	overrideString(&c.DBPath, envKeyDBPath)
	overrideString(&c.WebSearch.APIKey, envKeyTavilyAPIKey)

	if v := os.Getenv(envKeyStepBudget); v != "" {
		if budget, err := strconv.Atoi(v); err == nil {
			c.Agent.StepBudget = budget
		}
	}
}

func (c *Config) applyDefaults() {
	defaultString(&c.Provider, defaultProvider)
	defaultString(&c.Ollama.BaseURL, defaultOllamaBaseURL)
	defaultString(&c.Ollama.ChatModel, defaultOllamaChatModel)
	defaultString(&c.Ollama.EmbedModel, defaultOllamaEmbed)
	defaultString(&c.OpenAI.Model, defaultOpenAIModel)
	defaultString(&c.OpenAI.EmbedModel, defaultOpenAIEmbed)
	defaultString(&c.Anthropic.Model, defaultAnthropicModel)
	defaultString(&c.DBPath, defaultDBPath)

	if c.Agent.StepBudget == 0 {
		c.Agent.StepBudget = defaultStepBudget
	}
	if c.Search.K == 0 {
		c.Search.K = defaultSearchK
	}
}

// overrideString replaces *dst with the environment value when set.
func overrideString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// defaultString fills *dst with fallback when empty.
func defaultString(dst *string, fallback string) {
	if *dst == "" {
		*dst = fallback
	}
}
