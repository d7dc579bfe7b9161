package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"sales-support/internal/models"
)

const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"

	StorePinecone = "pinecone"
	StorePgvector = "pgvector"
	StoreChromem  = "chromem"

	SplitterCharacter = "character"
	SplitterRecursive = "recursive"
)

// LLMConfig describes one model endpoint
type LLMConfig struct {
	Provider    string  `yaml:"provider"`
	BaseURL     string  `yaml:"base_url" split_words:"true"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens" split_words:"true"`
	// MaxAttempts bounds how many times a transient failure is tried in total
	MaxAttempts int `yaml:"max_attempts" split_words:"true"`
}

type RAGConfig struct {
	Splitter     string `yaml:"splitter"`
	ChunkSize    int    `yaml:"chunk_size" split_words:"true"`
	ChunkOverlap int    `yaml:"chunk_overlap" split_words:"true"`
	TopK         int    `yaml:"top_k" split_words:"true"`
	ChatCache    bool   `yaml:"chat_cache" split_words:"true"`
}

type VectorStoreConfig struct {
	Type        string `yaml:"type"`
	Dimensions  int    `yaml:"dimensions"`
	DatabaseURL string `yaml:"database_url" envconfig:"DATABASE_URL"`
	Debug       bool   `yaml:"debug"`
	ChromemPath string `yaml:"chromem_path" split_words:"true"`
}

type Config struct {
	OpenAIAPIKey        string `yaml:"-" envconfig:"OPENAI_API_KEY"`
	OpenAIOrganization  string `yaml:"-" envconfig:"OPENAI_API_ORGANIZATION"`
	PineconeAPIKey      string `yaml:"-" envconfig:"PINECONE_API_KEY"`
	PineconeEnvironment string `yaml:"pinecone_environment" envconfig:"PINECONE_ENVIRONMENT"`
	PineconeIndexName   string `yaml:"pinecone_index_name" envconfig:"PINECONE_INDEX_NAME"`
	PineconeHost        string `yaml:"pinecone_host" envconfig:"PINECONE_HOST"`
	PineconeProjectID   string `yaml:"pinecone_project_id" envconfig:"PINECONE_PROJECT_ID"`

	LogLevel string `yaml:"log_level" envconfig:"LOG_LEVEL"`

	Chat        LLMConfig         `yaml:"chat" envconfig:"CHAT"`
	Completion  LLMConfig         `yaml:"completion" envconfig:"COMPLETION"`
	EmbedLLM    LLMConfig         `yaml:"embed_llm" envconfig:"EMBED_LLM"`
	RAG         RAGConfig         `yaml:"rag" envconfig:"RAG"`
	VectorStore VectorStoreConfig `yaml:"vector_store" envconfig:"VECTOR_STORE"`
}

// LoadConfig reads the optional yaml file at path, overlays .env and the
// process environment, applies defaults and validates the result.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	_ = godotenv.Load()

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every required key that is missing
func (c *Config) Validate() error {
	required := []struct {
		key   string
		value string
	}{
		{"OPENAI_API_KEY", c.OpenAIAPIKey},
		{"OPENAI_API_ORGANIZATION", c.OpenAIOrganization},
		{"PINECONE_API_KEY", c.PineconeAPIKey},
		{"PINECONE_ENVIRONMENT", c.PineconeEnvironment},
		{"PINECONE_INDEX_NAME", c.PineconeIndexName},
	}

	var missing []string
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			missing = append(missing, r.key)
		}
	}
	if c.VectorStore.Type == StorePgvector && c.VectorStore.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", models.ErrMissingConfiguration, strings.Join(missing, ", "))
	}

	// chat and completion only talk to OpenAI; embeddings may also use Ollama
	for _, llm := range []struct {
		section  string
		provider string
	}{
		{"chat", c.Chat.Provider},
		{"completion", c.Completion.Provider},
	} {
		if llm.provider != "" && llm.provider != ProviderOpenAI {
			return fmt.Errorf("unsupported %s provider: %s", llm.section, llm.provider)
		}
	}
	switch c.EmbedLLM.Provider {
	case "", ProviderOpenAI, ProviderOllama:
	default:
		return fmt.Errorf("unknown embedding provider: %s", c.EmbedLLM.Provider)
	}

	switch c.VectorStore.Type {
	case StorePinecone, StorePgvector, StoreChromem:
	default:
		return fmt.Errorf("unknown vector store type: %s", c.VectorStore.Type)
	}
	switch c.RAG.Splitter {
	case SplitterCharacter, SplitterRecursive:
	default:
		return fmt.Errorf("unknown splitter: %s", c.RAG.Splitter)
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}

	if c.Chat.Provider == "" {
		c.Chat.Provider = ProviderOpenAI
	}
	if c.Chat.Model == "" {
		c.Chat.Model = models.DefaultChatModel
	}
	if c.Chat.Temperature == 0 {
		c.Chat.Temperature = models.DefaultChatTemperature
	}
	if c.Chat.MaxAttempts == 0 {
		c.Chat.MaxAttempts = models.DefaultChatAttempts
	}

	if c.Completion.Model == "" {
		c.Completion.Model = models.DefaultCompletionModel
	}
	if c.Completion.Temperature == 0 {
		c.Completion.Temperature = models.DefaultCompletionTemp
	}
	if c.Completion.MaxTokens == 0 {
		c.Completion.MaxTokens = models.DefaultCompletionTokens
	}

	if c.EmbedLLM.Provider == "" {
		c.EmbedLLM.Provider = ProviderOpenAI
	}
	if c.EmbedLLM.Model == "" {
		c.EmbedLLM.Model = models.DefaultEmbeddingModel
	}

	// chunk overlap defaults to zero, so only the size is filled in
	if c.RAG.ChunkSize == 0 {
		c.RAG.ChunkSize = models.DefaultChunkSize
	}
	if c.RAG.Splitter == "" {
		c.RAG.Splitter = SplitterCharacter
	}
	if c.RAG.TopK == 0 {
		c.RAG.TopK = models.DefaultTopK
	}

	if c.VectorStore.Type == "" {
		c.VectorStore.Type = StorePinecone
	}
	if c.VectorStore.Dimensions == 0 {
		c.VectorStore.Dimensions = models.DefaultEmbedDimension
	}
}

// IndexName is the index every facade call targets
func (c *Config) IndexName() string {
	if c.PineconeIndexName == "" {
		return models.DefaultIndexName
	}
	return c.PineconeIndexName
}
