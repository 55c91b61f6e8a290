package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/satyajitsk27/zania/internal/models"
)

// LLMConfig points at an OpenAI-compatible or ollama endpoint.
type LLMConfig struct {
	Provider string `yaml:"provider"` // "openai" or "ollama"
	BaseURL  string `yaml:"base_url"`
	Key      string `yaml:"key"`
	Model    string `yaml:"model"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type RAGConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
	TopK         int `yaml:"top_k"`
}

type Config struct {
	Server   ServerConfig `yaml:"server"`
	EmbedLLM LLMConfig    `yaml:"embed_llm"`
	ChatLLM  LLMConfig    `yaml:"chat_llm"`
	RAG      RAGConfig    `yaml:"rag"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":3000"
	}
	if c.RAG.ChunkSize == 0 {
		c.RAG.ChunkSize = models.ChunkSize
	}
	if c.RAG.ChunkOverlap == 0 {
		c.RAG.ChunkOverlap = models.ChunkOverlap
	}
	if c.RAG.TopK == 0 {
		c.RAG.TopK = models.RetrievalTopK
	}
	// provider keys may come from the environment instead of the file
	if c.EmbedLLM.Key == "" {
		c.EmbedLLM.Key = os.Getenv("OPENAI_API_KEY")
	}
	if c.ChatLLM.Key == "" {
		c.ChatLLM.Key = os.Getenv("OPENAI_API_KEY")
	}
}
