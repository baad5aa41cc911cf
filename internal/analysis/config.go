package analysis

import "fmt"

// Config selects and configures an Analyzer backend
type Config struct {
	Kind        string // "gemini" or "ollama"
	GeminiKey   string
	GeminiModel string
	OllamaURL   string
	OllamaModel string
}

// New builds the Analyzer named by cfg.Kind
func New(cfg Config) (Analyzer, error) {
	switch cfg.Kind {
	case "gemini", "":
		return NewGemini(cfg.GeminiKey, cfg.GeminiModel)
	case "ollama":
		return NewOllama(cfg.OllamaURL, cfg.OllamaModel)
	default:
		return nil, fmt.Errorf("invalid analyzer type %q: expected gemini or ollama", cfg.Kind)
	}
}
