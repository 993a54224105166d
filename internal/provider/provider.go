// Package provider talks to external text-generation services. Every service is
// reached over its REST API and exposed through the same small interface so the
// advisor can be tested without a network and providers can be swapped by
// configuration.
package provider

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Prompt is a system instruction plus the user's message.
type Prompt struct {
	System string
	User   string
}

// Generator produces text for a prompt.
type Generator interface {
	Generate(ctx context.Context, p Prompt) (string, error)
}

type Provider interface {
	Generator
	Name() string
	Model() string
	ListModels(ctx context.Context) ([]string, error)
}

const (
	OpenAI = "openai"
	Groq   = "groq"
	Gemini = "gemini"
)

// Names lists the supported provider identifiers.
var Names = []string{Groq, OpenAI, Gemini}

type defaults struct {
	baseURL, model, keyEnv string
}

var providerDefaults = map[string]defaults{
	OpenAI: {baseURL: "https://api.openai.com/v1", model: "gpt-4o-mini", keyEnv: "OPENAI_API_KEY"},
	Groq:   {baseURL: "https://api.groq.com/openai/v1", model: "llama-3.3-70b-versatile", keyEnv: "GROQ_API_KEY"},
	Gemini: {baseURL: "https://generativelanguage.googleapis.com", model: "gemini-1.5-flash", keyEnv: "GEMINI_API_KEY"},
}

// KeyEnv names the environment variable holding the API key for provider name.
func KeyEnv(name string) string {
	if d, ok := providerDefaults[strings.ToLower(name)]; ok {
		return d.keyEnv
	}
	return "LLM_API_KEY"
}

type Config struct {
	Name        string
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
	Retry       RetryPolicy
}

// New builds the provider selected by cfg.Name.
func New(cfg Config, log *zap.Logger) (Provider, error) {
	name := strings.ToLower(strings.TrimSpace(cfg.Name))
	d, ok := providerDefaults[name]
	if !ok {
		return nil, fmt.Errorf("unknown provider %q (supported: %s)", cfg.Name, strings.Join(Names, ", "))
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("missing %s", d.keyEnv)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = d.baseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Model == "" {
		cfg.Model = d.model
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 500
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	cfg.Name = name
	log = log.With(zap.String("provider", name), zap.String("model", cfg.Model))

	switch name {
	case Gemini:
		return newGemini(cfg, log), nil
	default:
		return newChatCompletions(cfg, log), nil
	}
}
