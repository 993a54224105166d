package provider

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Skufu/AfyaChecker/internal/metrics"
)

// chatCompletions serves OpenAI and Groq, which share the chat completions API.
type chatCompletions struct {
	rest *restClient
	cfg  Config
	log  *zap.Logger
}

func newChatCompletions(cfg Config, log *zap.Logger) *chatCompletions {
	return &chatCompletions{
		rest: &restClient{
			name:       cfg.Name,
			httpClient: &http.Client{Timeout: cfg.Timeout},
			headers:    map[string]string{"Authorization": "Bearer " + cfg.APIKey},
		},
		cfg: cfg,
		log: log,
	}
}

func (c *chatCompletions) Name() string  { return c.cfg.Name }
func (c *chatCompletions) Model() string { return c.cfg.Model }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (c *chatCompletions) Generate(ctx context.Context, p Prompt) (text string, err error) {
	ctx, span := c.rest.startSpan(ctx, "generate", c.cfg.Model)
	start := time.Now()
	defer func() {
		observe(c.cfg.Name, start, err)
		endSpan(span, err)
	}()

	messages := make([]chatMessage, 0, 2)
	if p.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: p.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: p.User})
	req := chatRequest{
		Model:       c.cfg.Model,
		Messages:    messages,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
	}

	return withRetry(ctx, c.cfg.Retry, c.log, "chat.completions", func(ctx context.Context) (string, error) {
		var resp chatResponse
		if err := c.rest.doJSON(ctx, http.MethodPost, c.cfg.BaseURL+"/chat/completions", req, &resp); err != nil {
			return "", err
		}
		if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
			return "", &Error{Provider: c.cfg.Name, Kind: KindBadResponse, Message: "empty completion"}
		}
		return strings.TrimSpace(resp.Choices[0].Message.Content), nil
	})
}

func (c *chatCompletions) ListModels(ctx context.Context) (ids []string, err error) {
	ctx, span := c.rest.startSpan(ctx, "list_models", c.cfg.Model)
	defer func() { endSpan(span, err) }()

	var resp struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := c.rest.doJSON(ctx, http.MethodGet, c.cfg.BaseURL+"/models", nil, &resp); err != nil {
		return nil, err
	}
	ids = make([]string, 0, len(resp.Data))
	for _, m := range resp.Data {
		ids = append(ids, m.ID)
	}
	return ids, nil
}

func observe(provider string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
		if pe, ok := asError(err); ok {
			outcome = string(pe.Kind)
		}
	}
	metrics.ProviderRequests.WithLabelValues(provider, outcome).Inc()
	metrics.ProviderDuration.WithLabelValues(provider).Observe(time.Since(start).Seconds())
}
