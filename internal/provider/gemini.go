package provider

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

type gemini struct {
	rest *restClient
	cfg  Config
	log  *zap.Logger
}

func newGemini(cfg Config, log *zap.Logger) *gemini {
	return &gemini{
		rest: &restClient{
			name:       cfg.Name,
			httpClient: &http.Client{Timeout: cfg.Timeout},
			headers:    map[string]string{"x-goog-api-key": cfg.APIKey},
		},
		cfg: cfg,
		log: log,
	}
}

func (g *gemini) Name() string  { return g.cfg.Name }
func (g *gemini) Model() string { return g.cfg.Model }

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent  `json:"systemInstruction,omitempty"`
	Contents          []geminiContent `json:"contents"`
	GenerationConfig  struct {
		MaxOutputTokens int     `json:"maxOutputTokens"`
		Temperature     float64 `json:"temperature"`
	} `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

func (g *gemini) Generate(ctx context.Context, p Prompt) (text string, err error) {
	ctx, span := g.rest.startSpan(ctx, "generate", g.cfg.Model)
	start := time.Now()
	defer func() {
		observe(g.cfg.Name, start, err)
		endSpan(span, err)
	}()

	var req geminiRequest
	if p.System != "" {
		req.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: p.System}}}
	}
	req.Contents = []geminiContent{{Role: "user", Parts: []geminiPart{{Text: p.User}}}}
	req.GenerationConfig.MaxOutputTokens = g.cfg.MaxTokens
	req.GenerationConfig.Temperature = g.cfg.Temperature

	endpoint := g.cfg.BaseURL + "/v1beta/models/" + url.PathEscape(g.cfg.Model) + ":generateContent"
	return withRetry(ctx, g.cfg.Retry, g.log, "generateContent", func(ctx context.Context) (string, error) {
		var resp geminiResponse
		if err := g.rest.doJSON(ctx, http.MethodPost, endpoint, req, &resp); err != nil {
			return "", err
		}
		if resp.PromptFeedback.BlockReason != "" {
			return "", &Error{Provider: g.cfg.Name, Kind: KindBadResponse, Message: "prompt blocked: " + resp.PromptFeedback.BlockReason}
		}
		if len(resp.Candidates) == 0 {
			return "", &Error{Provider: g.cfg.Name, Kind: KindBadResponse, Message: "no candidates"}
		}
		var b strings.Builder
		for _, part := range resp.Candidates[0].Content.Parts {
			b.WriteString(part.Text)
		}
		out := strings.TrimSpace(b.String())
		if out == "" {
			return "", &Error{Provider: g.cfg.Name, Kind: KindBadResponse, Message: "empty candidate"}
		}
		return out, nil
	})
}

func (g *gemini) ListModels(ctx context.Context) (ids []string, err error) {
	ctx, span := g.rest.startSpan(ctx, "list_models", g.cfg.Model)
	defer func() { endSpan(span, err) }()

	var resp struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := g.rest.doJSON(ctx, http.MethodGet, g.cfg.BaseURL+"/v1beta/models", nil, &resp); err != nil {
		return nil, err
	}
	ids = make([]string, 0, len(resp.Models))
	for _, m := range resp.Models {
		ids = append(ids, strings.TrimPrefix(m.Name, "models/"))
	}
	return ids, nil
}
