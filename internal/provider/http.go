package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const maxResponseBytes = 2 << 20

var tracer = otel.Tracer("github.com/Skufu/AfyaChecker/internal/provider")

type restClient struct {
	name       string
	httpClient *http.Client
	headers    map[string]string
}

func (c *restClient) startSpan(ctx context.Context, op, model string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "provider."+op, trace.WithAttributes(
		attribute.String("llm.provider", c.name),
		attribute.String("llm.model", model),
	))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// doJSON sends body as JSON and decodes a 2xx response into out. Failures come
// back as *Error.
func (c *restClient) doJSON(ctx context.Context, method, url string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", c.name, err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("build %s request: %w", c.name, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return transportError(c.name, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return transportError(c.name, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := errorMessage(raw)
		return &Error{
			Provider:   c.name,
			Kind:       statusKind(resp.StatusCode, msg),
			StatusCode: resp.StatusCode,
			Message:    msg,
			RetryAfter: retryAfter(resp.Header),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &Error{Provider: c.name, Kind: KindBadResponse, Message: "decode response", Err: err}
	}
	return nil
}

const maxErrorMessage = 300

// errorMessage pulls a readable message out of an error body. OpenAI, Groq and
// Gemini all use {"error": {"message": ...}}.
func errorMessage(raw []byte) string {
	var envelope struct {
		Error struct {
			Message string `json:"message"`
			Status  string `json:"status"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Error.Message != "" {
		return envelope.Error.Message
	}
	msg := strings.TrimSpace(string(raw))
	if len(msg) > maxErrorMessage {
		cut := maxErrorMessage
		for cut > 0 && !utf8.RuneStart(msg[cut]) {
			cut--
		}
		msg = msg[:cut]
	}
	return msg
}
