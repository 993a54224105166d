package advisor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Skufu/AfyaChecker/internal/provider"
)

// Hint returns a troubleshooting hint for a failed provider call, or "" when
// the failure does not fall into a known category. Typed provider errors are
// classified by kind; anything else falls back to matching the error text.
func Hint(providerName, keyEnv string, err error) string {
	if err == nil {
		return ""
	}
	kind, ok := provider.KindOf(err)
	if !ok {
		kind = classifyText(err)
	}
	switch kind {
	case provider.KindAuth:
		return fmt.Sprintf("Invalid or missing %s. Check the server environment variables.", keyEnv)
	case provider.KindRateLimit:
		return fmt.Sprintf("%s rate limit reached. Wait 1-2 minutes and try again.", providerName)
	case provider.KindTimeout:
		return fmt.Sprintf("%s did not respond in time. Try again shortly.", providerName)
	case provider.KindConnection:
		return fmt.Sprintf("Network problem reaching %s. Check your internet connection or the %s status page.", providerName, providerName)
	}
	return ""
}

func classifyText(err error) provider.Kind {
	if errors.Is(err, context.DeadlineExceeded) {
		return provider.KindTimeout
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "authentication"), strings.Contains(msg, "api key"), strings.Contains(msg, "unauthorized"):
		return provider.KindAuth
	case strings.Contains(msg, "rate limit"), strings.Contains(msg, "too many requests"):
		return provider.KindRateLimit
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "timed out"), strings.Contains(msg, "deadline exceeded"):
		return provider.KindTimeout
	case strings.Contains(msg, "connection"), strings.Contains(msg, "network"), strings.Contains(msg, "dial"):
		return provider.KindConnection
	}
	return ""
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	kind, _ := provider.KindOf(err)
	return kind == provider.KindTimeout
}
