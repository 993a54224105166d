package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Skufu/AfyaChecker/internal/advisor"
	"github.com/Skufu/AfyaChecker/internal/catalog"
	"github.com/Skufu/AfyaChecker/internal/metrics"
	"github.com/Skufu/AfyaChecker/internal/report"
	"github.com/Skufu/AfyaChecker/internal/scorer"
)

type handlers struct {
	catalog *catalog.Catalog
	advisor *advisor.Service
	db      HealthChecker
	cache   HealthChecker
	log     *zap.Logger
}

func (h *handlers) welcome(c *gin.Context) {
	p := h.advisor.Provider()
	c.JSON(http.StatusOK, gin.H{
		"message":  fmt.Sprintf("Welcome to the AfyaChecker API, powered by %s. POST your symptoms to /analyze.", p.Name()),
		"provider": p.Name(),
		"model":    p.Model(),
	})
}

func (h *handlers) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// health checks the provider round trip by listing its models.
func (h *handlers) health(c *gin.Context) {
	p := h.advisor.Provider()
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if _, err := p.ListModels(ctx); err != nil {
		h.log.Warn("provider health check failed", zap.String("provider", p.Name()), zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":   "unhealthy",
			"provider": p.Name(),
			"error":    err.Error(),
			"hint":     advisor.Hint(p.Name(), h.keyEnv(), err),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "provider": p.Name(), "model": p.Model()})
}

func (h *handlers) readyz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	body := gin.H{"status": "ok"}
	healthy := true
	for name, dep := range map[string]HealthChecker{"db": h.db, "cache": h.cache} {
		if dep == nil {
			body[name] = "disabled"
			continue
		}
		if err := dep.Ping(ctx); err != nil {
			body[name] = fmt.Sprintf("unhealthy: %v", err)
			healthy = false
			continue
		}
		body[name] = "ok"
	}

	if !healthy {
		body["status"] = "degraded"
		c.JSON(http.StatusServiceUnavailable, body)
		return
	}
	c.JSON(http.StatusOK, body)
}

func (h *handlers) analyze(c *gin.Context) {
	var req advisor.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		status := http.StatusBadRequest
		if isBodyTooLarge(err) {
			status = http.StatusRequestEntityTooLarge
		}
		errResp := advisor.Validate(catalog.Swahili, "")
		errResp.Details = "Request body must be JSON with a \"symptoms\" field."
		c.JSON(status, errResp)
		return
	}

	resp, errResp := h.advisor.Analyze(c.Request.Context(), req)
	if errResp != nil {
		c.JSON(analyzeStatus(errResp.Kind), errResp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func analyzeStatus(kind advisor.ErrorKind) int {
	switch kind {
	case advisor.ErrValidation:
		return http.StatusBadRequest
	case advisor.ErrTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func (h *handlers) models(c *gin.Context) {
	p := h.advisor.Provider()
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	ids, err := p.ListModels(ctx)
	if err != nil {
		h.log.Error("listing models failed", zap.String("provider", p.Name()), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "failed to list models",
			"details": err.Error(),
			"hint":    advisor.Hint(p.Name(), h.keyEnv(), err),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"provider": p.Name(), "current": p.Model(), "models": ids})
}

func (h *handlers) keyEnv() string {
	return h.advisor.KeyEnv()
}

type symptomOption struct {
	Key        string   `json:"key"`
	Label      string   `json:"label"`
	Conditions []string `json:"conditions"`
}

func (h *handlers) symptoms(c *gin.Context) {
	lang := catalog.ParseLanguage(c.Query("language"))
	keys := h.catalog.Symptoms.Keys()
	out := make([]symptomOption, 0, len(keys))
	for _, k := range keys {
		conds, _ := h.catalog.Symptoms.Lookup(k)
		out = append(out, symptomOption{
			Key:        k,
			Label:      h.catalog.Translations.Display(k, lang),
			Conditions: h.catalog.Translations.DisplayAll(conds, lang),
		})
	}
	c.JSON(http.StatusOK, gin.H{"language": lang, "symptoms": out})
}

type scoreRequest struct {
	Symptoms string   `json:"symptoms"`
	Selected []string `json:"selected"`
	Language string   `json:"language"`
}

type scoreResponse struct {
	Language     catalog.Language `json:"language"`
	Symptoms     []string         `json:"symptoms"`
	Unrecognized []string         `json:"unrecognized"`
	Top          []report.Entry   `json:"top"`
	Chart        []report.Entry   `json:"chart"`
	TopCondition string           `json:"top_condition"`
	Advice       string           `json:"advice"`
	Total        int              `json:"total"`
	Disclaimer   string           `json:"disclaimer"`
}

// scoreFromRequest binds and scores the request. On failure it has already
// written the error response and returns false.
func (h *handlers) scoreFromRequest(c *gin.Context) (report.Report, scorer.Result, bool) {
	var req scoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		status := http.StatusBadRequest
		if isBodyTooLarge(err) {
			status = http.StatusRequestEntityTooLarge
		}
		metrics.ScoreRequests.WithLabelValues("invalid").Inc()
		c.JSON(status, gin.H{"error": "invalid payload"})
		return report.Report{}, scorer.Result{}, false
	}
	lang := catalog.ParseLanguage(req.Language)

	res, err := scorer.Analyze(h.catalog.Symptoms, req.Symptoms, req.Selected)
	switch {
	case errors.Is(err, scorer.ErrNoSymptoms):
		metrics.ScoreRequests.WithLabelValues("no_input").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": report.ErrorMessage(lang, err)})
		return report.Report{}, res, false
	case errors.Is(err, scorer.ErrNoMatches):
		metrics.ScoreRequests.WithLabelValues("no_match").Inc()
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":        report.ErrorMessage(lang, err),
			"unrecognized": res.Unrecognized,
		})
		return report.Report{}, res, false
	case err != nil:
		metrics.ScoreRequests.WithLabelValues("error").Inc()
		h.log.Error("scoring failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": advisor.InternalErrorMessage(lang)})
		return report.Report{}, res, false
	}
	metrics.ScoreRequests.WithLabelValues("ok").Inc()
	return report.New(h.catalog, lang, res), res, true
}

func (h *handlers) score(c *gin.Context) {
	rep, res, ok := h.scoreFromRequest(c)
	if !ok {
		return
	}
	top := rep.Entries
	if len(top) > scorer.PrimaryLimit {
		top = top[:scorer.PrimaryLimit]
	}
	var topLabel string
	if len(top) > 0 {
		topLabel = top[0].Label
	}
	c.JSON(http.StatusOK, scoreResponse{
		Language:     rep.Language,
		Symptoms:     rep.Symptoms,
		Unrecognized: h.catalog.Translations.DisplayAll(res.Unrecognized, rep.Language),
		Top:          top,
		Chart:        rep.Entries,
		TopCondition: topLabel,
		Advice:       rep.Advice,
		Total:        res.Total,
		Disclaimer:   report.Disclaimer(rep.Language),
	})
}

func (h *handlers) report(c *gin.Context) {
	rep, _, ok := h.scoreFromRequest(c)
	if !ok {
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", rep.Filename()))
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(rep.Text()))
}

func (h *handlers) chart(c *gin.Context) {
	rep, _, ok := h.scoreFromRequest(c)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := rep.WriteChart(&buf); err != nil {
		h.log.Error("rendering chart failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": advisor.InternalErrorMessage(rep.Language)})
		return
	}
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}
