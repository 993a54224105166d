package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Skufu/AfyaChecker/internal/advisor"
	"github.com/Skufu/AfyaChecker/internal/cache"
	"github.com/Skufu/AfyaChecker/internal/catalog"
	"github.com/Skufu/AfyaChecker/internal/provider"
	"github.com/Skufu/AfyaChecker/internal/report"
	"github.com/Skufu/AfyaChecker/internal/scorer"
)

type fakeDB struct {
	err error
}

func (f fakeDB) Ping(ctx context.Context) error {
	return f.err
}

type fakeProvider struct {
	text      string
	err       error
	delay     time.Duration
	modelsErr error
}

func (f *fakeProvider) Name() string  { return provider.Groq }
func (f *fakeProvider) Model() string { return "llama-test" }

func (f *fakeProvider) Generate(ctx context.Context, _ provider.Prompt) (string, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.text, f.err
}

func (f *fakeProvider) ListModels(context.Context) ([]string, error) {
	if f.modelsErr != nil {
		return nil, f.modelsErr
	}
	return []string{"llama-test", "llama-other"}, nil
}

func newTestRouter(t *testing.T, p *fakeProvider, mutate ...func(*Dependencies)) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cat := catalog.MustDefault()
	deps := Dependencies{
		Catalog:        cat,
		Advisor:        advisor.NewService(advisor.Options{Catalog: cat, Provider: p, Timeout: 200 * time.Millisecond}),
		AllowedOrigins: []string{"http://localhost:8501"},
	}
	for _, m := range mutate {
		m(&deps)
	}
	return setupRouter(deps)
}

func do(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	var req *http.Request
	if body == "" {
		req, _ = http.NewRequest(method, path, nil)
	} else {
		req, _ = http.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestRouterHealthz(t *testing.T) {
	router := newTestRouter(t, &fakeProvider{})

	w := do(router, "GET", "/healthz", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"status":"ok"`) {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
}

func TestWelcomeNamesProvider(t *testing.T) {
	router := newTestRouter(t, &fakeProvider{})

	w := do(router, "GET", "/", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Contains(t, body["message"], "groq")
	assert.Equal(t, "llama-test", body["model"])
}

func TestHealthProbesProvider(t *testing.T) {
	router := newTestRouter(t, &fakeProvider{})
	w := do(router, "GET", "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", decode(t, w)["status"])

	failing := &fakeProvider{modelsErr: &provider.Error{Provider: "groq", Kind: provider.KindAuth, StatusCode: 401}}
	router = newTestRouter(t, failing)
	w = do(router, "GET", "/health", "")
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	body := decode(t, w)
	assert.Equal(t, "unhealthy", body["status"])
	assert.Contains(t, body["hint"], "GROQ_API_KEY")
}

func TestReadyz(t *testing.T) {
	t.Run("dependencies disabled", func(t *testing.T) {
		router := newTestRouter(t, &fakeProvider{})
		w := do(router, "GET", "/readyz", "")
		require.Equal(t, http.StatusOK, w.Code)
		body := decode(t, w)
		assert.Equal(t, "disabled", body["db"])
		assert.Equal(t, "disabled", body["cache"])
	})

	t.Run("database down", func(t *testing.T) {
		router := newTestRouter(t, &fakeProvider{}, func(d *Dependencies) {
			d.DB = fakeDB{err: errors.New("connection refused")}
		})
		w := do(router, "GET", "/readyz", "")
		require.Equal(t, http.StatusServiceUnavailable, w.Code)
		body := decode(t, w)
		assert.Equal(t, "degraded", body["status"])
		assert.Contains(t, body["db"], "unhealthy")
	})

	t.Run("database and redis up", func(t *testing.T) {
		mr, err := miniredis.Run()
		require.NoError(t, err)
		t.Cleanup(mr.Close)
		rc := cache.NewWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), time.Minute)

		router := newTestRouter(t, &fakeProvider{}, func(d *Dependencies) {
			d.DB = fakeDB{}
			d.Cache = rc
		})
		w := do(router, "GET", "/readyz", "")
		require.Equal(t, http.StatusOK, w.Code)
		body := decode(t, w)
		assert.Equal(t, "ok", body["db"])
		assert.Equal(t, "ok", body["cache"])
	})
}

func TestAnalyze(t *testing.T) {
	router := newTestRouter(t, &fakeProvider{text: "Huenda ni malaria. Huu si ushauri wa kitabibu; muone daktari."})

	w := do(router, "POST", "/analyze", `{"symptoms":"homa na kichwa kuuma","language":"sw"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "Huenda ni malaria. Huu si ushauri wa kitabibu; muone daktari.", body["analysis"])
	assert.Equal(t, false, body["is_emergency"])
	assert.Equal(t, "llama-test", body["model"])
	assert.Contains(t, body, "response_time")
}

func TestAnalyzeEmergency(t *testing.T) {
	router := newTestRouter(t, &fakeProvider{text: "Go to hospital."})

	w := do(router, "POST", "/analyze", `{"symptoms":"sudden chest pain","language":"en"}`)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["is_emergency"])
	assert.True(t, strings.HasPrefix(body["analysis"].(string), advisor.EmergencyBanner(catalog.English)))
}

func TestAnalyzeErrors(t *testing.T) {
	tests := []struct {
		name       string
		provider   *fakeProvider
		body       string
		wantStatus int
		wantError  string
		wantHint   string
	}{
		{
			name:       "empty symptoms",
			provider:   &fakeProvider{},
			body:       `{"symptoms":"","language":"sw"}`,
			wantStatus: http.StatusBadRequest,
			wantError:  "Hitilafu: Maelezo ya dalili hayapo. Tafadhali weka dalili.",
		},
		{
			name:       "malformed json",
			provider:   &fakeProvider{},
			body:       `{"symptoms":`,
			wantStatus: http.StatusBadRequest,
			wantError:  "Hitilafu: Maelezo ya dalili hayapo. Tafadhali weka dalili.",
		},
		{
			name:       "rate limited",
			provider:   &fakeProvider{err: &provider.Error{Provider: "groq", Kind: provider.KindRateLimit, StatusCode: 429}},
			body:       `{"symptoms":"fever and cough","language":"en"}`,
			wantStatus: http.StatusBadGateway,
			wantError:  "An error occurred. Please try again.",
			wantHint:   "groq rate limit reached. Wait 1-2 minutes and try again.",
		},
		{
			name:       "timeout",
			provider:   &fakeProvider{text: "late", delay: 2 * time.Second},
			body:       `{"symptoms":"fever and cough","language":"en"}`,
			wantStatus: http.StatusGatewayTimeout,
			wantError:  "The request timed out. Please try again.",
			wantHint:   "groq did not respond in time. Try again shortly.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(t, tt.provider)
			w := do(router, "POST", "/analyze", tt.body)
			require.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			body := decode(t, w)
			assert.Equal(t, tt.wantError, body["error"])
			assert.Contains(t, body, "input_symptoms")
			if tt.wantHint != "" {
				assert.Equal(t, tt.wantHint, body["hint"])
			}
		})
	}
}

func TestAnalyzeErrorCarriesSanitizedInput(t *testing.T) {
	router := newTestRouter(t, &fakeProvider{err: errors.New("boom")})

	w := do(router, "POST", "/analyze", `{"symptoms":"Thoughts of Suicide","language":"en"}`)
	require.Equal(t, http.StatusBadGateway, w.Code)
	body := decode(t, w)
	assert.Equal(t, "Thoughts of Suicide", body["input_symptoms"])
	assert.Equal(t, "thoughts of [REDACTED]", body["sanitized_input"])
	assert.Equal(t, "boom", body["details"])
}

func TestModels(t *testing.T) {
	router := newTestRouter(t, &fakeProvider{})
	w := do(router, "GET", "/models", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, []any{"llama-test", "llama-other"}, body["models"])

	router = newTestRouter(t, &fakeProvider{modelsErr: errors.New("dial tcp: connection refused")})
	w = do(router, "GET", "/models", "")
	require.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, decode(t, w)["hint"], "Network problem")
}

func TestSymptomsList(t *testing.T) {
	router := newTestRouter(t, &fakeProvider{})

	w := do(router, "GET", "/api/symptoms?language=en", "")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Language string          `json:"language"`
		Symptoms []symptomOption `json:"symptoms"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "en", body.Language)
	require.Len(t, body.Symptoms, 10)
	assert.Equal(t, "kikohozi", body.Symptoms[0].Key)
	assert.Equal(t, "cough", body.Symptoms[0].Label)

	w = do(router, "GET", "/api/symptoms", "")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "sw", body.Language)
	assert.Equal(t, "kikohozi", body.Symptoms[0].Label)
}

func TestScore(t *testing.T) {
	router := newTestRouter(t, &fakeProvider{})

	w := do(router, "POST", "/api/score", `{"symptoms":"homa, maumivu makali","language":"sw"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var body scoreResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))

	require.Len(t, body.Top, scorer.PrimaryLimit)
	assert.Equal(t, "Malaria", body.Top[0].Condition)
	assert.Equal(t, "25.0%", body.Top[0].Percent)
	assert.Len(t, body.Chart, 4)
	assert.Equal(t, "Malaria", body.TopCondition)
	assert.Equal(t, []string{"maumivu makali"}, body.Unrecognized)
	assert.Equal(t, 4, body.Total)
	assert.Equal(t, report.Disclaimer(catalog.Swahili), body.Disclaimer)
	assert.NotEmpty(t, body.Advice)
}

func TestScoreErrors(t *testing.T) {
	router := newTestRouter(t, &fakeProvider{})

	w := do(router, "POST", "/api/score", `{"symptoms":" , ","language":"en"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, report.ErrorMessage(catalog.English, scorer.ErrNoSymptoms), decode(t, w)["error"])

	w = do(router, "POST", "/api/score", `{"symptoms":"Homa","language":"en"}`)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	body := decode(t, w)
	assert.Equal(t, report.ErrorMessage(catalog.English, scorer.ErrNoMatches), body["error"])
	assert.Equal(t, []any{"Homa"}, body["unrecognized"])

	w = do(router, "POST", "/api/score", `not json`)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReportDownload(t *testing.T) {
	router := newTestRouter(t, &fakeProvider{})

	w := do(router, "POST", "/api/report", `{"selected":["homa","kikohozi"],"language":"sw"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="ripoti_ya_dalili.txt"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "text/plain; charset=utf-8", w.Header().Get("Content-Type"))

	res, err := scorer.Analyze(catalog.MustDefault().Symptoms, "", []string{"homa", "kikohozi"})
	require.NoError(t, err)
	want := report.New(catalog.MustDefault(), catalog.Swahili, res).Text()
	assert.Equal(t, want, w.Body.String())
}

func TestChartPNG(t *testing.T) {
	router := newTestRouter(t, &fakeProvider{})

	w := do(router, "POST", "/api/chart", `{"symptoms":"homa, uchovu","language":"en"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("\x89PNG\r\n\x1a\n")))
}

// Ensure limitBodySize middleware allows small payloads and blocks large ones.
func TestLimitBodySize(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(limitBodySize(10))
	router.POST("/echo", func(c *gin.Context) {
		_, err := c.GetRawData()
		if err != nil {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "too large"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	t.Run("within limit", func(t *testing.T) {
		w := do(router, "POST", "/echo", "12345")
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
	})

	t.Run("over limit", func(t *testing.T) {
		w := do(router, "POST", "/echo", "01234567890")
		if w.Code != http.StatusRequestEntityTooLarge {
			t.Fatalf("expected 413, got %d", w.Code)
		}
	})
}

func TestAnalyzeRejectsLargeBody(t *testing.T) {
	router := newTestRouter(t, &fakeProvider{text: "ok"}, func(d *Dependencies) {
		d.MaxBodyBytes = 64
	})
	big := `{"symptoms":"` + strings.Repeat("homa ", 40) + `"}`
	w := do(router, "POST", "/analyze", big)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestCORSAllowList(t *testing.T) {
	router := newTestRouter(t, &fakeProvider{}, func(d *Dependencies) {
		d.AllowedOrigins = []string{"*", "http://localhost:8501"}
	})

	preflight := func(origin string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodOptions, "/analyze", nil)
		req.Header.Set("Origin", origin)
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	w := preflight("http://localhost:8501")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:8501", w.Header().Get("Access-Control-Allow-Origin"))

	w = preflight("https://evil.example")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRecoveryReturnsGenericError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(recovery(zap.NewNop()))
	router.GET("/panic", func(c *gin.Context) { panic("secret internals") })

	w := do(router, "GET", "/panic", "")
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "secret internals")
	assert.Equal(t, advisor.InternalErrorMessage(catalog.Swahili), decode(t, w)["error"])
}

func TestRequestIDHeader(t *testing.T) {
	router := newTestRouter(t, &fakeProvider{})

	w := do(router, "GET", "/healthz", "")
	assert.Len(t, w.Header().Get(requestIDHeader), 36)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "0b6f5b8e-6d0c-4c1e-9a43-7d1c2b6d9f10")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "0b6f5b8e-6d0c-4c1e-9a43-7d1c2b6d9f10", w.Header().Get(requestIDHeader))
}

func TestMetricsEndpoint(t *testing.T) {
	router := newTestRouter(t, &fakeProvider{}, func(d *Dependencies) { d.Metrics = true })

	do(router, "GET", "/healthz", "")
	w := do(router, "GET", "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "afya_http_requests_total")

	router = newTestRouter(t, &fakeProvider{})
	assert.Equal(t, http.StatusNotFound, do(router, "GET", "/metrics", "").Code)
}
