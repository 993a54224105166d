package advisor

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/Skufu/AfyaChecker/internal/catalog"
	"github.com/Skufu/AfyaChecker/internal/metrics"
	"github.com/Skufu/AfyaChecker/internal/provider"
)

// Request is the body of an analysis request.
type Request struct {
	Symptoms    string `json:"symptoms"`
	Language    string `json:"language"`
	UserContext string `json:"user_context,omitempty"`
}

// Response is a successful analysis. ResponseTime is in seconds.
type Response struct {
	Analysis     string  `json:"analysis"`
	IsEmergency  bool    `json:"is_emergency"`
	ResponseTime float64 `json:"response_time"`
	Model        string  `json:"model,omitempty"`
	Cached       bool    `json:"cached,omitempty"`
}

type ErrorKind string

const (
	ErrValidation ErrorKind = "validation"
	ErrProvider   ErrorKind = "provider"
	ErrTimeout    ErrorKind = "timeout"
)

// ErrorResponse is a failed analysis as returned to the caller.
type ErrorResponse struct {
	Kind           ErrorKind `json:"-"`
	Error          string    `json:"error"`
	Details        string    `json:"details,omitempty"`
	Hint           string    `json:"hint,omitempty"`
	InputSymptoms  string    `json:"input_symptoms"`
	SanitizedInput string    `json:"sanitized_input"`
}

// Validate checks the raw symptom text. It returns nil for acceptable input.
func Validate(lang catalog.Language, symptoms string) *ErrorResponse {
	msg := textFor(lang)
	trimmed := strings.TrimSpace(symptoms)
	switch {
	case trimmed == "":
		return &ErrorResponse{Kind: ErrValidation, Error: msg.emptyInput, Details: msg.emptyDetails, InputSymptoms: symptoms}
	case utf8.RuneCountInString(trimmed) < MinSymptomLength:
		return &ErrorResponse{Kind: ErrValidation, Error: msg.shortInput, Details: msg.shortDetails, InputSymptoms: symptoms}
	}
	return nil
}

// Cache stores generated analyses by key.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// Consultation describes one analysis attempt. It never carries symptom text.
type Consultation struct {
	Language    catalog.Language
	Outcome     string
	IsEmergency bool
	Cached      bool
	Provider    string
	Model       string
	Latency     time.Duration
	InputLength int
}

// Recorder persists consultations.
type Recorder interface {
	Record(ctx context.Context, c Consultation) error
}

type Options struct {
	Catalog  *catalog.Catalog
	Provider provider.Provider
	// KeyEnv names the environment variable holding the provider key; used in hints.
	KeyEnv   string
	Cache    Cache
	Recorder Recorder
	Timeout  time.Duration
	Logger   *zap.Logger
}

// Service runs remote symptom analyses.
type Service struct {
	catalog  *catalog.Catalog
	provider provider.Provider
	keyEnv   string
	cache    Cache
	recorder Recorder
	timeout  time.Duration
	log      *zap.Logger
	group    singleflight.Group
}

func NewService(opts Options) *Service {
	s := &Service{
		catalog:  opts.Catalog,
		provider: opts.Provider,
		keyEnv:   opts.KeyEnv,
		cache:    opts.Cache,
		recorder: opts.Recorder,
		timeout:  opts.Timeout,
		log:      opts.Logger,
	}
	if s.catalog == nil {
		s.catalog = catalog.MustDefault()
	}
	if s.keyEnv == "" && s.provider != nil {
		s.keyEnv = provider.KeyEnv(s.provider.Name())
	}
	if s.timeout <= 0 {
		s.timeout = 60 * time.Second
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	return s
}

// Provider returns the configured provider.
func (s *Service) Provider() provider.Provider { return s.provider }

// KeyEnv names the environment variable expected to hold the provider key.
func (s *Service) KeyEnv() string { return s.keyEnv }

// Analyze validates, screens and forwards the symptoms to the provider.
// Exactly one of the results is non-nil.
func (s *Service) Analyze(ctx context.Context, req Request) (*Response, *ErrorResponse) {
	start := time.Now()
	lang := catalog.ParseLanguage(req.Language)

	if errResp := Validate(lang, req.Symptoms); errResp != nil {
		s.finish(ctx, lang, string(ErrValidation), false, false, start, req)
		return nil, errResp
	}

	emergency, matched := DetectEmergency(s.catalog.Emergency.All(), req.Symptoms+"\n"+req.UserContext)
	if emergency {
		metrics.EmergencyDetections.WithLabelValues(string(lang)).Inc()
		s.log.Warn("emergency phrases detected", zap.String("language", string(lang)), zap.Strings("phrases", matched))
	}

	terms := s.catalog.SensitiveTerms()
	sanitized := Sanitize(terms, req.Symptoms)
	prompt := BuildPrompt(lang, sanitized, Sanitize(terms, req.UserContext), emergency)

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	text, cached, err := s.generate(callCtx, prompt)
	if err != nil {
		errResp := s.failure(lang, req.Symptoms, sanitized, err)
		s.log.Error("analysis failed",
			zap.String("provider", s.provider.Name()),
			zap.String("kind", string(errResp.Kind)),
			zap.Error(err))
		s.finish(ctx, lang, string(errResp.Kind), emergency, false, start, req)
		return nil, errResp
	}

	if emergency {
		text = EmergencyBanner(lang) + "\n\n" + text
	}
	s.finish(ctx, lang, "ok", emergency, cached, start, req)
	return &Response{
		Analysis:     text,
		IsEmergency:  emergency,
		ResponseTime: math.Round(time.Since(start).Seconds()*1000) / 1000,
		Model:        s.provider.Model(),
		Cached:       cached,
	}, nil
}

func (s *Service) generate(ctx context.Context, prompt provider.Prompt) (string, bool, error) {
	key := s.cacheKey(prompt)
	if s.cache != nil {
		text, ok, err := s.cache.Get(ctx, key)
		switch {
		case err != nil:
			s.log.Warn("cache lookup failed", zap.Error(err))
		case ok:
			return text, true, nil
		}
	}

	// The shared call outlives any single caller; each caller still stops
	// waiting when its own context ends.
	ch := s.group.DoChan(key, func() (interface{}, error) {
		shared, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()
		return s.provider.Generate(shared, prompt)
	})
	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return "", false, ctx.Err()
	}
	if res.Err != nil {
		return "", false, res.Err
	}
	text := res.Val.(string)

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, text); err != nil {
			s.log.Warn("cache store failed", zap.Error(err))
		}
	}
	return text, false, nil
}

func (s *Service) cacheKey(p provider.Prompt) string {
	sum := sha256.Sum256([]byte(s.provider.Name() + "\x00" + s.provider.Model() + "\x00" + p.System + "\x00" + p.User))
	return hex.EncodeToString(sum[:])
}

func (s *Service) failure(lang catalog.Language, input, sanitized string, err error) *ErrorResponse {
	msg := textFor(lang)
	resp := &ErrorResponse{
		Kind:           ErrProvider,
		Error:          msg.providerFailed,
		Details:        err.Error(),
		Hint:           Hint(s.provider.Name(), s.keyEnv, err),
		InputSymptoms:  input,
		SanitizedInput: sanitized,
	}
	if isTimeout(err) {
		resp.Kind = ErrTimeout
		resp.Error = msg.timeout
	}
	return resp
}

func (s *Service) finish(ctx context.Context, lang catalog.Language, outcome string, emergency, cached bool, start time.Time, req Request) {
	metrics.AnalyzeRequests.WithLabelValues(outcome, string(lang)).Inc()
	if s.recorder == nil {
		return
	}
	c := Consultation{
		Language:    lang,
		Outcome:     outcome,
		IsEmergency: emergency,
		Cached:      cached,
		Latency:     time.Since(start),
		InputLength: utf8.RuneCountInString(req.Symptoms),
	}
	if s.provider != nil {
		c.Provider = s.provider.Name()
		c.Model = s.provider.Model()
	}
	recCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := s.recorder.Record(recCtx, c); err != nil {
		s.log.Warn("recording consultation failed", zap.Error(err))
	}
}
