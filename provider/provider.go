package provider

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"airdemand/config"
	"airdemand/internal/metrics"
	"airdemand/logger"
	"airdemand/models"
)

// Config is the explicit provider configuration. Nothing in this package
// reads the process environment.
type Config struct {
	APIKey            string
	Model             string
	Timeout           time.Duration
	RequestsPerMinute int
	BurstSize         int
	Validation        ValidationOptions
	DeriveMockKPIs    bool
}

// ConfigFrom extracts the provider settings from the application config.
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		APIKey:            cfg.Provider.APIKey,
		Model:             cfg.Provider.Model,
		Timeout:           cfg.Provider.Timeout,
		RequestsPerMinute: cfg.Provider.RateLimit.RequestsPerMinute,
		BurstSize:         cfg.Provider.RateLimit.BurstSize,
		Validation: ValidationOptions{
			AllowIrregularTrend: cfg.Validation.AllowIrregularTrend,
			VerifyKPIs:          cfg.Validation.VerifyKPIs,
		},
		DeriveMockKPIs: cfg.Mock.DeriveKPIs,
	}
}

// UsesMock reports whether the configuration selects the mock data path.
func (c Config) UsesMock() bool {
	return !(config.ProviderConfig{APIKey: c.APIKey}).HasCredential()
}

// Recorder receives one observation per Fetch.
type Recorder interface {
	ObserveGeneration(source, outcome string, d time.Duration)
}

// Option customises a Provider.
type Option func(*Provider)

// WithGenerator replaces the Gemini client, typically with a fake in tests.
func WithGenerator(g Generator) Option {
	return func(p *Provider) { p.generator = g }
}

// WithClock sets the source of "today" for prompts and mock trends.
func WithClock(now func() time.Time) Option {
	return func(p *Provider) { p.now = now }
}

// WithRand sets the random source used by the mock generator.
func WithRand(rng *rand.Rand) Option {
	return func(p *Provider) { p.rng = rng }
}

func WithRecorder(r Recorder) Option {
	return func(p *Provider) { p.recorder = r }
}

func WithLogger(log *logger.Log) Option {
	return func(p *Provider) { p.log = log }
}

// Provider produces MarketData either from the model or from the mock roster.
type Provider struct {
	cfg       Config
	generator Generator
	limiter   *rate.Limiter
	now       func() time.Time
	recorder  Recorder
	log       *logger.Log

	mu  sync.Mutex
	rng *rand.Rand
}

// New builds a Provider. When a credential is configured and no generator
// option is given, a Gemini client is created.
func New(ctx context.Context, cfg Config, opts ...Option) (*Provider, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	p := &Provider{
		cfg: cfg,
		now: time.Now,
		log: logger.GetLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.rng == nil {
		p.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	limit := rate.Inf
	if cfg.RequestsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(cfg.RequestsPerMinute))
	}
	burst := cfg.BurstSize
	if burst <= 0 {
		burst = 1
	}
	p.limiter = rate.NewLimiter(limit, burst)

	if !cfg.UsesMock() && p.generator == nil {
		gen, err := NewGeminiGenerator(ctx, cfg.APIKey, cfg.Model)
		if err != nil {
			return nil, err
		}
		p.generator = gen
	}
	return p, nil
}

// Source names the data source this provider uses.
func (p *Provider) Source() string {
	if p.cfg.UsesMock() {
		return metrics.SourceMock
	}
	return metrics.SourceModel
}

// Fetch returns a fresh MarketData for the pair. Without a credential the
// mock dataset is returned and Fetch never fails. Otherwise every failure is
// a *GenerationError and no partial data is returned.
func (p *Provider) Fetch(ctx context.Context, origin, destination string) (*models.MarketData, error) {
	q := models.Query{
		Origin:      models.NormalizeAirportCode(origin, false),
		Destination: models.NormalizeAirportCode(destination, false),
	}
	start := time.Now()
	log := p.log.WithComponent("provider").WithFields(logger.Fields{
		"origin":      q.Origin,
		"destination": q.Destination,
		"source":      p.Source(),
	})

	if p.cfg.UsesMock() {
		log.Info("using mock data generation")
		p.mu.Lock()
		data := GenerateMock(p.now(), p.rng, p.cfg.DeriveMockKPIs)
		p.mu.Unlock()
		p.observe(metrics.OutcomeSuccess, time.Since(start))
		return &data, nil
	}

	data, err := p.generate(ctx, q)
	elapsed := time.Since(start)
	if err != nil {
		var genErr *GenerationError
		if errors.As(err, &genErr) {
			log = log.WithField("reason", genErr.Reason)
			switch genErr.Reason {
			case ReasonCanceled:
				log.Info("market data request canceled")
				p.observe(metrics.OutcomeCanceled, elapsed)
				return nil, err
			case ReasonRateLimited:
				metrics.ReportRateLimited(p.log, p.Source(), q.String())
			}
		}
		log.WithError(errors.Unwrap(err)).Error("error fetching or parsing market data from model")
		p.observe(metrics.OutcomeError, elapsed)
		return nil, err
	}

	logger.LogPerformanceEntry(log, "provider", "generate", elapsed, logger.Fields{"routes": len(data.Routes)})
	p.observe(metrics.OutcomeSuccess, elapsed)
	return data, nil
}

func (p *Provider) generate(ctx context.Context, q models.Query) (*models.MarketData, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	if err := p.limiter.Wait(ctx); err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil, newCanceledError(err)
		}
		return nil, newGenerationError(ReasonTimeout, fmt.Errorf("waiting for request slot: %w", err))
	}

	prompt := BuildPrompt(q, p.now().UTC().Format(models.DateLayout))
	text, err := p.generator.Generate(ctx, prompt, ResponseSchema())
	if err != nil {
		return nil, classifyTransport(ctx, err)
	}
	return DecodeMarketData(text, p.cfg.Validation)
}

func classifyTransport(ctx context.Context, err error) *GenerationError {
	if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
		return newCanceledError(err)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return newGenerationError(ReasonTimeout, err)
	}
	if metrics.DetectRateLimit(err.Error()) {
		return newGenerationError(ReasonRateLimited, err)
	}
	return newGenerationError(ReasonTransport, err)
}

func (p *Provider) observe(outcome string, d time.Duration) {
	if p.recorder != nil {
		p.recorder.ObserveGeneration(p.Source(), outcome, d)
	}
}
