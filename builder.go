package goRisk

import (
	"context"
	"crypto/rand"
	"errors"
	"time"

	"github.com/MrEthical07/goRisk/csrf"
	"github.com/MrEthical07/goRisk/internal/ledger"
	"github.com/MrEthical07/goRisk/internal/limiters"
	"github.com/MrEthical07/goRisk/internal/rate"
	"github.com/MrEthical07/goRisk/internal/suspicion"
	"github.com/MrEthical07/goRisk/risk"
	"github.com/MrEthical07/goRisk/session"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	backendMemory = "memory"
	backendRedis  = "redis"
)

// Builder assembles an [Engine]. A builder can be used once.
type Builder struct {
	config Config
	redis  redis.UniversalClient
	store  session.Store
	logger *zap.Logger
	now    func() time.Time

	auditSink AuditSink
	secrets   SecretProvider

	similarity risk.Similarity
	signatures *risk.SignatureSet
	locator    risk.GeoLocator
	geo        risk.GeoAnomalyDetector
	rapid      risk.RapidRequestDetector
	churn      risk.AddressChurnDetector

	built bool
}

// New returns a builder holding [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis stores ledger, suspicion and session state in Redis instead of
// process memory, so several engine instances share it.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithSessionStore replaces the session store chosen from the backend.
// Ledger and suspicion state still follow WithRedis.
func (b *Builder) WithSessionStore(store session.Store) *Builder {
	b.store = store
	return b
}

func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

// WithClock replaces time.Now for every time-dependent decision.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithSecretProvider(p SecretProvider) *Builder {
	b.secrets = p
	return b
}

func (b *Builder) WithSimilarity(s risk.Similarity) *Builder {
	b.similarity = s
	return b
}

func (b *Builder) WithSignatureSet(set *risk.SignatureSet) *Builder {
	b.signatures = set
	return b
}

// WithGeoLocator enables session locations and, unless a detector is set,
// the country-change geo anomaly detector.
func (b *Builder) WithGeoLocator(l risk.GeoLocator) *Builder {
	b.locator = l
	return b
}

func (b *Builder) WithGeoAnomalyDetector(d risk.GeoAnomalyDetector) *Builder {
	b.geo = d
	return b
}

func (b *Builder) WithRapidRequestDetector(d risk.RapidRequestDetector) *Builder {
	b.rapid = d
	return b
}

func (b *Builder) WithAddressChurnDetector(d risk.AddressChurnDetector) *Builder {
	b.churn = d
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and returns a ready engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := b.now
	if now == nil {
		now = time.Now
	}
	if cfg.Risk.Location == nil {
		cfg.Risk.Location = time.Local
	}

	// -------- SIGNING SECRET --------
	secret, ephemeral, err := b.resolveSecret(cfg, logger)
	if err != nil {
		return nil, err
	}
	cfg.Security.Secret = nil

	signed, err := csrf.NewTokenService(secret, csrf.Config{
		MaxAge:    cfg.CSRF.MaxAge,
		ClockSkew: cfg.CSRF.ClockSkew,
	}, now)
	if err != nil {
		return nil, err
	}

	// -------- STORES --------
	var (
		ledgerStore    ledger.Store
		suspicionStore suspicion.Store
		sessionStore   session.Store
		backend        string
	)
	prefix := cfg.Backend.KeyPrefix
	if b.redis != nil {
		ledgerStore = ledger.NewRedisStore(b.redis, prefix)
		suspicionStore = suspicion.NewRedisStore(b.redis, prefix)
		sessionStore = session.NewRedisStore(b.redis, prefix)
		backend = backendRedis
	} else {
		ledgerStore = ledger.NewMemoryStore(cfg.Attempts.MaxIdentities, cfg.Attempts.Window)
		suspicionStore = suspicion.NewMemoryStore(cfg.Suspicion.MaxAddresses, cfg.Suspicion.TTL)
		sessionStore = session.NewMemoryStore(cfg.Session.MaxSessions, cfg.Session.MaxAge)
		backend = backendMemory
	}
	if b.store != nil {
		sessionStore = b.store
	}

	attempts := ledger.New(ledgerStore, ledger.Config{
		MaxPerIdentity: cfg.Attempts.MaxPerIdentity,
		Window:         cfg.Attempts.Window,
	}, now)

	detector := suspicion.NewDetector(suspicionStore, attempts, suspicion.Config{
		TTL:              cfg.Suspicion.TTL,
		MaxScore:         cfg.Suspicion.MaxScore,
		FailureThreshold: cfg.Suspicion.FailureThreshold,
		FailurePoints:    cfg.Suspicion.FailurePoints,
		RapidThreshold:   cfg.Suspicion.RapidThreshold,
		RapidPoints:      cfg.Suspicion.RapidPoints,
		DeviceThreshold:  cfg.Suspicion.DeviceThreshold,
		DevicePoints:     cfg.Suspicion.DevicePoints,
		HijackPoints:     cfg.Suspicion.HijackPoints,
		ConcurrentPoints: cfg.Suspicion.ConcurrentPoints,
	}, now)

	limiter := rate.New(rate.Config{
		FailureWindow:        cfg.RateLimit.FailureWindow,
		HardBlockFailures:    cfg.RateLimit.HardBlockFailures,
		HardBlockDuration:    cfg.RateLimit.HardBlockDuration,
		SoftBlockFailures:    cfg.RateLimit.SoftBlockFailures,
		SoftBlockDuration:    cfg.RateLimit.SoftBlockDuration,
		BackoffStartFailures: cfg.RateLimit.BackoffStartFailures,
		BackoffBase:          cfg.RateLimit.BackoffBase,
		BackoffCap:           cfg.RateLimit.BackoffCap,
		SuspicionBlockScore:  cfg.RateLimit.SuspicionBlockScore,
	})

	// -------- DETECTORS --------
	similarity := b.similarity
	if similarity == nil {
		similarity = risk.JaccardSimilarity{}
	}

	signatures := b.signatures
	if signatures == nil {
		signatures = risk.NewSignatureSet(cfg.Risk.AutomatedSignatures)
	}

	ctx, stop := context.WithCancel(context.Background())
	if path := cfg.Risk.SignatureListPath; path != "" {
		if cfg.Risk.WatchSignatureList {
			err = signatures.Watch(ctx, path, logger.Named("signatures"))
		} else {
			err = signatures.LoadFile(path)
		}
		if err != nil {
			stop()
			return nil, err
		}
	}

	geo := b.geo
	if geo == nil && b.locator != nil {
		geo = risk.NewCountryChangeDetector(b.locator, cfg.Session.MaxSessions, cfg.Risk.GeoMemory)
	}

	rapid := b.rapid
	if rapid == nil && cfg.Risk.RapidRequestsPerSecond > 0 {
		rapid = risk.NewRequestRateDetector(limiters.RequestRateConfig{
			PerSecond: cfg.Risk.RapidRequestsPerSecond,
			Burst:     cfg.Risk.RapidRequestBurst,
			MaxKeys:   cfg.Suspicion.MaxAddresses,
		}, now)
	}

	churn := b.churn
	if churn == nil && cfg.Hijack.ChurnEnabled {
		churn = risk.NewRecentAddressChurn(risk.ChurnConfig{
			Window:       cfg.Hijack.ChurnWindow,
			MaxAddresses: cfg.Hijack.ChurnAddresses,
			MaxSessions:  cfg.Session.MaxSessions,
		}, now)
	}

	engine := &Engine{
		config:          cfg,
		now:             now,
		logger:          logger,
		backend:         backend,
		ledger:          attempts,
		limiter:         limiter,
		detector:        detector,
		sessions:        sessionStore,
		policy:          cfg.riskPolicy(),
		hijack:          cfg.hijackPolicy(),
		similarity:      similarity,
		signatures:      signatures,
		locator:         b.locator,
		geo:             geo,
		rapid:           rapid,
		churn:           churn,
		csrfSigned:      signed,
		csrfGuard:       csrf.NewGuard(signed, cfg.CSRF.ExemptPaths),
		ephemeralSecret: ephemeral,
		stop:            stop,
	}
	engine.audit = newAuditDispatcher(cfg.Audit, b.auditSink, logger)
	engine.metrics = NewMetrics(cfg.Metrics)

	b.built = true

	logger.Info("risk engine ready",
		zap.String("backend", backend),
		zap.Bool("production", cfg.Security.ProductionMode),
		zap.String("csrf_mode", string(cfg.CSRF.Mode)),
	)

	return engine, nil
}

func (b *Builder) resolveSecret(cfg Config, logger *zap.Logger) ([]byte, bool, error) {
	secret := cloneBytes(cfg.Security.Secret)
	if b.secrets != nil {
		provided, err := b.secrets.Secret(context.Background())
		if err != nil {
			return nil, false, err
		}
		if len(provided) > 0 {
			secret = provided
		}
	}

	if len(secret) == 0 {
		if cfg.Security.ProductionMode {
			return nil, false, ErrMissingSecret
		}
		secret = make([]byte, MinSecretBytes)
		if _, err := rand.Read(secret); err != nil {
			return nil, false, err
		}
		logger.Warn("no signing secret configured; using an ephemeral secret, CSRF tokens will not survive a restart")
		return secret, true, nil
	}

	if len(secret) < MinSecretBytes {
		return nil, false, ErrSecretTooShort
	}
	return secret, false, nil
}
