package main

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	goRisk "github.com/MrEthical07/goRisk"
)

// appConfig is the daemon's process configuration. Engine tuning comes from
// the optional TOML file; deployment settings come from the environment.
type appConfig struct {
	HTTPAddr       string
	RedisAddr      string
	RedisPass      string
	ConfigPath     string
	GeoIPPath      string
	SecretEnv      string
	TrustForwarded bool
	Dev            bool
	Engine         goRisk.Config
}

// fileConfig mirrors the TOML layout. Zero values keep the engine default.
type fileConfig struct {
	Production bool `toml:"production"`

	Session struct {
		MaxAge          duration `toml:"max_age"`
		IdleTimeout     duration `toml:"idle_timeout"`
		RenewThreshold  duration `toml:"renew_threshold"`
		MaxConcurrent   int      `toml:"max_concurrent"`
		ReauthRiskScore int      `toml:"reauth_risk_score"`
	} `toml:"session"`

	RateLimit struct {
		SoftBlockFailures   int      `toml:"soft_block_failures"`
		HardBlockFailures   int      `toml:"hard_block_failures"`
		SuspicionBlockScore int      `toml:"suspicion_block_score"`
		HardBlockDuration   duration `toml:"hard_block_duration"`
	} `toml:"rate_limit"`

	Hijack struct {
		ChurnEnabled   bool     `toml:"churn_enabled"`
		ChurnWindow    duration `toml:"churn_window"`
		ChurnAddresses int      `toml:"churn_addresses"`
	} `toml:"hijack"`

	Risk struct {
		Timezone           string   `toml:"timezone"`
		SignatureList      string   `toml:"signature_list"`
		WatchSignatureList bool     `toml:"watch_signature_list"`
		AutomatedMarkers   []string `toml:"automated_markers"`
	} `toml:"risk"`

	CSRF struct {
		Mode        string   `toml:"mode"`
		MaxAge      duration `toml:"max_age"`
		ExemptPaths []string `toml:"exempt_paths"`
		Insecure    bool     `toml:"insecure_cookie"`
	} `toml:"csrf"`

	Audit struct {
		Enabled    bool `toml:"enabled"`
		BufferSize int  `toml:"buffer_size"`
	} `toml:"audit"`

	Metrics struct {
		Enabled   bool `toml:"enabled"`
		Latencies bool `toml:"latencies"`
	} `toml:"metrics"`
}

// duration decodes TOML strings such as "15m".
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func loadConfig(configPath string, dev bool) (appConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("riskd: no .env file found, relying on system env vars")
	}

	cfg := appConfig{
		HTTPAddr:       getEnv("RISKD_ADDR", ":8085"),
		RedisAddr:      getEnv("REDIS_ADDR", ""),
		RedisPass:      getEnv("REDIS_PASS", ""),
		ConfigPath:     getEnv("RISKD_CONFIG", configPath),
		GeoIPPath:      getEnv("GEOIP_DB", ""),
		SecretEnv:      "RISKD_SECRET",
		TrustForwarded: getEnvBool("RISKD_TRUST_FORWARDED", false),
		Dev:            dev || getEnvBool("RISKD_DEV", false),
		Engine:         goRisk.DefaultConfig(),
	}
	cfg.Engine.Audit.Enabled = true
	cfg.Engine.Metrics.Enabled = true

	if cfg.ConfigPath != "" {
		var fc fileConfig
		if _, err := toml.DecodeFile(cfg.ConfigPath, &fc); err != nil {
			return appConfig{}, err
		}
		if err := fc.apply(&cfg.Engine); err != nil {
			return appConfig{}, err
		}
	}
	if cfg.Dev {
		cfg.Engine.CSRF.SecureCookie = false
	}

	return cfg, cfg.Engine.Validate()
}

func (fc fileConfig) apply(c *goRisk.Config) error {
	c.Security.ProductionMode = fc.Production

	setDuration(&c.Session.MaxAge, fc.Session.MaxAge)
	setDuration(&c.Session.IdleTimeout, fc.Session.IdleTimeout)
	setDuration(&c.Session.RenewThreshold, fc.Session.RenewThreshold)
	setInt(&c.Session.MaxConcurrent, fc.Session.MaxConcurrent)
	setInt(&c.Session.ReauthRiskScore, fc.Session.ReauthRiskScore)

	setInt(&c.RateLimit.SoftBlockFailures, fc.RateLimit.SoftBlockFailures)
	setInt(&c.RateLimit.HardBlockFailures, fc.RateLimit.HardBlockFailures)
	setInt(&c.RateLimit.SuspicionBlockScore, fc.RateLimit.SuspicionBlockScore)
	setDuration(&c.RateLimit.HardBlockDuration, fc.RateLimit.HardBlockDuration)

	c.Hijack.ChurnEnabled = c.Hijack.ChurnEnabled || fc.Hijack.ChurnEnabled
	setDuration(&c.Hijack.ChurnWindow, fc.Hijack.ChurnWindow)
	setInt(&c.Hijack.ChurnAddresses, fc.Hijack.ChurnAddresses)

	if fc.Risk.Timezone != "" {
		loc, err := time.LoadLocation(fc.Risk.Timezone)
		if err != nil {
			return err
		}
		c.Risk.Location = loc
	}
	c.Risk.SignatureListPath = fc.Risk.SignatureList
	c.Risk.WatchSignatureList = fc.Risk.WatchSignatureList
	if len(fc.Risk.AutomatedMarkers) > 0 {
		c.Risk.AutomatedSignatures = fc.Risk.AutomatedMarkers
	}

	if fc.CSRF.Mode != "" {
		c.CSRF.Mode = goRisk.CSRFMode(fc.CSRF.Mode)
	}
	setDuration(&c.CSRF.MaxAge, fc.CSRF.MaxAge)
	c.CSRF.ExemptPaths = fc.CSRF.ExemptPaths
	c.CSRF.SecureCookie = !fc.CSRF.Insecure

	c.Audit.Enabled = fc.Audit.Enabled
	setInt(&c.Audit.BufferSize, fc.Audit.BufferSize)
	c.Metrics.Enabled = fc.Metrics.Enabled
	c.Metrics.EnableLatencyHistograms = fc.Metrics.Latencies
	return nil
}

func setDuration(dst *time.Duration, v duration) {
	if v.Duration > 0 {
		*dst = v.Duration
	}
}

func setInt(dst *int, v int) {
	if v > 0 {
		*dst = v
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}
