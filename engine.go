package goRisk

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/MrEthical07/goRisk/csrf"
	"github.com/MrEthical07/goRisk/internal"
	"github.com/MrEthical07/goRisk/internal/ledger"
	"github.com/MrEthical07/goRisk/internal/rate"
	"github.com/MrEthical07/goRisk/internal/suspicion"
	"github.com/MrEthical07/goRisk/risk"
	"github.com/MrEthical07/goRisk/session"
	"go.uber.org/zap"
)

const userLockStripes = 64

// Engine tracks authentication attempts, scores risk, manages sessions and
// checks CSRF tokens. Build one with [Builder]; all methods are safe for
// concurrent use.
type Engine struct {
	config  Config
	now     func() time.Time
	logger  *zap.Logger
	backend string

	ledger   *ledger.Ledger
	limiter  *rate.Limiter
	detector *suspicion.Detector
	sessions session.Store

	policy     risk.Policy
	hijack     risk.HijackPolicy
	similarity risk.Similarity
	signatures *risk.SignatureSet
	locator    risk.GeoLocator
	geo        risk.GeoAnomalyDetector
	rapid      risk.RapidRequestDetector
	churn      risk.AddressChurnDetector

	csrfSigned *csrf.TokenService
	csrfDouble csrf.DoubleSubmit
	csrfGuard  *csrf.Guard

	ephemeralSecret bool

	// userLocks serialise per-user session writes: eviction in CreateSession,
	// TerminateAllSessions and the read-update of ValidateSession and MarkMFAVerified.
	userLocks [userLockStripes]sync.Mutex

	audit   *auditDispatcher
	metrics *Metrics
	stop    context.CancelFunc
}

// Close stops background work and flushes pending audit events.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.stop != nil {
		e.stop()
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped returns the number of audit events dropped on a full buffer.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a copy of the engine metrics.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() Config {
	if e == nil {
		return Config{}
	}
	return cloneConfig(e.config)
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) observeLatency(id MetricID, start time.Time) {
	if e == nil || !e.metrics.LatencyEnabled() {
		return
	}
	e.metrics.Observe(id, time.Since(start))
}

func (e *Engine) identityKey(id Identity) string {
	return internal.IdentityKey(id.NetworkAddress, id.DeviceSignature, e.config.Attempts.SignaturePrefixLen)
}

func (e *Engine) lockUser(userID string) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	mu := &e.userLocks[h.Sum32()%userLockStripes]
	mu.Lock()
	return mu.Unlock
}

// backendErr tags err as a backend failure and counts it.
func (e *Engine) backendErr(op string, err error) error {
	e.metricInc(MetricBackendError)
	e.logger.Error("backend operation failed", zap.String("op", op), zap.Error(err))
	return fmt.Errorf("%w: %s: %v", ErrBackendUnavailable, op, err)
}
