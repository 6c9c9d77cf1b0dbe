package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/afci/trajet/pkg/jwtx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels shared by the counters below.
const (
	OutcomeSuccess            = "success"
	OutcomeUnknownIdentity    = "unknown_identity"
	OutcomeInvalidCredentials = "invalid_credentials"
	OutcomeLocked             = "locked"
	OutcomeDisabled           = "disabled"
	OutcomeInvalid            = "invalid"
	OutcomeMalformed          = "malformed"
	OutcomeBadSignature       = "bad_signature"
	OutcomeExpired            = "expired"
	OutcomeError              = "error"
)

// Metrics holds the Prometheus collectors of the auth service. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	LoginAttemptsTotal   *prometheus.CounterVec
	TokenVerifyTotal     *prometheus.CounterVec
	RefreshRotationTotal *prometheus.CounterVec
	RefreshTokensPurged  prometheus.Counter
}

// New creates the collectors and registers them with registry. A nil
// registry gets a fresh one.
func New(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	m := &Metrics{
		registry: registry,
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trajet_auth_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "trajet_auth_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		LoginAttemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trajet_auth_login_attempts_total",
				Help: "Login attempts by outcome",
			},
			[]string{"outcome"},
		),
		TokenVerifyTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trajet_auth_token_verifications_total",
				Help: "Access token verifications by outcome",
			},
			[]string{"outcome"},
		),
		RefreshRotationTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trajet_auth_refresh_rotations_total",
				Help: "Refresh token rotations by outcome",
			},
			[]string{"outcome"},
		),
		RefreshTokensPurged: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "trajet_auth_refresh_tokens_purged_total",
				Help: "Expired refresh tokens deleted by housekeeping",
			},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.LoginAttemptsTotal,
		m.TokenVerifyTotal,
		m.RefreshRotationTotal,
		m.RefreshTokensPurged,
	)

	return m
}

// Registry returns the registry the collectors live in.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) LoginAttempt(outcome string) {
	if m == nil {
		return
	}
	m.LoginAttemptsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RefreshRotation(outcome string) {
	if m == nil {
		return
	}
	m.RefreshRotationTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RefreshPurged(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.RefreshTokensPurged.Add(float64(n))
}

// InstrumentVerifier counts verification outcomes of v.
func (m *Metrics) InstrumentVerifier(v jwtx.Verifier) jwtx.Verifier {
	if m == nil {
		return v
	}
	return jwtx.VerifierFunc(func(token string) (jwtx.Principal, error) {
		p, err := v.Verify(token)
		m.TokenVerifyTotal.WithLabelValues(verifyOutcome(err)).Inc()
		return p, err
	})
}

func verifyOutcome(err error) string {
	switch jwtx.Classify(err) {
	case nil:
		return OutcomeSuccess
	case jwtx.ErrExpired:
		return OutcomeExpired
	case jwtx.ErrInvalidSig:
		return OutcomeBadSignature
	default:
		return OutcomeMalformed
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// InstrumentHandler records request count and latency under route, which
// should be the registered pattern rather than the raw path.
func (m *Metrics) InstrumentHandler(route string, next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rw, r)

		m.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rw.status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
