// Package metrics defines the custom Prometheus metrics of the accounts API.
// It is the single source of truth for metric names, labels and help
// strings. Metrics register with the default registry on package init.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "accounts"

// ── Session metrics ───────────────────────────────────────────────────────────

// LoginsTotal counts login attempts.
// Label:
//   - result: "success", "invalid_credentials" or "error"
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Total number of login attempts, by result.",
	},
	[]string{"result"},
)

// LogoutsTotal counts logout attempts.
// Label:
//   - result: "success" or "error"
var LogoutsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logouts_total",
		Help:      "Total number of logout attempts, by result.",
	},
	[]string{"result"},
)

// AuthenticationFailuresTotal counts requests rejected by the authentication gate.
// Label:
//   - reason: "no_token", "expired", "malformed", "missing_jti", "revoked", "inactive"
var AuthenticationFailuresTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "authentication_failures_total",
		Help:      "Total number of requests rejected by the authentication gate.",
	},
	[]string{"reason"},
)

// SessionsRevokedTotal counts bulk and single revocations.
// Label:
//   - reason: "logout", "deactivation", "admin", "password_reset"
var SessionsRevokedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sessions_revoked_total",
		Help:      "Total number of revocation operations, by reason.",
	},
	[]string{"reason"},
)

// ── Avatar metrics ────────────────────────────────────────────────────────────

// AvatarVariantsTotal counts variant jobs.
// Label:
//   - result: "success" or "error"
var AvatarVariantsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "avatar_variants_total",
		Help:      "Total number of avatar variant jobs processed, by result.",
	},
	[]string{"result"},
)

// AvatarVariantDuration measures how long a variant job takes end-to-end.
var AvatarVariantDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "avatar_variant_duration_seconds",
		Help:      "Duration of avatar variant generation from dequeue to persistence.",
		Buckets:   prometheus.DefBuckets,
	},
)

// AvatarQueueDepth tracks jobs waiting in each variant worker channel.
// Label:
//   - worker_id: numeric worker index
var AvatarQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "avatar_queue_depth",
		Help:      "Current number of variant jobs pending in each worker channel.",
	},
	[]string{"worker_id"},
)
