// Package metrics defines and registers all custom Prometheus metrics for the
// CRM access core. It is the single source of truth for metric names, labels,
// and help strings.
//
// Metrics are registered with the default Prometheus registry at package
// initialisation via promauto.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "crm"
	subsystem = "auth"
)

// Result label values shared by the counters below.
const (
	ResultSuccess  = "success"
	ResultFailure  = "failure"
	ResultAllowed  = "allowed"
	ResultDenied   = "denied"
	ResultThrottle = "throttled"
)

// ── Login metrics ─────────────────────────────────────────────────────────────

// LoginsTotal counts login attempts.
// Label:
//   - result: "success", "failure" or "throttled"
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "logins_total",
		Help:      "Total number of login attempts, by result.",
	},
	[]string{"result"},
)

// ── Gate metrics ──────────────────────────────────────────────────────────────

// TokenVerificationsTotal counts bearer token checks made by the access gate.
// Label:
//   - result: "success" or the auth error kind (e.g. "token_expired")
var TokenVerificationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "token_verifications_total",
		Help:      "Total number of bearer token verifications, by result.",
	},
	[]string{"result"},
)

// AccessDecisionsTotal counts permission checks on protected routes.
// Labels:
//   - section: the protected section (e.g. "deals")
//   - action: view, create, edit or delete
//   - result: "allowed" or "denied"
var AccessDecisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "access_decisions_total",
		Help:      "Total number of permission decisions, by section, action and result.",
	},
	[]string{"section", "action", "result"},
)

// ── Audit metrics ─────────────────────────────────────────────────────────────

// AuditDroppedTotal counts auth events discarded because the audit queue was full.
var AuditDroppedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "audit_dropped_total",
		Help:      "Total number of auth audit events dropped before being written.",
	},
)
