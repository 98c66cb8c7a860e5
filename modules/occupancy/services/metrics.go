package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Bernardo-Fellini-Oliveira/Trabalho-de-Engenharia-de-Software-UFRGS-2025-02/modules/occupancy/domain/occupancy"
)

var (
	occupancyAdmissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "occupancy",
		Subsystem: "admission",
		Name:      "total",
		Help:      "Total number of occupancy admissions broken down by outcome.",
	}, []string{"outcome"})

	occupancyRuleViolations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "occupancy",
		Subsystem: "admission",
		Name:      "rule_violations_total",
		Help:      "Total number of admission rule violations broken down by rule.",
	}, []string{"rule"})

	occupancyPendingApprovals = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "occupancy",
		Subsystem: "approval",
		Name:      "events_total",
		Help:      "Total number of pending approval events broken down by event.",
	}, []string{"event"})

	occupancySuccessions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "occupancy",
		Subsystem: "finalize",
		Name:      "total",
		Help:      "Total number of finalized occupancies broken down by mode.",
	}, []string{"mode"})

	occupancyWriteConflicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "occupancy",
		Subsystem: "write",
		Name:      "conflicts_total",
		Help:      "Total number of store write conflicts broken down by kind.",
	}, []string{"kind"})
)

func recordAdmission(outcome string) {
	occupancyAdmissions.WithLabelValues(outcome).Inc()
}

func recordRuleViolation(rule occupancy.Rule) {
	occupancyRuleViolations.WithLabelValues(rule.String()).Inc()
}

func recordApprovalEvent(event string) {
	occupancyPendingApprovals.WithLabelValues(event).Inc()
}

func recordFinalize(definitive bool) {
	mode := "succession"
	if definitive {
		mode = "terminal"
	}
	occupancySuccessions.WithLabelValues(mode).Inc()
}

func recordWriteConflict(kind string) {
	if kind == "" {
		kind = "other"
	}
	occupancyWriteConflicts.WithLabelValues(kind).Inc()
}
