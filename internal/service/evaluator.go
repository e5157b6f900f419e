package service

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"fleet-console/internal/config"
	"fleet-console/internal/model"
	"fleet-console/internal/search"
)

// Threshold alerts land in fixed buckets so the severity filter can hide them.
const (
	thresholdWarningSeverity  = model.Severity3
	thresholdCriticalSeverity = model.Severity5
)

// thresholdRule binds a percentage column to its threshold pair.
type thresholdRule struct {
	column      string
	displayName string
	pair        func(*config.ThresholdsConfig) *config.ThresholdPair
}

var thresholdRules = []thresholdRule{
	{
		column:      search.ColumnCPUUsage,
		displayName: "CPU usage",
		pair:        func(t *config.ThresholdsConfig) *config.ThresholdPair { return &t.CPUUsage },
	},
	{
		column:      search.ColumnMemoryPercent,
		displayName: "Memory usage",
		pair:        func(t *config.ThresholdsConfig) *config.ThresholdPair { return &t.MemoryUsage },
	},
}

// EvaluationResult contains every alert raised in one pass.
type EvaluationResult struct {
	Alerts  []*model.Alert      `json:"alerts"`
	Summary *model.AlertSummary `json:"summary"`
}

// Evaluator turns derived properties and server messages into alerts.
type Evaluator struct {
	thresholds *config.ThresholdsConfig
	logger     zerolog.Logger
}

// NewEvaluator creates a new Evaluator with the given threshold configuration.
func NewEvaluator(thresholds *config.ThresholdsConfig, logger zerolog.Logger) *Evaluator {
	return &Evaluator{
		thresholds: thresholds,
		logger:     logger.With().Str("component", "evaluator").Logger(),
	}
}

// EvaluateAll evaluates every row and message. lookup resolves a message's
// object UUID to its row so the alert can carry the entity name.
func (e *Evaluator) EvaluateAll(
	rows []*model.EntityRow,
	messages []*model.Message,
	lookup func(uuid string) *model.EntityRow,
	at time.Time,
) *EvaluationResult {
	result := &EvaluationResult{Alerts: make([]*model.Alert, 0)}

	for _, row := range rows {
		result.Alerts = append(result.Alerts, e.EvaluateRow(row, at)...)
	}
	for _, msg := range messages {
		if alert := e.EvaluateMessage(msg, lookup); alert != nil {
			result.Alerts = append(result.Alerts, alert)
		}
	}

	result.Summary = model.NewAlertSummary(result.Alerts)

	e.logger.Info().
		Int("rows", len(rows)).
		Int("messages", len(messages)).
		Int("total_alerts", result.Summary.TotalAlerts).
		Int("warning_count", result.Summary.WarningCount).
		Int("critical_count", result.Summary.CriticalCount).
		Msg("evaluation completed")

	return result
}

// EvaluateRow checks the row's percentage properties against their thresholds.
// Properties without a raw value (no data) never alert.
func (e *Evaluator) EvaluateRow(row *model.EntityRow, at time.Time) []*model.Alert {
	if row == nil || e.thresholds == nil {
		return nil
	}

	var alerts []*model.Alert
	for _, rule := range thresholdRules {
		p, ok := row.Property(rule.column)
		if !ok || !p.HasRaw {
			continue
		}

		threshold := rule.pair(e.thresholds)
		sev, ok := evaluateThreshold(p.Raw, threshold)
		if !ok {
			continue
		}

		alert := model.NewAlert(row.Kind, row.UUID, row.Name, model.AlertSourceThreshold, sev)
		alert.Name = rule.column
		alert.CurrentValue = p.Raw
		alert.FormattedValue = p.Display
		alert.WarningThreshold = threshold.Warning
		alert.CriticalThreshold = threshold.Critical
		alert.Message = buildThresholdMessage(rule.displayName, p.Raw, sev, threshold)
		alert.RaisedAt = at
		alerts = append(alerts, alert)
	}

	if len(alerts) > 0 {
		e.logger.Debug().
			Str("entity", row.UUID).
			Str("kind", string(row.Kind)).
			Int("alerts", len(alerts)).
			Msg("thresholds exceeded")
	}

	return alerts
}

// EvaluateMessage converts a server message into an alert bucketed by its priority.
func (e *Evaluator) EvaluateMessage(msg *model.Message, lookup func(uuid string) *model.EntityRow) *model.Alert {
	if msg == nil {
		return nil
	}

	name := msg.ObjUUID
	if lookup != nil {
		if row := lookup(msg.ObjUUID); row != nil {
			name = row.Name
		}
	}

	sev := model.SeverityFromPriority(msg.Priority)
	if sev == model.SeverityUnknown && msg.Priority != 0 {
		e.logger.Debug().
			Str("message", msg.Name).
			Int64("priority", msg.Priority).
			Msg("message priority out of range, bucketed as unknown")
	}

	alert := model.NewAlert(msg.Class, msg.ObjUUID, name, model.AlertSourceMessage, sev)
	alert.Name = msg.Name
	alert.Message = msg.Body
	if alert.Message == "" {
		alert.Message = msg.Name
	}
	alert.RaisedAt = msg.Timestamp
	return alert
}

// evaluateThreshold returns the bucket for value, and false when it is below warning.
func evaluateThreshold(value float64, threshold *config.ThresholdPair) (model.Severity, bool) {
	if value >= threshold.Critical {
		return thresholdCriticalSeverity, true
	}
	if value >= threshold.Warning {
		return thresholdWarningSeverity, true
	}
	return model.SeverityUnknown, false
}

// buildThresholdMessage creates a human-readable alert message.
func buildThresholdMessage(displayName string, value float64, sev model.Severity, threshold *config.ThresholdPair) string {
	level := "warning"
	limit := threshold.Warning
	if sev == thresholdCriticalSeverity {
		level = "critical"
		limit = threshold.Critical
	}
	return fmt.Sprintf("%s %s: %.1f%% (threshold: %.1f%%)", displayName, level, value, limit)
}
