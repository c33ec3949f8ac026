// Package monitoring raises webhook alerts when a finished run looks
// unhealthy.
package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/earnings-cli/internal/config"
	"github.com/sells-group/earnings-cli/internal/model"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertFailureRate AlertType = "run_failure_rate"
	AlertNoFacts     AlertType = "run_no_facts"
)

// minRowsForRate keeps tiny runs from tripping the rate alert.
const minRowsForRate = 5

// Alert represents a single alert to be sent.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Alerter evaluates a run's final counters against configured thresholds
// and sends alerts via webhook when thresholds are breached.
type Alerter struct {
	cfg    config.MonitoringConfig
	client *http.Client
}

// NewAlerter creates a new Alerter with the given monitoring config.
func NewAlerter(cfg config.MonitoringConfig) *Alerter {
	return &Alerter{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Evaluate checks a finished run's counters and returns any alerts.
func (a *Alerter) Evaluate(stats model.PipelineStats) []Alert {
	var alerts []Alert
	now := time.Now().UTC()

	// Check extraction failure rate.
	if stats.TotalCompanies >= minRowsForRate && a.cfg.FailureRateThreshold > 0 {
		rate := float64(stats.FailedExtractions) / float64(stats.TotalCompanies)
		if rate > a.cfg.FailureRateThreshold {
			alerts = append(alerts, Alert{
				Type:     AlertFailureRate,
				Severity: "high",
				Message: fmt.Sprintf(
					"Extraction failure rate %.1f%% exceeds threshold %.1f%% (%d failed / %d companies)",
					rate*100, a.cfg.FailureRateThreshold*100,
					stats.FailedExtractions, stats.TotalCompanies,
				),
				Details: map[string]any{
					"failure_rate": rate,
					"threshold":    a.cfg.FailureRateThreshold,
					"failed":       stats.FailedExtractions,
					"companies":    stats.TotalCompanies,
				},
				Timestamp: now,
			})
		}
	}

	// Check for a run where pages came back fine but nothing matched.
	// Successful extractions imply facts, so zero facts with at least one
	// non-failed row means every fetched page parsed to no_data.
	if stats.TotalCompanies > 0 &&
		stats.TotalFactsExtracted == 0 &&
		stats.FailedExtractions < stats.TotalCompanies {
		alerts = append(alerts, Alert{
			Type:     AlertNoFacts,
			Severity: "medium",
			Message: fmt.Sprintf(
				"No facts extracted from any of %d companies (%d fetch failures); patterns may no longer match the source format",
				stats.TotalCompanies, stats.FailedExtractions,
			),
			Details: map[string]any{
				"companies": stats.TotalCompanies,
				"failed":    stats.FailedExtractions,
			},
			Timestamp: now,
		})
	}

	return alerts
}

// SendAlerts delivers alerts to the configured webhook URL.
// Returns the number of alerts successfully sent.
func (a *Alerter) SendAlerts(ctx context.Context, alerts []Alert) int {
	if a.cfg.WebhookURL == "" || len(alerts) == 0 {
		return 0
	}

	sent := 0
	for _, alert := range alerts {
		if err := a.sendWebhook(ctx, alert); err != nil {
			zap.L().Error("monitoring: failed to send alert",
				zap.String("type", string(alert.Type)),
				zap.Error(err),
			)
			continue
		}
		zap.L().Info("monitoring: alert sent",
			zap.String("type", string(alert.Type)),
			zap.String("severity", alert.Severity),
		)
		sent++
	}
	return sent
}

// sendWebhook posts a single alert to the webhook URL.
func (a *Alerter) sendWebhook(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return eris.Wrap(err, "monitoring: marshal alert")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "monitoring: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "monitoring: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return eris.Errorf("monitoring: webhook returned status %d", resp.StatusCode)
	}
	return nil
}
