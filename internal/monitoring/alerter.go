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

	"github.com/sells-group/content-fixer/internal/config"
	"github.com/sells-group/content-fixer/internal/resilience"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertFailureRate  AlertType = "correction_failure_rate"
	AlertBacklog      AlertType = "pending_backlog"
	AlertStuck        AlertType = "processing_stuck"
	AlertLimiterStall AlertType = "limiter_stall"
)

const limiterStallSeconds = 300

// minFinished is how many finished corrections the failure rate needs
// before it is trusted.
const minFinished = 5

// Alert is the webhook payload for one breached threshold.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Source    string         `json:"source"`
	Timestamp time.Time      `json:"timestamp"`
}

// rule fires at most one alert for a snapshot. It returns false when the
// threshold holds or the check is disabled.
type rule func(cfg config.MonitoringConfig, snap *MetricsSnapshot) (Alert, bool)

var rules = []rule{
	failureRateRule,
	backlogRule,
	stuckRule,
	limiterStallRule,
}

func failureRateRule(cfg config.MonitoringConfig, snap *MetricsSnapshot) (Alert, bool) {
	finished := snap.Completed + snap.Failed
	if cfg.FailureRateThreshold <= 0 || finished < minFinished || snap.FailureRate <= cfg.FailureRateThreshold {
		return Alert{}, false
	}
	return Alert{
		Type:     AlertFailureRate,
		Severity: "high",
		Message: fmt.Sprintf("Correction failure rate %.1f%% exceeds threshold %.1f%% (%d failed / %d finished)",
			snap.FailureRate*100, cfg.FailureRateThreshold*100, snap.Failed, finished),
		Details: map[string]any{
			"failure_rate": snap.FailureRate,
			"threshold":    cfg.FailureRateThreshold,
			"failed":       snap.Failed,
			"finished":     finished,
		},
	}, true
}

func backlogRule(cfg config.MonitoringConfig, snap *MetricsSnapshot) (Alert, bool) {
	if cfg.MaxPending <= 0 || snap.Pending <= cfg.MaxPending {
		return Alert{}, false
	}
	return Alert{
		Type:     AlertBacklog,
		Severity: "medium",
		Message:  fmt.Sprintf("%d corrections pending, above the limit of %d", snap.Pending, cfg.MaxPending),
		Details:  map[string]any{"pending": snap.Pending, "limit": cfg.MaxPending},
	}, true
}

func stuckRule(cfg config.MonitoringConfig, snap *MetricsSnapshot) (Alert, bool) {
	if cfg.MaxProcessing <= 0 || snap.Processing <= cfg.MaxProcessing {
		return Alert{}, false
	}
	return Alert{
		Type:     AlertStuck,
		Severity: "high",
		Message: fmt.Sprintf("%d corrections in processing, above the limit of %d; run maintain to recover stuck work",
			snap.Processing, cfg.MaxProcessing),
		Details: map[string]any{"processing": snap.Processing, "limit": cfg.MaxProcessing},
	}, true
}

// The limiter never needs more than one interval; a longer wait means its
// clock or state is broken.
func limiterStallRule(_ config.MonitoringConfig, snap *MetricsSnapshot) (Alert, bool) {
	if snap.SecondsUntilNextRequest <= limiterStallSeconds {
		return Alert{}, false
	}
	return Alert{
		Type:     AlertLimiterStall,
		Severity: "medium",
		Message:  fmt.Sprintf("enrichment limiter blocks for %.0fs", snap.SecondsUntilNextRequest),
		Details:  map[string]any{"seconds_until_next_request": snap.SecondsUntilNextRequest},
	}, true
}

// Alerter evaluates snapshots against the configured thresholds and posts
// alerts to a webhook.
type Alerter struct {
	cfg    config.MonitoringConfig
	client *http.Client
	retry  resilience.RetryConfig
	now    func() time.Time
}

// NewAlerter creates an Alerter. Webhook deliveries that fail with a
// transient status are retried.
func NewAlerter(cfg config.MonitoringConfig) *Alerter {
	return &Alerter{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
		retry: resilience.RetryConfig{
			MaxAttempts:    3,
			InitialBackoff: 200 * time.Millisecond,
			MaxBackoff:     2 * time.Second,
			JitterFraction: 0.25,
			OnRetry:        resilience.RetryLogger("monitoring: webhook"),
		},
		now: time.Now,
	}
}

// Evaluate returns the alerts the snapshot breaches. Zero thresholds disable
// their check.
func (a *Alerter) Evaluate(snap *MetricsSnapshot) []Alert {
	var alerts []Alert
	now := a.now().UTC()
	for _, r := range rules {
		if alert, ok := r(a.cfg, snap); ok {
			alert.Source = "content-fixer"
			alert.Timestamp = now
			alerts = append(alerts, alert)
		}
	}
	return alerts
}

// SendAlerts posts each alert to the webhook and returns how many were
// delivered.
func (a *Alerter) SendAlerts(ctx context.Context, alerts []Alert) int {
	if a.cfg.WebhookURL == "" || len(alerts) == 0 {
		return 0
	}

	sent := 0
	for _, alert := range alerts {
		err := resilience.Do(ctx, a.retry, func(ctx context.Context) error {
			return a.post(ctx, alert)
		})
		if err != nil {
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

func (a *Alerter) post(ctx context.Context, alert Alert) error {
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
		err := eris.Errorf("monitoring: webhook returned status %d", resp.StatusCode)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return resilience.NewTransientError(err, resp.StatusCode)
		}
		return err
	}
	return nil
}
