package monitoring

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/sells-group/content-fixer/internal/config"
	"github.com/sells-group/content-fixer/internal/model"
)

func TestChecker_RunStopsOnCancel(t *testing.T) {
	collector := NewCollector(&mockStats{stats: model.NewStats()}, nil)
	cfg := config.MonitoringConfig{CheckIntervalSecs: 1, FailureRateThreshold: 0.10}
	checker := NewChecker(collector, NewAlerter(cfg), cfg)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		checker.Run(ctx)
		close(done)
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Checker.Run did not stop after context cancellation")
	}
}

func TestChecker_DefaultInterval(t *testing.T) {
	collector := NewCollector(&mockStats{stats: model.NewStats()}, nil)
	checker := NewChecker(collector, NewAlerter(config.MonitoringConfig{}), config.MonitoringConfig{})
	assert.Equal(t, 5*time.Minute, checker.interval)
}

func TestChecker_SendsOnlyNewAlerts(t *testing.T) {
	var received atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		received.Add(1)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	backlog := model.NewStats()
	backlog.Add(model.CorrectionPressureFix, model.StatusPending, 20)
	st := &mockStats{stats: backlog, subjects: 20}

	cfg := config.MonitoringConfig{WebhookURL: ts.URL, MaxPending: 10}
	checker := NewChecker(NewCollector(st, nil), NewAlerter(cfg), cfg)
	ctx := context.Background()
	log := zap.NewNop()

	assert.Equal(t, 1, checker.check(ctx, log))
	assert.Equal(t, 0, checker.check(ctx, log), "still firing, not resent")

	st.stats = model.NewStats()
	assert.Equal(t, 0, checker.check(ctx, log))

	st.stats = backlog
	assert.Equal(t, 1, checker.check(ctx, log), "fires again after clearing")
	assert.Equal(t, int32(2), received.Load())
}
