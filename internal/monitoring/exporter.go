package monitoring

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/sells-group/content-fixer/internal/model"
)

const namespace = "content_fixer"

var (
	correctionsDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "", "corrections"),
		"Corrections by type and status.",
		[]string{"type", "status"}, nil,
	)
	limiterAvailableDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "limiter", "available"),
		"1 when an enrichment call may start without waiting.",
		nil, nil,
	)
	limiterWaitDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "limiter", "seconds_until_next_request"),
		"Seconds until the enrichment limiter admits the next call.",
		nil, nil,
	)
	selfCheckDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "", "self_check_ratio"),
		"Mandatory corrections divided by mandatory types times content records.",
		nil, nil,
	)
	subjectsDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "", "content_records"),
		"Content records eligible for correction.",
		nil, nil,
	)
	scrapeErrorDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "", "scrape_error"),
		"1 when the last collection from the store failed.",
		nil, nil,
	)
)

// Exporter adapts a Collector to prometheus.Collector. Each scrape reads
// fresh counts from the store.
type Exporter struct {
	collector *Collector
	timeout   time.Duration
}

// NewExporter creates an exporter whose store reads are bounded by timeout.
func NewExporter(c *Collector, timeout time.Duration) *Exporter {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Exporter{collector: c, timeout: timeout}
}

// Describe implements prometheus.Collector.
func (e *Exporter) Describe(ch chan<- *prometheus.Desc) {
	ch <- correctionsDesc
	ch <- limiterAvailableDesc
	ch <- limiterWaitDesc
	ch <- selfCheckDesc
	ch <- subjectsDesc
	ch <- scrapeErrorDesc
}

// Collect implements prometheus.Collector.
func (e *Exporter) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
	defer cancel()

	snap, err := e.collector.Collect(ctx)
	if err != nil {
		zap.L().Error("monitoring: scrape failed", zap.Error(err))
		ch <- prometheus.MustNewConstMetric(scrapeErrorDesc, prometheus.GaugeValue, 1)
		return
	}
	ch <- prometheus.MustNewConstMetric(scrapeErrorDesc, prometheus.GaugeValue, 0)

	for _, t := range model.AllCorrectionTypes() {
		for _, s := range model.AllStatuses() {
			ch <- prometheus.MustNewConstMetric(correctionsDesc, prometheus.GaugeValue,
				float64(snap.Counts[t][s]), string(t), string(s))
		}
	}

	available := 0.0
	if snap.LimiterAvailable {
		available = 1
	}
	ch <- prometheus.MustNewConstMetric(limiterAvailableDesc, prometheus.GaugeValue, available)
	ch <- prometheus.MustNewConstMetric(limiterWaitDesc, prometheus.GaugeValue, snap.SecondsUntilNextRequest)
	ch <- prometheus.MustNewConstMetric(selfCheckDesc, prometheus.GaugeValue, snap.SelfCheckRatio)
	ch <- prometheus.MustNewConstMetric(subjectsDesc, prometheus.GaugeValue, float64(snap.EligibleSubjects))
}
