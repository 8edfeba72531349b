package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus metrics registry and standard meters.
type Metrics struct {
	Registry          *prometheus.Registry
	OperationDuration *prometheus.HistogramVec
	OperationTotal    *prometheus.CounterVec
	SectionWrites     *prometheus.CounterVec
	UploadBytes       prometheus.Counter
	BlobChunks        prometheus.Histogram
	SubscriberGauge   prometheus.Gauge
}

// NewMetrics creates a custom Prometheus registry with the standard folio metrics.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	opDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "folio_operation_duration_seconds",
		Help:    "Duration of store operations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "status"})

	opTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "folio_operation_total",
		Help: "Total number of store operations.",
	}, []string{"operation", "status"})

	sectionWrites := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "folio_section_writes_total",
		Help: "Total writes per site configuration section.",
	}, []string{"section"})

	uploadBytes := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "folio_upload_bytes_total",
		Help: "Total bytes accepted by the upload flow.",
	})

	blobChunks := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "folio_blob_chunks",
		Help:    "Chunk count per stored blob.",
		Buckets: []float64{1, 2, 3, 5, 8, 13},
	})

	subscriberGauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "folio_subscriptions_active",
		Help: "Currently active realtime subscriptions.",
	})

	reg.MustRegister(opDuration, opTotal, sectionWrites, uploadBytes, blobChunks, subscriberGauge)

	return &Metrics{
		Registry:          reg,
		OperationDuration: opDuration,
		OperationTotal:    opTotal,
		SectionWrites:     sectionWrites,
		UploadBytes:       uploadBytes,
		BlobChunks:        blobChunks,
		SubscriberGauge:   subscriberGauge,
	}
}
