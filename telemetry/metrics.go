// Package telemetry provides Prometheus metrics for the rotation engine.
package telemetry

import (
	"context"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once sync.Once

	// Counters
	CyclesTotal      prometheus.Counter
	CyclesFailed     prometheus.Counter
	TicksSkipped     prometheus.Counter
	Rotations        prometheus.Counter
	ArchivesOK       prometheus.Counter
	ArchivesFailed   *prometheus.CounterVec // label: stage
	DeletionsOK      prometheus.Counter
	DeletionsFailed  prometheus.Counter
	ChannelsCreated  prometheus.Counter
	ArchivedMessages prometheus.Counter

	// Histograms (seconds)
	CycleDuration prometheus.Observer

	// Gauges
	CurrentIndex prometheus.Gauge
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		CyclesTotal = promauto.NewCounter(prometheus.CounterOpts{Name: "rotator_cycles_total", Help: "Number of scheduled rotation checks run"})
		CyclesFailed = promauto.NewCounter(prometheus.CounterOpts{Name: "rotator_cycles_failed_total", Help: "Number of rotation checks that ended in an error"})
		TicksSkipped = promauto.NewCounter(prometheus.CounterOpts{Name: "rotator_ticks_skipped_total", Help: "Ticks skipped because a cycle was still running"})
		Rotations = promauto.NewCounter(prometheus.CounterOpts{Name: "rotator_rotations_total", Help: "Number of rotations performed"})
		ArchivesOK = promauto.NewCounter(prometheus.CounterOpts{Name: "rotator_archives_succeeded_total", Help: "Channels archived successfully"})
		ArchivesFailed = promauto.NewCounterVec(prometheus.CounterOpts{Name: "rotator_archives_failed_total", Help: "Channels whose archive failed, by stage"}, []string{"stage"})
		DeletionsOK = promauto.NewCounter(prometheus.CounterOpts{Name: "rotator_deletions_succeeded_total", Help: "Archived channels deleted"})
		DeletionsFailed = promauto.NewCounter(prometheus.CounterOpts{Name: "rotator_deletions_failed_total", Help: "Archived channels that could not be deleted"})
		ChannelsCreated = promauto.NewCounter(prometheus.CounterOpts{Name: "rotator_channels_created_total", Help: "Replacement channels created"})
		ArchivedMessages = promauto.NewCounter(prometheus.CounterOpts{Name: "rotator_archived_messages_total", Help: "Messages written to transcripts"})
		CycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "rotator_cycle_duration_seconds", Help: "Rotation check duration seconds", Buckets: prometheus.DefBuckets})
		CurrentIndex = promauto.NewGauge(prometheus.GaugeOpts{Name: "rotator_current_index", Help: "Rotation index of the current managed channel"})
	})
}

// Inc increments c if metrics are initialized.
func Inc(c prometheus.Counter) {
	if c != nil {
		c.Inc()
	}
}

// Add adds n to c if metrics are initialized.
func Add(c prometheus.Counter, n int) {
	if c != nil {
		c.Add(float64(n))
	}
}

// IncArchiveFailed counts a failed archive for the given stage.
func IncArchiveFailed(stage string) {
	if ArchivesFailed != nil {
		ArchivesFailed.WithLabelValues(stage).Inc()
	}
}

// SetCurrentIndex records the index of the channel now considered current.
func SetCurrentIndex(idx int) {
	if CurrentIndex != nil {
		CurrentIndex.Set(float64(idx))
	}
}

// TimeFunc measures the duration of fn and records in observer if non-nil.
func TimeFunc(obs prometheus.Observer, fn func()) time.Duration {
	start := time.Now()
	fn()
	d := time.Since(start)
	if obs != nil {
		obs.Observe(d.Seconds())
	}
	return d
}

// Serve exposes /metrics on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Printf("Serving metrics on %s/metrics", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
