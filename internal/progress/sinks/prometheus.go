package sinks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/pagelens/crawler/internal/progress"
)

// PrometheusSink exports crawl progress metrics. It owns the collectors for
// job lifecycle counts and per-site fetch counters.
type PrometheusSink struct {
	jobsStarted   prometheus.Counter
	jobsCompleted *prometheus.CounterVec
	jobsRunning   prometheus.Gauge
	jobRuntime    *prometheus.HistogramVec

	pagesParsed   *prometheus.CounterVec
	linksFound    *prometheus.CounterVec
	fetchErrors   *prometheus.CounterVec
	fetchBytes    *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec

	mu      sync.Mutex
	started map[string]time.Time
}

// NewPrometheusSink registers the collectors against the provided registry.
// Passing nil uses the default registerer.
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PrometheusSink{
		jobsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "crawler_jobs_started_total",
			Help: "Total jobs that have started.",
		}),
		jobsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crawler_jobs_completed_total",
			Help: "Total jobs completed partitioned by result.",
		}, []string{"result"}),
		jobsRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "crawler_jobs_running",
			Help: "Current number of running jobs.",
		}),
		jobRuntime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "crawler_job_runtime_seconds",
			Help:    "Wall time per completed job.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"result"}),
		pagesParsed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crawler_pages_parsed_total",
			Help: "Pages fetched and parsed partitioned by site and status class.",
		}, []string{"site", "status_class"}),
		linksFound: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crawler_links_discovered_total",
			Help: "Outbound links discovered per site.",
		}, []string{"site"}),
		fetchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crawler_fetch_errors_total",
			Help: "Fetch failures partitioned by site.",
		}, []string{"site"}),
		fetchBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crawler_fetch_bytes_total",
			Help: "Bytes downloaded per site.",
		}, []string{"site"}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "crawler_fetch_duration_seconds",
			Help:    "Fetch duration partitioned by site.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
		}, []string{"site"}),
		started: make(map[string]time.Time),
	}
	for _, collector := range []prometheus.Collector{
		s.jobsStarted,
		s.jobsCompleted,
		s.jobsRunning,
		s.jobRuntime,
		s.pagesParsed,
		s.linksFound,
		s.fetchErrors,
		s.fetchBytes,
		s.fetchDuration,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register progress collector: %w", err)
		}
	}
	return s, nil
}

// Consume applies each event in the batch to the collectors.
func (s *PrometheusSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		switch evt.Stage {
		case progress.StageJobStart:
			s.jobsStarted.Inc()
			s.jobsRunning.Inc()
			s.mu.Lock()
			s.started[evt.JobID] = evt.TS
			s.mu.Unlock()
		case progress.StageJobDone:
			s.jobsCompleted.WithLabelValues(evt.Result).Inc()
			s.mu.Lock()
			startTS, wasRunning := s.started[evt.JobID]
			delete(s.started, evt.JobID)
			s.mu.Unlock()
			// A job cancelled before its start event never incremented the
			// running gauge.
			if wasRunning {
				s.jobsRunning.Dec()
				s.jobRuntime.WithLabelValues(evt.Result).Observe(evt.TS.Sub(startTS).Seconds())
			}
		case progress.StagePageParsed:
			s.pagesParsed.WithLabelValues(evt.Site, string(evt.StatusClass)).Inc()
			s.linksFound.WithLabelValues(evt.Site).Add(float64(evt.Links))
			s.fetchBytes.WithLabelValues(evt.Site).Add(float64(evt.Bytes))
			s.fetchDuration.WithLabelValues(evt.Site).Observe(evt.Dur.Seconds())
		case progress.StageFetchError:
			s.fetchErrors.WithLabelValues(evt.Site).Inc()
		}
	}
	return nil
}

// Close implements the Sink interface; collectors stay registered.
func (s *PrometheusSink) Close(context.Context) error {
	return nil
}
