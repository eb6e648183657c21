package observability

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/yungbote/commonground-backend/internal/platform/logger"
)

// Metrics is a small Prometheus text-format registry. A nil *Metrics is a
// valid no-op sink.
type Metrics struct {
	apiRequests *CounterVec
	apiLatency  *HistogramVec
	apiInflight *Gauge

	aggregateOps       *CounterVec
	aggregateLatency   *HistogramVec
	aggregateConflicts *CounterVec
	aggregateRetries   *CounterVec

	submissions    *CounterVec
	answersSkipped *Counter
	joinAttempts   *CounterVec
	groupsCreated  *CounterVec
	orphansSwept   *Counter

	redisUp   *Gauge
	redisPing *Gauge
}

func New() *Metrics {
	return &Metrics{
		apiRequests: NewCounterVec("cg_api_requests_total", "Total API requests by method/route/status.", []string{"method", "route", "status"}),
		apiLatency: NewHistogramVec(
			"cg_api_request_duration_seconds",
			"API request latency in seconds by method/route/status.",
			[]string{"method", "route", "status"},
			[]float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		),
		apiInflight: NewGauge("cg_api_inflight_requests", "In-flight API requests."),

		aggregateOps: NewCounterVec("cg_aggregate_operations_total", "Aggregate write operations by op/status.", []string{"op", "status"}),
		aggregateLatency: NewHistogramVec(
			"cg_aggregate_operation_duration_seconds",
			"Aggregate write latency in seconds by op.",
			[]string{"op"},
			[]float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		),
		aggregateConflicts: NewCounterVec("cg_aggregate_conflicts_total", "Aggregate writes that ended in a conflict.", []string{"op"}),
		aggregateRetries:   NewCounterVec("cg_aggregate_retryable_total", "Aggregate writes that ended retryable.", []string{"op"}),

		submissions:    NewCounterVec("cg_survey_submissions_total", "Survey submissions by status.", []string{"status"}),
		answersSkipped: NewCounter("cg_survey_answers_skipped_total", "Answers dropped because the question or option was unknown."),
		joinAttempts:   NewCounterVec("cg_group_join_attempts_total", "Group join attempts by outcome.", []string{"outcome"}),
		groupsCreated:  NewCounterVec("cg_groups_created_total", "Group provisioning by outcome.", []string{"outcome"}),
		orphansSwept:   NewCounter("cg_orphan_groups_swept_total", "Memberless groups deleted by the reconciliation sweep."),

		redisUp:   NewGauge("cg_redis_up", "Redis reachability (1 up, 0 down)."),
		redisPing: NewGauge("cg_redis_ping_seconds", "Last Redis ping latency in seconds."),
	}
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, _ *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	writers := []interface{ WritePrometheus(io.Writer) error }{
		m.apiRequests, m.apiLatency, m.apiInflight,
		m.aggregateOps, m.aggregateLatency, m.aggregateConflicts, m.aggregateRetries,
		m.submissions, m.answersSkipped, m.joinAttempts, m.groupsCreated, m.orphansSwept,
		m.redisUp, m.redisPing,
	}
	for _, wr := range writers {
		if err := wr.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unknown"
	}
	if status == "" {
		status = "0"
	}
	m.apiRequests.Inc(method, route, status)
	m.apiLatency.Observe(dur.Seconds(), method, route, status)
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

func (m *Metrics) ObserveAggregateOperation(op, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.aggregateOps.Inc(op, status)
	m.aggregateLatency.Observe(dur.Seconds(), op)
}

func (m *Metrics) IncAggregateConflict(op string) {
	if m == nil {
		return
	}
	m.aggregateConflicts.Inc(op)
}

func (m *Metrics) IncAggregateRetry(op string) {
	if m == nil {
		return
	}
	m.aggregateRetries.Inc(op)
}

func (m *Metrics) IncSubmission(status string) {
	if m == nil {
		return
	}
	m.submissions.Inc(strings.TrimSpace(status))
}

func (m *Metrics) AddAnswersSkipped(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.answersSkipped.Add(float64(n))
}

func (m *Metrics) IncJoinAttempt(outcome string) {
	if m == nil {
		return
	}
	m.joinAttempts.Inc(strings.TrimSpace(outcome))
}

func (m *Metrics) IncGroupCreated(outcome string) {
	if m == nil {
		return
	}
	m.groupsCreated.Inc(strings.TrimSpace(outcome))
}

func (m *Metrics) AddOrphansSwept(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.orphansSwept.Add(float64(n))
}

// StartRedisCollector pings rdb every interval until ctx is done.
func (m *Metrics) StartRedisCollector(ctx context.Context, log *logger.Logger, rdb *redis.Client, interval time.Duration) {
	if m == nil || rdb == nil {
		return
	}
	if interval <= 0 {
		interval = 10 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				start := time.Now()
				if err := rdb.Ping(ctx).Err(); err != nil {
					m.redisUp.Set(0)
					log.Warn("metrics: redis ping failed", "error", err)
					continue
				}
				m.redisUp.Set(1)
				m.redisPing.Set(time.Since(start).Seconds())
			}
		}
	}()
}
