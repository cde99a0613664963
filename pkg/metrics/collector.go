package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmitrymomot/taskqueue/pkg/queue"
)

var statuses = []queue.TaskStatus{
	queue.TaskStatusPending,
	queue.TaskStatusRunning,
	queue.TaskStatusRetrying,
	queue.TaskStatusCompleted,
	queue.TaskStatusFailed,
	queue.TaskStatusCancelled,
}

// UnregisteredTask is the name label used for tasks without a known handler.
const UnregisteredTask = "unregistered"

// CollectorOption configures a Collector.
type CollectorOption func(*Collector)

// WithKnownTasks sets the predicate deciding which task names get their own histogram
// series. Typically it wraps queue.Queue.Lookup. Without it every name is reported as
// UnregisteredTask, so clients cannot grow the series set by inventing names.
func WithKnownTasks(known func(name string) bool) CollectorOption {
	return func(c *Collector) {
		c.known = known
	}
}

// Collector exports queue and worker statistics. Values are read from the stats
// functions on every scrape, so nothing has to be updated on the hot path.
type Collector struct {
	queueStats  func() queue.Stats
	workerStats func() queue.WorkerStats
	known       func(name string) bool

	enqueued  *prometheus.Desc
	completed *prometheus.Desc
	failed    *prometheus.Desc
	cancelled *prometheus.Desc
	tasks     *prometheus.Desc
	queueSize *prometheus.Desc

	active         *prometheus.Desc
	maxConcurrent  *prometheus.Desc
	processed      *prometheus.Desc
	succeeded      *prometheus.Desc
	workerFailed   *prometheus.Desc
	processingTime *prometheus.Desc

	durations *prometheus.HistogramVec
}

// NewCollector creates a collector under namespace. Either stats function may be nil,
// in which case the corresponding metrics are not exported.
func NewCollector(namespace string, queueStats func() queue.Stats, workerStats func() queue.WorkerStats, opts ...CollectorOption) *Collector {
	desc := func(name, help string, labels ...string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "", name), help, labels, nil)
	}

	c := &Collector{
		queueStats:  queueStats,
		workerStats: workerStats,

		enqueued:  desc("tasks_enqueued_total", "Tasks accepted by Enqueue."),
		completed: desc("tasks_completed_total", "Tasks that completed successfully."),
		failed:    desc("tasks_failed_total", "Tasks that failed after exhausting their attempts."),
		cancelled: desc("tasks_cancelled_total", "Tasks cancelled before dispatch."),
		tasks:     desc("tasks", "Tasks currently held by the queue, by status.", "status"),
		queueSize: desc("queue_size", "Pending tasks waiting for dispatch."),

		active:         desc("worker_active_tasks", "Handlers currently running."),
		maxConcurrent:  desc("worker_max_concurrent", "Concurrency limit of the worker."),
		processed:      desc("worker_tasks_processed_total", "Dispatch attempts finished by the worker."),
		succeeded:      desc("worker_tasks_succeeded_total", "Dispatch attempts that succeeded."),
		workerFailed:   desc("worker_tasks_failed_total", "Dispatch attempts that returned an error or panicked."),
		processingTime: desc("worker_processing_seconds_total", "Total time spent in handlers."),

		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "task_duration_seconds",
			Help:      "Duration of handler executions in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"name", "status"}),
	}

	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{
		c.enqueued, c.completed, c.failed, c.cancelled, c.tasks, c.queueSize,
		c.active, c.maxConcurrent, c.processed, c.succeeded, c.workerFailed, c.processingTime,
	} {
		ch <- d
	}
	c.durations.Describe(ch)
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	if c.queueStats != nil {
		s := c.queueStats()
		ch <- prometheus.MustNewConstMetric(c.enqueued, prometheus.CounterValue, float64(s.Enqueued))
		ch <- prometheus.MustNewConstMetric(c.completed, prometheus.CounterValue, float64(s.Completed))
		ch <- prometheus.MustNewConstMetric(c.failed, prometheus.CounterValue, float64(s.Failed))
		ch <- prometheus.MustNewConstMetric(c.cancelled, prometheus.CounterValue, float64(s.Cancelled))
		ch <- prometheus.MustNewConstMetric(c.queueSize, prometheus.GaugeValue, float64(s.QueueSize))
		for _, status := range statuses {
			ch <- prometheus.MustNewConstMetric(c.tasks, prometheus.GaugeValue,
				float64(s.StatusCounts[status]), string(status))
		}
	}

	if c.workerStats != nil {
		w := c.workerStats()
		ch <- prometheus.MustNewConstMetric(c.active, prometheus.GaugeValue, float64(w.ActiveTasks))
		ch <- prometheus.MustNewConstMetric(c.maxConcurrent, prometheus.GaugeValue, float64(w.MaxConcurrent))
		ch <- prometheus.MustNewConstMetric(c.processed, prometheus.CounterValue, float64(w.TasksProcessed))
		ch <- prometheus.MustNewConstMetric(c.succeeded, prometheus.CounterValue, float64(w.TasksSucceeded))
		ch <- prometheus.MustNewConstMetric(c.workerFailed, prometheus.CounterValue, float64(w.TasksFailed))
		ch <- prometheus.MustNewConstMetric(c.processingTime, prometheus.CounterValue, w.TotalProcessingTime.Seconds())
	}

	c.durations.Collect(ch)
}

// ObserveResult records one handler execution. Its signature matches queue.ResultHook:
//
//	queue.WithResultHook(collector.ObserveResult)
func (c *Collector) ObserveResult(_ context.Context, res queue.TaskResult) {
	name := res.Name
	if c.known == nil || !c.known(name) {
		name = UnregisteredTask
	}
	c.durations.WithLabelValues(name, string(res.Status)).Observe(res.Duration.Seconds())
}

// NewRegistry returns a registry holding c plus the standard Go runtime and process collectors.
func NewRegistry(c *Collector) (*prometheus.Registry, error) {
	reg := prometheus.NewRegistry()
	for _, col := range []prometheus.Collector{
		c,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// Handler serves reg in the Prometheus exposition format.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}
