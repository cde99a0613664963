// Package metrics exposes task queue statistics to Prometheus.
//
// Collector is a prometheus.Collector backed by queue.Queue.Stats and
// queue.Worker.Stats; it builds constant metrics at scrape time. Handler
// durations are recorded as a histogram through ObserveResult, which plugs into
// the worker as a result hook. Only task names accepted by WithKnownTasks get
// their own series; everything else is labelled "unregistered".
//
//	c := metrics.NewCollector("taskd", q.Stats, w.Stats, metrics.WithKnownTasks(func(name string) bool {
//		_, ok := q.Lookup(name)
//		return ok
//	}))
//	reg, err := metrics.NewRegistry(c)
//	...
//	r.Handle("/metrics", metrics.Handler(reg))
package metrics
