// Package taskapi exposes a task queue over HTTP with a chi router.
//
// Routes:
//
//	POST /tasks              enqueue; 201, 400 on invalid input, 503 when the queue is full
//	GET  /tasks              list, newest first; ?status=&name=&limit=
//	GET  /tasks/{id}         one task; 404 when unknown
//	POST /tasks/{id}/cancel  cancel a pending task; 409 when it is no longer pending
//	GET  /stats              queue and, when configured, worker statistics
//	GET  /healthz, /readyz   liveness and readiness probes
//	GET  /metrics            Prometheus exposition, when a handler is supplied
//
// Errors are JSON objects of the form {"error": "..."}. Internal errors are
// logged and reported with a generic message.
package taskapi
