// Package queue provides an in-process task queue: a priority and time ordered scheduler,
// a registry of named handlers, and a worker that runs them under a concurrency ceiling.
//
// The package is organised around these components:
//
//   - Queue:     enqueue, dequeue, complete, fail, cancel and query tasks
//   - Scheduler: orders waiting tasks by priority, eligibility time and creation order
//   - Registry:  maps task names to handlers
//   - Worker:    polls the queue, runs handlers and reports outcomes back
//   - Periodic:  enqueues tasks on recurring schedules
//
// All state lives in process memory. Restarting the process loses unfinished work.
//
// # Lifecycle
//
// A task starts pending (or scheduled for later), becomes running when dispatched and
// ends completed, failed or cancelled. A failed attempt with attempts left moves the task
// to retrying and puts it back in line. Only pending tasks can be cancelled; running
// handlers are never interrupted.
//
// # Usage
//
//	q := queue.NewQueue(queue.WithMaxSize(1000))
//
//	_ = q.RegisterHandler("send_email", queue.NewTaskHandler(
//		func(ctx context.Context, p EmailPayload) (string, error) {
//			return send(ctx, p)
//		}))
//
//	task, err := q.Enqueue("send_email", EmailPayload{To: "user@example.com"},
//		queue.WithPriority(queue.PriorityHigh),
//		queue.WithMaxAttempts(5))
//
//	w, err := queue.NewWorker(q, queue.WithMaxConcurrent(10))
//	g.Go(w.Run(ctx))
//
// Typed definitions combine registration and enqueueing:
//
//	resize, err := queue.Define(q, "resize_image", resizeImage, queue.WithPriority(queue.PriorityLow))
//	task, err := resize.Enqueue(ResizePayload{ImageID: id})
//
// Periodic tasks:
//
//	p, err := queue.NewPeriodic(q, queue.WithCheckInterval(10*time.Second))
//	_ = p.AddTask("cleanup", queue.DailyAt(3, 0), nil)
//	g.Go(p.Run(ctx))
//
// # Errors
//
// Enqueue fails with ErrQueueFull when the capacity bound is reached. Operations on
// unknown ids return ErrTaskNotFound. Operations the lifecycle does not allow return an
// error matching ErrInvalidTransition; Cancel on a non-pending task returns ErrNotCancellable.
// Handler errors and panics are recorded on the task and never leave the worker.
package queue
