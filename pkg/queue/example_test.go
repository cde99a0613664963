package queue_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/dmitrymomot/taskqueue/pkg/queue"
)

// Example_priorityOrder shows that higher priority tasks are dispatched first
func Example_priorityOrder() {
	q := queue.NewQueue(queue.WithQueueLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	_, _ = q.Enqueue("newsletter", nil, queue.WithPriority(queue.PriorityLow))
	_, _ = q.Enqueue("password_reset", nil, queue.WithPriority(queue.PriorityCritical))
	_, _ = q.Enqueue("invoice", nil)

	for {
		task, ok := q.Dequeue()
		if !ok {
			break
		}
		fmt.Println(task.Name)
	}

	// Output:
	// password_reset
	// invoice
	// newsletter
}

// Example_worker demonstrates processing tasks with a worker
func Example_worker() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	q := queue.NewQueue(queue.WithQueueLogger(logger))

	type EmailPayload struct {
		To      string `json:"to"`
		Subject string `json:"subject"`
	}

	sendEmail, err := queue.Define(q, "send_email", func(ctx context.Context, email EmailPayload) (string, error) {
		return "sent to " + email.To, nil
	})
	if err != nil {
		panic(err)
	}

	done := make(chan queue.TaskResult, 1)
	worker, err := queue.NewWorker(q,
		queue.WithMaxConcurrent(1),
		queue.WithPollInterval(10*time.Millisecond),
		queue.WithWorkerLogger(logger),
		queue.WithResultHook(func(_ context.Context, res queue.TaskResult) {
			done <- res
		}))
	if err != nil {
		panic(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := worker.Start(ctx); err != nil {
		panic(err)
	}
	defer worker.Stop()

	if _, err := sendEmail.Enqueue(EmailPayload{To: "user@example.com", Subject: "Welcome!"}); err != nil {
		panic(err)
	}

	res := <-done
	fmt.Println(res.Status, string(res.Result))

	// Output:
	// completed "sent to user@example.com"
}
