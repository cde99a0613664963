package taskapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dmitrymomot/taskqueue/pkg/queue"
)

// TaskQueue is the part of queue.Queue the API drives.
type TaskQueue interface {
	Enqueue(name string, payload any, opts ...queue.EnqueueOption) (*queue.Task, error)
	GetTask(id uuid.UUID) (*queue.Task, error)
	Query(f queue.Filter) []*queue.Task
	Cancel(id uuid.UUID) (*queue.Task, error)
	Stats() queue.Stats
}

type handler struct {
	queue TaskQueue
	opts  *options
}

// EnqueueRequest is the body of POST /tasks.
type EnqueueRequest struct {
	Name        string          `json:"name"                   validate:"required"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	Priority    *int            `json:"priority,omitempty"`
	MaxAttempts int             `json:"max_attempts,omitempty" validate:"gte=0"`
	ScheduledAt *time.Time      `json:"scheduled_at,omitempty"`
	Delay       string          `json:"delay,omitempty"        validate:"omitempty,duration"` // Go duration, e.g. "90s"
}

// listQuery holds the query parameters of GET /tasks.
type listQuery struct {
	Status string `json:"status" validate:"omitempty,oneof=pending running completed failed retrying cancelled"`
	Name   string `json:"name"`
	Limit  *int   `json:"limit"  validate:"omitnil,min=1"`
}

// ListResponse is the body of GET /tasks.
type ListResponse struct {
	Tasks []*queue.Task `json:"tasks"`
	Count int           `json:"count"`
}

// StatsResponse is the body of GET /stats.
type StatsResponse struct {
	Queue  queue.Stats        `json:"queue"`
	Worker *queue.WorkerStats `json:"worker,omitempty"`
}

func (h *handler) enqueue(w http.ResponseWriter, r *http.Request) {
	var req EnqueueRequest
	if err := decodeJSON(w, r, h.opts.maxBodyBytes, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	if err := validateRequest(req); err != nil {
		h.respondError(w, r, err)
		return
	}
	opts := req.options()

	var payload any
	if len(req.Payload) > 0 {
		payload = req.Payload
	}

	task, err := h.queue.Enqueue(req.Name, payload, opts...)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, task)
}

// options translates a validated request into enqueue options.
func (req EnqueueRequest) options() []queue.EnqueueOption {
	var opts []queue.EnqueueOption

	if req.Priority != nil {
		opts = append(opts, queue.WithPriority(queue.Priority(*req.Priority)))
	}
	if req.MaxAttempts > 0 {
		opts = append(opts, queue.WithMaxAttempts(req.MaxAttempts))
	}
	if req.Delay != "" {
		if d, err := time.ParseDuration(req.Delay); err == nil {
			opts = append(opts, queue.WithDelay(d))
		}
	}
	if req.ScheduledAt != nil {
		opts = append(opts, queue.WithScheduledAt(*req.ScheduledAt))
	}

	return opts
}

func (h *handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	lq := listQuery{Status: q.Get("status"), Name: q.Get("name")}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			h.respondError(w, r, fmt.Errorf("%w: limit must be an integer", errBadRequest))
			return
		}
		lq.Limit = &limit
	}
	if err := validateRequest(lq); err != nil {
		h.respondError(w, r, err)
		return
	}

	f := queue.Filter{Status: queue.TaskStatus(lq.Status), Name: lq.Name}
	if lq.Limit != nil {
		f.Limit = min(*lq.Limit, h.opts.listMaxLimit)
	}

	tasks := h.queue.Query(f)
	if tasks == nil {
		tasks = []*queue.Task{}
	}
	writeJSON(w, http.StatusOK, ListResponse{Tasks: tasks, Count: len(tasks)})
}

func (h *handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	task, err := h.queue.GetTask(id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (h *handler) cancel(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	task, err := h.queue.Cancel(id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (h *handler) stats(w http.ResponseWriter, _ *http.Request) {
	resp := StatsResponse{Queue: h.queue.Stats()}
	if h.opts.workerStats != nil {
		ws := h.opts.workerStats()
		resp.Worker = &ws
	}
	writeJSON(w, http.StatusOK, resp)
}

func pathID(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "id")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid task id %q", errBadRequest, raw)
	}
	return id, nil
}

var errBadRequest = errors.New("bad request")
