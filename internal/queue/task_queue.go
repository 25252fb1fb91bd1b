package queue

import (
	"fmt"
	"sync"

	"github.com/smartdirector/api/internal/model"
)

// Stats reports per-bucket task counts.
type Stats struct {
	Queued    int `json:"queued"`
	Running   int `json:"running"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Cancelled int `json:"cancelled"`
}

// TaskQueue is a strict-FIFO admission queue with a concurrency bound
// and a terminal-state ledger. It never blocks: StartNext returns
// nothing when the bound is hit and callers poll again after a runner
// cycle. The bound is enforced purely by the queue's own bookkeeping;
// a single scheduling context is expected to drive it.
//
// The queue owns the task objects it admits. Every task handed back
// out (Enqueue, StartNext, Find, MarkSuccess, MarkFailed) is a
// detached copy taken under the mutex, so readers on other goroutines
// never observe a half-written transition. All writes to an admitted
// task go through the queue's own methods.
type TaskQueue struct {
	maxRunning int

	mu      sync.Mutex
	queued  []*model.Task
	running map[string]*model.Task
	done    map[string]*model.Task
}

// NewTaskQueue creates a queue admitting at most maxRunning concurrent
// tasks. maxRunning must be at least 1.
func NewTaskQueue(maxRunning int) (*TaskQueue, error) {
	if maxRunning < 1 {
		return nil, fmt.Errorf("max_running must be >= 1, got %d", maxRunning)
	}
	return &TaskQueue{
		maxRunning: maxRunning,
		running:    make(map[string]*model.Task),
		done:       make(map[string]*model.Task),
	}, nil
}

// Enqueue appends the task to the FIFO tail, marks it queued, and
// returns a snapshot of it. The queue keeps the original; the caller
// must not mutate it afterwards.
func (q *TaskQueue) Enqueue(task *model.Task) *model.Task {
	q.mu.Lock()
	defer q.mu.Unlock()
	task.State = model.TaskStateQueued
	q.queued = append(q.queued, task)
	return task.Clone()
}

// StartNext pops the FIFO head, marks it running, and returns a
// snapshot, or returns nil when the queue is empty or the running
// count has reached the bound.
func (q *TaskQueue) StartNext() *model.Task {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.running) >= q.maxRunning {
		return nil
	}
	if len(q.queued) == 0 {
		return nil
	}
	task := q.queued[0]
	q.queued = q.queued[1:]
	task.State = model.TaskStateRunning
	q.running[task.ID] = task
	return task.Clone()
}

// SetRequestPayload records the provider request snapshot on a running
// task. A no-op if the task is no longer running.
func (q *TaskQueue) SetRequestPayload(taskID string, payload map[string]any) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if task, ok := q.running[taskID]; ok {
		task.RequestPayload = payload
	}
}

// MarkSuccess moves a running task into the terminal ledger as
// succeeded, records the produced candidate and full progress, and
// returns a snapshot. Returns nil if the task is not running (e.g. it
// was cancelled mid-flight).
func (q *TaskQueue) MarkSuccess(taskID, candidateID string) *model.Task {
	q.mu.Lock()
	defer q.mu.Unlock()
	task, ok := q.running[taskID]
	if !ok {
		return nil
	}
	delete(q.running, taskID)
	task.State = model.TaskStateSucceeded
	task.Progress = 1.0
	task.OutputRefs[model.OutputRefCandidateID] = candidateID
	q.done[task.ID] = task
	return task.Clone()
}

// MarkFailed moves a running task into the terminal ledger as failed
// with the structured error attached, and returns a snapshot. A task
// already recorded as succeeded is re-recorded as failed, which covers
// a success whose persistence fell over afterwards. Returns nil if the
// task is unknown or cancelled.
func (q *TaskQueue) MarkFailed(taskID string, taskErr *model.TaskError) *model.Task {
	q.mu.Lock()
	defer q.mu.Unlock()
	if task, ok := q.running[taskID]; ok {
		delete(q.running, taskID)
		task.State = model.TaskStateFailed
		task.Error = taskErr
		q.done[task.ID] = task
		return task.Clone()
	}
	if task, ok := q.done[taskID]; ok && task.State == model.TaskStateSucceeded {
		task.State = model.TaskStateFailed
		task.Error = taskErr
		return task.Clone()
	}
	return nil
}

// Cancel removes a queued task immediately, or flags a running task
// cancelled without interrupting the in-flight call (the later
// MarkSuccess/MarkFailed for it becomes a no-op). Returns false when
// the task is unknown or already terminal.
func (q *TaskQueue) Cancel(taskID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, task := range q.queued {
		if task.ID == taskID {
			q.queued = append(q.queued[:i], q.queued[i+1:]...)
			task.State = model.TaskStateCancelled
			q.done[task.ID] = task
			return true
		}
	}
	if task, ok := q.running[taskID]; ok {
		delete(q.running, taskID)
		task.State = model.TaskStateCancelled
		q.done[task.ID] = task
		return true
	}
	return false
}

// Find returns a snapshot of the queue's current view of a task in
// any bucket.
func (q *TaskQueue) Find(taskID string) (*model.Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, task := range q.queued {
		if task.ID == taskID {
			return task.Clone(), true
		}
	}
	if task, ok := q.running[taskID]; ok {
		return task.Clone(), true
	}
	if task, ok := q.done[taskID]; ok {
		return task.Clone(), true
	}
	return nil, false
}

// Stats reports counts per bucket.
func (q *TaskQueue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	stats := Stats{
		Queued:  len(q.queued),
		Running: len(q.running),
	}
	for _, task := range q.done {
		switch task.State {
		case model.TaskStateSucceeded:
			stats.Succeeded++
		case model.TaskStateFailed:
			stats.Failed++
		case model.TaskStateCancelled:
			stats.Cancelled++
		}
	}
	return stats
}
