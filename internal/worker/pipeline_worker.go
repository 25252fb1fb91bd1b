package worker

import (
	"context"
	"log"
	"time"

	"github.com/smartdirector/api/internal/model"
	"github.com/smartdirector/api/internal/runner"
	"github.com/smartdirector/api/internal/websocket"
)

// PipelineWorker drives the task runner in a loop and publishes each
// outcome to the websocket hub.
type PipelineWorker struct {
	runner   *runner.TaskRunner
	hub      *websocket.Hub
	interval time.Duration
}

func NewPipelineWorker(taskRunner *runner.TaskRunner, hub *websocket.Hub, interval time.Duration) *PipelineWorker {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	return &PipelineWorker{
		runner:   taskRunner,
		hub:      hub,
		interval: interval,
	}
}

// Run loops until the context is cancelled. After a completed task it
// immediately tries the next one so the queue drains without waiting
// out the poll interval.
func (w *PipelineWorker) Run(ctx context.Context) {
	log.Printf("[Worker] Pipeline worker started (interval %v)", w.interval)
	for {
		outcome := w.runner.RunNext(ctx)
		if outcome != nil {
			w.publish(outcome)
			continue
		}

		select {
		case <-ctx.Done():
			log.Printf("[Worker] Pipeline worker stopped")
			return
		case <-time.After(w.interval):
		}
	}
}

func (w *PipelineWorker) publish(outcome *runner.Outcome) {
	if w.hub == nil || outcome.Task == nil {
		return
	}
	if outcome.Err != nil {
		w.hub.BroadcastState(outcome.Task.ID, outcome.Task.State, outcome.Task.Progress)
		w.hub.BroadcastError(outcome.Task.ID, *outcome.Err)
		return
	}
	w.hub.BroadcastState(outcome.Task.ID, model.TaskStateSucceeded, 1.0)
	w.hub.BroadcastComplete(outcome.Task.ID, outcome.Candidate)
}
