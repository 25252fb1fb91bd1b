package worker

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/smartdirector/api/internal/client"
	"github.com/smartdirector/api/internal/model"
	"github.com/smartdirector/api/internal/queue"
	"github.com/smartdirector/api/internal/runner"
	"github.com/smartdirector/api/internal/store"
)

func TestRun_DrainsQueueAndStopsOnCancel(t *testing.T) {
	s := store.NewProjectStore()
	project, err := s.CreateProject(filepath.Join(t.TempDir(), "demo"), "Demo", model.DefaultProjectDefaults())
	if err != nil {
		t.Fatalf("CreateProject failed: %v", err)
	}
	shot := model.NewShot(project.ID, "seq-1", "scene-1", 1, "prompt")
	if err := s.AddShot(project, shot); err != nil {
		t.Fatalf("AddShot failed: %v", err)
	}

	q, err := queue.NewTaskQueue(1)
	if err != nil {
		t.Fatalf("NewTaskQueue failed: %v", err)
	}
	tasks := make([]*model.Task, 3)
	for i := range tasks {
		tasks[i] = model.NewTask(project.ID, model.TaskTypeImage, "mock-image", map[string]string{
			model.InputRefShotID:      shot.ID,
			model.InputRefProjectRoot: project.RootPath,
		})
		if err := s.AddTask(project, tasks[i]); err != nil {
			t.Fatalf("AddTask failed: %v", err)
		}
		q.Enqueue(tasks[i])
	}

	mock := client.NewMockProvider()
	w := NewPipelineWorker(runner.NewTaskRunner(s, q, mock, mock), nil, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if q.Stats().Succeeded == len(tasks) {
			break
		}
		time.Sleep(time.Millisecond)
	}
	if got := q.Stats().Succeeded; got != len(tasks) {
		t.Fatalf("expected %d succeeded, got %d", len(tasks), got)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after cancel")
	}
}
