package service

import (
	"context"
	"errors"
	"testing"

	"github.com/smartdirector/api/internal/client"
	"github.com/smartdirector/api/internal/config"
	"github.com/smartdirector/api/internal/model"
	"github.com/smartdirector/api/internal/queue"
	"github.com/smartdirector/api/internal/runner"
	"github.com/smartdirector/api/internal/store"
)

func newRenderFixture(t *testing.T) (*ProjectService, *RenderService, *runner.TaskRunner, *model.Shot) {
	t.Helper()
	projectStore := store.NewProjectStore()
	projects := NewProjectService(projectStore, t.TempDir())
	if _, err := projects.CreateProject(&model.ProjectCreateRequest{Name: "demo"}); err != nil {
		t.Fatalf("CreateProject failed: %v", err)
	}
	shot, err := projects.CreateShot("demo", &model.ShotCreateRequest{Prompt: "test prompt"})
	if err != nil {
		t.Fatalf("CreateShot failed: %v", err)
	}

	taskQueue, err := queue.NewTaskQueue(1)
	if err != nil {
		t.Fatalf("NewTaskQueue failed: %v", err)
	}
	cfg := &config.DashScopeConfig{
		ImageModel:    "wanx2.1-t2i-turbo",
		VideoT2VModel: "wanx2.1-t2v-turbo",
	}
	render := NewRenderService(projectStore, taskQueue, nil, projects, cfg)
	mock := client.NewMockProvider()
	taskRunner := runner.NewTaskRunner(projectStore, taskQueue, mock, mock)
	return projects, render, taskRunner, shot
}

func TestStartRender_QueuesAndPersists(t *testing.T) {
	projects, render, _, shot := newRenderFixture(t)

	task, err := render.StartRender("demo", &model.RenderStartRequest{
		ShotID: shot.ID,
		Type:   model.TaskTypeImage,
	})
	if err != nil {
		t.Fatalf("StartRender failed: %v", err)
	}
	if task.State != model.TaskStateQueued {
		t.Errorf("expected queued, got %s", task.State)
	}
	if task.Model != "wanx2.1-t2i-turbo" {
		t.Errorf("unexpected model: %s", task.Model)
	}
	if task.InputRefs[model.InputRefShotID] != shot.ID {
		t.Errorf("unexpected input refs: %v", task.InputRefs)
	}

	project, _ := projects.GetProject("demo")
	if len(project.TaskIDs) != 1 || project.TaskIDs[0] != task.ID {
		t.Errorf("task not indexed: %v", project.TaskIDs)
	}

	stats := render.Stats()
	if stats.Queued != 1 {
		t.Errorf("expected 1 queued, got %+v", stats)
	}
}

func TestStartRender_VideoModelAndReference(t *testing.T) {
	_, render, _, shot := newRenderFixture(t)

	task, err := render.StartRender("demo", &model.RenderStartRequest{
		ShotID:       shot.ID,
		Type:         model.TaskTypeVideo,
		ReferenceURL: "https://example.com/ref.png",
	})
	if err != nil {
		t.Fatalf("StartRender failed: %v", err)
	}
	if task.Model != "wanx2.1-t2v-turbo" {
		t.Errorf("unexpected model: %s", task.Model)
	}
	if task.InputRefs[model.InputRefReferencePath] != "https://example.com/ref.png" {
		t.Errorf("expected reference in input refs: %v", task.InputRefs)
	}
}

func TestStartRender_UnknownShot(t *testing.T) {
	_, render, _, _ := newRenderFixture(t)

	_, err := render.StartRender("demo", &model.RenderStartRequest{
		ShotID: "missing",
		Type:   model.TaskTypeImage,
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStatus_QueueViewWinsWhileInFlight(t *testing.T) {
	_, render, taskRunner, shot := newRenderFixture(t)

	task, err := render.StartRender("demo", &model.RenderStartRequest{
		ShotID: shot.ID,
		Type:   model.TaskTypeImage,
	})
	if err != nil {
		t.Fatalf("StartRender failed: %v", err)
	}

	status, err := render.Status("demo", task.ID)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if status.State != model.TaskStateQueued {
		t.Errorf("expected queued, got %s", status.State)
	}

	if outcome := taskRunner.RunNext(context.Background()); outcome == nil || outcome.Err != nil {
		t.Fatalf("run failed: %+v", outcome)
	}

	status, err = render.Status("demo", task.ID)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if status.State != model.TaskStateSucceeded {
		t.Errorf("expected succeeded, got %s", status.State)
	}
}

func TestStatus_ScopedToProject(t *testing.T) {
	projects, render, _, shot := newRenderFixture(t)

	task, err := render.StartRender("demo", &model.RenderStartRequest{
		ShotID: shot.ID,
		Type:   model.TaskTypeImage,
	})
	if err != nil {
		t.Fatalf("StartRender failed: %v", err)
	}

	if _, err := projects.CreateProject(&model.ProjectCreateRequest{Name: "other"}); err != nil {
		t.Fatalf("CreateProject failed: %v", err)
	}

	// Another project's in-flight task is invisible even while queued.
	if _, err := render.Status("other", task.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound for foreign task, got %v", err)
	}
	if _, err := render.Cancel("other", task.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound for foreign cancel, got %v", err)
	}

	// The owning project still sees it.
	status, err := render.Status("demo", task.ID)
	if err != nil || status.State != model.TaskStateQueued {
		t.Errorf("expected queued via owning project, got %v, %v", status, err)
	}
}

func TestResult_RequiresSuccess(t *testing.T) {
	_, render, taskRunner, shot := newRenderFixture(t)

	task, err := render.StartRender("demo", &model.RenderStartRequest{
		ShotID: shot.ID,
		Type:   model.TaskTypeImage,
	})
	if err != nil {
		t.Fatalf("StartRender failed: %v", err)
	}

	if _, err := render.Result("demo", task.ID); !errors.Is(err, ErrTaskNotCompleted) {
		t.Errorf("expected ErrTaskNotCompleted, got %v", err)
	}

	if outcome := taskRunner.RunNext(context.Background()); outcome == nil || outcome.Err != nil {
		t.Fatalf("run failed: %+v", outcome)
	}

	candidate, err := render.Result("demo", task.ID)
	if err != nil {
		t.Fatalf("Result failed: %v", err)
	}
	if candidate.TaskID != task.ID || candidate.ShotID != shot.ID {
		t.Errorf("unexpected candidate: %+v", candidate)
	}
	if candidate.PromptSnapshot != "test prompt" {
		t.Errorf("unexpected prompt snapshot: %q", candidate.PromptSnapshot)
	}
}

func TestCancel_QueuedTask(t *testing.T) {
	projects, render, _, shot := newRenderFixture(t)

	task, err := render.StartRender("demo", &model.RenderStartRequest{
		ShotID: shot.ID,
		Type:   model.TaskTypeImage,
	})
	if err != nil {
		t.Fatalf("StartRender failed: %v", err)
	}

	cancelled, err := render.Cancel("demo", task.ID)
	if err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	if cancelled.State != model.TaskStateCancelled {
		t.Errorf("expected cancelled, got %s", cancelled.State)
	}

	// Cancellation is persisted and terminal.
	project, _ := projects.GetProject("demo")
	persisted, err := render.store.LoadTask(project, task.ID)
	if err != nil {
		t.Fatalf("LoadTask failed: %v", err)
	}
	if persisted.State != model.TaskStateCancelled {
		t.Errorf("expected persisted cancelled, got %s", persisted.State)
	}

	if _, err := render.Cancel("demo", task.ID); !errors.Is(err, ErrTaskNotCancellable) {
		t.Errorf("expected ErrTaskNotCancellable, got %v", err)
	}
}

func TestCancel_UnknownTask(t *testing.T) {
	_, render, _, _ := newRenderFixture(t)

	if _, err := render.Cancel("demo", "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
