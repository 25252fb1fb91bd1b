package runner

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/smartdirector/api/internal/client"
	"github.com/smartdirector/api/internal/model"
	"github.com/smartdirector/api/internal/queue"
	"github.com/smartdirector/api/internal/store"
)

// stubProvider records the prompts it was asked to render and can be
// forced to fail.
type stubProvider struct {
	imagePrompts []string
	videoPrompts []string
	failWith     error
}

func (s *stubProvider) GenerateImage(ctx context.Context, prompt, outputDir string) (*client.ImageResult, error) {
	if s.failWith != nil {
		return nil, s.failWith
	}
	s.imagePrompts = append(s.imagePrompts, prompt)
	return &client.ImageResult{
		LocalPath: filepath.Join(outputDir, "stub.png"),
		Width:     16,
		Height:    9,
		Model:     "stub-image",
	}, nil
}

func (s *stubProvider) GenerateVideo(ctx context.Context, prompt, outputDir, referenceURL string) (*client.VideoResult, error) {
	if s.failWith != nil {
		return nil, s.failWith
	}
	s.videoPrompts = append(s.videoPrompts, prompt)
	return &client.VideoResult{
		LocalPath:   filepath.Join(outputDir, "stub.mp4"),
		DurationSec: 4.0,
		Model:       "stub-video",
	}, nil
}

type fixture struct {
	store    *store.ProjectStore
	queue    *queue.TaskQueue
	runner   *TaskRunner
	provider *stubProvider
	project  *model.Project
	shot     *model.Shot
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s := store.NewProjectStore()
	project, err := s.CreateProject(filepath.Join(t.TempDir(), "demo"), "Demo", model.DefaultProjectDefaults())
	if err != nil {
		t.Fatalf("CreateProject failed: %v", err)
	}
	shot := model.NewShot(project.ID, "seq-1", "scene-1", 1, "first draft prompt")
	if err := s.AddShot(project, shot); err != nil {
		t.Fatalf("AddShot failed: %v", err)
	}

	q, err := queue.NewTaskQueue(1)
	if err != nil {
		t.Fatalf("NewTaskQueue failed: %v", err)
	}
	provider := &stubProvider{}
	return &fixture{
		store:    s,
		queue:    q,
		runner:   NewTaskRunner(s, q, provider, provider),
		provider: provider,
		project:  project,
		shot:     shot,
	}
}

func (f *fixture) enqueueTask(t *testing.T, taskType model.TaskType) *model.Task {
	t.Helper()
	task := model.NewTask(f.project.ID, taskType, "stub-model", map[string]string{
		model.InputRefShotID:      f.shot.ID,
		model.InputRefProjectRoot: f.project.RootPath,
	})
	if err := f.store.AddTask(f.project, task); err != nil {
		t.Fatalf("AddTask failed: %v", err)
	}
	f.queue.Enqueue(task)
	return task
}

func TestRunNext_EmptyQueue(t *testing.T) {
	f := newFixture(t)
	if outcome := f.runner.RunNext(context.Background()); outcome != nil {
		t.Errorf("expected nil outcome, got %+v", outcome)
	}
}

func TestRunNext_ImageSuccess(t *testing.T) {
	f := newFixture(t)
	task := f.enqueueTask(t, model.TaskTypeImage)

	outcome := f.runner.RunNext(context.Background())
	if outcome == nil || outcome.Err != nil {
		t.Fatalf("expected success, got %+v", outcome)
	}
	if outcome.Task.State != model.TaskStateSucceeded {
		t.Errorf("expected succeeded, got %s", outcome.Task.State)
	}
	if outcome.Task.Progress != 1.0 {
		t.Errorf("expected progress 1.0, got %v", outcome.Task.Progress)
	}

	// The candidate is persisted and indexed, and the task points at it.
	candidateID := outcome.Task.OutputRefs[model.OutputRefCandidateID]
	if candidateID == "" || candidateID != outcome.Candidate.ID {
		t.Fatalf("expected candidate output ref, got %q", candidateID)
	}
	reloaded, err := f.store.LoadProject(f.project.RootPath)
	if err != nil {
		t.Fatalf("LoadProject failed: %v", err)
	}
	candidate, err := f.store.LoadCandidate(reloaded, candidateID)
	if err != nil {
		t.Fatalf("LoadCandidate failed: %v", err)
	}
	if candidate.ShotID != f.shot.ID || candidate.TaskID != task.ID {
		t.Errorf("candidate links wrong: %+v", candidate)
	}

	// The terminal task state survives a reload.
	persisted, err := f.store.LoadTask(reloaded, task.ID)
	if err != nil {
		t.Fatalf("LoadTask failed: %v", err)
	}
	if persisted.State != model.TaskStateSucceeded {
		t.Errorf("expected persisted succeeded, got %s", persisted.State)
	}
}

func TestRunNext_SnapshotsPromptAtDispatch(t *testing.T) {
	f := newFixture(t)
	f.enqueueTask(t, model.TaskTypeImage)

	// Edit the shot after enqueue but before dispatch.
	f.shot.Prompt = "edited prompt"
	if err := f.store.SaveShot(f.project, f.shot); err != nil {
		t.Fatalf("SaveShot failed: %v", err)
	}

	outcome := f.runner.RunNext(context.Background())
	if outcome == nil || outcome.Err != nil {
		t.Fatalf("expected success, got %+v", outcome)
	}

	if len(f.provider.imagePrompts) != 1 || f.provider.imagePrompts[0] != "edited prompt" {
		t.Errorf("expected dispatch-time prompt, got %v", f.provider.imagePrompts)
	}
	if outcome.Candidate.PromptSnapshot != "edited prompt" {
		t.Errorf("expected snapshot of edited prompt, got %q", outcome.Candidate.PromptSnapshot)
	}
}

func TestRunNext_VideoReferencePassedThrough(t *testing.T) {
	f := newFixture(t)
	task := model.NewTask(f.project.ID, model.TaskTypeVideo, "stub-model", map[string]string{
		model.InputRefShotID:        f.shot.ID,
		model.InputRefProjectRoot:   f.project.RootPath,
		model.InputRefReferencePath: "https://example.com/ref.png",
	})
	if err := f.store.AddTask(f.project, task); err != nil {
		t.Fatalf("AddTask failed: %v", err)
	}
	f.queue.Enqueue(task)

	outcome := f.runner.RunNext(context.Background())
	if outcome == nil || outcome.Err != nil {
		t.Fatalf("expected success, got %+v", outcome)
	}

	input, _ := outcome.Task.RequestPayload["input"].(map[string]any)
	if input == nil || input["image_url"] != "https://example.com/ref.png" {
		t.Errorf("expected reference in request payload, got %v", outcome.Task.RequestPayload)
	}
}

func TestRunNext_ProviderErrorKeepsCode(t *testing.T) {
	f := newFixture(t)
	task := f.enqueueTask(t, model.TaskTypeImage)
	f.provider.failWith = &client.ProviderError{Code: "HTTP_500", Message: "server error"}

	outcome := f.runner.RunNext(context.Background())
	if outcome == nil || outcome.Err == nil {
		t.Fatalf("expected failure, got %+v", outcome)
	}
	if outcome.Err.Code != "HTTP_500" {
		t.Errorf("expected HTTP_500, got %s", outcome.Err.Code)
	}
	if outcome.Err.Retryable {
		t.Error("expected non-retryable error")
	}

	persisted, err := f.store.LoadTask(f.project, task.ID)
	if err != nil {
		t.Fatalf("LoadTask failed: %v", err)
	}
	if persisted.State != model.TaskStateFailed || persisted.Error == nil || persisted.Error.Code != "HTTP_500" {
		t.Errorf("expected persisted failure with code, got %+v", persisted)
	}
}

func TestRunNext_GenericErrorBecomesTaskFailed(t *testing.T) {
	f := newFixture(t)
	f.enqueueTask(t, model.TaskTypeImage)
	f.provider.failWith = errors.New("connection reset")

	outcome := f.runner.RunNext(context.Background())
	if outcome == nil || outcome.Err == nil {
		t.Fatalf("expected failure, got %+v", outcome)
	}
	if outcome.Err.Code != client.CodeTaskFailed {
		t.Errorf("expected TASK_FAILED, got %s", outcome.Err.Code)
	}
}

func TestRunNext_MissingShotFails(t *testing.T) {
	f := newFixture(t)
	task := model.NewTask(f.project.ID, model.TaskTypeImage, "stub-model", map[string]string{
		model.InputRefShotID:      "missing-shot",
		model.InputRefProjectRoot: f.project.RootPath,
	})
	if err := f.store.AddTask(f.project, task); err != nil {
		t.Fatalf("AddTask failed: %v", err)
	}
	f.queue.Enqueue(task)

	outcome := f.runner.RunNext(context.Background())
	if outcome == nil || outcome.Err == nil {
		t.Fatalf("expected failure, got %+v", outcome)
	}
	if outcome.Task.State != model.TaskStateFailed {
		t.Errorf("expected failed, got %s", outcome.Task.State)
	}
}

// Status polling happens on request goroutines while the worker
// mutates the task, so every view handed out of the queue has to be a
// detached copy. Run under -race.
func TestRunNext_ConcurrentStatusReads(t *testing.T) {
	f := newFixture(t)
	task := f.enqueueTask(t, model.TaskTypeImage)

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			if found, ok := f.queue.Find(task.ID); ok {
				_ = found.State
				_ = found.Progress
				_ = found.OutputRefs[model.OutputRefCandidateID]
			}
		}
	}()

	outcome := f.runner.RunNext(context.Background())
	close(stop)
	wg.Wait()

	if outcome == nil || outcome.Err != nil {
		t.Fatalf("expected success, got %+v", outcome)
	}
	if outcome.Task.State != model.TaskStateSucceeded {
		t.Errorf("expected succeeded, got %s", outcome.Task.State)
	}
}

func TestRunNext_FIFOAcrossCycles(t *testing.T) {
	f := newFixture(t)
	first := f.enqueueTask(t, model.TaskTypeImage)
	second := f.enqueueTask(t, model.TaskTypeImage)

	outcome := f.runner.RunNext(context.Background())
	if outcome == nil || outcome.Task.ID != first.ID {
		t.Fatalf("expected first task, got %+v", outcome)
	}
	outcome = f.runner.RunNext(context.Background())
	if outcome == nil || outcome.Task.ID != second.ID {
		t.Fatalf("expected second task, got %+v", outcome)
	}
}
