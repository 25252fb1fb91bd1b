package runner

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"

	"github.com/smartdirector/api/internal/client"
	"github.com/smartdirector/api/internal/model"
	"github.com/smartdirector/api/internal/queue"
	"github.com/smartdirector/api/internal/store"
)

// Outcome is the result of one dispatch cycle. Task is a detached
// snapshot of the terminal state. Exactly one of Candidate and Err is
// set.
type Outcome struct {
	Task      *model.Task
	Candidate *model.Candidate
	Err       *model.TaskError
}

// TaskRunner pops one runnable task per cycle, resolves its shot,
// invokes the matching provider, and persists the outcome. It is the
// single boundary converting any failure into a persisted task error;
// RunNext itself never fails.
type TaskRunner struct {
	store *store.ProjectStore
	queue *queue.TaskQueue
	image client.ImageGenerator
	video client.VideoGenerator
}

// NewTaskRunner creates a runner over the given store, queue and
// providers.
func NewTaskRunner(projectStore *store.ProjectStore, taskQueue *queue.TaskQueue, image client.ImageGenerator, video client.VideoGenerator) *TaskRunner {
	return &TaskRunner{
		store: projectStore,
		queue: taskQueue,
		image: image,
		video: video,
	}
}

// RunNext performs one full dispatch cycle, including the entire
// polling wait for video tasks. It returns nil when no task is
// runnable. Retries are never performed.
func (r *TaskRunner) RunNext(ctx context.Context) *Outcome {
	task := r.queue.StartNext()
	if task == nil {
		return nil
	}

	log.Printf("[Runner] Starting %s task %s", task.Type, task.ID)

	candidate, err := r.dispatch(ctx, task)
	if err != nil {
		return r.fail(task, err)
	}

	done := r.queue.MarkSuccess(task.ID, candidate.ID)
	if done == nil {
		// Cancelled while the provider call was in flight; the cancel
		// path owns the persisted record.
		log.Printf("[Runner] Task %s was cancelled mid-flight, dropping result", task.ID)
		return nil
	}
	if err := r.persistTask(done); err != nil {
		// The candidate file and index entry are already on disk and
		// are left in place so the artifact stays reachable, even
		// though the task record ends failed.
		return r.fail(task, fmt.Errorf("failed to persist succeeded task: %w", err))
	}

	log.Printf("[Runner] Task %s succeeded, candidate %s", task.ID, candidate.ID)
	return &Outcome{Task: done, Candidate: candidate}
}

// fail records the terminal failure on the queue and, best-effort, on
// disk. A secondary failure while persisting the failure record is
// swallowed.
func (r *TaskRunner) fail(task *model.Task, cause error) *Outcome {
	taskErr := classifyError(cause, task)
	failed := r.queue.MarkFailed(task.ID, taskErr)
	if failed == nil {
		log.Printf("[Runner] Task %s finished after cancellation: %s", task.ID, taskErr.Code)
		return nil
	}
	if err := r.persistTask(failed); err != nil {
		log.Printf("[Runner] Could not persist failure record for task %s: %v", task.ID, err)
	}
	log.Printf("[Runner] Task %s failed: %s", task.ID, taskErr.Code)
	return &Outcome{Task: failed, Err: taskErr}
}

func (r *TaskRunner) dispatch(ctx context.Context, task *model.Task) (*model.Candidate, error) {
	rootDir := task.InputRefs[model.InputRefProjectRoot]
	if rootDir == "" {
		return nil, fmt.Errorf("task %s carries no project_root input ref", task.ID)
	}
	project, err := r.store.LoadProject(rootDir)
	if err != nil {
		return nil, err
	}

	shot, err := r.store.LoadShot(project, task.InputRefs[model.InputRefShotID])
	if err != nil {
		return nil, err
	}

	// Prompt and params are captured now, at dispatch. An edit made
	// after enqueue is the one that gets rendered and snapshotted.
	prompt := shot.Prompt
	outputDir := filepath.Join(project.RootPath, store.DirCandidates, task.ID)

	var localPath, resultModel string
	switch task.Type {
	case model.TaskTypeImage:
		r.queue.SetRequestPayload(task.ID, map[string]any{
			"model": task.Model,
			"input": map[string]any{"prompt": prompt},
		})
		result, err := r.image.GenerateImage(ctx, prompt, outputDir)
		if err != nil {
			return nil, err
		}
		localPath, resultModel = result.LocalPath, result.Model

	case model.TaskTypeVideo:
		referenceURL := task.InputRefs[model.InputRefReferencePath]
		input := map[string]any{"prompt": prompt}
		if referenceURL != "" {
			input["image_url"] = referenceURL
		}
		r.queue.SetRequestPayload(task.ID, map[string]any{
			"model": task.Model,
			"input": input,
		})
		result, err := r.video.GenerateVideo(ctx, prompt, outputDir, referenceURL)
		if err != nil {
			return nil, err
		}
		localPath, resultModel = result.LocalPath, result.Model

	default:
		return nil, fmt.Errorf("unsupported task type: %s", task.Type)
	}

	candidate := model.NewCandidate(project.ID, shot.ID, task.Type, resultModel, task.ID, localPath, prompt, shot.Params)
	if err := r.store.AddCandidate(project, candidate); err != nil {
		return nil, err
	}
	return candidate, nil
}

func (r *TaskRunner) persistTask(task *model.Task) error {
	project, err := r.store.LoadProject(task.InputRefs[model.InputRefProjectRoot])
	if err != nil {
		return err
	}
	return r.store.SaveTask(project, task)
}

// classifyError maps any dispatch failure onto one structured,
// non-retryable task error. Provider errors keep their taxonomy code;
// everything else becomes TASK_FAILED.
func classifyError(err error, task *model.Task) *model.TaskError {
	var providerErr *client.ProviderError
	if errors.As(err, &providerErr) {
		return &model.TaskError{
			Code:    providerErr.Code,
			Message: providerErr.Message,
			Model:   task.Model,
		}
	}
	return &model.TaskError{
		Code:    client.CodeTaskFailed,
		Message: err.Error(),
		Model:   task.Model,
	}
}
