package service

import (
	"errors"
	"log"

	"github.com/smartdirector/api/internal/config"
	"github.com/smartdirector/api/internal/model"
	"github.com/smartdirector/api/internal/queue"
	"github.com/smartdirector/api/internal/store"
	"github.com/smartdirector/api/internal/websocket"
)

var (
	// ErrTaskNotCompleted is returned when a result is requested for a
	// task that has not succeeded.
	ErrTaskNotCompleted = errors.New("task has not completed")

	// ErrTaskNotCancellable is returned when cancelling a task that is
	// already terminal.
	ErrTaskNotCancellable = errors.New("task cannot be cancelled")
)

// RenderService queues generation tasks and reports on their progress.
type RenderService struct {
	store    *store.ProjectStore
	queue    *queue.TaskQueue
	hub      *websocket.Hub
	projects *ProjectService
	cfg      *config.DashScopeConfig
}

func NewRenderService(projectStore *store.ProjectStore, taskQueue *queue.TaskQueue, hub *websocket.Hub, projects *ProjectService, cfg *config.DashScopeConfig) *RenderService {
	return &RenderService{
		store:    projectStore,
		queue:    taskQueue,
		hub:      hub,
		projects: projects,
		cfg:      cfg,
	}
}

// StartRender persists a queued task for the shot and hands it to the
// queue. The shot's prompt is read at dispatch time, not here.
func (s *RenderService) StartRender(name string, req *model.RenderStartRequest) (*model.Task, error) {
	project, err := s.projects.GetProject(name)
	if err != nil {
		return nil, err
	}
	shot, err := s.store.LoadShot(project, req.ShotID)
	if err != nil {
		return nil, err
	}

	modelID := s.cfg.ImageModel
	if req.Type == model.TaskTypeVideo {
		modelID = s.cfg.VideoT2VModel
	}

	inputRefs := map[string]string{
		model.InputRefShotID:      shot.ID,
		model.InputRefProjectRoot: project.RootPath,
	}
	if req.Type == model.TaskTypeVideo && req.ReferenceURL != "" {
		inputRefs[model.InputRefReferencePath] = req.ReferenceURL
	}

	task := model.NewTask(project.ID, req.Type, modelID, inputRefs)
	if err := s.store.AddTask(project, task); err != nil {
		return nil, err
	}

	// The queue takes ownership of the task; the worker may start it
	// immediately, so everything after this works on the snapshot.
	queued := s.queue.Enqueue(task)
	log.Printf("[Render] Queued %s task %s for shot %s", queued.Type, queued.ID, shot.ID)
	if s.hub != nil {
		s.hub.BroadcastState(queued.ID, queued.State, queued.Progress)
	}
	return queued, nil
}

// Status reports the live view of a task. In-memory queue state wins
// over the persisted record while the task is in flight, but only for
// tasks belonging to the named project.
func (s *RenderService) Status(name, taskID string) (*model.Task, error) {
	project, err := s.projects.GetProject(name)
	if err != nil {
		return nil, err
	}
	if task, ok := s.queue.Find(taskID); ok && task.ProjectID == project.ID {
		return task, nil
	}
	return s.store.LoadTask(project, taskID)
}

// Result loads the candidate a succeeded task produced.
func (s *RenderService) Result(name, taskID string) (*model.Candidate, error) {
	project, err := s.projects.GetProject(name)
	if err != nil {
		return nil, err
	}
	task, err := s.store.LoadTask(project, taskID)
	if err != nil {
		return nil, err
	}
	if task.State != model.TaskStateSucceeded {
		return nil, ErrTaskNotCompleted
	}
	candidateID := task.OutputRefs[model.OutputRefCandidateID]
	if candidateID == "" {
		return nil, store.ErrNotFound
	}
	return s.store.LoadCandidate(project, candidateID)
}

// Cancel removes a queued or running task from the queue and persists
// the cancelled state. Terminal tasks are not cancellable.
func (s *RenderService) Cancel(name, taskID string) (*model.Task, error) {
	project, err := s.projects.GetProject(name)
	if err != nil {
		return nil, err
	}

	if owned, ok := s.queue.Find(taskID); ok && owned.ProjectID == project.ID && s.queue.Cancel(taskID) {
		task, _ := s.queue.Find(taskID)
		if task != nil {
			if err := s.store.SaveTask(project, task); err != nil {
				log.Printf("[Render] Failed to persist cancelled task %s: %v", taskID, err)
			}
			if s.hub != nil {
				s.hub.BroadcastState(task.ID, task.State, task.Progress)
			}
			log.Printf("[Render] Cancelled task %s", taskID)
			return task, nil
		}
	}

	if _, err := s.store.LoadTask(project, taskID); err != nil {
		return nil, err
	}
	return nil, ErrTaskNotCancellable
}

// Stats reports queue occupancy.
func (s *RenderService) Stats() queue.Stats {
	return s.queue.Stats()
}
