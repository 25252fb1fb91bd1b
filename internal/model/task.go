package model

import "time"

// TaskError is the structured, machine-readable failure attached to a
// task that reached the failed state.
type TaskError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
	Provider  string `json:"provider"`
	Model     string `json:"model"`
	TraceID   string `json:"trace_id"`
}

// Task is one queued or dispatched unit of provider work.
//
// RetryCount is persisted but no code path increments or consults it;
// automatic retries are not performed.
type Task struct {
	ID             string            `json:"id"`
	ProjectID      string            `json:"project_id"`
	Type           TaskType          `json:"type"`
	Model          string            `json:"model"`
	State          TaskState         `json:"state"`
	InputRefs      map[string]string `json:"input_refs"`
	RequestPayload map[string]any    `json:"request_payload"`
	ProviderTaskID string            `json:"provider_task_id"`
	Progress       float64           `json:"progress"`
	RetryCount     int               `json:"retry_count"`
	Priority       TaskPriority      `json:"priority"`
	Error          *TaskError        `json:"error"`
	OutputRefs     map[string]string `json:"output_refs"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// Input ref keys understood by the runner.
const (
	InputRefShotID        = "shot_id"
	InputRefProjectRoot   = "project_root"
	InputRefReferencePath = "reference_path"
)

// Output ref keys written by the runner.
const (
	OutputRefCandidateID = "candidate_id"
)

// NewTask creates a queued task.
func NewTask(projectID string, taskType TaskType, modelID string, inputRefs map[string]string) *Task {
	now := Now()
	if inputRefs == nil {
		inputRefs = map[string]string{}
	}
	return &Task{
		ID:             NewID(),
		ProjectID:      projectID,
		Type:           taskType,
		Model:          modelID,
		State:          TaskStateQueued,
		InputRefs:      inputRefs,
		RequestPayload: map[string]any{},
		Priority:       TaskPriorityP1,
		OutputRefs:     map[string]string{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Touch bumps the updated timestamp.
func (t *Task) Touch() {
	t.UpdatedAt = Now()
}

// Clone returns a copy safe to hand to another goroutine: fresh maps
// and a copied error record.
func (t *Task) Clone() *Task {
	clone := *t
	clone.InputRefs = make(map[string]string, len(t.InputRefs))
	for k, v := range t.InputRefs {
		clone.InputRefs[k] = v
	}
	clone.RequestPayload = make(map[string]any, len(t.RequestPayload))
	for k, v := range t.RequestPayload {
		clone.RequestPayload[k] = v
	}
	clone.OutputRefs = make(map[string]string, len(t.OutputRefs))
	for k, v := range t.OutputRefs {
		clone.OutputRefs[k] = v
	}
	if t.Error != nil {
		errCopy := *t.Error
		clone.Error = &errCopy
	}
	return &clone
}

// Normalize applies sane defaults after a tolerant decode.
func (t *Task) Normalize() {
	if t.State == "" {
		t.State = TaskStateQueued
	}
	if t.Priority == "" {
		t.Priority = TaskPriorityP1
	}
	if t.InputRefs == nil {
		t.InputRefs = map[string]string{}
	}
	if t.RequestPayload == nil {
		t.RequestPayload = map[string]any{}
	}
	if t.OutputRefs == nil {
		t.OutputRefs = map[string]string{}
	}
}
