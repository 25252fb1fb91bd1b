package model

import "time"

// ProjectCreateRequest creates a new project under the projects dir.
type ProjectCreateRequest struct {
	Name     string           `json:"name" validate:"required,min=1,max=120"`
	Defaults *ProjectDefaults `json:"defaults,omitempty"`
}

// ProjectSummary is the listing entry for a project on disk.
type ProjectSummary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Dir       string    `json:"dir"`
	ShotCount int       `json:"shot_count"`
	TaskCount int       `json:"task_count"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ShotCreateRequest creates a shot in the project's default scene.
type ShotCreateRequest struct {
	Prompt string      `json:"prompt" validate:"required,min=1"`
	Params *ShotParams `json:"params,omitempty"`
}

// ShotUpdateRequest edits a shot. Nil fields are left untouched.
type ShotUpdateRequest struct {
	Prompt              *string     `json:"prompt,omitempty"`
	Params              *ShotParams `json:"params,omitempty"`
	SelectedCandidateID *string     `json:"selected_candidate_id,omitempty"`
}

// AssetImportRequest registers a local media file with the project.
type AssetImportRequest struct {
	LocalURI string    `json:"local_uri" validate:"required"`
	Type     AssetType `json:"type,omitempty" validate:"omitempty,oneof=image video audio"`
	Tags     []string  `json:"tags,omitempty"`
}

// RenderStartRequest queues one generation task for a shot.
type RenderStartRequest struct {
	ShotID       string   `json:"shot_id" validate:"required"`
	Type         TaskType `json:"type" validate:"required,oneof=image video"`
	ReferenceURL string   `json:"reference_url,omitempty"`
}

// RenderStartResponse acknowledges a queued task.
type RenderStartResponse struct {
	TaskID    string    `json:"task_id"`
	State     TaskState `json:"state"`
	Model     string    `json:"model"`
	CreatedAt time.Time `json:"created_at"`
}

// RenderStatusResponse reports the current view of a task.
type RenderStatusResponse struct {
	TaskID     string            `json:"task_id"`
	Type       TaskType          `json:"type"`
	State      TaskState         `json:"state"`
	Model      string            `json:"model"`
	Progress   float64           `json:"progress"`
	Error      *TaskError        `json:"error,omitempty"`
	OutputRefs map[string]string `json:"output_refs,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}
