package model

import "time"

// Candidate is one concrete artifact produced by running exactly one
// task. Prompt and params are snapshots taken at dispatch time, so a
// later shot edit cannot change what this artifact was rendered from.
type Candidate struct {
	ID             string          `json:"id"`
	ProjectID      string          `json:"project_id"`
	ShotID         string          `json:"shot_id"`
	Type           TaskType        `json:"type"`
	Model          string          `json:"model"`
	TaskID         string          `json:"task_id"`
	LocalURI       string          `json:"local_uri"`
	PromptSnapshot string          `json:"prompt_snapshot"`
	ParamsSnapshot ShotParams      `json:"params_snapshot"`
	Seed           *int64          `json:"seed"`
	Score          float64         `json:"score"`
	Status         CandidateStatus `json:"status"`
	CreatedAt      time.Time       `json:"created_at"`
}

// NewCandidate creates a ready candidate for a completed task.
func NewCandidate(projectID, shotID string, candidateType TaskType, modelID, taskID, localURI, promptSnapshot string, paramsSnapshot ShotParams) *Candidate {
	return &Candidate{
		ID:             NewID(),
		ProjectID:      projectID,
		ShotID:         shotID,
		Type:           candidateType,
		Model:          modelID,
		TaskID:         taskID,
		LocalURI:       localURI,
		PromptSnapshot: promptSnapshot,
		ParamsSnapshot: paramsSnapshot,
		Seed:           paramsSnapshot.Seed,
		Status:         CandidateStatusReady,
		CreatedAt:      Now(),
	}
}

// Normalize applies sane defaults after a tolerant decode.
func (c *Candidate) Normalize() {
	if c.Type == "" {
		c.Type = TaskTypeImage
	}
	if c.Status == "" {
		c.Status = CandidateStatusReady
	}
	c.ParamsSnapshot.Normalize()
}
