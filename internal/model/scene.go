package model

import "time"

// Scene groups shots under a sequence with a short synopsis.
type Scene struct {
	ID         string    `json:"id"`
	ProjectID  string    `json:"project_id"`
	SequenceID string    `json:"sequence_id"`
	Name       string    `json:"name"`
	Order      int       `json:"order"`
	Synopsis   string    `json:"synopsis"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// NewScene creates a scene with a fresh id and creation timestamp.
func NewScene(projectID, sequenceID, name string, order int) *Scene {
	now := Now()
	return &Scene{
		ID:         NewID(),
		ProjectID:  projectID,
		SequenceID: sequenceID,
		Name:       name,
		Order:      order,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Touch bumps the updated timestamp.
func (s *Scene) Touch() {
	s.UpdatedAt = Now()
}

// Normalize applies sane defaults after a tolerant decode.
func (s *Scene) Normalize() {
	if s.Name == "" {
		s.Name = "Untitled Scene"
	}
}
