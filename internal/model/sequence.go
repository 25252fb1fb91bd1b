package model

import "time"

// Sequence is an ordered shot container with its own fps and aspect
// ratio override.
type Sequence struct {
	ID          string    `json:"id"`
	ProjectID   string    `json:"project_id"`
	Name        string    `json:"name"`
	Order       int       `json:"order"`
	FPS         int       `json:"fps"`
	AspectRatio string    `json:"aspect_ratio"`
	ClipIDs     []string  `json:"clip_ids"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewSequence creates a sequence inheriting fps/aspect from the project
// defaults.
func NewSequence(projectID, name string, order int, defaults ProjectDefaults) *Sequence {
	now := Now()
	defaults.Normalize()
	return &Sequence{
		ID:          NewID(),
		ProjectID:   projectID,
		Name:        name,
		Order:       order,
		FPS:         defaults.FPS,
		AspectRatio: defaults.AspectRatio,
		ClipIDs:     []string{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Touch bumps the updated timestamp.
func (s *Sequence) Touch() {
	s.UpdatedAt = Now()
}

// Normalize applies sane defaults after a tolerant decode.
func (s *Sequence) Normalize() {
	if s.Name == "" {
		s.Name = "Untitled Sequence"
	}
	if s.FPS == 0 {
		s.FPS = 24
	}
	if s.AspectRatio == "" {
		s.AspectRatio = "16:9"
	}
	if s.ClipIDs == nil {
		s.ClipIDs = []string{}
	}
}
