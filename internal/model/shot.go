package model

import "time"

// ShotParams are the render parameters attached to a shot.
type ShotParams struct {
	ShotType         string  `json:"shot_type"`
	CameraMotion     string  `json:"camera_motion"`
	Lighting         string  `json:"lighting"`
	Style            string  `json:"style"`
	DurationSec      float64 `json:"duration_sec"`
	ResolutionPreset string  `json:"resolution_preset"`
	Seed             *int64  `json:"seed"`
}

// DefaultShotParams returns the stock 4s / 1080p parameters.
func DefaultShotParams() ShotParams {
	return ShotParams{
		DurationSec:      4.0,
		ResolutionPreset: "1080p",
	}
}

// Normalize fills zero fields with the stock defaults.
func (p *ShotParams) Normalize() {
	if p.DurationSec == 0 {
		p.DurationSec = 4.0
	}
	if p.ResolutionPreset == "" {
		p.ResolutionPreset = "1080p"
	}
}

// Shot is the atomic unit describing one requested clip: prompt text
// plus render parameters. SelectedCandidateID, when set, must name a
// candidate whose shot_id points back here.
type Shot struct {
	ID                  string     `json:"id"`
	ProjectID           string     `json:"project_id"`
	SequenceID          string     `json:"sequence_id"`
	SceneID             string     `json:"scene_id"`
	Order               int        `json:"order"`
	Prompt              string     `json:"prompt"`
	Params              ShotParams `json:"params"`
	ReferenceAssetIDs   []string   `json:"reference_asset_ids"`
	SelectedCandidateID string     `json:"selected_candidate_id"`
	Status              ShotStatus `json:"status"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// NewShot creates a draft shot with default render parameters.
func NewShot(projectID, sequenceID, sceneID string, order int, prompt string) *Shot {
	now := Now()
	return &Shot{
		ID:                NewID(),
		ProjectID:         projectID,
		SequenceID:        sequenceID,
		SceneID:           sceneID,
		Order:             order,
		Prompt:            prompt,
		Params:            DefaultShotParams(),
		ReferenceAssetIDs: []string{},
		Status:            ShotStatusDraft,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// Touch bumps the updated timestamp.
func (s *Shot) Touch() {
	s.UpdatedAt = Now()
}

// Normalize applies sane defaults after a tolerant decode.
func (s *Shot) Normalize() {
	s.Params.Normalize()
	if s.ReferenceAssetIDs == nil {
		s.ReferenceAssetIDs = []string{}
	}
	if s.Status == "" {
		s.Status = ShotStatusDraft
	}
}
