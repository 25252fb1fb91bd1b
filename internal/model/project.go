package model

import "time"

// ProjectDefaults holds the render parameters applied to new sequences
// and shots unless overridden.
type ProjectDefaults struct {
	AspectRatio      string `json:"aspect_ratio"`
	FPS              int    `json:"fps"`
	ResolutionPreset string `json:"resolution_preset"`
}

// DefaultProjectDefaults returns the stock 16:9 / 24fps / 1080p defaults.
func DefaultProjectDefaults() ProjectDefaults {
	return ProjectDefaults{
		AspectRatio:      "16:9",
		FPS:              24,
		ResolutionPreset: "1080p",
	}
}

// Normalize fills zero fields with the stock defaults.
func (d *ProjectDefaults) Normalize() {
	if d.AspectRatio == "" {
		d.AspectRatio = "16:9"
	}
	if d.FPS == 0 {
		d.FPS = 24
	}
	if d.ResolutionPreset == "" {
		d.ResolutionPreset = "1080p"
	}
}

// Project is the aggregate root. The id lists are the authoritative
// index over the per-entity files under the project root; divergence is
// healed only by an explicit rebuild.
type Project struct {
	ID            string          `json:"id"`
	SchemaVersion string          `json:"schema_version"`
	Name          string          `json:"name"`
	RootPath      string          `json:"root_path"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	Defaults      ProjectDefaults `json:"defaults"`
	SequenceIDs   []string        `json:"sequence_ids"`
	SceneIDs      []string        `json:"scene_ids"`
	ShotIDs       []string        `json:"shot_ids"`
	AssetIDs      []string        `json:"asset_ids"`
	CandidateIDs  []string        `json:"candidate_ids"`
	TaskIDs       []string        `json:"task_ids"`
}

// NewProject creates a project with a fresh id and creation timestamp.
func NewProject(name, rootPath string, defaults ProjectDefaults) *Project {
	now := Now()
	defaults.Normalize()
	p := &Project{
		ID:            NewID(),
		SchemaVersion: SchemaVersion,
		Name:          name,
		RootPath:      rootPath,
		CreatedAt:     now,
		UpdatedAt:     now,
		Defaults:      defaults,
	}
	p.Normalize()
	return p
}

// Touch bumps the updated timestamp.
func (p *Project) Touch() {
	p.UpdatedAt = Now()
}

// Normalize applies sane defaults to fields a tolerant decode may have
// left empty.
func (p *Project) Normalize() {
	if p.SchemaVersion == "" {
		p.SchemaVersion = SchemaVersion
	}
	if p.Name == "" {
		p.Name = "Untitled Project"
	}
	p.Defaults.Normalize()
	if p.SequenceIDs == nil {
		p.SequenceIDs = []string{}
	}
	if p.SceneIDs == nil {
		p.SceneIDs = []string{}
	}
	if p.ShotIDs == nil {
		p.ShotIDs = []string{}
	}
	if p.AssetIDs == nil {
		p.AssetIDs = []string{}
	}
	if p.CandidateIDs == nil {
		p.CandidateIDs = []string{}
	}
	if p.TaskIDs == nil {
		p.TaskIDs = []string{}
	}
}
