package model

import "time"

// Asset is an imported media reference.
type Asset struct {
	ID          string      `json:"id"`
	ProjectID   string      `json:"project_id"`
	Type        AssetType   `json:"type"`
	LocalURI    string      `json:"local_uri"`
	SHA256      string      `json:"sha256"`
	Tags        []string    `json:"tags"`
	Width       int         `json:"width"`
	Height      int         `json:"height"`
	DurationSec float64     `json:"duration_sec"`
	Source      AssetSource `json:"source"`
	CreatedAt   time.Time   `json:"created_at"`
}

// NewAsset creates an imported asset record.
func NewAsset(projectID string, assetType AssetType, localURI string) *Asset {
	return &Asset{
		ID:        NewID(),
		ProjectID: projectID,
		Type:      assetType,
		LocalURI:  localURI,
		Tags:      []string{},
		Source:    AssetSourceImported,
		CreatedAt: Now(),
	}
}

// Normalize applies sane defaults after a tolerant decode.
func (a *Asset) Normalize() {
	if a.Type == "" {
		a.Type = AssetTypeImage
	}
	if a.Tags == nil {
		a.Tags = []string{}
	}
	if a.Source == "" {
		a.Source = AssetSourceImported
	}
}
