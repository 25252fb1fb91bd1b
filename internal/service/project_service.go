package service

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/smartdirector/api/internal/model"
	"github.com/smartdirector/api/internal/store"
)

var (
	// ErrInvalidProjectName rejects names that cannot serve as a
	// directory under the projects dir.
	ErrInvalidProjectName = errors.New("invalid project name")

	// ErrCandidateMismatch rejects selecting a candidate that was not
	// produced for the shot.
	ErrCandidateMismatch = errors.New("candidate does not belong to shot")
)

// ProjectService exposes project graph operations over the file store.
// One project maps to one directory under the configured projects dir.
type ProjectService struct {
	store       *store.ProjectStore
	projectsDir string
}

func NewProjectService(projectStore *store.ProjectStore, projectsDir string) *ProjectService {
	return &ProjectService{
		store:       projectStore,
		projectsDir: projectsDir,
	}
}

// ResolveRoot maps a project name onto its directory. Names with path
// separators or relative components are rejected.
func (s *ProjectService) ResolveRoot(name string) (string, error) {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidProjectName, name)
	}
	return filepath.Join(s.projectsDir, name), nil
}

// CreateProject initializes a new project directory.
func (s *ProjectService) CreateProject(req *model.ProjectCreateRequest) (*model.Project, error) {
	root, err := s.ResolveRoot(req.Name)
	if err != nil {
		return nil, err
	}
	defaults := model.DefaultProjectDefaults()
	if req.Defaults != nil {
		defaults = *req.Defaults
		defaults.Normalize()
	}
	return s.store.CreateProject(root, req.Name, defaults)
}

// ListProjects scans the projects dir for loadable project documents.
func (s *ProjectService) ListProjects() ([]model.ProjectSummary, error) {
	entries, err := os.ReadDir(s.projectsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []model.ProjectSummary{}, nil
		}
		return nil, err
	}

	summaries := []model.ProjectSummary{}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		project, err := s.store.LoadProject(filepath.Join(s.projectsDir, entry.Name()))
		if err != nil {
			continue
		}
		summaries = append(summaries, model.ProjectSummary{
			ID:        project.ID,
			Name:      project.Name,
			Dir:       entry.Name(),
			ShotCount: len(project.ShotIDs),
			TaskCount: len(project.TaskIDs),
			UpdatedAt: project.UpdatedAt,
		})
	}
	return summaries, nil
}

// GetProject loads one project by name.
func (s *ProjectService) GetProject(name string) (*model.Project, error) {
	root, err := s.ResolveRoot(name)
	if err != nil {
		return nil, err
	}
	return s.store.LoadProject(root)
}

// RebuildIndex rescans the project's entity directories and replaces
// the index lists with what is actually on disk.
func (s *ProjectService) RebuildIndex(name string) (*model.Project, error) {
	project, err := s.GetProject(name)
	if err != nil {
		return nil, err
	}
	if err := s.store.RebuildIndex(project); err != nil {
		return nil, err
	}
	return project, nil
}

// EnsureDefaultStructure creates "Sequence 1" and "Scene 1" for a
// project that has none yet, and returns the ids new shots should hang
// from. Repeated calls are idempotent.
func (s *ProjectService) EnsureDefaultStructure(project *model.Project) (sequenceID, sceneID string, err error) {
	if len(project.SequenceIDs) == 0 {
		sequence := model.NewSequence(project.ID, "Sequence 1", 1, project.Defaults)
		if err := s.store.AddSequence(project, sequence); err != nil {
			return "", "", err
		}
		sequenceID = sequence.ID
	} else {
		sequenceID = project.SequenceIDs[0]
	}

	if len(project.SceneIDs) == 0 {
		scene := model.NewScene(project.ID, sequenceID, "Scene 1", 1)
		if err := s.store.AddScene(project, scene); err != nil {
			return "", "", err
		}
		sceneID = scene.ID
	} else {
		sceneID = project.SceneIDs[0]
	}
	return sequenceID, sceneID, nil
}

// CreateShot adds a draft shot to the project's default scene.
func (s *ProjectService) CreateShot(name string, req *model.ShotCreateRequest) (*model.Shot, error) {
	project, err := s.GetProject(name)
	if err != nil {
		return nil, err
	}

	sequenceID, sceneID, err := s.EnsureDefaultStructure(project)
	if err != nil {
		return nil, err
	}

	shot := model.NewShot(project.ID, sequenceID, sceneID, len(project.ShotIDs)+1, req.Prompt)
	if req.Params != nil {
		shot.Params = *req.Params
		shot.Params.Normalize()
	}
	if err := s.store.AddShot(project, shot); err != nil {
		return nil, err
	}
	return shot, nil
}

// GetShot loads one shot by id.
func (s *ProjectService) GetShot(name, shotID string) (*model.Shot, error) {
	project, err := s.GetProject(name)
	if err != nil {
		return nil, err
	}
	return s.store.LoadShot(project, shotID)
}

// UpdateShot edits a shot's prompt, params or candidate selection. A
// selection must name a candidate whose shot_id matches.
func (s *ProjectService) UpdateShot(name, shotID string, req *model.ShotUpdateRequest) (*model.Shot, error) {
	project, err := s.GetProject(name)
	if err != nil {
		return nil, err
	}
	shot, err := s.store.LoadShot(project, shotID)
	if err != nil {
		return nil, err
	}

	if req.Prompt != nil {
		shot.Prompt = *req.Prompt
	}
	if req.Params != nil {
		shot.Params = *req.Params
		shot.Params.Normalize()
	}
	if req.SelectedCandidateID != nil {
		if *req.SelectedCandidateID == "" {
			shot.SelectedCandidateID = ""
		} else {
			candidate, err := s.store.LoadCandidate(project, *req.SelectedCandidateID)
			if err != nil {
				return nil, err
			}
			if candidate.ShotID != shot.ID {
				return nil, fmt.Errorf("%w: candidate %s is for shot %s", ErrCandidateMismatch, candidate.ID, candidate.ShotID)
			}
			shot.SelectedCandidateID = candidate.ID
			shot.Status = model.ShotStatusSelected
		}
	}

	if err := s.store.SaveShot(project, shot); err != nil {
		return nil, err
	}
	return shot, nil
}

// ImportAsset registers a local media file with the project, recording
// its content hash and, for images, pixel dimensions.
func (s *ProjectService) ImportAsset(name string, req *model.AssetImportRequest) (*model.Asset, error) {
	project, err := s.GetProject(name)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(req.LocalURI)
	if err != nil {
		return nil, fmt.Errorf("cannot read asset file: %w", err)
	}
	defer f.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return nil, fmt.Errorf("cannot hash asset file: %w", err)
	}

	assetType := req.Type
	if assetType == "" {
		assetType = model.AssetTypeImage
	}

	asset := model.NewAsset(project.ID, assetType, req.LocalURI)
	asset.SHA256 = hex.EncodeToString(hasher.Sum(nil))
	if req.Tags != nil {
		asset.Tags = req.Tags
	}
	if assetType == model.AssetTypeImage {
		asset.Width, asset.Height = readImageSize(req.LocalURI)
	}

	if err := s.store.AddAsset(project, asset); err != nil {
		return nil, err
	}
	return asset, nil
}

// ListCandidates returns the candidates produced for one shot.
func (s *ProjectService) ListCandidates(name, shotID string) ([]*model.Candidate, error) {
	project, err := s.GetProject(name)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.LoadShot(project, shotID); err != nil {
		return nil, err
	}

	candidates := []*model.Candidate{}
	for _, id := range project.CandidateIDs {
		candidate, err := s.store.LoadCandidate(project, id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return nil, err
		}
		if candidate.ShotID == shotID {
			candidates = append(candidates, candidate)
		}
	}
	return candidates, nil
}

func readImageSize(localPath string) (int, int) {
	f, err := os.Open(localPath)
	if err != nil {
		return 0, 0
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0
	}
	return cfg.Width, cfg.Height
}
