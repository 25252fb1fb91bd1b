package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/smartdirector/api/internal/model"
)

// ProjectFile is the name of the root project document.
const ProjectFile = "project.json"

// Entity subdirectories under a project root.
const (
	DirSequences  = "sequences"
	DirScenes     = "scenes"
	DirShots      = "shots"
	DirAssets     = "assets"
	DirCandidates = "candidates"
	DirTasks      = "tasks"
)

var projectSubdirs = []string{
	DirSequences, DirScenes, DirShots, DirAssets, DirCandidates, DirTasks,
	"cache", "logs",
}

// ProjectStore persists a project graph as one JSON document per
// entity under the project root. Add operations write the entity file
// first and the index second, so a crash in between leaves an orphan
// file rather than a dangling reference; RebuildIndex is the repair
// path. The store does no locking; one writer process per project.
type ProjectStore struct{}

// NewProjectStore creates a ProjectStore.
func NewProjectStore() *ProjectStore {
	return &ProjectStore{}
}

// CreateProject initializes the directory structure at rootDir and
// writes a fresh project document. It fails if one already exists.
func (s *ProjectStore) CreateProject(rootDir, name string, defaults model.ProjectDefaults) (*model.Project, error) {
	rootDir, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, err
	}
	projectPath := filepath.Join(rootDir, ProjectFile)
	if _, err := os.Stat(projectPath); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrProjectExists, projectPath)
	}

	if err := s.ensureStructure(rootDir); err != nil {
		return nil, err
	}

	project := model.NewProject(name, rootDir, defaults)
	if err := s.SaveProject(project); err != nil {
		return nil, err
	}
	return project, nil
}

// LoadProject reads the project document at rootDir.
func (s *ProjectStore) LoadProject(rootDir string) (*model.Project, error) {
	rootDir, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, err
	}
	projectPath := filepath.Join(rootDir, ProjectFile)
	data, err := os.ReadFile(projectPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, projectPath)
		}
		return nil, err
	}

	var project model.Project
	if err := json.Unmarshal(data, &project); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", projectPath, err)
	}
	project.Normalize()
	project.RootPath = rootDir
	return &project, nil
}

// SaveProject writes the root project document, touching its updated
// timestamp.
func (s *ProjectStore) SaveProject(project *model.Project) error {
	if project.RootPath == "" {
		return fmt.Errorf("project root_path is empty")
	}
	if err := s.ensureStructure(project.RootPath); err != nil {
		return err
	}
	project.Touch()
	return writeJSON(filepath.Join(project.RootPath, ProjectFile), project)
}

// AddSequence persists the sequence and appends it to the index.
func (s *ProjectStore) AddSequence(project *model.Project, sequence *model.Sequence) error {
	if err := s.SaveSequence(project, sequence); err != nil {
		return err
	}
	if !contains(project.SequenceIDs, sequence.ID) {
		project.SequenceIDs = append(project.SequenceIDs, sequence.ID)
		return s.SaveProject(project)
	}
	return nil
}

// AddScene persists the scene and appends it to the index.
func (s *ProjectStore) AddScene(project *model.Project, scene *model.Scene) error {
	if err := s.SaveScene(project, scene); err != nil {
		return err
	}
	if !contains(project.SceneIDs, scene.ID) {
		project.SceneIDs = append(project.SceneIDs, scene.ID)
		return s.SaveProject(project)
	}
	return nil
}

// AddShot persists the shot and appends it to the index.
func (s *ProjectStore) AddShot(project *model.Project, shot *model.Shot) error {
	if err := s.SaveShot(project, shot); err != nil {
		return err
	}
	if !contains(project.ShotIDs, shot.ID) {
		project.ShotIDs = append(project.ShotIDs, shot.ID)
		return s.SaveProject(project)
	}
	return nil
}

// AddAsset persists the asset and appends it to the index.
func (s *ProjectStore) AddAsset(project *model.Project, asset *model.Asset) error {
	if err := s.SaveAsset(project, asset); err != nil {
		return err
	}
	if !contains(project.AssetIDs, asset.ID) {
		project.AssetIDs = append(project.AssetIDs, asset.ID)
		return s.SaveProject(project)
	}
	return nil
}

// AddCandidate persists the candidate and appends it to the index.
func (s *ProjectStore) AddCandidate(project *model.Project, candidate *model.Candidate) error {
	if err := s.SaveCandidate(project, candidate); err != nil {
		return err
	}
	if !contains(project.CandidateIDs, candidate.ID) {
		project.CandidateIDs = append(project.CandidateIDs, candidate.ID)
		return s.SaveProject(project)
	}
	return nil
}

// AddTask persists the task and appends it to the index.
func (s *ProjectStore) AddTask(project *model.Project, task *model.Task) error {
	if err := s.SaveTask(project, task); err != nil {
		return err
	}
	if !contains(project.TaskIDs, task.ID) {
		project.TaskIDs = append(project.TaskIDs, task.ID)
		return s.SaveProject(project)
	}
	return nil
}

// SaveSequence overwrites the sequence file.
func (s *ProjectStore) SaveSequence(project *model.Project, sequence *model.Sequence) error {
	sequence.Touch()
	return s.saveEntity(project.RootPath, DirSequences, sequence.ID, sequence)
}

// SaveScene overwrites the scene file.
func (s *ProjectStore) SaveScene(project *model.Project, scene *model.Scene) error {
	scene.Touch()
	return s.saveEntity(project.RootPath, DirScenes, scene.ID, scene)
}

// SaveShot overwrites the shot file.
func (s *ProjectStore) SaveShot(project *model.Project, shot *model.Shot) error {
	shot.Touch()
	return s.saveEntity(project.RootPath, DirShots, shot.ID, shot)
}

// SaveAsset overwrites the asset file.
func (s *ProjectStore) SaveAsset(project *model.Project, asset *model.Asset) error {
	return s.saveEntity(project.RootPath, DirAssets, asset.ID, asset)
}

// SaveCandidate overwrites the candidate file.
func (s *ProjectStore) SaveCandidate(project *model.Project, candidate *model.Candidate) error {
	return s.saveEntity(project.RootPath, DirCandidates, candidate.ID, candidate)
}

// SaveTask overwrites the task file.
func (s *ProjectStore) SaveTask(project *model.Project, task *model.Task) error {
	task.Touch()
	return s.saveEntity(project.RootPath, DirTasks, task.ID, task)
}

// LoadSequence reads one sequence by id.
func (s *ProjectStore) LoadSequence(project *model.Project, sequenceID string) (*model.Sequence, error) {
	var sequence model.Sequence
	if err := s.loadEntity(project.RootPath, DirSequences, sequenceID, &sequence); err != nil {
		return nil, err
	}
	sequence.Normalize()
	return &sequence, nil
}

// LoadScene reads one scene by id.
func (s *ProjectStore) LoadScene(project *model.Project, sceneID string) (*model.Scene, error) {
	var scene model.Scene
	if err := s.loadEntity(project.RootPath, DirScenes, sceneID, &scene); err != nil {
		return nil, err
	}
	scene.Normalize()
	return &scene, nil
}

// LoadShot reads one shot by id.
func (s *ProjectStore) LoadShot(project *model.Project, shotID string) (*model.Shot, error) {
	var shot model.Shot
	if err := s.loadEntity(project.RootPath, DirShots, shotID, &shot); err != nil {
		return nil, err
	}
	shot.Normalize()
	return &shot, nil
}

// LoadAsset reads one asset by id.
func (s *ProjectStore) LoadAsset(project *model.Project, assetID string) (*model.Asset, error) {
	var asset model.Asset
	if err := s.loadEntity(project.RootPath, DirAssets, assetID, &asset); err != nil {
		return nil, err
	}
	asset.Normalize()
	return &asset, nil
}

// LoadCandidate reads one candidate by id.
func (s *ProjectStore) LoadCandidate(project *model.Project, candidateID string) (*model.Candidate, error) {
	var candidate model.Candidate
	if err := s.loadEntity(project.RootPath, DirCandidates, candidateID, &candidate); err != nil {
		return nil, err
	}
	candidate.Normalize()
	return &candidate, nil
}

// LoadTask reads one task by id.
func (s *ProjectStore) LoadTask(project *model.Project, taskID string) (*model.Task, error) {
	var task model.Task
	if err := s.loadEntity(project.RootPath, DirTasks, taskID, &task); err != nil {
		return nil, err
	}
	task.Normalize()
	return &task, nil
}

// ListEntityIDs returns the sorted ids present as files in one typed
// subdirectory, regardless of what the index says.
func (s *ProjectStore) ListEntityIDs(project *model.Project, entityDir string) ([]string, error) {
	dir := filepath.Join(project.RootPath, entityDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, err
	}
	ids := []string{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}
	sort.Strings(ids)
	return ids, nil
}

// RebuildIndex rescans every typed subdirectory and replaces the
// project's id lists with exactly the ids found on disk, then saves.
// This is the sole repair path for the entity-write/index-write crash
// window.
func (s *ProjectStore) RebuildIndex(project *model.Project) error {
	lists := []struct {
		dir    string
		target *[]string
	}{
		{DirSequences, &project.SequenceIDs},
		{DirScenes, &project.SceneIDs},
		{DirShots, &project.ShotIDs},
		{DirAssets, &project.AssetIDs},
		{DirCandidates, &project.CandidateIDs},
		{DirTasks, &project.TaskIDs},
	}
	for _, l := range lists {
		ids, err := s.ListEntityIDs(project, l.dir)
		if err != nil {
			return err
		}
		*l.target = ids
	}
	return s.SaveProject(project)
}

func (s *ProjectStore) ensureStructure(rootDir string) error {
	if err := os.MkdirAll(rootDir, 0o755); err != nil {
		return err
	}
	for _, sub := range projectSubdirs {
		if err := os.MkdirAll(filepath.Join(rootDir, sub), 0o755); err != nil {
			return err
		}
	}
	return nil
}

func (s *ProjectStore) saveEntity(rootDir, entityDir, entityID string, v any) error {
	if err := s.ensureStructure(rootDir); err != nil {
		return err
	}
	return writeJSON(filepath.Join(rootDir, entityDir, entityID+".json"), v)
}

func (s *ProjectStore) loadEntity(rootDir, entityDir, entityID string, v any) error {
	path := filepath.Join(rootDir, entityDir, entityID+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s/%s", ErrNotFound, entityDir, entityID)
		}
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

func contains(ids []string, id string) bool {
	for _, existing := range ids {
		if existing == id {
			return true
		}
	}
	return false
}
