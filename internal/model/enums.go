package model

// Task types
type TaskType string

const (
	TaskTypeImage TaskType = "image"
	TaskTypeVideo TaskType = "video"
)

var ValidTaskTypes = []TaskType{TaskTypeImage, TaskTypeVideo}

// Task states
type TaskState string

const (
	TaskStateQueued    TaskState = "queued"
	TaskStateRunning   TaskState = "running"
	TaskStateSucceeded TaskState = "succeeded"
	TaskStateFailed    TaskState = "failed"
	TaskStateCancelled TaskState = "cancelled"
)

// IsTerminal reports whether no further transition may leave the state.
func (s TaskState) IsTerminal() bool {
	return s == TaskStateSucceeded || s == TaskStateFailed || s == TaskStateCancelled
}

// Task priorities
type TaskPriority string

const (
	TaskPriorityP0 TaskPriority = "P0"
	TaskPriorityP1 TaskPriority = "P1"
	TaskPriorityP2 TaskPriority = "P2"
)

// Shot statuses
type ShotStatus string

const (
	ShotStatusDraft    ShotStatus = "draft"
	ShotStatusRendered ShotStatus = "rendered"
	ShotStatusSelected ShotStatus = "selected"
)

// Candidate statuses
type CandidateStatus string

const (
	CandidateStatusReady    CandidateStatus = "ready"
	CandidateStatusArchived CandidateStatus = "archived"
)

// Asset types
type AssetType string

const (
	AssetTypeImage AssetType = "image"
	AssetTypeVideo AssetType = "video"
	AssetTypeAudio AssetType = "audio"
)

var ValidAssetTypes = []AssetType{AssetTypeImage, AssetTypeVideo, AssetTypeAudio}

// Asset sources
type AssetSource string

const (
	AssetSourceImported  AssetSource = "imported"
	AssetSourceGenerated AssetSource = "generated"
)
