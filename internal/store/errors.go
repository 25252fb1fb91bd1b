package store

import "errors"

var (
	// ErrProjectExists is returned by CreateProject when the target
	// root already holds a project document.
	ErrProjectExists = errors.New("project already exists")

	// ErrNotFound is returned when a project document or an indexed
	// entity file is missing on disk.
	ErrNotFound = errors.New("not found")
)
