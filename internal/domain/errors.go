package domain

import "errors"

var (
	ErrNoEnabledSources = errors.New("no enabled sources")
	ErrSourceLocked     = errors.New("sync already in progress")
	ErrNotFound         = errors.New("not found")
	ErrDuplicate        = errors.New("duplicate")
)
