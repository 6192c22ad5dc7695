// Package config defines IndexingOptions (spec.md §6) and the optional
// .volumefind.kdl project-file loader, following the teacher's
// internal/config split between a defaults-carrying struct
// (config.go) and a KDL document walk (kdl_config.go).
package config

import (
	"runtime"
	"time"
)

// IndexingOptions controls one indexing run: which locations to cover,
// what to exclude, and how aggressively to build and persist the index.
// Every field has a documented default, applied by Defaults.
type IndexingOptions struct {
	SpecificDirectories []string
	DriveLetters        []string
	ExcludedPaths       []string
	ExcludedExtensions  []string
	IncludeHidden       bool
	IncludeSystem       bool
	MaxFileSize         *int64
	MaxDepth            *int
	FollowSymlinks      bool
	ParallelThreads     int
	BatchSize           int
	EnableMonitoring    bool
	AutoSaveInterval    *time.Duration
	CompressIndex       bool
	CollectFileSize     bool
}

// Defaults returns the spec's documented default IndexingOptions.
func Defaults() IndexingOptions {
	maxFileSize := int64(100 * 1024 * 1024)
	autoSave := 5 * time.Minute
	return IndexingOptions{
		IncludeHidden:    false,
		IncludeSystem:    false,
		MaxFileSize:      &maxFileSize,
		MaxDepth:         nil,
		FollowSymlinks:   false,
		ParallelThreads:  runtime.NumCPU(),
		BatchSize:        1000,
		EnableMonitoring: true,
		AutoSaveInterval: &autoSave,
		CompressIndex:    false,
		CollectFileSize:  false,
	}
}

// Validate reports the first invalid field found, or nil.
func (o IndexingOptions) Validate() error {
	if o.ParallelThreads <= 0 {
		return &ValidationError{Field: "parallel_threads", Message: "must be positive"}
	}
	if o.BatchSize <= 0 {
		return &ValidationError{Field: "batch_size", Message: "must be positive"}
	}
	if o.MaxFileSize != nil && *o.MaxFileSize < 0 {
		return &ValidationError{Field: "max_file_size", Message: "must not be negative"}
	}
	return nil
}

// ValidationError names the offending IndexingOptions field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return "config: " + e.Field + ": " + e.Message
}
