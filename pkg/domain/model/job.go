package model

import (
	"io"
	"time"
)

// Upload is one pack archive submitted for a new job
type Upload struct {
	Name string
	Body io.Reader
}

// JobRecord is the persisted summary of a weld run
type JobRecord struct {
	ID           string    `firestore:"id" json:"id"`
	Mode         string    `firestore:"mode" json:"mode"`
	Version      string    `firestore:"version" json:"version"`
	ArchiveCount int       `firestore:"archive_count" json:"archive_count"`
	Files        []string  `firestore:"files" json:"files"`
	StartedAt    time.Time `firestore:"started_at" json:"started_at"`
	FinishedAt   time.Time `firestore:"finished_at" json:"finished_at"`
}

// NewJobRecord builds the record stored for result
func NewJobRecord(result *WeldResult) *JobRecord {
	return &JobRecord{
		ID:           result.JobID,
		Mode:         string(result.Mode),
		Version:      result.Version,
		ArchiveCount: result.ArchiveCount,
		Files:        result.Files,
		StartedAt:    result.StartedAt,
		FinishedAt:   result.FinishedAt,
	}
}
