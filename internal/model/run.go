package model

import "time"

// RunStatus represents the lifecycle state of a pipeline run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// RunRecord is the persisted history entry for one pipeline run.
type RunRecord struct {
	ID                    string     `json:"id"`
	InputPath             string     `json:"input_path"`
	OutputDir             string     `json:"output_dir"`
	Status                RunStatus  `json:"status"`
	TotalCompanies        int        `json:"total_companies"`
	SuccessfulExtractions int        `json:"successful_extractions"`
	FailedExtractions     int        `json:"failed_extractions"`
	TotalFactsExtracted   int        `json:"total_facts_extracted"`
	DurationSeconds       float64    `json:"duration_seconds"`
	StartedAt             time.Time  `json:"started_at"`
	FinishedAt            *time.Time `json:"finished_at,omitempty"`
	Error                 string     `json:"error,omitempty"`
}
