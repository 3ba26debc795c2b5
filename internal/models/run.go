package models

import "time"

// Run states shared by the job runner, the history tables and the API.
const (
	RunIdle      = "idle"
	RunRunning   = "running"
	RunCompleted = "completed"
	RunFailed    = "failed"
	RunCancelled = "cancelled"
)

// ScrapeRun is the persisted history record of one job.
type ScrapeRun struct {
	ID           string     `json:"id"`
	StoreType    string     `json:"store_type"`
	URL          string     `json:"url"`
	MaxPages     int        `json:"max_pages"`
	Categories   []string   `json:"categories"`
	Source       string     `json:"source"`
	State        string     `json:"state"`
	ProductCount int        `json:"product_count"`
	OutputFile   *string    `json:"output_file"`
	Error        string     `json:"error,omitempty"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
}
