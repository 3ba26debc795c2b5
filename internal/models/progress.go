package models

// ProgressUpdate is pushed to websocket clients and event consumers.
type ProgressUpdate struct {
	JobID       string  `json:"jobId"`
	Event       string  `json:"event"` // started, progress, log, products, finished
	Message     string  `json:"message"`
	Progress    float64 `json:"progress"`
	CurrentPage int     `json:"current_page"`
	TotalPages  int     `json:"total_pages"`
	Products    int     `json:"product_count"`
	Status      string  `json:"status"` // e.g. "running", "completed", "failed"
	OutputFile  string  `json:"output_file,omitempty"`
	// Optional fields for more detailed updates
	Done bool `json:"done"`
}
