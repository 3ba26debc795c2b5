package jobs

import (
	"fmt"
	"sync"
	"time"

	"github.com/vrsandeep/shelfie-go/internal/models"
)

const logTimeLayout = "15:04:05"

// jobState is the mutable record of one run. The Runner owns it and guards
// every access with its mutex.
type jobState struct {
	runID       string
	req         Request
	state       string
	progress    int
	currentPage int
	totalPages  int
	logs        []string
	products    []models.Product
	outputFile  *string
	errMsg      string
	startedAt   time.Time
	finishedAt  time.Time
	cancelled   bool

	// emitMu serialises listener delivery for the run. It guards startSent
	// and finishSent, not the fields above.
	emitMu     sync.Mutex
	startSent  bool
	finishSent bool
}

func newJobState(runID string, req Request, now time.Time) *jobState {
	return &jobState{
		runID:     runID,
		req:       req,
		state:     models.RunRunning,
		logs:      make([]string, 0, 64),
		products:  make([]models.Product, 0, 128),
		startedAt: now,
	}
}

func (s *jobState) running() bool {
	return s != nil && s.state == models.RunRunning
}

func (s *jobState) appendLog(now time.Time, message string) string {
	line := formatLogLine(now, message)
	s.logs = append(s.logs, line)
	return line
}

func formatLogLine(now time.Time, message string) string {
	return fmt.Sprintf("%s - %s", now.Format(logTimeLayout), message)
}

// StatusView is the point-in-time copy returned to pollers.
type StatusView struct {
	RunID               string           `json:"run_id"`
	State               string           `json:"state"`
	StoreType           string           `json:"store_type"`
	Running             bool             `json:"scraper_running"`
	Progress            int              `json:"progress"`
	CurrentPage         int              `json:"current_page"`
	TotalPages          int              `json:"total_pages"`
	Logs                []string         `json:"logs"`
	Products            []models.Product `json:"products"`
	ProductCount        int              `json:"product_count"`
	OutputFile          *string          `json:"output_file"`
	ShowNotification    bool             `json:"show_notification"`
	NotificationMessage string           `json:"notification_message"`
	Error               string           `json:"error"`
	StartedAt           *time.Time       `json:"started_at"`
	FinishedAt          *time.Time       `json:"finished_at"`
}

// view copies the visible fields. tail limits the number of log lines; 0 means all.
func (s *jobState) view(tail int) StatusView {
	v := StatusView{
		State:    models.RunIdle,
		Logs:     []string{},
		Products: []models.Product{},
	}
	if s == nil {
		return v
	}

	v.RunID = s.runID
	v.State = s.state
	v.StoreType = s.req.StoreType
	v.Running = s.running()
	v.Progress = s.progress
	v.CurrentPage = s.currentPage
	v.TotalPages = s.totalPages
	v.Error = s.errMsg

	logs := s.logs
	if tail > 0 && len(logs) > tail {
		logs = logs[len(logs)-tail:]
	}
	v.Logs = append(v.Logs, logs...)
	v.Products = append(v.Products, s.products...)
	v.ProductCount = len(s.products)

	if s.outputFile != nil {
		name := *s.outputFile
		v.OutputFile = &name
	}
	started := s.startedAt
	v.StartedAt = &started
	if !s.finishedAt.IsZero() {
		finished := s.finishedAt
		v.FinishedAt = &finished
	}
	return v
}
