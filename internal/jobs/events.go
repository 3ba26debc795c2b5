package jobs

import (
	"time"

	"github.com/vrsandeep/shelfie-go/internal/models"
)

// Event types delivered to listeners.
const (
	EventStarted  = "started"
	EventProgress = "progress"
	EventLog      = "log"
	EventProducts = "products"
	EventFinished = "finished"
)

// Event describes one change of the active run.
type Event struct {
	Type         string
	RunID        string
	Request      Request
	State        string
	Message      string // the formatted line for log events
	Progress     int
	CurrentPage  int
	TotalPages   int
	ProductCount int
	// Products is the appended batch for products events and the full list
	// for finished events.
	Products   []models.Product
	OutputFile string
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time
}

// Listener observes run events. OnEvent runs on the goroutine that caused the
// change and must not call back into the Runner's mutating methods.
type Listener interface {
	OnEvent(ev Event)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(ev Event)

func (f ListenerFunc) OnEvent(ev Event) { f(ev) }

// ToProgressUpdate converts ev into the payload pushed to websocket and event consumers.
func ToProgressUpdate(ev Event) models.ProgressUpdate {
	message := ev.Message
	if message == "" {
		message = ev.Error
	}
	return models.ProgressUpdate{
		JobID:       ev.RunID,
		Event:       ev.Type,
		Message:     message,
		Progress:    float64(ev.Progress),
		CurrentPage: ev.CurrentPage,
		TotalPages:  ev.TotalPages,
		Products:    ev.ProductCount,
		Status:      ev.State,
		OutputFile:  ev.OutputFile,
		Done:        ev.Type == EventFinished,
	}
}
