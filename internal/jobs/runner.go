package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phuslu/log"
	"github.com/vrsandeep/shelfie-go/internal/models"
)

const defaultLogTail = 50

// CompletionNotice prefixes the notification pushed when a run saves its artifact.
const CompletionNotice = "Excel file saved successfully: "

// Engine performs the actual scrape. It reports through rec and should end every
// successful run with rec.Complete. Run must return promptly once ctx is done.
type Engine interface {
	Run(ctx context.Context, req Request, rec Recorder) error
}

// EngineFunc adapts a plain function to Engine.
type EngineFunc func(ctx context.Context, req Request, rec Recorder) error

func (f EngineFunc) Run(ctx context.Context, req Request, rec Recorder) error {
	return f(ctx, req, rec)
}

// Recorder is the callback surface a running engine writes through. Calls made
// after the run reached a terminal state are ignored.
type Recorder interface {
	ReportProgress(current, total, percent int)
	AppendLog(message string)
	AppendProducts(batch []models.Product)
	Complete(outputFile string)
	Fail(message string)
}

// Runner executes at most one Engine run at a time and serves status snapshots
// of the latest run.
type Runner struct {
	engine    Engine
	validate  func(*Request) error
	listeners []Listener
	now       func() time.Time
	newID     func() string
	logTail   int

	baseCtx context.Context
	stop    context.CancelFunc

	mu        sync.Mutex
	job       *jobState
	cancelJob context.CancelFunc
	done      chan struct{}
	notices   notificationQueue
	closed    bool
}

// Option configures a Runner.
type Option func(*Runner)

// WithListener registers listeners notified of every job event.
func WithListener(listeners ...Listener) Option {
	return func(r *Runner) { r.listeners = append(r.listeners, listeners...) }
}

// WithValidator adds a check run by Start after the built-in request validation.
// It may fill in defaults on the request.
func WithValidator(validate func(*Request) error) Option {
	return func(r *Runner) { r.validate = validate }
}

// WithClock overrides the time source used for log lines and timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// WithLogTail sets how many trailing log lines a snapshot carries. 0 keeps all.
func WithLogTail(n int) Option {
	return func(r *Runner) {
		if n >= 0 {
			r.logTail = n
		}
	}
}

// WithIDGenerator overrides how run ids are produced.
func WithIDGenerator(newID func() string) Option {
	return func(r *Runner) { r.newID = newID }
}

// WithBaseContext sets the parent context of every run.
func WithBaseContext(ctx context.Context) Option {
	return func(r *Runner) { r.baseCtx = ctx }
}

// NewRunner creates an idle Runner driving engine.
func NewRunner(engine Engine, opts ...Option) *Runner {
	r := &Runner{
		engine:  engine,
		now:     time.Now,
		newID:   uuid.NewString,
		logTail: defaultLogTail,
		baseCtx: context.Background(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.baseCtx, r.stop = context.WithCancel(r.baseCtx)
	return r
}

// Start validates req and launches a run in the background. It returns
// ErrAlreadyRunning while another run is active.
func (r *Runner) Start(req Request) error {
	if err := req.Validate(); err != nil {
		return err
	}
	if r.validate != nil {
		if err := r.validate(&req); err != nil {
			return err
		}
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrClosed
	}
	if r.job.running() {
		r.mu.Unlock()
		return ErrAlreadyRunning
	}
	job := newJobState(r.newID(), req, r.now())
	ctx, cancel := context.WithCancel(r.baseCtx)
	done := make(chan struct{})
	r.job, r.cancelJob, r.done = job, cancel, done
	started := r.eventLocked(job, EventStarted)
	r.mu.Unlock()

	log.Info().Str("run_id", job.runID).Str("store", req.StoreType).Str("source", req.Source).Msg("Starting scrape run")
	go r.run(ctx, cancel, job, done, started)
	return nil
}

func (r *Runner) run(ctx context.Context, cancel context.CancelFunc, job *jobState, done chan struct{}, started Event) {
	defer close(done)
	defer cancel()

	r.emit(job, started)
	rec := &jobRecorder{runner: r, job: job}
	err := r.runEngine(ctx, job.req, rec)

	// The engine returned without a terminal call.
	if err == nil {
		err = errors.New("scraper finished without producing an output file")
	}
	rec.Fail(err.Error())
}

func (r *Runner) runEngine(ctx context.Context, req Request, rec Recorder) (err error) {
	defer func() {
		if p := recover(); p != nil {
			log.Error().Str("store", req.StoreType).Msgf("Scrape run panicked: %v", p)
			err = fmt.Errorf("job panicked: %v", p)
		}
	}()
	return r.engine.Run(ctx, req, rec)
}

// Snapshot returns a copy of the latest run's visible state and hands out at
// most one pending notification.
func (r *Runner) Snapshot() StatusView {
	r.mu.Lock()
	defer r.mu.Unlock()

	v := r.job.view(r.logTail)
	if message, ok := r.notices.pop(); ok {
		v.ShowNotification = true
		v.NotificationMessage = message
	}
	return v
}

// Peek is Snapshot without consuming notifications and without the log tail limit.
func (r *Runner) Peek() StatusView {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.job.view(0)
}

// Running reports whether a run is active.
func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.job.running()
}

// ActiveRunID returns the id of the active run, or "" when none is running.
func (r *Runner) ActiveRunID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.job.running() {
		return ""
	}
	return r.job.runID
}

// ClearLogs empties the log of the latest run. It returns ErrBusy while a run is active.
func (r *Runner) ClearLogs() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.job.running() {
		return ErrBusy
	}
	if r.job != nil {
		r.job.logs = make([]string, 0)
	}
	return nil
}

// Cancel asks the active run to stop. The engine stops at its next
// cancellation check and the run ends as cancelled.
func (r *Runner) Cancel() error {
	r.mu.Lock()
	job := r.job
	if !job.running() {
		r.mu.Unlock()
		return ErrNotRunning
	}
	var ev Event
	if !job.cancelled {
		job.cancelled = true
		line := job.appendLog(r.now(), "Stop requested, finishing the current page")
		ev = r.eventLocked(job, EventLog)
		ev.Message = line
	}
	cancel := r.cancelJob
	r.mu.Unlock()

	log.Info().Str("run_id", job.runID).Msg("Cancelling scrape run")
	cancel()
	if ev.Type != "" {
		r.emit(job, ev)
	}
	return nil
}

// Wait blocks until the active run, if any, reaches a terminal state.
func (r *Runner) Wait(ctx context.Context) error {
	r.mu.Lock()
	done := r.done
	r.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown refuses new runs, cancels the active one and waits for it.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	if err := r.Cancel(); err != nil && !errors.Is(err, ErrNotRunning) {
		return err
	}
	r.stop()
	return r.Wait(ctx)
}

// emit delivers ev to the listeners. Only events between the run's started
// and finished events are delivered, so a late event from another goroutine
// is dropped.
func (r *Runner) emit(job *jobState, ev Event) {
	job.emitMu.Lock()
	defer job.emitMu.Unlock()
	switch {
	case ev.Type == EventStarted:
		job.startSent = true
	case !job.startSent || job.finishSent:
		return
	case ev.Type == EventFinished:
		job.finishSent = true
	}
	for _, l := range r.listeners {
		l.OnEvent(ev)
	}
}

// eventLocked builds an event from job. Callers hold r.mu.
func (r *Runner) eventLocked(job *jobState, typ string) Event {
	ev := Event{
		Type:         typ,
		RunID:        job.runID,
		Request:      job.req,
		State:        job.state,
		Progress:     job.progress,
		CurrentPage:  job.currentPage,
		TotalPages:   job.totalPages,
		ProductCount: len(job.products),
		Error:        job.errMsg,
		StartedAt:    job.startedAt,
		FinishedAt:   job.finishedAt,
	}
	if job.outputFile != nil {
		ev.OutputFile = *job.outputFile
	}
	return ev
}

// jobRecorder binds the Recorder callbacks to one run.
type jobRecorder struct {
	runner *Runner
	job    *jobState
}

func (rec *jobRecorder) ReportProgress(current, total, percent int) {
	r, job := rec.runner, rec.job
	r.mu.Lock()
	if !job.running() {
		r.mu.Unlock()
		return
	}
	if current > job.currentPage {
		job.currentPage = current
	}
	if total >= 0 {
		job.totalPages = total
	}
	if percent > 99 {
		percent = 99
	}
	if percent > job.progress {
		job.progress = percent
	}
	ev := r.eventLocked(job, EventProgress)
	r.mu.Unlock()
	r.emit(job, ev)
}

func (rec *jobRecorder) AppendLog(message string) {
	r, job := rec.runner, rec.job
	r.mu.Lock()
	if !job.running() {
		r.mu.Unlock()
		return
	}
	line := job.appendLog(r.now(), message)
	ev := r.eventLocked(job, EventLog)
	ev.Message = line
	r.mu.Unlock()

	log.Info().Str("run_id", job.runID).Msg(message)
	r.emit(job, ev)
}

func (rec *jobRecorder) AppendProducts(batch []models.Product) {
	if len(batch) == 0 {
		return
	}
	r, job := rec.runner, rec.job
	r.mu.Lock()
	if !job.running() {
		r.mu.Unlock()
		return
	}
	job.products = append(job.products, batch...)
	ev := r.eventLocked(job, EventProducts)
	ev.Products = append([]models.Product(nil), batch...)
	r.mu.Unlock()
	r.emit(job, ev)
}

func (rec *jobRecorder) Complete(outputFile string) {
	if outputFile == "" {
		rec.Fail("scraper completed without an output file")
		return
	}
	r, job := rec.runner, rec.job
	r.mu.Lock()
	if !job.running() {
		r.mu.Unlock()
		return
	}
	now := r.now()
	name := outputFile
	job.state = models.RunCompleted
	job.progress = 100
	job.outputFile = &name
	job.finishedAt = now
	job.appendLog(now, fmt.Sprintf("Extraction finished successfully. Products extracted: %d", len(job.products)))
	r.notices.push(CompletionNotice + outputFile)
	ev := r.finishedEventLocked(job)
	r.mu.Unlock()

	log.Info().Str("run_id", job.runID).Str("output_file", outputFile).Int("products", ev.ProductCount).Msg("Scrape run completed")
	r.emit(job, ev)
}

func (rec *jobRecorder) Fail(message string) {
	r, job := rec.runner, rec.job
	r.mu.Lock()
	if !job.running() {
		r.mu.Unlock()
		return
	}
	now := r.now()
	job.finishedAt = now
	if job.cancelled {
		job.state = models.RunCancelled
		job.errMsg = "cancelled by user"
		job.appendLog(now, "Extraction cancelled by user")
	} else {
		job.state = models.RunFailed
		job.errMsg = message
		job.appendLog(now, "Error: "+message)
	}
	ev := r.finishedEventLocked(job)
	r.mu.Unlock()

	log.Warn().Str("run_id", job.runID).Str("state", ev.State).Msg(ev.Error)
	r.emit(job, ev)
}

func (r *Runner) finishedEventLocked(job *jobState) Event {
	ev := r.eventLocked(job, EventFinished)
	ev.Products = append([]models.Product(nil), job.products...)
	return ev
}
