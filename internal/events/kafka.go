package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/phuslu/log"
	"github.com/segmentio/kafka-go"
	"github.com/vrsandeep/shelfie-go/internal/jobs"
)

const (
	queueSize    = 64
	writeTimeout = 10 * time.Second
)

// RunEvent is the message value published for run lifecycle events.
type RunEvent struct {
	Type         string     `json:"type"`
	RunID        string     `json:"run_id"`
	StoreType    string     `json:"store_type"`
	URL          string     `json:"url,omitempty"`
	Categories   []string   `json:"categories,omitempty"`
	Source       string     `json:"source"`
	State        string     `json:"state"`
	ProductCount int        `json:"product_count"`
	OutputFile   string     `json:"output_file,omitempty"`
	Error        string     `json:"error,omitempty"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher publishes started and finished run events keyed by run id.
// It implements jobs.Listener; writes happen on a background goroutine so the
// runner is never held up by the broker.
type KafkaPublisher struct {
	writer messageWriter
	queue  chan kafka.Message
	wg     sync.WaitGroup
	once   sync.Once
	mu     sync.RWMutex
	closed bool
}

// NewKafkaPublisher creates a publisher for the given broker and topic.
func NewKafkaPublisher(broker, topic string) *KafkaPublisher {
	return NewPublisherWithWriter(&kafka.Writer{
		Addr:                   kafka.TCP(broker),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	})
}

// NewPublisherWithWriter builds a publisher using a custom writer (tests).
func NewPublisherWithWriter(writer messageWriter) *KafkaPublisher {
	p := &KafkaPublisher{
		writer: writer,
		queue:  make(chan kafka.Message, queueSize),
	}
	p.wg.Add(1)
	go p.loop()
	return p
}

// OnEvent implements jobs.Listener.
func (p *KafkaPublisher) OnEvent(ev jobs.Event) {
	if ev.Type != jobs.EventStarted && ev.Type != jobs.EventFinished {
		return
	}
	payload, err := json.Marshal(newRunEvent(ev))
	if err != nil {
		log.Error().Err(err).Str("run_id", ev.RunID).Msg("Failed to encode run event")
		return
	}
	msg := kafka.Message{
		Key:   []byte(ev.RunID),
		Value: payload,
		Time:  time.Now().UTC(),
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return
	}
	select {
	case p.queue <- msg:
	default:
		log.Warn().Str("run_id", ev.RunID).Str("type", ev.Type).Msg("Kafka publish queue is full, dropping run event")
	}
}

func (p *KafkaPublisher) loop() {
	defer p.wg.Done()
	for msg := range p.queue {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		if err := p.writer.WriteMessages(ctx, msg); err != nil {
			log.Error().Err(err).Str("run_id", string(msg.Key)).Msg("Failed to publish run event")
		}
		cancel()
	}
}

// Close flushes queued events and shuts down the underlying writer.
func (p *KafkaPublisher) Close() error {
	var err error
	p.once.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.queue)
		p.mu.Unlock()
		p.wg.Wait()
		err = p.writer.Close()
	})
	return err
}

func newRunEvent(ev jobs.Event) RunEvent {
	out := RunEvent{
		Type:         ev.Type,
		RunID:        ev.RunID,
		StoreType:    ev.Request.StoreType,
		URL:          ev.Request.URL,
		Categories:   ev.Request.Categories,
		Source:       ev.Request.Source,
		State:        ev.State,
		ProductCount: ev.ProductCount,
		OutputFile:   ev.OutputFile,
		Error:        ev.Error,
		StartedAt:    ev.StartedAt,
	}
	if !ev.FinishedAt.IsZero() {
		t := ev.FinishedAt
		out.FinishedAt = &t
	}
	return out
}
