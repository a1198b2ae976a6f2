// Package messaging publishes account events for downstream consumers.
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Event types.
const (
	EventSignedIn              = "account.signed_in"
	EventGraduationYearUpdated = "profile.graduation_year_updated"
	EventAvatarUploaded        = "profile.avatar_uploaded"
	EventPasswordChanged       = "account.password_changed"
	EventNotesSaved            = "notes.saved"
)

// maxBatch is the PutEvents entry limit.
const maxBatch = 10

// Event is one account event.
type Event struct {
	ID         string                 `json:"event_id"`
	Type       string                 `json:"event_type"`
	UserID     string                 `json:"user_id"`
	OccurredAt time.Time              `json:"occurred_at"`
	Detail     map[string]interface{} `json:"detail,omitempty"`
}

// NewEvent stamps an event with a fresh id and the current time.
func NewEvent(eventType, userID string, detail map[string]interface{}) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		UserID:     userID,
		OccurredAt: time.Now().UTC(),
		Detail:     detail,
	}
}

// Publisher sends events somewhere.
type Publisher interface {
	Publish(ctx context.Context, events ...Event) error
}

// PutEventsAPI is the slice of the EventBridge client the publisher needs.
type PutEventsAPI interface {
	PutEvents(ctx context.Context, params *eventbridge.PutEventsInput, optFns ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error)
}

// EventBridgePublisher implements Publisher using AWS EventBridge.
type EventBridgePublisher struct {
	client   PutEventsAPI
	eventBus string
	source   string
	logger   *zap.Logger
}

// NewEventBridgePublisher creates a new EventBridge publisher.
func NewEventBridgePublisher(client PutEventsAPI, eventBus, source string, logger *zap.Logger) *EventBridgePublisher {
	if eventBus == "" {
		eventBus = "default"
	}
	if source == "" {
		source = "franklink-backend"
	}
	return &EventBridgePublisher{client: client, eventBus: eventBus, source: source, logger: logger}
}

// Publish sends events in batches of at most ten.
func (p *EventBridgePublisher) Publish(ctx context.Context, events ...Event) error {
	for i := 0; i < len(events); i += maxBatch {
		end := i + maxBatch
		if end > len(events) {
			end = len(events)
		}
		if err := p.publishBatch(ctx, events[i:end]); err != nil {
			return fmt.Errorf("failed to publish event batch: %w", err)
		}
	}
	return nil
}

func (p *EventBridgePublisher) publishBatch(ctx context.Context, events []Event) error {
	entries := make([]types.PutEventsRequestEntry, 0, len(events))
	for _, event := range events {
		detail, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("failed to marshal event: %w", err)
		}
		entries = append(entries, types.PutEventsRequestEntry{
			EventBusName: aws.String(p.eventBus),
			Source:       aws.String(p.source),
			DetailType:   aws.String(event.Type),
			Detail:       aws.String(string(detail)),
			Time:         aws.Time(event.OccurredAt),
		})
	}

	out, err := p.client.PutEvents(ctx, &eventbridge.PutEventsInput{Entries: entries})
	if err != nil {
		return fmt.Errorf("failed to put events: %w", err)
	}
	if out.FailedEntryCount > 0 {
		for i, entry := range out.Entries {
			if entry.ErrorCode != nil {
				p.logger.Warn("event rejected",
					zap.String("event_type", events[i].Type),
					zap.String("code", aws.ToString(entry.ErrorCode)),
					zap.String("message", aws.ToString(entry.ErrorMessage)))
			}
		}
		return fmt.Errorf("%d events failed to publish", out.FailedEntryCount)
	}
	return nil
}

// LogPublisher writes events to the log. Used when no event bus is configured.
type LogPublisher struct {
	logger *zap.Logger
}

// NewLogPublisher creates a LogPublisher.
func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

// Publish logs each event at debug level.
func (p *LogPublisher) Publish(_ context.Context, events ...Event) error {
	for _, e := range events {
		p.logger.Debug("event",
			zap.String("event_id", e.ID),
			zap.String("event_type", e.Type),
			zap.String("user_id", e.UserID),
			zap.Any("detail", e.Detail))
	}
	return nil
}

// AsyncPublisher queues events and hands them to another Publisher in the
// background so request handlers never wait on the event bus.
type AsyncPublisher struct {
	next   Publisher
	logger *zap.Logger
	queue  chan Event
	done   chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

// NewAsyncPublisher starts the background worker.
func NewAsyncPublisher(next Publisher, queueSize int, logger *zap.Logger) *AsyncPublisher {
	if queueSize <= 0 {
		queueSize = 1000
	}
	p := &AsyncPublisher{
		next:   next,
		logger: logger,
		queue:  make(chan Event, queueSize),
		done:   make(chan struct{}),
	}
	p.wg.Add(1)
	go p.worker()
	return p
}

// Publish queues events. It fails when the queue is full.
func (p *AsyncPublisher) Publish(ctx context.Context, events ...Event) error {
	for _, event := range events {
		select {
		case <-p.done:
			return fmt.Errorf("publisher closed")
		default:
		}
		select {
		case p.queue <- event:
		case <-ctx.Done():
			return ctx.Err()
		default:
			return fmt.Errorf("event queue is full")
		}
	}
	return nil
}

func (p *AsyncPublisher) worker() {
	defer p.wg.Done()
	batch := make([]Event, 0, maxBatch)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case event := <-p.queue:
			batch = append(batch, event)
			if len(batch) >= maxBatch {
				p.flush(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				p.flush(batch)
				batch = batch[:0]
			}
		case <-p.done:
			for {
				select {
				case event := <-p.queue:
					batch = append(batch, event)
				default:
					if len(batch) > 0 {
						p.flush(batch)
					}
					return
				}
			}
		}
	}
}

func (p *AsyncPublisher) flush(events []Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.next.Publish(ctx, events...); err != nil {
		p.logger.Error("failed to publish events", zap.Int("count", len(events)), zap.Error(err))
	}
}

// Close drains the queue and stops the worker.
func (p *AsyncPublisher) Close() {
	p.once.Do(func() { close(p.done) })
	p.wg.Wait()
}
