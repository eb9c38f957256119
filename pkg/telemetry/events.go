package telemetry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event represents a telemetry event in the arena.
type Event struct {
	// ID is the unique identifier for this event.
	ID string `json:"id"`

	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`

	// Type is the event type.
	Type string `json:"type"`

	// Source identifies where the event originated.
	Source string `json:"source"`

	// TrialID is the associated trial ID, if applicable.
	TrialID string `json:"trial_id,omitempty"`

	// ShapeKey is the associated query shape key, if applicable.
	ShapeKey string `json:"shape_key,omitempty"`

	// PlanSummary is the associated candidate plan summary, if applicable.
	PlanSummary string `json:"plan_summary,omitempty"`

	// Message is a human-readable event message.
	Message string `json:"message"`

	// Level is the event severity level (info, warning, error).
	Level string `json:"level"`

	// Data contains additional event-specific data.
	Data map[string]interface{} `json:"data,omitempty"`
}

// EventType constants for common event types.
const (
	EventTypeTrialStarted    = "trial.started"
	EventTypeTrialCompleted  = "trial.completed"
	EventTypeTrialFailed     = "trial.failed"
	EventTypeCandidateFailed = "candidate.failed"
	EventTypeWinnerChosen    = "winner.chosen"
	EventTypeBackupSwitched  = "backup.switched"
	EventTypeCacheCommitted  = "cache.committed"
	EventTypeCacheEvicted    = "cache.evicted"
	EventTypeError           = "error"
)

// EventLevel constants for event severity.
const (
	EventLevelInfo    = "info"
	EventLevelWarning = "warning"
	EventLevelError   = "error"
)

// EventSubscriber is a function that handles events.
type EventSubscriber func(event Event)

// EventFilter determines if an event should be processed.
type EventFilter func(event Event) bool

// EventPublisher manages event publishing and subscriptions.
type EventPublisher struct {
	config      EventsConfig
	buffer      chan Event
	subscribers []subscriberEntry
	filters     []EventFilter
	wg          sync.WaitGroup
	mu          sync.RWMutex
	ctx         context.Context
	cancel      context.CancelFunc
}

type subscriberEntry struct {
	subscriber EventSubscriber
	filter     EventFilter
}

// NewEventPublisher creates a new event publisher with the given configuration.
func NewEventPublisher(cfg EventsConfig) (*EventPublisher, error) {
	if !cfg.Enabled {
		return &EventPublisher{config: cfg}, nil
	}

	ctx, cancel := context.WithCancel(context.Background())

	ep := &EventPublisher{
		config:      cfg,
		buffer:      make(chan Event, cfg.BufferSize),
		subscribers: make([]subscriberEntry, 0),
		filters:     make([]EventFilter, 0),
		ctx:         ctx,
		cancel:      cancel,
	}

	// Start the event processing goroutine
	if cfg.EnableAsync {
		ep.wg.Add(1)
		go ep.processEvents()
	}

	// Start the periodic flush goroutine
	if cfg.FlushInterval > 0 {
		ep.wg.Add(1)
		go ep.periodicFlush()
	}

	return ep, nil
}

// Publish publishes an event to all subscribers.
func (ep *EventPublisher) Publish(event Event) error {
	if !ep.config.Enabled {
		return nil
	}

	// Set ID and timestamp if not already set
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	// Apply global filters
	ep.mu.RLock()
	for _, filter := range ep.filters {
		if !filter(event) {
			ep.mu.RUnlock()
			return nil // Event filtered out
		}
	}
	ep.mu.RUnlock()

	// Send to buffer if async, otherwise process immediately
	if ep.config.EnableAsync {
		select {
		case ep.buffer <- event:
			return nil
		case <-ep.ctx.Done():
			return fmt.Errorf("event publisher stopped")
		default:
			// Buffer full, drop event or log warning
			return fmt.Errorf("event buffer full, event dropped")
		}
	}

	// Synchronous publishing
	ep.deliverEvent(event)
	return nil
}

// PublishTrialStarted publishes a trial started event.
func (ep *EventPublisher) PublishTrialStarted(trialID, shapeKey string, candidates int) error {
	return ep.Publish(Event{
		Type:     EventTypeTrialStarted,
		Source:   "engine",
		TrialID:  trialID,
		ShapeKey: shapeKey,
		Message:  fmt.Sprintf("Trial %s started with %d candidates", trialID, candidates),
		Level:    EventLevelInfo,
		Data: map[string]interface{}{
			"candidates": candidates,
		},
	})
}

// PublishTrialCompleted publishes a trial completed event.
func (ep *EventPublisher) PublishTrialCompleted(trialID, winnerSummary string, duration time.Duration) error {
	return ep.Publish(Event{
		Type:        EventTypeTrialCompleted,
		Source:      "engine",
		TrialID:     trialID,
		PlanSummary: winnerSummary,
		Message:     fmt.Sprintf("Trial %s completed, winner: %s", trialID, winnerSummary),
		Level:       EventLevelInfo,
		Data: map[string]interface{}{
			"duration": duration.Seconds(),
		},
	})
}

// PublishTrialFailed publishes a trial failed event.
func (ep *EventPublisher) PublishTrialFailed(trialID, reason string) error {
	return ep.Publish(Event{
		Type:    EventTypeTrialFailed,
		Source:  "engine",
		TrialID: trialID,
		Message: fmt.Sprintf("Trial %s failed: %s", trialID, reason),
		Level:   EventLevelError,
		Data: map[string]interface{}{
			"reason": reason,
		},
	})
}

// PublishCandidateFailed publishes a candidate failure event.
func (ep *EventPublisher) PublishCandidateFailed(trialID, planSummary, reason string) error {
	return ep.Publish(Event{
		Type:        EventTypeCandidateFailed,
		Source:      "engine",
		TrialID:     trialID,
		PlanSummary: planSummary,
		Message:     fmt.Sprintf("Candidate %s failed in trial %s: %s", planSummary, trialID, reason),
		Level:       EventLevelWarning,
		Data: map[string]interface{}{
			"reason": reason,
		},
	})
}

// PublishWinnerChosen publishes a winner selection event.
func (ep *EventPublisher) PublishWinnerChosen(trialID, planSummary string, score float64, hasBackup bool) error {
	return ep.Publish(Event{
		Type:        EventTypeWinnerChosen,
		Source:      "engine",
		TrialID:     trialID,
		PlanSummary: planSummary,
		Message:     fmt.Sprintf("Winner chosen for trial %s: %s (score %.4f)", trialID, planSummary, score),
		Level:       EventLevelInfo,
		Data: map[string]interface{}{
			"score":      score,
			"has_backup": hasBackup,
		},
	})
}

// PublishBackupSwitched publishes a backup failover event.
func (ep *EventPublisher) PublishBackupSwitched(trialID, failedSummary, backupSummary string) error {
	return ep.Publish(Event{
		Type:        EventTypeBackupSwitched,
		Source:      "engine",
		TrialID:     trialID,
		PlanSummary: backupSummary,
		Message:     fmt.Sprintf("Trial %s switched to backup %s after %s failed", trialID, backupSummary, failedSummary),
		Level:       EventLevelWarning,
		Data: map[string]interface{}{
			"failed_plan": failedSummary,
		},
	})
}

// PublishCacheCommitted publishes a plan cache commit event.
func (ep *EventPublisher) PublishCacheCommitted(shapeKey, winnerSummary string) error {
	return ep.Publish(Event{
		Type:        EventTypeCacheCommitted,
		Source:      "cache",
		ShapeKey:    shapeKey,
		PlanSummary: winnerSummary,
		Message:     fmt.Sprintf("Ranking for shape %s committed to cache", shapeKey),
		Level:       EventLevelInfo,
	})
}

// PublishCacheEvicted publishes a plan cache eviction event.
func (ep *EventPublisher) PublishCacheEvicted(shapeKey, reason string) error {
	return ep.Publish(Event{
		Type:     EventTypeCacheEvicted,
		Source:   "cache",
		ShapeKey: shapeKey,
		Message:  fmt.Sprintf("Cache entry for shape %s evicted: %s", shapeKey, reason),
		Level:    EventLevelInfo,
		Data: map[string]interface{}{
			"reason": reason,
		},
	})
}

// Subscribe adds a new event subscriber.
func (ep *EventPublisher) Subscribe(subscriber EventSubscriber, filter EventFilter) {
	ep.mu.Lock()
	defer ep.mu.Unlock()

	ep.subscribers = append(ep.subscribers, subscriberEntry{
		subscriber: subscriber,
		filter:     filter,
	})
}

// AddFilter adds a global event filter.
func (ep *EventPublisher) AddFilter(filter EventFilter) {
	ep.mu.Lock()
	defer ep.mu.Unlock()

	ep.filters = append(ep.filters, filter)
}

// processEvents processes events from the buffer asynchronously.
func (ep *EventPublisher) processEvents() {
	defer ep.wg.Done()

	batch := make([]Event, 0, ep.config.MaxBatchSize)

	for {
		select {
		case event := <-ep.buffer:
			batch = append(batch, event)

			// Flush batch if it reaches max size
			if len(batch) >= ep.config.MaxBatchSize {
				ep.flushBatch(batch)
				batch = make([]Event, 0, ep.config.MaxBatchSize)
			}

		case <-ep.ctx.Done():
			// Flush remaining events before shutting down
			if len(batch) > 0 {
				ep.flushBatch(batch)
			}
			return
		}
	}
}

// periodicFlush flushes events periodically.
func (ep *EventPublisher) periodicFlush() {
	defer ep.wg.Done()

	ticker := time.NewTicker(ep.config.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			// Trigger flush by draining buffer
			// This is handled by the processEvents goroutine
		case <-ep.ctx.Done():
			return
		}
	}
}

// flushBatch delivers a batch of events to subscribers.
func (ep *EventPublisher) flushBatch(events []Event) {
	for _, event := range events {
		ep.deliverEvent(event)
	}
}

// deliverEvent delivers an event to all subscribers.
func (ep *EventPublisher) deliverEvent(event Event) {
	ep.mu.RLock()
	defer ep.mu.RUnlock()

	for _, entry := range ep.subscribers {
		// Apply subscriber-specific filter
		if entry.filter != nil && !entry.filter(event) {
			continue
		}

		// Call subscriber in a goroutine to avoid blocking
		go entry.subscriber(event)
	}
}

// Shutdown gracefully shuts down the event publisher.
func (ep *EventPublisher) Shutdown(ctx context.Context) error {
	if !ep.config.Enabled {
		return nil
	}

	// Signal shutdown
	ep.cancel()

	// Wait for processing to complete with timeout
	done := make(chan struct{})
	go func() {
		ep.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("event publisher shutdown timeout")
	}
}

// Common event filters.

// FilterByLevel creates a filter that only allows events of a specific level or higher.
func FilterByLevel(minLevel string) EventFilter {
	levels := map[string]int{
		EventLevelInfo:    0,
		EventLevelWarning: 1,
		EventLevelError:   2,
	}

	minLevelValue := levels[minLevel]

	return func(event Event) bool {
		return levels[event.Level] >= minLevelValue
	}
}

// FilterByType creates a filter that only allows events of specific types.
func FilterByType(types ...string) EventFilter {
	typeSet := make(map[string]bool)
	for _, t := range types {
		typeSet[t] = true
	}

	return func(event Event) bool {
		return typeSet[event.Type]
	}
}

// FilterByTrialID creates a filter that only allows events for a specific trial.
func FilterByTrialID(trialID string) EventFilter {
	return func(event Event) bool {
		return event.TrialID == trialID
	}
}

// FilterByShapeKey creates a filter that only allows events for a specific query shape.
func FilterByShapeKey(shapeKey string) EventFilter {
	return func(event Event) bool {
		return event.ShapeKey == shapeKey
	}
}
