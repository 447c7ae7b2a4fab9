package events

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/drivebridge/drivebridge/internal/constants"
)

// EventType defines the types of events that can be emitted
type EventType string

const (
	EventLog   EventType = "log"
	EventError EventType = "error"

	// Download lifecycle events, one stream per file in a batch
	EventDownloadQueued    EventType = "download_queued"    // File discovered and added to the batch
	EventDownloadStarted   EventType = "download_started"   // Acquired a slot, bytes moving
	EventDownloadProgress  EventType = "download_progress"  // Progress update
	EventDownloadCompleted EventType = "download_completed" // Successfully completed
	EventDownloadFailed    EventType = "download_failed"    // Failed with error
	EventDownloadCancelled EventType = "download_cancelled" // Cancelled by user

	// Batch-level events
	EventBatchCountChanged EventType = "batch_count_changed" // Total file count grew during folder scan
	EventBatchFinished     EventType = "batch_finished"      // All downloads settled

	// Cache events
	EventCacheInvalidated EventType = "cache_invalidated" // Token or config changed, cached listings are stale
)

// LogLevel defines log severity levels
type LogLevel int

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

func (l LogLevel) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Event is the base interface for all events
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent provides common event fields
type BaseEvent struct {
	EventType EventType
	Time      time.Time
}

func (e BaseEvent) Type() EventType      { return e.EventType }
func (e BaseEvent) Timestamp() time.Time { return e.Time }

// LogEvent represents log messages
type LogEvent struct {
	BaseEvent
	Level   LogLevel
	Message string
	FileID  string
	Error   error
}

// ErrorEvent represents error conditions
type ErrorEvent struct {
	BaseEvent
	FileID    string
	Name      string
	Error     error
	Retryable bool
}

// DownloadEvent represents per-file download lifecycle updates
type DownloadEvent struct {
	BaseEvent
	FileID    string // Remote file id
	Name      string // Display name (filename)
	LocalPath string // Destination path on disk
	Size      int64  // Total size in bytes, -1 if unknown
	Bytes     int64  // Bytes written so far
	Error     error  // Error if failed
}

// BatchEvent represents batch-level state for a download request
type BatchEvent struct {
	BaseEvent
	TotalFiles int           // Known file count, grows during folder scans
	Completed  int           // Files finished successfully
	Failed     int           // Files that errored
	Duration   time.Duration // Set on EventBatchFinished
}

// CacheInvalidatedEvent is published when identity-related config changes.
// Subscribers should drop cached listings and re-fetch.
type CacheInvalidatedEvent struct {
	BaseEvent
	Source string // "env_var", "config_file"
}

// EventBus manages event subscriptions and publishing
type EventBus struct {
	subscribers   map[EventType][]chan Event
	all           []chan Event // Subscribers to all events
	mu            sync.RWMutex
	bufferSize    int
	closed        bool
	droppedEvents atomic.Int64 // Count of dropped events due to full buffers
}

// NewEventBus creates a new event bus with specified buffer size
func NewEventBus(bufferSize int) *EventBus {
	if bufferSize <= 0 {
		bufferSize = constants.EventBusDefaultBuffer
	}
	if bufferSize > constants.EventBusMaxBuffer {
		bufferSize = constants.EventBusMaxBuffer
	}
	return &EventBus{
		subscribers: make(map[EventType][]chan Event),
		all:         make([]chan Event, 0),
		bufferSize:  bufferSize,
	}
}

// Subscribe creates a subscription to a specific event type
func (eb *EventBus) Subscribe(eventType EventType) <-chan Event {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		ch := make(chan Event)
		close(ch)
		return ch
	}

	ch := make(chan Event, eb.bufferSize)
	eb.subscribers[eventType] = append(eb.subscribers[eventType], ch)
	return ch
}

// SubscribeAll creates a subscription to all events
func (eb *EventBus) SubscribeAll() <-chan Event {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		ch := make(chan Event)
		close(ch)
		return ch
	}

	ch := make(chan Event, eb.bufferSize)
	eb.all = append(eb.all, ch)
	return ch
}

// Publish sends an event to all subscribers (non-blocking)
func (eb *EventBus) Publish(event Event) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	if eb.closed {
		return
	}

	// Send to specific type subscribers
	for _, ch := range eb.subscribers[event.Type()] {
		select {
		case ch <- event:
			// Successfully sent
		default:
			// Channel full - event dropped
			eb.droppedEvents.Add(1)
		}
	}

	// Send to all-events subscribers
	for _, ch := range eb.all {
		select {
		case ch <- event:
			// Successfully sent
		default:
			eb.droppedEvents.Add(1)
		}
	}
}

// Close shuts down the event bus and closes all channels
func (eb *EventBus) Close() {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		return
	}

	eb.closed = true

	for _, channels := range eb.subscribers {
		for _, ch := range channels {
			close(ch)
		}
	}

	for _, ch := range eb.all {
		close(ch)
	}
}

// PublishLog is a convenience method for publishing log events
func (eb *EventBus) PublishLog(level LogLevel, message, fileID string, err error) {
	eb.Publish(&LogEvent{
		BaseEvent: BaseEvent{
			EventType: EventLog,
			Time:      time.Now(),
		},
		Level:   level,
		Message: message,
		FileID:  fileID,
		Error:   err,
	})
}

// PublishDownload is a convenience method for publishing download lifecycle events
func (eb *EventBus) PublishDownload(eventType EventType, fileID, name, localPath string, size, bytes int64, err error) {
	eb.Publish(&DownloadEvent{
		BaseEvent: BaseEvent{
			EventType: eventType,
			Time:      time.Now(),
		},
		FileID:    fileID,
		Name:      name,
		LocalPath: localPath,
		Size:      size,
		Bytes:     bytes,
		Error:     err,
	})
}

// Unsubscribe removes a subscription channel from a specific event type
// This prevents memory leaks from abandoned subscriptions
func (eb *EventBus) Unsubscribe(eventType EventType, ch <-chan Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		return
	}

	subscribers := eb.subscribers[eventType]
	for i, subCh := range subscribers {
		if subCh == ch {
			// Remove channel by replacing with last element and truncating
			subscribers[i] = subscribers[len(subscribers)-1]
			eb.subscribers[eventType] = subscribers[:len(subscribers)-1]
			break
		}
	}
}

// UnsubscribeAll removes a subscription channel from all event types
// Use this when cleaning up a subscriber that subscribed to multiple event types
func (eb *EventBus) UnsubscribeAll(ch <-chan Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		return
	}

	for eventType, subscribers := range eb.subscribers {
		for i, subCh := range subscribers {
			if subCh == ch {
				subscribers[i] = subscribers[len(subscribers)-1]
				eb.subscribers[eventType] = subscribers[:len(subscribers)-1]
				break
			}
		}
	}

	for i, subCh := range eb.all {
		if subCh == ch {
			eb.all[i] = eb.all[len(eb.all)-1]
			eb.all = eb.all[:len(eb.all)-1]
			break
		}
	}
}

// GetDroppedEventCount returns the total number of events dropped due to full buffers
func (eb *EventBus) GetDroppedEventCount() int64 {
	return eb.droppedEvents.Load()
}

// ResetDroppedEventCount resets the dropped event counter to zero
func (eb *EventBus) ResetDroppedEventCount() int64 {
	return eb.droppedEvents.Swap(0)
}
