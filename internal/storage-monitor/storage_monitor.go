package storagemonitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shirou/gopsutil/disk"
	"github.com/sirupsen/logrus"
)

// StorageLimitEvent represents the data sent when the storage limit is hit.
type StorageLimitEvent struct {
	Path        string
	UsedPercent float64
	Message     string
}

// EventBroker handles the subscription and broadcasting of storage limit events.
type EventBroker struct {
	subscribers []chan StorageLimitEvent
	mu          sync.Mutex
}

// NewEventBroker initializes a new EventBroker.
func NewEventBroker() *EventBroker {
	return &EventBroker{}
}

// Subscribe adds a new subscriber to the broker.
func (b *EventBroker) Subscribe() chan StorageLimitEvent {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan StorageLimitEvent, 1) // Buffered channel
	b.subscribers = append(b.subscribers, ch)
	return ch
}

// Broadcast sends the event to all subscribers.
func (b *EventBroker) Broadcast(event StorageLimitEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, subscriber := range b.subscribers {
		// Non-blocking send with select
		select {
		case subscriber <- event:
		default:
			logrus.Warn("subscriber channel is full. Event not sent.")
		}
	}
}

// Monitor periodically samples disk usage for the filesystem that receives
// database backups and broadcasts an event whenever usage crosses the
// threshold, so a filling volume is flagged before a scheduled dump fails.
type Monitor struct {
	broker    *EventBroker
	path      string
	threshold float64
	interval  time.Duration
}

// NewMonitor builds a monitor for the given path. A zero threshold defaults
// to 80 percent and a zero interval to five minutes; an empty path watches
// the root filesystem.
func NewMonitor(path string, threshold float64, interval time.Duration) *Monitor {
	if path == "" {
		path = "/"
	}
	if threshold <= 0 {
		threshold = 80.0
	}
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Monitor{
		broker:    NewEventBroker(),
		path:      path,
		threshold: threshold,
		interval:  interval,
	}
}

// Subscribe returns a channel that receives storage limit events.
func (m *Monitor) Subscribe() chan StorageLimitEvent {
	return m.broker.Subscribe()
}

// Start samples disk usage on a ticker until the context is cancelled.
func (m *Monitor) Start(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.checkDiskUsage()
		}
	}
}

// checkDiskUsage checks the current disk usage and broadcasts an event if it exceeds the threshold.
func (m *Monitor) checkDiskUsage() {
	usage, err := disk.Usage(m.path)
	if err != nil {
		logrus.Errorf("Error getting disk usage for %s: %v", m.path, err)
		return
	}

	if usage.UsedPercent > m.threshold {
		m.broker.Broadcast(StorageLimitEvent{
			Path:        m.path,
			UsedPercent: usage.UsedPercent,
			Message:     fmt.Sprintf("disk usage %.2f%% on %s exceeds %.2f%% threshold", usage.UsedPercent, m.path, m.threshold),
		})
	}
}

// StartLoggerSubscriber logs every broadcast event until the channel closes.
func StartLoggerSubscriber(m *Monitor) {
	logSub := m.Subscribe()
	go func() {
		for event := range logSub {
			logrus.Warnf("Storage monitor: %s", event.Message)
		}
	}()
}
