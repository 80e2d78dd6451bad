package db

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

// ChangeEvent is the advisory payload of a change notification. Nothing in
// it is trusted for correctness: every event triggers a full resync and the
// fields exist only for the log line.
type ChangeEvent struct {
	Table     string    `json:"table"`
	Action    string    `json:"action"`
	ID        int       `json:"id"`
	DomainID  int       `json:"domain_id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

// Notifier subscribes to a postgres LISTEN/NOTIFY channel and forwards
// notifications as ChangeEvents. The events channel closes when the
// listener connection is torn down, which callers must treat as a liveness
// loss distinct from "no events yet".
type Notifier struct {
	listener *pq.Listener
	events   chan ChangeEvent
	log      *logrus.Logger
}

// NewNotifier connects a dedicated listener and subscribes to channel. A
// setup failure is returned so the caller can fall back to polling.
func NewNotifier(dsn, channel string, log *logrus.Logger) (*Notifier, error) {
	listener := pq.NewListener(dsn, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			log.WithError(err).Error("postgres listener error")
		}
	})
	if err := listener.Listen(channel); err != nil {
		listener.Close()
		return nil, fmt.Errorf("listen on channel %q: %w", channel, err)
	}

	n := &Notifier{
		listener: listener,
		events:   make(chan ChangeEvent, 16),
		log:      log,
	}
	go n.forward()
	log.WithField("channel", channel).Info("subscribed to change notifications")
	return n, nil
}

// forward translates raw notifications into ChangeEvents. pq delivers a nil
// notification after an automatic reconnect; that is not a change.
func (n *Notifier) forward() {
	defer close(n.events)
	for notification := range n.listener.Notify {
		if notification == nil {
			n.log.Debug("listener reconnected")
			continue
		}
		ev := ChangeEvent{Table: "records", Action: "NOTIFY", Timestamp: time.Now()}
		if notification.Extra != "" {
			// Best effort only; a malformed payload still triggers a resync.
			_ = json.Unmarshal([]byte(notification.Extra), &ev)
		}
		select {
		case n.events <- ev:
		default:
			// The consumer coalesces resyncs anyway; dropping is harmless.
		}
	}
}

// Events returns the notification stream. It closes on connection loss.
func (n *Notifier) Events() <-chan ChangeEvent {
	return n.events
}

// Ping probes the listener connection.
func (n *Notifier) Ping() error {
	return n.listener.Ping()
}

// Close tears down the subscription; Events closes shortly after.
func (n *Notifier) Close() error {
	return n.listener.Close()
}
