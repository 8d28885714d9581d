package library

import (
	"context"
	"log/slog"
	"time"
)

// EventType names something that happened inside the library core.
type EventType string

const (
	EventItemAdded       EventType = "item.added"
	EventItemUpdated     EventType = "item.updated"
	EventItemRemoved     EventType = "item.removed"
	EventCopyCheckedOut  EventType = "copy.checked_out"
	EventCopyReturned    EventType = "copy.returned"
	EventCheckout        EventType = "lending.checkout"
	EventReturn          EventType = "lending.return"
	EventReturnAnomaly   EventType = "lending.return_anomaly"
	EventReserved        EventType = "waitlist.reserved"
	EventReserveDup      EventType = "waitlist.duplicate"
	EventReserveCanceled EventType = "waitlist.cancelled"
	EventNotified        EventType = "waitlist.notified"
	EventNotifyDropped   EventType = "waitlist.dropped"
)

// Event is plain data describing a state change or anomaly. Formatting and
// destination belong to whichever EventSink receives it.
type Event struct {
	Type      EventType `json:"type"`
	Key       string    `json:"key,omitempty"`
	PatronID  string    `json:"patron_id,omitempty"`
	Status    string    `json:"status,omitempty"`
	Available int       `json:"available"`
	At        time.Time `json:"at"`
}

// Anomaly reports whether the event describes a tolerated irregularity.
func (e Event) Anomaly() bool {
	return e.Type == EventReturnAnomaly || e.Type == EventNotifyDropped
}

// EventSink receives events synchronously. Implementations must not call
// back into the component that emitted the event.
type EventSink interface {
	Emit(Event)
}

// EventSinkFunc adapts a function to EventSink.
type EventSinkFunc func(Event)

func (f EventSinkFunc) Emit(e Event) { f(e) }

// MultiSink fans every event out to each sink in order.
type MultiSink []EventSink

func (m MultiSink) Emit(e Event) {
	for _, s := range m {
		if s != nil {
			s.Emit(e)
		}
	}
}

type discardSink struct{}

func (discardSink) Emit(Event) {}

func sinkOrDiscard(s EventSink) EventSink {
	if s == nil {
		return discardSink{}
	}
	return s
}

// LogSink writes events to a slog.Logger. Anomalies go out at WARN.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink returns a sink logging through logger; nil discards.
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Emit(e Event) {
	level := slog.LevelInfo
	if e.Anomaly() {
		level = slog.LevelWarn
	}

	attrs := []slog.Attr{slog.String("event", string(e.Type))}
	if e.Key != "" {
		attrs = append(attrs, slog.String("key", e.Key))
	}
	if e.PatronID != "" {
		attrs = append(attrs, slog.String("patron", e.PatronID))
	}
	if e.Status != "" {
		attrs = append(attrs, slog.String("status", e.Status))
	}
	switch e.Type {
	case EventItemAdded, EventCopyCheckedOut, EventCopyReturned:
		attrs = append(attrs, slog.Int("available", e.Available))
	}

	s.logger.LogAttrs(context.Background(), level, describe(e.Type), attrs...)
}

func describe(t EventType) string {
	switch t {
	case EventItemAdded:
		return "Item added"
	case EventItemUpdated:
		return "Item updated"
	case EventItemRemoved:
		return "Item removed"
	case EventCopyCheckedOut:
		return "Copy checked out"
	case EventCopyReturned:
		return "Copy returned"
	case EventCheckout:
		return "Checkout processed"
	case EventReturn:
		return "Return processed"
	case EventReturnAnomaly:
		return "Patron returned an item they did not have borrowed"
	case EventReserved:
		return "Reservation queued"
	case EventReserveDup:
		return "Duplicate reservation ignored"
	case EventReserveCanceled:
		return "Reservation cancelled"
	case EventNotified:
		return "Patron notified of availability"
	case EventNotifyDropped:
		return "Notification dropped, no listener registered"
	default:
		return string(t)
	}
}
