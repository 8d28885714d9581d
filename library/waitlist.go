package library

import (
	"slices"
	"sync"
	"time"
)

// Notifiable receives availability events for items a patron waited on.
type Notifiable interface {
	NotifyAvailable(key string)
}

// NotifyFunc adapts a plain function to Notifiable.
type NotifyFunc func(key string)

func (f NotifyFunc) NotifyAvailable(key string) { f(key) }

// Waitlist keeps a FIFO queue of patron ids per item key and a directory of
// listeners keyed by patron id. The directory does not own patrons; a queued
// patron without a listener simply loses their turn.
//
// A patron appears at most once in an item's queue. Reserving again before
// being served is a no-op.
type Waitlist struct {
	mu        sync.Mutex
	queues    map[string][]string
	listeners map[string]Notifiable

	events EventSink
	now    func() time.Time
}

// NewWaitlist creates an empty registry emitting events to sink (nil discards).
func NewWaitlist(sink EventSink) *Waitlist {
	return &Waitlist{
		queues:    make(map[string][]string),
		listeners: make(map[string]Notifiable),
		events:    sinkOrDiscard(sink),
		now:       time.Now,
	}
}

// RegisterListener sets (or replaces) the listener for patronID.
func (w *Waitlist) RegisterListener(patronID string, n Notifiable) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.listeners[patronID] = n
}

// UnregisterListener drops the listener for patronID. Queued reservations
// are left in place.
func (w *Waitlist) UnregisterListener(patronID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.listeners, patronID)
}

// Reserve appends patronID to the queue for key. It returns false, without
// changing the queue, when the patron is already waiting for key.
func (w *Waitlist) Reserve(patronID, key string) bool {
	w.mu.Lock()
	q := w.queues[key]
	if slices.Contains(q, patronID) {
		w.mu.Unlock()
		w.emit(Event{Type: EventReserveDup, Key: key, PatronID: patronID})
		return false
	}
	w.queues[key] = append(q, patronID)
	w.mu.Unlock()

	w.emit(Event{Type: EventReserved, Key: key, PatronID: patronID})
	return true
}

// Cancel removes patronID from the queue for key.
func (w *Waitlist) Cancel(patronID, key string) error {
	w.mu.Lock()
	q := w.queues[key]
	i := slices.Index(q, patronID)
	if i < 0 {
		w.mu.Unlock()
		return NotFoundf("no active reservation for patron %s on %s", patronID, key)
	}
	w.setQueue(key, slices.Delete(q, i, i+1))
	w.mu.Unlock()

	w.emit(Event{Type: EventReserveCanceled, Key: key, PatronID: patronID})
	return nil
}

// NotifyNext pops the head of the queue for key and delivers an availability
// event to that patron's listener. The head is popped even when no listener
// is registered; that turn is forfeited. It returns the popped patron id and
// whether the notification was delivered.
//
// The listener runs synchronously after the registry lock is released.
func (w *Waitlist) NotifyNext(key string) (patronID string, delivered bool) {
	w.mu.Lock()
	q := w.queues[key]
	if len(q) == 0 {
		w.mu.Unlock()
		return "", false
	}
	patronID = q[0]
	w.setQueue(key, q[1:])
	listener, ok := w.listeners[patronID]
	w.mu.Unlock()

	if !ok {
		w.emit(Event{Type: EventNotifyDropped, Key: key, PatronID: patronID})
		return patronID, false
	}

	listener.NotifyAvailable(key)
	w.emit(Event{Type: EventNotified, Key: key, PatronID: patronID})
	return patronID, true
}

// Queue returns the patron ids waiting for key, head first.
func (w *Waitlist) Queue(key string) []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return slices.Clone(w.queues[key])
}

// Reservations returns the keys patronID is waiting for, sorted.
func (w *Waitlist) Reservations(patronID string) []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	var keys []string
	for key, q := range w.queues {
		if slices.Contains(q, patronID) {
			keys = append(keys, key)
		}
	}
	slices.Sort(keys)
	return keys
}

// setQueue must be called with w.mu held.
func (w *Waitlist) setQueue(key string, q []string) {
	if len(q) == 0 {
		delete(w.queues, key)
		return
	}
	w.queues[key] = q
}

func (w *Waitlist) emit(e Event) {
	e.At = w.now()
	w.events.Emit(e)
}
