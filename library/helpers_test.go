package library

import (
	"sync"
	"testing"
	"time"
)

// recordingSink captures emitted events for assertions.
type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordingSink) Emit(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingSink) types() []EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

func (r *recordingSink) count(t EventType) int {
	n := 0
	for _, et := range r.types() {
		if et == t {
			n++
		}
	}
	return n
}

// fixedClock returns a clock advancing by one minute per call.
func fixedClock() func() time.Time {
	var mu sync.Mutex
	t := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Minute)
		return t
	}
}

func mustPatron(t *testing.T, id, name string) *Patron {
	t.Helper()
	p, err := NewPatron(id, name)
	if err != nil {
		t.Fatalf("new patron: %v", err)
	}
	return p
}

var (
	effectiveJava  = NewBook("978-0134685991", "Effective Java", "Joshua Bloch", 2018, "Programming")
	designPatterns = NewBook("978-0201633610", "Design Patterns", "Erich Gamma", 1994, "Programming")
	headFirstJava  = NewBook("978-0596009205", "Head First Java", "Kathy Sierra", 2005, "Programming")
	gobletOfFire   = NewBook("978-0439139595", "Harry Potter and the Goblet of Fire", "J. K. Rowling", 2000, "Fantasy")
	inception      = NewDVD("DVD-3333", "Inception", "Christopher Nolan", 2010, 148)
	scienceToday   = NewMagazine("MAG-2222", "Science Today", "Editorial", 2024, 58)
)
