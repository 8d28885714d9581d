package library

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Patron is a registered borrower together with their ledger: the ordered
// borrowing history and the set of keys currently held.
//
// The ledger is only changed by the lending engine. A zero Patron with an ID
// set is usable; NewPatron additionally generates missing ids.
type Patron struct {
	ID   string
	Name string

	mu      sync.RWMutex
	history []BorrowRecord
	held    map[string]struct{}
}

// NewPatron creates a patron. An empty id is replaced by a generated one of
// the form "patron-<nanoid>".
func NewPatron(id, name string) (*Patron, error) {
	if id == "" {
		nid, err := gonanoid.New()
		if err != nil {
			return nil, fmt.Errorf("generate patron id: %w", err)
		}
		id = "patron-" + nid
	}
	return &Patron{ID: id, Name: name, held: make(map[string]struct{})}, nil
}

// History returns a copy of the borrowing history, oldest first.
func (p *Patron) History() []BorrowRecord {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]BorrowRecord, len(p.history))
	for i, r := range p.history {
		if r.ReturnedAt != nil {
			at := *r.ReturnedAt
			r.ReturnedAt = &at
		}
		out[i] = r
	}
	return out
}

// Held returns the keys currently checked out by the patron, sorted.
func (p *Patron) Held() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	keys := make([]string, 0, len(p.held))
	for k := range p.held {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Holds reports whether key is currently checked out by the patron.
func (p *Patron) Holds(key string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.held[key]
	return ok
}

// OpenRecord returns the most recent unreturned record for key.
func (p *Patron) OpenRecord(key string) (BorrowRecord, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if i := p.openIndex(key); i >= 0 {
		return p.history[i], true
	}
	return BorrowRecord{}, false
}

func (p *Patron) String() string {
	return fmt.Sprintf("Patron[%s, %s]", p.ID, p.Name)
}

// recordCheckout appends an open record for key and marks it held.
func (p *Patron) recordCheckout(key string, at time.Time) BorrowRecord {
	p.mu.Lock()
	defer p.mu.Unlock()
	rec := BorrowRecord{ID: uuid.NewString(), Key: key, CheckedOut: at}
	p.history = append(p.history, rec)
	if p.held == nil {
		p.held = make(map[string]struct{})
	}
	p.held[key] = struct{}{}
	return rec
}

// recordReturn stamps the most recent open record for key and drops key from
// the held set. It reports whether an open record existed.
func (p *Patron) recordReturn(key string, at time.Time) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.held, key)
	i := p.openIndex(key)
	if i < 0 {
		return false
	}
	p.history[i].ReturnedAt = &at
	return true
}

// openIndex must be called with p.mu held.
func (p *Patron) openIndex(key string) int {
	for i := len(p.history) - 1; i >= 0; i-- {
		if p.history[i].Key == key && p.history[i].Open() {
			return i
		}
	}
	return -1
}
