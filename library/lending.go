package library

import (
	"slices"
	"strings"
	"sync"
	"time"
)

// LendingEngine moves copies between the catalog and patron ledgers and
// hands returned copies to the waitlist.
//
// Per (patron, item) pair there are two states, available-to-borrow and
// borrowed; Checkout and Return are the only transitions.
type LendingEngine struct {
	catalog  *Catalog
	waitlist *Waitlist

	// mu serializes checkout/return so that the held-check, the copy count and
	// the ledger append happen as one step.
	mu      sync.Mutex
	patrons map[string]*Patron

	events EventSink
	now    func() time.Time
}

// EngineOption configures a LendingEngine.
type EngineOption func(*LendingEngine)

// WithClock overrides the time source used for borrow records and events.
func WithClock(now func() time.Time) EngineOption {
	return func(e *LendingEngine) { e.now = now }
}

// NewLendingEngine wires an engine over catalog and waitlist.
func NewLendingEngine(catalog *Catalog, waitlist *Waitlist, sink EventSink, opts ...EngineOption) *LendingEngine {
	e := &LendingEngine{
		catalog:  catalog,
		waitlist: waitlist,
		patrons:  make(map[string]*Patron),
		events:   sinkOrDiscard(sink),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RegisterPatron adds p to the directory. Registering an id twice keeps the
// first patron and reports false.
func (e *LendingEngine) RegisterPatron(p *Patron) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.patrons[p.ID]; ok {
		return false
	}
	e.patrons[p.ID] = p
	return true
}

// Patron looks up a registered patron.
func (e *LendingEngine) Patron(id string) (*Patron, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, ok := e.patrons[id]
	return p, ok
}

// Patrons returns every registered patron ordered by id.
func (e *LendingEngine) Patrons() []*Patron {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*Patron, 0, len(e.patrons))
	for _, p := range e.patrons {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b *Patron) int { return strings.Compare(a.ID, b.ID) })
	return out
}

// Checkout lends one copy of key to the patron. Missing items and empty
// shelves are reported through the status; the engine never reserves on the
// caller's behalf. Only an unknown patron id is an error.
func (e *LendingEngine) Checkout(patronID, key string) (CheckoutStatus, error) {
	e.mu.Lock()
	p, ok := e.patrons[patronID]
	if !ok {
		e.mu.Unlock()
		return "", NotFoundf("patron not found: %s", patronID)
	}

	status := e.checkoutLocked(p, key)
	e.mu.Unlock()

	e.emit(Event{Type: EventCheckout, Key: key, PatronID: patronID, Status: string(status)})
	return status, nil
}

func (e *LendingEngine) checkoutLocked(p *Patron, key string) CheckoutStatus {
	if _, ok := e.catalog.Find(key); !ok {
		return CheckoutItemNotFound
	}
	if p.Holds(key) {
		return CheckoutAlreadyHeld
	}
	if !e.catalog.CheckoutCopy(key) {
		return CheckoutNoCopies
	}
	p.recordCheckout(key, e.now())
	return CheckoutSuccess
}

// Return puts a copy of key back on the shelf, closes the patron's open
// borrow record for it and then notifies the next waiting patron.
//
// A return without an open record is tolerated: the copy is still counted
// so inventory matches what is physically on the shelf.
func (e *LendingEngine) Return(patronID, key string) error {
	e.mu.Lock()
	p, ok := e.patrons[patronID]
	if !ok {
		e.mu.Unlock()
		return NotFoundf("patron not found: %s", patronID)
	}

	e.catalog.ReturnCopy(key)
	closed := p.recordReturn(key, e.now())
	e.mu.Unlock()

	if !closed {
		e.emit(Event{Type: EventReturnAnomaly, Key: key, PatronID: patronID})
	}
	e.emit(Event{Type: EventReturn, Key: key, PatronID: patronID})

	e.waitlist.NotifyNext(key)
	return nil
}

func (e *LendingEngine) emit(ev Event) {
	ev.At = e.now()
	e.events.Emit(ev)
}
