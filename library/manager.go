package library

import (
	"fmt"
	"log/slog"
	"time"
)

// LibraryManager is a thin façade wiring the catalog, full-text index,
// waitlist, lending engine and recommender together, keeping CLI code simple.
type LibraryManager struct {
	catalog     *Catalog
	index       *SearchIndex
	waitlist    *Waitlist
	lending     *LendingEngine
	recommender *Recommender
}

// Options configures a LibraryManager.
type Options struct {
	Logger   *slog.Logger // nil discards event logs
	Sinks    []EventSink  // extra event consumers, e.g. metrics
	Strategy Strategy     // defaults to FrequencyBased
	Clock    func() time.Time
}

// NewLibraryManager builds an empty in-memory library.
func NewLibraryManager(opts Options) (*LibraryManager, error) {
	sink := MultiSink(append([]EventSink{NewLogSink(opts.Logger)}, opts.Sinks...))

	index, err := NewSearchIndex()
	if err != nil {
		return nil, fmt.Errorf("open search index: %w", err)
	}

	catalog := NewCatalog(sink)
	catalog.SetIndexer(index)
	waitlist := NewWaitlist(sink)

	var engineOpts []EngineOption
	if opts.Clock != nil {
		catalog.now = opts.Clock
		waitlist.now = opts.Clock
		engineOpts = append(engineOpts, WithClock(opts.Clock))
	}

	strategy := opts.Strategy
	if strategy == nil {
		strategy = FrequencyBased{}
	}

	return &LibraryManager{
		catalog:     catalog,
		index:       index,
		waitlist:    waitlist,
		lending:     NewLendingEngine(catalog, waitlist, sink, engineOpts...),
		recommender: NewRecommender(strategy),
	}, nil
}

// Close closes the underlying search index.
func (lm *LibraryManager) Close() error { return lm.index.Close() }

// Catalog exposes the catalog for read-only callers such as recommenders.
func (lm *LibraryManager) Catalog() *Catalog { return lm.catalog }

// ------------------ Item helpers ------------------

func (lm *LibraryManager) AddItem(it Item, copies int) error { return lm.catalog.Add(it, copies) }
func (lm *LibraryManager) UpdateItem(it Item) error          { return lm.catalog.Update(it) }
func (lm *LibraryManager) RemoveItem(key string)             { lm.catalog.Remove(key) }
func (lm *LibraryManager) FindItem(key string) (Item, bool)  { return lm.catalog.Find(key) }
func (lm *LibraryManager) GetAllItems() []Item               { return lm.catalog.Items() }
func (lm *LibraryManager) AvailableCopies(key string) int    { return lm.catalog.AvailableCopies(key) }

// ------------------ Patron helpers ------------------

// RegisterPatron creates a patron and registers it with the lending engine.
// When notify is non-nil it becomes the patron's waitlist listener.
func (lm *LibraryManager) RegisterPatron(id, name string, notify Notifiable) (*Patron, error) {
	p, err := NewPatron(id, name)
	if err != nil {
		return nil, err
	}
	if !lm.lending.RegisterPatron(p) {
		return nil, InvalidArgumentf("patron %s already registered", p.ID)
	}
	if notify != nil {
		lm.waitlist.RegisterListener(p.ID, notify)
	}
	return p, nil
}

func (lm *LibraryManager) GetPatron(id string) (*Patron, bool) { return lm.lending.Patron(id) }
func (lm *LibraryManager) GetAllPatrons() []*Patron            { return lm.lending.Patrons() }

func (lm *LibraryManager) SetListener(patronID string, n Notifiable) {
	lm.waitlist.RegisterListener(patronID, n)
}

func (lm *LibraryManager) RemoveListener(patronID string) {
	lm.waitlist.UnregisterListener(patronID)
}

// ------------------ Reservation helpers ------------------

// ReserveItem queues the patron for key. It reports false when the patron
// was already queued.
func (lm *LibraryManager) ReserveItem(patronID, key string) (bool, error) {
	if _, ok := lm.lending.Patron(patronID); !ok {
		return false, NotFoundf("patron not found: %s", patronID)
	}
	if _, ok := lm.catalog.Find(key); !ok {
		return false, NotFoundf("item not found: %s", key)
	}
	return lm.waitlist.Reserve(patronID, key), nil
}

func (lm *LibraryManager) GetReservations(key string) []string {
	return lm.waitlist.Queue(key)
}

func (lm *LibraryManager) GetPatronReservations(patronID string) []string {
	return lm.waitlist.Reservations(patronID)
}

func (lm *LibraryManager) CancelReservation(patronID, key string) error {
	return lm.waitlist.Cancel(patronID, key)
}

// ------------------ Search ------------------

func (lm *LibraryManager) SearchItems(field Field, q string) ([]Item, error) {
	return lm.catalog.SearchByField(field, q)
}

// FullTextSearch matches q word-by-word against titles, authors and genres.
func (lm *LibraryManager) FullTextSearch(q string) ([]Item, error) {
	keys, err := lm.index.Search(q)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", q, err)
	}
	items := make([]Item, 0, len(keys))
	for _, k := range keys {
		if it, ok := lm.catalog.Find(k); ok {
			items = append(items, it)
		}
	}
	return items, nil
}

// ------------------ Circulation ------------------

func (lm *LibraryManager) CheckoutItem(patronID, key string) (CheckoutStatus, error) {
	return lm.lending.Checkout(patronID, key)
}

func (lm *LibraryManager) ReturnItem(patronID, key string) error {
	return lm.lending.Return(patronID, key)
}

// ------------------ Recommendations ------------------

func (lm *LibraryManager) Recommend(patronID string) ([]Item, error) {
	p, ok := lm.lending.Patron(patronID)
	if !ok {
		return nil, NotFoundf("patron not found: %s", patronID)
	}
	return lm.recommender.Recommend(p, lm.catalog), nil
}

func (lm *LibraryManager) SetStrategy(s Strategy) { lm.recommender.SetStrategy(s) }
func (lm *LibraryManager) Strategy() Strategy     { return lm.recommender.Strategy() }

// ------------------ Utilities ------------------

// PrettyItem formats an item for lists.
func PrettyItem(it Item, available int) string {
	return fmt.Sprintf("%-16s %-9s %-36s %-22s %-6d %d", it.Key, it.Kind, truncateString(it.Title, 36), truncateString(it.Author, 22), it.Year, available)
}

// truncateString shortens s to at most maxLen runes, marking the cut with "...".
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
