package library

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/cases"
)

// Field selects which text attribute SearchByField matches against.
type Field string

const (
	FieldTitle  Field = "title"
	FieldAuthor Field = "author"
	FieldGenre  Field = "genre"
)

// Indexer mirrors catalog metadata into a secondary index.
type Indexer interface {
	IndexItem(Item) error
	RemoveItem(key string) error
}

// Inventory is the read-only catalog view used by recommendation strategies.
type Inventory interface {
	Items() []Item
	Find(key string) (Item, bool)
	AvailableCopies(key string) int
}

// Catalog stores item metadata and per-item available-copy counts.
//
// Thread safety: all methods are safe for concurrent use. Copy counts and
// metadata are only mutated through Catalog methods.
type Catalog struct {
	mu     sync.RWMutex
	items  map[string]Item
	copies map[string]int
	order  []string // insertion order of keys in items

	// indexMu serializes writers across the catalog and index updates so
	// the index always ends with the text of the last metadata write.
	// Lock order: indexMu, then mu.
	indexMu sync.Mutex

	validator *itemValidator
	indexer   Indexer
	events    EventSink
	now       func() time.Time
}

// NewCatalog creates an empty catalog emitting events to sink (nil discards).
func NewCatalog(sink EventSink) *Catalog {
	return &Catalog{
		items:     make(map[string]Item),
		copies:    make(map[string]int),
		validator: newItemValidator(),
		events:    sinkOrDiscard(sink),
		now:       time.Now,
	}
}

// SetIndexer wires a secondary index that follows add/update/remove.
func (c *Catalog) SetIndexer(idx Indexer) {
	c.indexMu.Lock()
	defer c.indexMu.Unlock()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.indexer = idx
}

// Add inserts item with the given number of copies. When the key already
// exists the copies are summed into the existing entry and the stored
// metadata is left untouched; use Update to change metadata.
//
// An indexer failure is returned after the catalog entry has been stored;
// the catalog stays authoritative.
func (c *Catalog) Add(item Item, copies int) error {
	if copies <= 0 {
		return InvalidArgumentf("copies must be > 0, got %d", copies)
	}
	if err := c.validator.validate(item); err != nil {
		return err
	}

	c.indexMu.Lock()
	c.mu.Lock()
	_, exists := c.items[item.Key]
	if !exists {
		c.items[item.Key] = item
		c.order = append(c.order, item.Key)
	}
	c.copies[item.Key] += copies
	available := c.copies[item.Key]
	idx := c.indexer
	c.mu.Unlock()

	var err error
	if !exists && idx != nil {
		err = idx.IndexItem(item)
	}
	c.indexMu.Unlock()
	if err != nil {
		return fmt.Errorf("index %s: %w", item.Key, err)
	}

	c.emit(Event{Type: EventItemAdded, Key: item.Key, Available: available})
	return nil
}

// Update replaces the stored metadata of an existing item and keeps its
// copy count.
func (c *Catalog) Update(item Item) error {
	if err := c.validator.validate(item); err != nil {
		return err
	}

	c.indexMu.Lock()
	c.mu.Lock()
	if _, ok := c.items[item.Key]; !ok {
		c.mu.Unlock()
		c.indexMu.Unlock()
		return NotFoundf("item not found: %s", item.Key)
	}
	c.items[item.Key] = item
	idx := c.indexer
	c.mu.Unlock()

	var err error
	if idx != nil {
		err = idx.IndexItem(item)
	}
	c.indexMu.Unlock()
	if err != nil {
		return fmt.Errorf("index %s: %w", item.Key, err)
	}

	c.emit(Event{Type: EventItemUpdated, Key: item.Key})
	return nil
}

// Remove deletes the item and its copy count. Removing an absent key is a no-op.
func (c *Catalog) Remove(key string) {
	c.indexMu.Lock()
	c.mu.Lock()
	_, existed := c.items[key]
	delete(c.items, key)
	delete(c.copies, key)
	if existed {
		for i, k := range c.order {
			if k == key {
				c.order = append(c.order[:i], c.order[i+1:]...)
				break
			}
		}
	}
	idx := c.indexer
	c.mu.Unlock()

	if existed && idx != nil {
		// The index is a mirror; a failure here must not resurrect the item.
		_ = idx.RemoveItem(key)
	}
	c.indexMu.Unlock()

	c.emit(Event{Type: EventItemRemoved, Key: key})
}

// Find returns the item stored under key.
func (c *Catalog) Find(key string) (Item, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	it, ok := c.items[key]
	return it, ok
}

// Items returns every item in insertion order.
func (c *Catalog) Items() []Item {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Item, 0, len(c.order))
	for _, k := range c.order {
		out = append(out, c.items[k])
	}
	return out
}

// Len returns the number of distinct items.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// SearchByField returns items whose field contains q, ignoring case.
// Results follow insertion order.
func (c *Catalog) SearchByField(field Field, q string) ([]Item, error) {
	var get func(Item) string
	switch field {
	case FieldTitle:
		get = func(it Item) string { return it.Title }
	case FieldAuthor:
		get = func(it Item) string { return it.Author }
	case FieldGenre:
		get = func(it Item) string { return it.Genre }
	default:
		return nil, InvalidArgumentf("unknown search field %q", field)
	}

	// A Caser keeps state, so each search gets its own.
	folder := cases.Fold()
	needle := folder.String(q)
	out := []Item{}
	for _, it := range c.Items() {
		if strings.Contains(folder.String(get(it)), needle) {
			out = append(out, it)
		}
	}
	return out, nil
}

// CheckoutCopy takes one copy of key if any is available.
func (c *Catalog) CheckoutCopy(key string) bool {
	c.mu.Lock()
	avail := c.copies[key]
	if avail <= 0 {
		c.mu.Unlock()
		return false
	}
	c.copies[key] = avail - 1
	c.mu.Unlock()

	c.emit(Event{Type: EventCopyCheckedOut, Key: key, Available: avail - 1})
	return true
}

// ReturnCopy puts one copy of key back. An unknown key gets a fresh counter
// at 1; item metadata is never recreated.
func (c *Catalog) ReturnCopy(key string) {
	c.mu.Lock()
	c.copies[key]++
	avail := c.copies[key]
	c.mu.Unlock()

	c.emit(Event{Type: EventCopyReturned, Key: key, Available: avail})
}

// AvailableCopies returns the copies on the shelf, 0 for unknown keys.
func (c *Catalog) AvailableCopies(key string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.copies[key]
}

func (c *Catalog) emit(e Event) {
	e.At = c.now()
	c.events.Emit(e)
}
