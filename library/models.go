package library

import (
	"fmt"
	"time"
)

// Kind tags the variant an Item belongs to.
type Kind string

const (
	KindBook     Kind = "book"
	KindDVD      Kind = "dvd"
	KindMagazine Kind = "magazine"
)

// Item represents catalog metadata for one title. Copy counts live in the
// Catalog, never on the Item itself.
//
// Genre is only meaningful for books, DurationMinutes for DVDs and
// IssueNumber for magazines.
type Item struct {
	Key             string `json:"key" validate:"required"`
	Title           string `json:"title" validate:"required"`
	Author          string `json:"author"`
	Year            int    `json:"year" validate:"gte=0"`
	Kind            Kind   `json:"kind" validate:"oneof=book dvd magazine"`
	Genre           string `json:"genre,omitempty"`
	DurationMinutes int    `json:"duration_minutes,omitempty" validate:"gte=0"`
	IssueNumber     int    `json:"issue_number,omitempty" validate:"gte=0"`
}

// NewBook builds a book item keyed by its ISBN.
func NewBook(isbn, title, author string, year int, genre string) Item {
	return Item{Key: isbn, Title: title, Author: author, Year: year, Kind: KindBook, Genre: genre}
}

// NewDVD builds a DVD item; director is stored as the author.
func NewDVD(key, title, director string, year, minutes int) Item {
	return Item{Key: key, Title: title, Author: director, Year: year, Kind: KindDVD, DurationMinutes: minutes}
}

// NewMagazine builds a magazine item; the editor is stored as the author.
func NewMagazine(key, title, editor string, year, issue int) Item {
	return Item{Key: key, Title: title, Author: editor, Year: year, Kind: KindMagazine, IssueNumber: issue}
}

// Details renders the kind-specific description of the item.
func (it Item) Details() string {
	switch it.Kind {
	case KindBook:
		return fmt.Sprintf("Book: %s by %s (%d), genre %s, ISBN %s", it.Title, it.Author, it.Year, it.Genre, it.Key)
	case KindDVD:
		return fmt.Sprintf("DVD: %s directed by %s (%d), %d mins", it.Title, it.Author, it.Year, it.DurationMinutes)
	case KindMagazine:
		return fmt.Sprintf("Magazine: %s issue %d (%d)", it.Title, it.IssueNumber, it.Year)
	default:
		return fmt.Sprintf("%s (%s)", it.Title, it.Key)
	}
}

// BorrowRecord is one checkout/return lifecycle of an item by a patron.
// ReturnedAt is nil while the item is still out.
type BorrowRecord struct {
	ID         string     `json:"id"`
	Key        string     `json:"key"`
	CheckedOut time.Time  `json:"checked_out"`
	ReturnedAt *time.Time `json:"returned_at,omitempty"`
}

// Open reports whether the record has not been returned yet.
func (r BorrowRecord) Open() bool { return r.ReturnedAt == nil }

// CheckoutStatus is the outcome of a checkout attempt.
type CheckoutStatus string

const (
	CheckoutSuccess      CheckoutStatus = "success"
	CheckoutNoCopies     CheckoutStatus = "no_copies"
	CheckoutItemNotFound CheckoutStatus = "item_not_found"
	CheckoutAlreadyHeld  CheckoutStatus = "already_held"
)
