package config

import (
	"fmt"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"library-lending/library"
)

// Seed is a starting catalog and patron list read from YAML:
//
//	items:
//	  - kind: book
//	    key: 978-0596009205
//	    title: Head First Java
//	    author: Kathy Sierra
//	    year: 2005
//	    genre: Programming
//	    copies: 2
//	patrons:
//	  - id: P1
//	    name: Alice
type Seed struct {
	Items   []SeedItem   `koanf:"items"`
	Patrons []SeedPatron `koanf:"patrons"`
}

type SeedItem struct {
	Kind    string `koanf:"kind"` // book when empty
	Key     string `koanf:"key"`
	Title   string `koanf:"title"`
	Author  string `koanf:"author"`
	Year    int    `koanf:"year"`
	Genre   string `koanf:"genre"`
	Minutes int    `koanf:"minutes"`
	Issue   int    `koanf:"issue"`
	Copies  int    `koanf:"copies"` // 1 when zero
}

type SeedPatron struct {
	ID   string `koanf:"id"`
	Name string `koanf:"name"`
}

// LoadSeed reads a seed file.
func LoadSeed(path string) (*Seed, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("load seed %s: %w", path, err)
	}
	s := &Seed{}
	if err := k.Unmarshal("", s); err != nil {
		return nil, fmt.Errorf("unmarshal seed %s: %w", path, err)
	}
	return s, nil
}

// Item converts the entry into a catalog item and its copy count.
func (si SeedItem) Item() (library.Item, int) {
	var it library.Item
	switch library.Kind(si.Kind) {
	case library.KindDVD:
		it = library.NewDVD(si.Key, si.Title, si.Author, si.Year, si.Minutes)
	case library.KindMagazine:
		it = library.NewMagazine(si.Key, si.Title, si.Author, si.Year, si.Issue)
	case library.KindBook, "":
		it = library.NewBook(si.Key, si.Title, si.Author, si.Year, si.Genre)
	default:
		// Left for validation to reject.
		it = library.Item{Key: si.Key, Title: si.Title, Author: si.Author, Year: si.Year, Kind: library.Kind(si.Kind)}
	}
	copies := si.Copies
	if copies == 0 {
		copies = 1
	}
	return it, copies
}

// SeedTarget receives seeded items and patrons.
type SeedTarget interface {
	AddItem(it library.Item, copies int) error
	RegisterPatron(id, name string, notify library.Notifiable) (*library.Patron, error)
}

// SeedResult reports what Apply loaded.
type SeedResult struct {
	Items   int
	Copies  int
	Patrons int
	Errors  []error
}

// SeedOutcome describes one applied seed entry. Exactly one of Item and
// Patron is set; Err holds the unwrapped failure, if any.
type SeedOutcome struct {
	Item   *library.Item
	Copies int
	Patron *SeedPatron
	Err    error
}

// Apply adds every item and patron to dst. Bad entries are collected in
// the result and skipped.
func (s *Seed) Apply(dst SeedTarget) SeedResult {
	return s.ApplyEach(dst, nil)
}

// ApplyEach is Apply calling fn, when non-nil, after every entry.
func (s *Seed) ApplyEach(dst SeedTarget, fn func(SeedOutcome)) SeedResult {
	if fn == nil {
		fn = func(SeedOutcome) {}
	}

	var res SeedResult
	for i, si := range s.Items {
		it, copies := si.Item()
		err := dst.AddItem(it, copies)
		fn(SeedOutcome{Item: &it, Copies: copies, Err: err})
		if err != nil {
			res.Errors = append(res.Errors, fmt.Errorf("item %d (%s): %w", i, si.Key, err))
			continue
		}
		res.Items++
		res.Copies += copies
	}
	for i, sp := range s.Patrons {
		_, err := dst.RegisterPatron(sp.ID, sp.Name, nil)
		fn(SeedOutcome{Patron: &sp, Err: err})
		if err != nil {
			res.Errors = append(res.Errors, fmt.Errorf("patron %d (%s): %w", i, sp.ID, err))
			continue
		}
		res.Patrons++
	}
	return res
}
