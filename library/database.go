package library

import (
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"unicode"

	_ "github.com/mattn/go-sqlite3"
)

// SearchIndex mirrors catalog metadata into an in-memory SQLite database
// with an FTS4 table so titles, authors and genres can be searched by word.
// Nothing is written to disk; the index lives as long as the process.
type SearchIndex struct {
	db *sql.DB

	// mu serializes upserts, which span several statements.
	mu sync.Mutex

	lookupStmt *sql.Stmt
	insertStmt *sql.Stmt
	ftsDelStmt *sql.Stmt
	ftsAddStmt *sql.Stmt
	searchStmt *sql.Stmt
}

// NewSearchIndex opens a private in-memory database, applies the schema and
// prepares common statements.
func NewSearchIndex() (*SearchIndex, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// Every connection to ":memory:" is a separate database, so keep one.
	db.SetMaxOpenConns(1)

	if err := applyMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	idx := &SearchIndex{db: db}
	if err := idx.prepareStatements(); err != nil {
		idx.Close()
		return nil, err
	}
	return idx, nil
}

// Close releases prepared statements and closes the DB.
func (s *SearchIndex) Close() error {
	for _, st := range []*sql.Stmt{s.lookupStmt, s.insertStmt, s.ftsDelStmt, s.ftsAddStmt, s.searchStmt} {
		if st != nil {
			st.Close()
		}
	}
	return s.db.Close()
}

// ---------------------------------------------------------------------------
// Schema migration
// ---------------------------------------------------------------------------

const schemaVersion = 1

func applyMigrations(db *sql.DB) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT);`); err != nil {
		return err
	}

	var current int
	_ = db.QueryRow(`SELECT value FROM meta WHERE key='schema_version';`).Scan(&current)
	if current >= schemaVersion {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS items (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            key TEXT NOT NULL UNIQUE
        );`,
		// docid of the FTS row is items.id
		`CREATE VIRTUAL TABLE IF NOT EXISTS items_fts USING fts4(title, author, genre);`,
		`INSERT INTO meta(key,value) VALUES('schema_version',?)
            ON CONFLICT(key) DO UPDATE SET value=excluded.value;`,
	}

	for i, stmt := range stmts {
		var args []any
		if i == len(stmts)-1 {
			args = append(args, schemaVersion)
		}
		if _, err := tx.Exec(stmt, args...); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}

	return tx.Commit()
}

// ---------------------------------------------------------------------------
// Prepared statements
// ---------------------------------------------------------------------------

func (s *SearchIndex) prepareStatements() error {
	var err error
	if s.lookupStmt, err = s.db.Prepare(`SELECT id FROM items WHERE key=?`); err != nil {
		return err
	}
	if s.insertStmt, err = s.db.Prepare(`INSERT INTO items(key) VALUES(?)`); err != nil {
		return err
	}
	if s.ftsDelStmt, err = s.db.Prepare(`DELETE FROM items_fts WHERE docid=?`); err != nil {
		return err
	}
	if s.ftsAddStmt, err = s.db.Prepare(`INSERT INTO items_fts(docid,title,author,genre) VALUES(?,?,?,?)`); err != nil {
		return err
	}
	if s.searchStmt, err = s.db.Prepare(`
        SELECT i.key
        FROM items_fts fts
        JOIN items i ON i.id = fts.docid
        WHERE items_fts MATCH ?
        ORDER BY i.id;`); err != nil {
		return err
	}
	return nil
}

// ---------------------------------------------------------------------------
// Index maintenance
// ---------------------------------------------------------------------------

// IndexItem inserts or replaces the searchable text of it.
func (s *SearchIndex) IndexItem(it Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var id int64
	err = tx.Stmt(s.lookupStmt).QueryRow(it.Key).Scan(&id)
	switch {
	case err == sql.ErrNoRows:
		res, err := tx.Stmt(s.insertStmt).Exec(it.Key)
		if err != nil {
			return err
		}
		if id, err = res.LastInsertId(); err != nil {
			return err
		}
	case err != nil:
		return err
	}

	if _, err := tx.Stmt(s.ftsDelStmt).Exec(id); err != nil {
		return err
	}
	if _, err := tx.Stmt(s.ftsAddStmt).Exec(id, it.Title, it.Author, it.Genre); err != nil {
		return err
	}
	return tx.Commit()
}

// RemoveItem drops key from the index. Unknown keys are ignored.
func (s *SearchIndex) RemoveItem(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var id int64
	err = tx.Stmt(s.lookupStmt).QueryRow(key).Scan(&id)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return err
	}

	if _, err := tx.Stmt(s.ftsDelStmt).Exec(id); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM items WHERE id=?`, id); err != nil {
		return err
	}
	return tx.Commit()
}

// Search returns the keys of items whose title, author or genre contain
// every word of q as a word prefix, in the order they were first indexed.
// A query without any letters or digits matches nothing.
func (s *SearchIndex) Search(q string) ([]string, error) {
	match := matchExpr(q)
	if match == "" {
		return []string{}, nil
	}

	rows, err := s.searchStmt.Query(match)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	keys := []string{}
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// matchExpr turns free text into an FTS prefix query: "Head first" becomes
// "head* first*". Punctuation is dropped so user input cannot form operators.
func matchExpr(q string) string {
	words := strings.FieldsFunc(strings.ToLower(q), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for i, w := range words {
		words[i] = w + "*"
	}
	return strings.Join(words, " ")
}
