package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/samber/do/v2"
	"golang.org/x/term"

	"library-lending/library"
	"library-lending/metrics"
)

func runShell(opts *cliOptions, in io.Reader, out io.Writer) error {
	return withManager(opts, func(h *managerHandle, i do.Injector) error {
		rec := do.MustInvoke[*metrics.Recorder](i)
		newShell(h.LibraryManager, rec, in, out).run()
		return nil
	})
}

// shell is the line-oriented console. Every command prompts for its
// arguments one per line.
type shell struct {
	mgr *library.LibraryManager
	rec *metrics.Recorder
	sc  *bufio.Scanner
	out io.Writer

	// echo repeats input lines when stdin is not a terminal, so piped
	// sessions read like a transcript.
	echo bool
}

func newShell(mgr *library.LibraryManager, rec *metrics.Recorder, in io.Reader, out io.Writer) *shell {
	s := &shell{
		mgr:  mgr,
		rec:  rec,
		sc:   bufio.NewScanner(in),
		out:  out,
		echo: !isTerminal(in),
	}
	// Seeded patrons get the same notices as patrons added here.
	for _, p := range mgr.GetAllPatrons() {
		mgr.SetListener(p.ID, s.noticeFor(p.Name))
	}
	return s
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func (s *shell) printf(format string, args ...any) {
	fmt.Fprintf(s.out, format, args...)
}

func (s *shell) println(args ...any) {
	fmt.Fprintln(s.out, args...)
}

// ask prints prompt and reads one trimmed line. ok is false at end of input.
func (s *shell) ask(prompt string) (string, bool) {
	s.printf("%s", prompt)
	if !s.sc.Scan() {
		return "", false
	}
	line := strings.TrimSpace(s.sc.Text())
	if s.echo {
		s.println(line)
	}
	return line, true
}

func (s *shell) askInt(prompt string, def int) (int, bool) {
	v, ok := s.ask(prompt)
	if !ok {
		return 0, false
	}
	if v == "" {
		return def, true
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		s.printf("Invalid number: %s\n", v)
		return 0, false
	}
	return n, true
}

func (s *shell) run() {
	s.println("Welcome to the Library Lending System!")
	s.printHelp()

	for {
		cmd, ok := s.ask("\n> ")
		if !ok {
			return
		}

		switch cmd {
		case "":
		case "add book":
			s.handleAddBook()
		case "add dvd":
			s.handleAddDVD()
		case "add magazine":
			s.handleAddMagazine()
		case "update item":
			s.handleUpdateItem()
		case "remove item":
			s.handleRemoveItem()
		case "list items":
			s.handleListItems()
		case "details":
			s.handleDetails()
		case "add patron":
			s.handleAddPatron()
		case "list patrons":
			s.handleListPatrons()
		case "history":
			s.handleHistory()
		case "search":
			s.handleSearch()
		case "checkout":
			s.handleCheckout()
		case "return":
			s.handleReturn()
		case "reserve":
			s.handleReserve()
		case "list reservations":
			s.handleListReservations()
		case "cancel reservation":
			s.handleCancelReservation()
		case "recommend":
			s.handleRecommend()
		case "strategy":
			s.handleStrategy()
		case "stats":
			s.handleStats()
		case "help":
			s.printHelp()
		case "exit", "quit":
			s.println("Goodbye!")
			return
		default:
			s.println("Unknown command. Type 'help' to list commands.")
		}
	}
}

func (s *shell) printHelp() {
	s.println("Available commands:")
	s.println("  Items: add book, add dvd, add magazine, update item, remove item, list items, details, search")
	s.println("  Patrons: add patron, list patrons, history")
	s.println("  Circulation: checkout, return, reserve, list reservations, cancel reservation")
	s.println("  Recommendations: recommend, strategy")
	s.println("  System: stats, help, exit")
}

// noticeFor is the waitlist listener for a patron created in this session.
func (s *shell) noticeFor(name string) library.Notifiable {
	return library.NotifyFunc(func(key string) {
		title := key
		if it, ok := s.mgr.FindItem(key); ok {
			title = it.Title
		}
		s.printf("[notice] %s: '%s' is available for checkout\n", name, title)
	})
}

// ------------------ Items ------------------

func (s *shell) handleAddBook() {
	isbn, ok := s.ask("ISBN: ")
	if !ok {
		return
	}
	title, ok := s.ask("Title: ")
	if !ok {
		return
	}
	author, ok := s.ask("Author: ")
	if !ok {
		return
	}
	year, ok := s.askInt("Year: ", 0)
	if !ok {
		return
	}
	genre, ok := s.ask("Genre: ")
	if !ok {
		return
	}
	s.addItem(library.NewBook(isbn, title, author, year, genre))
}

func (s *shell) handleAddDVD() {
	key, ok := s.ask("Key: ")
	if !ok {
		return
	}
	title, ok := s.ask("Title: ")
	if !ok {
		return
	}
	director, ok := s.ask("Director: ")
	if !ok {
		return
	}
	year, ok := s.askInt("Year: ", 0)
	if !ok {
		return
	}
	minutes, ok := s.askInt("Duration (minutes): ", 0)
	if !ok {
		return
	}
	s.addItem(library.NewDVD(key, title, director, year, minutes))
}

func (s *shell) handleAddMagazine() {
	key, ok := s.ask("Key: ")
	if !ok {
		return
	}
	title, ok := s.ask("Title: ")
	if !ok {
		return
	}
	editor, ok := s.ask("Editor: ")
	if !ok {
		return
	}
	year, ok := s.askInt("Year: ", 0)
	if !ok {
		return
	}
	issue, ok := s.askInt("Issue: ", 0)
	if !ok {
		return
	}
	s.addItem(library.NewMagazine(key, title, editor, year, issue))
}

func (s *shell) addItem(it library.Item) {
	copies, ok := s.askInt("Copies [1]: ", 1)
	if !ok {
		return
	}
	if err := s.mgr.AddItem(it, copies); err != nil {
		s.printf("Error adding item: %v\n", err)
		return
	}
	s.printf("Added '%s' (%s). %d cop%s on the shelf.\n", it.Title, it.Key, s.mgr.AvailableCopies(it.Key), plural(s.mgr.AvailableCopies(it.Key), "y", "ies"))
}

func (s *shell) handleUpdateItem() {
	key, ok := s.ask("Item key: ")
	if !ok {
		return
	}
	it, found := s.mgr.FindItem(key)
	if !found {
		s.printf("Item %s not found\n", key)
		return
	}

	title, ok := s.ask(fmt.Sprintf("Title [%s]: ", it.Title))
	if !ok {
		return
	}
	author, ok := s.ask(fmt.Sprintf("Author [%s]: ", it.Author))
	if !ok {
		return
	}
	year, ok := s.askInt(fmt.Sprintf("Year [%d]: ", it.Year), it.Year)
	if !ok {
		return
	}
	if title != "" {
		it.Title = title
	}
	if author != "" {
		it.Author = author
	}
	it.Year = year
	if it.Kind == library.KindBook {
		genre, ok := s.ask(fmt.Sprintf("Genre [%s]: ", it.Genre))
		if !ok {
			return
		}
		if genre != "" {
			it.Genre = genre
		}
	}

	if err := s.mgr.UpdateItem(it); err != nil {
		s.printf("Error updating item: %v\n", err)
		return
	}
	s.printf("Updated %s\n", it.Details())
}

func (s *shell) handleRemoveItem() {
	key, ok := s.ask("Item key: ")
	if !ok {
		return
	}
	if _, found := s.mgr.FindItem(key); !found {
		s.printf("Item %s not found\n", key)
		return
	}
	s.mgr.RemoveItem(key)
	s.printf("Removed %s\n", key)
}

func (s *shell) handleListItems() {
	items := s.mgr.GetAllItems()
	if len(items) == 0 {
		s.println("No items in library.")
		return
	}
	s.printItems(items)
}

func (s *shell) printItems(items []library.Item) {
	s.printf("%-16s %-9s %-36s %-22s %-6s %s\n", "Key", "Kind", "Title", "Author", "Year", "Available")
	s.println(strings.Repeat("-", 100))
	for _, it := range items {
		line := library.PrettyItem(it, s.mgr.AvailableCopies(it.Key))
		if q := s.mgr.GetReservations(it.Key); len(q) > 0 {
			line += fmt.Sprintf("  (waiting: %s)", strings.Join(q, ", "))
		}
		s.println(line)
	}
}

func (s *shell) handleDetails() {
	key, ok := s.ask("Item key: ")
	if !ok {
		return
	}
	it, found := s.mgr.FindItem(key)
	if !found {
		s.printf("Item %s not found\n", key)
		return
	}
	s.println(it.Details())
	s.printf("Available copies: %d\n", s.mgr.AvailableCopies(key))
}

func (s *shell) handleSearch() {
	field, ok := s.ask("Field (title, author, genre, or Enter for all): ")
	if !ok {
		return
	}
	q, ok := s.ask("Query: ")
	if !ok {
		return
	}

	var (
		items []library.Item
		err   error
	)
	if field == "" || field == "all" {
		items, err = s.mgr.FullTextSearch(q)
	} else {
		items, err = s.mgr.SearchItems(library.Field(strings.ToLower(field)), q)
	}
	if err != nil {
		s.printf("Error: %v\n", err)
		return
	}
	if len(items) == 0 {
		s.printf("No items found matching '%s'.\n", q)
		return
	}
	s.printf("Found %d item(s) matching '%s':\n", len(items), q)
	s.printItems(items)
}

// ------------------ Patrons ------------------

func (s *shell) handleAddPatron() {
	id, ok := s.ask("Patron ID (Enter to generate): ")
	if !ok {
		return
	}
	name, ok := s.ask("Name: ")
	if !ok {
		return
	}
	if name == "" {
		s.println("Error: name cannot be empty")
		return
	}
	p, err := s.mgr.RegisterPatron(id, name, s.noticeFor(name))
	if err != nil {
		s.printf("Error: %v\n", err)
		return
	}
	s.printf("Added patron '%s' with ID %s\n", p.Name, p.ID)
}

func (s *shell) handleListPatrons() {
	patrons := s.mgr.GetAllPatrons()
	if len(patrons) == 0 {
		s.println("No patrons registered.")
		return
	}
	s.printf("%-30s %-25s %s\n", "ID", "Name", "Borrowed")
	s.println(strings.Repeat("-", 80))
	for _, p := range patrons {
		held := p.Held()
		borrowed := "None"
		if len(held) > 0 {
			borrowed = strings.Join(held, ", ")
		}
		s.printf("%-30s %-25s %s\n", p.ID, p.Name, borrowed)
	}
}

func (s *shell) patron(prompt string) (*library.Patron, bool) {
	id, ok := s.ask(prompt)
	if !ok {
		return nil, false
	}
	p, found := s.mgr.GetPatron(id)
	if !found {
		s.printf("Error: patron %s not found\n", id)
		return nil, false
	}
	return p, true
}

func (s *shell) handleHistory() {
	p, ok := s.patron("Patron ID: ")
	if !ok {
		return
	}
	hist := p.History()
	if len(hist) == 0 {
		s.printf("%s has not borrowed anything yet.\n", p.Name)
		return
	}
	s.printf("Borrowing history for %s:\n", p.Name)
	for _, rec := range hist {
		title := rec.Key
		if it, found := s.mgr.FindItem(rec.Key); found {
			title = it.Title
		}
		returned := "still out"
		if !rec.Open() {
			returned = "returned " + rec.ReturnedAt.Format("2006-01-02 15:04")
		}
		s.printf("  %s  %-36s %s\n", rec.CheckedOut.Format("2006-01-02 15:04"), title, returned)
	}
}

// ------------------ Circulation ------------------

func (s *shell) handleCheckout() {
	key, ok := s.ask("Item key: ")
	if !ok {
		return
	}
	p, ok := s.patron("Patron ID: ")
	if !ok {
		return
	}

	status, err := s.mgr.CheckoutItem(p.ID, key)
	if err != nil {
		s.printf("Error checking out item: %v\n", err)
		return
	}
	switch status {
	case library.CheckoutSuccess:
		it, _ := s.mgr.FindItem(key)
		s.printf("'%s' checked out to %s\n", it.Title, p.Name)
	case library.CheckoutNoCopies:
		s.printf("No copies of %s available. Use 'reserve' to join the waitlist.\n", key)
	case library.CheckoutAlreadyHeld:
		s.printf("%s already has %s checked out\n", p.Name, key)
	case library.CheckoutItemNotFound:
		s.printf("Item %s not found\n", key)
	}
}

func (s *shell) handleReturn() {
	key, ok := s.ask("Item key: ")
	if !ok {
		return
	}
	p, ok := s.patron("Patron ID: ")
	if !ok {
		return
	}
	wasHeld := p.Holds(key)

	if err := s.mgr.ReturnItem(p.ID, key); err != nil {
		s.printf("Error returning item: %v\n", err)
		return
	}
	if !wasHeld {
		s.printf("Warning: %s had no open loan for %s; the copy was shelved anyway\n", p.Name, key)
	}
	s.printf("%s returned by %s. %d available.\n", key, p.Name, s.mgr.AvailableCopies(key))
}

func (s *shell) handleReserve() {
	key, ok := s.ask("Item key: ")
	if !ok {
		return
	}
	p, ok := s.patron("Patron ID: ")
	if !ok {
		return
	}

	added, err := s.mgr.ReserveItem(p.ID, key)
	if err != nil {
		s.printf("Error reserving item: %v\n", err)
		return
	}
	if !added {
		s.printf("%s is already waiting for %s\n", p.Name, key)
	}
	for i, id := range s.mgr.GetReservations(key) {
		if id == p.ID {
			s.printf("%s reserved for %s. Position in queue: %d\n", key, p.Name, i+1)
			break
		}
	}
}

func (s *shell) handleListReservations() {
	key, ok := s.ask("Item key (or press Enter for all items): ")
	if !ok {
		return
	}
	if key == "" {
		s.listAllReservations()
		return
	}

	queue := s.mgr.GetReservations(key)
	if len(queue) == 0 {
		s.println("No reservations for this item.")
		return
	}
	s.printf("%-10s %-30s %s\n", "Position", "ID", "Name")
	s.println(strings.Repeat("-", 60))
	for i, id := range queue {
		name := ""
		if p, found := s.mgr.GetPatron(id); found {
			name = p.Name
		}
		s.printf("%-10d %-30s %s\n", i+1, id, name)
	}
}

func (s *shell) listAllReservations() {
	reserved := 0
	for _, it := range s.mgr.GetAllItems() {
		queue := s.mgr.GetReservations(it.Key)
		if len(queue) == 0 {
			continue
		}
		reserved++
		s.printf("%-16s %-36.36s %s\n", it.Key, it.Title, strings.Join(queue, ", "))
	}
	if reserved == 0 {
		s.println("No active reservations in the system.")
		return
	}
	s.printf("\nItems with reservations: %d\n", reserved)
}

func (s *shell) handleCancelReservation() {
	key, ok := s.ask("Item key: ")
	if !ok {
		return
	}
	p, ok := s.patron("Patron ID: ")
	if !ok {
		return
	}
	if err := s.mgr.CancelReservation(p.ID, key); err != nil {
		s.printf("Error: %v\n", err)
		return
	}
	s.printf("Reservation of %s for %s cancelled\n", key, p.Name)
}

// ------------------ Recommendations ------------------

func (s *shell) handleRecommend() {
	p, ok := s.patron("Patron ID: ")
	if !ok {
		return
	}
	recs, err := s.mgr.Recommend(p.ID)
	if err != nil {
		s.printf("Error: %v\n", err)
		return
	}
	if len(recs) == 0 {
		s.printf("Nothing to recommend for %s right now.\n", p.Name)
		return
	}
	s.printf("Recommended for %s (%s):\n", p.Name, s.mgr.Strategy().Name())
	for i, it := range recs {
		s.printf("  %d. %s\n", i+1, it.Details())
	}
}

func (s *shell) handleStrategy() {
	name, ok := s.ask(fmt.Sprintf("Strategy (frequency, genre) [%s]: ", s.mgr.Strategy().Name()))
	if !ok || name == "" {
		return
	}
	st, err := library.StrategyByName(strings.ToLower(name))
	if err != nil {
		s.printf("Error: %v\n", err)
		return
	}
	s.mgr.SetStrategy(st)
	s.printf("Recommendation strategy set to %s\n", st.Name())
}

// ------------------ System ------------------

func (s *shell) handleStats() {
	samples, err := s.rec.Snapshot()
	if err != nil {
		s.printf("Error: %v\n", err)
		return
	}
	for _, smp := range samples {
		s.println(smp.String())
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
