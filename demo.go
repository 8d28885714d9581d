package main

import (
	"fmt"
	"io"

	"library-lending/library"
)

// runDemo plays a fixed session against mgr: catalog a few items, borrow,
// queue behind a borrowed copy, hand it over on return and recommend.
func runDemo(mgr *library.LibraryManager, out io.Writer) error {
	items := []library.Item{
		library.NewBook("1111", "Clean Code", "Robert C. Martin", 2008, "Programming"),
		library.NewMagazine("2222", "Science Today", "Editorial", 2024, 58),
		library.NewDVD("3333", "Inception", "Christopher Nolan", 2010, 148),
		library.NewBook("4444", "The Pragmatic Programmer", "Andrew Hunt", 2019, "Programming"),
		library.NewBook("5555", "Refactoring", "Martin Fowler", 2018, "Programming"),
		library.NewBook("6666", "The Hobbit", "J. R. R. Tolkien", 1937, "Fantasy"),
	}
	for _, it := range items {
		if err := mgr.AddItem(it, 1); err != nil {
			return fmt.Errorf("add %s: %w", it.Key, err)
		}
	}
	fmt.Fprintf(out, "Total items in library: %d\n", len(mgr.GetAllItems()))
	for _, it := range mgr.GetAllItems() {
		fmt.Fprintln(out, it.Details())
	}

	notice := func(name string) library.Notifiable {
		return library.NotifyFunc(func(key string) {
			fmt.Fprintf(out, "[notice] %s: %s is back on the shelf\n", name, key)
		})
	}
	farhan, err := mgr.RegisterPatron("P001", "Farhan", notice("Farhan"))
	if err != nil {
		return err
	}
	ayesha, err := mgr.RegisterPatron("P002", "Ayesha", notice("Ayesha"))
	if err != nil {
		return err
	}

	fmt.Fprintln(out, "\n-- Borrowing --")
	for _, key := range []string{"1111", "2222"} {
		status, err := mgr.CheckoutItem(farhan.ID, key)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s borrows %s: %s\n", farhan.Name, key, status)
	}
	fmt.Fprintf(out, "%s has borrowed: %v\n", farhan.Name, farhan.Held())

	status, err := mgr.CheckoutItem(ayesha.ID, "1111")
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s borrows 1111: %s\n", ayesha.Name, status)
	if status == library.CheckoutNoCopies {
		if _, err := mgr.ReserveItem(ayesha.ID, "1111"); err != nil {
			return err
		}
		fmt.Fprintf(out, "%s joins the waitlist for 1111: %v\n", ayesha.Name, mgr.GetReservations("1111"))
	}

	fmt.Fprintln(out, "\n-- Returning --")
	for _, key := range []string{"1111", "2222"} {
		if err := mgr.ReturnItem(farhan.ID, key); err != nil {
			return err
		}
		fmt.Fprintf(out, "%s returns %s, %d available\n", farhan.Name, key, mgr.AvailableCopies(key))
	}
	status, err = mgr.CheckoutItem(ayesha.ID, "1111")
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s borrows 1111: %s\n", ayesha.Name, status)

	fmt.Fprintln(out, "\n-- Recommendations --")
	for _, s := range []library.Strategy{library.FrequencyBased{}, library.GenreBased{}} {
		mgr.SetStrategy(s)
		recs, err := mgr.Recommend(farhan.ID)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s (%s):\n", farhan.Name, s.Name())
		for _, it := range recs {
			fmt.Fprintf(out, "  %s\n", it.Details())
		}
	}
	return nil
}
