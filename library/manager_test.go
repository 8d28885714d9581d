package library

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newManager(t *testing.T, opts Options) *LibraryManager {
	t.Helper()
	if opts.Clock == nil {
		opts.Clock = fixedClock()
	}
	mgr, err := NewLibraryManager(opts)
	require.NoError(t, err)
	t.Cleanup(func() { mgr.Close() })
	return mgr
}

func seedManager(t *testing.T, mgr *LibraryManager) {
	t.Helper()
	require.NoError(t, mgr.AddItem(effectiveJava, 2))
	require.NoError(t, mgr.AddItem(designPatterns, 1))
	require.NoError(t, mgr.AddItem(headFirstJava, 1))
	require.NoError(t, mgr.AddItem(gobletOfFire, 1))
	require.NoError(t, mgr.AddItem(inception, 1))
	require.NoError(t, mgr.AddItem(scienceToday, 3))
}

func TestManager_BorrowReserveNotifyScenario(t *testing.T) {
	sink := &recordingSink{}
	mgr := newManager(t, Options{Sinks: []EventSink{sink}})
	seedManager(t, mgr)

	_, err := mgr.RegisterPatron("A", "Alice", nil)
	require.NoError(t, err)
	bob := &inbox{}
	_, err = mgr.RegisterPatron("B", "Bob", bob)
	require.NoError(t, err)

	status, err := mgr.CheckoutItem("A", headFirstJava.Key)
	require.NoError(t, err)
	assert.Equal(t, CheckoutSuccess, status)
	assert.Equal(t, 0, mgr.AvailableCopies(headFirstJava.Key))

	status, err = mgr.CheckoutItem("B", headFirstJava.Key)
	require.NoError(t, err)
	assert.Equal(t, CheckoutNoCopies, status)

	ok, err := mgr.ReserveItem("B", headFirstJava.Key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{headFirstJava.Key}, mgr.GetPatronReservations("B"))

	require.NoError(t, mgr.ReturnItem("A", headFirstJava.Key))
	assert.Equal(t, 1, mgr.AvailableCopies(headFirstJava.Key))
	assert.Equal(t, []string{headFirstJava.Key}, bob.keys)
	assert.Empty(t, mgr.GetReservations(headFirstJava.Key))
	assert.Equal(t, 1, sink.count(EventNotified))
}

func TestManager_ReserveValidatesPatronAndItem(t *testing.T) {
	mgr := newManager(t, Options{})
	seedManager(t, mgr)
	_, err := mgr.RegisterPatron("A", "Alice", nil)
	require.NoError(t, err)

	_, err = mgr.ReserveItem("ghost", effectiveJava.Key)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = mgr.ReserveItem("A", "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	ok, err := mgr.ReserveItem("A", effectiveJava.Key)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = mgr.ReserveItem("A", effectiveJava.Key)
	require.NoError(t, err)
	assert.False(t, ok, "second reservation is a no-op")
	assert.Equal(t, []string{"A"}, mgr.GetReservations(effectiveJava.Key))

	require.NoError(t, mgr.CancelReservation("A", effectiveJava.Key))
	assert.ErrorIs(t, mgr.CancelReservation("A", effectiveJava.Key), ErrNotFound)
}

func TestManager_RegisterPatron(t *testing.T) {
	mgr := newManager(t, Options{})

	p, err := mgr.RegisterPatron("", "Anonymous", nil)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(p.ID, "patron-"))

	_, err = mgr.RegisterPatron("P1", "Ann", nil)
	require.NoError(t, err)
	_, err = mgr.RegisterPatron("P1", "Ann again", nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	got, ok := mgr.GetPatron("P1")
	require.True(t, ok)
	assert.Equal(t, "Ann", got.Name)
	assert.Len(t, mgr.GetAllPatrons(), 2)
}

func TestManager_ListenerCanBeSetLater(t *testing.T) {
	mgr := newManager(t, Options{})
	seedManager(t, mgr)
	_, _ = mgr.RegisterPatron("A", "Alice", nil)
	_, _ = mgr.RegisterPatron("B", "Bob", nil)

	_, _ = mgr.CheckoutItem("A", inception.Key)
	_, _ = mgr.ReserveItem("B", inception.Key)
	box := &inbox{}
	mgr.SetListener("B", box)

	require.NoError(t, mgr.ReturnItem("A", inception.Key))
	assert.Equal(t, []string{inception.Key}, box.keys)

	mgr.RemoveListener("B")
	_, _ = mgr.CheckoutItem("A", inception.Key)
	_, _ = mgr.ReserveItem("B", inception.Key)
	require.NoError(t, mgr.ReturnItem("A", inception.Key))
	assert.Len(t, box.keys, 1)
}

func TestManager_FullTextSearchFollowsCatalog(t *testing.T) {
	mgr := newManager(t, Options{})
	seedManager(t, mgr)

	items, err := mgr.FullTextSearch("java")
	require.NoError(t, err)
	assert.Equal(t, []string{effectiveJava.Key, headFirstJava.Key}, keysOf(items))

	mgr.RemoveItem(effectiveJava.Key)
	items, err = mgr.FullTextSearch("java")
	require.NoError(t, err)
	assert.Equal(t, []string{headFirstJava.Key}, keysOf(items))

	updated := headFirstJava
	updated.Title = "Head First Go"
	require.NoError(t, mgr.UpdateItem(updated))
	items, err = mgr.FullTextSearch("head go")
	require.NoError(t, err)
	assert.Equal(t, []string{headFirstJava.Key}, keysOf(items))

	items, err = mgr.SearchItems(FieldAuthor, "nolan")
	require.NoError(t, err)
	assert.Equal(t, []string{inception.Key}, keysOf(items))
}

func TestManager_RecommendAndStrategySwap(t *testing.T) {
	mgr := newManager(t, Options{})
	seedManager(t, mgr)
	_, _ = mgr.RegisterPatron("A", "Alice", nil)

	_, err := mgr.Recommend("ghost")
	assert.ErrorIs(t, err, ErrNotFound)

	_, _ = mgr.CheckoutItem("A", effectiveJava.Key)
	_ = mgr.ReturnItem("A", effectiveJava.Key)
	_, _ = mgr.CheckoutItem("A", designPatterns.Key)

	recs, err := mgr.Recommend("A")
	require.NoError(t, err)
	assert.Equal(t, []string{effectiveJava.Key, headFirstJava.Key}, keysOf(recs))
	assert.Equal(t, "frequency", mgr.Strategy().Name())

	mgr.SetStrategy(GenreBased{})
	recs, err = mgr.Recommend("A")
	require.NoError(t, err)
	assert.Equal(t, []string{effectiveJava.Key, headFirstJava.Key}, keysOf(recs))
	assert.Equal(t, "genre", mgr.Strategy().Name())
}

func TestManager_LogsEvents(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	mgr := newManager(t, Options{Logger: logger})
	require.NoError(t, mgr.AddItem(gobletOfFire, 1))
	_, _ = mgr.RegisterPatron("A", "Alice", nil)

	require.NoError(t, mgr.ReturnItem("A", gobletOfFire.Key))

	out := buf.String()
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, gobletOfFire.Key)
}

func TestPrettyItemTruncates(t *testing.T) {
	long := NewBook("isbn-long", "The Structure and Interpretation of Computer Programs", "Abelson", 1985, "Programming")
	line := PrettyItem(long, 1)
	assert.Contains(t, line, "The Structure and Interpretation ...")
	assert.True(t, strings.HasSuffix(line, " 1"))
}

func TestTruncateStringKeepsRunesWhole(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"Go", 5, "Go"},
		{"日本語の本のタイトルはとても長いです", 22, "日本語の本のタイトルはとても長いです"},
		{"日本語の本のタイトルはとても長いです", 10, "日本語の本のタ..."},
		{"Ünïcödé", 3, "Ünï"},
	}
	for _, tt := range tests {
		got := truncateString(tt.in, tt.max)
		assert.Equal(t, tt.want, got)
		assert.True(t, utf8.ValidString(got), "%q is not valid UTF-8", got)
	}
}
