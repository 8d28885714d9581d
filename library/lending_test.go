package library

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lendingFixture struct {
	catalog  *Catalog
	waitlist *Waitlist
	engine   *LendingEngine
	sink     *recordingSink
}

func newLendingFixture(t *testing.T, patronIDs ...string) *lendingFixture {
	t.Helper()
	sink := &recordingSink{}
	f := &lendingFixture{sink: sink, catalog: NewCatalog(sink), waitlist: NewWaitlist(sink)}
	f.engine = NewLendingEngine(f.catalog, f.waitlist, sink, WithClock(fixedClock()))
	for _, id := range patronIDs {
		require.True(t, f.engine.RegisterPatron(mustPatron(t, id, id)))
	}
	return f
}

func (f *lendingFixture) patron(t *testing.T, id string) *Patron {
	t.Helper()
	p, ok := f.engine.Patron(id)
	require.True(t, ok)
	return p
}

func TestLending_CheckoutStatuses(t *testing.T) {
	f := newLendingFixture(t, "A", "B")
	require.NoError(t, f.catalog.Add(headFirstJava, 1))

	status, err := f.engine.Checkout("A", "missing")
	require.NoError(t, err)
	assert.Equal(t, CheckoutItemNotFound, status)

	status, err = f.engine.Checkout("A", headFirstJava.Key)
	require.NoError(t, err)
	assert.Equal(t, CheckoutSuccess, status)
	assert.Equal(t, 0, f.catalog.AvailableCopies(headFirstJava.Key))

	status, err = f.engine.Checkout("B", headFirstJava.Key)
	require.NoError(t, err)
	assert.Equal(t, CheckoutNoCopies, status)
	assert.Equal(t, 0, f.catalog.AvailableCopies(headFirstJava.Key))
	assert.Empty(t, f.waitlist.Queue(headFirstJava.Key), "checkout never reserves automatically")
	assert.Empty(t, f.patron(t, "B").History())
}

func TestLending_CheckoutRecordsOpenBorrow(t *testing.T) {
	f := newLendingFixture(t, "A")
	require.NoError(t, f.catalog.Add(effectiveJava, 3))

	status, err := f.engine.Checkout("A", effectiveJava.Key)
	require.NoError(t, err)
	require.Equal(t, CheckoutSuccess, status)

	a := f.patron(t, "A")
	assert.Equal(t, []string{effectiveJava.Key}, a.Held())
	hist := a.History()
	require.Len(t, hist, 1)
	assert.Equal(t, effectiveJava.Key, hist[0].Key)
	assert.True(t, hist[0].Open())
	assert.False(t, hist[0].CheckedOut.IsZero())
	assert.Equal(t, 2, f.catalog.AvailableCopies(effectiveJava.Key), "decrements by exactly one")
}

func TestLending_OneOpenRecordPerPatronAndItem(t *testing.T) {
	f := newLendingFixture(t, "A")
	require.NoError(t, f.catalog.Add(effectiveJava, 3))

	_, err := f.engine.Checkout("A", effectiveJava.Key)
	require.NoError(t, err)

	status, err := f.engine.Checkout("A", effectiveJava.Key)
	require.NoError(t, err)
	assert.Equal(t, CheckoutAlreadyHeld, status)
	assert.Equal(t, 2, f.catalog.AvailableCopies(effectiveJava.Key))
	assert.Len(t, f.patron(t, "A").History(), 1)
}

func TestLending_UnknownPatronRejectedBeforeMutation(t *testing.T) {
	f := newLendingFixture(t)
	require.NoError(t, f.catalog.Add(effectiveJava, 1))

	_, err := f.engine.Checkout("ghost", effectiveJava.Key)
	assert.ErrorIs(t, err, ErrNotFound)

	err = f.engine.Return("ghost", effectiveJava.Key)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Equal(t, 1, f.catalog.AvailableCopies(effectiveJava.Key))
}

func TestLending_ReturnClosesRecordAndNotifies(t *testing.T) {
	f := newLendingFixture(t, "A", "B")
	require.NoError(t, f.catalog.Add(headFirstJava, 1))
	b := &inbox{}
	f.waitlist.RegisterListener("B", b)

	_, err := f.engine.Checkout("A", headFirstJava.Key)
	require.NoError(t, err)
	f.waitlist.Reserve("B", headFirstJava.Key)

	require.NoError(t, f.engine.Return("A", headFirstJava.Key))

	assert.Equal(t, 1, f.catalog.AvailableCopies(headFirstJava.Key))
	a := f.patron(t, "A")
	assert.Empty(t, a.Held())
	hist := a.History()
	require.Len(t, hist, 1)
	require.NotNil(t, hist[0].ReturnedAt)
	assert.True(t, hist[0].ReturnedAt.After(hist[0].CheckedOut))
	assert.Equal(t, []string{headFirstJava.Key}, b.keys)
}

func TestLending_ReturnWithoutBorrowIsToleratedAnomaly(t *testing.T) {
	f := newLendingFixture(t, "A")
	require.NoError(t, f.catalog.Add(gobletOfFire, 1))

	require.NoError(t, f.engine.Return("A", gobletOfFire.Key))

	assert.Equal(t, 2, f.catalog.AvailableCopies(gobletOfFire.Key), "copy is still counted")
	assert.Empty(t, f.patron(t, "A").History(), "no ledger mutation")
	assert.Equal(t, 1, f.sink.count(EventReturnAnomaly))
}

func TestLending_EveryReturnTriggersExactlyOneNotify(t *testing.T) {
	f := newLendingFixture(t, "A", "B", "C")
	require.NoError(t, f.catalog.Add(effectiveJava, 2))
	f.waitlist.RegisterListener("B", &inbox{})
	f.waitlist.RegisterListener("C", &inbox{})

	_, _ = f.engine.Checkout("A", effectiveJava.Key)
	f.waitlist.Reserve("B", effectiveJava.Key)
	f.waitlist.Reserve("C", effectiveJava.Key)

	before := f.catalog.AvailableCopies(effectiveJava.Key)
	require.NoError(t, f.engine.Return("A", effectiveJava.Key))
	assert.Equal(t, before+1, f.catalog.AvailableCopies(effectiveJava.Key))
	assert.Equal(t, 1, f.sink.count(EventNotified))
	assert.Equal(t, []string{"C"}, f.waitlist.Queue(effectiveJava.Key))
}

func TestLending_ListenerMayCheckoutDuringNotification(t *testing.T) {
	f := newLendingFixture(t, "A", "B")
	require.NoError(t, f.catalog.Add(headFirstJava, 1))

	var status CheckoutStatus
	f.waitlist.RegisterListener("B", NotifyFunc(func(key string) {
		status, _ = f.engine.Checkout("B", key)
	}))

	_, _ = f.engine.Checkout("A", headFirstJava.Key)
	f.waitlist.Reserve("B", headFirstJava.Key)
	require.NoError(t, f.engine.Return("A", headFirstJava.Key))

	assert.Equal(t, CheckoutSuccess, status)
	assert.True(t, f.patron(t, "B").Holds(headFirstJava.Key))
	assert.Equal(t, 0, f.catalog.AvailableCopies(headFirstJava.Key))
}

func TestLending_CheckoutOfRemovedItem(t *testing.T) {
	f := newLendingFixture(t, "A")
	require.NoError(t, f.catalog.Add(inception, 1))
	f.catalog.Remove(inception.Key)

	status, err := f.engine.Checkout("A", inception.Key)
	require.NoError(t, err)
	assert.Equal(t, CheckoutItemNotFound, status)
}

func TestLending_RegisterPatronTwice(t *testing.T) {
	f := newLendingFixture(t, "A")
	assert.False(t, f.engine.RegisterPatron(mustPatron(t, "A", "Imposter")))
	assert.Equal(t, "A", f.patron(t, "A").Name)
	assert.Len(t, f.engine.Patrons(), 1)
}

func TestLending_ZeroValuePatronCanBorrowAndReturn(t *testing.T) {
	f := newLendingFixture(t)
	require.NoError(t, f.catalog.Add(effectiveJava, 1))
	require.True(t, f.engine.RegisterPatron(&Patron{ID: "p1", Name: "Ann"}))

	status, err := f.engine.Checkout("p1", effectiveJava.Key)
	require.NoError(t, err)
	assert.Equal(t, CheckoutSuccess, status)
	assert.Equal(t, 0, f.catalog.AvailableCopies(effectiveJava.Key))

	p := f.patron(t, "p1")
	assert.True(t, p.Holds(effectiveJava.Key))
	require.Len(t, p.History(), 1)

	require.NoError(t, f.engine.Return("p1", effectiveJava.Key))
	assert.Equal(t, 1, f.catalog.AvailableCopies(effectiveJava.Key))
	assert.False(t, p.Holds(effectiveJava.Key))
	assert.Zero(t, f.sink.count(EventReturnAnomaly))
}
