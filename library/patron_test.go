package library

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPatron_GeneratesID(t *testing.T) {
	p, err := NewPatron("", "Alice")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(p.ID, "patron-"))
	assert.Len(t, p.ID, len("patron-")+21)

	q, err := NewPatron("", "Bob")
	require.NoError(t, err)
	assert.NotEqual(t, p.ID, q.ID)
}

func TestPatron_LedgerClosesMostRecentOpenRecord(t *testing.T) {
	p := mustPatron(t, "P001", "Alice")
	t0 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	p.recordCheckout("X", t0)
	require.True(t, p.recordReturn("X", t0.Add(time.Hour)))
	p.recordCheckout("X", t0.Add(2*time.Hour))

	assert.True(t, p.Holds("X"))
	open, ok := p.OpenRecord("X")
	require.True(t, ok)
	assert.Equal(t, t0.Add(2*time.Hour), open.CheckedOut)

	require.True(t, p.recordReturn("X", t0.Add(3*time.Hour)))
	assert.False(t, p.recordReturn("X", t0.Add(4*time.Hour)), "nothing left to close")

	hist := p.History()
	require.Len(t, hist, 2)
	require.NotNil(t, hist[0].ReturnedAt)
	require.NotNil(t, hist[1].ReturnedAt)
	assert.Equal(t, t0.Add(time.Hour), *hist[0].ReturnedAt)
	assert.Equal(t, t0.Add(3*time.Hour), *hist[1].ReturnedAt)
	assert.NotEqual(t, hist[0].ID, hist[1].ID)
	assert.Empty(t, p.Held())
}

func TestPatron_HistoryIsACopy(t *testing.T) {
	p := mustPatron(t, "P001", "Alice")
	p.recordCheckout("X", time.Now())

	hist := p.History()
	hist[0].Key = "tampered"

	assert.Equal(t, "X", p.History()[0].Key)
}
