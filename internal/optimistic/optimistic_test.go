package optimistic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type comment struct {
	ID      int
	Content string
}

func TestPendingThenConfirmed(t *testing.T) {
	list := NewList([]comment{{ID: 1, Content: "first"}})

	localID := list.AddPending(comment{Content: "draft"})
	require.NotEmpty(t, localID)

	pending := list.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, Pending, pending[0].State)
	assert.Equal(t, 0, pending[0].Value.ID, "pending entries carry no server id")
	assert.Equal(t, []comment{{ID: 1, Content: "first"}}, list.Confirmed())

	require.NoError(t, list.Confirm(localID, comment{ID: 2, Content: "draft"}))
	assert.Empty(t, list.Pending())
	assert.Equal(t, []comment{{ID: 1, Content: "first"}, {ID: 2, Content: "draft"}}, list.Confirmed())

	// Confirming twice is a reconciliation bug the caller must see.
	assert.ErrorIs(t, list.Confirm(localID, comment{ID: 3}), ErrUnknownEntry)
}

func TestRejectDropsPendingOnly(t *testing.T) {
	list := NewList[comment](nil)
	a := list.AddPending(comment{Content: "a"})
	b := list.AddPending(comment{Content: "b"})

	require.NoError(t, list.Reject(a))
	entries := list.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, b, entries[0].LocalID)

	assert.ErrorIs(t, list.Reject("missing"), ErrUnknownEntry)
}

func TestRemoveConfirmed(t *testing.T) {
	list := NewList([]comment{{ID: 1}, {ID: 2}, {ID: 3}})
	pendingID := list.AddPending(comment{})

	removed := list.Remove(func(c comment) bool { return c.ID == 2 || c.ID == 0 })
	assert.Equal(t, 1, removed)
	assert.Equal(t, []comment{{ID: 1}, {ID: 3}}, list.Confirmed())
	require.Len(t, list.Pending(), 1)
	assert.Equal(t, pendingID, list.Pending()[0].LocalID)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "pending", Pending.String())
	assert.Equal(t, "confirmed", Confirmed.String())
}
