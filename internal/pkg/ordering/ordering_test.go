package ordering

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newIDs(n int) []uuid.UUID {
	ids := make([]uuid.UUID, n)
	for i := range ids {
		ids[i] = uuid.New()
	}
	return ids
}

func TestNextPosition(t *testing.T) {
	tests := []struct {
		name      string
		positions []int
		want      int
	}{
		{"empty group", nil, 0},
		{"dense group", []int{0, 1, 2}, 3},
		{"group with gaps", []int{0, 2, 5}, 6},
		{"single entry", []int{0}, 1},
		{"unordered input", []int{4, 1, 0}, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NextPosition(tt.positions))
		})
	}
}

func TestInsertAtClamps(t *testing.T) {
	ids := newIDs(3)
	extra := uuid.New()

	out := InsertAt(ids, extra, -5)
	assert.Equal(t, extra, out[0], "negative index prepends")

	out = InsertAt(ids, extra, 99)
	assert.Equal(t, extra, out[len(out)-1], "oversized index appends")

	out = InsertAt(ids, extra, 1)
	assert.Equal(t, []uuid.UUID{ids[0], extra, ids[1], ids[2]}, out)
}

func TestMoveTo(t *testing.T) {
	ids := newIDs(4)

	moved, found := MoveTo(ids, ids[3], 0)
	require.True(t, found)
	assert.Equal(t, []uuid.UUID{ids[3], ids[0], ids[1], ids[2]}, moved)

	moved, found = MoveTo(ids, ids[0], 2)
	require.True(t, found)
	assert.Equal(t, []uuid.UUID{ids[1], ids[2], ids[0], ids[3]}, moved)

	_, found = MoveTo(ids, uuid.New(), 1)
	assert.False(t, found, "unknown id is reported, not silently inserted")
}

func TestMoveToSamePositionIsStable(t *testing.T) {
	ids := newIDs(3)
	moved, found := MoveTo(ids, ids[1], 1)
	require.True(t, found)
	assert.Equal(t, ids, moved)
}

func TestRenumberSkipsUnchanged(t *testing.T) {
	ids := newIDs(3)
	current := map[uuid.UUID]int{
		ids[0]: 0,
		ids[1]: 1,
		ids[2]: 2,
	}

	// Already dense and in order: nothing to write.
	assert.Empty(t, Renumber(ids, current))

	// Gap at the end: only the third entry moves.
	current[ids[2]] = 7
	updates := Renumber(ids, current)
	require.Len(t, updates, 1)
	assert.Equal(t, PositionUpdate{ID: ids[2], Position: 2}, updates[0])
}

func TestRenumberProducesDenseSequence(t *testing.T) {
	ids := newIDs(5)
	current := map[uuid.UUID]int{
		ids[0]: 3,
		ids[1]: 0,
		ids[2]: 9,
		ids[3]: 9, // duplicate position, as after a violated write race
		ids[4]: 1,
	}

	updates := Renumber(ids, current)
	for _, u := range updates {
		current[u.ID] = u.Position
	}

	positions := make([]int, 0, len(ids))
	for _, id := range ids {
		positions = append(positions, current[id])
	}
	assert.True(t, IsDense(positions), "renumber must restore 0..n-1: %v", positions)
}

func TestRenumberIncludesUnknownIDs(t *testing.T) {
	ids := newIDs(2)
	// Second id has no stored position yet (fresh cross-group arrival).
	updates := Renumber(ids, map[uuid.UUID]int{ids[0]: 0})
	require.Len(t, updates, 1)
	assert.Equal(t, ids[1], updates[0].ID)
	assert.Equal(t, 1, updates[0].Position)
}

func TestIsDense(t *testing.T) {
	assert.True(t, IsDense(nil))
	assert.True(t, IsDense([]int{0}))
	assert.True(t, IsDense([]int{2, 0, 1}))
	assert.False(t, IsDense([]int{0, 2}))
	assert.False(t, IsDense([]int{0, 0}))
	assert.False(t, IsDense([]int{-1, 0}))
}

func TestRemove(t *testing.T) {
	ids := newIDs(3)
	out, found := Remove(ids, ids[1])
	require.True(t, found)
	assert.Equal(t, []uuid.UUID{ids[0], ids[2]}, out)

	same, found := Remove(ids, uuid.New())
	assert.False(t, found)
	assert.Equal(t, ids, same)
}
