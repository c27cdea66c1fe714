// Package ordering implements the position bookkeeping used by playlist
// composition: dense, zero-based integer positions scoped to a group
// (a playlist's section list, or the placements of one playlist+section).
//
// Positions between operations may contain gaps (e.g. after a raw delete);
// every function here produces a sequence that renumbers to exactly
// {0..n-1} when applied.
package ordering

import "github.com/google/uuid"

// NextPosition returns the append position for a group: max(existing)+1,
// or 0 for an empty group. Gaps in the existing sequence are preserved,
// the new entry always lands strictly after everything else.
func NextPosition(positions []int) int {
	if len(positions) == 0 {
		return 0
	}
	max := positions[0]
	for _, p := range positions[1:] {
		if p > max {
			max = p
		}
	}
	return max + 1
}

// IndexOf returns the index of id in ids, or -1.
func IndexOf(ids []uuid.UUID, id uuid.UUID) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}

// Remove returns ids without id, preserving relative order, and whether
// the id was present.
func Remove(ids []uuid.UUID, id uuid.UUID) ([]uuid.UUID, bool) {
	idx := IndexOf(ids, id)
	if idx < 0 {
		return ids, false
	}
	out := make([]uuid.UUID, 0, len(ids)-1)
	out = append(out, ids[:idx]...)
	out = append(out, ids[idx+1:]...)
	return out, true
}

// InsertAt returns ids with id inserted at index. Indexes outside
// [0, len(ids)] are clamped, so a negative index prepends and an
// oversized index appends.
func InsertAt(ids []uuid.UUID, id uuid.UUID, index int) []uuid.UUID {
	if index < 0 {
		index = 0
	}
	if index > len(ids) {
		index = len(ids)
	}
	out := make([]uuid.UUID, 0, len(ids)+1)
	out = append(out, ids[:index]...)
	out = append(out, id)
	out = append(out, ids[index:]...)
	return out
}

// MoveTo removes id from ids and reinserts it at index, clamped to the
// resulting sequence. Returns the new order and whether id was present.
func MoveTo(ids []uuid.UUID, id uuid.UUID, index int) ([]uuid.UUID, bool) {
	rest, found := Remove(ids, id)
	if !found {
		return ids, false
	}
	return InsertAt(rest, id, index), true
}

// PositionUpdate assigns a new dense position to one entity.
type PositionUpdate struct {
	ID       uuid.UUID
	Position int
}

// Renumber maps an ordered id sequence onto dense positions 0..n-1 and
// returns only the entries whose position differs from current. current
// holds the positions as stored, keyed by id; ids absent from current are
// always included.
func Renumber(ids []uuid.UUID, current map[uuid.UUID]int) []PositionUpdate {
	var updates []PositionUpdate
	for i, id := range ids {
		if pos, ok := current[id]; ok && pos == i {
			continue
		}
		updates = append(updates, PositionUpdate{ID: id, Position: i})
	}
	return updates
}

// IsDense reports whether positions form exactly {0..n-1} with no
// duplicates. This is the invariant every completed composition
// operation must restore within each affected group.
func IsDense(positions []int) bool {
	seen := make([]bool, len(positions))
	for _, p := range positions {
		if p < 0 || p >= len(positions) || seen[p] {
			return false
		}
		seen[p] = true
	}
	return true
}
