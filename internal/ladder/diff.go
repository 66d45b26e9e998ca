package ladder

import (
	"sort"

	"github.com/park285/Showdown-LadderTracker-bot/internal/ident"
)

// Change is one player whose rank moved between two lists. Elo is 0 when the
// player is missing from the newer list.
type Change struct {
	ID   ident.ID
	Name string
	Elo  int
	Old  Rank
	New  Rank
}

// Fell reports whether the player lost ground.
func (c Change) Fell() bool { return c.Old.Less(c.New) }

// Diff compares two ranked lists. limit > 0 bounds both lists to their first
// limit entries; limit < 0 bounds them to |limit| and keeps only the players who
// crossed that boundary; 0 compares the full lists. The result is ordered by new
// rank with Unranked last.
func Diff(prev, cur []Entry, limit int) []Change {
	n := limit
	if n < 0 {
		n = -n
	}
	prev = bounded(prev, n)
	cur = bounded(cur, n)

	prevPos := positions(prev)
	curPos := positions(cur)
	out := make(map[ident.ID]Change)

	for i, e := range prev {
		old := Ranked(i + 1)
		c := Change{ID: e.ID, Name: e.Name, Old: old, New: Unranked}
		if j, ok := curPos[e.ID]; ok {
			c.New = Ranked(j + 1)
			c.Elo = cur[j].Elo
		}
		if c.Old != c.New {
			out[e.ID] = c
		}
	}
	// the current-list pass carries the live elo and overwrites the first pass
	for j, e := range cur {
		c := Change{ID: e.ID, Name: e.Name, Elo: e.Elo, Old: Unranked, New: Ranked(j + 1)}
		if i, ok := prevPos[e.ID]; ok {
			c.Old = Ranked(i + 1)
		}
		if c.Old != c.New {
			out[e.ID] = c
		}
	}

	changes := make([]Change, 0, len(out))
	for _, c := range out {
		if limit < 0 && !crossed(c, n) {
			continue
		}
		changes = append(changes, c)
	}
	sortChanges(changes)
	return changes
}

// crossed reports whether c moved from inside the top n to outside it or back.
func crossed(c Change, n int) bool {
	return c.Old.Within(n) != c.New.Within(n)
}

func sortChanges(cs []Change) {
	sort.Slice(cs, func(i, j int) bool {
		a, b := cs[i], cs[j]
		if a.New != b.New {
			return a.New.Less(b.New)
		}
		if a.Old != b.Old {
			return a.Old.Less(b.Old)
		}
		return a.ID < b.ID
	})
}

func bounded(list []Entry, n int) []Entry {
	if n > 0 && n < len(list) {
		return list[:n]
	}
	return list
}

func positions(list []Entry) map[ident.ID]int {
	m := make(map[ident.ID]int, len(list))
	for i, e := range list {
		if _, ok := m[e.ID]; !ok {
			m[e.ID] = i
		}
	}
	return m
}
