// Package ladder holds the ranked-list model: snapshots of one ladder pull and the
// rank diff between two of them.
package ladder

import (
	"errors"
	"fmt"
	"math"

	"github.com/park285/Showdown-LadderTracker-bot/internal/ident"
)

// ErrBrokenInvariant marks a snapshot whose ranks are not the contiguous sequence 1..n.
var ErrBrokenInvariant = errors.New("ladder: snapshot invariant violated")

// RawEntry is one record as delivered by the ladder source.
type RawEntry struct {
	Name            string
	Elo             float64
	GXE             float64
	GlickoRating    float64
	GlickoDeviation float64
}

// Entry is an immutable ranked player. Rank is Unranked for players outside the prefix filter.
type Entry struct {
	ID              ident.ID
	Name            string
	Rank            Rank
	Elo             int
	GXE             float64
	GlickoRating    int
	GlickoDeviation int
}

// Snapshot is one pull: the prefix-filtered ranked list plus an unfiltered lookup.
type Snapshot struct {
	Prefix ident.ID
	Ranked []Entry
	Lookup map[ident.ID]Entry
}

// Build turns a source-ordered raw list into a Snapshot. Records without a usable
// name or elo, and repeats of an id already seen, are skipped; the skipped count is
// returned for logging.
func Build(raw []RawEntry, prefix ident.ID) (*Snapshot, int) {
	s := &Snapshot{
		Prefix: prefix,
		Ranked: make([]Entry, 0, len(raw)),
		Lookup: make(map[ident.ID]Entry, len(raw)),
	}
	skipped := 0
	for _, r := range raw {
		id := ident.Normalize(r.Name)
		if id == "" || !finite(r.Elo) {
			skipped++
			continue
		}
		// two display names can collapse to one id; the higher-placed one wins
		if _, dup := s.Lookup[id]; dup {
			skipped++
			continue
		}
		e := Entry{
			ID:              id,
			Name:            r.Name,
			Rank:            Unranked,
			Elo:             Round(r.Elo),
			GXE:             r.GXE,
			GlickoRating:    Round(r.GlickoRating),
			GlickoDeviation: Round(r.GlickoDeviation),
		}
		if id.HasPrefix(prefix) {
			e.Rank = Ranked(len(s.Ranked) + 1)
			s.Ranked = append(s.Ranked, e)
		}
		s.Lookup[id] = e
	}
	return s, skipped
}

// Check verifies Ranked[i] has rank i+1 and mirrors its Lookup entry.
func (s *Snapshot) Check() error {
	if s == nil {
		return nil
	}
	for i, e := range s.Ranked {
		if pos, ok := e.Rank.Position(); !ok || pos != i+1 {
			return fmt.Errorf("%w: %s at index %d has rank %s", ErrBrokenInvariant, e.ID, i, e.Rank)
		}
		if l, ok := s.Lookup[e.ID]; !ok || l.Elo != e.Elo {
			return fmt.Errorf("%w: %s missing from lookup", ErrBrokenInvariant, e.ID)
		}
	}
	return nil
}

// Top returns at most n ranked entries; n <= 0 returns all of them.
func (s *Snapshot) Top(n int) []Entry {
	if s == nil {
		return nil
	}
	if n <= 0 || n > len(s.Ranked) {
		n = len(s.Ranked)
	}
	return s.Ranked[:n]
}

// Find looks an identifier up in the unfiltered table.
func (s *Snapshot) Find(id ident.ID) (Entry, bool) {
	if s == nil {
		return Entry{}, false
	}
	e, ok := s.Lookup[id]
	return e, ok
}

func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Ranked)
}

// Round rounds half up, toward positive infinity; -1.5 becomes -1. Non-finite input is 0.
func Round(f float64) int {
	if !finite(f) {
		return 0
	}
	return int(math.Floor(f + 0.5))
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }
