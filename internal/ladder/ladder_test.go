package ladder

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/park285/Showdown-LadderTracker-bot/internal/ident"
)

func raws(names ...string) []RawEntry {
	out := make([]RawEntry, 0, len(names))
	for i, n := range names {
		out = append(out, RawEntry{Name: n, Elo: float64(2000 - i*10), GXE: 80.5, GlickoRating: 1800.4, GlickoDeviation: 25.6})
	}
	return out
}

func TestBuildFiltersByPrefix(t *testing.T) {
	s, skipped := Build(raws("LT Alpha", "Outsider", "lt-beta", "LTgamma"), "lt")
	require.NoError(t, s.Check())
	assert.Zero(t, skipped)
	require.Len(t, s.Ranked, 3)
	assert.Len(t, s.Lookup, 4)

	for i, e := range s.Ranked {
		pos, ok := e.Rank.Position()
		assert.True(t, ok)
		assert.Equal(t, i+1, pos)
		assert.Equal(t, e.Elo, s.Lookup[e.ID].Elo)
	}
	out, ok := s.Find("outsider")
	require.True(t, ok)
	assert.False(t, out.Rank.IsRanked())
	assert.Equal(t, 1990, out.Elo)
	assert.Equal(t, 1800, s.Ranked[0].GlickoRating)
	assert.Equal(t, 26, s.Ranked[0].GlickoDeviation)
}

func TestBuildSkipsMalformedAndDuplicates(t *testing.T) {
	raw := raws("Alpha", "", "!!!", "ALPHA", "Beta")
	s, skipped := Build(raw, "")
	require.NoError(t, s.Check())
	assert.Equal(t, 3, skipped)
	require.Len(t, s.Ranked, 2)
	assert.Equal(t, ident.ID("beta"), s.Ranked[1].ID)
	assert.Equal(t, 2000, s.Ranked[0].Elo)
}

func TestCheckDetectsBrokenRanks(t *testing.T) {
	s, _ := Build(raws("a", "b"), "")
	s.Ranked[1].Rank = Ranked(5)
	assert.True(t, errors.Is(s.Check(), ErrBrokenInvariant))
}

func TestRankOrdering(t *testing.T) {
	assert.True(t, Ranked(1).Less(Ranked(2)))
	assert.True(t, Ranked(500).Less(Unranked))
	assert.False(t, Unranked.Less(Ranked(1)))
	assert.False(t, Unranked.Less(Unranked))
	assert.Equal(t, Unranked, Ranked(0))
	assert.Equal(t, "#3", Ranked(3).String())
}

func TestDiffIdenticalListsIsEmpty(t *testing.T) {
	s, _ := Build(raws("a", "b", "c"), "")
	assert.Empty(t, Diff(s.Ranked, s.Ranked, 0))
}

func TestDiffSwap(t *testing.T) {
	l1, _ := Build(raws("A", "B", "C"), "")
	l2, _ := Build(raws("B", "A", "C"), "")
	changes := Diff(l1.Ranked, l2.Ranked, 0)
	require.Len(t, changes, 2)

	assert.Equal(t, ident.ID("b"), changes[0].ID)
	assert.Equal(t, Ranked(2), changes[0].Old)
	assert.Equal(t, Ranked(1), changes[0].New)
	assert.False(t, changes[0].Fell())

	assert.Equal(t, ident.ID("a"), changes[1].ID)
	assert.Equal(t, Ranked(1), changes[1].Old)
	assert.Equal(t, Ranked(2), changes[1].New)
	assert.True(t, changes[1].Fell())
	// current elo comes from the newer list
	assert.Equal(t, 1990, changes[1].Elo)
}

func TestDiffDroppedPlayerIsUnrankedWithZeroElo(t *testing.T) {
	l1, _ := Build(raws("A", "B", "C"), "")
	l2, _ := Build(raws("A", "C"), "")
	changes := Diff(l1.Ranked, l2.Ranked, 0)
	require.Len(t, changes, 2)

	c := changes[1]
	assert.Equal(t, ident.ID("b"), c.ID)
	assert.Equal(t, Ranked(2), c.Old)
	assert.Equal(t, Unranked, c.New)
	assert.Zero(t, c.Elo)
	assert.True(t, c.Fell())

	assert.Equal(t, ident.ID("c"), changes[0].ID)
	assert.Equal(t, Ranked(2), changes[0].New)
}

func TestDiffNewcomer(t *testing.T) {
	l1, _ := Build(raws("A", "B"), "")
	l2, _ := Build(raws("A", "N", "B"), "")
	changes := Diff(l1.Ranked, l2.Ranked, 0)
	require.Len(t, changes, 2)
	assert.Equal(t, ident.ID("n"), changes[0].ID)
	assert.Equal(t, Unranked, changes[0].Old)
	assert.False(t, changes[0].Fell())
}

func TestDiffLimitBoundsBothLists(t *testing.T) {
	l1, _ := Build(raws("A", "B", "C", "D"), "")
	l2, _ := Build(raws("A", "B", "D", "C"), "")
	assert.Empty(t, Diff(l1.Ranked, l2.Ranked, 2))

	changes := Diff(l1.Ranked, l2.Ranked, 3)
	require.Len(t, changes, 2)
	assert.Equal(t, ident.ID("d"), changes[0].ID)
	assert.Equal(t, ident.ID("c"), changes[1].ID)
	assert.Equal(t, Unranked, changes[1].New)
}

func TestDiffCutoffCrossing(t *testing.T) {
	l1, _ := Build(raws("A", "B", "C", "D"), "")
	l2, _ := Build(raws("B", "A", "D", "C"), "")
	changes := Diff(l1.Ranked, l2.Ranked, -2)
	assert.Empty(t, changes, "A and B swap inside the boundary")

	l3, _ := Build(raws("A", "C", "B", "D"), "")
	changes = Diff(l1.Ranked, l3.Ranked, -2)
	require.Len(t, changes, 2)
	assert.Equal(t, ident.ID("c"), changes[0].ID)
	assert.Equal(t, Ranked(2), changes[0].New)
	assert.Equal(t, ident.ID("b"), changes[1].ID)
	assert.Equal(t, Unranked, changes[1].New)
}

func TestRound(t *testing.T) {
	assert.Equal(t, 1350, Round(1349.5))
	assert.Equal(t, 1349, Round(1349.49))
	assert.Equal(t, -1, Round(-1.5))
	assert.Equal(t, -2, Round(-1.51))
	assert.Equal(t, 0, Round(math.NaN()))
	assert.Equal(t, 0, Round(math.Inf(1)))
}
