package battle

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/park285/Showdown-LadderTracker-bot/internal/ident"
	"github.com/park285/Showdown-LadderTracker-bot/internal/ladder"
)

func lookupOf(t *testing.T, prefix ident.ID, raw ...ladder.RawEntry) map[ident.ID]ladder.Entry {
	t.Helper()
	s, _ := ladder.Build(raw, prefix)
	return s.Lookup
}

func TestTrackedAlwaysReports(t *testing.T) {
	c := Criteria{Prefix: "lt", MinRating: 1800, Tracked: ident.NewSet("alice")}
	v := Classify(Battle{P1: "Alice", P2: "nobody", MinElo: 1000}, c, nil)
	assert.True(t, v.Report)
	assert.Equal(t, ReasonTracked, v.Reason)
	assert.Equal(t, 1000, v.Rating)
	assert.Equal(t, RatingFloor, v.Kind)
}

func TestPrefixRespectsMinimumRating(t *testing.T) {
	c := Criteria{Prefix: "lt", MinRating: 1500}
	b := Battle{P1: "ltbob", P2: "someoneelse", MinElo: 1400}
	assert.False(t, Classify(b, c, nil).Report)

	b.MinElo = 1600
	v := Classify(b, c, nil)
	assert.True(t, v.Report)
	assert.Equal(t, ReasonPrefix, v.Reason)
	assert.Equal(t, 1600, v.Rating)
}

func TestZeroMinimumRatingAlwaysPasses(t *testing.T) {
	v := Classify(Battle{P1: "ltbob", P2: "x", MinElo: 1000}, Criteria{Prefix: "lt"}, nil)
	assert.True(t, v.Report)
}

func TestNoPrefixMatchDoesNotReport(t *testing.T) {
	v := Classify(Battle{P1: "bob", P2: "carl", MinElo: 2000}, Criteria{Prefix: "lt"}, nil)
	assert.False(t, v.Report)
	assert.Equal(t, ReasonNone, v.Reason)
}

func TestRatingRules(t *testing.T) {
	lookup := lookupOf(t, "",
		ladder.RawEntry{Name: "Hi", Elo: 1801},
		ladder.RawEntry{Name: "Lo", Elo: 1500},
	)

	r, k := Rating(Battle{P1: "hi", P2: "lo", MinElo: 1400}, lookup)
	assert.Equal(t, 1651, r) // 1650.5 rounds up
	assert.Equal(t, RatingAverage, k)

	r, k = Rating(Battle{P1: "hi", P2: "unknown", MinElo: 1600}, lookup)
	assert.Equal(t, 1701, r)
	assert.Equal(t, RatingAverage, k)

	r, k = Rating(Battle{P1: "unknown", P2: "lo", MinElo: 1600}, lookup)
	assert.Equal(t, 1600, r, "known elo below the floor does not average")
	assert.Equal(t, RatingFloor, k)

	r, k = Rating(Battle{P1: "x", P2: "y", MinElo: 1234}, lookup)
	assert.Equal(t, 1234, r)
	assert.Equal(t, RatingFloor, k)
}

func TestCutoffSlack(t *testing.T) {
	raw := make([]ladder.RawEntry, 0, 20)
	for _, n := range []string{"lta", "ltb", "ltc", "ltd", "lte", "ltf", "ltg", "lth"} {
		raw = append(raw, ladder.RawEntry{Name: n, Elo: 1300})
	}
	lookup := lookupOf(t, "lt", raw...)
	c := Criteria{Prefix: "lt", MinRating: 1500, Cutoff: 4}

	// ranks 5 and 6 are within 4 * 1.5
	v := Classify(Battle{P1: "lte", P2: "ltf", MinElo: 1200}, c, lookup)
	assert.True(t, v.Report)
	assert.Equal(t, ReasonCutoff, v.Reason)

	// rank 7 is outside
	v = Classify(Battle{P1: "lta", P2: "ltg", MinElo: 1200}, c, lookup)
	assert.False(t, v.Report)

	// unknown player never passes the cutoff rule
	v = Classify(Battle{P1: "lta", P2: "ltzzz", MinElo: 1200}, c, lookup)
	assert.False(t, v.Report)
}

func TestWatermark(t *testing.T) {
	var w Watermark
	assert.True(t, w.Fresh("battle-gen1ou-99"))
	w.Advance([]string{"battle-gen1ou-99", "battle-gen1ou-100", ""})
	assert.Equal(t, "battle-gen1ou-100", w.High())

	assert.False(t, w.Fresh("battle-gen1ou-100"))
	assert.False(t, w.Fresh("battle-gen1ou-99"))
	assert.True(t, w.Fresh("battle-gen1ou-101"))
	assert.True(t, w.Fresh("battle-gen1ou-1000-abcpassword"))

	w.Advance([]string{"battle-gen1ou-50"})
	assert.Equal(t, "battle-gen1ou-100", w.High())

	w.Reset()
	assert.True(t, w.Fresh("battle-gen1ou-1"))
}
