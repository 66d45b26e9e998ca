// Package battle decides which newly started battles are worth announcing.
package battle

import (
	"math"

	"github.com/park285/Showdown-LadderTracker-bot/internal/ident"
	"github.com/park285/Showdown-LadderTracker-bot/internal/ladder"
)

// CutoffSlack widens the cutoff for battles between two prefix players.
const CutoffSlack = 1.5

// Battle is one entry of a battle-list pull.
type Battle struct {
	Room   string
	P1     string
	P2     string
	MinElo int
}

// Criteria is the read-only view of tracking settings the classifier needs.
type Criteria struct {
	Prefix    ident.ID
	MinRating int // 0 means unset
	Tracked   ident.Set
	Cutoff    int // 0 means unset
}

// RatingKind tells whether Verdict.Rating is an average or only a floor.
type RatingKind string

const (
	RatingAverage RatingKind = "average"
	RatingFloor   RatingKind = "minimum"
)

// Reason names the rule that selected a battle.
type Reason string

const (
	ReasonNone    Reason = ""
	ReasonTracked Reason = "tracked"
	ReasonPrefix  Reason = "prefix"
	ReasonCutoff  Reason = "cutoff"
)

type Verdict struct {
	Report bool
	Reason Reason
	Rating int
	Kind   RatingKind
}

// Classify applies the tracked, prefix/rating and cutoff rules in that order.
func Classify(b Battle, c Criteria, lookup map[ident.ID]ladder.Entry) Verdict {
	id1, id2 := ident.Normalize(b.P1), ident.Normalize(b.P2)
	rating, kind := Rating(b, lookup)
	v := Verdict{Rating: rating, Kind: kind}

	if len(c.Tracked) > 0 && (c.Tracked.Has(id1) || c.Tracked.Has(id2)) {
		v.Report, v.Reason = true, ReasonTracked
		return v
	}
	p1, p2 := id1.HasPrefix(c.Prefix), id2.HasPrefix(c.Prefix)
	if (p1 || p2) && (c.MinRating == 0 || rating >= c.MinRating) {
		v.Report, v.Reason = true, ReasonPrefix
		return v
	}
	if c.Cutoff > 0 && p1 && p2 && nearCutoff(lookup, c.Cutoff, id1, id2) {
		v.Report, v.Reason = true, ReasonCutoff
		return v
	}
	return v
}

// Rating averages the players' ladder elo when known, otherwise falls back to the
// battle's minimum elo.
func Rating(b Battle, lookup map[ident.ID]ladder.Entry) (int, RatingKind) {
	e1, ok1 := lookup[ident.Normalize(b.P1)]
	e2, ok2 := lookup[ident.Normalize(b.P2)]
	switch {
	case ok1 && ok2:
		return average(e1.Elo, e2.Elo), RatingAverage
	case ok1 && e1.Elo > b.MinElo:
		return average(e1.Elo, b.MinElo), RatingAverage
	case ok2 && e2.Elo > b.MinElo:
		return average(e2.Elo, b.MinElo), RatingAverage
	default:
		return b.MinElo, RatingFloor
	}
}

func nearCutoff(lookup map[ident.ID]ladder.Entry, cutoff int, ids ...ident.ID) bool {
	limit := float64(cutoff) * CutoffSlack
	for _, id := range ids {
		e, ok := lookup[id]
		if !ok {
			return false
		}
		pos, ranked := e.Rank.Position()
		if !ranked || float64(pos) > limit {
			return false
		}
	}
	return true
}

func average(a, b int) int {
	return int(math.Floor(float64(a+b)/2 + 0.5))
}
