package ladder

import "strconv"

// Rank is a 1-based position in a filtered ladder, or Unranked.
// Unranked orders after every ranked position.
type Rank struct {
	n int
}

// Unranked means "not present in the filtered list".
var Unranked = Rank{}

// Ranked returns the rank at 1-based position n. n < 1 yields Unranked.
func Ranked(n int) Rank {
	if n < 1 {
		return Unranked
	}
	return Rank{n: n}
}

// Position returns the 1-based position and whether the rank is set.
func (r Rank) Position() (int, bool) { return r.n, r.n > 0 }

func (r Rank) IsRanked() bool { return r.n > 0 }

// Less orders ranks ascending with Unranked last.
func (r Rank) Less(o Rank) bool {
	switch {
	case !r.IsRanked():
		return false
	case !o.IsRanked():
		return true
	default:
		return r.n < o.n
	}
}

// Within reports whether r is a ranked position no worse than limit.
func (r Rank) Within(limit int) bool { return r.IsRanked() && r.n <= limit }

func (r Rank) String() string {
	if !r.IsRanked() {
		return "-"
	}
	return "#" + strconv.Itoa(r.n)
}
