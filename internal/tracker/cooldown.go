package tracker

import "time"

// Thresholds of the activity cooldown. The values are inherited as-is.
const (
	cooldownQuietLines   = 10
	cooldownQuietMinutes = 5
	cooldownChangeFactor = 6
	cooldownThreshold    = 60
)

// Cooldown throttles non-staff leaderboard requests by elapsed time and chat activity
// since the last display.
type Cooldown struct {
	since       time.Time
	linesOthers int
	linesTotal  int
	changed     bool
}

// Observe counts one chat line.
func (c *Cooldown) Observe(fromSelf bool) {
	c.linesTotal++
	if !fromSelf {
		c.linesOthers++
	}
}

// MarkChanged records that the leaderboard composition moved since the last display.
func (c *Cooldown) MarkChanged() { c.changed = true }

// Allow reports whether a request at now may be served.
func (c *Cooldown) Allow(now time.Time) bool {
	if c.since.IsZero() {
		return true
	}
	wait := now.Sub(c.since).Minutes()
	lines, factor := c.linesTotal, 1
	if c.changed {
		lines, factor = c.linesOthers, cooldownChangeFactor
	}
	if lines < cooldownQuietLines && wait < cooldownQuietMinutes {
		return false
	}
	return float64(factor)*(wait+float64(lines)) >= cooldownThreshold
}

// Reset starts a new cooldown window at now.
func (c *Cooldown) Reset(now time.Time) {
	c.since = now
	c.linesOthers = 0
	c.linesTotal = 0
	c.changed = false
}
