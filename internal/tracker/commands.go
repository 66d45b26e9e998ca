package tracker

import (
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"go.uber.org/zap"

	"github.com/park285/Showdown-LadderTracker-bot/internal/ident"
	"github.com/park285/Showdown-LadderTracker-bot/internal/ladder"
)

// SetFormat switches the tracked format. Snapshots and the battle watermark belong to
// the old format and are dropped.
func (t *Tracker) SetFormat(arg string) error {
	id := ident.Normalize(arg)
	if id == "" {
		return ErrInvalidFormat
	}
	if id != t.cfg.Format {
		t.cfg.Format = id
		t.resetBaseline()
		t.mark.Reset()
		t.log.Info("tracker_format", zap.String("format", id.String()))
	}
	t.say("config.format", map[string]any{"Format": id.String()})
	return nil
}

// SetPrefix changes the name filter; an empty argument clears it. Ranks depend on
// the filter, so the snapshots are dropped.
func (t *Tracker) SetPrefix(arg string) {
	id := ident.Normalize(arg)
	if isOff(arg) {
		id = ""
	}
	if id != t.cfg.Prefix {
		t.cfg.Prefix = id
		t.resetBaseline()
	}
	if id == "" {
		t.say("config.prefix_cleared", nil)
		return
	}
	t.say("config.prefix", map[string]any{"Prefix": id.String()})
}

// SetRating sets the minimum battle rating; 0 or "off" unsets it.
func (t *Tracker) SetRating(arg string) error {
	n, err := parseCount(arg)
	if err != nil {
		return err
	}
	t.cfg.MinRating = n
	if n == 0 {
		t.say("config.rating_cleared", nil)
		return nil
	}
	t.say("config.rating", map[string]any{"Rating": n})
	return nil
}

// SetCutoff sets the rank boundary; 0 or "off" unsets it.
func (t *Tracker) SetCutoff(arg string) error {
	n, err := parseCount(arg)
	if err != nil {
		return err
	}
	t.cfg.Cutoff = n
	if n == 0 {
		t.say("config.cutoff_cleared", nil)
		return nil
	}
	t.say("config.cutoff", map[string]any{"Cutoff": n})
	return nil
}

// Track adds names to the tracked set and returns the identifiers that were new.
func (t *Tracker) Track(names []string) []ident.ID {
	var added []ident.ID
	for _, n := range names {
		id := ident.Normalize(n)
		if t.cfg.Tracked.Add(id) {
			added = append(added, id)
		}
	}
	if len(added) == 0 {
		t.say("track.none_added", nil)
		return nil
	}
	t.say("track.added", map[string]any{"Names": joinIDs(added)})
	return added
}

// Untrack removes names from the tracked set. Unknown names get a closest-match hint.
func (t *Tracker) Untrack(names []string) []ident.ID {
	var removed []ident.ID
	var missing []ident.ID
	for _, n := range names {
		id := ident.Normalize(n)
		if id == "" {
			continue
		}
		if t.cfg.Tracked.Remove(id) {
			removed = append(removed, id)
		} else {
			missing = append(missing, id)
		}
	}
	if len(removed) > 0 {
		t.say("untrack.removed", map[string]any{"Names": joinIDs(removed)})
	}
	for _, id := range missing {
		t.say("untrack.missing", map[string]any{"Name": id.String(), "Suggestion": t.suggestTracked(id)})
	}
	return removed
}

func (t *Tracker) suggestTracked(id ident.ID) string {
	tracked := t.cfg.Tracked.Sorted()
	if len(tracked) == 0 {
		return ""
	}
	targets := make([]string, len(tracked))
	for i, tid := range tracked {
		targets[i] = tid.String()
	}
	ranks := fuzzy.RankFindNormalizedFold(id.String(), targets)
	if len(ranks) == 0 {
		// fall back to the reverse direction so a longer typo still finds a shorter name
		for _, target := range targets {
			if fuzzy.MatchNormalizedFold(target, id.String()) {
				return target
			}
		}
		return ""
	}
	sort.Sort(ranks)
	return ranks[0].Target
}

// ListTracked announces the tracked identifiers.
func (t *Tracker) ListTracked() {
	if len(t.cfg.Tracked) == 0 {
		t.say("tracked.empty", nil)
		return
	}
	ids := t.cfg.Tracked.Sorted()
	t.say("tracked.list", map[string]any{"Count": len(ids), "Names": joinIDs(ids)})
}

// SetShowDiffs toggles the per-tick rank change report.
func (t *Tracker) SetShowDiffs(show bool) {
	t.cfg.ShowDiffs = show
	if show {
		t.say("diffs.shown", nil)
		return
	}
	t.say("diffs.hidden", nil)
}

// ShowLeaderboard posts the top n of the current snapshot, pulling one when none is
// held. Non-staff requests go through the cooldown gate.
func (t *Tracker) ShowLeaderboard(n int, staff bool) error {
	if t.cfg.Format == "" {
		return ErrNoFormat
	}
	if err := t.admit(staff); err != nil {
		return err
	}
	if n <= 0 {
		n = t.opts.TopSize
	}
	format, prefix := t.cfg.Format, t.cfg.Prefix
	if t.current != nil {
		t.announceLeaderboard(t.current, n, "leaderboard.header", format, prefix)
		return nil
	}
	if t.deps.Ladders == nil {
		return nil
	}
	t.fetchLadder(format, func(raw []ladder.RawEntry, err error) {
		if err != nil {
			t.log.Warn("ladder_pull_error", zap.String("format", format.String()), zap.Error(err))
			return
		}
		if snap, ok := t.buildSnapshot(raw, prefix); ok {
			t.announceLeaderboard(snap, n, "leaderboard.header", format, prefix)
		}
	})
	return nil
}

// ShowChanges posts the diff between the two held snapshots. n bounds the lists
// (0 uses the cutoff); a negative n keeps only players crossing |n|.
func (t *Tracker) ShowChanges(n int, staff bool) error {
	if t.current == nil || t.last == nil {
		return ErrNoBaseline
	}
	if err := t.admit(staff); err != nil {
		return err
	}
	if n == 0 {
		n = t.cfg.Cutoff
	}
	changes := ladder.Diff(t.last.Ranked, t.current.Ranked, n)
	if len(changes) == 0 {
		t.say("changes.none", map[string]any{"Format": t.cfg.Format.String()})
		return nil
	}
	t.announceChanges(changes)
	return nil
}

func (t *Tracker) admit(staff bool) error {
	now := t.rt.Now()
	if !staff && !t.gate.Allow(now) {
		t.log.Debug("leaderboard_cooldown")
		return ErrCooldown
	}
	t.gate.Reset(now)
	return nil
}

// Status announces the current configuration and engine state.
func (t *Tracker) Status() {
	deadline := "none"
	if t.cfg.HasDeadline() {
		deadline = t.deadlineData()["When"].(string)
	}
	prefix := t.cfg.Prefix.String()
	if prefix == "" {
		prefix = "none"
	}
	t.say("tracker.status", map[string]any{
		"Running":   t.state == StateRunning,
		"Format":    t.cfg.Format.String(),
		"Prefix":    prefix,
		"Rating":    t.cfg.MinRating,
		"Cutoff":    t.cfg.Cutoff,
		"Tracked":   len(t.cfg.Tracked),
		"ShowDiffs": t.cfg.ShowDiffs,
		"Ranked":    t.current.Len(),
		"Deadline":  deadline,
	})
}

func joinIDs(ids []ident.ID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id.String()
	}
	return strings.Join(parts, ", ")
}

// StopTracking is the command form of Stop.
func (t *Tracker) StopTracking() {
	if t.state == StateStopped {
		t.say("tracker.already_stopped", nil)
		return
	}
	t.Stop()
	t.say("tracker.stopped", nil)
}
