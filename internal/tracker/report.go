package tracker

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/park285/Showdown-LadderTracker-bot/internal/archive"
	"github.com/park285/Showdown-LadderTracker-bot/internal/battle"
	"github.com/park285/Showdown-LadderTracker-bot/internal/ident"
	"github.com/park285/Showdown-LadderTracker-bot/internal/ladder"
)

func (t *Tracker) render(key string, data any) (string, bool) {
	text, err := t.deps.Msgs.Render(key, data)
	if err != nil {
		t.log.Error("render_error", zap.String("key", key), zap.Error(err))
		return "", false
	}
	return text, true
}

func (t *Tracker) say(key string, data any) {
	if text, ok := t.render(key, data); ok && strings.TrimSpace(text) != "" {
		t.deps.Out.Say(text)
	}
}

func (t *Tracker) announceBattle(b battle.Battle, v battle.Verdict) {
	t.log.Info("battle_report",
		zap.String("battle", b.Room),
		zap.String("reason", string(v.Reason)),
		zap.Int("rating", v.Rating),
	)
	t.say("battle.report", map[string]any{
		"Room":   b.Room,
		"P1":     b.P1,
		"P2":     b.P2,
		"Rating": v.Rating,
		"Kind":   string(v.Kind),
		"Reason": string(v.Reason),
	})
	if t.deps.Archive == nil {
		return
	}
	rec := archive.BattleRecord{
		RunID:      t.runID,
		Room:       t.room,
		Format:     t.cfg.Format.String(),
		BattleRoom: b.Room,
		P1:         b.P1,
		P2:         b.P2,
		Rating:     v.Rating,
		RatingKind: string(v.Kind),
		Reason:     string(v.Reason),
		At:         t.rt.Now(),
	}
	t.record("archive_battle_error", func(ctx context.Context, a Archive) error { return a.SaveBattle(ctx, rec) })
}

func (t *Tracker) announceChanges(changes []ladder.Change) {
	lines := make([]string, 0, len(changes)+1)
	header, ok := t.render("changes.header", map[string]any{"Format": t.cfg.Format.String(), "Count": len(changes)})
	if !ok {
		return
	}
	lines = append(lines, header)
	for _, c := range changes {
		verb := "rose"
		if c.Fell() {
			verb = "fell"
		}
		line, ok := t.render("changes.line", map[string]any{
			"Name": c.Name,
			"Old":  rankText(c.Old),
			"New":  rankText(c.New),
			"Verb": verb,
			"Elo":  c.Elo,
		})
		if ok {
			lines = append(lines, line)
		}
	}
	t.deps.Out.Say(strings.Join(lines, "\n"))

	if t.deps.Archive == nil {
		return
	}
	rec := archive.ChangeRecord{
		RunID:   t.runID,
		Room:    t.room,
		Format:  t.cfg.Format.String(),
		At:      t.rt.Now(),
		Changes: append([]ladder.Change(nil), changes...),
	}
	t.record("archive_changes_error", func(ctx context.Context, a Archive) error { return a.SaveChanges(ctx, rec) })
}

func (t *Tracker) announceLeaderboard(snap *ladder.Snapshot, n int, headerKey string, format, prefix ident.ID) {
	top := snap.Top(n)
	if len(top) == 0 {
		t.say("leaderboard.empty", map[string]any{"Format": format.String()})
		return
	}
	header, ok := t.render(headerKey, map[string]any{
		"Format": format.String(),
		"Prefix": prefix.String(),
		"Count":  len(top),
	})
	if !ok {
		return
	}
	lines := []string{header}
	for _, e := range top {
		line, ok := t.render("leaderboard.line", map[string]any{
			"Rank":      rankText(e.Rank),
			"Name":      e.Name,
			"Elo":       e.Elo,
			"GXE":       fmt.Sprintf("%.1f", e.GXE),
			"Glicko":    e.GlickoRating,
			"Deviation": e.GlickoDeviation,
		})
		if ok {
			lines = append(lines, line)
		}
	}
	t.deps.Out.Say(strings.Join(lines, "\n"))
}

// record writes to the archive off the sequence; failures are only logged.
func (t *Tracker) record(event string, write func(ctx context.Context, a Archive) error) {
	a, timeout := t.deps.Archive, t.opts.PullTimeout
	t.rt.Async(func(ctx context.Context) func() {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		err := write(ctx, a)
		if err == nil {
			return nil
		}
		return func() { t.log.Warn(event, zap.Error(err)) }
	})
}

func rankText(r ladder.Rank) string {
	if pos, ok := r.Position(); ok {
		return strconv.Itoa(pos)
	}
	return "unranked"
}
