package tracker

import (
	"time"

	"go.uber.org/zap"

	"github.com/park285/Showdown-LadderTracker-bot/internal/ladder"
)

// SetDeadline arms the one-shot finalization. "off" clears it. An unparsable or
// past time is rejected and the previous deadline stays in place.
func (t *Tracker) SetDeadline(arg string) error {
	if isOff(arg) {
		stopTimer(&t.deadline)
		t.cfg.Deadline = time.Time{}
		t.say("deadline.cleared", nil)
		return nil
	}
	when, err := parseDeadline(arg, t.opts.Location)
	if err != nil {
		return err
	}
	if !when.After(t.rt.Now()) {
		return ErrInvalidDeadline
	}
	t.cfg.Deadline = when
	t.armDeadline()
	t.say("deadline.set", t.deadlineData())
	return nil
}

// QueryDeadline announces the configured deadline, if any.
func (t *Tracker) QueryDeadline() {
	if !t.cfg.HasDeadline() {
		t.say("deadline.none", nil)
		return
	}
	t.say("deadline.show", t.deadlineData())
}

func (t *Tracker) deadlineData() map[string]any {
	left := t.cfg.Deadline.Sub(t.rt.Now()).Round(time.Second)
	if left < 0 {
		left = 0
	}
	return map[string]any{
		"When": t.cfg.Deadline.In(t.opts.Location).Format("2006-01-02 15:04 MST"),
		"In":   left.String(),
	}
}

// armDeadline fires a little early; onDeadline then rechecks the clock until the
// deadline has really passed.
func (t *Tracker) armDeadline() {
	stopTimer(&t.deadline)
	wait := t.cfg.Deadline.Sub(t.rt.Now()) - t.opts.DeadlineLead
	if wait < 0 {
		wait = 0
	}
	t.deadline = t.rt.AfterFunc(wait, t.onDeadline)
}

func (t *Tracker) onDeadline() {
	t.deadline = nil
	if !t.cfg.HasDeadline() {
		return
	}
	if left := t.cfg.Deadline.Sub(t.rt.Now()); left > 0 {
		step := t.opts.RecheckStep
		if left < step {
			step = left
		}
		t.deadline = t.rt.AfterFunc(step, t.onDeadline)
		return
	}

	t.log.Info("deadline_reached", zap.Time("deadline", t.cfg.Deadline))
	t.Stop()
	t.finalReport()
	t.cfg.Deadline = time.Time{}
}

// finalReport pulls a fresh ladder and posts the standings, without any diff.
func (t *Tracker) finalReport() {
	format, prefix := t.cfg.Format, t.cfg.Prefix
	if format == "" || t.deps.Ladders == nil {
		return
	}
	size := t.cfg.Cutoff
	if size <= 0 {
		size = t.opts.TopSize
	}
	t.fetchLadder(format, func(raw []ladder.RawEntry, err error) {
		if err != nil {
			t.log.Warn("final_ladder_pull_error", zap.Error(err))
			return
		}
		snap, ok := t.buildSnapshot(raw, prefix)
		if !ok {
			return
		}
		t.say("deadline.reached", map[string]any{"Format": format.String()})
		t.announceLeaderboard(snap, size, "leaderboard.final_header", format, prefix)
	})
}
