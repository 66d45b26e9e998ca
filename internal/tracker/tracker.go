// Package tracker is the per-room engine: it polls battle lists and ladder snapshots,
// classifies battles, diffs successive snapshots and gates leaderboard displays.
//
// A Tracker is not safe for concurrent use. Every method, and every callback it
// schedules, runs on the Runtime's single sequence.
package tracker

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/park285/Showdown-LadderTracker-bot/internal/archive"
	"github.com/park285/Showdown-LadderTracker-bot/internal/battle"
	"github.com/park285/Showdown-LadderTracker-bot/internal/ident"
	"github.com/park285/Showdown-LadderTracker-bot/internal/ladder"
	"github.com/park285/Showdown-LadderTracker-bot/internal/obslog"
)

// LadderSource pulls the ranked list of a format, best first.
type LadderSource interface {
	Ladder(ctx context.Context, format ident.ID) ([]ladder.RawEntry, error)
}

// BattleSource pulls the running battles of a format keyed by battle room id.
type BattleSource interface {
	Battles(ctx context.Context, format ident.ID) (map[string]battle.Battle, error)
}

// Announcer is the room's outbound side.
type Announcer interface {
	Say(text string)
	Leave()
}

// Renderer turns a message key and data into display text.
type Renderer interface {
	Render(key string, data any) (string, error)
}

// Archive records what was announced. Optional.
type Archive interface {
	SaveBattle(ctx context.Context, rec archive.BattleRecord) error
	SaveChanges(ctx context.Context, rec archive.ChangeRecord) error
}

type State string

const (
	StateStopped State = "STOPPED"
	StateRunning State = "RUNNING"
)

type Options struct {
	Tick         time.Duration
	PullTimeout  time.Duration
	DeadlineLead time.Duration
	RecheckStep  time.Duration
	TopSize      int
	Location     *time.Location
}

func (o Options) withDefaults() Options {
	if o.Tick <= 0 {
		o.Tick = time.Second
	}
	if o.PullTimeout <= 0 {
		o.PullTimeout = 5 * time.Second
	}
	if o.DeadlineLead <= 0 {
		o.DeadlineLead = 2 * time.Second
	}
	if o.RecheckStep <= 0 {
		o.RecheckStep = 50 * time.Millisecond
	}
	if o.TopSize <= 0 {
		o.TopSize = 10
	}
	if o.Location == nil {
		o.Location = time.UTC
	}
	return o
}

// Deps bundles a Tracker's collaborators. Archive may be nil.
type Deps struct {
	Runtime Runtime
	Ladders LadderSource
	Battles BattleSource
	Out     Announcer
	Msgs    Renderer
	Archive Archive
}

type Tracker struct {
	room string
	rt   Runtime
	deps Deps
	opts Options
	log  *zap.Logger

	cfg     TrackingConfig
	current *ladder.Snapshot
	last    *ladder.Snapshot
	mark    battle.Watermark
	gate    Cooldown

	state State
	runID string
	// gen invalidates pulls that were issued before a stop or a filter change.
	gen uint64

	tick     Timer
	deadline Timer

	ladderBusy  bool
	battlesBusy bool
}

func New(room string, initial TrackingConfig, deps Deps, opts Options) *Tracker {
	if initial.Tracked == nil {
		initial.Tracked = ident.NewSet()
	}
	return &Tracker{
		room:  room,
		rt:    deps.Runtime,
		deps:  deps,
		opts:  opts.withDefaults(),
		log:   obslog.L().With(zap.String("room", room)),
		cfg:   initial,
		state: StateStopped,
	}
}

func (t *Tracker) Room() string                 { return t.room }
func (t *Tracker) State() State                 { return t.state }
func (t *Tracker) Config() TrackingConfig       { return t.cfg }
func (t *Tracker) Current() *ladder.Snapshot    { return t.current }
func (t *Tracker) Previous() *ladder.Snapshot   { return t.last }
func (t *Tracker) Running() bool                { return t.state == StateRunning }

// Start begins ticking. Calling it while running is a no-op.
func (t *Tracker) Start() error {
	if t.state == StateRunning {
		t.say("tracker.already_running", nil)
		return nil
	}
	if t.cfg.Format == "" {
		return ErrNoFormat
	}
	t.state = StateRunning
	t.runID = uuid.NewString()
	t.log.Info("tracker_start", zap.String("run_id", t.runID), zap.String("format", t.cfg.Format.String()))
	t.say("tracker.started", map[string]any{"Format": t.cfg.Format.String()})
	t.onTick()
	return nil
}

// Stop cancels the tick and drops both snapshots. Calling it while stopped is a no-op.
func (t *Tracker) Stop() {
	if t.state == StateStopped {
		return
	}
	stopTimer(&t.tick)
	t.state = StateStopped
	t.resetBaseline()
	t.log.Info("tracker_stop", zap.String("run_id", t.runID))
}

// Leave stops everything and asks the transport to leave the room.
func (t *Tracker) Leave() {
	t.Stop()
	stopTimer(&t.deadline)
	t.deps.Out.Leave()
}

// Shutdown releases timers without announcing anything.
func (t *Tracker) Shutdown() {
	t.Stop()
	stopTimer(&t.deadline)
}

// ObserveLine feeds one chat line into the cooldown activity counters.
func (t *Tracker) ObserveLine(fromSelf bool) { t.gate.Observe(fromSelf) }

func (t *Tracker) resetBaseline() {
	t.current, t.last = nil, nil
	t.gen++
}

func (t *Tracker) onTick() {
	t.tick = nil
	if t.state != StateRunning {
		return
	}
	t.pullLadder()
	t.pullBattles()
	t.tick = t.rt.AfterFunc(t.opts.Tick, t.onTick)
}

func (t *Tracker) pullBattles() {
	if t.battlesBusy || t.deps.Battles == nil {
		return
	}
	t.battlesBusy = true
	gen, format := t.gen, t.cfg.Format
	src, timeout := t.deps.Battles, t.opts.PullTimeout
	t.rt.Async(func(ctx context.Context) func() {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		battles, err := src.Battles(ctx, format)
		return func() {
			t.battlesBusy = false
			if err != nil {
				t.log.Warn("battle_pull_error", zap.String("format", format.String()), zap.Error(err))
				return
			}
			if gen != t.gen || t.state != StateRunning {
				return
			}
			if t.current == nil && t.ladderBusy {
				// no ratings yet; leave the watermark so the next tick retries
				t.log.Debug("battle_pull_deferred", zap.Int("battles", len(battles)))
				return
			}
			t.classifyBattles(battles)
		}
	})
}

func (t *Tracker) classifyBattles(battles map[string]battle.Battle) {
	rooms := make([]string, 0, len(battles))
	for room := range battles {
		rooms = append(rooms, room)
	}
	battle.SortRooms(rooms)

	var lookup map[ident.ID]ladder.Entry
	if t.current != nil {
		lookup = t.current.Lookup
	}
	crit := t.cfg.Criteria()
	for _, room := range rooms {
		if !t.mark.Fresh(room) {
			continue
		}
		b := battles[room]
		b.Room = room
		if ident.Normalize(b.P1) == "" || ident.Normalize(b.P2) == "" {
			t.log.Debug("battle_malformed", zap.String("battle", room))
			continue
		}
		v := battle.Classify(b, crit, lookup)
		if !v.Report {
			continue
		}
		t.announceBattle(b, v)
	}
	t.mark.Advance(rooms)
}

func (t *Tracker) pullLadder() {
	if t.ladderBusy || t.deps.Ladders == nil {
		return
	}
	t.ladderBusy = true
	gen, format, prefix := t.gen, t.cfg.Format, t.cfg.Prefix
	t.fetchLadder(format, func(raw []ladder.RawEntry, err error) {
		t.ladderBusy = false
		if err != nil {
			t.log.Warn("ladder_pull_error", zap.String("format", format.String()), zap.Error(err))
			return
		}
		if gen != t.gen || t.state != StateRunning {
			return
		}
		t.applyLadder(raw, prefix)
	})
}

// fetchLadder pulls off the sequence and hands the result back on it.
func (t *Tracker) fetchLadder(format ident.ID, done func([]ladder.RawEntry, error)) {
	src, timeout := t.deps.Ladders, t.opts.PullTimeout
	t.rt.Async(func(ctx context.Context) func() {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		raw, err := src.Ladder(ctx, format)
		return func() { done(raw, err) }
	})
}

func (t *Tracker) buildSnapshot(raw []ladder.RawEntry, prefix ident.ID) (*ladder.Snapshot, bool) {
	snap, skipped := ladder.Build(raw, prefix)
	if skipped > 0 {
		t.log.Debug("ladder_records_skipped", zap.Int("skipped", skipped))
	}
	if err := snap.Check(); err != nil {
		t.log.Error("ladder_snapshot_invalid", zap.Error(err))
		return nil, false
	}
	return snap, true
}

func (t *Tracker) applyLadder(raw []ladder.RawEntry, prefix ident.ID) {
	snap, ok := t.buildSnapshot(raw, prefix)
	if !ok {
		return
	}
	t.last, t.current = t.current, snap
	if t.last == nil {
		t.log.Debug("ladder_baseline", zap.Int("ranked", snap.Len()))
		return
	}
	changes := ladder.Diff(t.last.Ranked, t.current.Ranked, t.cfg.Cutoff)
	if len(changes) == 0 {
		return
	}
	t.gate.MarkChanged()
	if t.cfg.ShowDiffs {
		t.announceChanges(changes)
	}
}
