package tracker

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/park285/Showdown-LadderTracker-bot/internal/archive"
	"github.com/park285/Showdown-LadderTracker-bot/internal/battle"
	"github.com/park285/Showdown-LadderTracker-bot/internal/ident"
	"github.com/park285/Showdown-LadderTracker-bot/internal/ladder"
	"github.com/park285/Showdown-LadderTracker-bot/internal/msgcat"
)

var errPull = errors.New("pull failed")

// fakeRuntime is a manual clock: timers fire only from advance, async work runs inline.
// With hold set, completions queue up until flush.
type fakeRuntime struct {
	now    time.Time
	seq    int
	timers []*fakeTimer
	hold   bool
	held   []func()
}

type fakeTimer struct {
	at      time.Time
	seq     int
	fn      func()
	stopped bool
	fired   bool
}

func (ft *fakeTimer) Stop() bool {
	was := !ft.stopped && !ft.fired
	ft.stopped = true
	return was
}

func newFakeRuntime() *fakeRuntime {
	return &fakeRuntime{now: time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)}
}

func (r *fakeRuntime) Now() time.Time { return r.now }

func (r *fakeRuntime) AfterFunc(d time.Duration, fn func()) Timer {
	r.seq++
	ft := &fakeTimer{at: r.now.Add(d), seq: r.seq, fn: fn}
	r.timers = append(r.timers, ft)
	return ft
}

func (r *fakeRuntime) Async(work func(ctx context.Context) func()) {
	done := work(context.Background())
	if done == nil {
		return
	}
	if r.hold {
		r.held = append(r.held, done)
		return
	}
	done()
}

func (r *fakeRuntime) flush() {
	held := r.held
	r.held = nil
	for _, done := range held {
		done()
	}
}

// pending counts timers that are armed and not yet fired.
func (r *fakeRuntime) pending() int {
	n := 0
	for _, ft := range r.timers {
		if !ft.stopped && !ft.fired {
			n++
		}
	}
	return n
}

// advance moves the clock forward, firing due timers in deadline order.
func (r *fakeRuntime) advance(d time.Duration) {
	end := r.now.Add(d)
	for {
		next := r.nextDue(end)
		if next == nil {
			break
		}
		if next.at.After(r.now) {
			r.now = next.at
		}
		next.fired = true
		next.fn()
	}
	r.now = end
}

func (r *fakeRuntime) nextDue(end time.Time) *fakeTimer {
	var due []*fakeTimer
	for _, ft := range r.timers {
		if !ft.stopped && !ft.fired && !ft.at.After(end) {
			due = append(due, ft)
		}
	}
	if len(due) == 0 {
		return nil
	}
	sort.Slice(due, func(i, j int) bool {
		if !due[i].at.Equal(due[j].at) {
			return due[i].at.Before(due[j].at)
		}
		return due[i].seq < due[j].seq
	})
	return due[0]
}

type fakeLadder struct {
	lists [][]ladder.RawEntry
	calls int
	err   error
}

// Ladder serves the queued lists in order and repeats the last one.
func (f *fakeLadder) Ladder(ctx context.Context, format ident.ID) ([]ladder.RawEntry, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if len(f.lists) == 0 {
		return nil, nil
	}
	l := f.lists[0]
	if len(f.lists) > 1 {
		f.lists = f.lists[1:]
	}
	return l, nil
}

type fakeBattles struct {
	pulls []map[string]battle.Battle
	calls int
	err   error
}

func (f *fakeBattles) Battles(ctx context.Context, format ident.ID) (map[string]battle.Battle, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if len(f.pulls) == 0 {
		return map[string]battle.Battle{}, nil
	}
	p := f.pulls[0]
	if len(f.pulls) > 1 {
		f.pulls = f.pulls[1:]
	}
	return p, nil
}

type fakeOut struct {
	said []string
	left int
}

func (o *fakeOut) Say(text string) { o.said = append(o.said, text) }
func (o *fakeOut) Leave()          { o.left++ }

func (o *fakeOut) reset() { o.said = nil }

type fakeArchive struct {
	battles []archive.BattleRecord
	changes []archive.ChangeRecord
}

func (a *fakeArchive) SaveBattle(ctx context.Context, rec archive.BattleRecord) error {
	a.battles = append(a.battles, rec)
	return nil
}

func (a *fakeArchive) SaveChanges(ctx context.Context, rec archive.ChangeRecord) error {
	a.changes = append(a.changes, rec)
	return nil
}

type harness struct {
	rt      *fakeRuntime
	ladders *fakeLadder
	battles *fakeBattles
	out     *fakeOut
	arch    *fakeArchive
	tr      *Tracker
}

func newHarness(t *testing.T, cfg TrackingConfig) *harness {
	t.Helper()
	cat, err := msgcat.New("")
	require.NoError(t, err)
	h := &harness{
		rt:      newFakeRuntime(),
		ladders: &fakeLadder{},
		battles: &fakeBattles{},
		out:     &fakeOut{},
		arch:    &fakeArchive{},
	}
	h.tr = New("lobby", cfg, Deps{
		Runtime: h.rt,
		Ladders: h.ladders,
		Battles: h.battles,
		Out:     h.out,
		Msgs:    cat,
		Archive: h.arch,
	}, Options{Tick: time.Second, DeadlineLead: 2 * time.Second, RecheckStep: 100 * time.Millisecond})
	return h
}

func entries(names ...string) []ladder.RawEntry {
	out := make([]ladder.RawEntry, 0, len(names))
	for i, n := range names {
		out = append(out, ladder.RawEntry{Name: n, Elo: float64(1900 - 10*i), GXE: 75, GlickoRating: 1700, GlickoDeviation: 30})
	}
	return out
}
