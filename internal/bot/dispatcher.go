// Package bot routes room chat to per-room trackers.
package bot

import (
	"errors"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/park285/Showdown-LadderTracker-bot/internal/ident"
	"github.com/park285/Showdown-LadderTracker-bot/internal/obslog"
	"github.com/park285/Showdown-LadderTracker-bot/internal/showdown"
	"github.com/park285/Showdown-LadderTracker-bot/internal/tracker"
)

// Poster runs funcs on the trackers' sequence.
type Poster interface {
	Post(fn func()) bool
}

type Options struct {
	Prefix   string
	Location *time.Location
	// Self reports the bot's own id; lines from it count as own activity and are never commands.
	Self func() ident.ID
	// Out returns the room's outbound side for replies.
	Out func(room string) tracker.Announcer
}

type Dispatcher struct {
	loop     Poster
	msgs     tracker.Renderer
	opts     Options
	trackers map[string]*tracker.Tracker
	log      *zap.Logger
}

type request struct {
	room  string
	user  string
	level level
	cmd   string
	arg   string
	tr    *tracker.Tracker
}

type handler struct {
	min level
	run func(d *Dispatcher, r request) error
}

var commands map[string]handler

func init() {
	commands = map[string]handler{
		"format":    {levelStaff, (*Dispatcher).cmdFormat},
		"prefix":    {levelStaff, (*Dispatcher).cmdPrefix},
		"rating":    {levelStaff, (*Dispatcher).cmdRating},
		"cutoff":    {levelStaff, (*Dispatcher).cmdCutoff},
		"track":     {levelStaff, (*Dispatcher).cmdTrack},
		"untrack":   {levelStaff, (*Dispatcher).cmdUntrack},
		"showdiffs": {levelStaff, (*Dispatcher).cmdShowDiffs},
		"hidediffs": {levelStaff, (*Dispatcher).cmdHideDiffs},
		"start":     {levelStaff, (*Dispatcher).cmdStart},
		"stop":      {levelStaff, (*Dispatcher).cmdStop},
		"leave":     {levelStaff, (*Dispatcher).cmdLeave},
		"deadline":  {levelVoice, (*Dispatcher).cmdDeadline},
		"tracked":   {levelVoice, (*Dispatcher).cmdTracked},
		"top":       {levelVoice, (*Dispatcher).cmdTop},
		"changes":   {levelVoice, (*Dispatcher).cmdChanges},
		"status":    {levelVoice, (*Dispatcher).cmdStatus},
		"help":      {levelVoice, (*Dispatcher).cmdHelp},
	}
}

func New(loop Poster, msgs tracker.Renderer, opts Options) *Dispatcher {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Self == nil {
		opts.Self = func() ident.ID { return "" }
	}
	return &Dispatcher{
		loop:     loop,
		msgs:     msgs,
		opts:     opts,
		trackers: make(map[string]*tracker.Tracker),
		log:      obslog.L(),
	}
}

// Add registers the tracker of a room. Call it before chat starts flowing or on the loop.
func (d *Dispatcher) Add(t *tracker.Tracker) { d.trackers[t.Room()] = t }

// Tracker returns the room's tracker, if any. Loop only.
func (d *Dispatcher) Tracker(room string) (*tracker.Tracker, bool) {
	t, ok := d.trackers[room]
	return t, ok
}

// HandleChat is the transport's chat callback. It only hands the line to the loop.
func (d *Dispatcher) HandleChat(c showdown.Chat) {
	d.loop.Post(func() { d.Dispatch(c) })
}

// Shutdown stops every tracker. Loop only.
func (d *Dispatcher) Shutdown() {
	for _, t := range d.trackers {
		t.Shutdown()
	}
}

// Dispatch processes one chat line on the loop.
func (d *Dispatcher) Dispatch(c showdown.Chat) {
	tr, ok := d.trackers[c.Room]
	if !ok {
		return
	}
	fromSelf := ident.Normalize(c.User) == d.opts.Self()
	tr.ObserveLine(fromSelf)
	if fromSelf {
		return
	}

	cmd, arg, ok := parseCommand(d.opts.Prefix, c.Message)
	if !ok {
		return
	}
	h, ok := commands[cmd]
	if !ok {
		return
	}
	lvl := levelOf(c.Rank)
	if lvl < h.min {
		// plain users are ignored rather than answered to keep the room quiet
		if lvl > levelUser {
			d.reply(c.Room, "errors.permission", map[string]any{"Rank": h.min.symbol(), "Prefix": d.opts.Prefix, "Command": cmd})
		}
		return
	}

	r := request{room: c.Room, user: c.User, level: lvl, cmd: cmd, arg: arg, tr: tr}
	d.log.Debug("command", zap.String("room", c.Room), zap.String("user", c.User), zap.String("cmd", cmd))
	if err := h.run(d, r); err != nil {
		d.replyError(r, err)
	}
}

func (d *Dispatcher) reply(room, key string, data any) {
	text, err := d.msgs.Render(key, data)
	if err != nil {
		d.log.Error("render_error", zap.String("key", key), zap.Error(err))
		return
	}
	if text != "" {
		d.opts.Out(room).Say(text)
	}
}

func (d *Dispatcher) replyError(r request, err error) {
	data := map[string]any{"Prefix": d.opts.Prefix, "Command": r.cmd}
	switch {
	case errors.Is(err, tracker.ErrInvalidFormat):
		d.reply(r.room, "errors.invalid_format", data)
	case errors.Is(err, tracker.ErrInvalidNumber):
		d.reply(r.room, "errors.invalid_number", data)
	case errors.Is(err, tracker.ErrInvalidDeadline):
		data["Zone"] = d.opts.Location.String()
		d.reply(r.room, "errors.invalid_deadline", data)
	case errors.Is(err, tracker.ErrNoFormat):
		d.reply(r.room, "errors.no_format", data)
	case errors.Is(err, tracker.ErrNoBaseline):
		d.reply(r.room, "changes.no_baseline", nil)
	case errors.Is(err, errNoNames):
		d.reply(r.room, "errors.no_names", data)
	case errors.Is(err, tracker.ErrCooldown):
		d.log.Debug("command_cooldown", zap.String("room", r.room), zap.String("cmd", r.cmd))
	default:
		d.log.Warn("command_error", zap.String("room", r.room), zap.String("cmd", r.cmd), zap.Error(err))
	}
}

var errNoNames = errors.New("bot: no names given")

func (d *Dispatcher) cmdFormat(r request) error { return r.tr.SetFormat(r.arg) }

func (d *Dispatcher) cmdPrefix(r request) error {
	r.tr.SetPrefix(r.arg)
	return nil
}

func (d *Dispatcher) cmdRating(r request) error { return r.tr.SetRating(r.arg) }

func (d *Dispatcher) cmdCutoff(r request) error { return r.tr.SetCutoff(r.arg) }

func (d *Dispatcher) cmdTrack(r request) error {
	names := splitArgs(r.arg)
	if len(names) == 0 {
		return errNoNames
	}
	r.tr.Track(names)
	return nil
}

func (d *Dispatcher) cmdUntrack(r request) error {
	names := splitArgs(r.arg)
	if len(names) == 0 {
		return errNoNames
	}
	r.tr.Untrack(names)
	return nil
}

func (d *Dispatcher) cmdShowDiffs(r request) error {
	r.tr.SetShowDiffs(true)
	return nil
}

func (d *Dispatcher) cmdHideDiffs(r request) error {
	r.tr.SetShowDiffs(false)
	return nil
}

func (d *Dispatcher) cmdStart(r request) error { return r.tr.Start() }

func (d *Dispatcher) cmdStop(r request) error {
	r.tr.StopTracking()
	return nil
}

func (d *Dispatcher) cmdLeave(r request) error {
	r.tr.Leave()
	delete(d.trackers, r.room)
	return nil
}

// cmdDeadline queries for voice and sets for staff.
func (d *Dispatcher) cmdDeadline(r request) error {
	if r.arg == "" {
		r.tr.QueryDeadline()
		return nil
	}
	if r.level < levelStaff {
		d.reply(r.room, "errors.permission", map[string]any{"Rank": levelStaff.symbol(), "Prefix": d.opts.Prefix, "Command": r.cmd})
		return nil
	}
	return r.tr.SetDeadline(r.arg)
}

func (d *Dispatcher) cmdTracked(r request) error {
	r.tr.ListTracked()
	return nil
}

func (d *Dispatcher) cmdTop(r request) error {
	n, err := optionalInt(r.arg)
	if err != nil || n < 0 {
		return tracker.ErrInvalidNumber
	}
	return r.tr.ShowLeaderboard(n, r.level >= levelStaff)
}

func (d *Dispatcher) cmdChanges(r request) error {
	n, err := optionalInt(r.arg)
	if err != nil {
		return tracker.ErrInvalidNumber
	}
	return r.tr.ShowChanges(n, r.level >= levelStaff)
}

func (d *Dispatcher) cmdStatus(r request) error {
	r.tr.Status()
	return nil
}

func (d *Dispatcher) cmdHelp(r request) error {
	d.reply(r.room, "help", map[string]any{"Prefix": d.opts.Prefix})
	return nil
}

func optionalInt(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}
