package tracker

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/park285/Showdown-LadderTracker-bot/internal/battle"
	"github.com/park285/Showdown-LadderTracker-bot/internal/ident"
)

var (
	ErrInvalidFormat   = errors.New("tracker: invalid format")
	ErrInvalidNumber   = errors.New("tracker: invalid number")
	ErrInvalidDeadline = errors.New("tracker: invalid deadline")
	ErrNoFormat        = errors.New("tracker: no format set")
	ErrNoBaseline      = errors.New("tracker: no previous snapshot")
	ErrCooldown        = errors.New("tracker: on cooldown")
)

// DeadlineLayouts are accepted by SetDeadline, tried in order.
var DeadlineLayouts = []string{
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// TrackingConfig is the per-room tracking setup. Fields are independent.
type TrackingConfig struct {
	Format    ident.ID
	Prefix    ident.ID
	MinRating int
	Tracked   ident.Set
	Cutoff    int
	ShowDiffs bool
	Deadline  time.Time
}

// Criteria is the classifier's view of the config.
func (c TrackingConfig) Criteria() battle.Criteria {
	return battle.Criteria{
		Prefix:    c.Prefix,
		MinRating: c.MinRating,
		Tracked:   c.Tracked,
		Cutoff:    c.Cutoff,
	}
}

func (c TrackingConfig) HasDeadline() bool { return !c.Deadline.IsZero() }

// parseCount parses a non-negative integer; "off", "none" and "" mean 0.
func parseCount(arg string) (int, error) {
	arg = strings.ToLower(strings.TrimSpace(arg))
	switch arg {
	case "", "off", "none", "0":
		return 0, nil
	}
	n, err := strconv.Atoi(arg)
	if err != nil || n < 0 {
		return 0, ErrInvalidNumber
	}
	return n, nil
}

func isOff(arg string) bool {
	switch strings.ToLower(strings.TrimSpace(arg)) {
	case "off", "none", "clear", "reset":
		return true
	}
	return false
}

func parseDeadline(arg string, loc *time.Location) (time.Time, error) {
	arg = strings.TrimSpace(arg)
	for _, layout := range DeadlineLayouts {
		if t, err := time.ParseInLocation(layout, arg, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, ErrInvalidDeadline
}
