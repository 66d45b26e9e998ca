package showdown

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/park285/Showdown-LadderTracker-bot/internal/battle"
	"github.com/park285/Showdown-LadderTracker-bot/internal/ident"
	"github.com/park285/Showdown-LadderTracker-bot/internal/ladder"
	"github.com/park285/Showdown-LadderTracker-bot/internal/obslog"
	"github.com/park285/Showdown-LadderTracker-bot/pkg/ladderdto"
)

var ErrQueryTimeout = errors.New("showdown: roomlist query timed out")

// BattleQuery asks the server for a format's running battles. Replies carry no
// request id, so queries run one at a time.
type BattleQuery struct {
	send func(frame string)

	turn    sync.Mutex
	mu      sync.Mutex
	waiting chan string
}

func NewBattleQuery(send func(frame string)) *BattleQuery {
	return &BattleQuery{send: send}
}

// Battles implements the tracker's battle source. A reply that lists only rooms of
// another format belongs to an earlier, abandoned query and is ignored.
func (q *BattleQuery) Battles(ctx context.Context, format ident.ID) (map[string]battle.Battle, error) {
	q.turn.Lock()
	defer q.turn.Unlock()

	reply := make(chan string, 4)
	q.mu.Lock()
	q.waiting = reply
	q.mu.Unlock()
	defer func() {
		q.mu.Lock()
		q.waiting = nil
		q.mu.Unlock()
	}()

	q.send(roomlistCommand(format.String()))
	for {
		select {
		case payload := <-reply:
			all, err := DecodeRoomList(payload)
			if err != nil {
				return nil, err
			}
			if got, ok := forFormat(all, format); ok {
				return got, nil
			}
			obslog.L().Debug("roomlist_stale_reply", zap.String("format", format.String()), zap.Int("rooms", len(all)))
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", ErrQueryTimeout, ctx.Err())
		}
	}
}

// forFormat keeps the rooms of one format. ok is false when the reply had rooms but
// none of them matched.
func forFormat(all map[string]battle.Battle, format ident.ID) (map[string]battle.Battle, bool) {
	prefix := "battle-" + format.String() + "-"
	out := make(map[string]battle.Battle, len(all))
	for room, b := range all {
		if strings.HasPrefix(room, prefix) {
			out[room] = b
		}
	}
	return out, len(out) > 0 || len(all) == 0
}

// Deliver hands a |queryresponse|roomlist| payload to the waiting query. Unsolicited
// replies are dropped.
func (q *BattleQuery) Deliver(payload string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.waiting == nil {
		return
	}
	select {
	case q.waiting <- payload:
	default:
	}
}

// DecodeRoomList converts a roomlist payload. Records that do not decode are logged
// and skipped; records with an unreadable minElo are passed on with empty players so
// the tracker skips them as malformed.
func DecodeRoomList(payload string) (map[string]battle.Battle, error) {
	var rl ladderdto.RoomList
	if err := json.Unmarshal([]byte(payload), &rl); err != nil {
		return nil, fmt.Errorf("decode roomlist: %w", err)
	}
	out := make(map[string]battle.Battle, len(rl.Rooms))
	for room, raw := range rl.Rooms {
		var e ladderdto.RoomListEntry
		if err := json.Unmarshal(raw, &e); err != nil {
			obslog.L().Debug("roomlist_bad_record", zap.String("battle", room), zap.Error(err))
			continue
		}
		if e.MinElo.Malformed {
			obslog.L().Debug("roomlist_bad_min_elo", zap.String("battle", room))
			out[room] = battle.Battle{Room: room}
			continue
		}
		b := battle.Battle{Room: room, P1: e.P1, P2: e.P2}
		if e.MinElo.Valid {
			b.MinElo = ladder.Round(e.MinElo.Value)
		}
		out[room] = b
	}
	return out, nil
}
