package battle

import (
	"sort"
	"strconv"
	"strings"
)

// Watermark remembers the highest battle room seen so a battle is classified once.
// Rooms ending in a numeric id compare numerically, anything else lexically.
type Watermark struct {
	high string
}

// Fresh reports whether room is strictly newer than the last completed cycle.
func (w *Watermark) Fresh(room string) bool {
	if w.high == "" {
		return true
	}
	return compareRooms(room, w.high) > 0
}

// Advance raises the mark to the highest of rooms. It never lowers it.
func (w *Watermark) Advance(rooms []string) {
	for _, r := range rooms {
		if r == "" {
			continue
		}
		if w.high == "" || compareRooms(r, w.high) > 0 {
			w.high = r
		}
	}
}

func (w *Watermark) High() string { return w.high }

func (w *Watermark) Reset() { w.high = "" }

func compareRooms(a, b string) int {
	na, okA := roomNumber(a)
	nb, okB := roomNumber(b)
	if okA && okB {
		switch {
		case na < nb:
			return -1
		case na > nb:
			return 1
		}
	}
	return strings.Compare(a, b)
}

// roomNumber extracts the trailing id of "battle-gen1ou-2171238113" style rooms,
// ignoring a "-password" suffix on private battles.
func roomNumber(room string) (uint64, bool) {
	parts := strings.Split(room, "-")
	for i := len(parts) - 1; i >= 0; i-- {
		if n, err := strconv.ParseUint(parts[i], 10, 64); err == nil {
			return n, true
		}
	}
	return 0, false
}

// SortRooms orders rooms oldest first using the same comparison as Watermark.
func SortRooms(rooms []string) {
	sort.Slice(rooms, func(i, j int) bool { return compareRooms(rooms[i], rooms[j]) < 0 })
}
