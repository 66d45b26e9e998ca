package ladderdto

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// RoomList is the payload of |queryresponse|roomlist|. Rooms stay raw so one bad
// record can be skipped without losing the rest.
type RoomList struct {
	Rooms map[string]json.RawMessage `json:"rooms"`
}

type RoomListEntry struct {
	P1     string     `json:"p1"`
	P2     string     `json:"p2"`
	MinElo FlexNumber `json:"minElo"`
}

// FlexNumber decodes a JSON number or a numeric string. Valid is false for null or
// a missing field; Malformed marks any other value.
type FlexNumber struct {
	Value     float64
	Valid     bool
	Malformed bool
}

func (n *FlexNumber) UnmarshalJSON(b []byte) error {
	*n = FlexNumber{}
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			n.Malformed = true
			return nil
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			n.Malformed = true
			return nil
		}
		n.Value, n.Valid = f, true
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		n.Malformed = true
		return nil
	}
	n.Value, n.Valid = f, true
	return nil
}

func (n FlexNumber) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}
