package showdown

import (
	"strings"
)

// Line is one |-framed protocol line.
type Line struct {
	Type string
	Args []string
}

// Frame is one websocket message: an optional >room header and its lines.
type Frame struct {
	Room  string
	Lines []Line
}

// ParseFrame splits a raw server message. Lines that do not start with '|' are
// plain room log text and come back with an empty Type.
func ParseFrame(raw string) Frame {
	var f Frame
	lines := strings.Split(strings.TrimRight(raw, "\n"), "\n")
	if len(lines) > 0 && strings.HasPrefix(lines[0], ">") {
		f.Room = strings.TrimSpace(lines[0][1:])
		lines = lines[1:]
	}
	for _, l := range lines {
		if l == "" {
			continue
		}
		f.Lines = append(f.Lines, parseLine(l))
	}
	return f
}

func parseLine(l string) Line {
	if !strings.HasPrefix(l, "|") {
		return Line{Args: []string{l}}
	}
	parts := strings.Split(l[1:], "|")
	return Line{Type: parts[0], Args: parts[1:]}
}

// rest joins args from i on, for payloads that may themselves contain '|'.
func (l Line) rest(i int) string {
	if i >= len(l.Args) {
		return ""
	}
	return strings.Join(l.Args[i:], "|")
}

func (l Line) arg(i int) string {
	if i >= len(l.Args) {
		return ""
	}
	return l.Args[i]
}

// Chat is a room chat line with the sender's rank split off.
type Chat struct {
	Room    string
	Rank    byte
	User    string
	Message string
}

// ChatFromLine decodes |c|user|msg and |c:|ts|user|msg.
func ChatFromLine(room string, l Line) (Chat, bool) {
	var user, msg string
	switch l.Type {
	case "c", "chat":
		user, msg = l.arg(0), l.rest(1)
	case "c:":
		user, msg = l.arg(1), l.rest(2)
	default:
		return Chat{}, false
	}
	if user == "" {
		return Chat{}, false
	}
	if room == "" {
		room = "lobby"
	}
	rank, name := SplitRank(user)
	return Chat{Room: room, Rank: rank, User: name, Message: msg}, true
}

// SplitRank splits the leading rank symbol off a user field. A plain name gets ' '.
func SplitRank(user string) (byte, string) {
	if user == "" {
		return ' ', ""
	}
	c := user[0]
	if isRankSymbol(c) {
		// "@!" marks an away user
		return c, strings.TrimSuffix(user[1:], "@!")
	}
	return ' ', user
}

func isRankSymbol(c byte) bool {
	switch c {
	case ' ', '+', '%', '@', '*', '#', '&', '~', '^', '!':
		return true
	}
	return false
}

// Outbound framing: "room|text". Multi-line text is sent as a code block.
func formatSay(room, text string) string {
	text = strings.TrimRight(text, "\n")
	if strings.Contains(text, "\n") {
		text = "!code " + text
	}
	return room + "|" + text
}

func roomlistCommand(format string) string {
	return "|/cmd roomlist " + format + ",none,"
}
