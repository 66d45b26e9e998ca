package bot

type level int

const (
	levelUser level = iota
	levelVoice
	levelStaff
)

// levelOf maps a room rank symbol to a command level.
func levelOf(rank byte) level {
	switch rank {
	case '%', '@', '*', '#', '&', '~':
		return levelStaff
	case '+':
		return levelVoice
	default:
		return levelUser
	}
}

func (l level) symbol() string {
	if l == levelStaff {
		return "%"
	}
	return "+"
}
