package ladderdto

// Ladder is the body of GET {base}/{format}.json.
type Ladder struct {
	FormatID string        `json:"formatid"`
	Format   string        `json:"format"`
	Toplist  []LadderEntry `json:"toplist"`
}

// LadderEntry is one ranked account. Only the fields the tracker reads are declared.
type LadderEntry struct {
	UserID   string  `json:"userid"`
	Username string  `json:"username"`
	Elo      float64 `json:"elo"`
	GXE      float64 `json:"gxe"`
	R        float64 `json:"r"`
	RD       float64 `json:"rd"`
	W        int     `json:"w"`
	L        int     `json:"l"`
	T        int     `json:"t"`
}

// DisplayName prefers the formatted username and falls back to the id.
func (e LadderEntry) DisplayName() string {
	if e.Username != "" {
		return e.Username
	}
	return e.UserID
}
