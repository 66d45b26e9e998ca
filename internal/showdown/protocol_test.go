package showdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFrame(t *testing.T) {
	f := ParseFrame(">lobby\n|c:|1700000000|+Some User|hello | world\nplain text\n")
	assert.Equal(t, "lobby", f.Room)
	require.Len(t, f.Lines, 2)
	assert.Equal(t, "c:", f.Lines[0].Type)
	assert.Equal(t, "", f.Lines[1].Type)

	chat, ok := ChatFromLine(f.Room, f.Lines[0])
	require.True(t, ok)
	assert.Equal(t, Chat{Room: "lobby", Rank: '+', User: "Some User", Message: "hello | world"}, chat)
}

func TestChatFromLine_NoTimestampAndGlobal(t *testing.T) {
	f := ParseFrame("|c|@Mod@!|.top 5")
	chat, ok := ChatFromLine(f.Room, f.Lines[0])
	require.True(t, ok)
	assert.Equal(t, "lobby", chat.Room)
	assert.Equal(t, byte('@'), chat.Rank)
	assert.Equal(t, "Mod", chat.User)
	assert.Equal(t, ".top 5", chat.Message)

	_, ok = ChatFromLine("lobby", parseLine("|join|someone"))
	assert.False(t, ok)
}

func TestSplitRank(t *testing.T) {
	r, n := SplitRank(" Plain")
	assert.Equal(t, byte(' '), r)
	assert.Equal(t, "Plain", n)

	r, n = SplitRank("#Owner")
	assert.Equal(t, byte('#'), r)
	assert.Equal(t, "Owner", n)

	r, n = SplitRank("NoSymbol")
	assert.Equal(t, byte(' '), r)
	assert.Equal(t, "NoSymbol", n)
}

func TestFormatSay(t *testing.T) {
	assert.Equal(t, "lobby|hi", formatSay("lobby", "hi\n"))
	assert.Equal(t, "lobby|!code a\nb", formatSay("lobby", "a\nb"))
	assert.Equal(t, "|/cmd roomlist gen1ou,none,", roomlistCommand("gen1ou"))
}
