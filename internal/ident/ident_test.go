package ident

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	cases := map[string]ID{
		"Zarel":           "zarel",
		"  LT Foo-Bar ":   "ltfoobar",
		"Pokémon Trainer": "pokmontrainer",
		"":                "",
		"!!!":             "",
		"ABC123":          "abc123",
	}
	for in, want := range cases {
		assert.Equal(t, want, Normalize(in), "input %q", in)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	for _, in := range []string{"Zarel", "LT-Foo bar", "ÄÖÜ x9", "", "ltbob"} {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(string(once)))
	}
}

func TestOfIsTotal(t *testing.T) {
	assert.Equal(t, ID(""), Of(nil))
	assert.Equal(t, ID("ltfoo"), Of(Text("LT Foo")))
	assert.Equal(t, ID("42"), Of(Number(42)))
	assert.Equal(t, ID("15"), Of(Number(1.5)))
	assert.Equal(t, ID("alice"), Of(Record{ID: "Alice", UserID: "bob"}))
	assert.Equal(t, ID("bob"), Of(Record{UserID: "Bob"}))
	assert.Equal(t, ID(""), Of(Record{}))
}

func TestSet(t *testing.T) {
	s := NewSet("b", "a", "")
	assert.Len(t, s, 2)
	assert.False(t, s.Add("a"))
	assert.True(t, s.Has("b"))
	assert.Equal(t, []ID{"a", "b"}, s.Sorted())
	assert.True(t, s.Remove("a"))
	assert.False(t, s.Remove("a"))
}

func TestHasPrefix(t *testing.T) {
	assert.True(t, ID("ltbob").HasPrefix("lt"))
	assert.True(t, ID("bob").HasPrefix(""))
	assert.False(t, ID("bob").HasPrefix("lt"))
}
