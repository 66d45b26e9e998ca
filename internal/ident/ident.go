// Package ident turns free-form display names into comparison keys.
package ident

import (
	"sort"
	"strconv"
	"strings"
)

// ID is a lowercase ASCII alphanumeric key. The empty ID means "no identifier".
type ID string

// Input is the closed set of shapes a name can arrive in.
type Input interface {
	text() (string, bool)
}

// Text is a raw display name.
type Text string

// Number is a bare numeric name.
type Number float64

// Record is a name-carrying upstream object. ID wins over UserID when both are set.
type Record struct {
	ID     string
	UserID string
}

func (t Text) text() (string, bool) { return string(t), true }

func (n Number) text() (string, bool) {
	return strconv.FormatFloat(float64(n), 'f', -1, 64), true
}

func (r Record) text() (string, bool) {
	if r.ID != "" {
		return r.ID, true
	}
	if r.UserID != "" {
		return r.UserID, true
	}
	return "", false
}

// Of normalizes any Input. A nil input or an empty record yields the empty ID.
func Of(in Input) ID {
	if in == nil {
		return ""
	}
	s, ok := in.text()
	if !ok {
		return ""
	}
	return Normalize(s)
}

// Normalize lowercases s and strips everything outside [a-z0-9].
func Normalize(s string) ID {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z':
			b.WriteByte(c + ('a' - 'A'))
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			b.WriteByte(c)
		}
	}
	return ID(b.String())
}

// HasPrefix reports whether id starts with prefix. Every ID starts with the empty prefix.
func (id ID) HasPrefix(prefix ID) bool {
	return strings.HasPrefix(string(id), string(prefix))
}

func (id ID) String() string { return string(id) }

// Set is an unordered collection of IDs.
type Set map[ID]struct{}

func NewSet(ids ...ID) Set {
	s := make(Set, len(ids))
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Add inserts id unless it is empty. It reports whether the set grew.
func (s Set) Add(id ID) bool {
	if id == "" {
		return false
	}
	if _, ok := s[id]; ok {
		return false
	}
	s[id] = struct{}{}
	return true
}

func (s Set) Remove(id ID) bool {
	if _, ok := s[id]; !ok {
		return false
	}
	delete(s, id)
	return true
}

func (s Set) Has(id ID) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns the members in ascending order.
func (s Set) Sorted() []ID {
	out := make([]ID, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
