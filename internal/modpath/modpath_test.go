package modpath

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolve(t *testing.T) {
	cases := []struct {
		name     string
		referrer string
		id       string
		want     string
	}{
		{"sibling", "a/b", "./x", "a/x"},
		{"parent", "a/b", "../x", "x"},
		{"pop past root uses remainder verbatim", "a/b", "../../x", "x"},
		{"pop past root keeps trailing dirs", "a/b", "../../y/x", "y/x"},
		{"nested referrer", "a/b/c", "./x", "a/b/x"},
		{"nested parent", "a/b/c", "../x", "a/x"},
		{"interior dot segments", "a/b", "./c/./d", "a/c/d"},
		{"interior parent segments", "a/b", "./c/../d", "a/d"},
		{"absolute id passes through", "a/b", "c/d", "c/d"},
		{"plain name passes through", "a/b", "site", "site"},
		{"exports sentinel passes through", "a/b", "exports", "exports"},
		{"top-level referrer", "a", "./x", "x"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Resolve(tc.referrer, tc.id))
		})
	}
}

func TestResolveIsPure(t *testing.T) {
	first := Resolve("a/b/c", "../x/./y")
	second := Resolve("a/b/c", "../x/./y")
	assert.Equal(t, first, second)
	assert.Equal(t, "a/x/y", first)
}

func TestIsRelative(t *testing.T) {
	assert.True(t, IsRelative("./x"))
	assert.True(t, IsRelative("../x"))
	assert.False(t, IsRelative("x"))
	assert.False(t, IsRelative("a/b"))
	assert.False(t, IsRelative(Exports))
}
