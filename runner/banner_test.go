package runner

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapText(t *testing.T) {
	t.Run("short text fits on one line", func(t *testing.T) {
		lines := wrapText("hello", 10)
		assert.Equal(t, []string{"hello"}, lines)
	})

	t.Run("long text wraps", func(t *testing.T) {
		lines := wrapText("abcdefghij", 4)
		assert.Equal(t, []string{"abcd", "efgh", "ij"}, lines)
	})

	t.Run("empty text yields no lines", func(t *testing.T) {
		assert.Empty(t, wrapText("", 10))
	})
}

func TestBanner(t *testing.T) {
	out := banner([]string{"hello", "world"}, 30)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 4)

	assert.True(t, strings.HasPrefix(lines[0], "╔"))
	assert.True(t, strings.HasSuffix(lines[3], "╝"))
	assert.Contains(t, lines[1], "hello")
	assert.Contains(t, lines[2], "world")

	t.Run("narrow width is clamped", func(t *testing.T) {
		assert.NotPanics(t, func() {
			banner([]string{"x"}, 5)
		})
	})
}
