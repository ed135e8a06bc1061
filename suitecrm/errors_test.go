package suitecrm

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAPIError(t *testing.T) {
	t.Run("message with status", func(t *testing.T) {
		err := newAPIError(ErrUpstream, 503, "gateway timeout", nil)
		assert.Equal(t, "suitecrm upstream error (status 503): gateway timeout", err.Error())
	})

	t.Run("message without status", func(t *testing.T) {
		err := newAPIError(ErrConfig, 0, "no instance URL configured", nil)
		assert.Equal(t, "suitecrm config error: no instance URL configured", err.Error())
	})

	t.Run("kind survives wrapping", func(t *testing.T) {
		inner := newAPIError(ErrAuth, 401, "bad credentials", nil)
		wrapped := fmt.Errorf("connect: %w", inner)

		assert.Equal(t, ErrAuth, ErrorKindOf(wrapped))
		assert.True(t, IsAuthError(wrapped))
	})

	t.Run("unrelated errors have no kind", func(t *testing.T) {
		assert.Equal(t, ErrorKind(0), ErrorKindOf(errors.New("boom")))
		assert.False(t, IsAuthError(errors.New("boom")))
	})
}

func TestErrorKindString(t *testing.T) {
	tests := []struct {
		kind     ErrorKind
		expected string
	}{
		{ErrTransport, "transport"},
		{ErrAuth, "auth"},
		{ErrUpstream, "upstream"},
		{ErrDecode, "decode"},
		{ErrConfig, "config"},
		{ErrorKind(99), "unknown"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, tt.kind.String())
	}
}
