package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorFormatting(t *testing.T) {
	testCases := []struct {
		name     string
		err      *Error
		expected string
	}{
		{
			name:     "compile failure with location",
			err:      NewCompileFailure("hero/dark", "index.html", errors.New("unclosed block")).WithLocation("index.html", 3, 7),
			expected: "[COMPILE_FAILURE] component:hero/dark index.html:3:7 compilation failed: unclosed block",
		},
		{
			name:     "render failure",
			err:      NewRenderFailure("card/basic", errors.New("partial not found")),
			expected: "[RENDER_FAILURE] component:card/basic render failed: partial not found",
		},
		{
			name:     "discovery warning",
			err:      NewDiscoveryWarning("components/x/y", "missing meta.json", nil),
			expected: "[DISCOVERY_WARNING] components/x/y missing meta.json",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.err.Error())
		})
	}
}

func TestKindClassification(t *testing.T) {
	cause := errors.New("boom")

	compile := fmt.Errorf("building: %w", NewCompileFailure("a/b", "styles.scss", cause))
	render := fmt.Errorf("rendering: %w", NewRenderFailure("a/b", cause))
	warning := NewDiscoveryWarning("a/b", "bad meta", cause)

	assert.True(t, IsCompileFailure(compile))
	assert.False(t, IsRenderFailure(compile))
	assert.True(t, IsRenderFailure(render))
	assert.True(t, IsDiscoveryWarning(warning))
	assert.Equal(t, Kind(""), KindOf(cause))
	assert.ErrorIs(t, compile, cause)
}

func TestRouteMiss(t *testing.T) {
	wrapped := fmt.Errorf("locate hero/missing: %w", ErrRouteMiss)

	assert.True(t, IsRouteMiss(wrapped))
	assert.True(t, errors.Is(wrapped, ErrRouteMiss))
	assert.False(t, IsRouteMiss(NewRenderFailure("x/y", nil)))
}
