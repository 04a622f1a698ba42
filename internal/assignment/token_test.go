package assignment

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTokenIsOpaqueAndURLSafe(t *testing.T) {
	urlSafe := regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		token, err := NewToken()
		require.NoError(t, err)

		assert.Regexp(t, urlSafe, token)
		assert.GreaterOrEqual(t, len(token), 40, "token too short for 256 bits")
		assert.False(t, seen[token], "token collision")
		seen[token] = true
	}
}
