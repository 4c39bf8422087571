package keygen

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var keyFormat = regexp.MustCompile(`^[0-9A-F]{4}-[0-9A-F]{4}-[0-9A-F]{4}$`)

func TestNewFormat(t *testing.T) {
	for i := 0; i < 100; i++ {
		key, err := New()
		require.NoError(t, err)
		assert.Regexp(t, keyFormat, key)
	}
}

func TestNewUniqueEnough(t *testing.T) {
	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		key, err := New()
		require.NoError(t, err)
		_, dup := seen[key]
		require.False(t, dup, "duplicate key generated: %s", key)
		seen[key] = struct{}{}
	}
}
