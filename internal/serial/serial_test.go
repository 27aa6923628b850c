package serial

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeneratorIssuesUniqueSerials(t *testing.T) {
	gen, err := NewGenerator(7)
	require.NoError(t, err)

	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		s := gen.Next()
		require.True(t, strings.HasPrefix(s, Prefix), s)
		assert.Equal(t, strings.ToUpper(s), s)
		_, dup := seen[s]
		require.False(t, dup, s)
		seen[s] = struct{}{}
	}
}

func TestGeneratorRejectsBadNode(t *testing.T) {
	_, err := NewGenerator(1024)
	assert.Error(t, err)

	_, err = NewGenerator(-1)
	assert.Error(t, err)
}
