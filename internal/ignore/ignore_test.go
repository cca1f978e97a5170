package ignore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestIgnoredMatchesDomain(t *testing.T) {
	c := NewChecker([]string{" Example.COM ", "relay.net"}, zap.NewNop())

	assert.True(t, c.Ignored("user@example.com"))
	assert.True(t, c.Ignored("other@RELAY.NET"))
	assert.False(t, c.Ignored("user@elsewhere.org"))
}

func TestIgnoredEdgeCases(t *testing.T) {
	c := NewChecker([]string{"example.com"}, zap.NewNop())

	assert.False(t, c.Ignored("not-an-address"))
	assert.False(t, c.Ignored("two@at@example.com"))
	assert.False(t, c.Ignored(""))
}

func TestEmptyListIgnoresNothing(t *testing.T) {
	c := NewChecker(nil, zap.NewNop())

	assert.False(t, c.Ignored("user@example.com"))
}
