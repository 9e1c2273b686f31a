package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInitGuardFirstAcquireWins(t *testing.T) {
	var g InitGuard

	assert.True(t, g.TryAcquire())
	assert.False(t, g.TryAcquire())
	assert.True(t, g.Installed())
}

func TestInitGuardResetAllowsReinstall(t *testing.T) {
	var g InitGuard

	assert.True(t, g.TryAcquire())
	g.Reset()
	assert.False(t, g.Installed())
	assert.True(t, g.TryAcquire())
}
