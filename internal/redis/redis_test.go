package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// Presence helpers are best-effort: with no client configured they must be
// silent no-ops, never a nil dereference.
func TestPresenceWithoutClientIsNoOp(t *testing.T) {
	Rdb = nil
	ctx := context.Background()

	assert.NotPanics(t, func() {
		TouchPlayerPresence(ctx, "dev-1", time.Now(), time.Minute)
	})
	assert.False(t, PlayerSeen(ctx, "dev-1"))
}
