package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clawcraft/gatekeeper/adapters/clock"
	"github.com/clawcraft/gatekeeper/adapters/store"
	"github.com/clawcraft/gatekeeper/core"
)

func newAgentCache() (*AgentCache, *clock.Fake, *store.MemoryStore) {
	fake := clock.NewFake(epoch)
	mem := store.NewMemoryStore(fake)
	return NewAgentCache(mem, fake), fake, mem
}

func TestAgentCache_PutGet(t *testing.T) {
	c, _, _ := newAgentCache()
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, core.VerifiedAgent{Username: "Bob", AgentID: 42, ChainID: 8453, VerifiedAt: epoch, Method: core.MethodOnChain}))

	got, ok, err := c.Get(ctx, "BOB")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(42), got.AgentID)

	_, ok, err = c.Get(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAgentCache_Overwrite(t *testing.T) {
	c, _, _ := newAgentCache()
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, core.VerifiedAgent{Username: "Bob", AgentID: 42, ChainID: 8453, VerifiedAt: epoch, Method: core.MethodOnChain, Registration: []byte(`{"name":"x"}`)}))
	require.NoError(t, c.Put(ctx, core.VerifiedAgent{Username: "bob", AgentID: 7, VerifiedAt: epoch, Method: core.MethodAdminOverride}))

	got, ok, err := c.Get(ctx, "Bob")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(7), got.AgentID)
	assert.Equal(t, uint64(0), got.ChainID)
	assert.Empty(t, got.Registration)
	assert.Equal(t, core.MethodAdminOverride, got.Method)

	all, err := c.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestAgentCache_Staleness(t *testing.T) {
	c, fake, mem := newAgentCache()
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, core.VerifiedAgent{Username: "Old", VerifiedAt: epoch.Add(-25 * time.Hour), Method: core.MethodOnChain}))
	require.NoError(t, c.Put(ctx, core.VerifiedAgent{Username: "Fresh", VerifiedAt: epoch, Method: core.MethodOnChain}))

	list, err := c.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Fresh", list[0].Username)
	// List filters but never evicts
	assert.Equal(t, 2, mem.Len())

	_, ok, err := c.Get(ctx, "old")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, mem.Len())

	fake.Advance(24 * time.Hour)
	_, ok, err = c.Get(ctx, "fresh")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, mem.Len())
}

func TestAgentCache_ListOrdered(t *testing.T) {
	c, _, _ := newAgentCache()
	ctx := context.Background()

	for _, name := range []string{"carol", "Alice", "bob"} {
		require.NoError(t, c.Put(ctx, core.VerifiedAgent{Username: name, VerifiedAt: epoch}))
	}
	list, err := c.List(ctx)
	require.NoError(t, err)

	var names []string
	for _, a := range list {
		names = append(names, a.Username)
	}
	assert.Equal(t, []string{"Alice", "bob", "carol"}, names)
}
