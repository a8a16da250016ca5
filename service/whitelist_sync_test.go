package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clawcraft/gatekeeper/core"
)

func TestWhitelistSync_Tick(t *testing.T) {
	lister := &staticLister{agents: []core.VerifiedAgent{
		{Username: "Bob", VerifiedAt: epoch},
		{Username: "Dave", VerifiedAt: epoch},
	}}
	wl := &memoryWhitelist{entries: []core.WhitelistEntry{{UUID: "existing", Name: "bob"}}}
	reloader := &countingReloader{}
	s := NewWhitelistSync(lister, wl, reloader, nil, time.Second)
	ctx := context.Background()

	added, err := s.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, added)
	assert.Equal(t, 1, wl.writes)
	assert.Equal(t, 1, reloader.reloads())
	require.Len(t, wl.entries, 2)
	assert.Equal(t, core.WhitelistEntry{UUID: "existing", Name: "bob"}, wl.entries[0])
	assert.Equal(t, core.WhitelistEntry{UUID: core.OfflineUUID("Dave").String(), Name: "Dave"}, wl.entries[1])

	added, err = s.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, added)
	assert.Equal(t, 1, wl.writes)
	assert.Equal(t, 1, reloader.reloads())
}

func TestWhitelistSync_CorruptFile(t *testing.T) {
	lister := &staticLister{agents: []core.VerifiedAgent{{Username: "Bob", VerifiedAt: epoch}}}
	wl := &memoryWhitelist{readErr: core.ErrWhitelistCorrupt}
	reloader := &countingReloader{}
	s := NewWhitelistSync(lister, wl, reloader, nil, time.Second)

	added, err := s.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, added)
	assert.Len(t, wl.entries, 1)
}

func TestWhitelistSync_Failures(t *testing.T) {
	ctx := context.Background()
	agents := []core.VerifiedAgent{{Username: "Bob", VerifiedAt: epoch}}

	t.Run("list", func(t *testing.T) {
		s := NewWhitelistSync(&staticLister{err: errors.New("redis down")}, &memoryWhitelist{}, &countingReloader{}, nil, time.Second)
		_, err := s.Tick(ctx)
		assert.Error(t, err)
	})

	t.Run("write", func(t *testing.T) {
		reloader := &countingReloader{}
		s := NewWhitelistSync(&staticLister{agents: agents}, &memoryWhitelist{wrErr: errors.New("read-only fs")}, reloader, nil, time.Second)
		_, err := s.Tick(ctx)
		assert.Error(t, err)
		assert.Equal(t, 0, reloader.reloads())
	})

	t.Run("reload", func(t *testing.T) {
		wl := &memoryWhitelist{}
		reloader := &countingReloader{err: errors.New("rcon refused")}
		s := NewWhitelistSync(&staticLister{agents: agents}, wl, reloader, nil, time.Second)
		added, err := s.Tick(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, added)
		assert.Equal(t, 1, wl.writes)
	})
}

func TestWhitelistSync_SkipsOverlappingTick(t *testing.T) {
	block := make(chan struct{})
	lister := &staticLister{agents: []core.VerifiedAgent{{Username: "Bob", VerifiedAt: epoch}}, block: block}
	s := NewWhitelistSync(lister, &memoryWhitelist{}, &countingReloader{}, nil, time.Second)
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = s.Tick(ctx)
	}()

	assert.Eventually(t, func() bool { return s.running.Load() }, time.Second, time.Millisecond)
	_, err := s.Tick(ctx)
	assert.ErrorIs(t, err, ErrTickInProgress)

	close(block)
	<-done
}

func TestWhitelistSync_RunStopsOnCancel(t *testing.T) {
	wl := &memoryWhitelist{}
	s := NewWhitelistSync(&staticLister{agents: []core.VerifiedAgent{{Username: "Bob", VerifiedAt: epoch}}}, wl, &countingReloader{}, nil, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Run(ctx)
	}()

	assert.Eventually(t, func() bool {
		wl.mu.Lock()
		defer wl.mu.Unlock()
		return wl.writes == 1
	}, time.Second, time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}
}

func TestWhitelistSync_StaleBindingsNeverWhitelisted(t *testing.T) {
	agents, fake, _ := newAgentCache()
	ctx := context.Background()

	require.NoError(t, agents.Put(ctx, core.VerifiedAgent{Username: "Old", VerifiedAt: epoch.Add(-25 * time.Hour), Method: core.MethodOnChain}))
	require.NoError(t, agents.Put(ctx, core.VerifiedAgent{Username: "Fresh", VerifiedAt: epoch, Method: core.MethodOnChain}))

	wl := &memoryWhitelist{}
	reloader := &countingReloader{}
	s := NewWhitelistSync(agents, wl, reloader, nil, time.Second)

	added, err := s.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, added)
	assert.Equal(t, []core.WhitelistEntry{{UUID: core.OfflineUUID("Fresh").String(), Name: "Fresh"}}, wl.entries)

	// once Fresh ages out nothing new is written
	fake.Advance(24 * time.Hour)
	added, err = s.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, added)
	assert.Equal(t, 1, wl.writes)
	assert.Equal(t, 1, reloader.reloads())
}
