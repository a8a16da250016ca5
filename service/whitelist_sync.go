package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/clawcraft/gatekeeper/core"
	"github.com/clawcraft/gatekeeper/ports"
)

// DefaultSyncInterval is the period between whitelist synchronizations
const DefaultSyncInterval = 10 * time.Second

// ErrTickInProgress is returned by Tick when another tick is still running
var ErrTickInProgress = errors.New("whitelist sync already running")

// WhitelistSync appends verified agents to the game server whitelist
type WhitelistSync struct {
	agents    ports.AgentLister
	whitelist ports.Whitelist
	reloader  ports.Reloader
	logger    watermill.LoggerAdapter
	interval  time.Duration
	timeout   time.Duration

	running atomic.Bool
}

// NewWhitelistSync creates a synchronizer
func NewWhitelistSync(agents ports.AgentLister, wl ports.Whitelist, reloader ports.Reloader, logger watermill.LoggerAdapter, interval time.Duration) *WhitelistSync {
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	if interval <= 0 {
		interval = DefaultSyncInterval
	}
	return &WhitelistSync{
		agents:    agents,
		whitelist: wl,
		reloader:  reloader,
		logger:    logger,
		interval:  interval,
		timeout:   10 * time.Second,
	}
}

// Run ticks immediately and then every interval until ctx is done
func (s *WhitelistSync) Run(ctx context.Context) {
	s.logger.Info("Whitelist sync started", watermill.LogFields{"interval": s.interval.String()})

	s.tickAndLog(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Whitelist sync stopped", nil)
			return
		case <-ticker.C:
			// Ticks run in their own goroutine so a slow one is skipped, not queued
			go s.tickAndLog(ctx)
		}
	}
}

func (s *WhitelistSync) tickAndLog(ctx context.Context) {
	if _, err := s.Tick(ctx); err != nil {
		if errors.Is(err, ErrTickInProgress) {
			s.logger.Debug("Skipping whitelist sync tick, previous one still running", nil)
			return
		}
		s.logger.Error("Whitelist sync failed", err, nil)
	}
}

// Tick performs one synchronization and returns the number of entries added.
// Failures abort the tick only; the next tick starts from scratch.
func (s *WhitelistSync) Tick(ctx context.Context) (int, error) {
	if !s.running.CompareAndSwap(false, true) {
		return 0, ErrTickInProgress
	}
	defer s.running.Store(false)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	verified, err := s.agents.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list verified agents: %w", err)
	}

	entries, err := s.whitelist.Read(ctx)
	if errors.Is(err, core.ErrWhitelistCorrupt) {
		s.logger.Info("Whitelist file is corrupt, starting from an empty list", watermill.LogFields{"warning": err.Error()})
		entries = []core.WhitelistEntry{}
	} else if err != nil {
		return 0, err
	}

	listed := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		listed[core.NormalizeUsername(e.Name)] = struct{}{}
	}

	added := 0
	for _, agent := range verified {
		key := agent.Key()
		if key == "" {
			continue
		}
		if _, ok := listed[key]; ok {
			continue
		}
		listed[key] = struct{}{}

		entries = append(entries, core.WhitelistEntry{
			UUID: core.OfflineUUID(agent.Username).String(),
			Name: agent.Username,
		})
		added++

		s.logger.Info("Adding agent to whitelist", watermill.LogFields{
			"username": agent.Username,
			"agent_id": agent.AgentID,
			"method":   string(agent.Method),
		})
	}

	if added == 0 {
		return 0, nil
	}

	if err := s.whitelist.Write(ctx, entries); err != nil {
		return 0, err
	}

	if err := s.reloader.Reload(ctx); err != nil {
		// The file is already written; the server will see it on its next reload
		s.logger.Error("Failed to reload whitelist", err, nil)
		return added, nil
	}

	s.logger.Info("Whitelist updated and reloaded", watermill.LogFields{"added": added})
	return added, nil
}
