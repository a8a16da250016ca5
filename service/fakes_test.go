package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/clawcraft/gatekeeper/core"
)

type fakeAgent struct {
	owner  common.Address
	wallet common.Address
	uri    string
}

type fakeRegistry struct {
	mu      sync.Mutex
	chainID uint64
	agents  map[uint64]fakeAgent
	err     error
}

func newFakeRegistry(chainID uint64) *fakeRegistry {
	return &fakeRegistry{chainID: chainID, agents: map[uint64]fakeAgent{}}
}

func (r *fakeRegistry) set(id uint64, a fakeAgent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents[id] = a
}

func (r *fakeRegistry) lookup(chainID, agentID uint64) (fakeAgent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return fakeAgent{}, r.err
	}
	if chainID != r.chainID {
		return fakeAgent{}, fmt.Errorf("chain %d: %w", chainID, core.ErrNoRegistryConfigured)
	}
	a, ok := r.agents[agentID]
	if !ok {
		return fakeAgent{}, fmt.Errorf("agent %d: %w", agentID, core.ErrNotRegistered)
	}
	return a, nil
}

func (r *fakeRegistry) OwnerOf(ctx context.Context, chainID, agentID uint64) (common.Address, error) {
	a, err := r.lookup(chainID, agentID)
	return a.owner, err
}

func (r *fakeRegistry) TokenURI(ctx context.Context, chainID, agentID uint64) (string, error) {
	a, err := r.lookup(chainID, agentID)
	return a.uri, err
}

func (r *fakeRegistry) AgentWallet(ctx context.Context, chainID, agentID uint64) (common.Address, error) {
	a, err := r.lookup(chainID, agentID)
	return a.wallet, err
}

func (r *fakeRegistry) Chains() []uint64 {
	return []uint64{r.chainID}
}

type fakeFetcher struct {
	docs map[string]string
}

func (f fakeFetcher) Fetch(ctx context.Context, uri string) ([]byte, error) {
	doc, ok := f.docs[uri]
	if !ok {
		return nil, errors.New("404 not found")
	}
	return []byte(doc), nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []core.VerifiedEvent
	err    error
}

func (p *recordingPublisher) PublishVerified(ctx context.Context, event core.VerifiedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) published() []core.VerifiedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]core.VerifiedEvent(nil), p.events...)
}

type memoryWhitelist struct {
	mu      sync.Mutex
	entries []core.WhitelistEntry
	writes  int
	readErr error
	wrErr   error
}

func (w *memoryWhitelist) Read(ctx context.Context) ([]core.WhitelistEntry, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.readErr != nil {
		return []core.WhitelistEntry{}, w.readErr
	}
	return append([]core.WhitelistEntry{}, w.entries...), nil
}

func (w *memoryWhitelist) Write(ctx context.Context, entries []core.WhitelistEntry) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.wrErr != nil {
		return w.wrErr
	}
	w.writes++
	w.entries = append([]core.WhitelistEntry{}, entries...)
	return nil
}

type countingReloader struct {
	mu    sync.Mutex
	count int
	err   error
}

func (r *countingReloader) Reload(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.count++
	return r.err
}

func (r *countingReloader) reloads() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

type staticLister struct {
	agents []core.VerifiedAgent
	err    error
	block  chan struct{}
}

func (l *staticLister) List(ctx context.Context) ([]core.VerifiedAgent, error) {
	if l.block != nil {
		<-l.block
	}
	return l.agents, l.err
}
