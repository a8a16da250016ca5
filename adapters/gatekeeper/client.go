// Package gatekeeper lists verified agents from a remote gatekeeper over HTTP,
// for synchronizers running outside the gatekeeper process.
package gatekeeper

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/clawcraft/gatekeeper/core"
	"github.com/clawcraft/gatekeeper/ports"
)

// AgentView is the JSON shape of one entry of GET /api/agents
type AgentView struct {
	Username   string      `json:"username"`
	AgentID    uint64      `json:"agentId"`
	ChainID    uint64      `json:"chainId"`
	Name       string      `json:"name,omitempty"`
	Wallet     string      `json:"wallet"`
	Method     core.Method `json:"method"`
	VerifiedAt time.Time   `json:"verifiedAt"`
}

// NewAgentView renders a binding for the API
func NewAgentView(a core.VerifiedAgent) AgentView {
	return AgentView{
		Username:   a.Username,
		AgentID:    a.AgentID,
		ChainID:    a.ChainID,
		Name:       a.Name(),
		Wallet:     a.Wallet.Hex(),
		Method:     a.Method,
		VerifiedAt: a.VerifiedAt.UTC(),
	}
}

// Client implements ports.AgentLister against a gatekeeper base URL
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client; timeout bounds each request
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// List fetches the fresh bindings known to the gatekeeper
func (c *Client) List(ctx context.Context) ([]core.VerifiedAgent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/agents", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch verified agents: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch verified agents: status %d", resp.StatusCode)
	}

	var views []AgentView
	if err := json.NewDecoder(resp.Body).Decode(&views); err != nil {
		return nil, fmt.Errorf("failed to decode verified agents: %w", err)
	}

	agents := make([]core.VerifiedAgent, 0, len(views))
	for _, v := range views {
		if v.Username == "" {
			continue
		}
		agents = append(agents, core.VerifiedAgent{
			Username:   v.Username,
			AgentID:    v.AgentID,
			ChainID:    v.ChainID,
			Wallet:     common.HexToAddress(v.Wallet),
			Method:     v.Method,
			VerifiedAt: v.VerifiedAt,
		})
	}
	return agents, nil
}

var _ ports.AgentLister = (*Client)(nil)
