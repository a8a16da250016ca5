package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/clawcraft/gatekeeper/adapters/gatekeeper"
	"github.com/clawcraft/gatekeeper/core"
	"github.com/clawcraft/gatekeeper/service"
)

// GatekeeperHandlers contains HTTP handlers for the verification endpoints
type GatekeeperHandlers struct {
	gk *service.Gatekeeper
}

// NewGatekeeperHandlers creates new gatekeeper handlers
func NewGatekeeperHandlers(gk *service.Gatekeeper) *GatekeeperHandlers {
	return &GatekeeperHandlers{gk: gk}
}

// Status reports whether a username is currently verified
func (h *GatekeeperHandlers) Status(c *gin.Context) {
	username := c.Param("username")

	agent, ok, err := h.gk.Status(c.Request.Context(), username)
	if err != nil {
		abortWithError(c, err)
		return
	}
	if !ok {
		c.JSON(http.StatusOK, gin.H{"verified": false})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"verified":   true,
		"username":   agent.Username,
		"agentId":    agent.AgentID,
		"chainId":    agent.ChainID,
		"method":     agent.Method,
		"verifiedAt": agent.VerifiedAt.UTC(),
		"wallet":     agent.Wallet.Hex(),
		"name":       agent.Name(),
	})
}

// Start issues a challenge for an on-chain agent
func (h *GatekeeperHandlers) Start(c *gin.Context) {
	var req struct {
		MinecraftUsername string `json:"minecraftUsername"`
		AgentID           uint64 `json:"agentId"`
		ChainID           uint64 `json:"chainId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, fmt.Errorf("%v: %w", err, core.ErrInvalidRequest))
		return
	}

	result, err := h.gk.Start(c.Request.Context(), req.MinecraftUsername, req.AgentID, req.ChainID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"challenge":    result.Challenge.Message,
		"nonce":        result.Challenge.Nonce,
		"walletToSign": result.WalletToSign.Hex(),
		"expiresAt":    result.Challenge.ExpiresAt().UTC(),
	})
}

// Complete checks the signed challenge and records the binding
func (h *GatekeeperHandlers) Complete(c *gin.Context) {
	var req struct {
		Nonce     string `json:"nonce"`
		Signature string `json:"signature"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, fmt.Errorf("%v: %w", err, core.ErrInvalidRequest))
		return
	}

	result, err := h.gk.Complete(c.Request.Context(), req.Nonce, req.Signature)
	if err != nil {
		abortWithError(c, err)
		return
	}

	resp := gin.H{
		"success": true,
		"message": fmt.Sprintf("Agent %s verified successfully", result.Agent.Username),
	}
	if result.Receipt != "" {
		resp["receipt"] = result.Receipt
	}
	c.JSON(http.StatusOK, resp)
}

// QuickJoin whitelists a username without verification in test mode
func (h *GatekeeperHandlers) QuickJoin(c *gin.Context) {
	var req struct {
		Username string `json:"username"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, fmt.Errorf("%v: %w", err, core.ErrInvalidRequest))
		return
	}

	agent, err := h.gk.QuickJoin(c.Request.Context(), req.Username)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": fmt.Sprintf("%s whitelisted (test mode)", agent.Username),
	})
}

// AdminWhitelist writes a binding on behalf of an operator
func (h *GatekeeperHandlers) AdminWhitelist(c *gin.Context) {
	var req struct {
		Username string `json:"username"`
		AgentID  uint64 `json:"agentId"`
		ChainID  uint64 `json:"chainId"`
	}
	// A bad key is reported as 401 even when the body is malformed
	adminKey := c.GetString(adminKeyContextKey)
	bindErr := c.ShouldBindJSON(&req)

	agent, err := h.gk.AdminWhitelist(c.Request.Context(), adminKey, req.Username, req.AgentID, req.ChainID)
	if err == nil && bindErr != nil {
		err = fmt.Errorf("%v: %w", bindErr, core.ErrInvalidRequest)
	}
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": fmt.Sprintf("%s whitelisted", agent.Username),
	})
}

// Agents lists every fresh binding
func (h *GatekeeperHandlers) Agents(c *gin.Context) {
	agents, err := h.gk.Agents(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}

	views := make([]gatekeeper.AgentView, 0, len(agents))
	for _, a := range agents {
		views = append(views, gatekeeper.NewAgentView(a))
	}
	c.JSON(http.StatusOK, views)
}

// Stats summarizes gatekeeper state
func (h *GatekeeperHandlers) Stats(c *gin.Context) {
	stats, err := h.gk.Stats(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Receipt decodes a receipt token returned by Complete
func (h *GatekeeperHandlers) Receipt(c *gin.Context) {
	receipt, err := h.gk.VerifyReceipt(c.Param("token"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":        receipt.ID,
		"username":  receipt.Username,
		"agentId":   receipt.AgentID,
		"chainId":   receipt.ChainID,
		"wallet":    receipt.Wallet.Hex(),
		"issuedAt":  receipt.IssuedAt.UTC().Format(time.RFC3339),
		"expiresAt": receipt.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// Health reports liveness and the number of fresh bindings
func (h *GatekeeperHandlers) Health(c *gin.Context) {
	agents, err := h.gk.Agents(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "verifiedAgents": len(agents)})
}
