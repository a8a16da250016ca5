package tokenizer

import "github.com/golang-jwt/jwt/v5"

// ReceiptClaims combines standard claims with the verified binding.
// Subject carries the username.
type ReceiptClaims struct {
	jwt.RegisteredClaims
	AgentID uint64 `json:"agentId"`
	ChainID uint64 `json:"chainId"`
	Wallet  string `json:"wallet"`
}
