package tokenizer

import (
	"crypto/ecdsa"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/golang-jwt/jwt/v5"

	"github.com/clawcraft/gatekeeper/core"
	"github.com/clawcraft/gatekeeper/ports"
)

// AudienceReceipt scopes receipt tokens so no other ES256 token minted with
// the same key is accepted as a receipt
const AudienceReceipt = "gatekeeper:receipt"

// JWTTokenizer implements the Tokenizer interface using ES256 JWTs
type JWTTokenizer struct {
	signKey *ecdsa.PrivateKey
}

// NewJWTTokenizer creates a new JWT tokenizer
func NewJWTTokenizer(signKey *ecdsa.PrivateKey) ports.Tokenizer {
	return &JWTTokenizer{signKey: signKey}
}

// ReceiptToToken signs a receipt
func (j *JWTTokenizer) ReceiptToToken(receipt *core.Receipt) (string, error) {
	claims := ReceiptClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   receipt.Username,
			ID:        receipt.ID,
			ExpiresAt: jwt.NewNumericDate(receipt.ExpiresAt),
			IssuedAt:  jwt.NewNumericDate(receipt.IssuedAt),
			Audience:  jwt.ClaimStrings{AudienceReceipt},
		},
		AgentID: receipt.AgentID,
		ChainID: receipt.ChainID,
		Wallet:  receipt.Wallet.Hex(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodES256, claims).SignedString(j.signKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign receipt: %w", err)
	}
	return signed, nil
}

// TokenToReceipt verifies a receipt token and returns its content
func (j *JWTTokenizer) TokenToReceipt(tokenStr string) (*core.Receipt, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &ReceiptClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodECDSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return &j.signKey.PublicKey, nil
	}, jwt.WithAudience(AudienceReceipt), jwt.WithExpirationRequired())
	if errors.Is(err, jwt.ErrTokenExpired) {
		return nil, core.ErrTokenExpired
	}
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, core.ErrInvalidToken)
	}
	if !token.Valid {
		return nil, core.ErrInvalidToken
	}

	claims, ok := token.Claims.(*ReceiptClaims)
	if !ok {
		return nil, core.ErrInvalidToken
	}

	receipt := &core.Receipt{
		ID:        claims.ID,
		Username:  claims.Subject,
		AgentID:   claims.AgentID,
		ChainID:   claims.ChainID,
		Wallet:    common.HexToAddress(claims.Wallet),
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		receipt.IssuedAt = claims.IssuedAt.Time
	}
	return receipt, nil
}
