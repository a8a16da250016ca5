// Package eth holds the Ethereum signing primitives used to verify agent wallets.
package eth

import (
	"crypto/ecdsa"
	"errors"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// SignatureLength is the size of an [R || S || V] secp256k1 signature
const SignatureLength = crypto.SignatureLength

var ErrMalformedSignature = errors.New("malformed signature")

// RecoverPersonalSigner returns the address that signed message using the
// personal_sign scheme ("\x19Ethereum Signed Message:\n" + len + message).
// V may be encoded as 0/1 or 27/28.
func RecoverPersonalSigner(message string, signature []byte) (common.Address, error) {
	if len(signature) != SignatureLength {
		return common.Address{}, ErrMalformedSignature
	}

	sig := make([]byte, SignatureLength)
	copy(sig, signature)
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}
	if sig[crypto.RecoveryIDOffset] > 1 {
		return common.Address{}, ErrMalformedSignature
	}

	pub, err := crypto.SigToPub(accounts.TextHash([]byte(message)), sig)
	if err != nil {
		return common.Address{}, ErrMalformedSignature
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// VerifyPersonalSignature reports whether signature over message was produced
// by expected. Malformed signatures yield false.
func VerifyPersonalSignature(message string, signature []byte, expected common.Address) bool {
	recovered, err := RecoverPersonalSigner(message, signature)
	if err != nil {
		return false
	}
	// common.Address compares raw bytes, so hex casing never matters
	return recovered == expected
}

// SignPersonalMessage signs message with key the way wallets do for personal_sign
func SignPersonalMessage(key *ecdsa.PrivateKey, message string) ([]byte, error) {
	sig, err := crypto.Sign(accounts.TextHash([]byte(message)), key)
	if err != nil {
		return nil, err
	}
	sig[crypto.RecoveryIDOffset] += 27
	return sig, nil
}

// DecodeSignature parses a 0x-prefixed hex signature
func DecodeSignature(s string) ([]byte, error) {
	sig, err := hexutil.Decode(s)
	if err != nil {
		return nil, ErrMalformedSignature
	}
	if len(sig) != SignatureLength {
		return nil, ErrMalformedSignature
	}
	return sig, nil
}
