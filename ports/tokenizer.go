package ports

import "github.com/clawcraft/gatekeeper/core"

// Tokenizer converts verification receipts to and from signed tokens
type Tokenizer interface {
	ReceiptToToken(receipt *core.Receipt) (string, error)
	TokenToReceipt(token string) (*core.Receipt, error)
}
