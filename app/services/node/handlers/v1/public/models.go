package public

import webv1 "github.com/qcbit/powchain/business/web/v1"

// submittedTransaction is the wallet-facing JSON shape accepted by
// POST /v1/tx/submit: a transaction plus the signature and public key
// that authorize it, mirroring database.SignedTransaction's fields.
type submittedTransaction struct {
	Receiver     string `json:"receiver" validate:"required"`
	Value        uint32 `json:"value" validate:"required,gt=0"`
	AccountNonce uint32 `json:"account_nonce" validate:"required,gt=0"`
	Signature    []byte `json:"signature" validate:"required,len=64"`
	PublicKey    []byte `json:"public_key" validate:"required,len=32"`
}

// Validate runs struct-tag validation before the handler does any
// cryptographic or ledger work, so malformed requests fail fast with
// a readable message.
func (s submittedTransaction) Validate() error {
	return webv1.Check(s)
}

// accountBalance is the JSON row returned by the blockchain state
// endpoint.
type accountBalance struct {
	Address string `json:"address"`
	Nonce   uint32 `json:"nonce"`
	Balance uint32 `json:"balance"`
}

type statusResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
