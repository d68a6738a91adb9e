package types

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/crypto"
)

// TxType defines the purpose of a transaction.
type TxType byte

const (
	TxTypeCreateContent        TxType = 0x01
	TxTypeBuyContent           TxType = 0x02
	TxTypeRefundContent        TxType = 0x03
	TxTypeKeepContent          TxType = 0x04
	TxTypeKeepContentFor       TxType = 0x05 // Third-party settlement after the refund window
	TxTypeDeleteContent        TxType = 0x06
	TxTypeChangeNSFW           TxType = 0x07
	TxTypeWithdrawUserFees     TxType = 0x08
	TxTypeWithdrawProtocolFees TxType = 0x09
	TxTypeCreateContentType    TxType = 0x10
	TxTypeUpdateContentType    TxType = 0x11
	TxTypePause                TxType = 0x12
	TxTypeUnpause              TxType = 0x13
	TxTypeSetMinPrice          TxType = 0x14
	TxTypeSetRefundTimeLimit   TxType = 0x15
	TxTypeTransferAdmin        TxType = 0x16
)

var txTypeNames = map[TxType]string{
	TxTypeCreateContent:        "createContent",
	TxTypeBuyContent:           "buyContent",
	TxTypeRefundContent:        "refundContent",
	TxTypeKeepContent:          "keepContent",
	TxTypeKeepContentFor:       "keepContentFor",
	TxTypeDeleteContent:        "deleteContent",
	TxTypeChangeNSFW:           "changeNsfwStatus",
	TxTypeWithdrawUserFees:     "withdrawUserFees",
	TxTypeWithdrawProtocolFees: "withdrawProtocolFees",
	TxTypeCreateContentType:    "createContentType",
	TxTypeUpdateContentType:    "updateContentType",
	TxTypePause:                "pause",
	TxTypeUnpause:              "unpause",
	TxTypeSetMinPrice:          "setMinPrice",
	TxTypeSetRefundTimeLimit:   "setRefundTimeLimit",
	TxTypeTransferAdmin:        "transferAdmin",
}

// String returns the method-style name of the transaction type.
func (t TxType) String() string {
	if name, ok := txTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("unknown(0x%02x)", byte(t))
}

// Valid reports whether the type is one the node can apply.
func (t TxType) Valid() bool {
	_, ok := txTypeNames[t]
	return ok
}

var errUnsigned = errors.New("transaction is not signed")

// Transaction is the signed envelope for every state-changing market call.
// Value is the amount of native currency bound to the call; Data carries the
// JSON-encoded call payload.
type Transaction struct {
	Type  TxType   `json:"type"`
	Nonce uint64   `json:"nonce"`
	Value *big.Int `json:"value"`
	Data  []byte   `json:"data"`

	// Signatures
	R *big.Int `json:"r"`
	S *big.Int `json:"s"`
	V *big.Int `json:"v"`

	from []byte
}

// Hash covers every field except the signature.
func (tx *Transaction) Hash() ([]byte, error) {
	txData := struct {
		Type  TxType
		Nonce uint64
		Value *big.Int
		Data  []byte
	}{tx.Type, tx.Nonce, tx.Value, tx.Data}

	b, err := json.Marshal(txData)
	if err != nil {
		return nil, err
	}
	hash := sha256.Sum256(b)
	return hash[:], nil
}

func (tx *Transaction) Sign(privKey *ecdsa.PrivateKey) error {
	hash, err := tx.Hash()
	if err != nil {
		return err
	}
	sig, err := crypto.Sign(hash, privKey)
	if err != nil {
		return err
	}
	tx.R = new(big.Int).SetBytes(sig[:32])
	tx.S = new(big.Int).SetBytes(sig[32:64])
	tx.V = new(big.Int).SetBytes([]byte{sig[64] + 27})
	tx.from = nil
	return nil
}

// From recovers the signer address. The result is cached.
func (tx *Transaction) From() ([]byte, error) {
	if tx.from != nil {
		return tx.from, nil
	}
	if tx.R == nil || tx.S == nil || tx.V == nil {
		return nil, errUnsigned
	}
	if len(tx.R.Bytes()) > 32 || len(tx.S.Bytes()) > 32 || tx.V.Uint64() < 27 {
		return nil, fmt.Errorf("malformed signature")
	}
	hash, err := tx.Hash()
	if err != nil {
		return nil, err
	}
	sig := make([]byte, 65)
	copy(sig[32-len(tx.R.Bytes()):32], tx.R.Bytes())
	copy(sig[64-len(tx.S.Bytes()):64], tx.S.Bytes())
	sig[64] = byte(tx.V.Uint64() - 27)
	pubKey, err := crypto.SigToPub(hash, sig)
	if err != nil {
		return nil, err
	}
	tx.from = crypto.PubkeyToAddress(*pubKey).Bytes()
	return tx.from, nil
}

// ValueOrZero returns the bound value, treating nil as zero.
func (tx *Transaction) ValueOrZero() *big.Int {
	if tx == nil || tx.Value == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(tx.Value)
}
