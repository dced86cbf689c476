package types

import (
	"encoding/binary"
	"fmt"
	"unicode/utf8"

	"github.com/mezonai/cubix/digest"
	stackerrors "github.com/mezonai/cubix/errors"
)

const (
	TxTypeTransfer = "transfer"
	TxTypeAsset    = "asset"
)

// TransactionMeta carries the producer-supplied type tag and signature. The signature is opaque here.
type TransactionMeta struct {
	TxType    string `json:"tx_type"`
	Signature []byte `json:"signature,omitempty"`
}

type Transaction struct {
	From      []string        `json:"from"`
	To        []string        `json:"to"`
	Meta      TransactionMeta `json:"meta"`
	Timestamp uint64          `json:"timestamp"`
}

// Serialize returns the canonical bytes the transaction digest is computed over:
// every from entry, every to entry, tx type, signature, then the big-endian timestamp.
func (tx *Transaction) Serialize() []byte {
	size := len(tx.Meta.TxType) + len(tx.Meta.Signature) + 8
	for _, f := range tx.From {
		size += len(f)
	}
	for _, t := range tx.To {
		size += len(t)
	}

	buf := make([]byte, 0, size)
	for _, f := range tx.From {
		buf = append(buf, f...)
	}
	for _, t := range tx.To {
		buf = append(buf, t...)
	}
	buf = append(buf, tx.Meta.TxType...)
	buf = append(buf, tx.Meta.Signature...)
	buf = binary.BigEndian.AppendUint64(buf, tx.Timestamp)
	return buf
}

func (tx *Transaction) Hash() digest.Hash {
	return digest.Sum(tx.Serialize())
}

func (tx *Transaction) HashWith(hasher digest.Hasher) digest.Hash {
	return hasher.Sum(tx.Serialize())
}

// Validate rejects identifiers and tx types that are not valid UTF-8.
func (tx *Transaction) Validate() error {
	check := func(field string, values []string) error {
		for i, v := range values {
			if !utf8.ValidString(v) {
				return stackerrors.NewError(stackerrors.ErrCodeInvalidTransaction,
					fmt.Sprintf(stackerrors.ErrMsgNotUTF8, field, i))
			}
		}
		return nil
	}
	if err := check("from", tx.From); err != nil {
		return err
	}
	if err := check("to", tx.To); err != nil {
		return err
	}
	return check("tx_type", []string{tx.Meta.TxType})
}

// Clone returns a deep copy. An empty signature comes back nil.
func (tx *Transaction) Clone() Transaction {
	out := Transaction{
		Meta:      TransactionMeta{TxType: tx.Meta.TxType},
		Timestamp: tx.Timestamp,
	}
	if tx.From != nil {
		out.From = make([]string, len(tx.From))
		copy(out.From, tx.From)
	}
	if tx.To != nil {
		out.To = make([]string, len(tx.To))
		copy(out.To, tx.To)
	}
	if len(tx.Meta.Signature) > 0 {
		out.Meta.Signature = make([]byte, len(tx.Meta.Signature))
		copy(out.Meta.Signature, tx.Meta.Signature)
	}
	return out
}
