// Package codec defines the wire format of the compressed transaction blobs
// committed by rollup batches.
//
// The format is fixed-width: a blob is the concatenation of 16-byte slots,
// one per transfer, with no header and no trailing bytes. Each slot is
// big-endian packed:
//
//	[0:4]   sender account id   (uint32)
//	[4:8]   receiver account id (uint32)
//	[8:16]  amount              (uint64)
//
// Dispute paths address individual slots by index; the slot bytes themselves
// are the unit that gets leaf-hashed into the transaction root and mapped to
// a BLS message.
package codec

import (
	"encoding/binary"
	"errors"
)

// TxLength is the wire size of one transfer slot.
const TxLength = 16

var (
	ErrEmptyBlob     = errors.New("codec: blob contains no transactions")
	ErrTrailingBytes = errors.New("codec: blob has trailing bytes")
	ErrIndexRange    = errors.New("codec: transaction index out of range")
)

// Tx is one decoded transfer.
type Tx struct {
	Sender   uint32
	Receiver uint32
	Amount   uint64
}

// Encode packs the transfer into its 16-byte slot.
func (tx Tx) Encode() []byte {
	b := make([]byte, TxLength)
	binary.BigEndian.PutUint32(b[0:4], tx.Sender)
	binary.BigEndian.PutUint32(b[4:8], tx.Receiver)
	binary.BigEndian.PutUint64(b[8:16], tx.Amount)
	return b
}

// EncodeBatch concatenates the transfers into a blob.
func EncodeBatch(txs []Tx) []byte {
	blob := make([]byte, 0, len(txs)*TxLength)
	for _, tx := range txs {
		blob = append(blob, tx.Encode()...)
	}
	return blob
}

// Count returns the number of whole transaction slots in the blob.
func Count(blob []byte) int {
	return len(blob) / TxLength
}

// HasTrailingBytes reports whether the blob length is not a whole number of
// slots.
func HasTrailingBytes(blob []byte) bool {
	return len(blob)%TxLength != 0
}

// Validate rejects empty and misaligned blobs.
func Validate(blob []byte) error {
	if HasTrailingBytes(blob) {
		return ErrTrailingBytes
	}
	if Count(blob) == 0 {
		return ErrEmptyBlob
	}
	return nil
}

// SenderOf returns the sender account id of transaction i.
func SenderOf(blob []byte, i int) (uint32, error) {
	slot, err := MessageOf(blob, i)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(slot[0:4]), nil
}

// MessageOf returns a copy of the raw slot bytes of transaction i.
func MessageOf(blob []byte, i int) ([]byte, error) {
	if i < 0 || i >= Count(blob) {
		return nil, ErrIndexRange
	}
	slot := make([]byte, TxLength)
	copy(slot, blob[i*TxLength:(i+1)*TxLength])
	return slot, nil
}

// DecodeTx decodes transaction i of the blob.
func DecodeTx(blob []byte, i int) (Tx, error) {
	slot, err := MessageOf(blob, i)
	if err != nil {
		return Tx{}, err
	}
	return Tx{
		Sender:   binary.BigEndian.Uint32(slot[0:4]),
		Receiver: binary.BigEndian.Uint32(slot[4:8]),
		Amount:   binary.BigEndian.Uint64(slot[8:16]),
	}, nil
}

// DecodeBatch decodes every transaction in the blob.
func DecodeBatch(blob []byte) ([]Tx, error) {
	if err := Validate(blob); err != nil {
		return nil, err
	}
	txs := make([]Tx, Count(blob))
	for i := range txs {
		tx, err := DecodeTx(blob, i)
		if err != nil {
			return nil, err
		}
		txs[i] = tx
	}
	return txs, nil
}

// Slots splits a valid blob into its per-transaction slot byte strings,
// the leaves from which the transaction root is computed.
func Slots(blob []byte) ([][]byte, error) {
	if err := Validate(blob); err != nil {
		return nil, err
	}
	n := Count(blob)
	slots := make([][]byte, n)
	for i := 0; i < n; i++ {
		slots[i], _ = MessageOf(blob, i)
	}
	return slots, nil
}
