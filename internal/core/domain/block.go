package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"ticketchain/pkg/codec"
)

// GenesisPreviousHash is the well-known previous-hash sentinel of the
// genesis block.
const GenesisPreviousHash = "0000000000000000000000000000000000000000000000000000000000000000"

// Block is one committed batch of transactions plus its chain link.
// Blocks are immutable once appended; any "update" to history is a new
// block, never an in-place mutation.
type Block struct {
	Index        uint64        `json:"index"`
	Timestamp    time.Time     `json:"timestamp"`
	PreviousHash string        `json:"previous_hash"`
	Transactions []Transaction `json:"transactions"`
	Hash         string        `json:"hash"`
}

// blockDigest is the canonical hashing view of a block: everything that
// is covered by the hash, in a fixed shape. The stored Hash itself is
// excluded.
type blockDigest struct {
	Index        uint64        `cbor:"index"`
	Timestamp    time.Time     `cbor:"timestamp"`
	PreviousHash string        `cbor:"previous_hash"`
	Transactions []Transaction `cbor:"transactions"`
}

// ComputeHash returns the hex SHA-256 of the block's canonical
// serialization. Two logically identical blocks always produce the same
// hash; a single-byte change to any committed transaction changes it.
func (b *Block) ComputeHash() (string, error) {
	data, err := codec.Marshal(blockDigest{
		Index:        b.Index,
		Timestamp:    b.Timestamp,
		PreviousHash: b.PreviousHash,
		Transactions: b.Transactions,
	})
	if err != nil {
		return "", fmt.Errorf("serializing block %d: %w", b.Index, err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Seal computes and stores the block's own hash.
func (b *Block) Seal() error {
	h, err := b.ComputeHash()
	if err != nil {
		return err
	}
	b.Hash = h
	return nil
}
