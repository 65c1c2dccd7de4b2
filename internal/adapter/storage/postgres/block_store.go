package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"ticketchain/internal/core/domain"
)

// BlockStore implements ports.BlockStore over a blocks table. The hash,
// previous_hash and block_index columns exist for indexing and ad-hoc
// inspection; the sealed block itself round-trips through the payload
// column so reloaded blocks rehash byte-for-byte.
type BlockStore struct {
	pool Pool
}

// NewBlockStore creates a new BlockStore.
func NewBlockStore(pool Pool) *BlockStore {
	return &BlockStore{pool: pool}
}

// Append persists a sealed block. The primary key on block_index makes
// a duplicate append fail rather than fork history.
func (s *BlockStore) Append(ctx context.Context, block *domain.Block) error {
	payload, err := json.Marshal(block)
	if err != nil {
		return fmt.Errorf("marshal block %d: %w", block.Index, err)
	}

	query := `INSERT INTO blocks (block_index, hash, previous_hash, payload)
		VALUES ($1, $2, $3, $4)`

	_, err = s.pool.Exec(ctx, query, block.Index, block.Hash, block.PreviousHash, payload)
	if err != nil {
		return fmt.Errorf("insert block %d: %w", block.Index, err)
	}
	return nil
}

// LoadAll returns every persisted block in chain order.
func (s *BlockStore) LoadAll(ctx context.Context) ([]domain.Block, error) {
	query := `SELECT payload FROM blocks ORDER BY block_index ASC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("select blocks: %w", err)
	}
	defer rows.Close()

	var blocks []domain.Block
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan block payload: %w", err)
		}
		var b domain.Block
		if err := json.Unmarshal(payload, &b); err != nil {
			return nil, fmt.Errorf("unmarshal block payload: %w", err)
		}
		blocks = append(blocks, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate blocks: %w", err)
	}
	return blocks, nil
}
