package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ticketchain/internal/core/domain"
	"ticketchain/internal/core/ports"
	"ticketchain/pkg/apperror"

	"github.com/rs/zerolog"
)

// LedgerService owns the hash-chained block store. It is the single
// source of truth and the only writer: every mutation is a new block
// appended behind one mutex, never an in-place change to history.
type LedgerService struct {
	mu     sync.RWMutex
	chain  []domain.Block
	halted bool
	store  ports.BlockStore // nil = in-memory only
	log    zerolog.Logger
}

// NewLedgerService builds a ledger. With a block store, the persisted
// chain is reloaded and its integrity verified before any write is
// accepted; an empty store gets a fresh genesis block. A nil store
// yields a memory-only ledger (tests, tooling).
func NewLedgerService(ctx context.Context, store ports.BlockStore, log zerolog.Logger) (*LedgerService, error) {
	s := &LedgerService{store: store, log: log}

	var loaded []domain.Block
	if store != nil {
		var err error
		loaded, err = store.LoadAll(ctx)
		if err != nil {
			return nil, apperror.ErrDatabaseError(fmt.Errorf("loading blocks: %w", err))
		}
	}

	if len(loaded) == 0 {
		genesis := domain.Block{
			Index:        0,
			Timestamp:    time.Now().UTC(),
			PreviousHash: domain.GenesisPreviousHash,
		}
		if err := genesis.Seal(); err != nil {
			return nil, apperror.InternalError(err)
		}
		if store != nil {
			if err := store.Append(ctx, &genesis); err != nil {
				return nil, apperror.ErrDatabaseError(fmt.Errorf("persisting genesis: %w", err))
			}
		}
		s.chain = []domain.Block{genesis}
		return s, nil
	}

	s.chain = loaded
	if _, err := s.VerifyIntegrity(); err != nil {
		return nil, err
	}
	log.Info().Uint64("length", uint64(len(loaded))).Msg("ledger reloaded from block store")
	return s, nil
}

// Tip returns the current chain length and the last block's hash.
func (s *LedgerService) Tip() (uint64, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	last := s.chain[len(s.chain)-1]
	return uint64(len(s.chain)), last.Hash
}

// Append seals a new block over the given transactions and links it to
// the tip. claimedPrevHash is the tip hash the caller observed; if it no
// longer matches, another append won the race and ChainLinkMismatch is
// returned so the caller can refresh and retry.
func (s *LedgerService) Append(ctx context.Context, claimedPrevHash string, txns []domain.Transaction) (*domain.Block, error) {
	if len(txns) == 0 {
		return nil, apperror.Validation("a block requires at least one transaction")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.halted {
		return nil, apperror.ErrLedgerHalted()
	}

	tip := s.chain[len(s.chain)-1]
	if claimedPrevHash != tip.Hash {
		return nil, apperror.ErrChainLinkMismatch()
	}

	block := domain.Block{
		Index:        tip.Index + 1,
		Timestamp:    time.Now().UTC(),
		PreviousHash: tip.Hash,
		Transactions: txns,
	}
	if err := block.Seal(); err != nil {
		return nil, apperror.InternalError(err)
	}

	// Persist before the in-memory commit so the store never lags the
	// chain. Appends are already serialized by the commit section, so
	// holding the lock across the write does not add contention.
	if s.store != nil {
		if err := s.store.Append(ctx, &block); err != nil {
			return nil, apperror.ErrDatabaseError(fmt.Errorf("persisting block %d: %w", block.Index, err))
		}
	}

	s.chain = append(s.chain, block)

	s.log.Info().
		Uint64("index", block.Index).
		Str("hash", block.Hash).
		Int("txns", len(txns)).
		Msg("block appended")

	return &block, nil
}

// VerifyIntegrity recomputes every block hash from genesis and checks
// each chain link. On the first mismatch it halts all further writes and
// returns the violating index; a clean pass lifts any halt.
func (s *LedgerService) VerifyIntegrity() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.chain {
		b := &s.chain[i]

		if i == 0 {
			if b.PreviousHash != domain.GenesisPreviousHash {
				s.halted = true
				return 0, apperror.ErrIntegrityViolation(0)
			}
		} else if b.PreviousHash != s.chain[i-1].Hash {
			s.halted = true
			return b.Index, apperror.ErrIntegrityViolation(b.Index)
		}

		recomputed, err := b.ComputeHash()
		if err != nil {
			return b.Index, apperror.InternalError(err)
		}
		if recomputed != b.Hash {
			s.halted = true
			return b.Index, apperror.ErrIntegrityViolation(b.Index)
		}
	}

	s.halted = false
	return 0, nil
}

// Halted reports whether writes are blocked by a detected violation.
func (s *LedgerService) Halted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.halted
}

// Snapshot returns a copy of the whole chain for replay. Transactions
// are shared read-only; callers must not mutate them.
func (s *LedgerService) Snapshot() []domain.Block {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Block, len(s.chain))
	copy(out, s.chain)
	return out
}
