package integration

import (
	"context"
	"fmt"
	"sync"

	"ticketchain/internal/core/domain"

	"github.com/google/uuid"
)

// --- In-Memory Wallet Repo ---

type inMemoryWalletRepo struct {
	mu      sync.RWMutex
	wallets map[string]*domain.Wallet
}

func newInMemoryWalletRepo() *inMemoryWalletRepo {
	return &inMemoryWalletRepo{wallets: make(map[string]*domain.Wallet)}
}

func (r *inMemoryWalletRepo) Create(ctx context.Context, w *domain.Wallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.wallets[w.ID]; ok {
		return fmt.Errorf("wallet already exists")
	}
	cp := *w
	r.wallets[w.ID] = &cp
	return nil
}

func (r *inMemoryWalletRepo) GetByID(ctx context.Context, id string) (*domain.Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.wallets[id]
	if !ok {
		return nil, nil
	}
	cp := *w
	return &cp, nil
}

// --- In-Memory Organizer Repo ---

type inMemoryOrganizerRepo struct {
	mu         sync.RWMutex
	organizers map[uuid.UUID]*domain.Organizer
}

func newInMemoryOrganizerRepo() *inMemoryOrganizerRepo {
	return &inMemoryOrganizerRepo{organizers: make(map[uuid.UUID]*domain.Organizer)}
}

func (r *inMemoryOrganizerRepo) Create(ctx context.Context, o *domain.Organizer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.organizers {
		if existing.Username == o.Username {
			return fmt.Errorf("username already exists")
		}
	}
	cp := *o
	r.organizers[o.ID] = &cp
	return nil
}

func (r *inMemoryOrganizerRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Organizer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.organizers[id]
	if !ok {
		return nil, nil
	}
	cp := *o
	return &cp, nil
}

func (r *inMemoryOrganizerRepo) GetByUsername(ctx context.Context, username string) (*domain.Organizer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, o := range r.organizers {
		if o.Username == username {
			cp := *o
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *inMemoryOrganizerRepo) GetByWallet(ctx context.Context, walletID string) (*domain.Organizer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, o := range r.organizers {
		if o.WalletID == walletID {
			cp := *o
			return &cp, nil
		}
	}
	return nil, nil
}

// --- In-Memory Block Store ---

type inMemoryBlockStore struct {
	mu     sync.Mutex
	blocks []domain.Block
}

func newInMemoryBlockStore() *inMemoryBlockStore {
	return &inMemoryBlockStore{}
}

func (s *inMemoryBlockStore) Append(ctx context.Context, block *domain.Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if uint64(len(s.blocks)) != block.Index {
		return fmt.Errorf("block index %d does not extend store of length %d", block.Index, len(s.blocks))
	}
	s.blocks = append(s.blocks, *block)
	return nil
}

func (s *inMemoryBlockStore) LoadAll(ctx context.Context) ([]domain.Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Block, len(s.blocks))
	copy(out, s.blocks)
	return out, nil
}
