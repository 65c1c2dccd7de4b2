package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"ticketchain/internal/core/domain"
	"ticketchain/internal/core/ports"
	"ticketchain/pkg/apperror"

	"github.com/google/uuid"
)

// AuthServiceImpl implements ports.AuthService.
type AuthServiceImpl struct {
	organizerRepo ports.OrganizerRepository
	registry      ports.RegistryService
	hashSvc       ports.HashService
	tokenSvc      ports.TokenService
}

// NewAuthService creates a new AuthServiceImpl.
func NewAuthService(
	organizerRepo ports.OrganizerRepository,
	registry ports.RegistryService,
	hashSvc ports.HashService,
	tokenSvc ports.TokenService,
) *AuthServiceImpl {
	return &AuthServiceImpl{
		organizerRepo: organizerRepo,
		registry:      registry,
		hashSvc:       hashSvc,
		tokenSvc:      tokenSvc,
	}
}

// Register creates a new organizer account bound to a registered wallet.
// The webhook secret is generated here and returned on the organizer;
// callers decide whether to expose it.
func (s *AuthServiceImpl) Register(ctx context.Context, req ports.RegisterOrganizerRequest) (*domain.Organizer, error) {
	if req.Username == "" || req.Password == "" {
		return nil, apperror.Validation("username and password are required")
	}

	existing, err := s.organizerRepo.GetByUsername(ctx, req.Username)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("check username: %w", err))
	}
	if existing != nil {
		return nil, apperror.ErrUsernameExists()
	}

	// The organizer wallet must already be registered; tickets it
	// creates events for are anchored to this identity.
	wallet, err := s.registry.Lookup(ctx, req.WalletID)
	if err != nil {
		return nil, err
	}
	if wallet == nil {
		return nil, apperror.ErrUnknownWallet()
	}

	passwordHash, err := s.hashSvc.Hash(req.Password)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("hash password: %w", err))
	}

	webhookSecret, err := generateRandomHex(32) // 64 hex chars
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("generate webhook secret: %w", err))
	}

	organizer := &domain.Organizer{
		ID:            uuid.New(),
		Username:      req.Username,
		PasswordHash:  passwordHash,
		DisplayName:   req.DisplayName,
		WalletID:      req.WalletID,
		WebhookURL:    req.WebhookURL,
		WebhookSecret: webhookSecret,
		CreatedAt:     time.Now().UTC(),
	}

	if err := s.organizerRepo.Create(ctx, organizer); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create organizer: %w", err))
	}

	return organizer, nil
}

// Login validates credentials and returns a JWT token.
func (s *AuthServiceImpl) Login(ctx context.Context, username, password string) (string, time.Time, error) {
	organizer, err := s.organizerRepo.GetByUsername(ctx, username)
	if err != nil {
		return "", time.Time{}, apperror.InternalError(fmt.Errorf("find organizer: %w", err))
	}
	if organizer == nil {
		return "", time.Time{}, apperror.ErrInvalidCredentials()
	}

	valid, err := s.hashSvc.Verify(password, organizer.PasswordHash)
	if err != nil {
		return "", time.Time{}, apperror.InternalError(fmt.Errorf("verify password: %w", err))
	}
	if !valid {
		return "", time.Time{}, apperror.ErrInvalidCredentials()
	}

	token, expiry, err := s.tokenSvc.Generate(organizer.ID, organizer.Username)
	if err != nil {
		return "", time.Time{}, apperror.InternalError(fmt.Errorf("generate token: %w", err))
	}

	return token, expiry, nil
}

// generateRandomHex generates a random hex string of n bytes.
func generateRandomHex(n int) (string, error) {
	bytes := make([]byte, n)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
