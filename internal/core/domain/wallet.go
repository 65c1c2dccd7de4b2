package domain

import (
	"crypto/ed25519"
	"time"
)

// Wallet maps a stable wallet identifier to its ed25519 public key.
// The identifier never changes for the lifetime of the system.
type Wallet struct {
	ID        string            `json:"id"`
	PublicKey ed25519.PublicKey `json:"public_key"`
	CreatedAt time.Time         `json:"created_at"`
}
