package apperror

import (
	"fmt"
	"net/http"
	"strings"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string   `json:"error_code"`
	Message    string   `json:"message"`
	Reasons    []string `json:"reasons,omitempty"` // Fraud reason tags, when applicable
	HTTPStatus int      `json:"-"`
	Err        error    `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Wallet & Signatures (WAL) ----

func ErrDuplicateWallet() *AppError {
	return New("WAL_001", "Wallet identifier already registered", http.StatusConflict)
}

func ErrUnknownWallet() *AppError {
	return New("WAL_002", "Unknown wallet identifier", http.StatusNotFound)
}

func ErrInvalidSignature() *AppError {
	return New("WAL_003", "Invalid wallet signature", http.StatusUnauthorized)
}

func ErrNonceUsed() *AppError {
	return New("WAL_004", "Nonce has already been used", http.StatusForbidden)
}

func ErrInvalidPublicKey() *AppError {
	return New("WAL_005", "Public key is not a valid ed25519 key", http.StatusBadRequest)
}

// ---- Ticketing Business Rules (TKT) ----

func ErrDuplicateEvent() *AppError {
	return New("TKT_001", "Event identifier already exists", http.StatusConflict)
}

func ErrUnknownEventOrType() *AppError {
	return New("TKT_002", "Event or ticket type not found", http.StatusNotFound)
}

func ErrCapacityExceeded() *AppError {
	return New("TKT_003", "No tickets remaining for this type", http.StatusConflict)
}

func ErrUnknownTicket() *AppError {
	return New("TKT_004", "Ticket not found", http.StatusNotFound)
}

func ErrNotOwner() *AppError {
	return New("TKT_005", "Wallet does not own this ticket", http.StatusForbidden)
}

func ErrTicketNotTransferable() *AppError {
	return New("TKT_006", "Ticket is refunded and can no longer be transferred", http.StatusConflict)
}

func ErrAlreadyRefunded() *AppError {
	return New("TKT_007", "Ticket has already been refunded", http.StatusConflict)
}

func ErrMaxPerWalletExceeded() *AppError {
	return New("TKT_008", "Maximum tickets per wallet exceeded for this event", http.StatusConflict)
}

func ErrRefundWindowClosed() *AppError {
	return New("TKT_009", "Ticket is no longer eligible for a refund", http.StatusConflict)
}

// ---- Fraud Screening (FRD) ----

// ErrFraudRejected signals that the fraud scorer blocked the commit.
// Reasons carry the triggered rule and model tags.
func ErrFraudRejected(reasons []string) *AppError {
	e := New("FRD_001",
		fmt.Sprintf("Transaction rejected by fraud screening: %s", strings.Join(reasons, ", ")),
		http.StatusUnprocessableEntity)
	e.Reasons = reasons
	return e
}

// ---- Ledger Integrity (LGR) ----

func ErrChainLinkMismatch() *AppError {
	return New("LGR_001", "Previous-hash does not match the current chain tip", http.StatusConflict)
}

// ErrIntegrityViolation reports the first block whose recomputed hash
// disagrees with the stored chain. Always fatal for writes.
func ErrIntegrityViolation(index uint64) *AppError {
	return New("LGR_002",
		fmt.Sprintf("Chain integrity violation detected at block %d", index),
		http.StatusInternalServerError)
}

func ErrCorruptHistory(err error) *AppError {
	return Wrap("LGR_003", "Ledger history references state that never existed", http.StatusInternalServerError, err)
}

func ErrLedgerHalted() *AppError {
	return New("LGR_004", "Ledger writes are halted pending integrity re-validation", http.StatusServiceUnavailable)
}

func ErrConcurrentAppend(err error) *AppError {
	return Wrap("LGR_005", "Append retry failed under concurrent writes", http.StatusServiceUnavailable, err)
}

// ---- Organizer Authentication (AUTH) ----

func ErrInvalidCredentials() *AppError {
	return New("AUTH_001", "Invalid credentials", http.StatusUnauthorized)
}

func ErrUsernameExists() *AppError {
	return New("AUTH_002", "Username already exists", http.StatusConflict)
}

func ErrInvalidToken() *AppError {
	return New("AUTH_003", "Invalid or expired token", http.StatusUnauthorized)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

func ErrDatabaseError(err error) *AppError {
	return Wrap("SYS_001", "Internal database error", http.StatusInternalServerError, err)
}

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

// Validation returns a structural validation error for malformed commands.
func Validation(message string) *AppError {
	return New("VAL_001", message, http.StatusBadRequest)
}
