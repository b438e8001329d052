package lockModel

import (
	"context"
	"time"
)

// State is one of Disabled, Unlocked or Locked.
type State interface {
	Name() string
}

type Disabled struct{}

type Unlocked struct{}

type Locked struct {
	Until time.Time
}

func (Disabled) Name() string { return "disabled" }
func (Unlocked) Name() string { return "unlocked" }
func (Locked) Name() string   { return "locked" }

// Credential exists only while chat security is enabled, so hash and salt always travel together.
type Credential struct {
	Hash  string    `json:"hash"`
	Salt  string    `json:"salt"`
	Hint  string    `json:"hint,omitempty"`
	SetAt time.Time `json:"set_at"`
}

// ChatLock is the per-owner record. It is cleared on disable, never deleted.
type ChatLock struct {
	OwnerId        string      `json:"owner_id"`
	Credential     *Credential `json:"credential,omitempty"`
	FailedAttempts int         `json:"failed_attempts"`
	LockedUntil    *time.Time  `json:"locked_until,omitempty"`
	LastAccess     *time.Time  `json:"last_access,omitempty"`
}

func (c ChatLock) Enabled() bool {
	return c.Credential != nil
}

// StateAt evaluates the record against a single reading of the clock.
func (c ChatLock) StateAt(now time.Time) State {
	if c.Credential == nil {
		return Disabled{}
	}
	if c.LockedUntil != nil && now.Before(*c.LockedUntil) {
		return Locked{Until: *c.LockedUntil}
	}
	return Unlocked{}
}

// Clear drops everything but the owner, which is what disabling means.
func (c *ChatLock) Clear() {
	c.Credential = nil
	c.FailedAttempts = 0
	c.LockedUntil = nil
	c.LastAccess = nil
}

type Status struct {
	Enabled        bool       `json:"chat_security_enabled"`
	State          string     `json:"state"`
	Hint           string     `json:"chat_security_hint,omitempty"`
	PasswordSetAt  *time.Time `json:"chat_password_set_at,omitempty"`
	LastAccess     *time.Time `json:"last_chat_access,omitempty"`
	FailedAttempts int        `json:"failed_chat_password_attempts"`
	LockedUntil    *time.Time `json:"chat_locked_until,omitempty"`
}

type VerifyResult struct {
	Success           bool       `json:"success"`
	Locked            bool       `json:"locked"`
	LockedUntil       *time.Time `json:"locked_until,omitempty"`
	AttemptsRemaining int        `json:"attempts_remaining"`
	SessionToken      string     `json:"chat_session_token,omitempty"`
	ExpiresAt         *time.Time `json:"expires_at,omitempty"`
	Message           string     `json:"message"`
}

type ActionResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type LockStore interface {
	GetLock(ctx context.Context, ownerId string) (ChatLock, bool, error)
	SaveLock(ctx context.Context, lock ChatLock) error
}

type SessionStore interface {
	SaveSession(ctx context.Context, token string, ownerId string, ttl time.Duration) error
	SessionOwner(ctx context.Context, token string) (string, bool, error)
	RevokeOwnerSessions(ctx context.Context, ownerId string) error
}
