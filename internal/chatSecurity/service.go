package chatSecurity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/akolanti/CyberScholar/internal/config"
	"github.com/akolanti/CyberScholar/internal/domain/commonModels"
	"github.com/akolanti/CyberScholar/internal/domain/coreErrors"
	"github.com/akolanti/CyberScholar/internal/domain/lockModel"
	"github.com/akolanti/CyberScholar/internal/metrics"
	"github.com/akolanti/CyberScholar/pkg/keyedMutex"
	"github.com/akolanti/CyberScholar/pkg/logger_i"
)

var logger = logger_i.NewLogger("Chat Lock")

type Service interface {
	SetPassword(ctx context.Context, ownerId, password, hint string) (lockModel.ActionResult, error)
	VerifyPassword(ctx context.Context, ownerId, password string) (lockModel.VerifyResult, error)
	ChangePassword(ctx context.Context, ownerId, current, next string, hint *string) (lockModel.ActionResult, error)
	Disable(ctx context.Context, ownerId, password string) (lockModel.ActionResult, error)
	GetStatus(ctx context.Context, ownerId string) (lockModel.Status, error)
	ValidateSession(ctx context.Context, ownerId, token string) (bool, error)
	RequireAccess(ctx context.Context, ownerId, token string) error
}

type Clock func() time.Time

type ServiceConfig struct {
	Locks    lockModel.LockStore
	Sessions lockModel.SessionStore
	Audit    commonModels.AuditStore
	Hasher   Hasher
	Now      Clock
}

type chatSecurityService struct {
	locks    lockModel.LockStore
	sessions lockModel.SessionStore
	audit    commonModels.AuditStore
	hasher   Hasher
	now      Clock
	owners   *keyedMutex.KeyedMutex
}

// ErrSessionRequired means the owner has a chat lock and no valid session token was presented.
var ErrSessionRequired = errors.New("chat session required")

func NewService(cfg ServiceConfig) Service {
	if cfg.Hasher == nil {
		cfg.Hasher = NewBcryptHasher(config.BcryptCost)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &chatSecurityService{
		locks:    cfg.Locks,
		sessions: cfg.Sessions,
		audit:    cfg.Audit,
		hasher:   cfg.Hasher,
		now:      cfg.Now,
		owners:   keyedMutex.New(),
	}
}

func (s *chatSecurityService) load(ctx context.Context, ownerId string) (lockModel.ChatLock, error) {
	lock, found, err := s.locks.GetLock(ctx, ownerId)
	if err != nil {
		return lockModel.ChatLock{}, fmt.Errorf("loading chat lock: %w", err)
	}
	if !found {
		return lockModel.ChatLock{OwnerId: ownerId}, nil
	}
	return lock, nil
}

func (s *chatSecurityService) loadEnabled(ctx context.Context, ownerId string) (lockModel.ChatLock, error) {
	lock, err := s.load(ctx, ownerId)
	if err != nil {
		return lock, err
	}
	if !lock.Enabled() {
		return lock, coreErrors.ErrNotEnabled
	}
	return lock, nil
}

func (s *chatSecurityService) newCredential(password, hint string, now time.Time) (*lockModel.Credential, error) {
	salt, err := randomHex(config.PasswordSaltBytes)
	if err != nil {
		return nil, err
	}
	hash, err := s.hasher.Hash(password, salt)
	if err != nil {
		return nil, err
	}
	return &lockModel.Credential{Hash: hash, Salt: salt, Hint: hint, SetAt: now}, nil
}

func (s *chatSecurityService) matches(lock lockModel.ChatLock, password string) bool {
	return s.hasher.Matches(lock.Credential.Hash, password, lock.Credential.Salt)
}

// SetPassword enables the lock from any state and starts it unlocked with a clean counter.
func (s *chatSecurityService) SetPassword(ctx context.Context, ownerId, password, hint string) (lockModel.ActionResult, error) {
	if err := CheckStrength(password); err != nil {
		return lockModel.ActionResult{}, err
	}

	unlock := s.owners.Lock(ownerId)
	defer unlock()

	now := s.now()
	lock, err := s.load(ctx, ownerId)
	if err != nil {
		return lockModel.ActionResult{}, err
	}

	cred, err := s.newCredential(password, hint, now)
	if err != nil {
		return lockModel.ActionResult{}, err
	}
	lock.Credential = cred
	lock.FailedAttempts = 0
	lock.LockedUntil = nil

	if err := s.locks.SaveLock(ctx, lock); err != nil {
		return lockModel.ActionResult{}, fmt.Errorf("saving chat lock: %w", err)
	}
	s.record(ctx, ownerId, commonModels.EventChatPasswordSet, "Chat password set", nil, now)
	logger.Info("Chat password set", "ownerId", ownerId)
	return lockModel.ActionResult{Success: true, Message: "Chat password set successfully"}, nil
}

func (s *chatSecurityService) VerifyPassword(ctx context.Context, ownerId, password string) (lockModel.VerifyResult, error) {
	unlock := s.owners.Lock(ownerId)
	defer unlock()

	now := s.now()
	lock, err := s.loadEnabled(ctx, ownerId)
	if err != nil {
		return lockModel.VerifyResult{}, err
	}

	if state, ok := lock.StateAt(now).(lockModel.Locked); ok {
		until := state.Until
		return lockModel.VerifyResult{
			Success:           false,
			Locked:            true,
			LockedUntil:       &until,
			AttemptsRemaining: attemptsRemaining(lock.FailedAttempts),
			Message:           "Too many failed attempts. Please try again later.",
		}, nil
	}

	if s.matches(lock, password) {
		return s.grantAccess(ctx, lock, now)
	}
	return s.recordFailure(ctx, lock, now)
}

func (s *chatSecurityService) grantAccess(ctx context.Context, lock lockModel.ChatLock, now time.Time) (lockModel.VerifyResult, error) {
	token, err := randomHex(config.ChatSessionTokenBytes)
	if err != nil {
		return lockModel.VerifyResult{}, err
	}
	expiresAt := now.Add(config.ChatSessionTTL)

	lock.FailedAttempts = 0
	lock.LockedUntil = nil
	lock.LastAccess = &now
	if err := s.locks.SaveLock(ctx, lock); err != nil {
		return lockModel.VerifyResult{}, fmt.Errorf("saving chat lock: %w", err)
	}
	if err := s.sessions.SaveSession(ctx, token, lock.OwnerId, config.ChatSessionTTL); err != nil {
		return lockModel.VerifyResult{}, fmt.Errorf("saving chat session: %w", err)
	}

	logger.Debug("Chat access granted", "ownerId", lock.OwnerId)
	return lockModel.VerifyResult{
		Success:           true,
		AttemptsRemaining: config.LongLockThreshold,
		SessionToken:      token,
		ExpiresAt:         &expiresAt,
		Message:           "Access granted",
	}, nil
}

func (s *chatSecurityService) recordFailure(ctx context.Context, lock lockModel.ChatLock, now time.Time) (lockModel.VerifyResult, error) {
	lock.FailedAttempts++
	lock.LockedUntil = nil

	var lockFor time.Duration
	switch {
	case lock.FailedAttempts >= config.LongLockThreshold:
		lockFor = config.LongLockDuration
	case lock.FailedAttempts >= config.ShortLockThreshold:
		lockFor = config.ShortLockDuration
	}
	if lockFor > 0 {
		until := now.Add(lockFor)
		lock.LockedUntil = &until
	}

	if err := s.locks.SaveLock(ctx, lock); err != nil {
		return lockModel.VerifyResult{}, fmt.Errorf("saving chat lock: %w", err)
	}

	metrics.IncrementChatPasswordFailures()
	logger.Warn("Incorrect chat password", "ownerId", lock.OwnerId, "attempts", lock.FailedAttempts)
	s.record(ctx, lock.OwnerId, commonModels.EventChatPasswordFailed, "Incorrect chat password",
		map[string]any{"attempts": lock.FailedAttempts}, now)

	result := lockModel.VerifyResult{
		Success:           false,
		Locked:            lock.LockedUntil != nil,
		LockedUntil:       lock.LockedUntil,
		AttemptsRemaining: attemptsRemaining(lock.FailedAttempts),
		Message:           "Incorrect password",
	}
	if result.Locked {
		metrics.IncrementChatLockouts()
		logger.Warn("Chat locked", "ownerId", lock.OwnerId, "until", lock.LockedUntil)
		s.record(ctx, lock.OwnerId, commonModels.EventChatLocked, "Chat locked after repeated failures",
			map[string]any{"locked_until": lock.LockedUntil.UTC().Format(time.RFC3339)}, now)
	}
	return result, nil
}

// ChangePassword checks current without touching the failure counter or the lock.
// A nil hint keeps the stored one.
func (s *chatSecurityService) ChangePassword(ctx context.Context, ownerId, current, next string, hint *string) (lockModel.ActionResult, error) {
	unlock := s.owners.Lock(ownerId)
	defer unlock()

	now := s.now()
	lock, err := s.loadEnabled(ctx, ownerId)
	if err != nil {
		return lockModel.ActionResult{}, err
	}
	if !s.matches(lock, current) {
		return lockModel.ActionResult{Success: false, Message: "Current password is incorrect"}, nil
	}
	if err := CheckStrength(next); err != nil {
		return lockModel.ActionResult{}, err
	}

	keptHint := lock.Credential.Hint
	if hint != nil {
		keptHint = *hint
	}
	cred, err := s.newCredential(next, keptHint, now)
	if err != nil {
		return lockModel.ActionResult{}, err
	}
	lock.Credential = cred

	if err := s.locks.SaveLock(ctx, lock); err != nil {
		return lockModel.ActionResult{}, fmt.Errorf("saving chat lock: %w", err)
	}
	s.revoke(ctx, ownerId)
	s.record(ctx, ownerId, commonModels.EventChatPasswordChanged, "Chat password changed", nil, now)
	logger.Info("Chat password changed", "ownerId", ownerId)
	return lockModel.ActionResult{Success: true, Message: "Password changed successfully"}, nil
}

func (s *chatSecurityService) Disable(ctx context.Context, ownerId, password string) (lockModel.ActionResult, error) {
	unlock := s.owners.Lock(ownerId)
	defer unlock()

	now := s.now()
	lock, err := s.loadEnabled(ctx, ownerId)
	if err != nil {
		return lockModel.ActionResult{}, err
	}
	if !s.matches(lock, password) {
		return lockModel.ActionResult{Success: false, Message: "Incorrect password"}, nil
	}

	lock.Clear()
	if err := s.locks.SaveLock(ctx, lock); err != nil {
		return lockModel.ActionResult{}, fmt.Errorf("saving chat lock: %w", err)
	}
	s.revoke(ctx, ownerId)
	s.record(ctx, ownerId, commonModels.EventChatSecurityDisabled, "Chat security disabled", nil, now)
	logger.Info("Chat security disabled", "ownerId", ownerId)
	return lockModel.ActionResult{Success: true, Message: "Chat security disabled"}, nil
}

// GetStatus never exposes the hash or the salt.
func (s *chatSecurityService) GetStatus(ctx context.Context, ownerId string) (lockModel.Status, error) {
	now := s.now()
	lock, err := s.load(ctx, ownerId)
	if err != nil {
		return lockModel.Status{}, err
	}

	status := lockModel.Status{
		Enabled:        lock.Enabled(),
		State:          lock.StateAt(now).Name(),
		LastAccess:     lock.LastAccess,
		FailedAttempts: lock.FailedAttempts,
		LockedUntil:    lock.LockedUntil,
	}
	if lock.Credential != nil {
		setAt := lock.Credential.SetAt
		status.Hint = lock.Credential.Hint
		status.PasswordSetAt = &setAt
	}
	return status, nil
}

func (s *chatSecurityService) ValidateSession(ctx context.Context, ownerId, token string) (bool, error) {
	if token == "" {
		return false, nil
	}
	owner, found, err := s.sessions.SessionOwner(ctx, token)
	if err != nil {
		return false, fmt.Errorf("reading chat session: %w", err)
	}
	return found && owner == ownerId, nil
}

// RequireAccess gates chat history. Owners without a lock always pass.
func (s *chatSecurityService) RequireAccess(ctx context.Context, ownerId, token string) error {
	now := s.now()
	lock, err := s.load(ctx, ownerId)
	if err != nil {
		return err
	}

	switch state := lock.StateAt(now).(type) {
	case lockModel.Disabled:
		return nil
	case lockModel.Locked:
		return &coreErrors.LockedError{Until: state.Until}
	}

	ok, err := s.ValidateSession(ctx, ownerId, token)
	if err != nil {
		return err
	}
	if !ok {
		return ErrSessionRequired
	}
	return nil
}

func (s *chatSecurityService) revoke(ctx context.Context, ownerId string) {
	if err := s.sessions.RevokeOwnerSessions(ctx, ownerId); err != nil {
		logger.Error("Failed to revoke chat sessions", "ownerId", ownerId, "error", err)
	}
}

// audit is best effort; a failed write is logged and the operation still succeeds.
func (s *chatSecurityService) record(ctx context.Context, ownerId, eventType, description string, meta map[string]any, now time.Time) {
	if s.audit == nil {
		return
	}
	event := commonModels.SecurityEvent{
		OwnerId:     ownerId,
		EventType:   eventType,
		Description: description,
		Metadata:    meta,
		CreatedAt:   now,
	}
	if err := s.audit.RecordEvent(ctx, event); err != nil {
		logger.Error("Failed to record security event", "ownerId", ownerId, "event", eventType, "error", err)
	}
}

func attemptsRemaining(failed int) int {
	return max(0, config.LongLockThreshold-failed)
}
