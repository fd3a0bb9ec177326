package service

import (
	"sync"
	"time"

	"github.com/google/uuid"

	keyvaultDomain "github.com/quietwire/dmcore/internal/keyvault/domain"
)

// Session holds a user's decrypted private key between unlock and lock.
//
// The key lives only in this struct while the session is unlocked; locking
// zeroes it in place. Sessions auto-lock after a period of inactivity, and
// every use of the key resets the inactivity timer.
//
// Thread safety: all methods are safe for concurrent use.
type Session struct {
	mu         sync.RWMutex
	userID     uuid.UUID
	privateKey []byte
	locked     bool
	epoch      uint64
	ttl        time.Duration
	timer      *time.Timer
	onLock     func(userID uuid.UUID, epoch uint64)
}

// UserID returns the owner of the session.
func (s *Session) UserID() uuid.UUID {
	return s.userID
}

// Locked reports whether the session currently holds no usable key.
func (s *Session) Locked() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.locked
}

// Epoch returns the unlock generation of the session. The epoch increments on
// every lock, so derived state (such as a search index) built during one
// unlock can detect that it is stale.
func (s *Session) Epoch() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.epoch
}

// WithPrivateKey runs fn with the session's private key while holding the
// session read lock. The key must not escape fn. Using the key counts as
// activity and resets the auto-lock timer.
func (s *Session) WithPrivateKey(fn func(privateKey []byte) error) error {
	s.mu.RLock()
	if s.locked {
		s.mu.RUnlock()
		return keyvaultDomain.ErrVaultLocked
	}
	err := fn(s.privateKey)
	s.mu.RUnlock()

	s.touch()
	return err
}

// touch resets the inactivity timer.
func (s *Session) touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.locked || s.timer == nil {
		return
	}
	s.timer.Reset(s.ttl)
}

// Lock zeroes the private key and marks the session locked. Locking an
// already-locked session is a no-op.
func (s *Session) Lock() {
	s.mu.Lock()
	if s.locked {
		s.mu.Unlock()
		return
	}
	keyvaultDomain.Zero(s.privateKey)
	s.privateKey = nil
	s.locked = true
	s.epoch++
	epoch := s.epoch
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	onLock := s.onLock
	s.mu.Unlock()

	if onLock != nil {
		onLock(s.userID, epoch)
	}
}

// unlock installs a fresh private key and arms the inactivity timer. Any key
// still held from a previous unlock is zeroed first.
func (s *Session) unlock(privateKey []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	keyvaultDomain.Zero(s.privateKey)
	s.privateKey = privateKey
	s.locked = false
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.ttl, s.Lock)
}

// SessionManager tracks per-user vault sessions.
//
// There is exactly one Session per user. Unlocking an existing session
// replaces its key material; the session identity (and its consumers'
// references) stays stable.
type SessionManager struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
	ttl      time.Duration
	onLock   func(userID uuid.UUID, epoch uint64)
}

// NewSessionManager creates a session manager. Sessions auto-lock after ttl
// of inactivity. onLock, if non-nil, runs after every lock (manual or
// timer-driven) outside the session lock.
func NewSessionManager(ttl time.Duration, onLock func(userID uuid.UUID, epoch uint64)) *SessionManager {
	return &SessionManager{
		sessions: make(map[uuid.UUID]*Session),
		ttl:      ttl,
		onLock:   onLock,
	}
}

// Unlock installs privateKey into the user's session, creating the session on
// first use, and returns it.
func (m *SessionManager) Unlock(userID uuid.UUID, privateKey []byte) *Session {
	m.mu.Lock()
	session, ok := m.sessions[userID]
	if !ok {
		session = &Session{
			userID: userID,
			locked: true,
			ttl:    m.ttl,
			onLock: m.onLock,
		}
		m.sessions[userID] = session
	}
	m.mu.Unlock()

	session.unlock(privateKey)
	return session
}

// Get returns the user's session. A user who never unlocked has no session;
// callers treat that the same as a locked one.
func (m *SessionManager) Get(userID uuid.UUID) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[userID]
	return session, ok
}

// Lock locks the user's session if one exists.
func (m *SessionManager) Lock(userID uuid.UUID) {
	m.mu.Lock()
	session, ok := m.sessions[userID]
	m.mu.Unlock()
	if ok {
		session.Lock()
	}
}

// LockAll locks every session, for shutdown.
func (m *SessionManager) LockAll() {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.Unlock()

	for _, s := range sessions {
		s.Lock()
	}
}
