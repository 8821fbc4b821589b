// Package session holds per-conversation confirmation state. A conversation
// has at most one pending draft; events for the same conversation are
// serialized by a per-conversation lock, while different conversations
// proceed independently. Sessions live in memory only and are lost on
// restart.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/akarpov/ledgerbot/internal/domain"
)

// ErrNoPending is returned when a callback references no live session:
// there never was one, it was already resolved, or the correlation token
// belongs to a superseded draft.
var ErrNoPending = errors.New("no pending transaction")

// ErrExpired is returned when a callback arrives after the session TTL.
// The session is removed and no insert occurs.
var ErrExpired = errors.New("session expired")

// InsertError wraps a ledger insert failure. The session stays pending so
// the user can press confirm again.
type InsertError struct {
	Err error
}

func (e *InsertError) Error() string {
	return fmt.Sprintf("ledger insert failed: %v", e.Err)
}

func (e *InsertError) Unwrap() error {
	return e.Err
}

// Session is one pending confirmation.
type Session struct {
	ConversationID int64
	Token          string // correlation token carried in callback data
	Draft          domain.TransactionDraft
	CreatedAt      time.Time
}

// InsertFunc performs the ledger insert for a confirmed draft.
type InsertFunc func(ctx context.Context, draft domain.TransactionDraft) error

// Store is the keyed session store shared across conversations. It is safe
// for concurrent use.
type Store struct {
	mu       sync.Mutex
	locks    map[int64]*sync.Mutex
	sessions map[int64]*Session
	ttl      time.Duration
	now      func() time.Time
}

// NewStore creates a store whose sessions expire ttl after creation.
// Expiry is evaluated lazily on the next access to the conversation.
func NewStore(ttl time.Duration) *Store {
	return &Store{
		locks:    make(map[int64]*sync.Mutex),
		sessions: make(map[int64]*Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// lockConversation acquires the per-conversation mutex, creating it on
// first use. The caller must unlock the returned mutex.
func (s *Store) lockConversation(id int64) *sync.Mutex {
	s.mu.Lock()
	m, ok := s.locks[id]
	if !ok {
		m = &sync.Mutex{}
		s.locks[id] = m
	}
	s.mu.Unlock()

	m.Lock()
	return m
}

func (s *Store) get(id int64) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[id]
}

func (s *Store) set(sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ConversationID] = sess
}

func (s *Store) remove(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

func (s *Store) expired(sess *Session) bool {
	return s.now().Sub(sess.CreatedAt) > s.ttl
}

// Put creates a new awaiting-confirmation session for the conversation.
// An existing live session is implicitly cancelled first; superseded
// reports whether that happened.
func (s *Store) Put(conversationID int64, draft domain.TransactionDraft) (Session, bool) {
	m := s.lockConversation(conversationID)
	defer m.Unlock()

	superseded := false
	if old := s.get(conversationID); old != nil {
		if s.expired(old) {
			old.Draft.Status = domain.StatusExpired
		} else {
			old.Draft.Status = domain.StatusCancelled
			superseded = true
		}
		s.remove(conversationID)
	}

	draft.Status = domain.StatusAwaitingConfirmation
	sess := &Session{
		ConversationID: conversationID,
		Token:          uuid.NewString(),
		Draft:          draft,
		CreatedAt:      s.now(),
	}
	s.set(sess)

	return *sess, superseded
}

// Confirm resolves the session identified by token and performs exactly
// one ledger insert. On insert failure the session stays pending and an
// *InsertError is returned. The returned Session is a snapshot of the
// draft after the transition.
func (s *Store) Confirm(ctx context.Context, conversationID int64, token string, insert InsertFunc) (Session, error) {
	m := s.lockConversation(conversationID)
	defer m.Unlock()

	sess, err := s.pending(conversationID, token)
	if err != nil {
		return Session{}, err
	}

	// The insert runs under the conversation lock so a superseding message
	// cannot race the confirmation.
	if err := insert(ctx, sess.Draft); err != nil {
		return *sess, &InsertError{Err: err}
	}

	sess.Draft.Status = domain.StatusConfirmed
	s.remove(conversationID)
	return *sess, nil
}

// Cancel resolves the session identified by token without inserting.
func (s *Store) Cancel(conversationID int64, token string) (Session, error) {
	m := s.lockConversation(conversationID)
	defer m.Unlock()

	sess, err := s.pending(conversationID, token)
	if err != nil {
		return Session{}, err
	}

	sess.Draft.Status = domain.StatusCancelled
	s.remove(conversationID)
	return *sess, nil
}

// Pending returns a snapshot of the conversation's live session, applying
// lazy expiry.
func (s *Store) Pending(conversationID int64) (Session, bool) {
	m := s.lockConversation(conversationID)
	defer m.Unlock()

	sess := s.get(conversationID)
	if sess == nil {
		return Session{}, false
	}
	if s.expired(sess) {
		sess.Draft.Status = domain.StatusExpired
		s.remove(conversationID)
		return Session{}, false
	}
	return *sess, true
}

// pending fetches the live session matching token, applying lazy expiry.
// Caller holds the conversation lock.
func (s *Store) pending(conversationID int64, token string) (*Session, error) {
	sess := s.get(conversationID)
	if sess == nil || sess.Token != token {
		return nil, ErrNoPending
	}
	if s.expired(sess) {
		sess.Draft.Status = domain.StatusExpired
		s.remove(conversationID)
		return nil, ErrExpired
	}
	return sess, nil
}
