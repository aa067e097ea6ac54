package handlers

import (
	"errors"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/google/uuid"
)

const maxNickLength = 20

var (
	errNickTaken   = errors.New("nickname already in use")
	errInvalidNick = errors.New("nickname must be 1 to 20 characters")
)

// UserSession is one connected client. It is owned by the goroutine serving its connection.
type UserSession struct {
	ID    uuid.UUID
	Token string
	Nick  string
}

// SessionStore tracks connected sessions and keeps nicknames unique.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*UserSession
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[uuid.UUID]*UserSession)}
}

// Add registers s. It fails if the ID is already connected or the nickname is taken.
func (st *SessionStore) Add(s *UserSession) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, ok := st.sessions[s.ID]; ok {
		return errors.New("session already connected")
	}
	if st.nickTakenLocked(s.Nick, s.ID) {
		return errNickTaken
	}
	st.sessions[s.ID] = s
	return nil
}

// Active reports whether a session with id is connected.
func (st *SessionStore) Active(id uuid.UUID) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	_, ok := st.sessions[id]
	return ok
}

func (st *SessionStore) Remove(id uuid.UUID) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, id)
}

// Rename changes s's nickname after validating it.
func (st *SessionStore) Rename(s *UserSession, nick string) error {
	nick = strings.TrimSpace(nick)
	if nick == "" || utf8.RuneCountInString(nick) > maxNickLength {
		return errInvalidNick
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if st.nickTakenLocked(nick, s.ID) {
		return errNickTaken
	}
	s.Nick = nick
	return nil
}

func (st *SessionStore) nickTakenLocked(nick string, except uuid.UUID) bool {
	for id, s := range st.sessions {
		if id != except && strings.EqualFold(s.Nick, nick) {
			return true
		}
	}
	return false
}
