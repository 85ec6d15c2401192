package credentials

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/sessionkeeper/internal/common"
	"github.com/dmitrijs2005/sessionkeeper/internal/server/models"
)

// MemoryStore is a mutex-guarded Store. Every operation, including a whole
// rotation, runs under one lock.
type MemoryStore struct {
	mu         sync.Mutex
	lastUserID int64
	lastTokID  int64
	users      map[int64]models.User
	byEmail    map[string]int64
	byUserName map[string]int64
	tokens     map[string]models.RefreshToken
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:      make(map[int64]models.User),
		byEmail:    make(map[string]int64),
		byUserName: make(map[string]int64),
		tokens:     make(map[string]models.RefreshToken),
	}
}

func (s *MemoryStore) CreateUser(_ context.Context, user *models.User) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byEmail[user.Email]; ok {
		return nil, common.ErrDuplicateEmail
	}
	if _, ok := s.byUserName[user.UserName]; ok {
		return nil, common.ErrDuplicateUsername
	}

	s.lastUserID++
	user.ID = s.lastUserID
	user.CreatedAt = time.Now()

	s.users[user.ID] = *user
	s.byEmail[user.Email] = user.ID
	s.byUserName[user.UserName] = user.ID
	return user, nil
}

func (s *MemoryStore) FindUserByUsernameOrEmail(_ context.Context, username, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.byUserName[username]; ok {
		return s.userLocked(id)
	}
	if id, ok := s.byEmail[email]; ok {
		return s.userLocked(id)
	}
	return nil, common.ErrorNotFound
}

func (s *MemoryStore) FindUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byEmail[email]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return s.userLocked(id)
}

func (s *MemoryStore) FindUserByID(_ context.Context, id int64) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userLocked(id)
}

func (s *MemoryStore) userLocked(id int64) (*models.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &u, nil
}

func (s *MemoryStore) CreateRefreshToken(_ context.Context, token *models.RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertTokenLocked(token)
}

func (s *MemoryStore) insertTokenLocked(token *models.RefreshToken) error {
	if _, ok := s.users[token.UserID]; !ok {
		return common.ErrorNotFound
	}
	if _, ok := s.tokens[token.Value]; ok {
		return common.ErrorInternal
	}
	s.lastTokID++
	token.ID = s.lastTokID
	token.CreatedAt = time.Now()
	s.tokens[token.Value] = *token
	return nil
}

func (s *MemoryStore) RotateRefreshToken(_ context.Context, value string, now time.Time, next *models.RefreshToken) (*models.RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.tokens[value]
	if !ok {
		return nil, common.ErrTokenNotFound
	}
	if current.Expired(now) {
		return nil, common.ErrTokenExpired
	}

	delete(s.tokens, value)
	next.UserID = current.UserID
	if err := s.insertTokenLocked(next); err != nil {
		s.tokens[value] = current
		return nil, err
	}
	return &current, nil
}

func (s *MemoryStore) DeleteRefreshToken(_ context.Context, userID int64, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tokens[value]; ok && t.UserID == userID {
		delete(s.tokens, value)
	}
	return nil
}

func (s *MemoryStore) DeleteUserRefreshTokens(_ context.Context, userID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for v, t := range s.tokens {
		if t.UserID == userID {
			delete(s.tokens, v)
			n++
		}
	}
	return n, nil
}

// RefreshToken returns a stored token by value. Intended for inspection in
// tests and tooling; the session flow never reads tokens outside a rotation.
func (s *MemoryStore) RefreshToken(value string) (models.RefreshToken, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[value]
	return t, ok
}
