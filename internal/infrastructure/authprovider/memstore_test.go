package authprovider_test

import (
	"context"
	"sync"
	"time"

	"github.com/jhoicas/estimate-api/internal/domain"
	"github.com/jhoicas/estimate-api/internal/domain/entity"
	"github.com/jhoicas/estimate-api/internal/domain/repository"
)

var _ repository.UserRepository = (*memStore)(nil)

// memStore store en memoria con las mismas garantías atómicas que los adaptadores SQL.
type memStore struct {
	mu      sync.Mutex
	byID    map[string]*entity.User
	byEmail map[string]string

	failRecord error
	// afterFind corre tras FindByEmail, fuera del lock; simula escrituras concurrentes.
	afterFind func(u *entity.User)
}

func newMemStore() *memStore {
	return &memStore{byID: map[string]*entity.User{}, byEmail: map[string]string{}}
}

func clone(u *entity.User) *entity.User {
	c := *u
	if u.LockedUntil != nil {
		t := *u.LockedUntil
		c.LockedUntil = &t
	}
	return &c
}

func (s *memStore) Create(_ context.Context, u *entity.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byEmail[u.Email]; ok {
		return domain.ErrEmailAlreadyExists
	}
	if _, ok := s.byID[u.ID]; ok {
		return domain.ErrEmailAlreadyExists
	}
	u.Version = 1
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	s.byID[u.ID] = clone(u)
	s.byEmail[u.Email] = u.ID
	return nil
}

func (s *memStore) Update(_ context.Context, u *entity.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.byID[u.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if cur.Version != u.Version {
		return domain.ErrConflict
	}
	cur.PasswordHash = u.PasswordHash
	cur.CompanyName = u.CompanyName
	cur.Phone = u.Phone
	cur.Version++
	cur.UpdatedAt = time.Now()
	u.Version = cur.Version
	u.UpdatedAt = cur.UpdatedAt
	return nil
}

func (s *memStore) FindByID(_ context.Context, id string) (*entity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.byID[id]; ok {
		return clone(u), nil
	}
	return nil, nil
}

func (s *memStore) FindByEmail(_ context.Context, email string) (*entity.User, error) {
	s.mu.Lock()
	var found *entity.User
	if id, ok := s.byEmail[email]; ok {
		found = clone(s.byID[id])
	}
	hook := s.afterFind
	s.mu.Unlock()
	if hook != nil && found != nil {
		hook(clone(found))
	}
	return found, nil
}

func (s *memStore) ExistsByEmail(_ context.Context, email string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.byEmail[email]
	return ok, nil
}

func (s *memStore) DeleteByID(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.byID[id]; ok {
		delete(s.byEmail, u.Email)
		delete(s.byID, id)
	}
	return nil
}

func (s *memStore) RecordFailedLogin(_ context.Context, id string, now time.Time, policy entity.LockoutPolicy) (*entity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failRecord != nil {
		return nil, s.failRecord
	}
	u, ok := s.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	u.RegisterFailedLogin(now, policy)
	return clone(u), nil
}

func (s *memStore) ResetFailedLogins(_ context.Context, id string, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if u.IsLocked(now) {
		return false, nil
	}
	u.ResetFailedLogins()
	return true, nil
}

func (s *memStore) get(id string) *entity.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clone(s.byID[id])
}
