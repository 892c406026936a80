package services

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/franciscosanchezn/gin-user-api/internal/cache"
	"github.com/franciscosanchezn/gin-user-api/internal/models"
)

// cachedUserService serves GetUserByID from a cache and drops entries on every write.
// Cached users carry no password hash, so credential checks must go through
// GetUserByEmail or Authenticate.
// writes counts invalidations; a miss only fills the cache when no write started
// or finished while the row was being loaded
type cachedUserService struct {
	UserService
	cache    cache.Cache
	observer LookupObserver

	mu     sync.Mutex
	writes uint64
}

// LookupObserver is told the outcome of every cache lookup
type LookupObserver interface {
	RecordCacheLookup(hit bool)
}

// NewCachedUserService decorates next with a read-through profile cache. observer may be nil
func NewCachedUserService(next UserService, c cache.Cache, observer LookupObserver) UserService {
	return &cachedUserService{UserService: next, cache: c, observer: observer}
}

func (s *cachedUserService) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	if raw, ok := s.cache.Get(ctx, id); ok {
		var user models.User
		if err := json.Unmarshal(raw, &user); err == nil {
			s.observe(true)
			return &user, nil
		}
		s.cache.Delete(ctx, id)
	}
	s.observe(false)

	seen := s.writeCount()
	user, err := s.UserService.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if raw, err := json.Marshal(user); err == nil {
		s.fill(ctx, id, raw, seen)
	}
	return user, nil
}

func (s *cachedUserService) UpdateUser(ctx context.Context, id string, upd UserUpdate) (*models.User, error) {
	s.invalidate(ctx, id)
	defer s.invalidate(ctx, id)
	return s.UserService.UpdateUser(ctx, id, upd)
}

func (s *cachedUserService) UpdatePassword(ctx context.Context, id, password string) (*models.User, error) {
	s.invalidate(ctx, id)
	defer s.invalidate(ctx, id)
	return s.UserService.UpdatePassword(ctx, id, password)
}

func (s *cachedUserService) DeleteUser(ctx context.Context, id string) error {
	s.invalidate(ctx, id)
	defer s.invalidate(ctx, id)
	return s.UserService.DeleteUser(ctx, id)
}

func (s *cachedUserService) writeCount() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

// fill stores raw unless a write touched the store since seen was read
func (s *cachedUserService) fill(ctx context.Context, id string, raw []byte, seen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writes == seen {
		s.cache.Set(ctx, id, raw)
	}
}

func (s *cachedUserService) invalidate(ctx context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++
	s.cache.Delete(ctx, id)
}

func (s *cachedUserService) observe(hit bool) {
	if s.observer != nil {
		s.observer.RecordCacheLookup(hit)
	}
}
