package users

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryStore is an in-process Store for development and tests.
type MemoryStore struct {
	mu     sync.Mutex
	nextID int64
	byUID  map[string]*User
	now    func() time.Time
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byUID: make(map[string]*User), now: time.Now}
}

// FindOrCreate implements Store. Callers receive copies.
func (m *MemoryStore) FindOrCreate(_ context.Context, defaults User) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.byUID[defaults.FirebaseUID]; ok {
		clone := *u
		return &clone, nil
	}
	m.nextID++
	now := m.now().UTC()
	u := defaults
	u.ID = m.nextID
	u.CreatedAt = now
	u.UpdatedAt = now
	m.byUID[u.FirebaseUID] = &u
	clone := u
	return &clone, nil
}

// UpdateProfile implements Store.
func (m *MemoryStore) UpdateProfile(_ context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.byUID[u.FirebaseUID]
	if !ok {
		return fmt.Errorf("users: no user with uid %q", u.FirebaseUID)
	}
	stored.Email = u.Email
	stored.DisplayName = u.DisplayName
	stored.GuardianName = u.GuardianName
	stored.UpdatedAt = m.now().UTC()
	u.UpdatedAt = stored.UpdatedAt
	return nil
}
