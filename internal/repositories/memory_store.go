package repositories

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"server-identity/internal/schemas"
)

// MemoryStore keeps identities and ledger entries in process. Transactions are serialised
// on a single mutex and rolled back by restoring a snapshot.
type MemoryStore struct {
	mu   sync.Mutex
	data *memoryData
}

type memoryData struct {
	users      map[uuid.UUID]schemas.User
	resets     []schemas.PasswordResetEntry
	accessLogs []schemas.AccessLog
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: &memoryData{users: make(map[uuid.UUID]schemas.User)}}
}

func (s *MemoryStore) CreateUser(ctx context.Context, user *schemas.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&memoryTx{data: s.data}).CreateUser(ctx, user)
}

func (s *MemoryStore) GetUserByEmail(ctx context.Context, email string) (*schemas.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&memoryTx{data: s.data}).GetUserByEmail(ctx, email)
}

func (s *MemoryStore) GetUserByID(ctx context.Context, id uuid.UUID) (*schemas.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&memoryTx{data: s.data}).GetUserByID(ctx, id)
}

func (s *MemoryStore) UpdateUser(ctx context.Context, user *schemas.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&memoryTx{data: s.data}).UpdateUser(ctx, user)
}

func (s *MemoryStore) CreateResetEntry(ctx context.Context, entry *schemas.PasswordResetEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&memoryTx{data: s.data}).CreateResetEntry(ctx, entry)
}

func (s *MemoryStore) DeleteResetEntry(ctx context.Context, token string) (*schemas.PasswordResetEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&memoryTx{data: s.data}).DeleteResetEntry(ctx, token)
}

func (s *MemoryStore) ListResetEntries(ctx context.Context, email string) ([]schemas.PasswordResetEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&memoryTx{data: s.data}).ListResetEntries(ctx, email)
}

func (s *MemoryStore) CreateAccessLog(ctx context.Context, entry *schemas.AccessLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&memoryTx{data: s.data}).CreateAccessLog(ctx, entry)
}

func (s *MemoryStore) ListAccessLogs(ctx context.Context, userID uuid.UUID) ([]schemas.AccessLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&memoryTx{data: s.data}).ListAccessLogs(ctx, userID)
}

func (s *MemoryStore) RunInTx(ctx context.Context, fn func(tx Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	committed := false
	defer func() {
		if !committed {
			s.data = snapshot
		}
	}()

	if err := fn(&memoryTx{data: s.data}); err != nil {
		return err
	}
	committed = true
	return nil
}

// memoryTx operates on the data without locking; the caller holds the mutex.
type memoryTx struct {
	data *memoryData
}

func (tx *memoryTx) CreateUser(_ context.Context, user *schemas.User) error {
	if _, ok := tx.data.users[user.ID]; ok {
		return ErrDuplicate
	}
	if tx.emailTaken(user.Email, user.ID) {
		return ErrDuplicate
	}
	tx.data.users[user.ID] = *user
	return nil
}

func (tx *memoryTx) GetUserByEmail(_ context.Context, email string) (*schemas.User, error) {
	for _, user := range tx.data.users {
		if user.Email == email && !user.IsDeleted {
			found := user
			return &found, nil
		}
	}
	return nil, ErrNotFound
}

func (tx *memoryTx) GetUserByID(_ context.Context, id uuid.UUID) (*schemas.User, error) {
	user, ok := tx.data.users[id]
	if !ok || user.IsDeleted {
		return nil, ErrNotFound
	}
	return &user, nil
}

func (tx *memoryTx) UpdateUser(_ context.Context, user *schemas.User) error {
	if _, ok := tx.data.users[user.ID]; !ok {
		return ErrNotFound
	}
	if !user.IsDeleted && tx.emailTaken(user.Email, user.ID) {
		return ErrDuplicate
	}
	tx.data.users[user.ID] = *user
	return nil
}

func (tx *memoryTx) CreateResetEntry(_ context.Context, entry *schemas.PasswordResetEntry) error {
	for _, existing := range tx.data.resets {
		if existing.Email == entry.Email && existing.Token == entry.Token {
			return ErrDuplicate
		}
	}
	tx.data.resets = append(tx.data.resets, *entry)
	return nil
}

func (tx *memoryTx) DeleteResetEntry(_ context.Context, token string) (*schemas.PasswordResetEntry, error) {
	for i, existing := range tx.data.resets {
		if existing.Token == token && existing.Status == schemas.PasswordResetPending {
			tx.data.resets = append(tx.data.resets[:i:i], tx.data.resets[i+1:]...)
			return &existing, nil
		}
	}
	return nil, ErrNotFound
}

func (tx *memoryTx) ListResetEntries(_ context.Context, email string) ([]schemas.PasswordResetEntry, error) {
	entries := make([]schemas.PasswordResetEntry, 0)
	for _, existing := range tx.data.resets {
		if existing.Email == email {
			entries = append(entries, existing)
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})
	return entries, nil
}

func (tx *memoryTx) CreateAccessLog(_ context.Context, entry *schemas.AccessLog) error {
	if _, ok := tx.data.users[entry.UserID]; !ok {
		return ErrNotFound
	}
	tx.data.accessLogs = append(tx.data.accessLogs, *entry)
	return nil
}

func (tx *memoryTx) ListAccessLogs(_ context.Context, userID uuid.UUID) ([]schemas.AccessLog, error) {
	entries := make([]schemas.AccessLog, 0)
	for _, entry := range tx.data.accessLogs {
		if entry.UserID == userID {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

func (tx *memoryTx) RunInTx(_ context.Context, fn func(tx Store) error) error {
	return fn(tx)
}

func (tx *memoryTx) emailTaken(email string, self uuid.UUID) bool {
	for id, user := range tx.data.users {
		if id != self && user.Email == email && !user.IsDeleted {
			return true
		}
	}
	return false
}

func (d *memoryData) clone() *memoryData {
	users := make(map[uuid.UUID]schemas.User, len(d.users))
	for id, user := range d.users {
		users[id] = user
	}
	resets := make([]schemas.PasswordResetEntry, len(d.resets))
	copy(resets, d.resets)
	accessLogs := make([]schemas.AccessLog, len(d.accessLogs))
	copy(accessLogs, d.accessLogs)
	return &memoryData{users: users, resets: resets, accessLogs: accessLogs}
}
