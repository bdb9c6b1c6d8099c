package store

import (
	"context"
	"sync"

	"github.com/dropwire/dropwire/core"
	"github.com/dropwire/dropwire/ports"
)

// MemoryAccountStore is an in-memory ports.AccountStore for tests and
// standalone runs. The mutex makes check-and-create atomic per root key.
type MemoryAccountStore struct {
	mu        sync.RWMutex
	accounts  map[string]*core.NewAccount
	phonebook []string
}

func NewMemoryAccountStore() *MemoryAccountStore {
	return &MemoryAccountStore{
		accounts: make(map[string]*core.NewAccount),
	}
}

var _ ports.AccountStore = (*MemoryAccountStore)(nil)

func (s *MemoryAccountStore) AccountExists(ctx context.Context, rootSignPubKey string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.accounts[rootSignPubKey]
	return ok, nil
}

func (s *MemoryAccountStore) CreateAccount(ctx context.Context, account *core.NewAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := account.Payload.RootSignPubKey
	if _, taken := s.accounts[key]; taken {
		return core.ErrAlreadySignedUp
	}
	s.accounts[key] = account
	if account.PublicListing != "" {
		s.phonebook = append(s.phonebook, account.PublicListing)
	}
	return nil
}

func (s *MemoryAccountStore) ScanPublicListing(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]string(nil), s.phonebook...), nil
}

// Account returns the stored record for a root key; test helper.
func (s *MemoryAccountStore) Account(rootSignPubKey string) (*core.NewAccount, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acct, ok := s.accounts[rootSignPubKey]
	return acct, ok
}
