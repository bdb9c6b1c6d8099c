// Package store provides account-store adapters. The redis store is the
// production one; the memory store backs tests and standalone runs. Both
// honor the same contract: account creation is atomic per root key, so
// concurrent signups for one identity cannot both succeed.
package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/dropwire/dropwire/core"
	"github.com/dropwire/dropwire/ports"
)

// accountRecord is the persisted shape of an account.
type accountRecord struct {
	Payload      *core.SelfIdentPayload `json:"payload"`
	RawSelfIdent string                 `json:"rawSelfIdent"`
	ClientAuths  map[string]string      `json:"clientAuths"`
	StoreKeyring json.RawMessage        `json:"storeKeyring,omitempty"`
}

// RedisAccountStore implements ports.AccountStore on redis. SETNX gives the
// per-key atomicity the signup core relies on.
type RedisAccountStore struct {
	client *redis.Client
	prefix string
}

// NewRedisAccountStore creates a redis-backed account store.
func NewRedisAccountStore(client *redis.Client) *RedisAccountStore {
	return &RedisAccountStore{
		client: client,
		prefix: "dropwire:",
	}
}

var _ ports.AccountStore = (*RedisAccountStore)(nil)

func (s *RedisAccountStore) accountKey(rootSignPubKey string) string {
	return s.prefix + "account:" + rootSignPubKey
}

func (s *RedisAccountStore) phonebookKey() string {
	return s.prefix + "phonebook"
}

// AccountExists checks for a provisioned account under the root key.
func (s *RedisAccountStore) AccountExists(ctx context.Context, rootSignPubKey string) (bool, error) {
	n, err := s.client.Exists(ctx, s.accountKey(rootSignPubKey)).Result()
	if err != nil {
		return false, fmt.Errorf("checking account existence: %w", err)
	}
	return n > 0, nil
}

// CreateAccount persists the account record if and only if the root key is
// free, then adds the public-listing blob to the phonebook when the
// identity opted in.
func (s *RedisAccountStore) CreateAccount(ctx context.Context, account *core.NewAccount) error {
	record, err := json.Marshal(accountRecord{
		Payload:      account.Payload,
		RawSelfIdent: account.RawSelfIdent,
		ClientAuths:  account.ClientAuths,
		StoreKeyring: account.StoreKeyring,
	})
	if err != nil {
		return fmt.Errorf("encoding account record: %w", err)
	}

	set, err := s.client.SetNX(ctx, s.accountKey(account.Payload.RootSignPubKey), record, 0).Result()
	if err != nil {
		return fmt.Errorf("storing account: %w", err)
	}
	if !set {
		return core.ErrAlreadySignedUp
	}

	if account.PublicListing != "" {
		if err := s.client.SAdd(ctx, s.phonebookKey(), account.PublicListing).Err(); err != nil {
			return fmt.Errorf("adding phonebook listing: %w", err)
		}
	}
	return nil
}

// ScanPublicListing returns every listed self-ident blob.
func (s *RedisAccountStore) ScanPublicListing(ctx context.Context) ([]string, error) {
	blobs, err := s.client.SMembers(ctx, s.phonebookKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("scanning phonebook: %w", err)
	}
	return blobs, nil
}
