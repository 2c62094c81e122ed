package tokens

import (
	"encoding/json"
	"fmt"

	"github.com/zalando/go-keyring"

	errs "github.com/akashpandey/Reddit-Fetch/pkg/errors"
)

const (
	keyringService = "redditfetch"
	keyringKey     = "oauth_tokens"
)

// KeyringStore keeps the credential record in the system keychain, keyed
// per account so a future multi-account mode does not collide.
type KeyringStore struct {
	account string
}

// NewKeyringStore creates a keychain-backed token store for the account.
// It probes the keyring once so an unusable backend fails at construction
// rather than mid-run.
func NewKeyringStore(account string) (*KeyringStore, error) {
	probe := "availability_probe"
	if err := keyring.Set(keyringService, probe, "ok"); err != nil {
		return nil, fmt.Errorf("keyring not available: %w", err)
	}
	_ = keyring.Delete(keyringService, probe)

	return &KeyringStore{account: account}, nil
}

func (s *KeyringStore) key() string {
	return keyringKey + "_" + s.account
}

// Load reads the persisted token from the keychain.
func (s *KeyringStore) Load() (*AuthToken, error) {
	data, err := keyring.Get(keyringService, s.key())
	if err != nil {
		if err == keyring.ErrNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read keyring: %w", err)
	}

	var token AuthToken
	if err := json.Unmarshal([]byte(data), &token); err != nil {
		return nil, errs.Wrap(errs.KindStateCorrupt, 0, err, "keyring token record is malformed")
	}

	return &token, nil
}

// Save writes the token to the keychain. Keyring writes are atomic at the
// secret-service level.
func (s *KeyringStore) Save(token *AuthToken) error {
	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}

	if err := keyring.Set(keyringService, s.key(), string(data)); err != nil {
		return fmt.Errorf("failed to write keyring: %w", err)
	}

	return nil
}

// Exists checks whether a token record is present.
func (s *KeyringStore) Exists() bool {
	_, err := keyring.Get(keyringService, s.key())
	return err == nil
}
