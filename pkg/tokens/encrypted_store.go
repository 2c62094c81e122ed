package tokens

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/term"

	errs "github.com/akashpandey/Reddit-Fetch/pkg/errors"
)

const (
	saltSize   = 32
	keySize    = 32
	iterations = 100000
)

// EncryptedFileStore keeps the credential record in an AES-GCM encrypted
// file, for machines without a usable system keychain.
type EncryptedFileStore struct {
	path       string
	passphrase string
}

type encryptedFile struct {
	Salt      string    `json:"salt"`
	Encrypted string    `json:"encrypted"`
	Version   int       `json:"version"`
	Modified  time.Time `json:"modified"`
}

// NewEncryptedFileStore creates an encrypted token store. The passphrase
// comes from REDDITFETCH_PASSPHRASE, falling back to an interactive prompt
// when stdin is a terminal.
func NewEncryptedFileStore(path string) (*EncryptedFileStore, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("failed to create token directory: %w", err)
		}
	}

	passphrase, err := resolvePassphrase()
	if err != nil {
		return nil, err
	}

	return &EncryptedFileStore{path: path, passphrase: passphrase}, nil
}

func resolvePassphrase() (string, error) {
	if pass := os.Getenv("REDDITFETCH_PASSPHRASE"); pass != "" {
		return pass, nil
	}

	if !term.IsTerminal(int(syscall.Stdin)) {
		return "", errors.New("REDDITFETCH_PASSPHRASE is not set and stdin is not a terminal")
	}

	fmt.Fprint(os.Stderr, "Token store passphrase: ")
	pass, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read passphrase: %w", err)
	}
	if len(pass) == 0 {
		return "", errors.New("empty passphrase")
	}

	return string(pass), nil
}

// Load reads and decrypts the persisted token.
func (s *EncryptedFileStore) Load() (*AuthToken, error) {
	content, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}

	var file encryptedFile
	if err := json.Unmarshal(content, &file); err != nil {
		return nil, errs.Wrap(errs.KindStateCorrupt, 0, err, fmt.Sprintf("token file %s is malformed", s.path))
	}

	salt, err := base64.StdEncoding.DecodeString(file.Salt)
	if err != nil {
		return nil, errs.Wrap(errs.KindStateCorrupt, 0, err, "token file salt is malformed")
	}
	ciphertext, err := base64.StdEncoding.DecodeString(file.Encrypted)
	if err != nil {
		return nil, errs.Wrap(errs.KindStateCorrupt, 0, err, "token file payload is malformed")
	}

	key := pbkdf2.Key([]byte(s.passphrase), salt, iterations, keySize, sha256.New)

	plaintext, err := decrypt(ciphertext, key)
	if err != nil {
		return nil, errs.Wrap(errs.KindStateCorrupt, 0, err, "token file could not be decrypted")
	}

	var token AuthToken
	if err := json.Unmarshal(plaintext, &token); err != nil {
		return nil, errs.Wrap(errs.KindStateCorrupt, 0, err, "decrypted token record is malformed")
	}

	return &token, nil
}

// Save encrypts and writes the token atomically.
func (s *EncryptedFileStore) Save(token *AuthToken) error {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return fmt.Errorf("failed to generate salt: %w", err)
	}

	key := pbkdf2.Key([]byte(s.passphrase), salt, iterations, keySize, sha256.New)

	plaintext, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}

	ciphertext, err := encrypt(plaintext, key)
	if err != nil {
		return fmt.Errorf("failed to encrypt token: %w", err)
	}

	file := encryptedFile{
		Salt:      base64.StdEncoding.EncodeToString(salt),
		Encrypted: base64.StdEncoding.EncodeToString(ciphertext),
		Version:   1,
		Modified:  time.Now(),
	}

	content, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode token file: %w", err)
	}

	tempPath := s.path + ".tmp"
	if err := os.WriteFile(tempPath, content, 0o600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}

	if err := os.Rename(tempPath, s.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace token file: %w", err)
	}

	return nil
}

// Exists checks whether a token record is present.
func (s *EncryptedFileStore) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

func encrypt(plaintext, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func decrypt(ciphertext, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}

	nonce, ciphertext := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]
	return gcm.Open(nil, nonce, ciphertext, nil)
}
