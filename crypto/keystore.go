package crypto

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
)

type keystoreOptions struct {
	scryptN int
	scryptP int
}

// KeystoreOption tunes how SaveToKeystore encrypts a key.
type KeystoreOption func(*keystoreOptions)

// LightScrypt selects the cheap scrypt parameters. Use it for local
// development keys only.
func LightScrypt() KeystoreOption {
	return func(o *keystoreOptions) {
		o.scryptN = keystore.LightScryptN
		o.scryptP = keystore.LightScryptP
	}
}

// SaveToKeystore writes the signing key of a marketplace account to a v3
// keystore file. Missing parent directories are created with 0700
// permissions and the file is replaced atomically.
func SaveToKeystore(path string, key *PrivateKey, passphrase string, opts ...KeystoreOption) error {
	if key == nil || key.PrivateKey == nil {
		return errors.New("crypto: nil private key")
	}
	if path == "" {
		return errors.New("crypto: empty keystore path")
	}
	cfg := keystoreOptions{scryptN: keystore.StandardScryptN, scryptP: keystore.StandardScryptP}
	for _, opt := range opts {
		opt(&cfg)
	}

	id, err := uuid.NewRandom()
	if err != nil {
		return err
	}
	encrypted, err := keystore.EncryptKey(&keystore.Key{
		Id:         id,
		Address:    ethcrypto.PubkeyToAddress(key.PublicKey),
		PrivateKey: key.PrivateKey,
	}, passphrase, cfg.scryptN, cfg.scryptP)
	if err != nil {
		return fmt.Errorf("crypto: encrypt keystore: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".keystore-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(encrypted); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// LoadFromKeystore decrypts a v3 keystore file using the supplied passphrase.
// The decrypted key must match the address recorded in the file.
func LoadFromKeystore(path, passphrase string) (*PrivateKey, error) {
	if path == "" {
		return nil, errors.New("crypto: empty keystore path")
	}
	keyJSON, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("crypto: keystore unavailable: %w", err)
	}
	decrypted, err := keystore.DecryptKey(keyJSON, passphrase)
	if err != nil {
		return nil, err
	}
	derived := ethcrypto.PubkeyToAddress(decrypted.PrivateKey.PublicKey)
	if !bytes.Equal(derived.Bytes(), decrypted.Address.Bytes()) {
		return nil, fmt.Errorf("crypto: keystore %s address does not match its key", path)
	}
	return &PrivateKey{PrivateKey: decrypted.PrivateKey}, nil
}
