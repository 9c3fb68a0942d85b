package config

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Keystore persists API keys encrypted at rest with AES-GCM. The cipher key
// lives in a separate secret file created with 0600 on first use, so a
// leaked keystore file alone reveals nothing.
type Keystore struct {
	mu   sync.Mutex
	path string
	aead cipher.AEAD
}

const secretLen = 32 // AES-256

// OpenKeystore opens (or initializes) the keystore under dir.
func OpenKeystore(dir string) (*Keystore, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create keystore dir: %w", err)
	}

	secret, err := loadOrCreateSecret(filepath.Join(dir, "keystore.secret"))
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(secret)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("init gcm: %w", err)
	}

	return &Keystore{
		path: filepath.Join(dir, "keystore.json"),
		aead: aead,
	}, nil
}

// Set stores an API key for a provider name.
func (k *Keystore) Set(provider, key string) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	entries, err := k.read()
	if err != nil {
		return err
	}

	sealed, err := k.seal([]byte(key))
	if err != nil {
		return err
	}
	entries[provider] = sealed
	return k.write(entries)
}

// Get returns the stored key for a provider, or "" when none is stored.
func (k *Keystore) Get(provider string) (string, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	entries, err := k.read()
	if err != nil {
		return "", err
	}
	sealed, ok := entries[provider]
	if !ok {
		return "", nil
	}
	plain, err := k.open(sealed)
	if err != nil {
		return "", fmt.Errorf("decrypt key for %s: %w", provider, err)
	}
	return string(plain), nil
}

// Delete removes a stored key.
func (k *Keystore) Delete(provider string) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	entries, err := k.read()
	if err != nil {
		return err
	}
	delete(entries, provider)
	return k.write(entries)
}

func (k *Keystore) seal(plain []byte) (string, error) {
	nonce := make([]byte, k.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("nonce: %w", err)
	}
	out := k.aead.Seal(nonce, nonce, plain, nil)
	return base64.StdEncoding.EncodeToString(out), nil
}

func (k *Keystore) open(sealed string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return nil, err
	}
	ns := k.aead.NonceSize()
	if len(raw) < ns {
		return nil, fmt.Errorf("ciphertext too short")
	}
	return k.aead.Open(nil, raw[:ns], raw[ns:], nil)
}

func (k *Keystore) read() (map[string]string, error) {
	data, err := os.ReadFile(k.path)
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read keystore: %w", err)
	}
	entries := map[string]string{}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse keystore: %w", err)
	}
	return entries, nil
}

func (k *Keystore) write(entries map[string]string) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(k.path, data, 0600)
}

func loadOrCreateSecret(path string) ([]byte, error) {
	secret, err := os.ReadFile(path)
	if err == nil {
		if len(secret) != secretLen {
			return nil, fmt.Errorf("secret file %s is corrupt", path)
		}
		return secret, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read secret: %w", err)
	}

	secret = make([]byte, secretLen)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("generate secret: %w", err)
	}
	if err := os.WriteFile(path, secret, 0600); err != nil {
		return nil, fmt.Errorf("write secret: %w", err)
	}
	return secret, nil
}
