// Package crypto provides AES-256-GCM encryption and decryption for
// sensitive provider configuration data such as API tokens and credentials.
//
// Encrypted values are stored inside provider config JSON as strings with the
// "enc:v1:" prefix followed by base64(nonce || ciphertext). The orchestrator
// decrypts these sub-fields before handing the config to a driver; everything
// else in the config passes through untouched.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"io"
	"strings"

	"golang.org/x/crypto/pbkdf2"

	"commerce-router/internal/common/errors"
)

// EncPrefix marks an encrypted string value inside provider config JSON.
const EncPrefix = "enc:v1:"

// ConfigEncryptor handles encryption and decryption of sensitive provider
// configuration fields using AES-256-GCM. It provides authenticated
// encryption, so tampered ciphertexts fail to decrypt.
//
// The encryptor is safe for concurrent use by multiple goroutines.
type ConfigEncryptor struct {
	key []byte // 32-byte AES-256 encryption key
}

// NewConfigEncryptor creates a new ConfigEncryptor with the provided key.
//
// The key is processed with PBKDF2 so any non-empty passphrase yields a
// proper 32-byte AES-256 key. Store the passphrase in the environment, never
// in source or the database.
func NewConfigEncryptor(key string) (*ConfigEncryptor, error) {
	if key == "" {
		return nil, errors.ValidationError("encryption key cannot be empty")
	}

	// Static salt keeps derivation deterministic across restarts
	salt := []byte("commerce-router-salt")
	derivedKey := pbkdf2.Key([]byte(key), salt, 10000, 32, sha256.New)

	return &ConfigEncryptor{key: derivedKey}, nil
}

// Encrypt encrypts a plaintext string and returns it in stored form,
// including the "enc:v1:" prefix. Empty strings pass through unencrypted.
func (e *ConfigEncryptor) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	block, err := aes.NewCipher(e.key)
	if err != nil {
		return "", errors.InternalError("failed to create cipher", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", errors.InternalError("failed to create GCM", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", errors.InternalError("failed to create nonce", err)
	}

	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)

	return EncPrefix + base64.StdEncoding.EncodeToString(ciphertext), nil
}

// Decrypt decrypts a stored value produced by Encrypt. Values without the
// "enc:v1:" prefix are returned unchanged, so callers can pass every config
// field through without tracking which ones are encrypted.
func (e *ConfigEncryptor) Decrypt(stored string) (string, error) {
	if !strings.HasPrefix(stored, EncPrefix) {
		return stored, nil
	}

	data, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(stored, EncPrefix))
	if err != nil {
		return "", errors.ValidationError("malformed encrypted value")
	}

	block, err := aes.NewCipher(e.key)
	if err != nil {
		return "", errors.InternalError("failed to create cipher", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", errors.InternalError("failed to create GCM", err)
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return "", errors.ValidationError("ciphertext too short")
	}

	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", errors.InternalError("failed to decrypt", err)
	}

	return string(plaintext), nil
}

// DecryptMap walks a decoded provider config and decrypts every string value
// carrying the "enc:v1:" prefix, descending into nested maps. The input map
// is not modified; a decrypted copy is returned.
func (e *ConfigEncryptor) DecryptMap(config map[string]interface{}) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(config))
	for k, v := range config {
		switch val := v.(type) {
		case string:
			plain, err := e.Decrypt(val)
			if err != nil {
				return nil, errors.InternalError("failed to decrypt config field "+k, err)
			}
			out[k] = plain
		case map[string]interface{}:
			nested, err := e.DecryptMap(val)
			if err != nil {
				return nil, err
			}
			out[k] = nested
		default:
			out[k] = v
		}
	}
	return out, nil
}
