package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"golang.org/x/crypto/scrypt"

	"quint/internal/fault"
)

// The salt is fixed: the master key is the secret, the salt only stops
// precomputed tables from being shared across deployments of other software.
const kdfSalt = "quint.vault.v1"

const (
	ivSize  = 16
	tagSize = 16
)

// Bundle is the at-rest form of an encrypted secret. All fields hex-encoded.
type Bundle struct {
	IV         string `json:"iv"`
	AuthTag    string `json:"authTag"`
	Ciphertext string `json:"ciphertext"`
}

// Vault encrypts and decrypts provider API keys. It is the only component
// that handles plaintext secrets.
type Vault struct {
	aead cipher.AEAD
}

// New derives a 256-bit key from the master key via scrypt and prepares the
// AES-GCM cipher. The scrypt cost is paid once here, not per operation.
func New(masterKey string) (*Vault, error) {
	if masterKey == "" {
		return nil, fmt.Errorf("%w: master key is empty", fault.ErrValidation)
	}
	key, err := scrypt.Key([]byte(masterKey), []byte(kdfSalt), 1<<15, 8, 1, 32)
	if err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}
	aead, err := cipher.NewGCMWithNonceSize(block, ivSize)
	if err != nil {
		return nil, fmt.Errorf("new gcm: %w", err)
	}
	return &Vault{aead: aead}, nil
}

// Encrypt seals plaintext with a fresh random 128-bit IV. IVs are never reused.
func (v *Vault) Encrypt(plaintext string) (Bundle, error) {
	iv := make([]byte, ivSize)
	if _, err := rand.Read(iv); err != nil {
		return Bundle{}, fmt.Errorf("%w: iv: %v", fault.ErrEncryption, err)
	}
	sealed := v.aead.Seal(nil, iv, []byte(plaintext), nil)
	if len(sealed) < tagSize {
		return Bundle{}, fmt.Errorf("%w: short sealed output", fault.ErrEncryption)
	}
	split := len(sealed) - tagSize
	return Bundle{
		IV:         hex.EncodeToString(iv),
		AuthTag:    hex.EncodeToString(sealed[split:]),
		Ciphertext: hex.EncodeToString(sealed[:split]),
	}, nil
}

// Decrypt opens a bundle. A failed auth tag (tamper or wrong master key)
// returns fault.ErrIntegrity; corrupt hex returns fault.ErrDecryption.
// No partial plaintext is ever returned.
func (v *Vault) Decrypt(b Bundle) (string, error) {
	iv, err := hex.DecodeString(b.IV)
	if err != nil {
		return "", fmt.Errorf("%w: decode iv: %v", fault.ErrDecryption, err)
	}
	if len(iv) != ivSize {
		return "", fmt.Errorf("%w: iv must be %d bytes", fault.ErrDecryption, ivSize)
	}
	tag, err := hex.DecodeString(b.AuthTag)
	if err != nil {
		return "", fmt.Errorf("%w: decode auth tag: %v", fault.ErrDecryption, err)
	}
	ciphertext, err := hex.DecodeString(b.Ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: decode ciphertext: %v", fault.ErrDecryption, err)
	}
	plaintext, err := v.aead.Open(nil, iv, append(ciphertext, tag...), nil)
	if err != nil {
		return "", fault.ErrIntegrity
	}
	return string(plaintext), nil
}

// EncryptForStorage seals value into a single transportable string.
func (v *Vault) EncryptForStorage(value string) (string, error) {
	b, err := v.Encrypt(value)
	if err != nil {
		return "", err
	}
	raw, err := json.Marshal(b)
	if err != nil {
		return "", fmt.Errorf("%w: marshal bundle: %v", fault.ErrEncryption, err)
	}
	return string(raw), nil
}

// DecryptFromStorage reverses EncryptForStorage.
func (v *Vault) DecryptFromStorage(raw string) (string, error) {
	var b Bundle
	if err := json.Unmarshal([]byte(raw), &b); err != nil {
		return "", fmt.Errorf("%w: unmarshal bundle: %v", fault.ErrDecryption, err)
	}
	return v.Decrypt(b)
}
