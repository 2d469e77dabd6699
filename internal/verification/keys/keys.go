// Package keys manages signing keypairs for verification nodes and the
// symmetric envelopes that protect node private keys at rest.
package keys

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"

	dErrors "github.com/dragoonbuster/MeatSocial/pkg/domain-errors"
)

const (
	// PublicKeySize is the expected decoded length of a node public key.
	PublicKeySize = ed25519.PublicKeySize

	saltSize  = 32
	nonceLen  = 32
	keyLen    = chacha20poly1305.KeySize
	proofAlgo = "ed25519"

	// argon2id work factor. Tuned to be deliberately slow; the KDF runs off
	// any latency-sensitive request path.
	kdfTime    = 3
	kdfMemory  = 64 * 1024
	kdfThreads = 4
)

// GenerateSigningKeyPair produces an ed25519 keypair for a verification node.
// Both halves are returned base64-encoded; the public key decodes to exactly
// PublicKeySize bytes.
func GenerateSigningKeyPair() (publicKey, privateKey string, err error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return "", "", fmt.Errorf("generate signing keypair: %w", err)
	}
	return base64.StdEncoding.EncodeToString(pub),
		base64.StdEncoding.EncodeToString(priv), nil
}

// DeriveKey runs a slow, salted KDF (argon2id) over the password, producing a
// 32-byte symmetric key. When salt is nil a fresh random 32-byte salt is
// generated and returned alongside the key.
func DeriveKey(password string, salt []byte) (key, outSalt []byte, err error) {
	if salt == nil {
		salt = make([]byte, saltSize)
		if _, err := rand.Read(salt); err != nil {
			return nil, nil, fmt.Errorf("generate salt: %w", err)
		}
	}
	key = argon2.IDKey([]byte(password), salt, kdfTime, kdfMemory, kdfThreads, keyLen)
	return key, salt, nil
}

// EncryptedKey is a node private key sealed under a password-derived key.
type EncryptedKey struct {
	Ciphertext []byte `json:"ciphertext"`
	Salt       []byte `json:"salt"`
	Nonce      []byte `json:"nonce"`
}

// EncryptPrivateKey seals a base64-encoded private key under the password
// using XChaCha20-Poly1305 with an argon2id-derived key.
func EncryptPrivateKey(privateKey, password string) (EncryptedKey, error) {
	raw, err := base64.StdEncoding.DecodeString(privateKey)
	if err != nil {
		return EncryptedKey{}, dErrors.New(dErrors.CodeInvalidInput, "private key is not valid base64")
	}
	defer zeroBytes(raw)
	key, salt, err := DeriveKey(password, nil)
	if err != nil {
		return EncryptedKey{}, err
	}
	defer zeroBytes(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return EncryptedKey{}, fmt.Errorf("init aead: %w", err)
	}
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return EncryptedKey{}, fmt.Errorf("generate nonce: %w", err)
	}

	return EncryptedKey{
		Ciphertext: aead.Seal(nil, nonce, raw, nil),
		Salt:       salt,
		Nonce:      nonce,
	}, nil
}

// DecryptPrivateKey opens a sealed private key. Wrong password and corrupted
// ciphertext surface as the same decryption_failure code so callers cannot
// distinguish them (oracle avoidance).
func DecryptPrivateKey(enc EncryptedKey, password string) (string, error) {
	if len(enc.Salt) != saltSize || len(enc.Nonce) != chacha20poly1305.NonceSizeX {
		return "", dErrors.New(dErrors.CodeDecryptionFailure, "could not decrypt private key")
	}
	key, _, err := DeriveKey(password, enc.Salt)
	if err != nil {
		return "", err
	}
	defer zeroBytes(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return "", fmt.Errorf("init aead: %w", err)
	}
	raw, err := aead.Open(nil, enc.Nonce, enc.Ciphertext, nil)
	if err != nil {
		return "", dErrors.New(dErrors.CodeDecryptionFailure, "could not decrypt private key")
	}
	defer zeroBytes(raw)
	return base64.StdEncoding.EncodeToString(raw), nil
}

// ValidatePublicKey reports whether encoded is base64 for a key of exactly
// PublicKeySize bytes. Run this before trusting externally supplied keys.
func ValidatePublicKey(encoded string) bool {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return false
	}
	return len(raw) == PublicKeySize
}

// GenerateNonce returns a cryptographically secure random challenge value,
// base64url-encoded.
func GenerateNonce() (string, error) {
	buf := make([]byte, nonceLen)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// DecodePrivateKey parses a base64-encoded ed25519 private key, accepting
// either a 32-byte seed or the full 64-byte key.
func DecodePrivateKey(encoded string) (ed25519.PrivateKey, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "private key is not valid base64")
	}
	switch len(raw) {
	case ed25519.SeedSize:
		return ed25519.NewKeyFromSeed(raw), nil
	case ed25519.PrivateKeySize:
		return ed25519.PrivateKey(raw), nil
	default:
		return nil, dErrors.New(dErrors.CodeInvalidInput, "invalid ed25519 private key length")
	}
}

// DecodePublicKey parses a base64-encoded ed25519 public key.
func DecodePublicKey(encoded string) (ed25519.PublicKey, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "public key is not valid base64")
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "invalid ed25519 public key length")
	}
	return ed25519.PublicKey(raw), nil
}

func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
