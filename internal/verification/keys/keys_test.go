package keys

import (
	"crypto/ed25519"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "github.com/dragoonbuster/MeatSocial/pkg/domain-errors"
)

func TestGenerateSigningKeyPair(t *testing.T) {
	pub, priv, err := GenerateSigningKeyPair()
	require.NoError(t, err)

	rawPub, err := base64.StdEncoding.DecodeString(pub)
	require.NoError(t, err)
	assert.Len(t, rawPub, PublicKeySize)

	rawPriv, err := base64.StdEncoding.DecodeString(priv)
	require.NoError(t, err)
	assert.Len(t, rawPriv, ed25519.PrivateKeySize)

	// the halves must actually pair up
	msg := []byte("ceremony digest")
	sig := ed25519.Sign(rawPriv, msg)
	assert.True(t, ed25519.Verify(rawPub, msg, sig))
}

func TestDeriveKeyDeterministicForSameSalt(t *testing.T) {
	key1, salt, err := DeriveKey("correct horse battery staple", nil)
	require.NoError(t, err)
	assert.Len(t, key1, 32)
	assert.Len(t, salt, 32)

	key2, _, err := DeriveKey("correct horse battery staple", salt)
	require.NoError(t, err)
	assert.Equal(t, key1, key2)

	key3, _, err := DeriveKey("different password", salt)
	require.NoError(t, err)
	assert.NotEqual(t, key1, key3)
}

func TestDeriveKeyFreshSaltPerCall(t *testing.T) {
	_, salt1, err := DeriveKey("pw", nil)
	require.NoError(t, err)
	_, salt2, err := DeriveKey("pw", nil)
	require.NoError(t, err)
	assert.NotEqual(t, salt1, salt2)
}

func TestEncryptDecryptPrivateKeyRoundTrip(t *testing.T) {
	_, priv, err := GenerateSigningKeyPair()
	require.NoError(t, err)

	enc, err := EncryptPrivateKey(priv, "node operator passphrase")
	require.NoError(t, err)
	assert.NotEmpty(t, enc.Ciphertext)
	assert.Len(t, enc.Salt, 32)

	plain, err := DecryptPrivateKey(enc, "node operator passphrase")
	require.NoError(t, err)
	assert.Equal(t, priv, plain)
}

func TestDecryptPrivateKeyReturnsUsableKey(t *testing.T) {
	// the envelope wipes its plaintext buffers after use; the returned
	// encoding must not alias them
	pub, priv, err := GenerateSigningKeyPair()
	require.NoError(t, err)

	enc, err := EncryptPrivateKey(priv, "passphrase")
	require.NoError(t, err)
	plain, err := DecryptPrivateKey(enc, "passphrase")
	require.NoError(t, err)

	signer, err := DecodePrivateKey(plain)
	require.NoError(t, err)
	rawPub, err := base64.StdEncoding.DecodeString(pub)
	require.NoError(t, err)

	msg := []byte("ceremony digest")
	assert.True(t, ed25519.Verify(rawPub, msg, ed25519.Sign(signer, msg)))
}

func TestDecryptPrivateKeyWrongPassword(t *testing.T) {
	_, priv, err := GenerateSigningKeyPair()
	require.NoError(t, err)

	enc, err := EncryptPrivateKey(priv, "right password")
	require.NoError(t, err)

	_, err = DecryptPrivateKey(enc, "wrong password")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeDecryptionFailure))
}

func TestDecryptPrivateKeyCorruptedCiphertext(t *testing.T) {
	_, priv, err := GenerateSigningKeyPair()
	require.NoError(t, err)

	enc, err := EncryptPrivateKey(priv, "password")
	require.NoError(t, err)
	enc.Ciphertext[0] ^= 0xFF

	_, err = DecryptPrivateKey(enc, "password")
	require.Error(t, err)
	// corrupted data and wrong password must be indistinguishable
	assert.True(t, dErrors.HasCode(err, dErrors.CodeDecryptionFailure))
}

func TestDecryptPrivateKeyMalformedEnvelope(t *testing.T) {
	_, err := DecryptPrivateKey(EncryptedKey{Ciphertext: []byte("junk")}, "password")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeDecryptionFailure))
}

func TestValidatePublicKey(t *testing.T) {
	pub, _, err := GenerateSigningKeyPair()
	require.NoError(t, err)

	assert.True(t, ValidatePublicKey(pub))
	assert.False(t, ValidatePublicKey("not base64!!!"))
	assert.False(t, ValidatePublicKey(base64.StdEncoding.EncodeToString([]byte("short"))))
	assert.False(t, ValidatePublicKey(""))
}

func TestGenerateNonce(t *testing.T) {
	n1, err := GenerateNonce()
	require.NoError(t, err)
	n2, err := GenerateNonce()
	require.NoError(t, err)

	assert.NotEqual(t, n1, n2)
	raw, err := base64.RawURLEncoding.DecodeString(n1)
	require.NoError(t, err)
	assert.Len(t, raw, 32)
}

func TestDecodePrivateKeyAcceptsSeedAndFullKey(t *testing.T) {
	_, priv, err := GenerateSigningKeyPair()
	require.NoError(t, err)

	full, err := DecodePrivateKey(priv)
	require.NoError(t, err)

	seed := base64.StdEncoding.EncodeToString(full.Seed())
	fromSeed, err := DecodePrivateKey(seed)
	require.NoError(t, err)
	assert.Equal(t, full, fromSeed)

	_, err = DecodePrivateKey(base64.StdEncoding.EncodeToString([]byte("bad length")))
	assert.Error(t, err)
}
