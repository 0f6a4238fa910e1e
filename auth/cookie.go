package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

type (
	// CookieCodec encrypts cookie values with AES-256-GCM.
	//
	// Values are encoded as `hex(iv):hex(ciphertext):hex(tag)` with a 16
	// byte iv and a 16 byte tag.
	CookieCodec struct {
		aead cipher.AEAD
		rand io.Reader
	}
)

const (
	cookieKeySalt       = "salt"
	cookieKeyIterations = 100000
	cookieKeySize       = 32
	cookieIVSize        = 16
)

// NewCookieCodec derives the encryption key from secret. The derivation is
// slow on purpose, build one codec and share it.
func NewCookieCodec(secret []byte) (*CookieCodec, error) {
	key := pbkdf2.Key(secret, []byte(cookieKeySalt), cookieKeyIterations, cookieKeySize, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("unable to create cookie cipher, cause %w", err)
	}
	aead, err := cipher.NewGCMWithNonceSize(block, cookieIVSize)
	if err != nil {
		return nil, fmt.Errorf("unable to create cookie cipher, cause %w", err)
	}
	return &CookieCodec{aead: aead, rand: rand.Reader}, nil
}

func (c *CookieCodec) Encrypt(plain string) (string, error) {
	iv := make([]byte, cookieIVSize)
	_, err := io.ReadFull(c.rand, iv)
	if err != nil {
		return "", fmt.Errorf("unable to generate cookie iv, cause %w", err)
	}
	sealed := c.aead.Seal(nil, iv, []byte(plain), nil)
	split := len(sealed) - c.aead.Overhead()
	return strings.Join([]string{
		hex.EncodeToString(iv),
		hex.EncodeToString(sealed[:split]),
		hex.EncodeToString(sealed[split:]),
	}, ":"), nil
}

// Decrypt opens a value produced by Encrypt. Anything that does not
// authenticate yields ("", false).
func (c *CookieCodec) Decrypt(envelope string) (string, bool) {
	parts := strings.Split(envelope, ":")
	if len(parts) != 3 {
		return "", false
	}
	iv, err := hex.DecodeString(parts[0])
	if err != nil || len(iv) != cookieIVSize {
		return "", false
	}
	ciphertext, err := hex.DecodeString(parts[1])
	if err != nil {
		return "", false
	}
	tag, err := hex.DecodeString(parts[2])
	if err != nil || len(tag) != c.aead.Overhead() {
		return "", false
	}
	plain, err := c.aead.Open(nil, iv, append(ciphertext, tag...), nil)
	if err != nil {
		return "", false
	}
	return string(plain), true
}
