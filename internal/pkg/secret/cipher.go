package secret

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
)

var ErrInvalidCiphertext = errors.New("invalid ciphertext")

// Cipher 用于加密落盘/落 Redis 的敏感字段（OAuth 令牌、生成接口 key）。
// 密文格式: hex(nonce):hex(sealed)
type Cipher struct {
	key []byte
}

// NewCipher key 取前 32 字节，不足时报错
func NewCipher(key string) (*Cipher, error) {
	if len(key) < chacha20poly1305.KeySize {
		return nil, fmt.Errorf("encryption key must be at least %d bytes", chacha20poly1305.KeySize)
	}
	return &Cipher{key: []byte(key)[:chacha20poly1305.KeySize]}, nil
}

func (c *Cipher) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	aead, err := chacha20poly1305.NewX(c.key)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := aead.Seal(nil, nonce, []byte(plaintext), nil)
	return hex.EncodeToString(nonce) + ":" + hex.EncodeToString(sealed), nil
}

func (c *Cipher) Decrypt(ciphertext string) (string, error) {
	if ciphertext == "" {
		return "", nil
	}
	nonceHex, sealedHex, ok := strings.Cut(ciphertext, ":")
	if !ok {
		return "", ErrInvalidCiphertext
	}
	nonce, err := hex.DecodeString(nonceHex)
	if err != nil {
		return "", ErrInvalidCiphertext
	}
	sealed, err := hex.DecodeString(sealedHex)
	if err != nil {
		return "", ErrInvalidCiphertext
	}

	aead, err := chacha20poly1305.NewX(c.key)
	if err != nil {
		return "", err
	}
	if len(nonce) != aead.NonceSize() {
		return "", ErrInvalidCiphertext
	}

	plain, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", ErrInvalidCiphertext
	}
	return string(plain), nil
}
