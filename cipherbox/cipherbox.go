// Package cipherbox encrypts whole transfer payloads with a key shared by all peers.
//
// The AES-CBC box uses a fixed key and a fixed IV and carries no authentication tag.
// Identical plaintexts produce identical ciphertexts and tampering is only caught when it
// breaks the padding. Callers depend on the Box interface so the scheme can be replaced
// without touching the wire format code.
package cipherbox

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"errors"
	"fmt"
)

const (
	KeySize = 32
	IVSize  = aes.BlockSize
)

var (
	ErrDecryption    = errors.New("decryption failed")
	ErrInvalidKeyLen = errors.New("key must be 32 bytes")
	ErrInvalidIVLen  = errors.New("iv must be 16 bytes")

	// DefaultKey and DefaultIV match the material deployed on existing peers.
	DefaultKey = []byte{
		0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08,
		0x09, 0x10, 0x11, 0x12, 0x13, 0x14, 0x15, 0x16,
		0x17, 0x18, 0x19, 0x20, 0x21, 0x22, 0x23, 0x24,
		0x25, 0x26, 0x27, 0x28, 0x29, 0x30, 0x31, 0x32,
	}
	DefaultIV = []byte{
		0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08,
		0x09, 0x10, 0x11, 0x12, 0x13, 0x14, 0x15, 0x16,
	}
)

// Box encrypts and decrypts complete payloads.
type Box interface {
	Encrypt(plaintext []byte) ([]byte, error)
	Decrypt(ciphertext []byte) ([]byte, error)
}

// AESCBC is AES-256 in CBC mode with PKCS#7 padding.
// It holds no mutable state and is safe for concurrent use.
type AESCBC struct {
	block cipher.Block
	iv    []byte
}

func New(key, iv []byte) (*AESCBC, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKeyLen
	}
	if len(iv) != IVSize {
		return nil, ErrInvalidIVLen
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	return &AESCBC{
		block: block,
		iv:    bytes.Clone(iv),
	}, nil
}

// NewDefault returns a box keyed with DefaultKey and DefaultIV.
func NewDefault() *AESCBC {
	box, err := New(DefaultKey, DefaultIV)
	if err != nil {
		panic(err)
	}
	return box
}

func (a *AESCBC) Encrypt(plaintext []byte) ([]byte, error) {
	padded := pad(plaintext, aes.BlockSize)

	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(a.block, a.iv).CryptBlocks(out, padded)

	return out, nil
}

func (a *AESCBC) Decrypt(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("%w: ciphertext length %d is not a positive multiple of %d",
			ErrDecryption, len(ciphertext), aes.BlockSize)
	}

	out := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(a.block, a.iv).CryptBlocks(out, ciphertext)

	return unpad(out, aes.BlockSize)
}

func pad(data []byte, size int) []byte {
	n := size - len(data)%size

	out := make([]byte, len(data), len(data)+n)
	copy(out, data)

	return append(out, bytes.Repeat([]byte{byte(n)}, n)...)
}

func unpad(data []byte, size int) ([]byte, error) {
	n := int(data[len(data)-1])
	if n == 0 || n > size || n > len(data) {
		return nil, fmt.Errorf("%w: invalid padding", ErrDecryption)
	}

	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, fmt.Errorf("%w: invalid padding", ErrDecryption)
		}
	}

	return data[:len(data)-n], nil
}
