// Package vaultcrypto wraps the primitives the OPVault format is built
// from: PBKDF2-HMAC-SHA512 for the password-derived key, SHA-512 for key
// stretching, HMAC-SHA256 for record authentication, and AES-256-CBC
// without padding for the opdata01 payload layer.
//
// Every authenticated blob in the format carries its MAC as a 32-byte
// trailer over everything before it; VerifyTrailingMAC implements that
// split-and-compare once so callers never hand-roll the offset math.
package vaultcrypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"errors"
	"fmt"
	"hash"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// DerivedKeySize is the output size of the password derivation, an
	// encryption key and a MAC key back to back.
	DerivedKeySize = 64
	// EncKeySize is the AES-256 key size.
	EncKeySize = 32
	// MACKeySize is the HMAC-SHA256 key size used throughout the format.
	MACKeySize = 32
	// MACSize is the size of every trailing MAC in the format.
	MACSize = sha256.Size
)

var (
	// ErrKeySize reports an encryption key that is not EncKeySize bytes.
	ErrKeySize = errors.New("vaultcrypto: encryption key must be 32 bytes")
	// ErrIVSize reports an IV that is not one AES block.
	ErrIVSize = errors.New("vaultcrypto: iv must be 16 bytes")
	// ErrBlockAlign reports ciphertext that is not a whole number of AES
	// blocks. The format never produces unaligned ciphertext.
	ErrBlockAlign = errors.New("vaultcrypto: ciphertext not a multiple of the block size")
)

// DeriveKey runs PBKDF2-HMAC-SHA512 over the password and salt and returns
// the 64-byte derived key: bytes [0,32) decrypt the sealed key blobs and
// bytes [32,64) authenticate them.
func DeriveKey(password, salt []byte, iterations int) []byte {
	return pbkdf2.Key(password, salt, iterations, DerivedKeySize, sha512.New)
}

// SHA512 hashes b. The format stretches every unsealed key seed through a
// single SHA-512 before splitting it into an encryption/verification pair.
func SHA512(b []byte) []byte {
	sum := sha512.Sum512(b)
	return sum[:]
}

// NewHMACSHA256 returns a streaming HMAC-SHA256 keyed with key. Item
// records are authenticated over a canonical field concatenation, which is
// fed to this incrementally rather than assembled in one buffer.
func NewHMACSHA256(key []byte) hash.Hash {
	return hmac.New(sha256.New, key)
}

// HMACSHA256 is the one-shot form of NewHMACSHA256.
func HMACSHA256(key, message []byte) []byte {
	h := hmac.New(sha256.New, key)
	h.Write(message)
	return h.Sum(nil)
}

// EqualMAC compares two MACs in constant time.
func EqualMAC(a, b []byte) bool {
	return hmac.Equal(a, b)
}

// VerifyTrailingMAC splits blob into data and a trailing 32-byte
// HMAC-SHA256, recomputes the MAC over the data under macKey, and compares
// in constant time. It returns the data and whether the MAC matched; a
// blob too short to carry a MAC never matches.
func VerifyTrailingMAC(blob, macKey []byte) ([]byte, bool) {
	if len(blob) < MACSize {
		return nil, false
	}
	data := blob[:len(blob)-MACSize]
	want := blob[len(blob)-MACSize:]
	if !hmac.Equal(want, HMACSHA256(macKey, data)) {
		return nil, false
	}
	return data, true
}

// DecryptAESCBCNoPad decrypts ciphertext with AES-256-CBC and returns the
// raw blocks. No padding is removed: opdata01 payloads carry an explicit
// plaintext length instead of PKCS#7 padding, and item keys are exactly
// four blocks.
func DecryptAESCBCNoPad(key, iv, ciphertext []byte) ([]byte, error) {
	if len(key) != EncKeySize {
		return nil, fmt.Errorf("%w (got %d)", ErrKeySize, len(key))
	}
	if len(iv) != aes.BlockSize {
		return nil, fmt.Errorf("%w (got %d)", ErrIVSize, len(iv))
	}
	if len(ciphertext)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("%w (got %d bytes)", ErrBlockAlign, len(ciphertext))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("vaultcrypto: %w", err)
	}
	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)
	return plaintext, nil
}
