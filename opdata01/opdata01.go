// Package opdata01 reads and writes the authenticated encryption envelope
// that wraps every secret in an OPVault: key blobs, item details, item and
// folder overviews, and attachment icons and contents.
//
// The envelope is strictly authenticate-then-decrypt. The trailing
// HMAC-SHA256 covers the full header and ciphertext and is verified before
// a single header byte is interpreted, so a wrong key or a tampered blob
// surfaces as ErrInvalidHmac and nothing else.
package opdata01

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"

	vaultcrypto "github.com/go-opvault/opvault/crypto"
)

// Envelope layout, all little-endian:
//
//	 8 bytes - magic "opdata01"
//	 8 bytes - plaintext length L
//	16 bytes - IV
//	 N bytes - ciphertext, N a multiple of 16, N >= L
//	32 bytes - HMAC-SHA256 over everything above
//
// The ciphertext is front-padded with random bytes to a block boundary;
// the plaintext is always the last L bytes of the raw decryption.
const (
	headerSize  = 32
	minEnvelope = headerSize + aes.BlockSize + vaultcrypto.MACSize
)

var magic = []byte("opdata01")

var (
	// ErrInvalidHmac reports an envelope whose MAC did not verify: the
	// wrong key, a wrong password upstream, or tampering. The two are
	// deliberately not distinguished.
	ErrInvalidHmac = errors.New("opdata01: invalid HMAC")
	// ErrInvalidHeader reports an authenticated envelope whose magic
	// bytes are wrong.
	ErrInvalidHeader = errors.New("opdata01: invalid header")
	// ErrShortInput reports data too short to hold an envelope, or a
	// length field pointing past the ciphertext.
	ErrShortInput = errors.New("opdata01: input too short")
)

// Decrypt authenticates data under macKey, then decrypts it under encKey
// and returns the plaintext. No partial output is ever returned: any
// failure yields a nil slice and either one of the package errors or a
// vaultcrypto error from the cipher layer.
func Decrypt(data, encKey, macKey []byte) ([]byte, error) {
	if len(data) < minEnvelope {
		return nil, ErrShortInput
	}

	body, ok := vaultcrypto.VerifyTrailingMAC(data, macKey)
	if !ok {
		return nil, ErrInvalidHmac
	}

	if !bytes.Equal(body[:len(magic)], magic) {
		return nil, ErrInvalidHeader
	}
	ptLen := binary.LittleEndian.Uint64(body[8:16])
	iv := body[16:headerSize]
	ciphertext := body[headerSize:]
	if ptLen > uint64(len(ciphertext)) {
		return nil, ErrShortInput
	}

	plaintext, err := vaultcrypto.DecryptAESCBCNoPad(encKey, iv, ciphertext)
	if err != nil {
		return nil, err
	}

	// The leading len(plaintext)-L bytes are the writer's random padding.
	return plaintext[len(plaintext)-int(ptLen):], nil
}

// Seal wraps plaintext in an opdata01 envelope under encKey and macKey.
// The vault itself is never written to, but fixtures and round-trip tests
// need the writer, and keeping it beside Decrypt keeps the two views of
// the layout from drifting apart.
func Seal(plaintext, encKey, macKey []byte) ([]byte, error) {
	padLen := aes.BlockSize - len(plaintext)%aes.BlockSize
	padded := make([]byte, padLen+len(plaintext))
	if _, err := rand.Read(padded[:padLen]); err != nil {
		return nil, fmt.Errorf("opdata01: pad: %w", err)
	}
	copy(padded[padLen:], plaintext)

	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, fmt.Errorf("opdata01: iv: %w", err)
	}

	block, err := aes.NewCipher(encKey)
	if err != nil {
		return nil, fmt.Errorf("opdata01: %w", err)
	}
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	envelope := make([]byte, 0, headerSize+len(ciphertext)+vaultcrypto.MACSize)
	envelope = append(envelope, magic...)
	envelope = binary.LittleEndian.AppendUint64(envelope, uint64(len(plaintext)))
	envelope = append(envelope, iv...)
	envelope = append(envelope, ciphertext...)
	envelope = append(envelope, vaultcrypto.HMACSHA256(macKey, envelope)...)
	return envelope, nil
}
