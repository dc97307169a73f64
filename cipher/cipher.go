// Package cipher implements the fixed password-style key derivation and the
// two symmetric modes the SSE core relies on for deterministic trapdoors
// (AES-256-CBC) and the multi-user outer wrapper (AES-256-CTR).
//
// The derivation is the classic EVP_BytesToKey convention: repeatedly MD5
// the running digest concatenated with the password until enough bytes are
// available. It must never change once any domain key has been used to
// build a secure index, or existing trapdoors stop matching.
package cipher

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"crypto/rand"
	"fmt"
)

const KeySize = 32

// DeriveKeyIV turns a 32-byte domain key into an AES key and IV using the
// password-style derivation named in the scheme's interoperability note.
// password is used as-is, with no salt, matching the older cipher
// interface the scheme is pinned to.
func DeriveKeyIV(password []byte) (key [32]byte, iv [16]byte) {
	var prev []byte
	var stream []byte
	for len(stream) < 48 {
		h := md5.New()
		h.Write(prev)
		h.Write(password)
		prev = h.Sum(nil)
		stream = append(stream, prev...)
	}
	copy(key[:], stream[:32])
	copy(iv[:], stream[32:48])
	return
}

// EncryptCBC encrypts plaintext under domainKey with AES-256-CBC and
// PKCS#7 padding, using the IV derived from domainKey itself. The result is
// deterministic in (domainKey, plaintext), which is the point: it is how
// trapdoors are reproducible across parties holding the same domain key.
func EncryptCBC(domainKey [32]byte, plaintext []byte) ([]byte, error) {
	key, iv := DeriveKeyIV(domainKey[:])
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("cipher: new AES block: %w", err)
	}
	padded := pkcs7Pad(plaintext, block.BlockSize())
	out := make([]byte, len(padded))
	cbc := cipher.NewCBCEncrypter(block, iv[:])
	cbc.CryptBlocks(out, padded)
	return out, nil
}

// DecryptCBC reverses EncryptCBC.
func DecryptCBC(domainKey [32]byte, ciphertext []byte) ([]byte, error) {
	key, iv := DeriveKeyIV(domainKey[:])
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("cipher: new AES block: %w", err)
	}
	if len(ciphertext) == 0 || len(ciphertext)%block.BlockSize() != 0 {
		return nil, fmt.Errorf("cipher: ciphertext is not a multiple of the block size")
	}
	out := make([]byte, len(ciphertext))
	cbc := cipher.NewCBCDecrypter(block, iv[:])
	cbc.CryptBlocks(out, ciphertext)
	return pkcs7Unpad(out)
}

// EncryptCTR encrypts plaintext under sessionKey with AES-256-CTR, using a
// random nonce prepended to the ciphertext. Unlike EncryptCBC this mode is
// randomized: it is used only for the multi-user outer wrapper, never for
// trapdoor derivation.
func EncryptCTR(sessionKey [32]byte, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(sessionKey[:])
	if err != nil {
		return nil, fmt.Errorf("cipher: new AES block: %w", err)
	}
	nonce := make([]byte, block.BlockSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("cipher: read nonce: %w", err)
	}
	out := make([]byte, len(plaintext))
	ctr := cipher.NewCTR(block, nonce)
	ctr.XORKeyStream(out, plaintext)
	return append(nonce, out...), nil
}

// DecryptCTR reverses EncryptCTR.
func DecryptCTR(sessionKey [32]byte, ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(sessionKey[:])
	if err != nil {
		return nil, fmt.Errorf("cipher: new AES block: %w", err)
	}
	if len(ciphertext) < block.BlockSize() {
		return nil, fmt.Errorf("cipher: ciphertext shorter than nonce")
	}
	nonce, body := ciphertext[:block.BlockSize()], ciphertext[block.BlockSize():]
	out := make([]byte, len(body))
	ctr := cipher.NewCTR(block, nonce)
	ctr.XORKeyStream(out, body)
	return out, nil
}

func pkcs7Pad(b []byte, blockSize int) []byte {
	padLen := blockSize - len(b)%blockSize
	padded := make([]byte, len(b)+padLen)
	copy(padded, b)
	for i := len(b); i < len(padded); i++ {
		padded[i] = byte(padLen)
	}
	return padded
}

func pkcs7Unpad(b []byte) ([]byte, error) {
	if len(b) == 0 {
		return nil, fmt.Errorf("cipher: empty buffer")
	}
	padLen := int(b[len(b)-1])
	if padLen == 0 || padLen > len(b) {
		return nil, fmt.Errorf("cipher: invalid padding")
	}
	return b[:len(b)-padLen], nil
}
