// Package envelope implements the message-envelope external collaborator:
// an authenticated seal/open oracle over byte strings, in both a symmetric
// mode (a single shared key) and an asymmetric mode (a keychain of named
// public/private keypairs). The scheme's core treats this as opaque; this
// package supplies one concrete, NaCl-based instance, grounded on the same
// box/secretbox primitives the teacher's pairing code seals keys with.
package envelope

import (
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/nacl/box"
	"golang.org/x/crypto/nacl/secretbox"
)

// Keychain is the shape every multi-user operation addresses: every
// participant's public key, keyed by name, and the local holder's own
// private keys.
type Keychain struct {
	Private map[string][32]byte
	Public  map[string][32]byte
}

// Encrypter seals a message for one or more recipients.
type Encrypter interface {
	Seal(plaintext []byte) ([]byte, error)
}

// Decrypter opens a message sealed by the matching Encrypter.
type Decrypter interface {
	Open(ciphertext []byte) ([]byte, error)
}

// NewSymmetric returns an Encrypter/Decrypter pair backed by a single
// shared key (nacl secretbox, random nonce prepended to the ciphertext).
func NewSymmetric(key [32]byte) interface {
	Encrypter
	Decrypter
} {
	return symmetric{key: key}
}

type symmetric struct {
	key [32]byte
}

func (s symmetric) Seal(plaintext []byte) ([]byte, error) {
	var nonce [24]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, fmt.Errorf("envelope: read nonce: %w", err)
	}
	out := secretbox.Seal(nonce[:], plaintext, &nonce, &s.key)
	return out, nil
}

func (s symmetric) Open(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < 24 {
		return nil, fmt.Errorf("envelope: ciphertext shorter than nonce")
	}
	var nonce [24]byte
	copy(nonce[:], ciphertext[:24])
	out, ok := secretbox.Open(nil, ciphertext[24:], &nonce, &s.key)
	if !ok {
		return nil, fmt.Errorf("envelope: symmetric open failed")
	}
	return out, nil
}

// asymmetricEncrypter seals one message independently to every recipient
// public key in a keychain, so any holder of a matching private key can
// open it. The wire format is a length-prefixed concatenation of
// per-recipient sealed boxes.
type asymmetricEncrypter struct {
	recipients map[string][32]byte
}

// NewAsymmetricEncrypter returns an Encrypter that seals a message to
// every public key in recipients, using libsodium-style anonymous sealed
// boxes (an ephemeral keypair per seal, as the teacher's sodiumBoxSeal
// does for wrapping pairing keys).
func NewAsymmetricEncrypter(recipients map[string][32]byte) Encrypter {
	return asymmetricEncrypter{recipients: recipients}
}

func (e asymmetricEncrypter) Seal(plaintext []byte) ([]byte, error) {
	out := make([]byte, 0, len(e.recipients)*(4+32+24+len(plaintext)+box.Overhead))
	for name, pk := range e.recipients {
		sealed, err := sealedBox(plaintext, pk)
		if err != nil {
			return nil, fmt.Errorf("envelope: seal to %s: %w", name, err)
		}
		out = appendBlock(out, []byte(name))
		out = appendBlock(out, sealed)
	}
	return out, nil
}

// asymmetricDecrypter opens a message sealed by asymmetricEncrypter using
// one holder's own keypair.
type asymmetricDecrypter struct {
	publicKey  [32]byte
	privateKey [32]byte
}

// NewAsymmetricDecrypter returns a Decrypter that opens a message sealed
// to publicKey, using privateKey.
func NewAsymmetricDecrypter(publicKey, privateKey [32]byte) Decrypter {
	return asymmetricDecrypter{publicKey: publicKey, privateKey: privateKey}
}

func (d asymmetricDecrypter) Open(ciphertext []byte) ([]byte, error) {
	rest := ciphertext
	for len(rest) > 0 {
		var name, sealed []byte
		var err error
		name, rest, err = readBlock(rest)
		if err != nil {
			return nil, err
		}
		sealed, rest, err = readBlock(rest)
		if err != nil {
			return nil, err
		}
		_ = name
		if m, err := sealedBoxOpen(sealed, d.publicKey, d.privateKey); err == nil {
			return m, nil
		}
	}
	return nil, fmt.Errorf("envelope: no recipient entry could be opened")
}

// GenerateKeyPair mints a fresh NaCl box keypair.
func GenerateKeyPair() (publicKey, privateKey [32]byte, err error) {
	pk, sk, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return publicKey, privateKey, fmt.Errorf("envelope: generate keypair: %w", err)
	}
	return *pk, *sk, nil
}

func sealedBox(m []byte, recipientPublicKey [32]byte) ([]byte, error) {
	ephemeralPk, ephemeralSk, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("envelope: generate ephemeral keypair: %w", err)
	}
	var nonce [24]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, fmt.Errorf("envelope: read nonce: %w", err)
	}
	sealed := box.Seal(nonce[:], m, &nonce, &recipientPublicKey, ephemeralSk)
	return append(ephemeralPk[:], sealed...), nil
}

func sealedBoxOpen(c []byte, recipientPublicKey, recipientPrivateKey [32]byte) ([]byte, error) {
	if len(c) < 32+24 {
		return nil, fmt.Errorf("envelope: sealed box too short")
	}
	var ephemeralPk [32]byte
	copy(ephemeralPk[:], c[:32])
	rest := c[32:]
	var nonce [24]byte
	copy(nonce[:], rest[:24])
	m, ok := box.Open(nil, rest[24:], &nonce, &ephemeralPk, &recipientPrivateKey)
	if !ok {
		return nil, fmt.Errorf("envelope: asymmetric open failed")
	}
	return m, nil
}

func appendBlock(out []byte, b []byte) []byte {
	var lenBuf [4]byte
	putUint32(lenBuf[:], uint32(len(b)))
	out = append(out, lenBuf[:]...)
	return append(out, b...)
}

func readBlock(in []byte) (block []byte, rest []byte, err error) {
	if len(in) < 4 {
		return nil, nil, fmt.Errorf("envelope: truncated block length")
	}
	n := getUint32(in[:4])
	in = in[4:]
	if uint32(len(in)) < n {
		return nil, nil, fmt.Errorf("envelope: truncated block body")
	}
	return in[:n], in[n:], nil
}

func putUint32(b []byte, v uint32) {
	b[0] = byte(v >> 24)
	b[1] = byte(v >> 16)
	b[2] = byte(v >> 8)
	b[3] = byte(v)
}

func getUint32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}
