package multiuser

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"krypt.co/sse/cipher"
	"krypt.co/sse/envelope"
	"krypt.co/sse/sse"
)

// Reader is an authorised query issuer: a keypair it holds the private
// half of, plus a local keyring restored from a packed envelope.
type Reader struct {
	*sse.Client
	publicKey  [32]byte
	privateKey [32]byte
}

// NewReader mints a fresh reader keypair with an empty local keyring.
func NewReader() (*Reader, error) {
	pk, sk, err := envelope.GenerateKeyPair()
	if err != nil {
		return nil, fmt.Errorf("multiuser: generate reader keypair: %w", err)
	}
	return &Reader{
		Client:     sse.NewEmptyClient(),
		publicKey:  pk,
		privateKey: sk,
	}, nil
}

// PublicKey returns the reader's public key, for the owner to add as a
// recipient.
func (r *Reader) PublicKey() [32]byte {
	return r.publicKey
}

// UnpackKeys opens a keyring sealed by Owner.PackKeys using the reader's
// private key and installs the recovered domains and sorting key locally.
func (r *Reader) UnpackKeys(packed []byte) error {
	dec := envelope.NewAsymmetricDecrypter(r.publicKey, r.privateKey)
	data, err := dec.Open(packed)
	if err != nil {
		return fmt.Errorf("multiuser: open packed keyring: %w", err)
	}

	var payload wireKeyring
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("multiuser: unmarshal keyring: %w", err)
	}

	sortingBytes, err := base64.StdEncoding.DecodeString(payload.Sorting)
	if err != nil {
		return fmt.Errorf("multiuser: decode sorting key: %w", err)
	}
	var sortingKey [32]byte
	copy(sortingKey[:], sortingBytes)
	r.Client.SetSortingKey(sortingKey)

	for name, wd := range payload.Domains {
		keyBytes, err := base64.StdEncoding.DecodeString(wd.Key)
		if err != nil {
			return fmt.Errorf("multiuser: decode domain key for %s: %w", name, err)
		}
		var domainKey [32]byte
		copy(domainKey[:], keyBytes)
		if err := r.Client.RestoreDomain(name, sse.DomainKey{DocCount: wd.DocCount, Key: domainKey}); err != nil {
			return fmt.Errorf("multiuser: restore domain %s: %w", name, err)
		}
	}
	return nil
}

// CreateQuery opens state with the reader's private key to recover the
// owner's current session key, computes the inner single-user query, and
// re-encrypts every trapdoor under the session key with AES-256-CTR
// before re-encoding it as base64. A query built under a revoked state
// cannot be opened by the server it was issued for.
func (r *Reader) CreateQuery(state []byte, word string) (map[string][]string, error) {
	dec := envelope.NewAsymmetricDecrypter(r.publicKey, r.privateKey)
	raw, err := dec.Open(state)
	if err != nil {
		return nil, fmt.Errorf("multiuser: open state: %w", err)
	}
	if len(raw) != 32 {
		return nil, fmt.Errorf("multiuser: recovered session key has wrong length")
	}
	var sessionKey [32]byte
	copy(sessionKey[:], raw)

	inner, err := r.Client.CreateQuery(word)
	if err != nil {
		return nil, fmt.Errorf("multiuser: build inner query: %w", err)
	}

	wrapped := make(map[string][]string, len(inner))
	for domain, trapdoors := range inner {
		out := make([]string, len(trapdoors))
		for i, t := range trapdoors {
			decoded, err := base64.StdEncoding.DecodeString(t)
			if err != nil {
				return nil, fmt.Errorf("multiuser: decode inner trapdoor: %w", err)
			}
			wrappedTrapdoor, err := cipher.EncryptCTR(sessionKey, decoded)
			if err != nil {
				return nil, fmt.Errorf("multiuser: wrap trapdoor: %w", err)
			}
			out[i] = base64.StdEncoding.EncodeToString(wrappedTrapdoor)
		}
		wrapped[domain] = out
	}
	return wrapped, nil
}
