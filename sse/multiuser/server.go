package multiuser

import (
	"encoding/base64"
	"fmt"

	"krypt.co/sse/cipher"
	"krypt.co/sse/envelope"
	"krypt.co/sse/sse"
)

// Server wraps a single-user server with an owner-minted state key: every
// incoming query is decrypted with the current state key before being
// delegated to the wrapped server's search.
type Server struct {
	inner      *sse.Server
	publicKey  [32]byte
	privateKey [32]byte
	stateKey   [32]byte
	hasState   bool
}

// NewServer starts a fresh multi-user server with its own keypair, wrapping
// a single-user server seeded from snapshot.
func NewServer(snapshot map[string]sse.Domain) (*Server, error) {
	pk, sk, err := envelope.GenerateKeyPair()
	if err != nil {
		return nil, fmt.Errorf("multiuser: generate server keypair: %w", err)
	}
	return &Server{
		inner:      sse.NewServer(snapshot),
		publicKey:  pk,
		privateKey: sk,
	}, nil
}

// PublicKey returns the server's public key, for an owner to add as a
// recipient of sealed state.
func (s *Server) PublicKey() [32]byte {
	return s.publicKey
}

// Inner exposes the wrapped single-user server, for Update and Snapshot.
func (s *Server) Inner() *sse.Server {
	return s.inner
}

// State opens a sealed session key with the server's own private key and
// installs it as the current state key. Authentication failure is fatal:
// the error is returned and the existing state key, if any, is left
// unchanged.
func (s *Server) State(sealed []byte) error {
	dec := envelope.NewAsymmetricDecrypter(s.publicKey, s.privateKey)
	raw, err := dec.Open(sealed)
	if err != nil {
		return fmt.Errorf("multiuser: open sealed state: %w", err)
	}
	if len(raw) != 32 {
		return fmt.Errorf("multiuser: recovered session key has wrong length")
	}
	copy(s.stateKey[:], raw)
	s.hasState = true
	return nil
}

// Search decrypts every trapdoor in query under the current state key and
// delegates the recovered inner query to the wrapped single-user server.
// A trapdoor wrapped under a stale or otherwise wrong state key decrypts
// to garbage that simply misses in the bucket map — it is not an error.
func (s *Server) Search(query map[string][]string) ([]sse.SecureEntry, error) {
	if !s.hasState {
		return nil, fmt.Errorf("multiuser: no state installed")
	}

	inner := make(map[string][]string, len(query))
	for domain, trapdoors := range query {
		out := make([]string, 0, len(trapdoors))
		for _, t := range trapdoors {
			ciphertext, err := base64.StdEncoding.DecodeString(t)
			if err != nil {
				continue
			}
			raw, err := cipher.DecryptCTR(s.stateKey, ciphertext)
			if err != nil {
				continue
			}
			out = append(out, base64.StdEncoding.EncodeToString(raw))
		}
		inner[domain] = out
	}
	return s.inner.Search(inner), nil
}
