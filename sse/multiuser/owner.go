// Package multiuser layers an owner-minted session key over the
// single-user core so additional readers can query a server without the
// server or any reader ever learning a keyword. Rotating the session key
// revokes every reader not named in the new envelope.
package multiuser

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/op/go-logging"

	"krypt.co/sse/envelope"
	"krypt.co/sse/sse"
)

var log = logging.MustGetLogger("sse/multiuser")

// Owner is the data owner's client, extended with the recipient directory
// needed to seal session keys and keyrings to readers.
type Owner struct {
	*sse.Client
	recipients map[string][32]byte
}

// NewOwner starts a fresh owner client with an empty recipient directory.
func NewOwner() (*Owner, error) {
	client, err := sse.NewClient()
	if err != nil {
		return nil, fmt.Errorf("multiuser: new owner client: %w", err)
	}
	return &Owner{Client: client, recipients: make(map[string][32]byte)}, nil
}

// SetRecipient records name's public key as authorised to receive sealed
// state and packed keyrings. Use the same name the recipient will present
// when it is the server (PackKeys excludes it by name).
func (o *Owner) SetRecipient(name string, publicKey [32]byte) {
	o.recipients[name] = publicKey
}

// RemoveRecipient drops name from the recipient directory; it will no
// longer be authorised once the owner next calls State.
func (o *Owner) RemoveRecipient(name string) {
	delete(o.recipients, name)
}

// State mints a fresh 32-byte session key, seals it to every current
// recipient (which must include the server, so it can open it), and
// returns the sealed blob to publish and the raw key for local bookkeeping.
// Installing a new sealed state on the server is the revocation primitive:
// any reader whose public key is no longer in the recipient directory
// cannot recover the new key.
func (o *Owner) State() (sealed []byte, sessionKey [32]byte, err error) {
	if _, err = rand.Read(sessionKey[:]); err != nil {
		return nil, sessionKey, fmt.Errorf("multiuser: generate session key: %w", err)
	}
	enc := envelope.NewAsymmetricEncrypter(o.recipients)
	sealed, err = enc.Seal(sessionKey[:])
	if err != nil {
		return nil, sessionKey, fmt.Errorf("multiuser: seal state: %w", err)
	}
	log.Debugf("issued new state for %d recipients", len(o.recipients))
	return sealed, sessionKey, nil
}

// wireKeyring is the JSON shape PackKeys seals and UnpackKeys restores.
type wireKeyring struct {
	Domains map[string]wireDomainKey `json:"domains"`
	Sorting string                   `json:"sorting"`
}

type wireDomainKey struct {
	DocCount int    `json:"doc_count"`
	Key      string `json:"key"`
}

// PackKeys serialises the owner's keyring as JSON and seals it to every
// recipient except serverName — the server must never be able to open the
// keyring, only relay the envelope to readers.
func (o *Owner) PackKeys(serverName string) ([]byte, error) {
	payload := wireKeyring{
		Domains: make(map[string]wireDomainKey),
		Sorting: base64.StdEncoding.EncodeToString(sliceKey(o.Client.SortingKey())),
	}
	for name, dk := range o.Client.Domains() {
		payload.Domains[name] = wireDomainKey{
			DocCount: dk.DocCount,
			Key:      base64.StdEncoding.EncodeToString(sliceKey(dk.Key)),
		}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("multiuser: marshal keyring: %w", err)
	}

	recipients := make(map[string][32]byte, len(o.recipients))
	for name, pk := range o.recipients {
		if name == serverName {
			continue
		}
		recipients[name] = pk
	}
	enc := envelope.NewAsymmetricEncrypter(recipients)
	sealed, err := enc.Seal(data)
	if err != nil {
		return nil, fmt.Errorf("multiuser: seal keyring: %w", err)
	}
	return sealed, nil
}

func sliceKey(k [32]byte) []byte {
	return append([]byte(nil), k[:]...)
}
