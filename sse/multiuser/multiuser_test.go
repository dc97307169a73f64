package multiuser

import (
	"reflect"
	"testing"

	"krypt.co/sse/sse"
)

func buildSketch(t *testing.T, id, text string) sse.Sketch {
	t.Helper()
	ix := sse.NewIndexer(id)
	if _, err := ix.Write([]byte(text)); err != nil {
		t.Fatal(err)
	}
	sketch, _ := ix.Finalize()
	return sketch
}

// setup builds an owner with one domain uploaded to a fresh multi-user
// server, and one reader authorised via the recipient directory.
func setup(t *testing.T) (*Owner, *Server, *Reader) {
	t.Helper()

	owner, err := NewOwner()
	if err != nil {
		t.Fatal(err)
	}
	server, err := NewServer(nil)
	if err != nil {
		t.Fatal(err)
	}
	reader, err := NewReader()
	if err != nil {
		t.Fatal(err)
	}

	sketch := buildSketch(t, "doc1", "Hello, hello WORLD")
	index, err := owner.SecureIndex("dA", 100, sketch)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := server.Inner().Update("dA", index, nil); err != nil {
		t.Fatal(err)
	}

	owner.SetRecipient("server", server.PublicKey())
	owner.SetRecipient("reader", reader.PublicKey())

	packed, err := owner.PackKeys("server")
	if err != nil {
		t.Fatal(err)
	}
	if err := reader.UnpackKeys(packed); err != nil {
		t.Fatal(err)
	}

	return owner, server, reader
}

func TestUnpackKeysRestoresMatchingKeyring(t *testing.T) {
	owner, _, reader := setup(t)

	ownerQuery, err := owner.CreateQuery("world")
	if err != nil {
		t.Fatal(err)
	}
	readerInnerQuery, err := reader.Client.CreateQuery("world")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(ownerQuery, readerInnerQuery) {
		t.Fatal("reader's restored keyring must produce the same trapdoors as the owner's")
	}
}

func TestMultiUserSearchS5(t *testing.T) {
	owner, server, reader := setup(t)

	sealedState, _, err := owner.State()
	if err != nil {
		t.Fatal(err)
	}
	if err := server.State(sealedState); err != nil {
		t.Fatal(err)
	}

	query, err := reader.CreateQuery(sealedState, "world")
	if err != nil {
		t.Fatal(err)
	}
	results, err := server.Search(query)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].ID != "doc1" {
		t.Fatalf("results = %+v, want a single doc1 match", results)
	}

	singleUserQuery, err := owner.CreateQuery("world")
	if err != nil {
		t.Fatal(err)
	}
	singleUserResults := server.inner.Search(singleUserQuery)
	if !reflect.DeepEqual(results, singleUserResults) {
		t.Fatalf("multi-user result %+v does not match single-user result %+v", results, singleUserResults)
	}
}

func TestRevocationOnNewStateS6(t *testing.T) {
	owner, server, reader := setup(t)

	staleState, _, err := owner.State()
	if err != nil {
		t.Fatal(err)
	}
	staleQuery, err := reader.CreateQuery(staleState, "world")
	if err != nil {
		t.Fatal(err)
	}

	// owner rotates the state without reissuing it to this reader
	freshState, _, err := owner.State()
	if err != nil {
		t.Fatal(err)
	}
	if err := server.State(freshState); err != nil {
		t.Fatal(err)
	}

	results, err := server.Search(staleQuery)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Fatalf("query wrapped under a revoked state must miss, got %+v", results)
	}
}

func TestPackKeysExcludesServer(t *testing.T) {
	owner, server, _ := setup(t)

	packed, err := owner.PackKeys("server")
	if err != nil {
		t.Fatal(err)
	}

	impostor, err := NewReader()
	if err != nil {
		t.Fatal(err)
	}
	impostor.publicKey = server.publicKey
	impostor.privateKey = server.privateKey

	if err := impostor.UnpackKeys(packed); err == nil {
		t.Fatal("the server's keypair must not be able to open a packed keyring")
	}
}
