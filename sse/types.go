// Package sse implements the single-user core of the searchable symmetric
// encryption scheme: a streaming indexer, a client that builds secure
// indexes and trapdoors, and a server that stores and searches them.
package sse

// Sketch is a document's word-frequency sketch as produced by an Indexer.
// ID is caller-chosen and opaque; List maps normalised word tokens to
// their count within the document.
type Sketch struct {
	ID   string
	List map[string]int
}

// SecureEntry is the value half of a secure-index bucket: a document id
// and its OPSE-encrypted (or, for filler buckets, dummy) count.
type SecureEntry struct {
	ID    string
	Count uint64
}

// SecureIndex is the transmitted shape of a built index. Keys preserves
// the shuffled enumeration order the client produced; Buckets holds the
// same data keyed for lookup. Consumers that serialise a SecureIndex must
// walk Keys, not range over Buckets, to preserve the security-relevant
// insertion order.
type SecureIndex struct {
	Docs    []string
	Keys    []string
	Buckets map[string]SecureEntry
}

// DomainKey is one entry of a client keyring: how many documents a domain
// was built over, and the 32-byte key that derives its trapdoors.
type DomainKey struct {
	DocCount int
	Key      [32]byte
}

// Domain is the server-side record for one domain name: the document ids
// it covers and its bucket map.
type Domain struct {
	Docs    []string
	Buckets map[string]SecureEntry
}

// MergeRequest is returned by Server.Update when the candidate index
// would orphan an existing domain that has at least as many documents.
type MergeRequest struct {
	Domain string
	Docs   []string
}
