package sse

import (
	"strings"
	"unicode"

	"github.com/op/go-logging"
)

var indexerLog = logging.MustGetLogger("sse")

// Indexer is a streaming byte sink that tokenises a document into a
// word-frequency Sketch. It is created per document, fed chunks of
// arbitrary size via Write, then finalised once via Finalize.
type Indexer struct {
	id      string
	counts  map[string]int
	size    uint64
	pending string
}

// NewIndexer starts a fresh indexer for the document identified by id.
func NewIndexer(id string) *Indexer {
	return &Indexer{
		id:     id,
		counts: make(map[string]int),
	}
}

// Write consumes one chunk of document bytes. Chunk boundaries never split
// a token: any trailing partial token is buffered and prepended to the
// next chunk's text. size accumulates len(chunk) regardless of
// tokenisation.
func (ix *Indexer) Write(chunk []byte) (int, error) {
	ix.size += uint64(len(chunk))
	combined := ix.pending + string(chunk)
	tokens, trailing := splitKeepTrailing(combined)
	for _, tok := range tokens {
		ix.addToken(tok)
	}
	ix.pending = trailing
	return len(chunk), nil
}

// Finalize closes out the document, emitting any buffered trailing
// fragment as a final token, and returns the resulting sketch along with
// the total byte count observed across all Write calls.
func (ix *Indexer) Finalize() (Sketch, uint64) {
	if ix.pending != "" {
		ix.addToken(ix.pending)
		ix.pending = ""
	}
	indexerLog.Debugf("finalised sketch for %q: %d distinct tokens, %d bytes", ix.id, len(ix.counts), ix.size)
	return Sketch{ID: ix.id, List: ix.counts}, ix.size
}

func (ix *Indexer) addToken(raw string) {
	tok := normalizeToken(raw)
	if tok == "" {
		return
	}
	ix.counts[tok]++
}

// splitKeepTrailing splits s on whitespace codepoints, returning every
// complete token and, separately, any trailing fragment that has not yet
// been terminated by whitespace.
func splitKeepTrailing(s string) (tokens []string, trailing string) {
	start := -1
	for i, r := range s {
		if unicode.IsSpace(r) {
			if start >= 0 {
				tokens = append(tokens, s[start:i])
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		return tokens, s[start:]
	}
	return tokens, ""
}

// normalizeToken lowercases a token and strips every character outside
// [a-z0-9].
func normalizeToken(raw string) string {
	lower := strings.ToLower(raw)
	var b strings.Builder
	b.Grow(len(lower))
	for _, r := range lower {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
