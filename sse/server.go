package sse

import (
	"fmt"
	"sync"

	"github.com/op/go-logging"
)

var serverLog = logging.MustGetLogger("sse")

// Server holds domain records and answers queries. Update and State (in
// the multi-user extension) must be externally serialised by the caller;
// Search is read-only and may run concurrently with other Search calls.
type Server struct {
	mu      sync.RWMutex
	domains map[string]Domain
}

// NewServer starts a server from a caller-supplied snapshot, which may be
// nil or empty for a fresh server.
func NewServer(snapshot map[string]Domain) *Server {
	domains := make(map[string]Domain, len(snapshot))
	for name, d := range snapshot {
		domains[name] = d
	}
	return &Server{domains: domains}
}

// Snapshot returns a shallow copy of the server's current domain index,
// suitable for persistence.
func (s *Server) Snapshot() map[string]Domain {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]Domain, len(s.domains))
	for name, d := range s.domains {
		out[name] = d
	}
	return out
}

// Search answers a client query: a mapping of domain name to the
// trapdoors derived for that domain. If any domain named in query is
// unknown to the server, the search aborts with no partial results. Ties
// in the OPSE count break in encounter order.
func (s *Server) Search(query map[string][]string) []SecureEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []SecureEntry
	seen := make(map[string]bool)

	for domainName, trapdoors := range query {
		domain, ok := s.domains[domainName]
		if !ok {
			serverLog.Debugf("search aborted: unknown domain %q", domainName)
			return nil
		}
		for _, t := range trapdoors {
			entry, ok := domain.Buckets[t]
			if !ok {
				continue
			}
			if seen[entry.ID] {
				continue
			}
			seen[entry.ID] = true
			results = append(results, entry)
		}
	}

	sortByCountDescendingStable(results)
	return results
}

// Update installs a candidate secure index under domain. If an existing
// domain would be orphaned by the replacement (it has at least as many
// documents as the candidate, and is not listed in reps), the update is
// rejected and a merge request is returned instead; the server's state is
// left unchanged. Otherwise every domain named in reps is deleted and the
// candidate is installed.
func (s *Server) Update(domain string, index SecureIndex, reps []string) (*MergeRequest, error) {
	if domain == sortingDomainName {
		return nil, fmt.Errorf("sse: domain name \"sorting\" is reserved")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	repSet := make(map[string]bool, len(reps))
	for _, r := range reps {
		repSet[r] = true
	}

	for name, existing := range s.domains {
		if repSet[name] {
			continue
		}
		if len(existing.Docs) >= len(index.Docs) {
			return &MergeRequest{Domain: name, Docs: existing.Docs}, nil
		}
	}

	for _, r := range reps {
		delete(s.domains, r)
	}

	buckets := make(map[string]SecureEntry, len(index.Buckets))
	for _, k := range index.Keys {
		buckets[k] = index.Buckets[k]
	}
	s.domains[domain] = Domain{Docs: index.Docs, Buckets: buckets}
	return nil, nil
}

func sortByCountDescendingStable(results []SecureEntry) {
	// insertion sort: stable, and results lists are small (bounded by
	// distinct matched document ids), so O(n^2) is not a concern.
	for i := 1; i < len(results); i++ {
		for j := i; j > 0 && results[j].Count > results[j-1].Count; j-- {
			results[j], results[j-1] = results[j-1], results[j]
		}
	}
}
