package sse

// ClientConfig carries the knobs a caller can fix when constructing a
// Client, mirroring the plain JSON-tagged config structs the teacher uses
// for its own profile and connection settings.
type ClientConfig struct {
	// SortingKey pins the OPSE sorting key instead of generating one, for
	// a caller restoring a client from previously exported state.
	SortingKey *[32]byte `json:"sorting_key,omitempty"`
}

// NewClientWithConfig builds a Client from cfg. A cfg with no SortingKey
// set behaves exactly like NewClient.
func NewClientWithConfig(cfg ClientConfig) (*Client, error) {
	if cfg.SortingKey == nil {
		return NewClient()
	}
	c := NewEmptyClient()
	c.SetSortingKey(*cfg.SortingKey)
	return c, nil
}

// ServerConfig carries the knobs a caller can fix when constructing a
// Server.
type ServerConfig struct {
	// Snapshot seeds the server with a previously persisted domain set,
	// identical to passing it directly to NewServer.
	Snapshot map[string]Domain `json:"snapshot,omitempty"`
}

// NewServerWithConfig builds a Server from cfg.
func NewServerWithConfig(cfg ServerConfig) *Server {
	return NewServer(cfg.Snapshot)
}
