package fetch

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
)

// Sessions hands out one reusable *http.Client per origin. It is owned by a
// Client and safe for concurrent use.
type Sessions struct {
	mu      sync.Mutex
	clients map[string]*http.Client
	newFn   func() *http.Client
}

// NewSessions returns a registry that builds new sessions with newFn.
func NewSessions(newFn func() *http.Client) *Sessions {
	return &Sessions{
		clients: make(map[string]*http.Client),
		newFn:   newFn,
	}
}

// Key normalizes rawURL to "scheme://host[:port]". The scheme defaults to
// http and both scheme and host are lower-cased.
func Key(rawURL string) (string, error) {
	if rawURL == "" {
		return "", fmt.Errorf("empty URL")
	}
	if !strings.Contains(rawURL, "://") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid URL %q: missing host", rawURL)
	}
	return strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host), nil
}

// Get returns the session for rawURL's origin, creating it on first use.
func (s *Sessions) Get(rawURL string) (*http.Client, error) {
	key, err := Key(rawURL)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.clients[key]; ok {
		return c, nil
	}
	c := s.newFn()
	s.clients[key] = c
	return c, nil
}

// Len returns the number of sessions created so far.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}
