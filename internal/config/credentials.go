package config

import (
	"fmt"
	"os"
	"strings"
	"sync"
)

// Credentials is the search-provider key pair. The API key authenticates the
// caller, the CSE ID scopes the provider's index.
type Credentials struct {
	APIKey string
	CSEID  string
}

// Valid reports whether both halves of the pair are present.
func (c Credentials) Valid() bool {
	return c.APIKey != "" && c.CSEID != ""
}

// CredentialStore holds the credential pair in memory and mirrors every
// update back to its file, so a pair supplied at runtime survives restarts.
type CredentialStore struct {
	path  string
	mu    sync.RWMutex
	creds Credentials
}

// LoadCredentials reads the KEY=value credential file. A missing file is not
// an error: the store starts empty and search is gated until a pair is set.
func LoadCredentials(path string) (*CredentialStore, error) {
	s := &CredentialStore{path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("read credentials file: %w", err)
	}

	for _, line := range strings.Split(string(data), "\n") {
		key, value, ok := strings.Cut(strings.TrimSpace(line), "=")
		if !ok {
			continue
		}
		switch strings.TrimSpace(key) {
		case "API_KEY":
			s.creds.APIKey = strings.TrimSpace(value)
		case "CSE_ID":
			s.creds.CSEID = strings.TrimSpace(value)
		}
	}
	return s, nil
}

// Get returns the current credential pair.
func (s *CredentialStore) Get() Credentials {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creds
}

// Set replaces the credential pair and persists it.
func (s *CredentialStore) Set(c Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	content := fmt.Sprintf("API_KEY=%s\nCSE_ID=%s\n", c.APIKey, c.CSEID)
	if err := os.WriteFile(s.path, []byte(content), 0o600); err != nil {
		return fmt.Errorf("write credentials file: %w", err)
	}
	s.creds = c
	return nil
}

// Ready reports whether searches can be issued at all.
func (s *CredentialStore) Ready() bool {
	return s.Get().Valid()
}
