// Package secret supplies API credentials by key name. The store is external
// from the inference core's perspective: the cloud client reads a key at
// call time and never caches or logs the value.
package secret

import "os"

// Store resolves a credential by key name. Implementations must be safe for
// concurrent reads; the core never writes.
type Store interface {
	// Get returns the credential for name and whether one exists. An empty
	// stored value counts as missing.
	Get(name string) (string, bool)
}

// EnvStore resolves credentials from process environment variables, e.g.
// OPENROUTER_API_KEY. The zero value is ready to use.
type EnvStore struct{}

func (EnvStore) Get(name string) (string, bool) {
	if name == "" {
		return "", false
	}
	v := os.Getenv(name)
	return v, v != ""
}

// StaticStore resolves credentials from a fixed map. Intended for tests and
// for config-file-supplied keys.
type StaticStore map[string]string

func (s StaticStore) Get(name string) (string, bool) {
	v, ok := s[name]
	if v == "" {
		return "", false
	}
	return v, ok
}

// Chain tries each store in order and returns the first hit.
type Chain []Store

func (c Chain) Get(name string) (string, bool) {
	for _, s := range c {
		if v, ok := s.Get(name); ok {
			return v, true
		}
	}
	return "", false
}
