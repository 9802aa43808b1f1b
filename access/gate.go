// Package access implements the allow-list that decides which identity may
// read which resource.
//
// Grants are (identity, path) pairs. Matching is exact on both fields: there
// are no wildcards, prefixes or path normalization. Grants are additive and
// are never revoked for the lifetime of a Gate.
package access

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/ruteri/barnyard/interfaces"
)

// ErrInvalidGrant is returned by ParseGrant for malformed input.
var ErrInvalidGrant = errors.New("invalid grant")

// Gate is a concurrency-safe set of access grants.
type Gate struct {
	mu     sync.RWMutex
	grants map[interfaces.Identity]map[string]struct{}
}

// New creates a gate with no grants.
func New() *Gate {
	return &Gate{
		grants: make(map[interfaces.Identity]map[string]struct{}),
	}
}

// Grant allows identity to read path. Granting twice is a no-op.
func (g *Gate) Grant(identity interfaces.Identity, path string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	paths, ok := g.grants[identity]
	if !ok {
		paths = make(map[string]struct{})
		g.grants[identity] = paths
	}
	paths[path] = struct{}{}
}

// Check reports whether identity was granted exactly path.
func (g *Gate) Check(identity interfaces.Identity, path string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	_, ok := g.grants[identity][path]
	return ok
}

// Require is Check returning interfaces.ErrAccessDenied on a miss.
func (g *Gate) Require(identity interfaces.Identity, path string) error {
	if !g.Check(identity, path) {
		return fmt.Errorf("%w: %q may not read %q", interfaces.ErrAccessDenied, identity, path)
	}
	return nil
}

// Grants returns every grant ordered by identity, then path.
func (g *Gate) Grants() []interfaces.AccessGrant {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var out []interfaces.AccessGrant
	for identity, paths := range g.grants {
		for path := range paths {
			out = append(out, interfaces.AccessGrant{Identity: identity, Path: path})
		}
	}

	slices.SortFunc(out, func(a, b interfaces.AccessGrant) int {
		return cmp.Or(cmp.Compare(a.Identity, b.Identity), cmp.Compare(a.Path, b.Path))
	})
	return out
}

// ParseGrant parses "identity=path". The path may itself contain '='.
func ParseGrant(s string) (interfaces.AccessGrant, error) {
	identity, path, ok := strings.Cut(s, "=")
	if !ok || identity == "" || path == "" {
		return interfaces.AccessGrant{}, fmt.Errorf("%w: expected identity=path, got %q", ErrInvalidGrant, s)
	}
	return interfaces.AccessGrant{Identity: interfaces.Identity(identity), Path: path}, nil
}

var _ interfaces.AccessGate = (*Gate)(nil)
