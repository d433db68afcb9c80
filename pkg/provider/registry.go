package provider

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/spetr/codesplit/pkg/types"
)

// GrammarFactory creates a Grammar.
type GrammarFactory func() (Grammar, error)

// ChunkingFactory creates a ChunkingStrategy from configuration.
type ChunkingFactory func(config ChunkingConfig) (ChunkingStrategy, error)

// Registry holds grammar and chunking factories. It also serves as the
// GrammarLookup handed to the selector: created grammars are cached and
// concurrent first uses share one factory call, so a factory that succeeds
// runs once per registration.
type Registry struct {
	mu sync.RWMutex

	grammarFactories  map[string]GrammarFactory
	aliases           map[string]string
	chunkingFactories map[string]ChunkingFactory
	candidates        []string

	grammars *gocache.Cache
	creating singleflight.Group
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		grammarFactories:  make(map[string]GrammarFactory),
		aliases:           make(map[string]string),
		chunkingFactories: make(map[string]ChunkingFactory),
		grammars:          gocache.New(gocache.NoExpiration, 0),
	}
}

// RegisterGrammar registers a grammar factory under name and optional aliases.
func (r *Registry) RegisterGrammar(name string, factory GrammarFactory, aliases ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.grammarFactories[name] = factory
	for _, alias := range aliases {
		r.aliases[alias] = name
	}
	r.grammars.Delete(name)
}

// RegisterChunking registers a chunking strategy factory.
func (r *Registry) RegisterChunking(name string, factory ChunkingFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chunkingFactories[name] = factory
}

// SetCandidates sets the ordered grammar names tried during selection.
func (r *Registry) SetCandidates(names []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.candidates = append([]string(nil), names...)
}

// Candidates returns the ordered candidate grammar names.
// Without an explicit list, all registered grammars are returned sorted.
func (r *Registry) Candidates() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.candidates) > 0 {
		return append([]string(nil), r.candidates...)
	}
	return r.listGrammarsLocked()
}

// Resolve returns the canonical grammar name for name or one of its aliases.
func (r *Registry) Resolve(name string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.resolveLocked(name)
}

func (r *Registry) resolveLocked(name string) (string, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if _, ok := r.grammarFactories[name]; ok {
		return name, true
	}
	if canonical, ok := r.aliases[name]; ok {
		return canonical, true
	}
	return "", false
}

// Grammar returns the grammar registered under name, creating it on first use.
func (r *Registry) Grammar(name string) (Grammar, error) {
	r.mu.RLock()
	canonical, ok := r.resolveLocked(name)
	var factory GrammarFactory
	if ok {
		factory = r.grammarFactories[canonical]
	}
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: unknown grammar %q (available: %v)", types.ErrGrammarUnavailable, name, r.ListGrammars())
	}

	if cached, found := r.grammars.Get(canonical); found {
		if g, ok := cached.(Grammar); ok {
			return g, nil
		}
	}

	v, err, _ := r.creating.Do(canonical, func() (any, error) {
		// A caller that lost the race to the previous Do finds the result here.
		if cached, found := r.grammars.Get(canonical); found {
			return cached, nil
		}
		g, err := factory()
		if err != nil {
			return nil, err
		}
		r.grammars.SetDefault(canonical, g)
		return g, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", types.ErrGrammarUnavailable, canonical, err)
	}
	g, ok := v.(Grammar)
	if !ok {
		return nil, fmt.Errorf("%w: %s: factory returned %T", types.ErrGrammarUnavailable, canonical, v)
	}
	return g, nil
}

// CreateChunking creates a chunking strategy by name.
func (r *Registry) CreateChunking(name string, config ChunkingConfig) (ChunkingStrategy, error) {
	r.mu.RLock()
	factory, ok := r.chunkingFactories[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: chunking strategy %q (available: %v)", types.ErrNotFound, name, r.ListChunkings())
	}
	return factory(config)
}

// ListGrammars returns all registered grammar names, sorted.
func (r *Registry) ListGrammars() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.listGrammarsLocked()
}

func (r *Registry) listGrammarsLocked() []string {
	names := make([]string, 0, len(r.grammarFactories))
	for name := range r.grammarFactories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AliasesOf returns the aliases registered for a canonical grammar name.
func (r *Registry) AliasesOf(name string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []string
	for alias, canonical := range r.aliases {
		if canonical == name {
			out = append(out, alias)
		}
	}
	sort.Strings(out)
	return out
}

// ListChunkings returns all registered chunking strategy names.
func (r *Registry) ListChunkings() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.chunkingFactories))
	for name := range r.chunkingFactories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HasGrammar checks if a grammar (or alias) is registered.
func (r *Registry) HasGrammar(name string) bool {
	_, ok := r.Resolve(name)
	return ok
}

// HasChunking checks if a chunking strategy is registered.
func (r *Registry) HasChunking(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.chunkingFactories[name]
	return ok
}

// DefaultRegistry is the global default registry.
var DefaultRegistry = NewRegistry()

// Register functions for the default registry.

// RegisterGrammar registers a grammar in the default registry.
func RegisterGrammar(name string, factory GrammarFactory, aliases ...string) {
	DefaultRegistry.RegisterGrammar(name, factory, aliases...)
}

// RegisterChunking registers a chunking strategy in the default registry.
func RegisterChunking(name string, factory ChunkingFactory) {
	DefaultRegistry.RegisterChunking(name, factory)
}

var _ GrammarLookup = (*Registry)(nil)
