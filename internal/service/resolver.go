package service

import (
	"context"
	"strings"
	"sync"
	"unicode"

	"listing-sync/internal/catalog"
	"listing-sync/internal/util"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Term is a controlled vocabulary entry and the title words that select it.
// Keywords match anywhere inside a word; Tokens must equal a whole word.
type Term struct {
	Name     string
	Keywords []string
	Tokens   []string
}

// Vocabulary holds the tag and category terms used to classify titles.
// Categories are matched in order; the first match wins.
type Vocabulary struct {
	Tags       []Term
	Categories []Term
}

// DefaultVocabulary returns the model-railway brands, scales and categories.
// Keywords match as substrings of lower-cased title words. The scale is also
// written "HO", which only counts as a whole word so "hornby" stays out.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		Tags: []Term{
			{Name: "Jouef", Keywords: []string{"jouef"}},
			{Name: "Lima", Keywords: []string{"lima"}},
			{Name: "Hornby", Keywords: []string{"hornby"}},
			{Name: "Roco", Keywords: []string{"roco"}},
			{Name: "Piko", Keywords: []string{"piko"}},
			{Name: "Märklin", Keywords: []string{"marklin", "märklin"}},
			{Name: "Fleischmann", Keywords: []string{"fleischmann"}},
			{Name: "H0", Keywords: []string{"h0"}, Tokens: []string{"ho"}},
			{Name: "SNCF", Keywords: []string{"sncf"}},
		},
		Categories: []Term{
			{Name: "Wagons", Keywords: []string{"wgon", "wagon", "voiture", "fourgon", "allège", "remorque"}},
			{Name: "Locomotives", Keywords: []string{"locomotive", "locotracteur", "locotender", "autorail"}},
			{Name: "Rails", Keywords: []string{"rail", "aiguillage", "voie", "croisement", "jonction", "tjd", "heurtoir"}},
			{Name: "Décor", Keywords: []string{"personnage", "tunnel", "conteneur", "bureau"}},
			{Name: "Coffrets", Keywords: []string{"coffret"}},
		},
	}
}

// ReferenceSearcher looks up reference records by exact name
type ReferenceSearcher interface {
	SearchReference(ctx context.Context, kind catalog.ReferenceKind, name string) ([]int64, error)
}

type lookupResult struct {
	id    int64
	found bool
}

// Resolver classifies titles into vocabulary terms and resolves terms to
// remote ids. Resolved ids are cached for the lifetime of the Resolver and
// concurrent lookups of the same key share one remote call.
type Resolver struct {
	searcher ReferenceSearcher
	vocab    Vocabulary
	logger   *zap.Logger
	group    singleflight.Group

	mu    sync.Mutex
	cache map[string]int64
}

// NewResolver creates a resolver with an empty cache
func NewResolver(searcher ReferenceSearcher, vocab Vocabulary) *Resolver {
	return &Resolver{
		searcher: searcher,
		vocab:    vocab,
		logger:   util.GetLogger(),
		cache:    make(map[string]int64),
	}
}

func referenceKey(kind catalog.ReferenceKind, name string) string {
	return string(kind) + "\x00" + name
}

func tokenize(title string) []string {
	return strings.Fields(strings.ToLower(title))
}

func trimWord(token string) string {
	return strings.TrimFunc(token, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func (t Term) matches(tokens []string) bool {
	for _, token := range tokens {
		for _, keyword := range t.Keywords {
			if strings.Contains(token, keyword) {
				return true
			}
		}
		if len(t.Tokens) == 0 {
			continue
		}
		word := trimWord(token)
		for _, exact := range t.Tokens {
			if word == exact {
				return true
			}
		}
	}
	return false
}

// ClassifyTags returns every tag whose keywords match the title, in vocabulary order
func (r *Resolver) ClassifyTags(title string) []string {
	tokens := tokenize(title)
	tags := make([]string, 0)
	for _, term := range r.vocab.Tags {
		if term.matches(tokens) {
			tags = append(tags, term.Name)
		}
	}
	return tags
}

// ClassifyCategory returns the first category whose keywords match the title
func (r *Resolver) ClassifyCategory(title string) (string, bool) {
	tokens := tokenize(title)
	for _, term := range r.vocab.Categories {
		if term.matches(tokens) {
			return term.Name, true
		}
	}
	r.logger.Warn("Category not found", zap.String("title", title))
	return "", false
}

// ResolveID returns the remote id of the named reference record.
// A missing public category is reported as not found without error;
// any other missing kind fails with ReferenceNotFoundError.
func (r *Resolver) ResolveID(ctx context.Context, kind catalog.ReferenceKind, name string) (int64, bool, error) {
	key := referenceKey(kind, name)
	if id, ok := r.cached(key); ok {
		util.ReferenceCacheLookups.WithLabelValues(string(kind), "hit").Inc()
		return id, true, nil
	}

	// the shared lookup outlives any single waiter's cancellation
	lookupCtx := context.WithoutCancel(ctx)
	ch := r.group.DoChan(key, func() (interface{}, error) {
		if id, ok := r.cached(key); ok {
			return lookupResult{id: id, found: true}, nil
		}
		util.ReferenceCacheLookups.WithLabelValues(string(kind), "miss").Inc()
		id, found, err := r.lookup(lookupCtx, kind, name)
		if err != nil {
			return nil, err
		}
		if found {
			r.mu.Lock()
			r.cache[key] = id
			r.mu.Unlock()
		}
		return lookupResult{id: id, found: found}, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return 0, false, res.Err
		}
		found := res.Val.(lookupResult)
		return found.id, found.found, nil
	case <-ctx.Done():
		return 0, false, ctx.Err()
	}
}

func (r *Resolver) cached(key string) (int64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.cache[key]
	return id, ok
}

func (r *Resolver) lookup(ctx context.Context, kind catalog.ReferenceKind, name string) (int64, bool, error) {
	ids, err := r.searcher.SearchReference(ctx, kind, name)
	if err != nil {
		return 0, false, err
	}
	if len(ids) == 0 {
		if kind == catalog.ReferencePublicCategory {
			r.logger.Warn("Public category not found", zap.String("name", name))
			return 0, false, nil
		}
		return 0, false, &catalog.ReferenceNotFoundError{Kind: kind, Name: name}
	}
	return ids[0], true, nil
}
