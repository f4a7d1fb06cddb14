// Package query answers listing, detail and search requests on behalf of a caller with a
// given access level. It is the only place where visibility rules are applied.
package query

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/unowned-ai/quire/pkg/entries"
	"github.com/unowned-ai/quire/pkg/search"
)

// ListingRequest selects what Listing returns. A Query with at least one non-blank term
// turns the listing into a ranked search. Drafts is honoured only for privileged callers.
type ListingRequest struct {
	Query  string
	Drafts bool
	Page   entries.Page
}

// Result is a listed entry. Score is set only when the listing was a search.
type Result struct {
	entries.Entry
	Score *float64 `json:"score,omitempty"`
}

// Service composes the entry store and its search index.
type Service struct {
	store *entries.Store
	log   *zap.Logger
}

// NewService returns a Service over store. A nil logger disables logging.
func NewService(store *entries.Store, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, log: log.Named("query")}
}

// Store returns the entry store behind the service.
func (s *Service) Store() *entries.Store {
	return s.store
}

// Listing returns entries visible to access.
//
// A blank query is a plain listing. Otherwise privileged callers search every entry and
// public callers only published ones, ordered by relevance. Draft listings fall back to
// the public listing for unprivileged callers.
func (s *Service) Listing(ctx context.Context, access entries.AccessLevel, req ListingRequest) ([]Result, error) {
	if strings.TrimSpace(req.Query) != "" {
		return s.search(ctx, access, req)
	}

	var (
		list []entries.Entry
		err  error
	)
	if req.Drafts && access == entries.Privileged {
		list, err = s.store.ListDrafts(ctx, req.Page)
	} else {
		list, err = s.store.ListPublic(ctx, req.Page)
	}
	if err != nil {
		return nil, err
	}

	results := make([]Result, len(list))
	for i, e := range list {
		results[i] = Result{Entry: e}
	}
	s.log.Debug("listing", zap.Stringer("access", access), zap.Bool("drafts", req.Drafts), zap.Int("results", len(results)))
	return results, nil
}

func (s *Service) search(ctx context.Context, access entries.AccessLevel, req ListingRequest) ([]Result, error) {
	terms := search.Terms(req.Query)
	publishedOnly := access != entries.Privileged

	hits, err := s.store.Search(ctx, terms, publishedOnly, req.Page)
	if err != nil {
		return nil, err
	}

	results := make([]Result, len(hits))
	for i, hit := range hits {
		score := hit.Score
		results[i] = Result{Entry: hit.Entry, Score: &score}
	}
	s.log.Debug("search listing", zap.Stringer("access", access), zap.Strings("terms", terms), zap.Int("results", len(results)))
	return results, nil
}

// Detail returns the entry with slug entrySlug. Missing and hidden entries both yield
// entries.ErrNotFound and nothing else.
func (s *Service) Detail(ctx context.Context, entrySlug string, access entries.AccessLevel) (entries.Entry, error) {
	entry, err := s.store.GetBySlug(ctx, entrySlug, access)
	if errors.Is(err, entries.ErrNotFound) {
		return entries.Entry{}, entries.ErrNotFound
	}
	if err != nil {
		return entries.Entry{}, err
	}
	return entry, nil
}

// Counts summarizes the store. Public callers only learn the published count.
func (s *Service) Counts(ctx context.Context, access entries.AccessLevel) (entries.Counts, error) {
	c, err := s.store.Count(ctx)
	if err != nil {
		return entries.Counts{}, err
	}
	if access != entries.Privileged {
		return entries.Counts{Published: c.Published}, nil
	}
	return c, nil
}
