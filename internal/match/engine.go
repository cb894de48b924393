// Package match turns a free-text query into a selection plan: the stored
// records that contain the query, bucketed by their derived group key.
package match

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"videofinder-bot/internal/storage"
	"videofinder-bot/internal/title"
)

// ErrEmptyQuery is returned for blank queries. The store is not consulted.
var ErrEmptyQuery = errors.New("empty search query")

// Group is one entry of a Plan.
type Group struct {
	Key            string
	Representative int
	MessageIDs     []int
	SupportsBulk   bool
}

// Plan is the outcome of a search. Groups are ordered by the first
// occurrence of their key in the store's result order.
type Plan struct {
	Query  string
	Groups []Group
}

// NoResults reports whether the search matched nothing.
func (p *Plan) NoResults() bool {
	return p == nil || len(p.Groups) == 0
}

// Group looks up the plan entry for key.
func (p *Plan) Group(key string) (Group, bool) {
	if p == nil {
		return Group{}, false
	}
	for _, g := range p.Groups {
		if g.Key == key {
			return g, true
		}
	}
	return Group{}, false
}

// Engine runs searches against a Store.
type Engine struct {
	store  storage.Store
	logger zerolog.Logger
}

func NewEngine(store storage.Store, logger zerolog.Logger) *Engine {
	return &Engine{
		store:  store,
		logger: logger.With().Str("component", "match").Logger(),
	}
}

// Search finds records whose file name or caption contains query and
// groups them. A query with no hits yields an empty plan, not an error.
func (e *Engine) Search(ctx context.Context, query string) (*Plan, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	recs, err := e.store.FindBySubstring(ctx, query)
	if err != nil {
		return nil, err
	}
	plan := BuildPlan(query, recs)
	e.logger.Debug().
		Str("query", query).
		Int("hits", len(recs)).
		Int("groups", len(plan.Groups)).
		Msg("search")
	return plan, nil
}

// BuildPlan buckets records by group key, keeping record order inside each
// bucket and ordering buckets by first occurrence.
func BuildPlan(query string, recs []storage.Record) *Plan {
	plan := &Plan{Query: query, Groups: []Group{}}
	index := map[string]int{}
	for _, rec := range recs {
		key := title.GroupKey(rec.FileName)
		i, ok := index[key]
		if !ok {
			i = len(plan.Groups)
			index[key] = i
			plan.Groups = append(plan.Groups, Group{Key: key, Representative: rec.MessageID})
		}
		plan.Groups[i].MessageIDs = append(plan.Groups[i].MessageIDs, rec.MessageID)
	}
	for i := range plan.Groups {
		plan.Groups[i].SupportsBulk = len(plan.Groups[i].MessageIDs) > 1
	}
	return plan
}

// GroupMembers scans the whole store and returns, in store order, every
// record whose derived group key equals key.
func (e *Engine) GroupMembers(ctx context.Context, key string) ([]storage.Record, error) {
	recs, err := e.store.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	out := []storage.Record{}
	for _, rec := range recs {
		if title.GroupKey(rec.FileName) == key {
			out = append(out, rec)
		}
	}
	return out, nil
}

// GroupKeys returns the distinct group keys in the store, in order of first
// occurrence.
func (e *Engine) GroupKeys(ctx context.Context) ([]string, error) {
	recs, err := e.store.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	seen := map[string]struct{}{}
	out := []string{}
	for _, rec := range recs {
		key := title.GroupKey(rec.FileName)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	return out, nil
}
