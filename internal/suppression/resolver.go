// Package suppression decides whether something already addresses an action.
// Lookups are best effort: a failing lookup counts as "no suppression".
package suppression

import (
	"context"
	"strings"
	"time"

	"github.com/homeledger/incident-engine/internal/logger"
	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

// FailureHook is called with the lookup name whenever a lookup fails.
type FailureHook func(lookup string)

// Resolver runs its lookups in order and returns the first source found.
type Resolver struct {
	lookups   []Lookup
	log       logger.Logger
	cache     *cache.Cache
	group     singleflight.Group
	onFailure FailureHook
}

// cached wraps a result so negative answers can be cached too.
type cached struct {
	source Source
}

// NewResolver creates a Resolver. A cacheTTL of zero disables caching.
func NewResolver(log logger.Logger, cacheTTL time.Duration, lookups ...Lookup) *Resolver {
	r := &Resolver{
		lookups: lookups,
		log:     log,
	}
	if cacheTTL > 0 {
		r.cache = cache.New(cacheTTL, 2*cacheTTL)
	}
	return r
}

// OnFailure registers a hook for failed lookups.
func (r *Resolver) OnFailure(h FailureHook) {
	r.onFailure = h
}

// Resolve returns the source suppressing (propertyID, orchestrationActionID),
// or nil when nothing does, when an input is blank, or when lookups fail.
func (r *Resolver) Resolve(ctx context.Context, propertyID, orchestrationActionID string) Source {
	propertyID = strings.TrimSpace(propertyID)
	orchestrationActionID = strings.TrimSpace(orchestrationActionID)
	if propertyID == "" || orchestrationActionID == "" {
		return nil
	}

	key := propertyID + "\x00" + orchestrationActionID
	if r.cache != nil {
		if v, ok := r.cache.Get(key); ok {
			return v.(cached).source
		}
	}

	v, _, _ := r.group.Do(key, func() (any, error) {
		source, complete := r.runLookups(ctx, propertyID, orchestrationActionID)
		// A partial answer is not cached; the failed lookup might have found
		// something.
		if r.cache != nil && (source != nil || complete) {
			r.cache.SetDefault(key, cached{source: source})
		}
		return cached{source: source}, nil
	})
	return v.(cached).source
}

// Invalidate drops any cached answer for the key.
func (r *Resolver) Invalidate(propertyID, orchestrationActionID string) {
	if r.cache != nil {
		r.cache.Delete(propertyID + "\x00" + orchestrationActionID)
	}
}

func (r *Resolver) runLookups(ctx context.Context, propertyID, orchestrationActionID string) (source Source, complete bool) {
	complete = true
	for _, l := range r.lookups {
		src, err := l.Lookup(ctx, propertyID, orchestrationActionID)
		if err != nil {
			complete = false
			r.log.Warn("suppression lookup failed, treating as not suppressed",
				logger.String("lookup", l.Name()),
				logger.String("property_id", propertyID),
				logger.String("orchestration_action_id", orchestrationActionID),
				logger.Error(err))
			if r.onFailure != nil {
				r.onFailure(l.Name())
			}
			continue
		}
		if src != nil {
			return src, complete
		}
	}
	return nil, complete
}
