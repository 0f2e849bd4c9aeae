// Package service holds the business logic layered over the repository and
// cache, independent of transport (HTTP handlers call into it).
package service

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/webhookd/webhookd/internal/cache"
	"github.com/webhookd/webhookd/internal/repository"
)

// ErrInvalidTargetURL reports a target_url that is not an absolute
// HTTP(S) URL.
var ErrInvalidTargetURL = fmt.Errorf("target_url must be an absolute http or https URL")

func validateTargetURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return ErrInvalidTargetURL
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidTargetURL
	}
	return nil
}

// SubscriptionService manages webhook subscriptions with a read-through,
// write-through cache sitting in front of the SQLite store.
type SubscriptionService struct {
	repo  repository.SubscriptionRepository
	cache cache.Store
	ttl   time.Duration
}

// NewSubscriptionService wires the cache-aside subscription service. The
// supplied cache store is namespaced so its keys never collide with other
// callers of the same underlying cache.
func NewSubscriptionService(repo repository.SubscriptionRepository, store cache.Store, ttl time.Duration) *SubscriptionService {
	return &SubscriptionService{
		repo:  repo,
		cache: store.Namespace("subscription"),
		ttl:   ttl,
	}
}

// Create inserts a new subscription and seeds the cache with it. The
// secret is optional: without one, ingest for this subscription skips
// signature verification entirely.
func (s *SubscriptionService) Create(ctx context.Context, targetURL string, eventTypes []string, secret string) (repository.Subscription, error) {
	if err := validateTargetURL(targetURL); err != nil {
		return repository.Subscription{}, err
	}
	sub := repository.Subscription{
		ID:         uuid.NewString(),
		TargetURL:  targetURL,
		EventTypes: eventTypes,
		Secret:     secret,
	}
	created, err := s.repo.Create(ctx, sub)
	if err != nil {
		return repository.Subscription{}, err
	}
	_ = s.cache.SetJSON(ctx, created.ID, created, s.ttl)
	return created, nil
}

// Get returns a subscription by ID, serving from cache when present and
// falling through to the store (populating the cache) on a miss.
func (s *SubscriptionService) Get(ctx context.Context, id string) (repository.Subscription, error) {
	var cached repository.Subscription
	if ok, err := s.cache.GetJSON(ctx, id, &cached); err == nil && ok {
		return cached, nil
	}

	sub, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return repository.Subscription{}, err
	}
	_ = s.cache.SetJSON(ctx, id, sub, s.ttl)
	return sub, nil
}

// GetForDelivery resolves a subscription for dispatch, requiring it to still
// accept eventTypes. A cache hit is checked against eventTypes locally
// before being trusted; a cache miss falls through to a filtered store
// lookup. Either path reports repository.ErrNotFound when the subscription
// is gone or has since unsubscribed from every type in eventTypes - the
// worker treats both the same way: drop the task, write no log.
func (s *SubscriptionService) GetForDelivery(ctx context.Context, id string, eventTypes []string) (repository.Subscription, error) {
	var cached repository.Subscription
	if ok, err := s.cache.GetJSON(ctx, id, &cached); err == nil && ok {
		if !cached.MatchesAny(eventTypes) {
			return repository.Subscription{}, repository.ErrNotFound
		}
		return cached, nil
	}

	sub, err := s.repo.FindByIDFiltered(ctx, id, eventTypes)
	if err != nil {
		return repository.Subscription{}, err
	}
	_ = s.cache.SetJSON(ctx, id, sub, s.ttl)
	return sub, nil
}

// List returns subscriptions matching filter directly from the store; list
// results are not cached since they are not keyed by a single subscription
// ID.
func (s *SubscriptionService) List(ctx context.Context, filter repository.SubscriptionFilter) ([]repository.Subscription, error) {
	return s.repo.List(ctx, filter)
}

// Update persists changes and refreshes the cache entry so a subsequent Get
// never observes stale data.
func (s *SubscriptionService) Update(ctx context.Context, sub repository.Subscription) (repository.Subscription, error) {
	if err := validateTargetURL(sub.TargetURL); err != nil {
		return repository.Subscription{}, err
	}
	updated, err := s.repo.Update(ctx, sub)
	if err != nil {
		return repository.Subscription{}, err
	}
	_ = s.cache.SetJSON(ctx, updated.ID, updated, s.ttl)
	return updated, nil
}

// Delete removes the subscription from both the store and the cache.
func (s *SubscriptionService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.cache.Delete(ctx, id)
	return nil
}
