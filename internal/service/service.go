package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/pelyams/simpler_recommendation_service/internal/domain"
	"github.com/pelyams/simpler_recommendation_service/internal/logging"
	"github.com/pelyams/simpler_recommendation_service/internal/ports"
	"github.com/pelyams/simpler_recommendation_service/internal/telemetry"
)

const (
	maxResponses = 5
	cacheFlag    = "recommendationCache"
	missRate     = 0.5

	slowLabgenCase = "0021"
	slowProductId  = "9SIQT8TOJO"
)

type RecommendationService struct {
	catalog  ports.Catalog
	flags    ports.FeatureFlags
	cache    ports.RecommendationCache
	recorder ports.Recorder

	draw       func() float64
	perm       func(n int) []int
	jitter     func() float64
	labgenCase string
}

type Option func(*RecommendationService)

// WithFeatureFlags sets the flag source. Without one the cache is never used.
func WithFeatureFlags(flags ports.FeatureFlags) Option {
	return func(s *RecommendationService) {
		s.flags = flags
	}
}

func WithRecorder(recorder ports.Recorder) Option {
	return func(s *RecommendationService) {
		s.recorder = recorder
	}
}

// WithRandom replaces the cache miss draw and the sampling permutation.
// Both must be safe for concurrent use.
func WithRandom(draw func() float64, perm func(n int) []int) Option {
	return func(s *RecommendationService) {
		s.draw = draw
		s.perm = perm
	}
}

// WithDelayJitter replaces the uniform source of the labgen slow product delay.
func WithDelayJitter(jitter func() float64) Option {
	return func(s *RecommendationService) {
		s.jitter = jitter
	}
}

func WithLabgenCase(labgenCase string) Option {
	return func(s *RecommendationService) {
		s.labgenCase = labgenCase
	}
}

func NewRecommendationService(catalog ports.Catalog, cache ports.RecommendationCache, opts ...Option) *RecommendationService {
	s := &RecommendationService{
		catalog:  catalog,
		cache:    cache,
		recorder: telemetry.Noop{},
		draw:     rand.Float64,
		perm:     rand.Perm,
		jitter:   rand.Float64,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RecommendationService) ListRecommendations(ctx context.Context, productIds []string) ([]string, *domain.ServiceError) {
	var nonCriticalErrors []error
	callerIds := normalizeProductIds(productIds)

	cacheEnabled, flagErr := s.cacheEnabled(ctx)
	if flagErr != nil {
		nonCriticalErrors = append(nonCriticalErrors, flagErr)
	}

	var pool []string
	// names only holds products fetched during this call
	var names map[string]string
	if cacheEnabled {
		if !s.cache.IsPrimed() || s.draw() < missRate {
			logging.Ctx(ctx).Info().Bool("cache_hit", false).Msg("get_product_list: cache miss")
			s.recorder.CacheLookup(false)
			s.cache.MarkPrimed()
			products, err := s.catalog.ListProducts(ctx)
			if err != nil {
				return nil, domain.NewServiceError(err, nonCriticalErrors)
			}
			s.cache.Grow(productIdsOf(products))
			pool = s.cache.Snapshot()
			names = namesById(products)
		} else {
			logging.Ctx(ctx).Info().Bool("cache_hit", true).Msg("get_product_list: cache hit")
			s.recorder.CacheLookup(true)
			pool = s.cache.Snapshot()
		}
		s.recorder.CacheSize(len(pool))
	} else {
		products, err := s.catalog.ListProducts(ctx)
		if err != nil {
			return nil, domain.NewServiceError(err, nonCriticalErrors)
		}
		pool = productIdsOf(products)
		names = namesById(products)
	}

	filtered := filterProducts(pool, callerIds)
	numReturn := min(maxResponses, len(filtered))
	logging.Ctx(ctx).Debug().
		Bool("cache_enabled", cacheEnabled).
		Int("products_count", len(pool)).
		Int("filtered_products_count", len(filtered)).
		Msg("filtered product pool")

	recommended := make([]string, 0, numReturn)
	for _, i := range s.perm(len(filtered))[:numReturn] {
		recommended = append(recommended, filtered[i])
	}

	for _, id := range recommended {
		name, ok := names[id]
		if !ok {
			lookupErr := fmt.Errorf("%w: no name for recommended product %s", domain.ErrLookupFault, id)
			return nil, domain.NewServiceError(lookupErr, nonCriticalErrors)
		}
		logging.Ctx(ctx).Info().Msgf("%s = %s", id, name)
		if err := s.processRecommendedProduct(ctx, id); err != nil {
			return nil, domain.NewServiceError(err, nonCriticalErrors)
		}
	}

	logging.Ctx(ctx).Info().Strs("product_ids", recommended).Msg("Receive ListRecommendations")
	s.recorder.AddRecommendations(len(recommended), "catalog")
	s.recorder.AddRecommendations(len(recommended), "unknown")

	if nonCriticalErrors != nil {
		return recommended, domain.NewServiceError(nil, nonCriticalErrors)
	}
	return recommended, nil
}

// cacheEnabled fails open: any flag problem disables the cache. An undefined
// flag is not reported as an error.
func (s *RecommendationService) cacheEnabled(ctx context.Context) (bool, error) {
	if s.flags == nil {
		return false, nil
	}
	flag, err := s.flags.GetFlag(ctx, cacheFlag)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("feature flag %s treated as disabled: %w", cacheFlag, err)
	}
	return flag.Enabled, nil
}

func (s *RecommendationService) processRecommendedProduct(ctx context.Context, id string) error {
	if s.labgenCase != slowLabgenCase || id != slowProductId {
		return nil
	}
	delay := 100*time.Millisecond + time.Duration(s.jitter()*float64(400*time.Millisecond))
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// normalizeProductIds accepts both ["A","B"] and ["A,B"].
func normalizeProductIds(productIds []string) map[string]struct{} {
	ids := make(map[string]struct{}, len(productIds))
	for _, raw := range productIds {
		for _, id := range strings.Split(raw, ",") {
			id = strings.TrimSpace(id)
			if id != "" {
				ids[id] = struct{}{}
			}
		}
	}
	return ids
}

// filterProducts returns the distinct pool ids not held by the caller, in
// order of first appearance.
func filterProducts(pool []string, callerIds map[string]struct{}) []string {
	seen := make(map[string]struct{}, len(pool))
	filtered := make([]string, 0, len(pool))
	for _, id := range pool {
		if _, ok := callerIds[id]; ok {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		filtered = append(filtered, id)
	}
	return filtered
}

func productIdsOf(products []domain.Product) []string {
	ids := make([]string, 0, len(products))
	for _, p := range products {
		ids = append(ids, p.Id)
	}
	return ids
}

func namesById(products []domain.Product) map[string]string {
	names := make(map[string]string, len(products))
	for _, p := range products {
		names[p.Id] = p.Name
	}
	return names
}
