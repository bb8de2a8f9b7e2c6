package metadata

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/nerrad567/gray-logic-sensorgw/internal/store"
)

// DefaultTTL is used when Config.TTL is zero.
const DefaultTTL = 60 * time.Second

// attributeResolver is the part of *Resolver the service depends on.
type attributeResolver interface {
	Resolve(ctx context.Context, id DeviceID, factory AttributeFactory) ([]SensorAttribute, error)
}

// Config configures a Service.
type Config struct {
	// TTL is how long a resolution stays fresh. Zero means DefaultTTL; a
	// negative value disables caching.
	TTL time.Duration

	// SingleFlight collapses concurrent misses for the same device into one
	// resolver run. When false, every miss runs its own pipeline and the
	// last Put wins.
	SingleFlight bool
}

// Service resolves device metadata through a TTL cache.
type Service struct {
	resolver     attributeResolver
	cache        *Cache
	ttl          time.Duration
	singleFlight bool
	group        singleflight.Group
	now          func() time.Time
	metrics      *Metrics
	logger       Logger
}

// NewService creates a Service. A nil cache gets a fresh one.
func NewService(resolver attributeResolver, cache *Cache, cfg Config) *Service {
	if cache == nil {
		cache = NewCache()
	}
	ttl := cfg.TTL
	if ttl == 0 {
		ttl = DefaultTTL
	}
	return &Service{
		resolver:     resolver,
		cache:        cache,
		ttl:          ttl,
		singleFlight: cfg.SingleFlight,
		now:          time.Now,
		logger:       noopLogger{},
	}
}

// SetLogger sets the logger.
func (s *Service) SetLogger(logger Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// SetMetrics attaches metrics to the service and its cache.
func (s *Service) SetMetrics(m *Metrics) {
	s.metrics = m
	s.cache.SetMetrics(m)
}

// SetClock replaces the time source. Intended for tests.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Cache returns the underlying cache.
func (s *Service) Cache() *Cache { return s.cache }

// Resolve sets the attributes of data, from the cache when fresh and from
// the resolver otherwise. On error data and the cache are unchanged.
func (s *Service) Resolve(ctx context.Context, data DeviceData, factory AttributeFactory) error {
	id := data.DeviceID()

	if entry, ok := s.cache.Get(id); ok && IsValid(entry, s.now(), s.ttl) {
		s.metrics.recordHit()
		data.SetAttributes(entry.Attributes)
		return nil
	}
	s.metrics.recordMiss()

	attrs, err := s.load(ctx, id, factory)
	if err != nil {
		s.logger.Debug("metadata resolution failed", "device_id", string(id), "error", err)
		return err
	}
	data.SetAttributes(attrs)
	return nil
}

// Invalidate drops the cached entry for id.
func (s *Service) Invalidate(id DeviceID) bool {
	return s.cache.Delete(id)
}

// load runs the resolver and caches its result. With single-flight the
// shared run is detached from any one caller's cancellation; each caller
// still stops waiting when its own ctx is done.
func (s *Service) load(ctx context.Context, id DeviceID, factory AttributeFactory) ([]SensorAttribute, error) {
	run := func(ctx context.Context) ([]SensorAttribute, error) {
		attrs, err := s.resolver.Resolve(ctx, id, factory)
		if err != nil {
			return nil, err
		}
		s.cache.Put(id, attrs, s.now())
		return attrs, nil
	}

	if !s.singleFlight {
		return run(ctx)
	}

	flight := s.group.DoChan(string(id), func() (any, error) {
		return run(context.WithoutCancel(ctx))
	})
	select {
	case res := <-flight:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			s.logger.Debug("metadata resolution shared", "device_id", string(id))
		}
		return res.Val.([]SensorAttribute), nil //nolint:forcetypeassert // run returns []SensorAttribute
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for metadata of %q: %w: %w", string(id), store.ErrQuery, ctx.Err())
	}
}
