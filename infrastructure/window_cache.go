package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"pulp/clock"
	"pulp/domain/entities"
	"pulp/domain/interfaces"
	"pulp/events"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// generationKey is bumped on every invalidation; a read only fills the cache
// while it is unchanged
const (
	activeWindowKey = "pulp:window:active"
	generationKey   = "pulp:window:generation"
	noWindowValue   = "none"
)

// NewRedisClient connects to Redis and verifies the connection
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return client, nil
}

// CachedWindowService caches the polled active-window read in Redis. Writes
// pass through and drop the cached entry.
type CachedWindowService struct {
	interfaces.WindowService
	client *redis.Client
	clock  clock.Clock
	ttl    time.Duration
}

// NewCachedWindowService wraps inner with a Redis cache of the given TTL
func NewCachedWindowService(inner interfaces.WindowService, client *redis.Client, clk clock.Clock, ttl time.Duration) *CachedWindowService {
	return &CachedWindowService{
		WindowService: inner,
		client:        client,
		clock:         clk,
		ttl:           ttl,
	}
}

// SubscribeToBus drops the cached window whenever any window changes state
func (s *CachedWindowService) SubscribeToBus(bus *events.Bus) {
	bus.Subscribe(events.EventTypeWindowStateChanged, func(ctx context.Context, event events.Event) {
		s.invalidate(ctx)
	})
}

// GetActiveWindow serves from the cache while the cached window is still
// valid at the current time
func (s *CachedWindowService) GetActiveWindow(ctx context.Context) (*entities.ActiveWindow, error) {
	now := s.clock.Now()

	generation, genErr := s.generation(ctx)
	cached, err := s.client.Get(ctx, activeWindowKey).Result()
	switch {
	case err == nil:
		if cached == noWindowValue {
			return nil, nil
		}
		var window entities.Window
		if jsonErr := json.Unmarshal([]byte(cached), &window); jsonErr == nil && !window.IsDeadlinePassed(now) {
			return entities.NewActiveWindow(&window, now), nil
		}
	case errors.Is(err, redis.Nil):
	default:
		log.WithError(err).Warn("Window cache read failed, falling back to database")
	}

	active, err := s.WindowService.GetActiveWindow(ctx)
	if err != nil {
		return nil, err
	}
	if genErr == nil {
		s.store(ctx, active, generation)
	}
	return active, nil
}

// OpenWindow opens a window and drops the cached entry
func (s *CachedWindowService) OpenWindow(ctx context.Context, playerID int64) (*entities.Window, error) {
	window, err := s.WindowService.OpenWindow(ctx, playerID)
	if err == nil {
		s.invalidate(ctx)
	}
	return window, err
}

// LockExpiredWindows locks overdue windows and drops the cached entry if any changed
func (s *CachedWindowService) LockExpiredWindows(ctx context.Context) (int, error) {
	n, err := s.WindowService.LockExpiredWindows(ctx)
	if n > 0 {
		s.invalidate(ctx)
	}
	return n, err
}

// ExpireStaleWindows expires stale windows and drops the cached entry if any changed
func (s *CachedWindowService) ExpireStaleWindows(ctx context.Context) (int, error) {
	n, err := s.WindowService.ExpireStaleWindows(ctx)
	if n > 0 {
		s.invalidate(ctx)
	}
	return n, err
}

// SettleWindow settles a window and drops the cached entry
func (s *CachedWindowService) SettleWindow(ctx context.Context, windowID, roundID int64) error {
	err := s.WindowService.SettleWindow(ctx, windowID, roundID)
	if err == nil {
		s.invalidate(ctx)
	}
	return err
}

func (s *CachedWindowService) generation(ctx context.Context) (int64, error) {
	generation, err := s.client.Get(ctx, generationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return generation, err
}

// store writes the snapshot only if no invalidation landed since generation
// was read
func (s *CachedWindowService) store(ctx context.Context, active *entities.ActiveWindow, generation int64) {
	value := noWindowValue
	if active != nil {
		data, err := json.Marshal(active.Window)
		if err != nil {
			log.WithError(err).Warn("Failed to encode window for cache")
			return
		}
		value = string(data)
	}

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, generationKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != generation {
			return redis.TxFailedErr
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, activeWindowKey, value, s.ttl)
			return nil
		})
		return err
	}, generationKey)

	switch {
	case err == nil:
	case errors.Is(err, redis.TxFailedErr):
		log.Debug("Window changed during read, skipping cache fill")
	default:
		log.WithError(err).Warn("Window cache write failed")
	}
}

func (s *CachedWindowService) invalidate(ctx context.Context) {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, generationKey)
		pipe.Del(ctx, activeWindowKey)
		return nil
	})
	if err != nil {
		log.WithError(err).Warn("Window cache invalidation failed")
	}
}
