package cache

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// WordListKey holds the cached active blocked-word list.
const WordListKey = "moderation:words:active"

const opTimeout = 2 * time.Second

// UserKey returns the cache key for a user projection.
func UserKey(id uuid.UUID) string { return "user:" + id.String() }

// ListingKey returns the cache key for a listing projection.
func ListingKey(id uuid.UUID) string { return "listing:" + id.String() }

// Invalidator drops cached projections after ledger writes and status flips.
// Invalidation never gates correctness: every failure is logged and swallowed,
// a nil client turns all calls into no-ops.
type Invalidator struct {
	client *redis.Client

	// Per-key in-flight guard so concurrent writers touching the same entity
	// do not stack redundant DELs. Scoped to this value's lifetime.
	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewInvalidator creates a cache invalidator. client may be nil.
func NewInvalidator(client *redis.Client) *Invalidator {
	return &Invalidator{
		client:   client,
		inFlight: make(map[string]struct{}),
	}
}

// InvalidateUser drops cached state keyed by the user id.
func (i *Invalidator) InvalidateUser(userID uuid.UUID) {
	i.drop(UserKey(userID))
}

// InvalidateListing drops cached state keyed by the listing id.
func (i *Invalidator) InvalidateListing(listingID uuid.UUID) {
	i.drop(ListingKey(listingID))
}

// InvalidateWordList drops the cached active blocked-word list.
func (i *Invalidator) InvalidateWordList() {
	i.drop(WordListKey)
}

func (i *Invalidator) drop(key string) {
	if i.client == nil {
		return
	}

	i.mu.Lock()
	if _, busy := i.inFlight[key]; busy {
		i.mu.Unlock()
		return
	}
	i.inFlight[key] = struct{}{}
	i.mu.Unlock()

	go func() {
		defer func() {
			i.mu.Lock()
			delete(i.inFlight, key)
			i.mu.Unlock()
		}()

		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()

		if err := i.client.Del(ctx, key).Err(); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("Cache invalidation failed")
		}
	}()
}
