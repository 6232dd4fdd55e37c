package usecase

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	cacheport "go-wabridge/internal/infrastructure/cache/port"
)

const defaultBotStatusTTL = 30 * time.Second

// botStatusCache fronts the bot flag reads. The store stays authoritative:
// every cache failure degrades to a store read.
type botStatusCache struct {
	cache cacheport.Cache
	ttl   time.Duration
	log   zerolog.Logger
}

func botStatusKey(conversationID string) string {
	return "bot:active:" + conversationID
}

func (b botStatusCache) get(ctx context.Context, conversationID string) (active, ok bool) {
	if b.cache == nil {
		return false, false
	}
	v, err := b.cache.Get(ctx, botStatusKey(conversationID))
	if err != nil {
		if !errors.Is(err, cacheport.ErrMiss) {
			b.log.Warn().Err(err).Str("conversation_id", conversationID).Msg("bot status cache read")
		}
		return false, false
	}
	active, err = strconv.ParseBool(v)
	return active, err == nil
}

// fill caches a value read from the store. It never overwrites an entry, so
// a slow read cannot replace what a concurrent writer stored.
func (b botStatusCache) fill(ctx context.Context, conversationID string, active bool) {
	if b.cache == nil {
		return
	}
	if _, err := b.cache.SetNX(ctx, botStatusKey(conversationID), strconv.FormatBool(active), b.expiry()); err != nil {
		b.log.Warn().Err(err).Str("conversation_id", conversationID).Msg("bot status cache fill")
	}
}

// store records a value the caller just wrote to the store. If the cache
// cannot take it the key is dropped instead.
func (b botStatusCache) store(ctx context.Context, conversationID string, active bool) {
	if b.cache == nil {
		return
	}
	key := botStatusKey(conversationID)
	err := b.cache.Set(ctx, key, strconv.FormatBool(active), b.expiry())
	if err == nil {
		return
	}
	b.log.Warn().Err(err).Str("conversation_id", conversationID).Msg("bot status cache write")
	if _, err := b.cache.Del(ctx, key); err != nil {
		b.log.Warn().Err(err).Str("conversation_id", conversationID).Msg("bot status cache invalidate")
	}
}

func (b botStatusCache) expiry() time.Duration {
	if b.ttl <= 0 {
		return defaultBotStatusTTL
	}
	return b.ttl
}
