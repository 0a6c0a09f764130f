package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"reliefcore/pkg/domain"
	"reliefcore/pkg/platform/sentinel"
)

const (
	identityKeyPrefix = "idx:identity:"

	// reservationTTL bounds how long a crashed workflow can hold an identity
	// slot before the reservation evaporates. Commit removes the TTL.
	reservationTTL = 2 * time.Minute

	reservedPrefix  = "reserved:"
	committedPrefix = "committed:"
)

// commitScript promotes a reservation to committed only when the stored token
// still matches, and strips the reservation TTL so the mapping is permanent.
var commitScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	redis.call("SET", KEYS[1], ARGV[2])
	redis.call("PERSIST", KEYS[1])
	return 1
end
return 0
`)

// releaseScript deletes the key only when it still holds this reservation.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisIndex is the distributed implementation of the duplicate-identity
// index. SETNX gives the atomic check-and-set across instances.
type RedisIndex struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *RedisIndex {
	return &RedisIndex{client: client}
}

func (s *RedisIndex) Reserve(ctx context.Context, hash domain.IdentityHash) (Reservation, error) {
	res := newReservation(hash)
	key := identityKeyPrefix + string(hash)

	ok, err := s.client.SetNX(ctx, key, reservedPrefix+res.Token.String(), reservationTTL).Result()
	if err != nil {
		return Reservation{}, fmt.Errorf("reserve identity: %w", err)
	}
	if ok {
		return res, nil
	}

	current, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		// Reservation expired between SETNX and GET; the caller retries.
		return Reservation{}, sentinel.ErrConflict
	}
	if err != nil {
		return Reservation{}, fmt.Errorf("reserve identity: %w", err)
	}
	if strings.HasPrefix(current, committedPrefix) {
		return Reservation{}, sentinel.ErrAlreadyUsed
	}
	return Reservation{}, sentinel.ErrConflict
}

func (s *RedisIndex) Commit(ctx context.Context, res Reservation, urid domain.URID) error {
	key := identityKeyPrefix + string(res.IdentityHash)
	n, err := commitScript.Run(ctx, s.client, []string{key},
		reservedPrefix+res.Token.String(), committedPrefix+string(urid)).Int()
	if err != nil {
		return fmt.Errorf("commit identity: %w", err)
	}
	if n == 0 {
		return sentinel.ErrInvalidState
	}
	return nil
}

func (s *RedisIndex) Release(ctx context.Context, res Reservation) error {
	key := identityKeyPrefix + string(res.IdentityHash)
	n, err := releaseScript.Run(ctx, s.client, []string{key},
		reservedPrefix+res.Token.String()).Int()
	if err != nil {
		return fmt.Errorf("release identity: %w", err)
	}
	if n == 0 {
		return sentinel.ErrInvalidState
	}
	return nil
}

func (s *RedisIndex) Lookup(ctx context.Context, hash domain.IdentityHash) (domain.URID, error) {
	current, err := s.client.Get(ctx, identityKeyPrefix+string(hash)).Result()
	if errors.Is(err, redis.Nil) {
		return "", sentinel.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("lookup identity: %w", err)
	}
	urid, ok := strings.CutPrefix(current, committedPrefix)
	if !ok {
		return "", sentinel.ErrNotFound
	}
	return domain.URID(urid), nil
}
