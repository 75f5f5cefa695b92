package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/irfndi/predictarena-go/internal/utils"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lease only if it still holds our token, so an
// expired lease taken over by another instance is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// ErrResolutionInProgress is returned when another caller holds the lease.
var ErrResolutionInProgress = utils.ErrStorageFailure.WithCode("resolution_in_progress")

// RedisContestLease serializes contest resolution across instances with
// SET NX PX.
type RedisContestLease struct {
	redis  *redis.Client
	prefix string
}

// NewRedisContestLease creates a lease backed by client.
func NewRedisContestLease(client *redis.Client) *RedisContestLease {
	return &RedisContestLease{redis: client, prefix: "lease:resolve:"}
}

// Acquire takes the lease for contestID for at most ttl. The returned release
// func gives it back; calling it after expiry is harmless.
func (l *RedisContestLease) Acquire(ctx context.Context, contestID string, ttl time.Duration) (func(context.Context) error, error) {
	key := l.prefix + contestID
	token := uuid.NewString()

	ok, err := l.redis.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, utils.Wrap(utils.KindStorageFailure, err, "acquire resolution lease")
	}
	if !ok {
		return nil, &utils.Error{
			Kind:    ErrResolutionInProgress.Kind,
			Code:    ErrResolutionInProgress.Code,
			Message: fmt.Sprintf("contest %s is already being resolved", contestID),
		}
	}

	release := func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, l.redis, []string{key}, token).Err(); err != nil && err != redis.Nil {
			return fmt.Errorf("release resolution lease for %s: %w", contestID, err)
		}
		return nil
	}
	return release, nil
}
