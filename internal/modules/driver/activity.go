// README: Redis sorted-set index of each driver's recent trips, used for dashboard counts.
package driver

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	activityKeyPrefix = "driver:%s:trips"
	// Entries older than this are trimmed on every write.
	activityRetention = 8 * 24 * time.Hour
)

type ActivityIndex struct {
	redis *redis.Client
}

func NewActivityIndex(client *redis.Client) *ActivityIndex {
	return &ActivityIndex{redis: client}
}

// Record adds a trip to the driver's index, scored by creation time.
func (a *ActivityIndex) Record(ctx context.Context, username, tripID string, createdAt time.Time) error {
	key := activityKey(username)
	pipe := a.redis.TxPipeline()
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(createdAt.UnixMilli()), Member: tripID})
	pipe.ZRemRangeByScore(ctx, key, "-inf", "("+strconv.FormatInt(createdAt.Add(-activityRetention).UnixMilli(), 10))
	pipe.Expire(ctx, key, activityRetention)
	_, err := pipe.Exec(ctx)
	return err
}

// CountBetween returns how many indexed trips fall in [from, to].
func (a *ActivityIndex) CountBetween(ctx context.Context, username string, from, to time.Time) (int, error) {
	n, err := a.redis.ZCount(ctx, activityKey(username),
		strconv.FormatInt(from.UnixMilli(), 10),
		strconv.FormatInt(to.UnixMilli(), 10),
	).Result()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func activityKey(username string) string {
	return fmt.Sprintf(activityKeyPrefix, username)
}
