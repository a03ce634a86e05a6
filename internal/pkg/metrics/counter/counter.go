package counter

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/uzeed/uzeed/internal/pkg/cache"
	"github.com/uzeed/uzeed/internal/pkg/database"
)

const profileViewsKey = "profile:counters:views"

// AddProfileView increments the pending view counter for a profile in Redis
func AddProfileView(profileID uint) error {
	return addView(context.Background(), cache.GetClient(), profileID)
}

func addView(ctx context.Context, rdb *redis.Client, profileID uint) error {
	field := strconv.FormatUint(uint64(profileID), 10)
	return rdb.HIncrBy(ctx, profileViewsKey, field, 1).Err()
}

// FlushAll moves the buffered profile views into users.profile_views and
// returns how many profiles were updated.
func FlushAll() (int, error) {
	return flushHashToTable(context.Background(), cache.GetClient(), database.GetDB(), profileViewsKey, "users", "profile_views")
}

// flushHashToTable drains a Redis hash and applies the increments in one
// UPDATE. The hash is renamed first so increments arriving during the flush
// land in a fresh key.
func flushHashToTable(ctx context.Context, rdb *redis.Client, db *gorm.DB, redisKey, table, column string) (int, error) {
	tmpKey := fmt.Sprintf("%s:tmp:%d", redisKey, time.Now().UnixNano())
	if err := rdb.Rename(ctx, redisKey, tmpKey).Err(); err != nil {
		if errors.Is(err, redis.Nil) || strings.Contains(strings.ToLower(err.Error()), "no such key") {
			return 0, nil
		}
		return 0, err
	}
	defer rdb.Del(ctx, tmpKey)

	data, err := rdb.HGetAll(ctx, tmpKey).Result()
	if err != nil {
		return 0, err
	}

	type pair struct {
		id  uint64
		inc int64
	}
	pairs := make([]pair, 0, len(data))
	for k, v := range data {
		id, perr := strconv.ParseUint(k, 10, 64)
		if perr != nil {
			continue
		}
		inc, ierr := strconv.ParseInt(v, 10, 64)
		if ierr != nil || inc == 0 {
			continue
		}
		pairs = append(pairs, pair{id: id, inc: inc})
	}
	if len(pairs) == 0 {
		return 0, nil
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].id < pairs[j].id })

	// UPDATE <table> SET <column> = <column> + CASE id WHEN ? THEN ? ... END WHERE id IN (...)
	var b strings.Builder
	args := make([]interface{}, 0, len(pairs)*3)
	fmt.Fprintf(&b, "UPDATE %s SET %s = %s + CASE id", table, column, column)
	for _, p := range pairs {
		b.WriteString(" WHEN ? THEN ?")
		args = append(args, p.id, p.inc)
	}
	b.WriteString(" END WHERE id IN (")
	for i, p := range pairs {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString("?")
		args = append(args, p.id)
	}
	b.WriteString(")")

	if err := db.WithContext(ctx).Exec(b.String(), args...).Error; err != nil {
		return 0, err
	}
	return len(pairs), nil
}
