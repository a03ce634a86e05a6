package feed

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/uzeed/uzeed/internal/pkg/cache"
)

// RedisRatingCache keeps average ratings in the shared cache.
type RedisRatingCache struct{}

func ratingKey(profileID uint) string {
	return fmt.Sprintf("feed:rating:%d", profileID)
}

func (RedisRatingCache) GetRating(profileID uint) (float64, bool) {
	var avg float64
	if err := cache.GetJSON(ratingKey(profileID), &avg); err != nil {
		if !cache.IsMiss(err) {
			log.Warnf("[Feed] rating cache read failed: %v", err)
		}
		return 0, false
	}
	return avg, true
}

func (RedisRatingCache) SetRating(profileID uint, avg float64, ttl time.Duration) {
	if err := cache.SetJSON(ratingKey(profileID), avg, ttl); err != nil {
		log.Warnf("[Feed] rating cache write failed: %v", err)
	}
}

// InvalidateRating drops a cached average after a new rating.
func InvalidateRating(profileID uint) {
	if err := cache.Delete(ratingKey(profileID)); err != nil {
		log.Warnf("[Feed] rating cache delete failed: %v", err)
	}
}
