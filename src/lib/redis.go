package lib

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

var redisClient *redis.Client

func GetRedisClient() *redis.Client {
	if redisClient != nil {
		return redisClient
	}
	redisHost := os.Getenv("REDIS_HOST")
	opt, err := redis.ParseURL(redisHost)
	if err != nil {
		log.Printf("[redis] Error parsing connection string: %s\n", err.Error())
		return nil
	}
	rdb := redis.NewClient(opt)
	redisClient = rdb
	return rdb
}

// NewRedisClient Replace redis instance with custom client implementation
func NewRedisClient(c *redis.Client) *redis.Client {
	redisClient = c
	return redisClient
}

// CacheDeviceToken stores a buyer's FCM registration token for push
// delivery on sale notifications.
func CacheDeviceToken(uid string, token string) error {
	rdb := GetRedisClient()
	key := fmt.Sprintf("%s:fcm", uid)
	return rdb.Set(context.Background(), key, token, 30*24*time.Hour).Err()
}

// EventSeen reports whether a payment-provider event id was already
// applied inside the retention window. Redis being unreachable degrades
// to "not seen" since the reconciliation handlers are idempotent anyway.
func EventSeen(eventID string) bool {
	rdb := GetRedisClient()
	if rdb == nil {
		return false
	}
	key := fmt.Sprintf("stripe:event:%s", eventID)
	n, err := rdb.Exists(context.Background(), key).Result()
	return err == nil && n > 0
}

// MarkEventSeen records a provider event id once it has been applied.
// Called only after processing succeeds so a transient failure leaves
// the retry path open.
func MarkEventSeen(eventID string) {
	rdb := GetRedisClient()
	if rdb == nil {
		return
	}
	key := fmt.Sprintf("stripe:event:%s", eventID)
	if err := rdb.Set(context.Background(), key, 1, 24*time.Hour).Err(); err != nil {
		log.Printf("[redis] Error caching event %s: %s\n", eventID, err.Error())
	}
}

func GetDeviceToken(uid string) (string, error) {
	rdb := GetRedisClient()
	key := fmt.Sprintf("%s:fcm", uid)
	token, err := rdb.Get(context.Background(), key).Result()
	if err == redis.Nil {
		return "", nil
	}
	return token, err
}
