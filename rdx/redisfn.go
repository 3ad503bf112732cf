package rdx

import (
	"log"
	"os"
	"time"

	"voyago/globals"

	"github.com/redis/go-redis/v9"
)

var Conn *redis.Client

// Initialize Redis connection
func init() {
	addr := os.Getenv("REDIS_URL")
	if addr == "" {
		addr = "localhost:6379"
	}

	Conn = redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASSWORD"), // Empty if no password
		DB:       0,
	})
}

// RdxSet stores a plain key/value pair.
func RdxSet(key, value string) error {
	return Conn.Set(globals.Ctx, key, value, 0).Err()
}

// RdxGet fetches a plain key; empty string when missing.
func RdxGet(key string) (string, error) {
	val, err := Conn.Get(globals.Ctx, key).Result()
	if err == redis.Nil {
		return "", nil
	}
	return val, err
}

// RdxSetNX acquires key as a lock with a TTL. Returns true when acquired.
func RdxSetNX(key, value string, ttl time.Duration) (bool, error) {
	return Conn.SetNX(globals.Ctx, key, value, ttl).Result()
}

func RdxDel(key string) error {
	return Conn.Del(globals.Ctx, key).Err()
}

func RdxHset(hash, field, value string) error {
	return Conn.HSet(globals.Ctx, hash, field, value).Err()
}

func RdxHget(hash, field string) (string, error) {
	val, err := Conn.HGet(globals.Ctx, hash, field).Result()
	if err == redis.Nil {
		return "", nil
	}
	return val, err
}

// RdxPing verifies the connection at startup.
func RdxPing() {
	if err := Conn.Ping(globals.Ctx).Err(); err != nil {
		log.Printf("Redis ping failed: %v", err)
	}
}
