package database

import (
	"github.com/redis/go-redis/v9"
)

// NewRedis creates a redis client for the OTP and session stores.
func NewRedis(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}
