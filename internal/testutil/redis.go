//go:build integration

// Package testutil provides Redis helpers for integration tests that run
// against a live device agent DB.
package testutil

import (
	"context"
	"os"
	"testing"

	"github.com/go-redis/redis/v8"
)

// RedisAddr returns the address of the test Redis, from GROUPLANE_TEST_REDIS
// or the local default.
func RedisAddr() string {
	if addr := os.Getenv("GROUPLANE_TEST_REDIS"); addr != "" {
		return addr
	}
	return "127.0.0.1:6379"
}

// FlushDB flushes a specific Redis database.
func FlushDB(t *testing.T, addr string, db int) {
	t.Helper()

	client := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	defer client.Close()

	if err := client.FlushDB(context.Background()).Err(); err != nil {
		t.Fatalf("flushing DB %d: %v", db, err)
	}
}

// WriteEntry writes a single hash field to a specific Redis DB at
// "<table>|<key>".
func WriteEntry(t *testing.T, addr string, db int, table, key, field, value string) {
	t.Helper()

	client := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	defer client.Close()

	if err := client.HSet(context.Background(), table+"|"+key, field, value).Err(); err != nil {
		t.Fatalf("writing %s|%s: %v", table, key, err)
	}
}

// ReadEntry reads a hash field from a specific Redis DB. Returns "" if the
// entry does not exist.
func ReadEntry(t *testing.T, addr string, db int, table, key, field string) string {
	t.Helper()

	client := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	defer client.Close()

	val, err := client.HGet(context.Background(), table+"|"+key, field).Result()
	if err == redis.Nil {
		return ""
	}
	if err != nil {
		t.Fatalf("reading %s|%s: %v", table, key, err)
	}
	return val
}

// EntryExists checks if a key exists in a specific Redis DB.
func EntryExists(t *testing.T, addr string, db int, table, key string) bool {
	t.Helper()

	client := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	defer client.Close()

	n, err := client.Exists(context.Background(), table+"|"+key).Result()
	if err != nil {
		t.Fatalf("checking existence of %s|%s: %v", table, key, err)
	}
	return n > 0
}
