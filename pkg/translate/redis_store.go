package translate

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/grouplane-network/grouplane/pkg/util"
)

const recordTable = "GROUP_TRANSLATION"

// RedisStore persists translation records in a Redis hash per record, so a
// controller restart does not orphan everything the device already holds.
// Each record lives at "GROUP_TRANSLATION|<handle>" with the JSON document
// in the "record" field.
type RedisStore struct {
	client *redis.Client
	ctx    context.Context
}

// NewRedisStore creates a store backed by the given Redis address and DB.
func NewRedisStore(addr string, db int) *RedisStore {
	return &RedisStore{
		client: redis.NewClient(&redis.Options{Addr: addr, DB: db}),
		ctx:    context.Background(),
	}
}

// Connect tests the connection
func (s *RedisStore) Connect() error {
	return s.client.Ping(s.ctx).Err()
}

// Close closes the connection
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Get returns the record for a handle key.
func (s *RedisStore) Get(key string) (Record, bool) {
	data, err := s.client.HGet(s.ctx, redisKey(key), "record").Result()
	if err == redis.Nil {
		return Record{}, false
	}
	if err != nil {
		util.Warnf("translation store: reading %s: %v", key, err)
		return Record{}, false
	}
	var r Record
	if err := json.Unmarshal([]byte(data), &r); err != nil {
		util.Warnf("translation store: malformed record at %s: %v", key, err)
		return Record{}, false
	}
	return r, true
}

// Put stores a record, replacing any previous one.
func (s *RedisStore) Put(key string, r Record) {
	data, err := json.Marshal(r)
	if err != nil {
		util.Errorf("translation store: encoding record for %s: %v", key, err)
		return
	}
	if err := s.client.HSet(s.ctx, redisKey(key), "record", string(data)).Err(); err != nil {
		util.Warnf("translation store: writing %s: %v", key, err)
	}
}

// Delete removes a record.
func (s *RedisStore) Delete(key string) {
	if err := s.client.Del(s.ctx, redisKey(key)).Err(); err != nil {
		util.Warnf("translation store: deleting %s: %v", key, err)
	}
}

func redisKey(key string) string {
	return fmt.Sprintf("%s|%s", recordTable, key)
}
