package session

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store persists sessions in Redis with a sliding TTL.
type Store struct {
	rdb *redis.Client
}

func NewStore(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

// Load returns the session at key, or nil if there is none. A record
// that fails to decode is treated as absent: the dialogue falls open
// to a fresh greeting instead of crashing on a half-written blob.
func (s *Store) Load(ctx context.Context, key string) (*Session, error) {
	raw, err := s.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var sess Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		log.Printf("[session] malformed record at %s, dropping: %v", key, err)
		return nil, nil
	}
	if !sess.Step.Valid() {
		log.Printf("[session] unknown step %q at %s, dropping", sess.Step, key)
		return nil, nil
	}
	if sess.Cart == nil {
		sess.Cart = map[int]*CartLine{}
	}
	return &sess, nil
}

// Save writes the session with the given TTL (SETEX).
func (s *Store) Save(ctx context.Context, key string, sess *Session, ttl time.Duration) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, key, raw, ttl).Err()
}

// Clear deletes the session. Deleting an absent key is not an error.
func (s *Store) Clear(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key).Err()
}

// RefreshTTL slides the idle-expiration window without rewriting the value.
func (s *Store) RefreshTTL(ctx context.Context, key string, ttl time.Duration) error {
	return s.rdb.Expire(ctx, key, ttl).Err()
}
