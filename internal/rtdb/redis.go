package rtdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
)

const (
	redisLeafPrefix = "rtdb:leaf:"
	redisRevPrefix  = "rtdb:rev:"
	redisSeqKey     = "rtdb:seq"
	redisChannel    = "rtdb:changes"
)

// RedisStore keeps leaves in individual keys and fans changes out through a
// pub/sub channel, so multiple server processes can share one tree. Writes
// are optimistic transactions WATCHing the node's revision keys; a lost race
// retries (plain Write) or surfaces as ErrConflict (CompareAndSwap).
type RedisStore struct {
	client *redis.Client
	hub    *hub
	cancel context.CancelFunc
}

func NewRedisStore(client *redis.Client) *RedisStore {
	s := &RedisStore{client: client}
	s.hub = newHub(func(ctx context.Context, path string) (any, uint64, error) {
		return s.read(ctx, path)
	})

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go s.listen(ctx)
	return s
}

// listen relays cross-process change notifications into the local hub.
func (s *RedisStore) listen(ctx context.Context) {
	sub := s.client.Subscribe(ctx, redisChannel)
	defer sub.Close()
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			s.hub.notify(msg.Payload)
		}
	}
}

func (s *RedisStore) Read(ctx context.Context, path string) (json.RawMessage, uint64, error) {
	if err := validPath(path); err != nil {
		return nil, 0, err
	}
	v, rev, err := s.read(ctx, path)
	if err != nil {
		return nil, 0, err
	}
	raw, err := encodeValue(v)
	return raw, rev, err
}

func (s *RedisStore) Write(ctx context.Context, path string, value any) error {
	// Plain writes retry through transient WATCH races.
	for i := 0; ; i++ {
		err := s.write(ctx, path, value, nil)
		if !errors.Is(err, redis.TxFailedErr) || i >= 4 {
			return err
		}
	}
}

func (s *RedisStore) CompareAndSwap(ctx context.Context, path string, expectedRev uint64, value any) error {
	err := s.write(ctx, path, value, &expectedRev)
	if errors.Is(err, redis.TxFailedErr) {
		return fmt.Errorf("%w: %s changed during swap", ErrConflict, path)
	}
	return err
}

func (s *RedisStore) Delete(ctx context.Context, path string) error {
	return s.Write(ctx, path, nil)
}

func (s *RedisStore) Push(ctx context.Context, path string, value any) (string, error) {
	key := NewKey()
	if err := s.Write(ctx, path+"/"+key, value); err != nil {
		return "", err
	}
	return key, nil
}

func (s *RedisStore) Update(ctx context.Context, path string, fields map[string]any) error {
	if err := validPath(path); err != nil {
		return err
	}
	// Field merge at one node: read, merge, write back whole fields under
	// their own paths so sibling fields written concurrently survive.
	for k, v := range fields {
		if err := s.Write(ctx, path+"/"+k, v); err != nil {
			return err
		}
	}
	return nil
}

func (s *RedisStore) Subscribe(path string, fn func(Event)) func() {
	return s.hub.subscribe(path, fn)
}

func (s *RedisStore) Close() error {
	s.cancel()
	s.hub.close()
	return nil
}

func (s *RedisStore) write(ctx context.Context, path string, value any, expectedRev *uint64) error {
	if err := validPath(path); err != nil {
		return err
	}
	v, err := normalize(value)
	if err != nil {
		return err
	}

	revKeys := make([]string, 0, 8)
	for _, p := range selfAndAncestors(path) {
		revKeys = append(revKeys, redisRevPrefix+p)
	}

	txn := func(tx *redis.Tx) error {
		if expectedRev != nil {
			rev, err := s.nodeRev(ctx, path)
			if err != nil {
				return err
			}
			if rev != *expectedRev {
				return fmt.Errorf("%w: %s at rev %d, expected %d", ErrConflict, path, rev, *expectedRev)
			}
		}

		oldLeaves, err := s.scanKeys(ctx, redisLeafPrefix+path+"/*")
		if err != nil {
			return err
		}
		if n, err := s.client.Exists(ctx, redisLeafPrefix+path).Result(); err != nil {
			return err
		} else if n > 0 {
			oldLeaves = append(oldLeaves, redisLeafPrefix+path)
		}
		oldRevs, err := s.scanKeys(ctx, redisRevPrefix+path+"/*")
		if err != nil {
			return err
		}

		next := make(map[string]any)
		flatten(path, v, next)
		if len(oldLeaves) == 0 && len(next) == 0 {
			return nil // deleting nothing
		}

		seq, err := s.client.Incr(ctx, redisSeqKey).Result()
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if len(oldLeaves) > 0 {
				pipe.Del(ctx, oldLeaves...)
			}
			if len(oldRevs) > 0 {
				pipe.Del(ctx, oldRevs...)
			}
			if len(next) > 0 {
				for _, anc := range selfAndAncestors(path)[1:] {
					if anc == "" {
						break
					}
					pipe.Del(ctx, redisLeafPrefix+anc)
				}
				for p, lv := range next {
					data, err := json.Marshal(lv)
					if err != nil {
						return fmt.Errorf("rtdb: encoding leaf %s: %w", p, err)
					}
					pipe.Set(ctx, redisLeafPrefix+p, string(data), 0)
				}
			}
			for _, p := range selfAndAncestors(path) {
				pipe.Set(ctx, redisRevPrefix+p, strconv.FormatInt(seq, 10), 0)
			}
			pipe.Publish(ctx, redisChannel, path)
			return nil
		})
		return err
	}

	if err := s.client.Watch(ctx, txn, revKeys...); err != nil {
		return err
	}
	s.hub.notify(path)
	return nil
}

func (s *RedisStore) read(ctx context.Context, path string) (any, uint64, error) {
	keys, err := s.scanKeys(ctx, redisLeafPrefix+path+"/*")
	if err != nil {
		return nil, 0, err
	}
	keys = append(keys, redisLeafPrefix+path)

	leaves := make(map[string]any)
	if len(keys) > 0 {
		vals, err := s.client.MGet(ctx, keys...).Result()
		if err != nil {
			return nil, 0, fmt.Errorf("rtdb: reading leaves: %w", err)
		}
		for i, raw := range vals {
			if raw == nil {
				continue
			}
			str, ok := raw.(string)
			if !ok {
				continue
			}
			var v any
			if err := json.Unmarshal([]byte(str), &v); err != nil {
				return nil, 0, fmt.Errorf("rtdb: decoding leaf %s: %w", keys[i], err)
			}
			leaves[strings.TrimPrefix(keys[i], redisLeafPrefix)] = v
		}
	}

	rev, err := s.nodeRev(ctx, path)
	if err != nil {
		return nil, 0, err
	}
	return assemble(path, leaves), rev, nil
}

func (s *RedisStore) nodeRev(ctx context.Context, path string) (uint64, error) {
	for _, p := range selfAndAncestors(path) {
		val, err := s.client.Get(ctx, redisRevPrefix+p).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("rtdb: reading rev: %w", err)
		}
		rev, err := strconv.ParseUint(val, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("rtdb: parsing rev %q: %w", val, err)
		}
		return rev, nil
	}
	return 0, nil
}

func (s *RedisStore) scanKeys(ctx context.Context, match string) ([]string, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, match, 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("rtdb: scanning %s: %w", match, err)
	}
	return keys, nil
}
