package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/kbukum/hyperdata/objectcache"
)

// EntryStore implements objectcache.Store on Redis.
type EntryStore struct {
	client *Client
	prefix string
}

var _ objectcache.Store = (*EntryStore)(nil)

// NewEntryStore creates an EntryStore. prefix namespaces every key it writes.
func NewEntryStore(client *Client, prefix string) *EntryStore {
	return &EntryStore{client: client, prefix: prefix}
}

func (s *EntryStore) entryKey(key string) string { return s.prefix + "entry:" + key }
func (s *EntryStore) typeKey(t string) string { return s.prefix + "type:" + t }

// Get implements objectcache.Store. The JSON envelope carries the
// representation as base64, so it comes back byte for byte.
func (s *EntryStore) Get(ctx context.Context, key string) (*objectcache.Entry, error) {
	raw, err := s.client.rdb.Get(ctx, s.entryKey(key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("entry store get %q: %w", key, err)
	}
	var e objectcache.Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, fmt.Errorf("entry store decode %q: %w", key, err)
	}
	return &e, nil
}

// Set implements objectcache.Store.
func (s *EntryStore) Set(ctx context.Context, entry *objectcache.Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("entry store encode %q: %w", entry.Key, err)
	}

	old, err := s.Get(ctx, entry.Key)
	if err != nil {
		return err
	}

	_, err = s.client.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		if old != nil {
			for _, t := range old.Types {
				pipe.SRem(ctx, s.typeKey(t), entry.Key)
			}
		}
		pipe.Set(ctx, s.entryKey(entry.Key), data, s.client.cfg.EntryExpiry)
		for _, t := range entry.Types {
			pipe.SAdd(ctx, s.typeKey(t), entry.Key)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("entry store set %q: %w", entry.Key, err)
	}
	return nil
}

// Delete implements objectcache.Store.
func (s *EntryStore) Delete(ctx context.Context, key string) error {
	old, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	_, err = s.client.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		if old != nil {
			for _, t := range old.Types {
				pipe.SRem(ctx, s.typeKey(t), key)
			}
		}
		pipe.Del(ctx, s.entryKey(key))
		return nil
	})
	if err != nil {
		return fmt.Errorf("entry store delete %q: %w", key, err)
	}
	return nil
}

// KeysByType implements objectcache.Store. Members whose entry expired are
// pruned from the set on the way out.
func (s *EntryStore) KeysByType(ctx context.Context, resourceType string) ([]string, error) {
	members, err := s.client.rdb.SMembers(ctx, s.typeKey(resourceType)).Result()
	if err != nil {
		return nil, fmt.Errorf("entry store keys for %q: %w", resourceType, err)
	}

	keys := make([]string, 0, len(members))
	for _, key := range members {
		n, err := s.client.rdb.Exists(ctx, s.entryKey(key)).Result()
		if err != nil {
			return nil, fmt.Errorf("entry store exists %q: %w", key, err)
		}
		if n == 0 {
			s.client.rdb.SRem(ctx, s.typeKey(resourceType), key)
			continue
		}
		keys = append(keys, key)
	}
	return keys, nil
}
