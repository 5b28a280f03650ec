// Package redis provides the shared object cache backend: a go-redis client
// with logging and pooling, and EntryStore, which implements
// objectcache.Store on top of it.
//
// Each entry is a JSON document under "<prefix>entry:<key>". A set per
// resource type under "<prefix>type:<type>" indexes the keys whose
// representation contains that type.
//
//	client, err := redis.New(redis.Config{Enabled: true, Addr: "localhost:6379"}, log)
//	store := redis.NewEntryStore(client, "hyperdata:")
//	cache := objectcache.New(store, 15*time.Minute, log)
package redis
