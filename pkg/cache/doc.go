// Package cache provides a generic, thread-safe LRU cache with optional
// entry expiry.
//
// The cache evicts the least recently used entry once it holds capacity
// entries. With WithTTL every entry also expires after a fixed lifetime;
// expired entries are dropped when next accessed. Time is read through a
// clockwork.Clock so tests can advance it.
//
//	keys := cache.New[string, *rsa.PublicKey](64, cache.WithTTL(time.Hour))
//	keys.Put(kid, key)
//	key, ok := keys.Get(kid)
//
// The auth subsystem uses it to cache identity-provider signing keys by key
// id.
package cache
