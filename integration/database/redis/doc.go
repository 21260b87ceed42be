// Package redis implements the session store on Redis.
//
// Session records are JSON blobs keyed by hashed token with an absolute TTL
// matching the session expiry, so the hard lifetime ceiling is enforced by
// Redis even if Prune never runs. Per-principal SETs index the tokens for
// scoped pruning and bulk termination.
//
//	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	store := redisstore.New(client)
package redis
