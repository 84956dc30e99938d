// Package clustercache implements a two-tier cache: a bounded in-process tier
// in front of a shared store, kept coherent across processes by broadcasting
// invalidations. Every write goes to the shared store and then announces the
// affected key; every node, the writer included, drops its local copy when the
// announcement arrives.
//
// Components:
//   - Provider: shared byte store with TTL and SETNX (Redis).
//   - local.Cache: per-name in-process tier (otter by default; ristretto, bigcache).
//   - bus.Bus: broadcast transport for invalidations (Redis pub/sub, AMQP fanout, in-memory).
//   - Registry: name -> NamedCache, bounded; the oldest instances are dropped first.
//   - Listener: applies received invalidations to a Registry.
//
// Keys:
//
//	[prefix:]<name>:<key> - one entry of cache <name>
//
// Messages:
//
//	{cacheName, key}   drop one local entry
//	{cacheName, null}  drop a cache's local tier
//	{null, null}       drop every local instance
//
// Consistency:
//
// Put never writes the local tier; the writer's own invalidation
// clears it. Local copies are bounded by the local TTL, not kept exact. A
// store read that starts before a concurrent Put can populate the local tier
// after that Put's invalidation was applied, and the node then serves the
// older value until the local entry expires or the key is written again.
//
// Usage:
//
//	reg, _ := clustercache.New(clustercache.Options{Provider: p, Bus: b})
//	lis := clustercache.NewListener(reg, clustercache.ListenerOptions{})
//	_ = lis.Start(ctx)
//	users, _ := reg.GetCache(ctx, "user")
//	v, err := users.GetOrLoad(ctx, id, loadUser)
package clustercache
