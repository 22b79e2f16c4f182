// Moderation component for caching arbitrary data (as JSON strings) with a fixed TTL and purging.
//
// Includes an interface and implementations using redis and in-process memory.
//
// The behavioral layer uses this to hold derived per-user behavior patterns, which are expensive to rebuild and are never written to durable storage.
package cachestore
