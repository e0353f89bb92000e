// Package price resolves historical crypto prices and fiat exchange rates.
//
// A Resolver answers for a UTC day bucket. It looks up an in-process cache,
// then an optional durable Store, then a provider. Concurrent misses on the
// same key share a single provider call, and provider calls are retried with
// backoff before the price is reported unavailable.
package price
