// Package ratelimit provides rate limiting constants for the Drive API
// throttle scopes.
package ratelimit

// Drive API quota
//
// The Drive API enforces a per-user query quota shared by all metadata
// endpoints (files.list, files.get, activity queries, people lookups,
// search). Media transfers (alt=media, export) are billed against the same
// quota but are long-lived streams, so we keep a separate, slower bucket
// for starting them to avoid starving interactive metadata calls during a
// bulk download.

// Base rate limits
const (
	// QueryLimitPerMinute is the per-user query quota (12000/minute).
	QueryLimitPerMinute = 12000 // 200 requests per second

	// MediaStartLimitPerMinute caps how fast new content/export streams are
	// opened. There is no documented hard limit; this is self-imposed so a
	// deep folder download cannot open hundreds of streams at once.
	MediaStartLimitPerMinute = 300 // 5 per second
)

// Target rates (requests per second)
//
// We target well under the hard limits: exceeding the per-user quota locks
// out all API access for the rest of the window, which would freeze the
// whole browser, not just the offending operation.
const (
	// QueryRatePerSec is the sustained rate for metadata endpoints.
	// 16 req/sec = 8% of the hard limit; interactive browsing never gets
	// anywhere near it, and bulk operations stay far from lockout.
	QueryRatePerSec = 16.0

	// MediaStartRatePerSec is the sustained rate for opening new
	// content/export streams.
	MediaStartRatePerSec = 4.0
)

// Burst capacities (tokens)
const (
	// QueryBurstCapacity allows an initial burst of metadata calls, e.g.
	// expanding several folders right after startup, before settling into
	// the sustained rate.
	QueryBurstCapacity = 100

	// MediaStartBurstCapacity covers kicking off one bounded download pool
	// (a handful of streams) without waiting.
	MediaStartBurstCapacity = 10
)
