// Package session keeps one analysis controller per browser session and
// evicts sessions that have gone idle.
package session

import "time"

// SessionMaxAge is how long an untouched session is kept by default.
const SessionMaxAge = 30 * time.Minute

// SessionKeepAliveWindow is the idle age past which a session may be
// evicted early when MaxSessions is reached.
const SessionKeepAliveWindow = 5 * time.Minute

// DefaultCleanupInterval is how often idle sessions are swept by default.
const DefaultCleanupInterval = 5 * time.Minute
