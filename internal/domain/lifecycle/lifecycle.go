// Package lifecycle holds shared timeouts for component start and stop hooks.
package lifecycle

import "time"

// DefaultTimeout bounds infra start/stop operations (ping, shutdown, close).
const DefaultTimeout = 10 * time.Second
