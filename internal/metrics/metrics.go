// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Recorder captures metric events for the application.
type Recorder interface {
	// Resolution metrics
	IncResolveCacheHit()
	IncResolveCacheMiss()
	IncResolveOutcome(outcome string) // "redirect", "password", "not_found", "expired", "disabled", "forbidden"
	ObserveResolveDuration(duration time.Duration)

	// Link management metrics
	IncLinkCreated()
	IncLinkUpdated()
	IncLinkDeleted()

	// Click stat pipeline metrics
	IncStatRecorded(status string) // "success", "dropped", "failed"
	SetStatQueueDepth(depth int)

	// Expiry sweep metrics
	IncSweepRun(status string) // "swept", "skipped", "failed"
	ObserveSweepDeleted(count int)
}
