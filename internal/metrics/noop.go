package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

func (n *NoopRecorder) IncResolveCacheHit()                            {}
func (n *NoopRecorder) IncResolveCacheMiss()                           {}
func (n *NoopRecorder) IncResolveOutcome(outcome string)               {}
func (n *NoopRecorder) ObserveResolveDuration(duration time.Duration)  {}
func (n *NoopRecorder) IncLinkCreated()                                {}
func (n *NoopRecorder) IncLinkUpdated()                                {}
func (n *NoopRecorder) IncLinkDeleted()                                {}
func (n *NoopRecorder) IncStatRecorded(status string)                  {}
func (n *NoopRecorder) SetStatQueueDepth(depth int)                    {}
func (n *NoopRecorder) IncSweepRun(status string)                      {}
func (n *NoopRecorder) ObserveSweepDeleted(count int)                  {}
