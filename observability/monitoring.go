// Package observability aggregates pipeline counters for logs and the
// telemetry worker. Counters are atomics; reading them is lock-free.
package observability

import "sync/atomic"

type PipelineStats struct {
	stored       atomic.Uint64
	delivered    atomic.Uint64
	dropped      atomic.Uint64
	rejected     atomic.Uint64
	unavailable  atomic.Uint64
	resubscribes atomic.Uint64
}

type StatsSnapshot struct {
	Stored       uint64
	Delivered    uint64
	Dropped      uint64
	Rejected     uint64
	Unavailable  uint64
	Resubscribes uint64
}

func NewPipelineStats() *PipelineStats {
	return &PipelineStats{}
}

func (s *PipelineStats) IncrStored()       { s.stored.Add(1) }
func (s *PipelineStats) IncrDelivered()    { s.delivered.Add(1) }
func (s *PipelineStats) IncrDropped()      { s.dropped.Add(1) }
func (s *PipelineStats) IncrRejected()     { s.rejected.Add(1) }
func (s *PipelineStats) IncrUnavailable()  { s.unavailable.Add(1) }
func (s *PipelineStats) IncrResubscribes() { s.resubscribes.Add(1) }

func (s *PipelineStats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Stored:       s.stored.Load(),
		Delivered:    s.delivered.Load(),
		Dropped:      s.dropped.Load(),
		Rejected:     s.rejected.Load(),
		Unavailable:  s.unavailable.Load(),
		Resubscribes: s.resubscribes.Load(),
	}
}
