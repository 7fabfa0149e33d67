package cartoview

import "sync/atomic"

// RenderStats counts what the renderer has done since it was created. All
// fields are updated atomically and may be read at any time.
type RenderStats struct {
	Frames      atomic.Uint64
	FullRedraws atomic.Uint64
	Composited  atomic.Uint64
	Dispatched  atomic.Uint64
	Deferred    atomic.Uint64
	Abandoned   atomic.Uint64
	Loaded      atomic.Uint64
	Failed      atomic.Uint64
	FailedTicks atomic.Uint64
}

type StatsSnapshot struct {
	Frames      uint64
	FullRedraws uint64
	Composited  uint64
	Dispatched  uint64
	Deferred    uint64
	Abandoned   uint64
	Loaded      uint64
	Failed      uint64
	FailedTicks uint64
}

func (s *RenderStats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Frames:      s.Frames.Load(),
		FullRedraws: s.FullRedraws.Load(),
		Composited:  s.Composited.Load(),
		Dispatched:  s.Dispatched.Load(),
		Deferred:    s.Deferred.Load(),
		Abandoned:   s.Abandoned.Load(),
		Loaded:      s.Loaded.Load(),
		Failed:      s.Failed.Load(),
		FailedTicks: s.FailedTicks.Load(),
	}
}
