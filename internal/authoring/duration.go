package authoring

import (
	"context"
	"math"
	"time"

	"github.com/japanesestudent/course-authoring/internal/models"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// DurationProber reads the playback length of a media file
type DurationProber interface {
	// ProbeDuration returns the duration of the file at "path" in seconds
	ProbeDuration(ctx context.Context, path string) (float64, error)
}

// DurationPipeline derives playback durations for newly added media. It is
// shared by all sessions of a process and bounds the number of concurrent probes.
type DurationPipeline struct {
	prober  DurationProber
	sem     *semaphore.Weighted
	timeout time.Duration
	logger  *zap.Logger
}

// NewDurationPipeline creates a duration pipeline.
//
// "concurrency" is the maximum number of probes running at once (at least 1).
// "timeout" bounds a single probe; zero means no timeout.
func NewDurationPipeline(prober DurationProber, concurrency int64, timeout time.Duration, logger *zap.Logger) *DurationPipeline {
	if concurrency < 1 {
		concurrency = 1
	}
	return &DurationPipeline{
		prober:  prober,
		sem:     semaphore.NewWeighted(concurrency),
		timeout: timeout,
		logger:  logger,
	}
}

// Probe returns the duration of a file in whole seconds.
// Any failure yields 0, which is treated everywhere as "duration unknown".
func (p *DurationPipeline) Probe(ctx context.Context, file models.LocalFile) int {
	if p == nil || p.prober == nil || file == nil {
		return 0
	}
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return 0
	}
	defer p.sem.Release(1)

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	seconds, err := p.prober.ProbeDuration(ctx, file.Path())
	if err != nil {
		p.logger.Debug("duration probe failed", zap.String("file", file.Name()), zap.Error(err))
		return 0
	}
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds <= 0 {
		return 0
	}
	return int(math.Floor(seconds))
}

// startProbe runs the duration probe of one item in the background.
// Must be called with s.mu held.
func (s *Session) startProbe(localID string, file models.LocalFile) {
	if s.pipeline == nil {
		return
	}
	s.probes.Add(1)
	go func() {
		defer s.probes.Done()
		seconds := s.pipeline.Probe(s.probeCtx, file)
		s.applyDuration(localID, seconds)
	}()
}

// applyDuration stores a probe result. A probe for a removed item is a no-op.
func (s *Session) applyDuration(localID string, seconds int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	idx := s.indexOf(localID)
	if idx < 0 {
		return
	}
	s.media[idx].DurationSeconds = seconds
}

// WaitForProbes blocks until every duration probe started so far has resolved
func (s *Session) WaitForProbes() {
	s.probes.Wait()
}
