// Package transcode waits for uploaded ad videos to finish server-side
// processing before they are referenced by a creative.
package transcode

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fpang/meta-ad-uploader/internal/metaads"
)

const (
	DefaultInterval = 5 * time.Second
	DefaultTimeout  = 5 * time.Minute
)

var (
	// ErrFailed means the platform rejected the video during processing.
	ErrFailed = errors.New("video processing failed")
	// ErrTimeout means the video was still processing when the ceiling elapsed.
	ErrTimeout = errors.New("video processing timed out")
)

// StatusChecker reports the processing status of a video.
// *metaads.Client satisfies it.
type StatusChecker interface {
	VideoStatus(ctx context.Context, videoID string) (string, error)
}

// Waiter polls a StatusChecker until a video is ready.
type Waiter struct {
	checker  StatusChecker
	interval time.Duration
	timeout  time.Duration
}

// NewWaiter creates a Waiter. Non-positive durations fall back to the defaults.
func NewWaiter(checker StatusChecker, interval, timeout time.Duration) *Waiter {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Waiter{checker: checker, interval: interval, timeout: timeout}
}

// Wait blocks until videoID reaches the ready state. It returns ErrFailed
// when processing fails, ErrTimeout after the ceiling, and the context error
// on cancellation. Transient poll errors are logged and polling continues;
// non-transient platform errors abort the wait.
func (w *Waiter) Wait(ctx context.Context, videoID string) error {
	start := time.Now()
	deadline := start.Add(w.timeout)
	logger := log.With().Str("videoId", videoID).Logger()

	for attempt := 1; ; attempt++ {
		status, err := w.checker.VideoStatus(ctx, videoID)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if apiErr, ok := metaads.AsAPIError(err); ok && !apiErr.Transient() {
				return fmt.Errorf("video %s: %w", videoID, err)
			}
			logger.Warn().Err(err).Int("attempt", attempt).Msg("Video status poll error, retrying")
		case status == metaads.VideoReady:
			logger.Info().Dur("elapsed", time.Since(start)).Int("polls", attempt).Msg("Video processing finished")
			return nil
		case status == metaads.VideoError || status == metaads.VideoFailed:
			return fmt.Errorf("video %s: %w", videoID, ErrFailed)
		default:
			logger.Debug().Str("status", status).Dur("nextPoll", w.interval).Msg("Video still processing")
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return fmt.Errorf("video %s: %w after %s", videoID, ErrTimeout, w.timeout)
		}

		timer := time.NewTimer(min(w.interval, remaining))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// WaitAll waits for each video in order, stopping at the first failure.
// before, when set, is called ahead of each wait with the video's index.
func (w *Waiter) WaitAll(ctx context.Context, videoIDs []string, before func(i int)) error {
	for i, id := range videoIDs {
		if before != nil {
			before(i)
		}
		if err := w.Wait(ctx, id); err != nil {
			return err
		}
	}
	return nil
}
