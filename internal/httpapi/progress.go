package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/fpang/meta-ad-uploader/internal/progress"
)

// updateBuffer bounds the updates queued for a slow stream. When full the
// oldest update is dropped; every update is a full snapshot.
const updateBuffer = 32

// GET /api/progress/{jobId}
// Streams job updates as server-sent events. The stream starts with the
// current snapshot, sends a keep-alive comment while idle, and closes shortly
// after the job reaches a terminal status. A stream opened before the job
// starts waits for it.
func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobId")
	logger := log.With().Str("jobId", jobID).Logger()

	flusher, ok := w.(http.Flusher)
	if !ok {
		httpError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	updates := make(chan progress.Update, updateBuffer)
	unsubscribe := s.deps.Registry.Subscribe(jobID, func(u progress.Update) { offer(updates, u) })
	defer unsubscribe()

	var (
		closeTimer <-chan time.Time
		last       progress.Update
	)
	send := func(u progress.Update) bool {
		last = u
		if err := writeEvent(w, u); err != nil {
			logger.Debug().Err(err).Msg("Progress stream write failed")
			return false
		}
		flusher.Flush()
		if u.Status.Terminal() && closeTimer == nil {
			closeTimer = time.After(s.opts.CloseDelay)
		}
		return true
	}

	// An unknown job is seeded with the "Job not found" placeholder and the
	// stream stays open until the job starts and finishes.
	snap := s.deps.Registry.Snapshot(jobID)
	if _, known := s.deps.Registry.Get(jobID); known {
		if !send(snap) {
			return
		}
	} else {
		last = snap
		if err := writeEvent(w, snap); err != nil {
			return
		}
		flusher.Flush()
	}
	logger.Debug().Str("status", string(snap.Status)).Msg("Progress stream opened")

	ping := time.NewTicker(s.opts.PingInterval)
	defer ping.Stop()

	for {
		select {
		case <-r.Context().Done():
			logger.Debug().Msg("Progress stream closed by client")
			return
		case u := <-updates:
			if stale(last, u) {
				continue
			}
			if !send(u) {
				return
			}
			ping.Reset(s.opts.PingInterval)
		case <-ping.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case <-closeTimer:
			logger.Debug().Msg("Progress stream finished")
			return
		}
	}
}

// offer queues u without blocking, discarding the oldest queued update
// when the buffer is full.
func offer(ch chan progress.Update, u progress.Update) {
	for {
		select {
		case ch <- u:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

// stale reports whether u was queued before last was sent: it is older, or
// it would move a running job's progress backwards.
func stale(last, u progress.Update) bool {
	if u.Timestamp < last.Timestamp {
		return true
	}
	return last.Status == progress.StatusProcessing && u.Progress < last.Progress
}

func writeEvent(w http.ResponseWriter, u progress.Update) error {
	data, err := json.Marshal(u)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}
