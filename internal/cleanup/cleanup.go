// Package cleanup releases the transient resources a job creates: local temp
// files (spooled uploads, Drive downloads) and remote objects in the media
// bucket. A Set runs at most once; failures are logged and reported but
// never fail the job.
package cleanup

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ObjectRemover deletes a remote object by key.
type ObjectRemover interface {
	DeleteObject(ctx context.Context, key string) error
}

// Report summarises a cleanup run.
type Report struct {
	FilesRemoved   int
	ObjectsRemoved int
	Failures       int
}

// Set collects resources to release. It is safe for concurrent use.
type Set struct {
	mu      sync.Mutex
	files   []string
	objects []string
	seen    map[string]bool

	remover ObjectRemover
	logger  zerolog.Logger

	once   sync.Once
	report Report
}

// New creates a Set. remover may be nil when no object storage is configured;
// tracked objects are then skipped with a warning.
func New(remover ObjectRemover, logger *zerolog.Logger) *Set {
	l := log.Logger
	if logger != nil {
		l = *logger
	}
	return &Set{remover: remover, logger: l, seen: make(map[string]bool)}
}

// TrackFile registers a local file for removal. Duplicates are ignored.
func (s *Set) TrackFile(path string) {
	if path == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seen["file:"+path] {
		return
	}
	s.seen["file:"+path] = true
	s.files = append(s.files, path)
}

// TrackObject registers a remote object key for deletion. Duplicates are ignored.
func (s *Set) TrackObject(key string) {
	if key == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seen["object:"+key] {
		return
	}
	s.seen["object:"+key] = true
	s.objects = append(s.objects, key)
}

// Run releases everything tracked so far. Only the first call does work;
// later calls return the first report.
func (s *Set) Run(ctx context.Context) Report {
	s.once.Do(func() {
		s.mu.Lock()
		files := append([]string(nil), s.files...)
		objects := append([]string(nil), s.objects...)
		s.mu.Unlock()

		for _, path := range files {
			if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
				s.logger.Warn().Err(err).Str("path", path).Msg("Failed to remove temp file")
				s.report.Failures++
				continue
			}
			s.report.FilesRemoved++
		}

		for _, key := range objects {
			if s.remover == nil {
				s.logger.Warn().Str("key", key).Msg("No object store configured, leaving transient object")
				s.report.Failures++
				continue
			}
			if err := s.remover.DeleteObject(ctx, key); err != nil {
				s.logger.Warn().Err(err).Str("key", key).Msg("Failed to delete transient object")
				s.report.Failures++
				continue
			}
			s.report.ObjectsRemoved++
		}

		s.logger.Debug().
			Int("filesRemoved", s.report.FilesRemoved).
			Int("objectsRemoved", s.report.ObjectsRemoved).
			Int("failures", s.report.Failures).
			Msg("Cleanup complete")
	})
	return s.report
}
