package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fpang/meta-ad-uploader/internal/mediaprobe"
	"github.com/fpang/meta-ad-uploader/internal/strategy"
)

// Tracker registers resources for end-of-job cleanup.
type Tracker interface {
	TrackFile(path string)
	TrackObject(key string)
}

// Resolver resolves request inputs into descriptors.
type Resolver struct {
	drive      DriveDownloader
	httpClient *http.Client
	tempDir    string
}

// NewResolver creates a Resolver. tempDir may be empty for the OS default.
func NewResolver(drive DriveDownloader, httpClient *http.Client, tempDir string) *Resolver {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Minute}
	}
	return &Resolver{drive: drive, httpClient: httpClient, tempDir: tempDir}
}

// Resolve returns one descriptor per input, in the requested order. Drive
// files are downloaded to temp files. On any failure every temp file created
// by this call is removed and no descriptor is returned; on success the
// temp files, spooled uploads and object keys are registered with track.
func (r *Resolver) Resolve(ctx context.Context, in Inputs, track Tracker) ([]Descriptor, error) {
	order, err := resolveOrder(in)
	if err != nil {
		return nil, err
	}

	var created []string
	fail := func(err error) ([]Descriptor, error) {
		for _, p := range created {
			if rmErr := os.Remove(p); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
				log.Warn().Err(rmErr).Str("path", p).Msg("Failed to remove partial download")
			}
		}
		return nil, err
	}

	out := make([]Descriptor, 0, len(order))
	for _, entry := range order {
		if err := ctx.Err(); err != nil {
			return fail(err)
		}

		switch entry.Source {
		case SourceLocalFile:
			d, err := localDescriptor(in.Files[entry.Index])
			if err != nil {
				return fail(err)
			}
			out = append(out, d)

		case SourceObjectStorage:
			d, err := objectDescriptor(in.Objects[entry.Index])
			if err != nil {
				return fail(err)
			}
			out = append(out, d)

		case SourceDrive:
			d, tmp, err := r.downloadDrive(ctx, in.Drive[entry.Index])
			if tmp != "" {
				created = append(created, tmp)
			}
			if err != nil {
				return fail(err)
			}
			out = append(out, d)
		}
	}

	for _, d := range out {
		if d.Path != "" {
			track.TrackFile(d.Path)
		}
		if d.ObjectKey != "" {
			track.TrackObject(d.ObjectKey)
		}
	}
	return out, nil
}

// resolveOrder validates the explicit order, if any, and completes it with
// unmentioned inputs: local files, then object URLs, then Drive files.
func resolveOrder(in Inputs) ([]OrderEntry, error) {
	sizes := map[SourceKind]int{
		SourceLocalFile:     len(in.Files),
		SourceObjectStorage: len(in.Objects),
		SourceDrive:         len(in.Drive),
	}
	used := make(map[OrderEntry]bool, len(in.Order))
	order := make([]OrderEntry, 0, in.Count())

	for _, e := range in.Order {
		n, ok := sizes[e.Source]
		if !ok {
			return nil, strategy.Invalid("order", "unknown asset source %q", e.Source)
		}
		if e.Index < 0 || e.Index >= n {
			return nil, strategy.Invalid("order", "%s index %d out of range", e.Source, e.Index)
		}
		if used[e] {
			return nil, strategy.Invalid("order", "%s index %d listed twice", e.Source, e.Index)
		}
		used[e] = true
		order = append(order, e)
	}

	for _, src := range []SourceKind{SourceLocalFile, SourceObjectStorage, SourceDrive} {
		for i := range sizes[src] {
			e := OrderEntry{Source: src, Index: i}
			if !used[e] {
				order = append(order, e)
			}
		}
	}
	return order, nil
}

func localDescriptor(f LocalFile) (Descriptor, error) {
	if f.Path == "" {
		return Descriptor{}, fmt.Errorf("upload %q was not spooled to disk", f.Name)
	}
	kind, mt, err := mediaprobe.Classify(f.ContentType, f.Name)
	if err != nil {
		return Descriptor{}, strategy.Invalid("mediaFiles", "%s: %v", f.Name, err)
	}
	return Descriptor{
		Source: SourceLocalFile,
		Kind:   kind,
		MIME:   mt,
		Name:   f.Name,
		Size:   f.Size,
		Path:   f.Path,
	}, nil
}

func objectDescriptor(o ObjectRef) (Descriptor, error) {
	if o.URL == "" {
		return Descriptor{}, strategy.Invalid("s3Urls", "object URL is required")
	}
	name := o.Name
	if name == "" {
		name = path.Base(strings.SplitN(o.URL, "?", 2)[0])
	}
	kind, mt, err := mediaprobe.Classify(o.Type, name)
	if err != nil {
		return Descriptor{}, strategy.Invalid("s3Urls", "%s: %v", name, err)
	}
	return Descriptor{
		Source:    SourceObjectStorage,
		Kind:      kind,
		MIME:      mt,
		Name:      name,
		Size:      o.Size,
		URL:       o.URL,
		ObjectKey: o.Key,
	}, nil
}

// downloadDrive returns the temp path even on failure so the caller can
// remove it.
func (r *Resolver) downloadDrive(ctx context.Context, ref DriveRef) (Descriptor, string, error) {
	if r.drive == nil {
		return Descriptor{}, "", fmt.Errorf("drive downloads are not configured")
	}
	name := ref.Name
	if name == "" {
		name = ref.ID
	}
	kind, mt, err := mediaprobe.Classify(ref.MIMEType, name)
	if err != nil {
		return Descriptor{}, "", strategy.Invalid("driveFiles", "%s: %v", name, err)
	}

	f, err := os.CreateTemp(r.tempDir, "drive-*"+filepath.Ext(name))
	if err != nil {
		return Descriptor{}, "", fmt.Errorf("create temp file: %w", err)
	}
	tmp := f.Name()

	start := time.Now()
	n, err := r.drive.Download(ctx, ref, f)
	if closeErr := f.Close(); err == nil && closeErr != nil {
		err = closeErr
	}
	if err != nil {
		return Descriptor{}, tmp, fmt.Errorf("failed to download %s from Google Drive: %w", name, err)
	}

	log.Debug().
		Str("driveFileId", ref.ID).
		Str("name", name).
		Int64("bytes", n).
		Dur("duration", time.Since(start)).
		Msg("Downloaded Drive file")

	return Descriptor{
		Source: SourceDrive,
		Kind:   kind,
		MIME:   mt,
		Name:   name,
		Size:   n,
		Path:   tmp,
	}, tmp, nil
}

// Localize downloads a remote asset to a temp file so it can be sent as a
// multipart upload. The file is registered with track. Local assets are
// returned unchanged.
func (r *Resolver) Localize(ctx context.Context, d Descriptor, track Tracker) (Descriptor, error) {
	if d.Local() {
		return d, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.URL, nil)
	if err != nil {
		return d, fmt.Errorf("build request for %s: %w", d.Name, err)
	}
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return d, fmt.Errorf("fetch %s: %w", d.Name, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return d, fmt.Errorf("fetch %s: unexpected status %d", d.Name, resp.StatusCode)
	}

	f, err := os.CreateTemp(r.tempDir, "remote-*"+filepath.Ext(d.Name))
	if err != nil {
		return d, fmt.Errorf("create temp file: %w", err)
	}
	track.TrackFile(f.Name())

	n, err := io.Copy(f, resp.Body)
	if closeErr := f.Close(); err == nil && closeErr != nil {
		err = closeErr
	}
	if err != nil {
		return d, fmt.Errorf("download %s: %w", d.Name, err)
	}

	d.Path = f.Name()
	d.Size = n
	return d, nil
}
