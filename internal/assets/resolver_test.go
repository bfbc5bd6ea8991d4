package assets

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"google.golang.org/api/option"

	"github.com/fpang/meta-ad-uploader/internal/mediaprobe"
	"github.com/fpang/meta-ad-uploader/internal/strategy"
)

type recorder struct {
	files   []string
	objects []string
}

func (r *recorder) TrackFile(path string)  { r.files = append(r.files, path) }
func (r *recorder) TrackObject(key string) { r.objects = append(r.objects, key) }

type fakeDrive struct {
	content map[string]string
	fail    map[string]bool
	calls   []string
}

func (f *fakeDrive) Download(ctx context.Context, ref DriveRef, w io.Writer) (int64, error) {
	f.calls = append(f.calls, ref.ID)
	if f.fail[ref.ID] {
		w.Write([]byte("partial"))
		return 7, errors.New("403 forbidden")
	}
	n, err := io.WriteString(w, f.content[ref.ID])
	return int64(n), err
}

func spool(t *testing.T, dir, name string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte("data"), 0o600); err != nil {
		t.Fatal(err)
	}
	return p
}

func countFiles(t *testing.T, dir string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	return len(entries)
}

func TestResolveDefaultOrder(t *testing.T) {
	dir := t.TempDir()
	drive := &fakeDrive{content: map[string]string{"d1": "drive-bytes"}}
	r := NewResolver(drive, nil, dir)
	track := &recorder{}

	in := Inputs{
		Files:   []LocalFile{{Path: spool(t, dir, "upload-1"), Name: "hero.jpg", ContentType: "image/jpeg", Size: 4}},
		Objects: []ObjectRef{{URL: "https://bucket.s3.amazonaws.com/uploads/clip.mp4", Key: "uploads/clip.mp4", Type: "video/mp4"}},
		Drive:   []DriveRef{{ID: "d1", Name: "promo.mov", MIMEType: "video/quicktime", AccessToken: "tok"}},
	}

	got, err := r.Resolve(context.Background(), in, track)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 descriptors, got %d", len(got))
	}

	if got[0].Source != SourceLocalFile || got[0].Kind != mediaprobe.KindImage {
		t.Errorf("unexpected local descriptor: %+v", got[0])
	}
	if got[1].Source != SourceObjectStorage || got[1].Name != "clip.mp4" || got[1].URL == "" || got[1].Local() {
		t.Errorf("object URLs should pass through unresolved: %+v", got[1])
	}
	if got[2].Source != SourceDrive || got[2].Kind != mediaprobe.KindVideo || got[2].Size != int64(len("drive-bytes")) {
		t.Errorf("unexpected drive descriptor: %+v", got[2])
	}
	if !strings.HasSuffix(got[2].Path, ".mov") {
		t.Errorf("drive temp file should keep the extension, got %s", got[2].Path)
	}
	body, err := os.ReadFile(got[2].Path)
	if err != nil || string(body) != "drive-bytes" {
		t.Errorf("unexpected drive file contents %q, %v", body, err)
	}

	if len(track.files) != 2 || len(track.objects) != 1 || track.objects[0] != "uploads/clip.mp4" {
		t.Errorf("unexpected tracking: files=%v objects=%v", track.files, track.objects)
	}
}

func TestResolveExplicitOrder(t *testing.T) {
	dir := t.TempDir()
	r := NewResolver(&fakeDrive{content: map[string]string{"d1": "x"}}, nil, dir)

	in := Inputs{
		Files: []LocalFile{
			{Path: spool(t, dir, "a"), Name: "a.png", ContentType: "image/png"},
			{Path: spool(t, dir, "b"), Name: "b.png", ContentType: "image/png"},
		},
		Drive: []DriveRef{{ID: "d1", Name: "c.jpg", MIMEType: "image/jpeg", AccessToken: "tok"}},
		Order: []OrderEntry{{Source: SourceDrive, Index: 0}, {Source: SourceLocalFile, Index: 1}},
	}

	got, err := r.Resolve(context.Background(), in, &recorder{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	names := []string{got[0].Name, got[1].Name, got[2].Name}
	want := []string{"c.jpg", "b.png", "a.png"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("order = %v, want %v", names, want)
		}
	}
}

func TestResolveInvalidOrder(t *testing.T) {
	r := NewResolver(nil, nil, t.TempDir())
	tests := []struct {
		name  string
		order []OrderEntry
	}{
		{"unknown source", []OrderEntry{{Source: "ftp", Index: 0}}},
		{"out of range", []OrderEntry{{Source: SourceLocalFile, Index: 3}}},
		{"duplicate", []OrderEntry{{Source: SourceLocalFile, Index: 0}, {Source: SourceLocalFile, Index: 0}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := Inputs{Files: []LocalFile{{Path: "/tmp/x", Name: "x.jpg"}}, Order: tt.order}
			_, err := r.Resolve(context.Background(), in, &recorder{})
			var ve *strategy.ValidationError
			if !errors.As(err, &ve) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestResolveDriveFailureRemovesTempFiles(t *testing.T) {
	dir := t.TempDir()
	drive := &fakeDrive{
		content: map[string]string{"ok": "good"},
		fail:    map[string]bool{"bad": true},
	}
	r := NewResolver(drive, nil, dir)
	track := &recorder{}

	in := Inputs{Drive: []DriveRef{
		{ID: "ok", Name: "one.jpg", MIMEType: "image/jpeg", AccessToken: "t"},
		{ID: "bad", Name: "two.jpg", MIMEType: "image/jpeg", AccessToken: "t"},
		{ID: "never", Name: "three.jpg", MIMEType: "image/jpeg", AccessToken: "t"},
	}}

	_, err := r.Resolve(context.Background(), in, track)
	if err == nil || !strings.Contains(err.Error(), "two.jpg") {
		t.Fatalf("expected download error naming the file, got %v", err)
	}
	if n := countFiles(t, dir); n != 0 {
		t.Errorf("expected all temp files removed, %d left", n)
	}
	if len(drive.calls) != 2 {
		t.Errorf("resolution must stop at the first failure, got calls %v", drive.calls)
	}
	if len(track.files) != 0 {
		t.Errorf("nothing should be tracked on failure, got %v", track.files)
	}
}

func TestResolveRejectsUnsupportedMedia(t *testing.T) {
	r := NewResolver(nil, nil, t.TempDir())
	in := Inputs{Files: []LocalFile{{Path: "/tmp/doc", Name: "doc.pdf", ContentType: "application/pdf"}}}
	_, err := r.Resolve(context.Background(), in, &recorder{})
	var ve *strategy.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestResolveHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := NewResolver(nil, nil, t.TempDir())
	in := Inputs{Objects: []ObjectRef{{URL: "https://example.com/a.jpg"}}}
	if _, err := r.Resolve(ctx, in, &recorder{}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestLocalize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("image-bytes"))
	}))
	defer server.Close()

	dir := t.TempDir()
	r := NewResolver(nil, server.Client(), dir)
	track := &recorder{}

	d, err := r.Localize(context.Background(), Descriptor{Name: "photo.png", URL: server.URL + "/photo.png"}, track)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !d.Local() || d.Size != int64(len("image-bytes")) {
		t.Errorf("unexpected descriptor: %+v", d)
	}
	if len(track.files) != 1 || track.files[0] != d.Path {
		t.Errorf("temp file should be tracked, got %v", track.files)
	}

	same, err := r.Localize(context.Background(), d, track)
	if err != nil || same.Path != d.Path || len(track.files) != 1 {
		t.Errorf("local descriptors should be returned unchanged")
	}
}

func TestLocalizeHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer server.Close()

	r := NewResolver(nil, server.Client(), t.TempDir())
	if _, err := r.Localize(context.Background(), Descriptor{Name: "x.jpg", URL: server.URL}, &recorder{}); err == nil {
		t.Error("expected error for 403 response")
	}
}

func TestDriveClientDownload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/files/file-1") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("alt") != "media" {
			t.Errorf("expected alt=media, got %s", r.URL.RawQuery)
		}
		w.Write([]byte("drive-content"))
	}))
	defer server.Close()

	client := NewDriveClient(option.WithEndpoint(server.URL+"/"), option.WithHTTPClient(server.Client()))
	var sb strings.Builder
	n, err := client.Download(context.Background(), DriveRef{ID: "file-1", AccessToken: "tok"}, &sb)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != int64(len("drive-content")) || sb.String() != "drive-content" {
		t.Errorf("unexpected download %d %q", n, sb.String())
	}
}

func TestDriveClientRequiresToken(t *testing.T) {
	if _, err := NewDriveClient().Download(context.Background(), DriveRef{ID: "x"}, io.Discard); err == nil {
		t.Error("expected error without access token")
	}
}
