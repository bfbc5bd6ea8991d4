package httpapi

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fpang/meta-ad-uploader/internal/metaads"
	"github.com/fpang/meta-ad-uploader/internal/metrics"
	"github.com/fpang/meta-ad-uploader/internal/pipeline"
	"github.com/fpang/meta-ad-uploader/internal/progress"
	"github.com/fpang/meta-ad-uploader/internal/strategy"
	"github.com/fpang/meta-ad-uploader/internal/transcode"
)

func init() {
	metrics.SetOutput(io.Discard)
}

type fakeRunner struct {
	mu  sync.Mutex
	req pipeline.Request
	res *pipeline.Result
	err error
	// files holds the spooled file contents as seen during Run.
	files map[string]string
}

func (f *fakeRunner) Run(ctx context.Context, req pipeline.Request) (*pipeline.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.req = req
	f.files = map[string]string{}
	for _, lf := range req.Assets.Files {
		b, _ := os.ReadFile(lf.Path)
		f.files[lf.Name] = string(b)
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.res != nil {
		return f.res, nil
	}
	return &pipeline.Result{JobID: req.JobID, AdID: "ad-1", Strategy: strategy.Single}, nil
}

type fakeStore struct{}

func (fakeStore) PresignPut(ctx context.Context, key, contentType string, expiry time.Duration) (string, error) {
	return "https://media.s3.amazonaws.com/" + key + "?X-Amz-Signature=put", nil
}

func (fakeStore) PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error) {
	return "https://media.s3.amazonaws.com/" + key + "?X-Amz-Signature=get", nil
}

func (fakeStore) KeyFromURL(raw string) (string, bool) {
	rest, ok := strings.CutPrefix(raw, "https://media.s3.amazonaws.com/")
	if !ok {
		return "", false
	}
	key, _, _ := strings.Cut(rest, "?")
	return key, key != ""
}

func newTestServer(t *testing.T, runner JobRunner, store ObjectStore, opts Options) (*Server, *progress.Registry) {
	t.Helper()
	reg := progress.NewRegistry(time.Minute)
	if opts.UploadDir == "" {
		opts.UploadDir = t.TempDir()
	}
	return NewServer(Deps{Runner: runner, Registry: reg, Store: store}, opts), reg
}

type formFile struct {
	field, name, contentType, body string
}

func multipartBody(t *testing.T, fields map[string]string, files ...formFile) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, f.field, f.name))
		h.Set("Content-Type", f.contentType)
		w, err := mw.CreatePart(h)
		if err != nil {
			t.Fatal(err)
		}
		io.WriteString(w, f.body)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, mw.FormDataContentType()
}

func createAdRequest(t *testing.T, fields map[string]string, files ...formFile) *http.Request {
	t.Helper()
	body, contentType := multipartBody(t, fields, files...)
	req := httptest.NewRequest(http.MethodPost, "/api/create-ad", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set(HeaderAccessToken, "user-token")
	req.Header.Set(HeaderUserID, "user-1")
	return req
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body["error"]
}

func dirEntries(t *testing.T, dir string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	return len(entries)
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, &fakeRunner{}, nil, Options{})
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
}

func TestCreateAdRequiresAuth(t *testing.T) {
	runner := &fakeRunner{}
	srv, _ := newTestServer(t, runner, nil, Options{})
	req := createAdRequest(t, map[string]string{"adName": "x"})
	req.Header.Del(HeaderAccessToken)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestCreateAdBuildsRequest(t *testing.T) {
	runner := &fakeRunner{}
	uploadDir := t.TempDir()
	srv, _ := newTestServer(t, runner, fakeStore{}, Options{UploadDir: uploadDir})

	req := createAdRequest(t, map[string]string{
		"jobId":               "job-42",
		"adName":              "Spring sale",
		"adAccountId":         "act_1",
		"adSetId":             "adset-1",
		"pageId":              "page-1",
		"headlines":           `["One","Two"]`,
		"message":             "Primary text",
		"descriptions":        "not json",
		"description":         "Fallback description",
		"cta":                 "SHOP_NOW",
		"link":                "https://example.com",
		"isCarouselAd":        "true",
		"launchPaused":        "1",
		"shopDestination":     "shop-9",
		"shopDestinationType": "shop",
		"s3Urls":              `[{"key":"uploads/u1/clip.mp4","name":"clip.mp4","type":"video/mp4"}]`,
		"s3VideoUrls":         `[{"url":"https://media.s3.amazonaws.com/uploads/u2/b.mp4"}]`,
		"driveFiles":          `[{"id":"d1","name":"drive.jpg","mimeType":"image/jpeg","accessToken":"g"}]`,
	},
		formFile{fieldMediaFiles, "hero.jpg", "image/jpeg", "jpeg bytes"},
		formFile{fieldThumbnail, "cover.png", "image/png", "png bytes"},
	)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}

	var res pipeline.Result
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatal(err)
	}
	if res.JobID != "job-42" || res.AdID != "ad-1" {
		t.Errorf("unexpected response %+v", res)
	}

	got := runner.req
	if got.UserID != "user-1" || got.AccessToken != "user-token" || got.AdAccountID != "act_1" {
		t.Errorf("identity not propagated: %+v", got)
	}
	if !got.Carousel || got.Placement || !got.Input.Paused {
		t.Errorf("flags not parsed: carousel=%v placement=%v paused=%v", got.Carousel, got.Placement, got.Input.Paused)
	}
	if strings.Join(got.Input.Headlines, "|") != "One|Two" ||
		strings.Join(got.Input.Bodies, "|") != "Primary text" ||
		strings.Join(got.Input.Descriptions, "|") != "Fallback description" {
		t.Errorf("texts not parsed: %+v", got.Input)
	}
	if got.Input.Shop == nil || got.Input.Shop.ID != "shop-9" {
		t.Errorf("shop destination not parsed: %+v", got.Input.Shop)
	}
	if runner.files["hero.jpg"] != "jpeg bytes" {
		t.Errorf("spooled file content = %q", runner.files["hero.jpg"])
	}
	if got.Thumbnail == nil || got.Thumbnail.ContentType != "image/png" {
		t.Errorf("thumbnail not spooled: %+v", got.Thumbnail)
	}

	objs := got.Assets.Objects
	if len(objs) != 2 {
		t.Fatalf("expected 2 objects, got %d", len(objs))
	}
	if !strings.HasSuffix(objs[0].URL, "uploads/u2/b.mp4") || objs[0].Key != "uploads/u2/b.mp4" {
		t.Errorf("URL object key not recovered: %+v", objs[0])
	}
	if !strings.Contains(objs[1].URL, "X-Amz-Signature=get") {
		t.Errorf("key object should get a presigned URL: %+v", objs[1])
	}
	if len(got.Assets.Drive) != 1 || got.Assets.Drive[0].ID != "d1" {
		t.Errorf("drive files not parsed: %+v", got.Assets.Drive)
	}
}

func TestCreateAdGeneratesJobID(t *testing.T) {
	runner := &fakeRunner{}
	srv, _ := newTestServer(t, runner, nil, Options{})
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, createAdRequest(t, map[string]string{"adName": "x"}))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.HasPrefix(runner.req.JobID, "ad-") {
		t.Errorf("expected generated job id, got %q", runner.req.JobID)
	}
}

func TestCreateAdErrorStatus(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"validation", strategy.Invalid("link", "destination link is required"), http.StatusBadRequest, "destination link is required"},
		{"fatal platform", &metaads.APIError{Message: "Invalid parameter", Code: 100, UserMessage: "Image too small"}, http.StatusBadRequest, "Image too small"},
		{"transient platform", &metaads.APIError{Message: "Please retry", Code: 2}, http.StatusBadGateway, "Please retry"},
		{"transcode failed", fmt.Errorf("video v1: %w", transcode.ErrFailed), http.StatusBadGateway, pipeline.UserMessage(transcode.ErrFailed)},
		{"transcode timeout", transcode.ErrTimeout, http.StatusGatewayTimeout, pipeline.UserMessage(transcode.ErrTimeout)},
		{"job active", progress.ErrJobActive, http.StatusConflict, pipeline.UserMessage(progress.ErrJobActive)},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, pipeline.UserMessage(errors.New("boom"))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTestServer(t, &fakeRunner{err: tt.err}, nil, Options{})
			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, createAdRequest(t, map[string]string{"jobId": "job-1"}))
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
			if got := decodeError(t, rec); got != tt.message {
				t.Errorf("error = %q, want %q", got, tt.message)
			}
		})
	}
}

func TestCreateAdJobActiveRemovesSpooledFiles(t *testing.T) {
	uploadDir := t.TempDir()
	srv, _ := newTestServer(t, &fakeRunner{err: progress.ErrJobActive}, nil, Options{UploadDir: uploadDir})
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, createAdRequest(t, map[string]string{"jobId": "job-1"},
		formFile{fieldMediaFiles, "a.jpg", "image/jpeg", "x"}))

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d", rec.Code)
	}
	if n := dirEntries(t, uploadDir); n != 0 {
		t.Errorf("expected spooled files removed, %d left", n)
	}
}

func TestCreateAdRejectsMalformedFields(t *testing.T) {
	uploadDir := t.TempDir()
	runner := &fakeRunner{}
	srv, reg := newTestServer(t, runner, fakeStore{}, Options{UploadDir: uploadDir})

	tests := []struct {
		name   string
		fields map[string]string
	}{
		{"drive files", map[string]string{"driveFiles": "{not a list"}},
		{"object list", map[string]string{"s3Urls": `{"url":"x"}`}},
		{"foreign key", map[string]string{"s3Urls": `[{"key":"private/secret.mp4"}]`}},
		{"empty object", map[string]string{"s3Urls": `[{}]`}},
		{"enhancements", map[string]string{"enhancements": `["x"]`}},
		{"job id", map[string]string{"jobId": "../etc"}},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			jobID := fmt.Sprintf("job-%d", i)
			if _, ok := tt.fields["jobId"]; !ok {
				tt.fields["jobId"] = jobID
			}
			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, createAdRequest(t, tt.fields,
				formFile{fieldMediaFiles, "a.jpg", "image/jpeg", "x"}))

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			msg := decodeError(t, rec)
			if n := dirEntries(t, uploadDir); n != 0 {
				t.Errorf("expected spooled files removed, %d left", n)
			}
			if tt.fields["jobId"] == jobID {
				snap := reg.Snapshot(jobID)
				if snap.Status != progress.StatusError || snap.Message != msg {
					t.Errorf("registry snapshot %+v does not match response %q", snap, msg)
				}
			}
		})
	}
	if runner.req.JobID != "" {
		t.Error("runner should not be called for rejected requests")
	}
}

func TestCreateAdRejectsOversizedFile(t *testing.T) {
	uploadDir := t.TempDir()
	srv, _ := newTestServer(t, &fakeRunner{}, nil, Options{UploadDir: uploadDir, MaxUploadBytes: 512})
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, createAdRequest(t, nil,
		formFile{fieldMediaFiles, "big.jpg", "image/jpeg", strings.Repeat("x", 4096)}))

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", rec.Code)
	}
	if n := dirEntries(t, uploadDir); n != 0 {
		t.Errorf("expected partial spool removed, %d left", n)
	}
}

func TestCreateAdRejectsNonMultipart(t *testing.T) {
	srv, _ := newTestServer(t, &fakeRunner{}, nil, Options{})
	req := httptest.NewRequest(http.MethodPost, "/api/create-ad", strings.NewReader(`{"adName":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderAccessToken, "token")

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

// readEvents reads SSE data payloads until the stream closes or n events
// arrive, skipping keep-alive comments.
func readEvents(t *testing.T, r *bufio.Reader, n int) []progress.Update {
	t.Helper()
	var out []progress.Update
	for len(out) < n {
		line, err := r.ReadString('\n')
		if err != nil {
			return out
		}
		data, ok := strings.CutPrefix(strings.TrimSpace(line), "data: ")
		if !ok {
			continue
		}
		var u progress.Update
		if err := json.Unmarshal([]byte(data), &u); err != nil {
			t.Fatalf("bad event %q: %v", data, err)
		}
		out = append(out, u)
	}
	return out
}

func TestProgressStream(t *testing.T) {
	srv, reg := newTestServer(t, &fakeRunner{}, nil, Options{
		PingInterval: 10 * time.Millisecond,
		CloseDelay:   20 * time.Millisecond,
	})
	if _, err := reg.StartJob("job-sse", 8, progress.DefaultStartMessage); err != nil {
		t.Fatal(err)
	}
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/progress/job-sse")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}
	if resp.Header.Get("X-Accel-Buffering") != "no" {
		t.Error("expected proxy buffering disabled")
	}

	r := bufio.NewReader(resp.Body)
	first := readEvents(t, r, 1)
	if len(first) != 1 || first[0].Status != progress.StatusProcessing || first[0].Message != progress.DefaultStartMessage {
		t.Fatalf("unexpected seed event: %+v", first)
	}

	reg.SetProgress("job-sse", 40, "Uploading image: hero.jpg...")
	reg.CompleteJob("job-sse", "")

	events := readEvents(t, r, 2)
	if len(events) != 2 {
		t.Fatalf("expected 2 live events, got %+v", events)
	}
	if events[0].Progress != 40 || events[1].Status != progress.StatusComplete || events[1].Progress != 100 {
		t.Errorf("unexpected events: %+v", events)
	}

	// The server closes the stream after the terminal event.
	if rest := readEvents(t, r, 1); len(rest) != 0 {
		t.Errorf("unexpected events after completion: %+v", rest)
	}
}

func TestProgressStreamWaitsForUnknownJob(t *testing.T) {
	srv, reg := newTestServer(t, &fakeRunner{}, nil, Options{CloseDelay: 20 * time.Millisecond})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/progress/job-later")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	r := bufio.NewReader(resp.Body)

	seed := readEvents(t, r, 1)
	if len(seed) != 1 || seed[0].Message != progress.NotFoundMessage {
		t.Fatalf("unexpected seed: %+v", seed)
	}

	if _, err := reg.StartJob("job-later", 8, ""); err != nil {
		t.Fatal(err)
	}
	reg.ErrorJob("job-later", "Failed to create ad")

	events := readEvents(t, r, 2)
	if len(events) != 2 || events[1].Status != progress.StatusError || events[1].Message != "Failed to create ad" {
		t.Errorf("unexpected events: %+v", events)
	}
}

func TestOfferDropsOldest(t *testing.T) {
	ch := make(chan progress.Update, 2)
	for i := 1; i <= 3; i++ {
		offer(ch, progress.Update{Progress: i})
	}
	if a, b := <-ch, <-ch; a.Progress != 2 || b.Progress != 3 {
		t.Errorf("got %d, %d; want 2, 3", a.Progress, b.Progress)
	}
}

func TestStaleUpdates(t *testing.T) {
	running := progress.Update{Progress: 40, Status: progress.StatusProcessing, Timestamp: 1000}
	tests := []struct {
		name  string
		last  progress.Update
		u     progress.Update
		stale bool
	}{
		{"older timestamp", running, progress.Update{Progress: 50, Status: progress.StatusProcessing, Timestamp: 999}, true},
		{"lower progress same instant", running, progress.Update{Progress: 30, Status: progress.StatusProcessing, Timestamp: 1000}, true},
		{"same progress new message", running, progress.Update{Progress: 40, Message: "next", Status: progress.StatusProcessing, Timestamp: 1001}, false},
		{"advance", running, progress.Update{Progress: 60, Status: progress.StatusProcessing, Timestamp: 1001}, false},
		{"error after progress", running, progress.Update{Progress: 40, Status: progress.StatusError, Timestamp: 1001}, false},
		{"job starts after placeholder",
			progress.Update{Message: progress.NotFoundMessage, Status: progress.StatusError, Timestamp: 1000},
			progress.Update{Status: progress.StatusProcessing, Timestamp: 1002}, false},
		{"replacement after completion",
			progress.Update{Progress: 100, Status: progress.StatusComplete, Timestamp: 1000},
			progress.Update{Status: progress.StatusProcessing, Timestamp: 1003}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stale(tt.last, tt.u); got != tt.stale {
				t.Errorf("stale() = %v, want %v", got, tt.stale)
			}
		})
	}
}

func TestUploadURL(t *testing.T) {
	srv, _ := newTestServer(t, &fakeRunner{}, fakeStore{}, Options{})

	tests := []struct {
		name   string
		query  string
		status int
	}{
		{"ok", "filename=clip.mp4&contentType=video/mp4&uploadId=u1", http.StatusOK},
		{"missing filename", "contentType=video/mp4", http.StatusBadRequest},
		{"bad content type", "filename=a.exe&contentType=application/x-msdownload", http.StatusBadRequest},
		{"bad filename", "filename=..&contentType=image/png", http.StatusBadRequest},
		{"too large", "filename=a.png&contentType=image/png&size=999999999", http.StatusBadRequest},
		{"bad upload id", "filename=a.png&contentType=image/png&uploadId=../x", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/upload-url?"+tt.query, nil)
			req.Header.Set(HeaderAccessToken, "token")
			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, req)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.status, rec.Body.String())
			}
			if tt.status != http.StatusOK {
				return
			}
			var body map[string]string
			json.NewDecoder(rec.Body).Decode(&body)
			if body["key"] != "uploads/u1/clip.mp4" || !strings.Contains(body["uploadUrl"], "X-Amz-Signature=put") {
				t.Errorf("unexpected body %+v", body)
			}
		})
	}
}

func TestUploadURLWithoutBucket(t *testing.T) {
	srv, _ := newTestServer(t, &fakeRunner{}, nil, Options{})
	req := httptest.NewRequest(http.MethodGet, "/api/upload-url?filename=a.png&contentType=image/png", nil)
	req.Header.Set(HeaderAccessToken, "token")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestOriginVerify(t *testing.T) {
	srv, _ := newTestServer(t, &fakeRunner{}, nil, Options{OriginVerifySecret: "s3cret"})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if rec.Code != http.StatusForbidden {
		t.Errorf("missing header: status = %d, want 403", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("x-origin-verify", "s3cret")
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("valid header: status = %d, want 200", rec.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	srv, _ := newTestServer(t, &fakeRunner{}, nil, Options{AllowedOrigins: []string{"http://localhost:5173"}})

	req := httptest.NewRequest(http.MethodOptions, "/api/create-ad", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "http://localhost:5173" {
		t.Error("expected allowed origin echoed")
	}

	req = httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Error("unexpected CORS header for unknown origin")
	}
}

func TestHeaderAuthenticator(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    Identity
		wantErr bool
	}{
		{"token header", map[string]string{HeaderAccessToken: "t1", HeaderUserID: "u1"}, Identity{UserID: "u1", AccessToken: "t1"}, false},
		{"bearer", map[string]string{"Authorization": "Bearer t2"}, Identity{UserID: "anonymous", AccessToken: "t2"}, false},
		{"missing", map[string]string{HeaderUserID: "u1"}, Identity{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			got, err := HeaderAuthenticator{}.Authenticate(req)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}
