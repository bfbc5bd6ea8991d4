package s3util

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type fakeS3 struct {
	deleted []string
	err     error
}

func (f *fakeS3) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.deleted = append(f.deleted, *in.Bucket+"/"+*in.Key)
	return &s3.DeleteObjectOutput{}, nil
}

type fakePresigner struct {
	putInput *s3.PutObjectInput
	expires  time.Duration
}

func (f *fakePresigner) PresignPutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	f.putInput = in
	var opts s3.PresignOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	f.expires = opts.Expires
	return &v4.PresignedHTTPRequest{URL: "https://media.s3.amazonaws.com/" + *in.Key + "?X-Amz-Signature=abc", Method: "PUT"}, nil
}

func (f *fakePresigner) PresignGetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	var opts s3.PresignOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	f.expires = opts.Expires
	return &v4.PresignedHTTPRequest{URL: "https://media.s3.amazonaws.com/" + *in.Key + "?get", Method: "GET"}, nil
}

func TestPresignPut(t *testing.T) {
	presigner := &fakePresigner{}
	b := NewBucket("media", &fakeS3{}, presigner)

	u, err := b.PresignPut(context.Background(), "uploads/x/a.mp4", "video/mp4", 15*time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(u, "uploads/x/a.mp4") {
		t.Errorf("unexpected URL %s", u)
	}
	if *presigner.putInput.ContentType != "video/mp4" || *presigner.putInput.Bucket != "media" {
		t.Errorf("unexpected input: %+v", presigner.putInput)
	}
	if presigner.expires != 15*time.Minute {
		t.Errorf("expected 15m expiry, got %v", presigner.expires)
	}
}

func TestPresignGet(t *testing.T) {
	presigner := &fakePresigner{}
	b := NewBucket("media", &fakeS3{}, presigner)
	u, err := b.PresignGet(context.Background(), "k.jpg", time.Hour)
	if err != nil || !strings.HasSuffix(u, "k.jpg?get") || presigner.expires != time.Hour {
		t.Errorf("unexpected result %q, %v, expiry %v", u, err, presigner.expires)
	}
}

func TestDeleteObject(t *testing.T) {
	api := &fakeS3{}
	b := NewBucket("media", api, &fakePresigner{})
	if err := b.DeleteObject(context.Background(), "uploads/x/a.mp4"); err != nil {
		t.Fatal(err)
	}
	if len(api.deleted) != 1 || api.deleted[0] != "media/uploads/x/a.mp4" {
		t.Errorf("unexpected deletions %v", api.deleted)
	}

	api.err = errors.New("access denied")
	if err := b.DeleteObject(context.Background(), "k"); !errors.Is(err, api.err) {
		t.Errorf("expected wrapped error, got %v", err)
	}
}

func TestKeyFromURL(t *testing.T) {
	b := NewBucket("media", nil, nil)
	tests := []struct {
		url string
		key string
		ok  bool
	}{
		{"https://media.s3.amazonaws.com/uploads/a/clip.mp4", "uploads/a/clip.mp4", true},
		{"https://media.s3.us-east-1.amazonaws.com/uploads/a/clip.mp4?X-Amz-Signature=1", "uploads/a/clip.mp4", true},
		{"https://s3.us-east-1.amazonaws.com/media/uploads/a/b.jpg", "uploads/a/b.jpg", true},
		{"https://s3.us-east-1.amazonaws.com/other/uploads/a/b.jpg", "", false},
		{"https://other.s3.amazonaws.com/k", "", false},
		{"https://cdn.example.com/k", "", false},
		{"https://media.s3.amazonaws.com/", "", false},
		{"not a url", "", false},
	}
	for _, tt := range tests {
		key, ok := b.KeyFromURL(tt.url)
		if key != tt.key || ok != tt.ok {
			t.Errorf("KeyFromURL(%q) = %q, %v; want %q, %v", tt.url, key, ok, tt.key, tt.ok)
		}
	}
}

func TestUploadKey(t *testing.T) {
	key, err := UploadKey("abc-123", "../../etc/My Clip (1).mp4")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key != "uploads/abc-123/My Clip (1).mp4" {
		t.Errorf("unexpected key %q", key)
	}
	if err := ValidateUploadKey(key); err != nil {
		t.Errorf("generated key should validate: %v", err)
	}

	for _, bad := range []struct{ id, name string }{
		{"", "a.jpg"},
		{"a/b", "a.jpg"},
		{"id", ""},
		{"id", "bad$name.jpg"},
	} {
		if _, err := UploadKey(bad.id, bad.name); err == nil {
			t.Errorf("UploadKey(%q, %q) should fail", bad.id, bad.name)
		}
	}
}

func TestValidateUploadKey(t *testing.T) {
	for _, key := range []string{"/uploads/a/b", "uploads/../b", "other/a/b", "uploads/a", "uploads//b"} {
		if err := ValidateUploadKey(key); err == nil {
			t.Errorf("ValidateUploadKey(%q) should fail", key)
		}
	}
}
