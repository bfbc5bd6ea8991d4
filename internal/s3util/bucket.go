// Package s3util wraps the media bucket: presigned browser uploads, presigned
// reads for the ad platform, and deletion of transient objects.
package s3util

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
)

// API is the subset of the S3 client used by Bucket.
type API interface {
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Presigner is the subset of s3.PresignClient used by Bucket.
type Presigner interface {
	PresignPutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// Bucket is one S3 bucket.
type Bucket struct {
	name      string
	api       API
	presigner Presigner
}

// NewBucket creates a Bucket.
func NewBucket(name string, api API, presigner Presigner) *Bucket {
	return &Bucket{name: name, api: api, presigner: presigner}
}

// FromClient creates a Bucket backed by a real S3 client.
func FromClient(name string, client *s3.Client) *Bucket {
	return NewBucket(name, client, s3.NewPresignClient(client))
}

// Name returns the bucket name.
func (b *Bucket) Name() string { return b.name }

// PresignPut returns a PUT URL the browser can upload to directly. The
// content type is part of the signature, so the upload must send the same
// Content-Type header.
func (b *Bucket) PresignPut(ctx context.Context, key, contentType string, expiry time.Duration) (string, error) {
	result, err := b.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      &b.name,
		Key:         &key,
		ContentType: &contentType,
	}, s3.WithPresignExpires(expiry))
	if err != nil {
		return "", fmt.Errorf("presign PutObject: %w", err)
	}
	return result.URL, nil
}

// PresignGet returns a GET URL for key.
func (b *Bucket) PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error) {
	result, err := b.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: &b.name, Key: &key,
	}, func(opts *s3.PresignOptions) {
		opts.Expires = expiry
	})
	if err != nil {
		return "", fmt.Errorf("presign GetObject: %w", err)
	}
	return result.URL, nil
}

// DeleteObject removes key from the bucket.
func (b *Bucket) DeleteObject(ctx context.Context, key string) error {
	log.Debug().Str("bucket", b.name).Str("key", key).Msg("Deleting S3 object")
	if _, err := b.api.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: &b.name, Key: &key}); err != nil {
		return fmt.Errorf("S3 DeleteObject %s: %w", key, err)
	}
	return nil
}

// KeyFromURL extracts the object key from a virtual-hosted or path-style URL
// of this bucket. Query strings (presigned URLs) are ignored.
func (b *Bucket) KeyFromURL(raw string) (string, bool) {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", false
	}
	p := strings.TrimPrefix(u.Path, "/")
	host := strings.ToLower(u.Hostname())

	var key string
	switch {
	case strings.HasPrefix(host, b.name+".s3.") || strings.HasPrefix(host, b.name+".s3-"):
		key = p
	case strings.HasPrefix(host, "s3.") || strings.HasPrefix(host, "s3-"):
		rest, ok := strings.CutPrefix(p, b.name+"/")
		if !ok {
			return "", false
		}
		key = rest
	default:
		return "", false
	}

	return key, key != ""
}
