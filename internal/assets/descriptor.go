// Package assets turns the heterogeneous media inputs of a request (spooled
// uploads, object storage URLs and Google Drive references) into a uniform
// list of descriptors the pipeline can upload.
package assets

import (
	"github.com/fpang/meta-ad-uploader/internal/mediaprobe"
)

// SourceKind says where an asset's bytes live.
type SourceKind string

const (
	SourceLocalFile     SourceKind = "local_file"
	SourceObjectStorage SourceKind = "object_storage_url"
	SourceDrive         SourceKind = "drive_reference"
)

// Descriptor is a resolved asset. Path is preferred over URL when both are set.
type Descriptor struct {
	Source SourceKind
	Kind   mediaprobe.Kind
	MIME   string
	Name   string
	// Size is zero when unknown.
	Size int64
	Path string
	URL  string
	// ObjectKey is the bucket key of a transient remote object.
	ObjectKey string
}

// Local reports whether the asset bytes are on disk.
func (d Descriptor) Local() bool { return d.Path != "" }

// LocalFile is a multipart upload already spooled to disk.
type LocalFile struct {
	Path        string
	Name        string
	ContentType string
	Size        int64
}

// ObjectRef is a file the browser uploaded to the media bucket directly.
type ObjectRef struct {
	URL  string `json:"url"`
	Key  string `json:"key"`
	Name string `json:"name"`
	Type string `json:"type"`
	Size int64  `json:"size"`
}

// DriveRef is a file picked from Google Drive.
type DriveRef struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	MIMEType    string `json:"mimeType"`
	AccessToken string `json:"accessToken"`
}

// OrderEntry places one input in the unified asset order.
type OrderEntry struct {
	Source SourceKind `json:"source"`
	Index  int        `json:"index"`
}

// Inputs are the raw asset inputs of one request.
type Inputs struct {
	Files   []LocalFile
	Objects []ObjectRef
	Drive   []DriveRef
	// Order, when set, interleaves the three lists. Inputs it does not
	// mention are appended in default order.
	Order []OrderEntry
}

// Count is the number of assets the inputs will resolve to.
func (in Inputs) Count() int {
	return len(in.Files) + len(in.Objects) + len(in.Drive)
}
