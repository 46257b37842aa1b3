package ports

import (
	"context"
	"io"
)

// MaxParts is the largest part number an object store accepts in one
// multipart upload.
const MaxParts = 10000

// ObjectStore abstracts a bucket-scoped object store client.
// Keys never start with a separator.
type ObjectStore interface {
	// ObjectExists reports whether an object with exactly this key exists.
	ObjectExists(ctx context.Context, key string) (bool, error)

	// PutObject uploads size bytes from body as one object.
	PutObject(ctx context.Context, key string, body io.Reader, size int64, contentType string) error

	// GetObject opens the object for reading. The caller closes the body.
	GetObject(ctx context.Context, key string) (io.ReadCloser, error)

	// ListObjects returns one page of keys under req.Prefix.
	ListObjects(ctx context.Context, req ListRequest) (ListPage, error)

	// DeleteObject removes one object. Deleting a missing key succeeds.
	DeleteObject(ctx context.Context, key string) error

	// DeleteObjects removes a batch of objects.
	DeleteObjects(ctx context.Context, keys []string) error

	// InitiateMultipartUpload starts a multipart upload and returns its id.
	InitiateMultipartUpload(ctx context.Context, key, contentType string) (string, error)

	// UploadPart uploads one part and returns its entity tag.
	UploadPart(ctx context.Context, key, uploadID string, partNumber int32, body io.Reader, size int64) (string, error)

	// CompleteMultipartUpload assembles parts, which must be in ascending
	// part number order.
	CompleteMultipartUpload(ctx context.Context, key, uploadID string, parts []Part) error

	// ListParts returns the parts already stored for an upload.
	ListParts(ctx context.Context, key, uploadID string) ([]Part, error)

	// AbortMultipartUpload discards an upload and its stored parts.
	AbortMultipartUpload(ctx context.Context, key, uploadID string) error
}

// ListRequest selects one page of a listing.
type ListRequest struct {
	Prefix            string
	Delimiter         string
	ContinuationToken string
	MaxKeys           int32
}

// ListPage is one page of a listing.
type ListPage struct {
	Objects               []ObjectSummary
	CommonPrefixes        []string
	IsTruncated           bool
	NextContinuationToken string
}

// ObjectSummary describes one listed object.
type ObjectSummary struct {
	Key  string
	Size int64
}

// Part identifies one uploaded part of a multipart upload.
type Part struct {
	PartNumber int32
	ETag       string
}
