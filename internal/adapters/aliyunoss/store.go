// Package aliyunoss implements ports.ObjectStore on Alibaba Cloud OSS.
package aliyunoss

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aliyun/alibabacloud-oss-go-sdk-v2/oss"
	"github.com/aliyun/alibabacloud-oss-go-sdk-v2/oss/credentials"
	"github.com/wanjune/yuu-transfer/internal/ports"
)

// Client tuning applied before any OptionFunc.
const (
	DefaultConnectTimeout   = 120 * time.Second
	DefaultReadWriteTimeout = 300 * time.Second
	DefaultRetryMaxAttempts = 20

	// listPartsLimit bounds the part listing done before an abort.
	listPartsLimit = 100
)

// OptionFunc adjusts the SDK configuration.
type OptionFunc func(c *oss.Config)

// WithEndpoint sets the endpoint, e.g. "oss-cn-hangzhou.aliyuncs.com".
func WithEndpoint(endpoint string) OptionFunc {
	return func(c *oss.Config) {
		c.WithEndpoint(endpoint)
	}
}

// WithInternalEndpoint routes requests through the VPC endpoint.
func WithInternalEndpoint() OptionFunc {
	return func(c *oss.Config) {
		c.WithUseInternalEndpoint(true)
	}
}

// WithPathStyle uses path-style bucket addressing.
func WithPathStyle() OptionFunc {
	return func(c *oss.Config) {
		c.WithUsePathStyle(true)
	}
}

// WithCName treats the endpoint as a custom domain bound to the bucket.
func WithCName(domain string) OptionFunc {
	return func(c *oss.Config) {
		c.WithEndpoint(domain).WithUseCName(true)
	}
}

// WithTimeouts overrides the connect and read/write timeouts.
func WithTimeouts(connect, readWrite time.Duration) OptionFunc {
	return func(c *oss.Config) {
		c.WithConnectTimeout(connect).WithReadWriteTimeout(readWrite)
	}
}

// WithRetryMaxAttempts overrides the retry budget.
func WithRetryMaxAttempts(n int) OptionFunc {
	return func(c *oss.Config) {
		c.WithRetryMaxAttempts(n)
	}
}

// WithUserAgent appends ua to the User-Agent header.
func WithUserAgent(ua string) OptionFunc {
	return func(c *oss.Config) {
		c.WithUserAgent(ua)
	}
}

// Credentials are the static access keys for a bucket.
type Credentials struct {
	AccessKeyID     string
	AccessKeySecret string
	// SecurityToken is set for STS credentials.
	SecurityToken string
}

// NewConfig builds the SDK configuration for region with the default
// tuning, then applies opts in order.
func NewConfig(region string, creds Credentials, opts ...OptionFunc) *oss.Config {
	provider := credentials.NewStaticCredentialsProvider(creds.AccessKeyID, creds.AccessKeySecret, creds.SecurityToken)
	cfg := oss.LoadDefaultConfig().
		WithCredentialsProvider(provider).
		WithRegion(region).
		WithConnectTimeout(DefaultConnectTimeout).
		WithReadWriteTimeout(DefaultReadWriteTimeout).
		WithRetryMaxAttempts(DefaultRetryMaxAttempts)
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Store is a bucket-scoped OSS client.
type Store struct {
	client *oss.Client
	bucket string
}

var _ ports.ObjectStore = (*Store)(nil)

// New creates a Store for bucket.
func New(bucket string, cfg *oss.Config) (*Store, error) {
	if bucket == "" {
		return nil, fmt.Errorf("bucket is required")
	}
	return &Store{client: oss.NewClient(cfg), bucket: bucket}, nil
}

// Bucket returns the bucket name.
func (s *Store) Bucket() string {
	return s.bucket
}

func (s *Store) ObjectExists(ctx context.Context, key string) (bool, error) {
	ok, err := s.client.IsObjectExist(ctx, s.bucket, key)
	if err != nil {
		return false, fmt.Errorf("head object %s: %w", key, err)
	}
	return ok, nil
}

func (s *Store) PutObject(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, &oss.PutObjectRequest{
		Bucket:          oss.Ptr(s.bucket),
		Key:             oss.Ptr(key),
		Body:            body,
		ContentLength:   oss.Ptr(size),
		ContentType:     nonEmpty(contentType),
		StorageClass:    oss.StorageClassStandard,
		ForbidOverwrite: oss.Ptr("false"),
	})
	return err
}

func (s *Store) GetObject(ctx context.Context, key string) (io.ReadCloser, error) {
	res, err := s.client.GetObject(ctx, &oss.GetObjectRequest{
		Bucket: oss.Ptr(s.bucket),
		Key:    oss.Ptr(key),
	})
	if err != nil {
		return nil, err
	}
	return res.Body, nil
}

func (s *Store) ListObjects(ctx context.Context, req ports.ListRequest) (ports.ListPage, error) {
	res, err := s.client.ListObjectsV2(ctx, &oss.ListObjectsV2Request{
		Bucket:            oss.Ptr(s.bucket),
		Prefix:            nonEmpty(req.Prefix),
		Delimiter:         nonEmpty(req.Delimiter),
		ContinuationToken: nonEmpty(req.ContinuationToken),
		MaxKeys:           req.MaxKeys,
	})
	if err != nil {
		return ports.ListPage{}, err
	}

	page := ports.ListPage{
		IsTruncated:           res.IsTruncated,
		NextContinuationToken: oss.ToString(res.NextContinuationToken),
	}
	for _, obj := range res.Contents {
		page.Objects = append(page.Objects, ports.ObjectSummary{Key: oss.ToString(obj.Key), Size: obj.Size})
	}
	for _, cp := range res.CommonPrefixes {
		page.CommonPrefixes = append(page.CommonPrefixes, oss.ToString(cp.Prefix))
	}
	return page, nil
}

func (s *Store) DeleteObject(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &oss.DeleteObjectRequest{
		Bucket: oss.Ptr(s.bucket),
		Key:    oss.Ptr(key),
	})
	return err
}

func (s *Store) DeleteObjects(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	objects := make([]oss.DeleteObject, len(keys))
	for i, k := range keys {
		objects[i] = oss.DeleteObject{Key: oss.Ptr(k)}
	}
	_, err := s.client.DeleteMultipleObjects(ctx, &oss.DeleteMultipleObjectsRequest{
		Bucket:  oss.Ptr(s.bucket),
		Objects: objects,
		Quiet:   true,
	})
	return err
}

func (s *Store) InitiateMultipartUpload(ctx context.Context, key, contentType string) (string, error) {
	res, err := s.client.InitiateMultipartUpload(ctx, &oss.InitiateMultipartUploadRequest{
		Bucket:       oss.Ptr(s.bucket),
		Key:          oss.Ptr(key),
		ContentType:  nonEmpty(contentType),
		StorageClass: oss.StorageClassStandard,
	})
	if err != nil {
		return "", err
	}
	return oss.ToString(res.UploadId), nil
}

func (s *Store) UploadPart(ctx context.Context, key, uploadID string, partNumber int32, body io.Reader, size int64) (string, error) {
	res, err := s.client.UploadPart(ctx, &oss.UploadPartRequest{
		Bucket:        oss.Ptr(s.bucket),
		Key:           oss.Ptr(key),
		UploadId:      oss.Ptr(uploadID),
		PartNumber:    partNumber,
		Body:          body,
		ContentLength: oss.Ptr(size),
	})
	if err != nil {
		return "", err
	}
	return oss.ToString(res.ETag), nil
}

func (s *Store) CompleteMultipartUpload(ctx context.Context, key, uploadID string, parts []ports.Part) error {
	uploaded := make([]oss.UploadPart, len(parts))
	for i, p := range parts {
		uploaded[i] = oss.UploadPart{PartNumber: p.PartNumber, ETag: oss.Ptr(p.ETag)}
	}
	_, err := s.client.CompleteMultipartUpload(ctx, &oss.CompleteMultipartUploadRequest{
		Bucket:   oss.Ptr(s.bucket),
		Key:      oss.Ptr(key),
		UploadId: oss.Ptr(uploadID),
		CompleteMultipartUpload: &oss.CompleteMultipartUpload{
			Parts: uploaded,
		},
	})
	return err
}

func (s *Store) ListParts(ctx context.Context, key, uploadID string) ([]ports.Part, error) {
	res, err := s.client.ListParts(ctx, &oss.ListPartsRequest{
		Bucket:   oss.Ptr(s.bucket),
		Key:      oss.Ptr(key),
		UploadId: oss.Ptr(uploadID),
		MaxParts: listPartsLimit,
	})
	if err != nil {
		return nil, err
	}
	parts := make([]ports.Part, len(res.Parts))
	for i, p := range res.Parts {
		parts[i] = ports.Part{PartNumber: p.PartNumber, ETag: oss.ToString(p.ETag)}
	}
	return parts, nil
}

func (s *Store) AbortMultipartUpload(ctx context.Context, key, uploadID string) error {
	_, err := s.client.AbortMultipartUpload(ctx, &oss.AbortMultipartUploadRequest{
		Bucket:   oss.Ptr(s.bucket),
		Key:      oss.Ptr(key),
		UploadId: oss.Ptr(uploadID),
	})
	return err
}

// IsNotFound reports whether err is an OSS 404.
func IsNotFound(err error) bool {
	var serr *oss.ServiceError
	return errors.As(err, &serr) && serr.StatusCode == 404
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return oss.Ptr(s)
}
