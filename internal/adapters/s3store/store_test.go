package s3store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/wanjune/yuu-transfer/internal/ports"
)

type mockAPI struct {
	mock.Mock
}

func (m *mockAPI) HeadObject(ctx context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*s3.HeadObjectOutput)
	return out, args.Error(1)
}

func (m *mockAPI) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*s3.PutObjectOutput)
	return out, args.Error(1)
}

func (m *mockAPI) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*s3.GetObjectOutput)
	return out, args.Error(1)
}

func (m *mockAPI) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*s3.ListObjectsV2Output)
	return out, args.Error(1)
}

func (m *mockAPI) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*s3.DeleteObjectOutput)
	return out, args.Error(1)
}

func (m *mockAPI) DeleteObjects(ctx context.Context, in *s3.DeleteObjectsInput, _ ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*s3.DeleteObjectsOutput)
	return out, args.Error(1)
}

func (m *mockAPI) CreateMultipartUpload(ctx context.Context, in *s3.CreateMultipartUploadInput, _ ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*s3.CreateMultipartUploadOutput)
	return out, args.Error(1)
}

func (m *mockAPI) UploadPart(ctx context.Context, in *s3.UploadPartInput, _ ...func(*s3.Options)) (*s3.UploadPartOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*s3.UploadPartOutput)
	return out, args.Error(1)
}

func (m *mockAPI) CompleteMultipartUpload(ctx context.Context, in *s3.CompleteMultipartUploadInput, _ ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*s3.CompleteMultipartUploadOutput)
	return out, args.Error(1)
}

func (m *mockAPI) ListParts(ctx context.Context, in *s3.ListPartsInput, _ ...func(*s3.Options)) (*s3.ListPartsOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*s3.ListPartsOutput)
	return out, args.Error(1)
}

func (m *mockAPI) AbortMultipartUpload(ctx context.Context, in *s3.AbortMultipartUploadInput, _ ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*s3.AbortMultipartUploadOutput)
	return out, args.Error(1)
}

func keyIs(key string) any {
	return mock.MatchedBy(func(in *s3.HeadObjectInput) bool {
		return aws.ToString(in.Key) == key && aws.ToString(in.Bucket) == "bkt"
	})
}

func TestObjectExists(t *testing.T) {
	api := &mockAPI{}
	api.On("HeadObject", mock.Anything, keyIs("present")).Return(&s3.HeadObjectOutput{}, nil)
	api.On("HeadObject", mock.Anything, keyIs("absent")).Return(nil, &types.NotFound{})
	api.On("HeadObject", mock.Anything, keyIs("denied")).Return(nil, &smithy.GenericAPIError{Code: "AccessDenied"})
	s := NewWithAPI(api, "bkt")
	ctx := context.Background()

	ok, err := s.ObjectExists(ctx, "present")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.ObjectExists(ctx, "absent")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.ObjectExists(ctx, "denied")
	assert.Error(t, err)
	api.AssertExpectations(t)
}

func TestListObjectsMapsPage(t *testing.T) {
	api := &mockAPI{}
	api.On("ListObjectsV2", mock.Anything, mock.MatchedBy(func(in *s3.ListObjectsV2Input) bool {
		return aws.ToString(in.Prefix) == "a/" && aws.ToString(in.Delimiter) == "/" &&
			in.ContinuationToken == nil && aws.ToInt32(in.MaxKeys) == 2
	})).Return(&s3.ListObjectsV2Output{
		Contents:              []types.Object{{Key: aws.String("a/x.txt"), Size: aws.Int64(3)}},
		CommonPrefixes:        []types.CommonPrefix{{Prefix: aws.String("a/sub/")}},
		IsTruncated:           aws.Bool(true),
		NextContinuationToken: aws.String("tok"),
	}, nil)
	s := NewWithAPI(api, "bkt")

	page, err := s.ListObjects(context.Background(), ports.ListRequest{Prefix: "a/", Delimiter: "/", MaxKeys: 2})
	require.NoError(t, err)
	assert.Equal(t, ports.ListPage{
		Objects:               []ports.ObjectSummary{{Key: "a/x.txt", Size: 3}},
		CommonPrefixes:        []string{"a/sub/"},
		IsTruncated:           true,
		NextContinuationToken: "tok",
	}, page)
}

func TestDeleteObjectsReportsPartialFailure(t *testing.T) {
	api := &mockAPI{}
	api.On("DeleteObjects", mock.Anything, mock.MatchedBy(func(in *s3.DeleteObjectsInput) bool {
		return len(in.Delete.Objects) == 2 && aws.ToBool(in.Delete.Quiet)
	})).Return(&s3.DeleteObjectsOutput{
		Errors: []types.Error{{Key: aws.String("b"), Message: aws.String("denied")}},
	}, nil)
	s := NewWithAPI(api, "bkt")

	err := s.DeleteObjects(context.Background(), []string{"a", "b"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "b: denied")

	require.NoError(t, s.DeleteObjects(context.Background(), nil))
	api.AssertNumberOfCalls(t, "DeleteObjects", 1)
}

func TestMultipartCalls(t *testing.T) {
	api := &mockAPI{}
	api.On("CreateMultipartUpload", mock.Anything, mock.Anything).
		Return(&s3.CreateMultipartUploadOutput{UploadId: aws.String("up-1")}, nil)
	api.On("UploadPart", mock.Anything, mock.MatchedBy(func(in *s3.UploadPartInput) bool {
		return aws.ToString(in.UploadId) == "up-1" && aws.ToInt32(in.PartNumber) == 1 && aws.ToInt64(in.ContentLength) == 4
	})).Return(&s3.UploadPartOutput{ETag: aws.String(`"e1"`)}, nil)
	api.On("CompleteMultipartUpload", mock.Anything, mock.MatchedBy(func(in *s3.CompleteMultipartUploadInput) bool {
		p := in.MultipartUpload.Parts
		return len(p) == 1 && aws.ToInt32(p[0].PartNumber) == 1 && aws.ToString(p[0].ETag) == `"e1"`
	})).Return(&s3.CompleteMultipartUploadOutput{}, nil)
	api.On("ListParts", mock.Anything, mock.Anything).Return(&s3.ListPartsOutput{
		Parts: []types.Part{{PartNumber: aws.Int32(1), ETag: aws.String(`"e1"`)}},
	}, nil)
	api.On("AbortMultipartUpload", mock.Anything, mock.Anything).Return(&s3.AbortMultipartUploadOutput{}, nil)
	s := NewWithAPI(api, "bkt")
	ctx := context.Background()

	id, err := s.InitiateMultipartUpload(ctx, "big", "text/csv")
	require.NoError(t, err)
	assert.Equal(t, "up-1", id)

	etag, err := s.UploadPart(ctx, "big", id, 1, strings.NewReader("abcd"), 4)
	require.NoError(t, err)
	require.NoError(t, s.CompleteMultipartUpload(ctx, "big", id, []ports.Part{{PartNumber: 1, ETag: etag}}))

	parts, err := s.ListParts(ctx, "big", id)
	require.NoError(t, err)
	assert.Equal(t, []ports.Part{{PartNumber: 1, ETag: `"e1"`}}, parts)
	require.NoError(t, s.AbortMultipartUpload(ctx, "big", id))
	api.AssertExpectations(t)
}

func TestGetObject(t *testing.T) {
	api := &mockAPI{}
	api.On("GetObject", mock.Anything, mock.Anything).
		Return(&s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader("payload"))}, nil)
	s := NewWithAPI(api, "bkt")

	body, err := s.GetObject(context.Background(), "k")
	require.NoError(t, err)
	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(&types.NotFound{}))
	assert.True(t, IsNotFound(fmt.Errorf("get: %w", &types.NoSuchKey{})))
	assert.True(t, IsNotFound(&smithy.GenericAPIError{Code: "NotFound"}))
	assert.False(t, IsNotFound(&smithy.GenericAPIError{Code: "AccessDenied"}))
	assert.False(t, IsNotFound(errors.New("timeout")))
}

func TestNewRequiresBucket(t *testing.T) {
	_, err := New(context.Background(), Options{})
	assert.Error(t, err)
}
