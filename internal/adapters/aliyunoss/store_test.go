package aliyunoss

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/aliyun/alibabacloud-oss-go-sdk-v2/oss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCreds() Credentials {
	return Credentials{AccessKeyID: "ak", AccessKeySecret: "sk"}
}

func TestNewConfigDefaults(t *testing.T) {
	cfg := NewConfig("cn-hangzhou", testCreds())

	require.NotNil(t, cfg.Region)
	assert.Equal(t, "cn-hangzhou", *cfg.Region)
	assert.Equal(t, DefaultConnectTimeout, *cfg.ConnectTimeout)
	assert.Equal(t, DefaultReadWriteTimeout, *cfg.ReadWriteTimeout)
	assert.Equal(t, DefaultRetryMaxAttempts, *cfg.RetryMaxAttempts)
	assert.NotNil(t, cfg.CredentialsProvider)
}

func TestOptionFuncs(t *testing.T) {
	t.Run("endpoint", func(t *testing.T) {
		cfg := NewConfig("cn-hangzhou", testCreds(), WithEndpoint("oss-cn-hangzhou.aliyuncs.com"))
		assert.Equal(t, "oss-cn-hangzhou.aliyuncs.com", *cfg.Endpoint)
	})
	t.Run("internal endpoint", func(t *testing.T) {
		cfg := NewConfig("cn-hangzhou", testCreds(), WithInternalEndpoint())
		assert.True(t, *cfg.UseInternalEndpoint)
	})
	t.Run("path style", func(t *testing.T) {
		cfg := NewConfig("cn-hangzhou", testCreds(), WithPathStyle())
		assert.True(t, *cfg.UsePathStyle)
	})
	t.Run("cname", func(t *testing.T) {
		cfg := NewConfig("cn-hangzhou", testCreds(), WithCName("files.example.com"))
		assert.Equal(t, "files.example.com", *cfg.Endpoint)
		assert.True(t, *cfg.UseCName)
	})
	t.Run("timeouts override defaults", func(t *testing.T) {
		cfg := NewConfig("cn-hangzhou", testCreds(), WithTimeouts(5*time.Second, 10*time.Second), WithRetryMaxAttempts(3))
		assert.Equal(t, 5*time.Second, *cfg.ConnectTimeout)
		assert.Equal(t, 10*time.Second, *cfg.ReadWriteTimeout)
		assert.Equal(t, 3, *cfg.RetryMaxAttempts)
	})
}

func TestNewRequiresBucket(t *testing.T) {
	_, err := New("", NewConfig("cn-hangzhou", testCreds()))
	assert.Error(t, err)

	s, err := New("reports", NewConfig("cn-hangzhou", testCreds()))
	require.NoError(t, err)
	assert.Equal(t, "reports", s.Bucket())
}

func TestIsNotFound(t *testing.T) {
	notFound := &oss.ServiceError{StatusCode: 404, Code: "NoSuchKey"}
	assert.True(t, IsNotFound(fmt.Errorf("get: %w", notFound)))
	assert.False(t, IsNotFound(&oss.ServiceError{StatusCode: 403}))
	assert.False(t, IsNotFound(errors.New("dial tcp: timeout")))
}

func TestNonEmpty(t *testing.T) {
	assert.Nil(t, nonEmpty(""))
	assert.Equal(t, "x", *nonEmpty("x"))
}
