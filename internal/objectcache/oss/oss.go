// Package oss implements objectcache.Backend on Alibaba Cloud Object Storage
// Service.
package oss

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	alioss "github.com/aliyun/aliyun-oss-go-sdk/oss"

	"hardsub/internal/objectcache"
)

// Config carries the endpoint, bucket, and credentials for one bucket.
type Config struct {
	Endpoint        string
	Bucket          string
	AccessKeyID     string
	AccessKeySecret string
	ConnectTimeout  time.Duration
	RequestTimeout  time.Duration
}

type bucketAPI interface {
	IsObjectExist(objectKey string, options ...alioss.Option) (bool, error)
	PutObjectFromFile(objectKey, filePath string, options ...alioss.Option) error
	PutObject(objectKey string, reader io.Reader, options ...alioss.Option) error
	GetObject(objectKey string, options ...alioss.Option) (io.ReadCloser, error)
	SignURL(objectKey string, method alioss.HTTPMethod, expiredInSec int64, options ...alioss.Option) (string, error)
	DeleteObject(objectKey string, options ...alioss.Option) error
}

type bucketChecker interface {
	IsBucketExist(bucketName string) (bool, error)
}

// Backend stores objects in a single OSS bucket.
type Backend struct {
	bucketName string
	bucket     bucketAPI
	client     bucketChecker
}

// New dials nothing; it validates configuration and prepares a bucket handle.
func New(cfg Config) (*Backend, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, errors.New("oss: endpoint is required")
	}
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, errors.New("oss: bucket is required")
	}
	connect := cfg.ConnectTimeout
	if connect <= 0 {
		connect = 10 * time.Second
	}
	request := cfg.RequestTimeout
	if request <= 0 {
		request = 5 * time.Minute
	}
	client, err := alioss.New(cfg.Endpoint, cfg.AccessKeyID, cfg.AccessKeySecret,
		alioss.Timeout(int64(connect/time.Second), int64(request/time.Second)),
	)
	if err != nil {
		return nil, fmt.Errorf("oss: create client: %w", err)
	}
	bucket, err := client.Bucket(cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("oss: open bucket %q: %w", cfg.Bucket, err)
	}
	return &Backend{bucketName: cfg.Bucket, bucket: bucket, client: client}, nil
}

var _ objectcache.Backend = (*Backend)(nil)

// Exists reports whether key is present.
func (b *Backend) Exists(ctx context.Context, key string) (bool, error) {
	ok, err := b.bucket.IsObjectExist(key, alioss.WithContext(ctx))
	if err != nil {
		return false, translate(err)
	}
	return ok, nil
}

// PutFile uploads path under key, refusing to overwrite an existing object.
func (b *Backend) PutFile(ctx context.Context, key, path, contentType string) error {
	options := []alioss.Option{alioss.WithContext(ctx), alioss.ForbidOverWrite(true)}
	if contentType != "" {
		options = append(options, alioss.ContentType(contentType))
	}
	return translate(b.bucket.PutObjectFromFile(key, path, options...))
}

// PutBytes writes data under key, overwriting any previous object.
func (b *Backend) PutBytes(ctx context.Context, key string, data []byte, contentType string) error {
	options := []alioss.Option{alioss.WithContext(ctx)}
	if contentType != "" {
		options = append(options, alioss.ContentType(contentType))
	}
	return translate(b.bucket.PutObject(key, bytes.NewReader(data), options...))
}

// Get reads the whole object at key.
func (b *Backend) Get(ctx context.Context, key string) ([]byte, error) {
	body, err := b.bucket.GetObject(key, alioss.WithContext(ctx))
	if err != nil {
		return nil, translate(err)
	}
	defer body.Close()
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("oss: read %s: %w", key, err)
	}
	return data, nil
}

// SignURL presigns a GET for key. Signing is local and never blocks.
func (b *Backend) SignURL(_ context.Context, key string, expiry time.Duration) (string, error) {
	seconds := int64(expiry / time.Second)
	if seconds <= 0 {
		seconds = 1
	}
	url, err := b.bucket.SignURL(key, alioss.HTTPGet, seconds)
	if err != nil {
		return "", translate(err)
	}
	return url, nil
}

// Delete removes key. OSS reports success for absent keys.
func (b *Backend) Delete(ctx context.Context, key string) error {
	return translate(b.bucket.DeleteObject(key, alioss.WithContext(ctx)))
}

// Ping confirms the bucket exists and the credentials can see it.
func (b *Backend) Ping(_ context.Context) error {
	ok, err := b.client.IsBucketExist(b.bucketName)
	if err != nil {
		return translate(err)
	}
	if !ok {
		return fmt.Errorf("oss: bucket %q not found", b.bucketName)
	}
	return nil
}

func translate(err error) error {
	if err == nil {
		return nil
	}
	svcErr, ok := serviceError(err)
	if !ok {
		return fmt.Errorf("oss: %w", err)
	}
	switch {
	case svcErr.Code == "FileAlreadyExists" || svcErr.StatusCode == http.StatusConflict:
		return fmt.Errorf("%w: %s", objectcache.ErrAlreadyExists, svcErr.Message)
	case svcErr.Code == "NoSuchKey" || svcErr.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", objectcache.ErrNotFound, svcErr.Message)
	}
	return fmt.Errorf("oss: %s (status %d, request %s): %w", svcErr.Code, svcErr.StatusCode, svcErr.RequestID, err)
}

// serviceError unwraps an OSS service error whether the SDK returned it by
// value or by pointer.
func serviceError(err error) (alioss.ServiceError, bool) {
	var value alioss.ServiceError
	if errors.As(err, &value) {
		return value, true
	}
	var ptr *alioss.ServiceError
	if errors.As(err, &ptr) && ptr != nil {
		return *ptr, true
	}
	return alioss.ServiceError{}, false
}
