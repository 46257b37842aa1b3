// Package fakeobjectstore provides an in-memory ports.ObjectStore for tests.
package fakeobjectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/wanjune/yuu-transfer/internal/ports"
)

// ErrNoSuchUpload is returned for an unknown upload ID.
var ErrNoSuchUpload = errors.New("no such upload")

// ErrNoSuchKey is returned by GetObject for a missing key.
var ErrNoSuchKey = errors.New("no such key")

// Object is a stored object.
type Object struct {
	Data        []byte
	ContentType string
}

type upload struct {
	key         string
	contentType string
	parts       map[int32][]byte
}

// Store is a thread-safe in-memory object store.
type Store struct {
	mu      sync.Mutex
	objects map[string]Object
	uploads map[string]*upload
	nextID  int
	calls   []string

	// FailPart makes UploadPart fail for the given part numbers.
	FailPart map[int32]error
	// ListPartsErr makes ListParts fail.
	ListPartsErr error
	// AbortErr makes AbortMultipartUpload fail.
	AbortErr error
	// CompleteErr makes CompleteMultipartUpload fail.
	CompleteErr error
	// ListErr makes ListObjects fail.
	ListErr error
}

var _ ports.ObjectStore = (*Store)(nil)

// New creates an empty Store.
func New() *Store {
	return &Store{
		objects:  make(map[string]Object),
		uploads:  make(map[string]*upload),
		FailPart: make(map[int32]error),
	}
}

// Put seeds an object.
func (s *Store) Put(key, data string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = Object{Data: []byte(data)}
}

// Object returns a stored object.
func (s *Store) Object(key string) (Object, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.objects[key]
	return obj, ok
}

// Keys returns every stored key in order.
func (s *Store) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedKeys()
}

// Uploads returns the number of multipart uploads still in progress.
func (s *Store) Uploads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.uploads)
}

// StoredParts returns the number of parts held by uploads still in
// progress.
func (s *Store) StoredParts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, u := range s.uploads {
		n += len(u.parts)
	}
	return n
}

// Calls returns the names of the methods called, in order.
func (s *Store) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

// CallCount returns how often method was called.
func (s *Store) CallCount(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if c == method {
			n++
		}
	}
	return n
}

func (s *Store) record(method string) {
	s.calls = append(s.calls, method)
}

func (s *Store) sortedKeys() []string {
	keys := make([]string, 0, len(s.objects))
	for k := range s.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (s *Store) ObjectExists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("ObjectExists")
	_, ok := s.objects[key]
	return ok, nil
}

func (s *Store) PutObject(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	if int64(len(data)) != size {
		return fmt.Errorf("content length %d does not match body of %d bytes", size, len(data))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("PutObject")
	s.objects[key] = Object{Data: data, ContentType: contentType}
	return nil
}

func (s *Store) GetObject(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("GetObject")
	obj, ok := s.objects[key]
	if !ok {
		return nil, fmt.Errorf("%s: %w", key, ErrNoSuchKey)
	}
	return io.NopCloser(bytes.NewReader(obj.Data)), nil
}

// ListObjects pages through keys in order. The continuation token is the
// last key of the previous page, or for a common prefix a key sorting after
// everything beneath it.
func (s *Store) ListObjects(ctx context.Context, req ports.ListRequest) (ports.ListPage, error) {
	if err := ctx.Err(); err != nil {
		return ports.ListPage{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("ListObjects")
	if s.ListErr != nil {
		return ports.ListPage{}, s.ListErr
	}

	maxKeys := int(req.MaxKeys)
	if maxKeys <= 0 {
		maxKeys = 1000
	}

	var page ports.ListPage
	seen := map[string]bool{}
	last := ""
	count := 0
	for _, key := range s.sortedKeys() {
		if !strings.HasPrefix(key, req.Prefix) || key <= req.ContinuationToken {
			continue
		}
		cp := ""
		if req.Delimiter != "" {
			rest := key[len(req.Prefix):]
			if i := strings.Index(rest, req.Delimiter); i >= 0 {
				cp = req.Prefix + rest[:i+len(req.Delimiter)]
			}
		}
		if cp != "" && seen[cp] {
			continue
		}
		if count == maxKeys {
			page.IsTruncated = true
			page.NextContinuationToken = last
			break
		}
		if cp != "" {
			seen[cp] = true
			page.CommonPrefixes = append(page.CommonPrefixes, cp)
			// resume after every key under the prefix
			last = cp + "\xff"
		} else {
			page.Objects = append(page.Objects, ports.ObjectSummary{Key: key, Size: int64(len(s.objects[key].Data))})
			last = key
		}
		count++
	}
	return page, nil
}

func (s *Store) DeleteObject(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("DeleteObject")
	delete(s.objects, key)
	return nil
}

func (s *Store) DeleteObjects(ctx context.Context, keys []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("DeleteObjects")
	for _, k := range keys {
		delete(s.objects, k)
	}
	return nil
}

func (s *Store) InitiateMultipartUpload(ctx context.Context, key, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("InitiateMultipartUpload")
	s.nextID++
	id := fmt.Sprintf("upload-%d", s.nextID)
	s.uploads[id] = &upload{key: key, contentType: contentType, parts: make(map[int32][]byte)}
	return id, nil
}

func (s *Store) UploadPart(ctx context.Context, key, uploadID string, partNumber int32, body io.Reader, size int64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("UploadPart")
	if err := s.FailPart[partNumber]; err != nil {
		return "", err
	}
	u, ok := s.uploads[uploadID]
	if !ok || u.key != key {
		return "", ErrNoSuchUpload
	}
	if int64(len(data)) != size {
		return "", fmt.Errorf("part %d: content length %d does not match body of %d bytes", partNumber, size, len(data))
	}
	u.parts[partNumber] = data
	return etag(partNumber), nil
}

func (s *Store) CompleteMultipartUpload(ctx context.Context, key, uploadID string, parts []ports.Part) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("CompleteMultipartUpload")
	if s.CompleteErr != nil {
		return s.CompleteErr
	}
	u, ok := s.uploads[uploadID]
	if !ok || u.key != key {
		return ErrNoSuchUpload
	}

	var buf bytes.Buffer
	for i, p := range parts {
		if i > 0 && p.PartNumber <= parts[i-1].PartNumber {
			return fmt.Errorf("parts not in ascending order at part %d", p.PartNumber)
		}
		data, ok := u.parts[p.PartNumber]
		if !ok || p.ETag != etag(p.PartNumber) {
			return fmt.Errorf("invalid part %d", p.PartNumber)
		}
		buf.Write(data)
	}
	s.objects[key] = Object{Data: buf.Bytes(), ContentType: u.contentType}
	delete(s.uploads, uploadID)
	return nil
}

func (s *Store) ListParts(ctx context.Context, key, uploadID string) ([]ports.Part, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("ListParts")
	if s.ListPartsErr != nil {
		return nil, s.ListPartsErr
	}
	u, ok := s.uploads[uploadID]
	if !ok || u.key != key {
		return nil, ErrNoSuchUpload
	}
	parts := make([]ports.Part, 0, len(u.parts))
	for n := range u.parts {
		parts = append(parts, ports.Part{PartNumber: n, ETag: etag(n)})
	}
	sort.Slice(parts, func(i, j int) bool { return parts[i].PartNumber < parts[j].PartNumber })
	return parts, nil
}

func (s *Store) AbortMultipartUpload(ctx context.Context, key, uploadID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("AbortMultipartUpload")
	if s.AbortErr != nil {
		return s.AbortErr
	}
	if _, ok := s.uploads[uploadID]; !ok {
		return ErrNoSuchUpload
	}
	delete(s.uploads, uploadID)
	return nil
}

func etag(n int32) string {
	return fmt.Sprintf("\"etag-%d\"", n)
}
