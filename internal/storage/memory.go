package storage

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

type memoryObject struct {
	data []byte
	info ObjectInfo
}

// MemoryStorage keeps objects in process memory. URLs use BaseURL.
type MemoryStorage struct {
	BaseURL string

	mu      sync.RWMutex
	objects map[string]memoryObject
}

func NewMemory(baseURL string) *MemoryStorage {
	return &MemoryStorage{
		BaseURL: strings.TrimRight(baseURL, "/"),
		objects: make(map[string]memoryObject),
	}
}

var _ Storage = (*MemoryStorage)(nil)

func (s *MemoryStorage) Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, withProgress(r, opt)); err != nil {
		return ObjectInfo{}, err
	}
	if err := ctx.Err(); err != nil {
		return ObjectInfo{}, err
	}

	sum := md5.Sum(buf.Bytes())
	info := ObjectInfo{
		Key:          key,
		Size:         int64(buf.Len()),
		ETag:         hex.EncodeToString(sum[:]),
		ContentType:  opt.ContentType,
		LastModified: time.Now(),
		Metadata:     opt.Metadata,
	}

	s.mu.Lock()
	s.objects[key] = memoryObject{data: buf.Bytes(), info: info}
	s.mu.Unlock()
	return info, nil
}

func (s *MemoryStorage) URL(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	_, ok := s.objects[key]
	s.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%s: %w", key, ErrObjectNotFound)
	}
	return s.BaseURL + "/" + escapeKey(key), nil
}

func (s *MemoryStorage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[key]; !ok {
		return fmt.Errorf("%s: %w", key, ErrObjectNotFound)
	}
	delete(s.objects, key)
	return nil
}

// Open returns the stored bytes and info for key.
func (s *MemoryStorage) Open(key string) ([]byte, ObjectInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.objects[key]
	if !ok {
		return nil, ObjectInfo{}, false
	}
	return o.data, o.info, true
}

// Keys lists stored object keys.
func (s *MemoryStorage) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.objects))
	for k := range s.objects {
		out = append(out, k)
	}
	return out
}
