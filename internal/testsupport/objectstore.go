package testsupport

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"hardsub/internal/objectcache"
)

// ObjectStore is an in-memory objectcache.Backend that counts calls and can
// inject failures per operation.
type ObjectStore struct {
	mu      sync.Mutex
	objects map[string][]byte

	Puts    int
	Deletes int
	Signs   int

	// Fail maps an operation name (exists, put, get, sign, delete) to the
	// error it should return.
	Fail map[string]error
	// BeforePut runs before a file upload is stored; tests use it to
	// simulate another run winning the race.
	BeforePut func(key string)
}

// NewObjectStore returns an empty store.
func NewObjectStore() *ObjectStore {
	return &ObjectStore{objects: make(map[string][]byte), Fail: make(map[string]error)}
}

var _ objectcache.Backend = (*ObjectStore)(nil)

func (s *ObjectStore) failure(op string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Fail[op]
}

// Seed stores data under key without counting a put.
func (s *ObjectStore) Seed(key string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = append([]byte(nil), data...)
}

// Has reports whether key is stored.
func (s *ObjectStore) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[key]
	return ok
}

// Keys returns the number of stored objects.
func (s *ObjectStore) Keys() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

func (s *ObjectStore) Exists(_ context.Context, key string) (bool, error) {
	if err := s.failure("exists"); err != nil {
		return false, err
	}
	return s.Has(key), nil
}

func (s *ObjectStore) PutFile(_ context.Context, key, path, _ string) error {
	if err := s.failure("put"); err != nil {
		return err
	}
	if s.BeforePut != nil {
		s.BeforePut(key)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[key]; ok {
		return fmt.Errorf("%w: %s", objectcache.ErrAlreadyExists, key)
	}
	s.objects[key] = data
	s.Puts++
	return nil
}

func (s *ObjectStore) PutBytes(_ context.Context, key string, data []byte, _ string) error {
	if err := s.failure("put"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = append([]byte(nil), data...)
	s.Puts++
	return nil
}

func (s *ObjectStore) Get(_ context.Context, key string) ([]byte, error) {
	if err := s.failure("get"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", objectcache.ErrNotFound, key)
	}
	return append([]byte(nil), data...), nil
}

func (s *ObjectStore) SignURL(_ context.Context, key string, expiry time.Duration) (string, error) {
	if err := s.failure("sign"); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Signs++
	return fmt.Sprintf("https://objects.test/%s?expires=%d", key, int64(expiry/time.Second)), nil
}

func (s *ObjectStore) Delete(_ context.Context, key string) error {
	if err := s.failure("delete"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	s.Deletes++
	return nil
}
