// Package memfs is an in-memory filestore.FileStore for tests and local runs.
package memfs

import (
	"bytes"
	"context"
	"crypto/md5" //nolint:gosec // etag only
	"encoding/hex"
	"io"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/code19m/errx"

	"github.com/rise-and-shine/docclip/filestore"
)

type object struct {
	data []byte
	info filestore.FileInfo
}

// Store keeps objects in a map guarded by a mutex.
type Store struct {
	mu      sync.RWMutex
	objects map[string]object
	baseURL string
	now     func() time.Time
}

var _ filestore.FileStore = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithBaseURL sets the prefix of URLs returned by URL.
func WithBaseURL(base string) Option {
	return func(s *Store) {
		s.baseURL = strings.TrimRight(base, "/")
	}
}

// WithClock overrides the time source used for LastModified.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New returns an empty Store.
func New(opts ...Option) *Store {
	s := &Store{
		objects: make(map[string]object),
		baseURL: "memfs://",
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Put(
	ctx context.Context,
	path string,
	r io.Reader,
	_ int64,
	contentType string,
) (*filestore.FileInfo, error) {
	if err := checkPath(path); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errx.Wrap(err)
	}
	if err = ctx.Err(); err != nil {
		return nil, errx.Wrap(err)
	}

	sum := md5.Sum(data) //nolint:gosec // etag only
	info := filestore.FileInfo{
		Path:         path,
		Size:         int64(len(data)),
		ContentType:  contentType,
		ETag:         hex.EncodeToString(sum[:]),
		LastModified: s.now(),
	}

	s.mu.Lock()
	s.objects[path] = object{data: data, info: info}
	s.mu.Unlock()

	return &info, nil
}

func (s *Store) Get(_ context.Context, path string) (*filestore.File, error) {
	s.mu.RLock()
	obj, ok := s.objects[path]
	s.mu.RUnlock()

	if !ok {
		return nil, errx.New(
			"file not found",
			errx.WithCode(filestore.CodeFileNotFound),
			errx.WithType(errx.T_NotFound),
			errx.WithDetails(errx.D{"path": path}),
		)
	}
	return &filestore.File{
		Content: io.NopCloser(bytes.NewReader(obj.data)),
		Info:    obj.info,
	}, nil
}

func (s *Store) Delete(_ context.Context, path string) error {
	s.mu.Lock()
	delete(s.objects, path)
	s.mu.Unlock()
	return nil
}

func (s *Store) Exists(_ context.Context, path string) (bool, error) {
	s.mu.RLock()
	_, ok := s.objects[path]
	s.mu.RUnlock()
	return ok, nil
}

// URL returns a fake URL carrying the expiry as a query parameter.
func (s *Store) URL(_ context.Context, path string, expiry time.Duration) (string, error) {
	if err := checkPath(path); err != nil {
		return "", err
	}
	q := url.Values{"expires": []string{strconv.FormatInt(int64(expiry.Seconds()), 10)}}
	return s.baseURL + "/" + path + "?" + q.Encode(), nil
}

// Paths lists every stored path in lexical order.
func (s *Store) Paths() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	paths := make([]string, 0, len(s.objects))
	for p := range s.objects {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

func checkPath(path string) error {
	if path == "" || strings.HasPrefix(path, "/") {
		return errx.New(
			"invalid file path",
			errx.WithCode(filestore.CodeInvalidPath),
			errx.WithType(errx.T_Validation),
			errx.WithDetails(errx.D{"path": path}),
		)
	}
	return nil
}
