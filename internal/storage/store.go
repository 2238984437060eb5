// Package storage keeps uploaded ticket images in named public buckets.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

var (
	ErrBucketNotFound = errors.New("bucket not found")
	ErrObjectExists   = errors.New("object already exists")
	ErrObjectNotFound = errors.New("object not found")
	ErrInvalidName    = errors.New("invalid object name")
)

var objectNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,127}$`)

// Object describes a stored blob.
type Object struct {
	Bucket      string
	Name        string
	ContentType string
	Size        int64
}

// BlobStore is the capability the application needs from blob storage.
// Uploads never overwrite an existing object.
type BlobStore interface {
	Upload(ctx context.Context, bucket, name string, data []byte) (*Object, error)
	Get(ctx context.Context, bucket, name string) (*Object, []byte, error)
	PublicURL(bucket, name string) string
}

// FileStore is a BlobStore backed by one directory per bucket.
type FileStore struct {
	root       string
	publicBase string
	buckets    map[string]struct{}
}

// NewFileStore prepares the bucket directories below root.
func NewFileStore(root, publicBase string, buckets ...string) (*FileStore, error) {
	store := &FileStore{
		root:       root,
		publicBase: strings.TrimRight(publicBase, "/"),
		buckets:    make(map[string]struct{}, len(buckets)),
	}
	for _, bucket := range buckets {
		if !objectNamePattern.MatchString(bucket) {
			return nil, fmt.Errorf("bucket %q: %w", bucket, ErrInvalidName)
		}
		if err := os.MkdirAll(filepath.Join(root, bucket), 0o755); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", bucket, err)
		}
		store.buckets[bucket] = struct{}{}
	}
	return store, nil
}

func (s *FileStore) Upload(ctx context.Context, bucket, name string, data []byte) (*Object, error) {
	path, err := s.objectPath(bucket, name)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil, ErrObjectExists
		}
		return nil, err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return nil, err
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return nil, err
	}

	return &Object{
		Bucket:      bucket,
		Name:        name,
		ContentType: mimetype.Detect(data).String(),
		Size:        int64(len(data)),
	}, nil
}

func (s *FileStore) Get(ctx context.Context, bucket, name string) (*Object, []byte, error) {
	path, err := s.objectPath(bucket, name)
	if err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, ErrObjectNotFound
		}
		return nil, nil, err
	}
	return &Object{
		Bucket:      bucket,
		Name:        name,
		ContentType: mimetype.Detect(data).String(),
		Size:        int64(len(data)),
	}, data, nil
}

// PublicURL is the address anyone can fetch the object from.
func (s *FileStore) PublicURL(bucket, name string) string {
	return s.publicBase + "/" + url.PathEscape(bucket) + "/" + url.PathEscape(name)
}

func (s *FileStore) objectPath(bucket, name string) (string, error) {
	if _, ok := s.buckets[bucket]; !ok {
		return "", ErrBucketNotFound
	}
	if !objectNamePattern.MatchString(name) || strings.Contains(name, "..") {
		return "", ErrInvalidName
	}
	return filepath.Join(s.root, bucket, name), nil
}
